package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
)

// PostgresStore persists all records in Postgres. Tabular payloads (dataset
// rows, model parameters, result rows) live in JSONB columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- datasets ---

func (s *PostgresStore) CreateDataset(ctx context.Context, d *Dataset) error {
	columnsJSON, _ := json.Marshal(d.Columns)
	rowsJSON, _ := json.Marshal(d.Rows)

	return s.pool.QueryRow(ctx, `
		INSERT INTO atlas_datasets (id, name, source_type, is_sample, columns, rows, row_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		d.ID, d.Name, d.SourceType, d.IsSample, columnsJSON, rowsJSON, d.RowCount,
	).Scan(&d.CreatedAt)
}

func (s *PostgresStore) GetDataset(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	d := &Dataset{}
	var columnsJSON, rowsJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, source_type, is_sample, columns, rows, row_count, created_at
		FROM atlas_datasets WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.SourceType, &d.IsSample, &columnsJSON, &rowsJSON, &d.RowCount, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(columnsJSON, &d.Columns)
	_ = json.Unmarshal(rowsJSON, &d.Rows)
	return d, nil
}

func (s *PostgresStore) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source_type, is_sample, columns, row_count, created_at
		FROM atlas_datasets ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Dataset
	for rows.Next() {
		d := &Dataset{}
		var columnsJSON []byte
		if err := rows.Scan(&d.ID, &d.Name, &d.SourceType, &d.IsSample, &columnsJSON, &d.RowCount, &d.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(columnsJSON, &d.Columns)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDatasetName(ctx context.Context, id uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE atlas_datasets SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s not found", id)
	}
	return nil
}

func (s *PostgresStore) ReplaceDatasetRows(ctx context.Context, id uuid.UUID, columns []string, rows []map[string]string) error {
	columnsJSON, _ := json.Marshal(columns)
	rowsJSON, _ := json.Marshal(rows)
	tag, err := s.pool.Exec(ctx, `
		UPDATE atlas_datasets SET columns = $2, rows = $3, row_count = $4 WHERE id = $1`,
		id, columnsJSON, rowsJSON, len(rows))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("dataset %s not found", id)
	}
	return nil
}

// --- indicator catalog ---

func (s *PostgresStore) UpsertIndicator(ctx context.Context, ind *Indicator) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO atlas_indicators (key, name, dimension2_key, direction, unit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET name = EXCLUDED.name, dimension2_key = EXCLUDED.dimension2_key,
			direction = EXCLUDED.direction, unit = EXCLUDED.unit`,
		ind.Key, ind.Name, ind.Dimension2Key, ind.Direction, ind.Unit)
	return err
}

func (s *PostgresStore) ListIndicators(ctx context.Context) ([]*Indicator, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT key, name, dimension2_key, direction, unit
		FROM atlas_indicators ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Indicator
	for rows.Next() {
		ind := &Indicator{}
		if err := rows.Scan(&ind.Key, &ind.Name, &ind.Dimension2Key, &ind.Direction, &ind.Unit); err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteIndicator(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM atlas_indicators WHERE key = $1`, key)
	return err
}

// --- mappings ---

func (s *PostgresStore) GetMapping(ctx context.Context, datasetID uuid.UUID) (*Mapping, error) {
	m := &Mapping{DatasetID: datasetID}
	var mapJSON []byte
	err := s.pool.QueryRow(ctx, `
		SELECT map, updated_at FROM atlas_mappings WHERE dataset_id = $1`, datasetID,
	).Scan(&mapJSON, &m.UpdatedAt)
	if err == pgx.ErrNoRows {
		m.Map = map[string]string{}
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(mapJSON, &m.Map)
	return m, nil
}

func (s *PostgresStore) PutMapping(ctx context.Context, datasetID uuid.UUID, mapping map[string]string) (*Mapping, error) {
	mapJSON, _ := json.Marshal(mapping)
	m := &Mapping{DatasetID: datasetID, Map: mapping}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO atlas_mappings (dataset_id, map)
		VALUES ($1, $2)
		ON CONFLICT (dataset_id) DO UPDATE SET map = EXCLUDED.map, updated_at = now()
		RETURNING updated_at`,
		datasetID, mapJSON,
	).Scan(&m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// --- mapping templates ---

func (s *PostgresStore) ListMappingTemplates(ctx context.Context) ([]*MappingTemplate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT name, map, created_at FROM atlas_mapping_templates ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*MappingTemplate
	for rows.Next() {
		t := &MappingTemplate{}
		var mapJSON []byte
		if err := rows.Scan(&t.Name, &mapJSON, &t.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(mapJSON, &t.Map)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertMappingTemplate(ctx context.Context, t *MappingTemplate) error {
	mapJSON, _ := json.Marshal(t.Map)
	return s.pool.QueryRow(ctx, `
		INSERT INTO atlas_mapping_templates (name, map)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET map = EXCLUDED.map
		RETURNING created_at`,
		t.Name, mapJSON,
	).Scan(&t.CreatedAt)
}

func (s *PostgresStore) DeleteMappingTemplate(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM atlas_mapping_templates WHERE name = $1`, name)
	return err
}

// --- weight models (write-once) ---

func (s *PostgresStore) CreateWeightModel(ctx context.Context, m *engine.WeightModel) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal weight model: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO atlas_weight_models (id, name, method, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Name, string(m.Method), payload, m.CreatedAt)
	return err
}

func (s *PostgresStore) GetWeightModel(ctx context.Context, id uuid.UUID) (*engine.WeightModel, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM atlas_weight_models WHERE id = $1`, id).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	m := &engine.WeightModel{}
	if err := json.Unmarshal(payload, m); err != nil {
		return nil, fmt.Errorf("unmarshal weight model %s: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListWeightModels(ctx context.Context) ([]*engine.WeightModel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT payload FROM atlas_weight_models ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*engine.WeightModel
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		m := &engine.WeightModel{}
		if err := json.Unmarshal(payload, m); err != nil {
			return nil, fmt.Errorf("unmarshal weight model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- result sets (write-once) ---

func (s *PostgresStore) CreateResultSet(ctx context.Context, rs *engine.ResultSet) error {
	payload, err := json.Marshal(rs)
	if err != nil {
		return fmt.Errorf("marshal result set: %w", err)
	}
	datasetIDsJSON, _ := json.Marshal(rs.DatasetIDs)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO atlas_result_sets (id, name, dataset_ids, weight_model_id, row_count, failure_count, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rs.ID, rs.Name, datasetIDsJSON, rs.WeightModelID, len(rs.Rows), len(rs.Failures), payload, rs.CreatedAt)
	return err
}

func (s *PostgresStore) GetResultSet(ctx context.Context, id uuid.UUID) (*engine.ResultSet, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		SELECT payload FROM atlas_result_sets WHERE id = $1`, id).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rs := &engine.ResultSet{}
	if err := json.Unmarshal(payload, rs); err != nil {
		return nil, fmt.Errorf("unmarshal result set %s: %w", id, err)
	}
	return rs, nil
}

func (s *PostgresStore) ListResultSets(ctx context.Context) ([]*ResultSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, dataset_ids, weight_model_id, row_count, failure_count, created_at
		FROM atlas_result_sets ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ResultSummary
	for rows.Next() {
		r := &ResultSummary{}
		var datasetIDsJSON []byte
		if err := rows.Scan(&r.ID, &r.Name, &datasetIDsJSON, &r.WeightModelID, &r.RowCount, &r.FailureCount, &r.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(datasetIDsJSON, &r.DatasetIDs)
		out = append(out, r)
	}
	return out, rows.Err()
}
