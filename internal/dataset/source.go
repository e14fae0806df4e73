package dataset

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
	"github.com/MikeSquared-Agency/Atlas/internal/store"
)

// Source adapts the persistence layer to the reader interfaces the engine
// consumes. Dataset ids cross the boundary as strings so the engine stays
// free of storage types.
type Source struct {
	store store.Store
}

func NewSource(s store.Store) *Source {
	return &Source{store: s}
}

func (s *Source) ReadRows(ctx context.Context, datasetID string) ([]string, []engine.Row, error) {
	id, err := uuid.Parse(datasetID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid dataset id %q: %w", datasetID, err)
	}
	d, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load dataset %s: %w", datasetID, err)
	}
	if d == nil {
		return nil, nil, fmt.Errorf("dataset %s not found", datasetID)
	}

	rows := make([]engine.Row, 0, len(d.Rows))
	for i, raw := range d.Rows {
		year, err := parseYear(raw[ColumnYear])
		if err != nil {
			return nil, nil, fmt.Errorf("dataset %s row %d: %w", datasetID, i+1, err)
		}
		cells := make(map[string]string, len(raw))
		for col, v := range raw {
			if col == ColumnEntity || col == ColumnYear {
				continue
			}
			cells[col] = v
		}
		rows = append(rows, engine.Row{
			Entity: raw[ColumnEntity],
			Year:   year,
			Cells:  cells,
		})
	}
	return d.Columns, rows, nil
}

func (s *Source) Mapping(ctx context.Context, datasetID string) (map[string]string, error) {
	id, err := uuid.Parse(datasetID)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset id %q: %w", datasetID, err)
	}
	m, err := s.store.GetMapping(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load mapping for %s: %w", datasetID, err)
	}
	return m.Map, nil
}

func (s *Source) Indicators(ctx context.Context) ([]engine.Indicator, error) {
	list, err := s.store.ListIndicators(ctx)
	if err != nil {
		return nil, fmt.Errorf("load indicator catalog: %w", err)
	}
	out := make([]engine.Indicator, 0, len(list))
	for _, ind := range list {
		out = append(out, engine.Indicator{
			Key:           ind.Key,
			Name:          ind.Name,
			Dimension2Key: ind.Dimension2Key,
			Direction:     ind.Direction,
			Unit:          ind.Unit,
		})
	}
	return out, nil
}
