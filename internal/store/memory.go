package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
)

// MemoryStore keeps everything in process memory. It backs tests and the
// zero-setup mode where no database URL is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	datasets  map[uuid.UUID]*Dataset
	catalog   map[string]*Indicator
	mappings  map[uuid.UUID]*Mapping
	templates map[string]*MappingTemplate
	models    map[uuid.UUID]*engine.WeightModel
	results   map[uuid.UUID]*engine.ResultSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		datasets:  make(map[uuid.UUID]*Dataset),
		catalog:   make(map[string]*Indicator),
		mappings:  make(map[uuid.UUID]*Mapping),
		templates: make(map[string]*MappingTemplate),
		models:    make(map[uuid.UUID]*engine.WeightModel),
		results:   make(map[uuid.UUID]*engine.ResultSet),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateDataset(_ context.Context, d *Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	cp := *d
	s.datasets[d.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDataset(_ context.Context, id uuid.UUID) (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) ListDatasets(_ context.Context) ([]*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Dataset, 0, len(s.datasets))
	for _, d := range s.datasets {
		cp := *d
		cp.Rows = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) UpdateDatasetName(_ context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.datasets[id]
	if !ok {
		return fmt.Errorf("dataset %s not found", id)
	}
	d.Name = name
	return nil
}

func (s *MemoryStore) ReplaceDatasetRows(_ context.Context, id uuid.UUID, columns []string, rows []map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.datasets[id]
	if !ok {
		return fmt.Errorf("dataset %s not found", id)
	}
	d.Columns = columns
	d.Rows = rows
	d.RowCount = len(rows)
	return nil
}

func (s *MemoryStore) UpsertIndicator(_ context.Context, ind *Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ind
	s.catalog[ind.Key] = &cp
	return nil
}

func (s *MemoryStore) ListIndicators(_ context.Context) ([]*Indicator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Indicator, 0, len(s.catalog))
	for _, ind := range s.catalog {
		cp := *ind
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) DeleteIndicator(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.catalog, key)
	return nil
}

func (s *MemoryStore) GetMapping(_ context.Context, datasetID uuid.UUID) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mappings[datasetID]
	if !ok {
		return &Mapping{DatasetID: datasetID, Map: map[string]string{}}, nil
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) PutMapping(_ context.Context, datasetID uuid.UUID, mapping map[string]string) (*Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &Mapping{DatasetID: datasetID, Map: mapping, UpdatedAt: time.Now().UTC()}
	s.mappings[datasetID] = m
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListMappingTemplates(_ context.Context) ([]*MappingTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*MappingTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpsertMappingTemplate(_ context.Context, t *MappingTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.templates[t.Name]; ok {
		t.CreatedAt = existing.CreatedAt
	} else if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	cp := *t
	s.templates[t.Name] = &cp
	return nil
}

func (s *MemoryStore) DeleteMappingTemplate(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, name)
	return nil
}

func (s *MemoryStore) CreateWeightModel(_ context.Context, m *engine.WeightModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[m.ID]; ok {
		return fmt.Errorf("weight model %s already exists", m.ID)
	}
	s.models[m.ID] = m
	return nil
}

func (s *MemoryStore) GetWeightModel(_ context.Context, id uuid.UUID) (*engine.WeightModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (s *MemoryStore) ListWeightModels(_ context.Context) ([]*engine.WeightModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*engine.WeightModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateResultSet(_ context.Context, rs *engine.ResultSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[rs.ID]; ok {
		return fmt.Errorf("result set %s already exists", rs.ID)
	}
	s.results[rs.ID] = rs
	return nil
}

func (s *MemoryStore) GetResultSet(_ context.Context, id uuid.UUID) (*engine.ResultSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.results[id]
	if !ok {
		return nil, nil
	}
	return rs, nil
}

func (s *MemoryStore) ListResultSets(_ context.Context) ([]*ResultSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ResultSummary, 0, len(s.results))
	for _, rs := range s.results {
		out = append(out, &ResultSummary{
			ID:            rs.ID,
			Name:          rs.Name,
			DatasetIDs:    rs.DatasetIDs,
			WeightModelID: rs.WeightModelID,
			RowCount:      len(rs.Rows),
			FailureCount:  len(rs.Failures),
			CreatedAt:     rs.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
