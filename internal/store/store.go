package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Atlas/internal/engine"
)

// SourceType records how a dataset entered the system.
type SourceType string

const (
	SourceFile   SourceType = "file"
	SourcePaste  SourceType = "paste"
	SourceManual SourceType = "manual"
	SourceSample SourceType = "sample"
)

// Dataset is one imported entity x year table. Rows hold the normalized
// string cells keyed by column name.
type Dataset struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	SourceType SourceType          `json:"source_type"`
	IsSample   bool                `json:"is_sample"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows,omitempty"`
	RowCount   int                 `json:"row_count"`
	CreatedAt  time.Time           `json:"created_at"`
}

// Indicator is one catalog entry. Key is unique; edits after a model has
// been trained do not rewrite the model's frozen parameters.
type Indicator struct {
	Key           string           `json:"key"`
	Name          string           `json:"name"`
	Dimension2Key string           `json:"dimension2_key"`
	Direction     engine.Direction `json:"direction"`
	Unit          string           `json:"unit,omitempty"`
}

// Mapping binds a dataset's columns to indicator keys.
type Mapping struct {
	DatasetID uuid.UUID         `json:"dataset_id"`
	Map       map[string]string `json:"map"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MappingTemplate is a reusable named mapping.
type MappingTemplate struct {
	Name      string            `json:"name"`
	Map       map[string]string `json:"map"`
	CreatedAt time.Time         `json:"created_at"`
}

// ResultSummary lists a stored result set without its rows.
type ResultSummary struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	DatasetIDs    []string  `json:"dataset_ids"`
	WeightModelID uuid.UUID `json:"weight_model_id"`
	RowCount      int       `json:"row_count"`
	FailureCount  int       `json:"failure_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store persists datasets, the indicator catalog, mappings, trained weight
// models and result sets. Weight models and result sets are write-once;
// retraining or recomputing always creates a new record.
type Store interface {
	CreateDataset(ctx context.Context, d *Dataset) error
	GetDataset(ctx context.Context, id uuid.UUID) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]*Dataset, error)
	UpdateDatasetName(ctx context.Context, id uuid.UUID, name string) error
	ReplaceDatasetRows(ctx context.Context, id uuid.UUID, columns []string, rows []map[string]string) error

	UpsertIndicator(ctx context.Context, ind *Indicator) error
	ListIndicators(ctx context.Context) ([]*Indicator, error)
	DeleteIndicator(ctx context.Context, key string) error

	GetMapping(ctx context.Context, datasetID uuid.UUID) (*Mapping, error)
	PutMapping(ctx context.Context, datasetID uuid.UUID, m map[string]string) (*Mapping, error)

	ListMappingTemplates(ctx context.Context) ([]*MappingTemplate, error)
	UpsertMappingTemplate(ctx context.Context, t *MappingTemplate) error
	DeleteMappingTemplate(ctx context.Context, name string) error

	CreateWeightModel(ctx context.Context, m *engine.WeightModel) error
	GetWeightModel(ctx context.Context, id uuid.UUID) (*engine.WeightModel, error)
	ListWeightModels(ctx context.Context) ([]*engine.WeightModel, error)

	CreateResultSet(ctx context.Context, rs *engine.ResultSet) error
	GetResultSet(ctx context.Context, id uuid.UUID) (*engine.ResultSet, error)
	ListResultSets(ctx context.Context) ([]*ResultSummary, error)

	Close() error
}
