package engine

import "context"

// Direction says whether higher raw values are good for an indicator.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
)

// Indicator is one entry of the controlled vocabulary. Dimension2Key groups
// indicators into a named sub-index.
type Indicator struct {
	Key           string    `json:"key"`
	Name          string    `json:"name"`
	Dimension2Key string    `json:"dimension2_key"`
	Direction     Direction `json:"direction"`
	Unit          string    `json:"unit,omitempty"`
}

// Row is one observation of a dataset, keyed by (entity, year). Cells hold
// the raw column values as imported; the engine parses them on demand.
type Row struct {
	Entity string
	Year   int
	Cells  map[string]string
}

// DatasetReader supplies the rectangular table for a dataset.
type DatasetReader interface {
	ReadRows(ctx context.Context, datasetID string) (columns []string, rows []Row, err error)
}

// MappingReader supplies the indicator-key -> column-name mapping for a dataset.
type MappingReader interface {
	Mapping(ctx context.Context, datasetID string) (map[string]string, error)
}

// CatalogReader supplies the indicator catalog.
type CatalogReader interface {
	Indicators(ctx context.Context) ([]Indicator, error)
}
