package engine

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Method identifies the weighting scheme a model was trained with.
type Method string

const (
	MethodEntropy Method = "entropy"
	MethodPCA     Method = "pca"
	MethodAHP     Method = "ahp"
)

const weightTolerance = 1e-9

// ScoreScaling freezes the training-population score ranges. Models with
// unbounded z-score standardization map their raw weighted scores through
// these ranges to land on the 0-100 scale.
type ScoreScaling struct {
	ScoreMin    float64            `json:"score_min"`
	ScoreMax    float64            `json:"score_max"`
	SubScoreMin map[string]float64 `json:"sub_score_min"`
	SubScoreMax map[string]float64 `json:"sub_score_max"`
}

// WeightModel is the immutable output of one training run. Training always
// produces a fresh id; weights are never edited in place.
type WeightModel struct {
	ID                  uuid.UUID             `json:"id"`
	Name                string                `json:"name"`
	Method              Method                `json:"method"`
	IndicatorKeys       []string              `json:"indicator_keys"`
	Weights             map[string]float64    `json:"weights"`
	Dimension2Weights   map[string]float64    `json:"dimension2_weights"`
	Standardization     StandardizationParams `json:"standardization"`
	Scaling             ScoreScaling          `json:"scaling"`
	TrainedOnDatasetIDs []string              `json:"trained_on_dataset_ids"`

	// Method-specific provenance; exactly one is set, selected by Method.
	PCA *PCAProvenance `json:"pca,omitempty"`
	AHP *AHPProvenance `json:"ahp,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the structural invariants every trained model must hold.
func (m *WeightModel) Validate() error {
	if len(m.IndicatorKeys) == 0 {
		return fmt.Errorf("model has no indicators")
	}
	var sum float64
	for _, key := range m.IndicatorKeys {
		w, ok := m.Weights[key]
		if !ok {
			return fmt.Errorf("indicator %s has no weight", key)
		}
		if w < 0 {
			return fmt.Errorf("indicator %s has negative weight %g", key, w)
		}
		sum += w
	}
	if len(m.Weights) != len(m.IndicatorKeys) {
		return fmt.Errorf("weights reference keys outside the indicator set")
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("indicator weights sum to %.12f, want 1", sum)
	}
	var dimSum float64
	for _, w := range m.Dimension2Weights {
		dimSum += w
	}
	if math.Abs(dimSum-1) > weightTolerance {
		return fmt.Errorf("dimension weights sum to %.12f, want 1", dimSum)
	}
	return nil
}

// dimensionKeys returns the model's dimension keys in sorted order so every
// iteration over dimensions is deterministic.
func (m *WeightModel) dimensionKeys() []string {
	keys := make([]string, 0, len(m.Dimension2Weights))
	for k := range m.Dimension2Weights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// dimensionFor resolves an indicator's second-level dimension, falling back
// to "default" for uncatalogued grouping (matches import behavior).
func dimensionFor(ind Indicator) string {
	if ind.Dimension2Key == "" {
		return "default"
	}
	return ind.Dimension2Key
}

// buildDimensionWeights aggregates per-indicator weights into per-dimension
// weights; each dimension's weight is the sum of its members'.
func buildDimensionWeights(keys []string, weights map[string]float64, byKey map[string]Indicator) map[string]float64 {
	dims := make(map[string]float64)
	for _, key := range keys {
		dims[dimensionFor(byKey[key])] += weights[key]
	}
	return dims
}

// ResultRow is one scored (entity, year) observation.
type ResultRow struct {
	Entity    string             `json:"entity"`
	Year      int                `json:"year"`
	Score     float64            `json:"score_raw"`
	Index0100 float64            `json:"index_0_100"`
	SubScore  map[string]float64 `json:"sub_score_raw"`
	SubIndex  map[string]float64 `json:"subindex_0_100"`
	// Raw passes through the mapped input values for traceability.
	Raw map[string]float64 `json:"raw"`
}

// ResultSet is the immutable output of one aggregation run. Skipped rows are
// surfaced in Failures rather than aborting the run.
type ResultSet struct {
	ID            uuid.UUID    `json:"id"`
	Name          string       `json:"name"`
	DatasetIDs    []string     `json:"dataset_ids"`
	WeightModelID uuid.UUID    `json:"weight_model_id"`
	Rows          []ResultRow  `json:"rows"`
	Failures      []RowFailure `json:"failures,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
