package engine

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Engine trains weight models and applies them to datasets. It performs no
// I/O of its own: datasets, mappings and the indicator catalog come in
// through the injected readers, and every call is a pure function of those
// inputs plus the request.
type Engine struct {
	datasets DatasetReader
	mappings MappingReader
	catalog  CatalogReader
	logger   *slog.Logger
}

// New creates an Engine over the given collaborators.
func New(datasets DatasetReader, mappings MappingReader, catalog CatalogReader, logger *slog.Logger) *Engine {
	return &Engine{datasets: datasets, mappings: mappings, catalog: catalog, logger: logger}
}

// TrainRequest names the indicators to weight and the datasets whose rows
// form the training population.
type TrainRequest struct {
	Name          string
	IndicatorKeys []string
	DatasetIDs    []string
}

// TrainEntropy derives weights from the information entropy of min-max
// standardized training data.
func (e *Engine) TrainEntropy(ctx context.Context, req TrainRequest) (*WeightModel, error) {
	indicators, x, err := e.trainingMatrix(ctx, req)
	if err != nil {
		return nil, err
	}
	params, err := fitStandardization(StandardizeMinMax, req.IndicatorKeys, x)
	if err != nil {
		return nil, err
	}
	z := params.standardizeMatrix(req.IndicatorKeys, x)
	w, err := entropyWeights(req.IndicatorKeys, z)
	if err != nil {
		return nil, err
	}
	return e.finishModel(req, MethodEntropy, indicators, params, z, w, nil, nil)
}

// TrainPCA derives weights from principal-component loadings of z-score
// standardized training data. A non-positive threshold selects the default.
func (e *Engine) TrainPCA(ctx context.Context, req TrainRequest, cumVarThreshold float64) (*WeightModel, error) {
	if cumVarThreshold == 0 {
		cumVarThreshold = DefaultCumVarThreshold
	}
	indicators, x, err := e.trainingMatrix(ctx, req)
	if err != nil {
		return nil, err
	}
	params, err := fitStandardization(StandardizeZScore, req.IndicatorKeys, x)
	if err != nil {
		return nil, err
	}
	z := params.standardizeMatrix(req.IndicatorKeys, x)
	w, prov, err := pcaWeights(req.IndicatorKeys, z, cumVarThreshold)
	if err != nil {
		return nil, err
	}
	return e.finishModel(req, MethodPCA, indicators, params, z, w, prov, nil)
}

// TrainAHP derives weights from a pairwise judgment matrix supplied as
// reciprocal pairs; missing pairs default to equal importance. The training
// datasets only freeze the standardization parameters. Inconsistent
// judgments (CR over the threshold) are flagged, not rejected.
func (e *Engine) TrainAHP(ctx context.Context, req TrainRequest, pairs []PairwiseComparison) (*WeightModel, error) {
	indicators, x, err := e.trainingMatrix(ctx, req)
	if err != nil {
		return nil, err
	}
	matrix, err := buildPairwiseMatrix(req.IndicatorKeys, pairs)
	if err != nil {
		return nil, err
	}
	w, prov, err := ahpWeights(matrix)
	if err != nil {
		return nil, err
	}
	if !prov.Consistent {
		e.logger.Warn("AHP judgment matrix over consistency threshold",
			"cr", prov.CR, "threshold", ConsistencyThreshold, "indicators", len(req.IndicatorKeys))
	}
	params, err := fitStandardization(StandardizeZScore, req.IndicatorKeys, x)
	if err != nil {
		return nil, err
	}
	z := params.standardizeMatrix(req.IndicatorKeys, x)
	return e.finishModel(req, MethodAHP, indicators, params, z, w, nil, prov)
}

// finishModel assembles and validates the immutable model record, freezing
// the training score ranges for later apply-mode scaling.
func (e *Engine) finishModel(req TrainRequest, method Method, byKey map[string]Indicator,
	params StandardizationParams, z [][]float64, w []float64,
	pca *PCAProvenance, ahp *AHPProvenance) (*WeightModel, error) {

	weights := make(map[string]float64, len(req.IndicatorKeys))
	for j, key := range req.IndicatorKeys {
		weights[key] = w[j]
	}

	model := &WeightModel{
		ID:                  uuid.New(),
		Name:                req.Name,
		Method:              method,
		IndicatorKeys:       append([]string(nil), req.IndicatorKeys...),
		Weights:             weights,
		Dimension2Weights:   buildDimensionWeights(req.IndicatorKeys, weights, byKey),
		Standardization:     params,
		TrainedOnDatasetIDs: append([]string(nil), req.DatasetIDs...),
		PCA:                 pca,
		AHP:                 ahp,
		CreatedAt:           time.Now().UTC(),
	}
	model.Scaling = trainingScaling(model, byKey, z)

	if err := model.Validate(); err != nil {
		return nil, errf(ErrInvalidInput, "trained model failed validation: %v", err)
	}
	e.logger.Info("trained weight model",
		"method", method, "indicators", len(req.IndicatorKeys), "datasets", len(req.DatasetIDs))
	return model, nil
}

// trainingScaling records the raw score ranges the training population spans.
func trainingScaling(m *WeightModel, byKey map[string]Indicator, z [][]float64) ScoreScaling {
	s := ScoreScaling{
		SubScoreMin: make(map[string]float64),
		SubScoreMax: make(map[string]float64),
	}
	for i := range z {
		score, subScores := weightedScores(m, byKey, z[i])
		if i == 0 {
			s.ScoreMin, s.ScoreMax = score, score
		}
		if score < s.ScoreMin {
			s.ScoreMin = score
		}
		if score > s.ScoreMax {
			s.ScoreMax = score
		}
		for dim, v := range subScores {
			if i == 0 {
				s.SubScoreMin[dim], s.SubScoreMax[dim] = v, v
			}
			if v < s.SubScoreMin[dim] {
				s.SubScoreMin[dim] = v
			}
			if v > s.SubScoreMax[dim] {
				s.SubScoreMax[dim] = v
			}
		}
	}
	return s
}

// weightedScores computes the composite raw score and the within-dimension
// renormalized sub-scores for one standardized row.
func weightedScores(m *WeightModel, byKey map[string]Indicator, zrow []float64) (float64, map[string]float64) {
	var score float64
	subScores := make(map[string]float64, len(m.Dimension2Weights))
	for j, key := range m.IndicatorKeys {
		w := m.Weights[key]
		score += w * zrow[j]
		dim := dimensionFor(byKey[key])
		if dw := m.Dimension2Weights[dim]; dw > 0 {
			subScores[dim] += w * zrow[j] / dw
		}
	}
	return score, subScores
}

// resolveIndicators maps the requested keys onto catalog entries, failing on
// unknown keys.
func (e *Engine) resolveIndicators(ctx context.Context, keys []string) (map[string]Indicator, error) {
	if len(keys) == 0 {
		return nil, errf(ErrInvalidInput, "no indicator keys given")
	}
	catalog, err := e.catalog.Indicators(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]Indicator, len(catalog))
	for _, ind := range catalog {
		byKey[ind.Key] = ind
	}
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := byKey[key]; !ok {
			return nil, errf(ErrInvalidInput, "indicator %q is not in the catalog", key)
		}
		if _, dup := seen[key]; dup {
			return nil, errf(ErrInvalidInput, "indicator %q requested twice", key)
		}
		seen[key] = struct{}{}
	}
	return byKey, nil
}

// trainingMatrix assembles the direction-normalized raw matrix over every
// row of the requested datasets. Training is strict: any unmapped indicator
// or missing value is fatal to the call.
func (e *Engine) trainingMatrix(ctx context.Context, req TrainRequest) (map[string]Indicator, [][]float64, error) {
	byKey, err := e.resolveIndicators(ctx, req.IndicatorKeys)
	if err != nil {
		return nil, nil, err
	}
	if len(req.DatasetIDs) == 0 {
		return nil, nil, errf(ErrInvalidInput, "no training datasets given")
	}

	var x [][]float64
	for _, datasetID := range req.DatasetIDs {
		columns, rows, err := e.datasets.ReadRows(ctx, datasetID)
		if err != nil {
			return nil, nil, err
		}
		mapping, err := e.mappings.Mapping(ctx, datasetID)
		if err != nil {
			return nil, nil, err
		}
		colFor, err := resolveMapping(datasetID, req.IndicatorKeys, mapping, columns)
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			vals := make([]float64, len(req.IndicatorKeys))
			for j, key := range req.IndicatorKeys {
				v, err := parseCell(row, colFor[key])
				if err != nil {
					return nil, nil, errf(ErrMissingValue,
						"dataset %s row (%s,%d) column %s: %v", datasetID, row.Entity, row.Year, colFor[key], err)
				}
				vals[j] = applyDirection(v, byKey[key].Direction)
			}
			x = append(x, vals)
		}
	}
	if len(x) == 0 {
		return nil, nil, errf(ErrInsufficientData, "training datasets contain no rows")
	}
	return byKey, x, nil
}

// resolveMapping checks that every indicator maps to a present column.
func resolveMapping(datasetID string, keys []string, mapping map[string]string, columns []string) (map[string]string, error) {
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	colFor := make(map[string]string, len(keys))
	for _, key := range keys {
		col, ok := mapping[key]
		if !ok || col == "" {
			return nil, errf(ErrMissingMapping, "dataset %s has no column mapped for indicator %s", datasetID, key)
		}
		if _, ok := present[col]; !ok {
			return nil, errf(ErrMissingMapping, "dataset %s is missing column %s (mapped for indicator %s)", datasetID, col, key)
		}
		colFor[key] = col
	}
	return colFor, nil
}

func parseCell(row Row, column string) (float64, error) {
	raw := strings.TrimSpace(row.Cells[column])
	if raw == "" {
		return 0, errf(ErrMissingValue, "value is empty")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errf(ErrMissingValue, "value %q is not numeric", raw)
	}
	return v, nil
}
