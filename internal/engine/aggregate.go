package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ComputeIndex applies a trained model to the given datasets. Row-level
// resolution failures are accumulated on the result set; only structural
// problems (unknown model indicators, unreadable datasets) abort the run.
// The model is read-only, so concurrent runs against it are safe.
func (e *Engine) ComputeIndex(ctx context.Context, model *WeightModel, name string, datasetIDs []string) (*ResultSet, error) {
	if err := model.Validate(); err != nil {
		return nil, errf(ErrInvalidInput, "weight model is invalid: %v", err)
	}
	if len(datasetIDs) == 0 {
		return nil, errf(ErrInvalidInput, "no datasets given")
	}
	byKey, err := e.resolveIndicators(ctx, model.IndicatorKeys)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{
		ID:            uuid.New(),
		Name:          name,
		DatasetIDs:    append([]string(nil), datasetIDs...),
		WeightModelID: model.ID,
		CreatedAt:     time.Now().UTC(),
	}

	for _, datasetID := range datasetIDs {
		columns, rows, err := e.datasets.ReadRows(ctx, datasetID)
		if err != nil {
			return nil, err
		}
		mapping, err := e.mappings.Mapping(ctx, datasetID)
		if err != nil {
			return nil, err
		}
		colFor, mapErr := resolveMapping(datasetID, model.IndicatorKeys, mapping, columns)
		if mapErr != nil {
			// the whole dataset is unresolvable; fail its rows, not the run
			for _, row := range rows {
				rs.Failures = append(rs.Failures, rowFailure(row, "", mapErr))
			}
			continue
		}
		for _, row := range rows {
			result, key, err := e.scoreRow(model, byKey, colFor, row)
			if err != nil {
				rs.Failures = append(rs.Failures, rowFailure(row, key, err))
				continue
			}
			rs.Rows = append(rs.Rows, result)
		}
	}

	if len(rs.Failures) > 0 {
		e.logger.Warn("aggregation skipped rows",
			"skipped", len(rs.Failures), "scored", len(rs.Rows), "model", model.ID)
	}
	return rs, nil
}

// scoreRow resolves, standardizes and scores one observation. On failure it
// returns the offending indicator key alongside the error.
func (e *Engine) scoreRow(model *WeightModel, byKey map[string]Indicator, colFor map[string]string, row Row) (ResultRow, string, error) {
	raw := make(map[string]float64, len(model.IndicatorKeys))
	zrow := make([]float64, len(model.IndicatorKeys))
	for j, key := range model.IndicatorKeys {
		v, err := parseCell(row, colFor[key])
		if err != nil {
			return ResultRow{}, key, err
		}
		raw[key] = v
		zrow[j] = model.Standardization.standardize(key, applyDirection(v, byKey[key].Direction))
	}

	score, subScores := weightedScores(model, byKey, zrow)

	result := ResultRow{
		Entity:    row.Entity,
		Year:      row.Year,
		Score:     score,
		Index0100: model.indexScale(score),
		SubScore:  subScores,
		SubIndex:  make(map[string]float64, len(subScores)),
		Raw:       raw,
	}
	for _, dim := range model.dimensionKeys() {
		result.SubIndex[dim] = model.subIndexScale(dim, subScores[dim])
	}
	return result, "", nil
}

// indexScale maps a raw weighted score onto 0-100. Min-max standardized
// scores already live in [0,1] and scale directly; unbounded z-score models
// map through the frozen training range instead, clamped, so the result
// stays on the 0-100 scale for any input population.
func (m *WeightModel) indexScale(score float64) float64 {
	if m.Standardization.Method == StandardizeMinMax {
		return clamp0100(100 * score)
	}
	return scaleToRange(score, m.Scaling.ScoreMin, m.Scaling.ScoreMax)
}

func (m *WeightModel) subIndexScale(dim string, v float64) float64 {
	if m.Standardization.Method == StandardizeMinMax {
		return clamp0100(100 * v)
	}
	return scaleToRange(v, m.Scaling.SubScoreMin[dim], m.Scaling.SubScoreMax[dim])
}

// scaleToRange maps v linearly from [min,max] onto [0,100], clamped. A
// degenerate range maps to the neutral midpoint.
func scaleToRange(v, min, max float64) float64 {
	if max == min {
		return 50
	}
	return clamp0100((v - min) / (max - min) * 100)
}

func clamp0100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func rowFailure(row Row, key string, err error) RowFailure {
	code := "error"
	var engineErr *Error
	if errors.As(err, &engineErr) {
		code = engineErr.Code
	}
	return RowFailure{
		Entity:       row.Entity,
		Year:         row.Year,
		IndicatorKey: key,
		Code:         code,
		Reason:       err.Error(),
	}
}
