package engine

import "math"

// StandardizationMethod selects how raw values are brought onto a common scale.
type StandardizationMethod string

const (
	StandardizeMinMax StandardizationMethod = "minmax"
	StandardizeZScore StandardizationMethod = "zscore"
)

// StandardizationParams are frozen at training time and reused verbatim in
// apply mode. Min/Max are populated for minmax, Mean/StdDev for zscore; all
// keyed by indicator key and observed after direction normalization.
type StandardizationParams struct {
	Method StandardizationMethod `json:"method"`
	Min    map[string]float64    `json:"min,omitempty"`
	Max    map[string]float64    `json:"max,omitempty"`
	Mean   map[string]float64    `json:"mean,omitempty"`
	StdDev map[string]float64    `json:"stddev,omitempty"`
}

// applyDirection negates negative-direction values so that after
// standardization higher is always better. Stored models freeze parameters
// under this convention.
func applyDirection(v float64, d Direction) float64 {
	if d == DirectionNegative {
		return -v
	}
	return v
}

// fitMinMax computes frozen {min,max} for one indicator column. Values must
// already be direction-normalized.
func fitMinMax(key string, values []float64) (min, max float64, err error) {
	if err := checkFitColumn(key, values); err != nil {
		return 0, 0, err
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, nil
}

// fitZScore computes frozen {mean,stddev} (sample stddev, n-1 denominator)
// for one indicator column.
func fitZScore(key string, values []float64) (mean, stddev float64, err error) {
	if err := checkFitColumn(key, values); err != nil {
		return 0, 0, err
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	stddev = math.Sqrt(ss / float64(len(values)-1))
	return mean, stddev, nil
}

func checkFitColumn(key string, values []float64) error {
	distinct := 0
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errf(ErrMissingValue, "indicator %s: missing or non-numeric value in training data", key)
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			distinct++
		}
	}
	if distinct < 2 {
		return errf(ErrInsufficientData, "indicator %s: fewer than 2 distinct values, scale is degenerate", key)
	}
	return nil
}

// applyMinMax maps a direction-normalized value into [0,1], clamped when the
// value falls outside the training range. A degenerate frozen range maps
// every value to the neutral 0.5 instead of dividing by zero.
func applyMinMax(v, min, max float64) float64 {
	if max == min {
		return 0.5
	}
	z := (v - min) / (max - min)
	if z < 0 {
		return 0
	}
	if z > 1 {
		return 1
	}
	return z
}

// applyZScore maps a direction-normalized value to a z-score, unclamped.
// A zero frozen stddev maps every value to the neutral 0.
func applyZScore(v, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (v - mean) / stddev
}

// standardize applies the frozen params to one value of one indicator.
func (p StandardizationParams) standardize(key string, v float64) float64 {
	switch p.Method {
	case StandardizeMinMax:
		return applyMinMax(v, p.Min[key], p.Max[key])
	default:
		return applyZScore(v, p.Mean[key], p.StdDev[key])
	}
}

// fitStandardization freezes parameters for every indicator column of a
// direction-normalized training matrix x (rows = observations, column order
// follows keys).
func fitStandardization(method StandardizationMethod, keys []string, x [][]float64) (StandardizationParams, error) {
	p := StandardizationParams{Method: method}
	switch method {
	case StandardizeMinMax:
		p.Min = make(map[string]float64, len(keys))
		p.Max = make(map[string]float64, len(keys))
	case StandardizeZScore:
		p.Mean = make(map[string]float64, len(keys))
		p.StdDev = make(map[string]float64, len(keys))
	default:
		return p, errf(ErrInvalidInput, "unknown standardization method %q", method)
	}
	col := make([]float64, len(x))
	for j, key := range keys {
		for i := range x {
			col[i] = x[i][j]
		}
		switch method {
		case StandardizeMinMax:
			min, max, err := fitMinMax(key, col)
			if err != nil {
				return p, err
			}
			p.Min[key], p.Max[key] = min, max
		case StandardizeZScore:
			mean, stddev, err := fitZScore(key, col)
			if err != nil {
				return p, err
			}
			p.Mean[key], p.StdDev[key] = mean, stddev
		}
	}
	return p, nil
}

// standardizeMatrix applies frozen params to every cell of a
// direction-normalized matrix, returning a new matrix.
func (p StandardizationParams) standardizeMatrix(keys []string, x [][]float64) [][]float64 {
	z := make([][]float64, len(x))
	for i := range x {
		z[i] = make([]float64, len(keys))
		for j, key := range keys {
			z[i][j] = p.standardize(key, x[i][j])
		}
	}
	return z
}
