package engine

// ConsistencyThreshold is the conventional acceptable-consistency bound on
// the CR diagnostic. Models over the threshold are flagged, never rejected.
const ConsistencyThreshold = 0.10

// saatyRI is the standard random-index table for n=1..15. Larger matrices
// fall back to the n=15 value.
var saatyRI = []float64{0, 0, 0, 0.58, 0.90, 1.12, 1.24, 1.32, 1.41, 1.45, 1.49, 1.51, 1.48, 1.56, 1.57, 1.59}

// PairwiseComparison asserts the relative importance of indicator I over J on
// the Saaty 1-9 scale (reciprocals 1/9-1 expressing the inverse judgment).
type PairwiseComparison struct {
	I     string  `json:"i"`
	J     string  `json:"j"`
	Value float64 `json:"value"`
}

// AHPProvenance is the diagnostic payload of an AHP-trained model.
type AHPProvenance struct {
	Matrix     [][]float64 `json:"matrix"`
	Priority   []float64   `json:"priority"`
	LambdaMax  float64     `json:"lambda_max"`
	CI         float64     `json:"ci"`
	CR         float64     `json:"cr"`
	Consistent bool        `json:"consistent"`
}

// buildPairwiseMatrix assembles the n x n reciprocal judgment matrix from
// caller-supplied pairs. The diagonal is 1, M[j][i] = 1/M[i][j] by
// construction, and missing pairs default to 1 (equal importance).
func buildPairwiseMatrix(keys []string, pairs []PairwiseComparison) ([][]float64, error) {
	n := len(keys)
	idx := make(map[string]int, n)
	for i, k := range keys {
		idx[k] = i
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = 1
		}
	}

	for _, pc := range pairs {
		i, ok := idx[pc.I]
		if !ok {
			return nil, errf(ErrInvalidInput, "pairwise comparison references unknown indicator %q", pc.I)
		}
		j, ok := idx[pc.J]
		if !ok {
			return nil, errf(ErrInvalidInput, "pairwise comparison references unknown indicator %q", pc.J)
		}
		if i == j {
			return nil, errf(ErrInvalidInput, "pairwise comparison of indicator %q with itself", pc.I)
		}
		if pc.Value < 1.0/9.0 || pc.Value > 9 {
			return nil, errf(ErrInvalidInput, "pairwise value %g for (%s,%s) outside the 1/9..9 scale", pc.Value, pc.I, pc.J)
		}
		m[i][j] = pc.Value
		m[j][i] = 1 / pc.Value
	}
	return m, nil
}

// ahpWeights extracts the priority vector from a reciprocal judgment matrix
// via its dominant eigenvector (power iteration; documented choice over the
// geometric-mean approximation) and computes the Saaty consistency
// diagnostics.
func ahpWeights(m [][]float64) ([]float64, *AHPProvenance, error) {
	n := len(m)
	if n < 1 {
		return nil, nil, errf(ErrInvalidInput, "AHP needs at least one indicator")
	}

	var (
		lambdaMax float64
		priority  []float64
	)
	if n == 1 {
		lambdaMax, priority = 1, []float64{1}
	} else {
		var err error
		lambdaMax, priority, err = powerIteration(m)
		if err != nil {
			return nil, nil, err
		}
	}

	// consistency is trivial for n <= 2
	var ci, cr float64
	if n > 2 {
		ci = (lambdaMax - float64(n)) / float64(n-1)
		ri := saatyRI[len(saatyRI)-1]
		if n < len(saatyRI) {
			ri = saatyRI[n]
		}
		if ri > 0 {
			cr = ci / ri
		}
	}

	return priority, &AHPProvenance{
		Matrix:     m,
		Priority:   append([]float64(nil), priority...),
		LambdaMax:  lambdaMax,
		CI:         ci,
		CR:         cr,
		Consistent: cr < ConsistencyThreshold,
	}, nil
}
