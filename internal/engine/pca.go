package engine

import "math"

// DefaultCumVarThreshold is the cumulative explained-variance target when the
// caller does not supply one.
const DefaultCumVarThreshold = 0.85

// PCAProvenance is the diagnostic payload of a PCA-trained model.
type PCAProvenance struct {
	// Loadings holds the retained eigenvectors, one row per component, in
	// indicator order.
	Loadings           [][]float64 `json:"loadings"`
	Eigenvalues        []float64   `json:"eigenvalues"`
	CumulativeVariance float64     `json:"cumulative_variance"`
	ComponentsRetained int         `json:"components_retained"`
	Threshold          float64     `json:"threshold"`
}

// pcaWeights derives indicator weights from principal-component loadings of a
// z-score standardized matrix. Components are retained until cumulative
// explained variance reaches the threshold; each indicator's weight is the
// eigenvalue-scaled sum of its absolute loadings over retained components.
func pcaWeights(keys []string, z [][]float64, threshold float64) ([]float64, *PCAProvenance, error) {
	n := len(z)
	p := len(keys)
	if n <= p {
		return nil, nil, errf(ErrInsufficientObservations,
			"PCA needs more observations than indicators: %d observations for %d indicators", n, p)
	}
	if threshold <= 0 || threshold > 1 {
		return nil, nil, errf(ErrInvalidInput, "cumulative variance threshold must be in (0,1], got %g", threshold)
	}

	cov := sampleCovariance(z)
	eigvals, eigvecs, err := jacobiEigen(cov)
	if err != nil {
		return nil, nil, err
	}

	// tiny negative eigenvalues are numerical noise
	var total float64
	for c := range eigvals {
		if eigvals[c] < 0 {
			eigvals[c] = 0
		}
		total += eigvals[c]
	}
	if total <= 0 {
		return nil, nil, errf(ErrDegenerateIndicator, "covariance matrix has zero total variance")
	}

	// smallest k with cumulative explained variance >= threshold
	k := p
	var cum float64
	for c := 0; c < p; c++ {
		cum += eigvals[c] / total
		if cum >= threshold {
			k = c + 1
			break
		}
	}
	var cumulative float64
	for c := 0; c < k; c++ {
		cumulative += eigvals[c] / total
	}

	// Sign convention: within each retained component, the loading with the
	// largest magnitude is forced positive so re-training reproduces the
	// exact same model.
	loadings := make([][]float64, k)
	for c := 0; c < k; c++ {
		col := make([]float64, p)
		maxAbs, maxIdx := 0.0, 0
		for i := 0; i < p; i++ {
			col[i] = eigvecs[i][c]
			if a := math.Abs(col[i]); a > maxAbs {
				maxAbs, maxIdx = a, i
			}
		}
		if col[maxIdx] < 0 {
			for i := range col {
				col[i] = -col[i]
			}
		}
		loadings[c] = col
	}

	raw := make([]float64, p)
	var rawSum float64
	for j := 0; j < p; j++ {
		for c := 0; c < k; c++ {
			raw[j] += math.Abs(loadings[c][j]) * eigvals[c]
		}
		rawSum += raw[j]
	}
	if rawSum <= 0 {
		return nil, nil, errf(ErrDegenerateIndicator, "PCA loadings produced an all-zero weight vector")
	}

	w := make([]float64, p)
	for j := range w {
		w[j] = raw[j] / rawSum
	}

	return w, &PCAProvenance{
		Loadings:           loadings,
		Eigenvalues:        eigvals,
		CumulativeVariance: cumulative,
		ComponentsRetained: k,
		Threshold:          threshold,
	}, nil
}
