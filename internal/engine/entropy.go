package engine

import "math"

// entropyWeights derives indicator weights from the dispersion of a min-max
// standardized matrix z (rows = observations, columns follow keys). Columns
// with more spread across observations carry more information and get more
// weight.
func entropyWeights(keys []string, z [][]float64) ([]float64, error) {
	n := len(z)
	p := len(keys)
	if n < 2 {
		return nil, errf(ErrInsufficientData, "entropy weighting needs at least 2 observations, got %d", n)
	}

	k := 1 / math.Log(float64(n))
	divergence := make([]float64, p)
	var total float64

	for j := 0; j < p; j++ {
		var colSum float64
		first := z[0][j]
		uniform := true
		for i := 0; i < n; i++ {
			colSum += z[i][j]
			if z[i][j] != first {
				uniform = false
			}
		}
		if colSum == 0 || uniform {
			return nil, errf(ErrDegenerateIndicator, "indicator %s carries no information and cannot be weighted", keys[j])
		}

		var e float64
		for i := 0; i < n; i++ {
			pij := z[i][j] / colSum
			if pij > 0 {
				e += pij * math.Log(pij)
			}
		}
		e = -k * e
		divergence[j] = 1 - e
		total += divergence[j]
	}

	if total <= 0 {
		return nil, errf(ErrUniformIndicators, "every indicator has maximal entropy, no discriminative information anywhere")
	}

	w := make([]float64, p)
	for j := range w {
		w[j] = divergence[j] / total
	}
	return w, nil
}
