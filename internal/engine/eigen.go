package engine

import (
	"math"
	"sort"
)

// The matrices here are indicator-sized (tens at most), so a small dense
// Jacobi sweep and plain power iteration are enough; no numerical library.

const (
	jacobiMaxSweeps = 100
	jacobiTol       = 1e-12

	powerMaxIters = 1000
	powerTol      = 1e-12
)

// jacobiEigen decomposes a symmetric matrix into eigenvalues and eigenvectors
// using cyclic Jacobi rotations. Eigenvalues are returned in descending order
// with their eigenvectors as columns of v (v[i][c] is component i of
// eigenvector c).
func jacobiEigen(a [][]float64) (eigvals []float64, v [][]float64, err error) {
	n := len(a)
	// work on a copy
	m := make([][]float64, n)
	for i := range a {
		m[i] = append([]float64(nil), a[i]...)
	}
	v = identity(n)

	for sweep := 0; sweep < jacobiMaxSweeps; sweep++ {
		off := offDiagonalNorm(m)
		if off < jacobiTol {
			vals := make([]float64, n)
			for i := 0; i < n; i++ {
				vals[i] = m[i][i]
			}
			return sortEigenDescending(vals, v), v, nil
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(m[p][q]) < jacobiTol {
					continue
				}
				rotate(m, v, p, q)
			}
		}
	}
	return nil, nil, errf(ErrEigenDivergence, "jacobi eigen decomposition did not converge within %d sweeps", jacobiMaxSweeps)
}

func identity(n int) [][]float64 {
	v := make([][]float64, n)
	for i := range v {
		v[i] = make([]float64, n)
		v[i][i] = 1
	}
	return v
}

func offDiagonalNorm(m [][]float64) float64 {
	var s float64
	for i := range m {
		for j := range m {
			if i != j {
				s += m[i][j] * m[i][j]
			}
		}
	}
	return math.Sqrt(s)
}

// rotate applies one Jacobi rotation zeroing m[p][q].
func rotate(m, v [][]float64, p, q int) {
	n := len(m)
	theta := (m[q][q] - m[p][p]) / (2 * m[p][q])
	t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
	c := 1 / math.Sqrt(t*t+1)
	s := t * c

	for i := 0; i < n; i++ {
		mip, miq := m[i][p], m[i][q]
		m[i][p] = c*mip - s*miq
		m[i][q] = s*mip + c*miq
	}
	for j := 0; j < n; j++ {
		mpj, mqj := m[p][j], m[q][j]
		m[p][j] = c*mpj - s*mqj
		m[q][j] = s*mpj + c*mqj
	}
	for i := 0; i < n; i++ {
		vip, viq := v[i][p], v[i][q]
		v[i][p] = c*vip - s*viq
		v[i][q] = s*vip + c*viq
	}
}

// sortEigenDescending orders eigenvalues descending, permuting the
// eigenvector columns of v in place to match.
func sortEigenDescending(vals []float64, v [][]float64) []float64 {
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return vals[order[a]] > vals[order[b]] })

	sorted := make([]float64, n)
	cols := make([][]float64, n)
	for c, idx := range order {
		sorted[c] = vals[idx]
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = v[i][idx]
		}
		cols[c] = col
	}
	for c := 0; c < n; c++ {
		for i := 0; i < n; i++ {
			v[i][c] = cols[c][i]
		}
	}
	return sorted
}

// powerIteration finds the dominant eigenvalue and eigenvector of a positive
// square matrix. The eigenvector is normalized to sum to 1, which is exactly
// the AHP priority-vector convention.
func powerIteration(m [][]float64) (lambda float64, vec []float64, err error) {
	n := len(m)
	vec = make([]float64, n)
	for i := range vec {
		vec[i] = 1 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < powerMaxIters; iter++ {
		var sum float64
		for i := 0; i < n; i++ {
			next[i] = 0
			for j := 0; j < n; j++ {
				next[i] += m[i][j] * vec[j]
			}
			sum += next[i]
		}
		if sum == 0 {
			return 0, nil, errf(ErrEigenDivergence, "power iteration collapsed to the zero vector")
		}
		var delta float64
		for i := 0; i < n; i++ {
			next[i] /= sum
			delta += math.Abs(next[i] - vec[i])
		}
		vec, next = next, vec
		if delta < powerTol {
			return rayleighQuotient(m, vec), vec, nil
		}
	}
	return 0, nil, errf(ErrEigenDivergence, "power iteration did not converge within %d iterations", powerMaxIters)
}

// rayleighQuotient estimates the dominant eigenvalue as the mean of the
// component-wise ratios (Mv)_i / v_i.
func rayleighQuotient(m [][]float64, v []float64) float64 {
	n := len(m)
	var lambda float64
	for i := 0; i < n; i++ {
		var mv float64
		for j := 0; j < n; j++ {
			mv += m[i][j] * v[j]
		}
		lambda += mv / v[i]
	}
	return lambda / float64(n)
}

// sampleCovariance computes the p x p covariance matrix (n-1 denominator) of
// an n x p matrix.
func sampleCovariance(x [][]float64) [][]float64 {
	n := len(x)
	p := len(x[0])
	means := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			means[j] += x[i][j]
		}
		means[j] /= float64(n)
	}
	c := make([][]float64, p)
	for a := 0; a < p; a++ {
		c[a] = make([]float64, p)
	}
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			var s float64
			for i := 0; i < n; i++ {
				s += (x[i][a] - means[a]) * (x[i][b] - means[b])
			}
			cov := s / float64(n-1)
			c[a][b], c[b][a] = cov, cov
		}
	}
	return c
}
