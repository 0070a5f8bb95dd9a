// Package chebyshev fits and evaluates vector-valued Chebyshev series on an
// interval [t0, t1], sampled at Chebyshev-Lobatto points and evaluated with
// the Clenshaw recurrence.
package chebyshev

import (
	"fmt"
	"math"
)

// Series is a degree-N Chebyshev polynomial interpolant of a dim-valued
// function on [t0, t1], one coefficient vector per basis polynomial T_k.
type Series struct {
	t0, t1 float64
	coeffs [][]float64 // coeffs[k][d], k = 0..degree, d = 0..dim-1
	dim    int
}

// LobattoNodes returns the N+1 Chebyshev-Lobatto nodes cos(k*pi/N),
// k = 0..N, in decreasing order (x_0 = 1, x_N = -1).
func LobattoNodes(n int) []float64 {
	nodes := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		nodes[k] = math.Cos(math.Pi * float64(k) / float64(n))
	}
	return nodes
}

// LobattoTimes maps the Lobatto nodes onto [t0, t1].
func LobattoTimes(t0, t1 float64, n int) []float64 {
	nodes := LobattoNodes(n)
	times := make([]float64, len(nodes))
	for i, x := range nodes {
		times[i] = t0 + (t1-t0)*(x+1)/2
	}
	return times
}

// Fit builds a degree-n Series from samples taken at the Lobatto nodes of
// [t0, t1]. samples[j] must be the dim-valued sample at LobattoTimes(t0, t1,
// n)[j], for j = 0..n.
func Fit(t0, t1 float64, n int, samples [][]float64) (*Series, error) {
	if n < 1 {
		return nil, fmt.Errorf("chebyshev: degree must be >= 1, got %d", n)
	}
	if len(samples) != n+1 {
		return nil, fmt.Errorf("chebyshev: need %d samples for degree %d, got %d", n+1, n, len(samples))
	}
	dim := len(samples[0])
	for _, s := range samples {
		if len(s) != dim {
			return nil, fmt.Errorf("chebyshev: inconsistent sample dimension")
		}
	}

	coeffs := make([][]float64, n+1)
	for k := 0; k <= n; k++ {
		coeffs[k] = make([]float64, dim)
		for j := 0; j <= n; j++ {
			w := 1.0
			if j == 0 || j == n {
				w = 0.5
			}
			cosine := math.Cos(math.Pi * float64(k) * float64(j) / float64(n))
			for d := 0; d < dim; d++ {
				coeffs[k][d] += w * cosine * samples[j][d]
			}
		}
		scale := 2 / float64(n)
		if k == 0 || k == n {
			scale = 1 / float64(n)
		}
		for d := 0; d < dim; d++ {
			coeffs[k][d] *= scale
		}
	}

	return &Series{t0: t0, t1: t1, coeffs: coeffs, dim: dim}, nil
}

// T0 returns the interval's lower bound.
func (s *Series) T0() float64 { return s.t0 }

// T1 returns the interval's upper bound.
func (s *Series) T1() float64 { return s.t1 }

// Degree returns the polynomial degree N.
func (s *Series) Degree() int { return len(s.coeffs) - 1 }

// Dim returns the number of value components fitted per sample.
func (s *Series) Dim() int { return s.dim }

// Coefficients returns the series' raw Chebyshev coefficients,
// coeffs[k][d] for basis polynomial T_k and value component d. The
// returned slices are the series' own backing storage and must not be
// mutated; used by serialization to persist an already-fitted segment
// exactly, without re-fitting it from samples.
func (s *Series) Coefficients() [][]float64 { return s.coeffs }

// FromCoefficients reconstructs a Series directly from previously
// persisted coefficients, bypassing Fit's Lobatto-sample requirement.
func FromCoefficients(t0, t1 float64, coeffs [][]float64) *Series {
	dim := 0
	if len(coeffs) > 0 {
		dim = len(coeffs[0])
	}
	return &Series{t0: t0, t1: t1, coeffs: coeffs, dim: dim}
}

func (s *Series) normalize(t float64) float64 {
	return (2*t - (s.t0 + s.t1)) / (s.t1 - s.t0)
}

// Evaluate returns the series value at t, via the Clenshaw recurrence.
// t need not lie in [t0, t1]; the series extrapolates.
func (s *Series) Evaluate(t float64) []float64 {
	x := s.normalize(t)
	n := s.Degree()
	out := make([]float64, s.dim)
	for d := 0; d < s.dim; d++ {
		var dNext, dNextNext float64
		for k := n; k >= 1; k-- {
			cur := 2*x*dNext - dNextNext + s.coeffs[k][d]
			dNextNext = dNext
			dNext = cur
		}
		out[d] = x*dNext - dNextNext + s.coeffs[0][d]
	}
	return out
}

// EvaluateDerivative returns d/dt of the series at t, computed from the
// analytic derivative of the Chebyshev series rather than by finite
// differencing.
func (s *Series) EvaluateDerivative(t float64) []float64 {
	x := s.normalize(t)
	n := s.Degree()
	scale := 2 / (s.t1 - s.t0)
	out := make([]float64, s.dim)
	for d := 0; d < s.dim; d++ {
		ext := make([]float64, n+2)
		for k := n; k >= 1; k-- {
			ext[k-1] = ext[k+1] + 2*float64(k)*s.coeffs[k][d]
		}
		ext[0] /= 2
		deriv := ext[:n]

		var dNext, dNextNext float64
		m := n - 1
		for k := m; k >= 1; k-- {
			cur := 2*x*dNext - dNextNext + deriv[k]
			dNextNext = dNext
			dNext = cur
		}
		var value float64
		if m >= 0 {
			value = x*dNext - dNextNext + deriv[0]
		}
		out[d] = value * scale
	}
	return out
}

// FitTolerance evaluates a fitted Series against an independent set of
// validation samples (conventionally the midpoints between Lobatto nodes)
// and returns the largest absolute component error. Callers use this to
// decide whether to raise degree or split the interval.
func FitTolerance(s *Series, validationTimes []float64, validationSamples [][]float64) float64 {
	var worst float64
	for i, t := range validationTimes {
		got := s.Evaluate(t)
		for d := range got {
			if e := math.Abs(got[d] - validationSamples[i][d]); e > worst {
				worst = e
			}
		}
	}
	return worst
}
