// Package integrators provides fixed-step and adaptive-step numerical
// integrators for second-order systems q̈ = a(t, q): a composed symplectic
// Störmer-Verlet integrator for long-running massive-body propagation, and
// an embedded Dormand-Prince Runge-Kutta pair (reduced to first order on
// the state [q, q̇]) for adaptive vessel/part propagation. Both operate on
// flat []float64 state vectors; callers pack/unpack their own position and
// velocity representations.
package integrators

import "math"

// AccelerationFunc computes the acceleration of every degree of freedom at
// time t given the current positions q. Both slices are length 3n for n
// three-dimensional bodies, but the package does not assume any particular
// dimension: callers are free to pack any number of scalar degrees of
// freedom per body.
type AccelerationFunc func(t float64, q []float64) []float64

// KahanSum is a Neumaier-variant compensated running sum, used to keep the
// accumulated simulation time and position updates from drifting over the
// very large number of steps a long-running ephemeris integration performs.
type KahanSum struct {
	sum, c float64
}

// Add accumulates x into the sum.
func (k *KahanSum) Add(x float64) {
	t := k.sum + x
	if math.Abs(k.sum) >= math.Abs(x) {
		k.c += (k.sum - t) + x
	} else {
		k.c += (x - t) + k.sum
	}
	k.sum = t
}

// Value returns the compensated sum.
func (k *KahanSum) Value() float64 { return k.sum + k.c }

// FixedStepIntegrator advances (q, q̇) by a fixed step using a symplectic
// Störmer-Verlet kick-drift-kick integrator, optionally composed to higher
// order via the Suzuki-Yoshida triple-jump construction. Composition
// weights must sum to 1; each sub-step is itself a full Verlet step, so
// the scheme stays symplectic and time-reversible at any composition
// order.
type FixedStepIntegrator struct {
	accel   AccelerationFunc
	weights []float64
}

// NewVelocityVerlet returns an uncomposed (order 2) symplectic integrator.
func NewVelocityVerlet(accel AccelerationFunc) *FixedStepIntegrator {
	return &FixedStepIntegrator{accel: accel, weights: []float64{1}}
}

// NewSymplecticOrder4 returns a 4th-order symplectic integrator built by
// Yoshida's triple-jump composition of three Verlet sub-steps, with
// weights w1, w0, w1 where w1 = 1/(2 - 2^(1/3)) and w0 = 1 - 2*w1.
func NewSymplecticOrder4(accel AccelerationFunc) *FixedStepIntegrator {
	w1 := 1 / (2 - math.Cbrt(2))
	w0 := 1 - 2*w1
	return &FixedStepIntegrator{accel: accel, weights: []float64{w1, w0, w1}}
}

// Step advances (q, v) by one step of size h from time t, returning the
// new time and state. q and v are not mutated.
func (fi *FixedStepIntegrator) Step(t, h float64, q, v []float64) (tNew float64, qNew, vNew []float64) {
	qNew = append([]float64(nil), q...)
	vNew = append([]float64(nil), v...)
	tc := t
	for _, w := range fi.weights {
		tc, qNew, vNew = verletSubstep(fi.accel, tc, w*h, qNew, vNew)
	}
	return tc, qNew, vNew
}

func verletSubstep(accel AccelerationFunc, t, h float64, q, v []float64) (float64, []float64, []float64) {
	n := len(q)
	a := accel(t, q)
	vHalf := make([]float64, n)
	for i := range q {
		vHalf[i] = v[i] + 0.5*h*a[i]
	}
	qNew := make([]float64, n)
	for i := range q {
		qNew[i] = q[i] + h*vHalf[i]
	}
	aNew := accel(t+h, qNew)
	vNew := make([]float64, n)
	for i := range q {
		vNew[i] = vHalf[i] + 0.5*h*aNew[i]
	}
	return t + h, qNew, vNew
}

// StepStatus reports the outcome of one AdaptiveStepIntegrator.Step call.
type StepStatus int

const (
	// StepAccepted means the step met tolerance and (t, q, v) advanced.
	StepAccepted StepStatus = iota
	// StepRejected means the estimated error exceeded tolerance; the
	// caller should retry at the returned (smaller) hNext without using
	// the returned state.
	StepRejected
	// StepUnderflow means the controller wants a step smaller than
	// minStep; the step is accepted anyway (at minStep) to guarantee
	// progress, and the caller should treat the trajectory as degraded
	// from this point (matches spec.md's truncation-status convention).
	StepUnderflow
)

// AdaptiveStepIntegrator is an embedded Runge-Kutta pair of orders 5 and 4
// (the Dormand-Prince tableau), applied to the first-order reduction of
// q̈ = a(t, q): y = (q, q̇), ẏ = (q̇, a(t, q)). Step size is controlled by
// comparing the two embedded solutions, against two distinct tolerances
// for y's position half and velocity half: a mixed-unit error norm over
// the whole state would otherwise let a badly-scaled velocity error hide
// behind a comparatively large position magnitude, or vice versa.
type AdaptiveStepIntegrator struct {
	accel                           AccelerationFunc
	lengthTolerance, speedTolerance float64
	minStep, maxStep                float64
}

// NewAdaptiveDormandPrince returns an adaptive stepper targeting the given
// per-component absolute error tolerances — lengthTolerance for the
// position half of the state, speedTolerance for the velocity half —
// with step size clamped to [minStep, maxStep].
func NewAdaptiveDormandPrince(accel AccelerationFunc, lengthTolerance, speedTolerance, minStep, maxStep float64) *AdaptiveStepIntegrator {
	return &AdaptiveStepIntegrator{accel: accel, lengthTolerance: lengthTolerance, speedTolerance: speedTolerance, minStep: minStep, maxStep: maxStep}
}

// Dormand-Prince 5(4) tableau.
const (
	c2 = 1. / 5.
	c3 = 3. / 10.
	c4 = 4. / 5.
	c5 = 8. / 9.
	c6 = 1.
	c7 = 1.

	a21 = 1. / 5.
	a31 = 3. / 40.
	a32 = 9. / 40.
	a41 = 44. / 45.
	a42 = -56. / 15.
	a43 = 32. / 9.
	a51 = 19372. / 6561.
	a52 = -25360. / 2187.
	a53 = 64448. / 6561.
	a54 = -212. / 729.
	a61 = 9017. / 3168.
	a62 = -355. / 33.
	a63 = 46732. / 5247.
	a64 = 49. / 176.
	a65 = -5103. / 18656.
	a71 = 35. / 384.
	a72 = 0.
	a73 = 500. / 1113.
	a74 = 125. / 192.
	a75 = -2187. / 6784.
	a76 = 11. / 84.

	// 5th-order solution weights (same as a7*, the FSAL row).
	b1, b3, b4, b5, b6 = 35. / 384., 500. / 1113., 125. / 192., -2187. / 6784., 11. / 84.
	// 4th-order solution weights, for error estimation.
	e1, e3, e4, e5, e6, e7 = 5179. / 57600., 7571. / 16695., 393. / 640., -92097. / 339200., 187. / 2100., 1. / 40.
)

func reduce(t float64, y []float64, n int, accel AccelerationFunc) []float64 {
	q := y[:n]
	v := y[n:]
	a := accel(t, q)
	dy := make([]float64, 2*n)
	copy(dy[:n], v)
	copy(dy[n:], a)
	return dy
}

func axpy(dst []float64, scale float64, src []float64) {
	for i := range dst {
		dst[i] += scale * src[i]
	}
}

func combine(base []float64, terms ...struct {
	scale float64
	vec   []float64
}) []float64 {
	out := append([]float64(nil), base...)
	for _, term := range terms {
		axpy(out, term.scale, term.vec)
	}
	return out
}

// Step attempts one adaptive step from (t, q, v) with trial step size h.
// On StepAccepted or StepUnderflow, (tNew, qNew, vNew) is the advanced
// state and hNext is the step size to try next. On StepRejected, the
// returned state equals the input state and hNext is the smaller step
// size to retry with.
func (ai *AdaptiveStepIntegrator) Step(t, h float64, q, v []float64) (tNew float64, qNew, vNew []float64, hNext float64, status StepStatus) {
	n := len(q)
	y0 := make([]float64, 2*n)
	copy(y0[:n], q)
	copy(y0[n:], v)

	k1 := reduce(t, y0, n, ai.accel)
	k1h := scaled(k1, h)

	y2 := combine(y0, scaledTerm(a21, k1h))
	k2 := reduce(t+c2*h, y2, n, ai.accel)
	k2h := scaled(k2, h)

	y3 := combine(y0, scaledTerm(a31, k1h), scaledTerm(a32, k2h))
	k3 := reduce(t+c3*h, y3, n, ai.accel)
	k3h := scaled(k3, h)

	y4 := combine(y0, scaledTerm(a41, k1h), scaledTerm(a42, k2h), scaledTerm(a43, k3h))
	k4 := reduce(t+c4*h, y4, n, ai.accel)
	k4h := scaled(k4, h)

	y5 := combine(y0, scaledTerm(a51, k1h), scaledTerm(a52, k2h), scaledTerm(a53, k3h), scaledTerm(a54, k4h))
	k5 := reduce(t+c5*h, y5, n, ai.accel)
	k5h := scaled(k5, h)

	y6 := combine(y0, scaledTerm(a61, k1h), scaledTerm(a62, k2h), scaledTerm(a63, k3h), scaledTerm(a64, k4h), scaledTerm(a65, k5h))
	k6 := reduce(t+c6*h, y6, n, ai.accel)
	k6h := scaled(k6, h)

	y5th := combine(y0, scaledTerm(b1, k1h), scaledTerm(b3, k3h), scaledTerm(b4, k4h), scaledTerm(b5, k5h), scaledTerm(b6, k6h))

	k7 := reduce(t+c7*h, y5th, n, ai.accel)
	k7h := scaled(k7, h)

	y4th := combine(y0, scaledTerm(e1, k1h), scaledTerm(e3, k3h), scaledTerm(e4, k4h), scaledTerm(e5, k5h), scaledTerm(e6, k6h), scaledTerm(e7, k7h))

	worstOf := func(lo, hi int) float64 {
		var worst float64
		for i := lo; i < hi; i++ {
			if e := math.Abs(y5th[i] - y4th[i]); e > worst {
				worst = e
			}
		}
		return worst
	}
	worstPosition := worstOf(0, n)
	worstVelocity := worstOf(n, 2*n)
	if worstPosition == 0 {
		worstPosition = 1e-300
	}
	if worstVelocity == 0 {
		worstVelocity = 1e-300
	}

	posRatio := ai.lengthTolerance / worstPosition
	velRatio := ai.speedTolerance / worstVelocity
	errRatio := math.Min(posRatio, velRatio)
	proposed := 0.9 * h * math.Pow(errRatio, 0.2)
	clamped := math.Min(math.Max(proposed, ai.minStep), ai.maxStep)

	exceeded := worstPosition > ai.lengthTolerance || worstVelocity > ai.speedTolerance
	if exceeded && h > ai.minStep {
		return t, q, v, clamped, StepRejected
	}

	status = StepAccepted
	if h <= ai.minStep && exceeded {
		status = StepUnderflow
	}
	return t + h, y5th[:n], y5th[n:], clamped, status
}

func scaled(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

func scaledTerm(scale float64, vec []float64) struct {
	scale float64
	vec   []float64
} {
	return struct {
		scale float64
		vec   []float64
	}{scale, vec}
}
