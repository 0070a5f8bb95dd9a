package trajectory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/numerics/chebyshev"
)

// FitStatus reports whether a fitted segment met its caller-supplied
// tolerance.
type FitStatus int

const (
	// FitOK means the fitted segment's validation error is within tolerance.
	FitOK FitStatus = iota
	// FitToleranceNotMet means degree was raised to maxDegree and the
	// fit still exceeds tolerance; the caller should split the interval.
	FitToleranceNotMet
	// FitStepsExceeded means an adaptive or fixed-step integration ran
	// past its configured step-count ceiling before reaching its target
	// instant; the caller should treat the segment as unfit rather than
	// loop forever.
	FitStepsExceeded
)

func (s FitStatus) String() string {
	switch s {
	case FitOK:
		return "ok"
	case FitStepsExceeded:
		return "step count exceeded"
	default:
		return "tolerance not met"
	}
}

// ContinuousTrajectory is an append-only chain of touching Chebyshev
// polynomial segments approximating a body's position (and, by analytic
// differentiation, velocity) as a continuous function of time. It is the
// storage format ephemeris prolongation appends to: each fixed-step
// integration produces one more segment, fitted at the smallest degree
// that meets the caller's tolerance.
//
// Safe for concurrent readers; Append/AppendAutoDegree/ForgetBefore take a
// write lock so the ephemeris's single writer goroutine can run alongside
// many vessel-integration readers.
type ContinuousTrajectory[F any] struct {
	mu        sync.RWMutex
	segments  []*chebyshev.Series
	tolerance float64
}

// NewContinuousTrajectory returns an empty trajectory whose auto-degree
// fits target the given position tolerance (same length units as the
// sampled positions).
func NewContinuousTrajectory[F any](tolerance float64) *ContinuousTrajectory[F] {
	return &ContinuousTrajectory[F]{tolerance: tolerance}
}

func pointToSlice[F any](p geometry.Point[F]) []float64 { return []float64{p.X, p.Y, p.Z} }

func sliceToPoint[F any](v []float64) geometry.Point[F] {
	return geometry.Point[F]{X: v[0], Y: v[1], Z: v[2]}
}

func sliceToVelocity[F any](v []float64) geometry.Velocity[F] {
	return geometry.Velocity[F]{X: v[0], Y: v[1], Z: v[2]}
}

// Empty reports whether no segments have been appended yet.
func (c *ContinuousTrajectory[F]) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.segments) == 0
}

// TMin returns the start of the earliest segment. Panics if empty.
func (c *ContinuousTrajectory[F]) TMin() Instant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.segments) == 0 {
		panic("trajectory: TMin on an empty ContinuousTrajectory")
	}
	return Instant(c.segments[0].T0())
}

// TMax returns the end of the latest segment. Panics if empty.
func (c *ContinuousTrajectory[F]) TMax() Instant {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.segments) == 0 {
		panic("trajectory: TMax on an empty ContinuousTrajectory")
	}
	return Instant(c.segments[len(c.segments)-1].T1())
}

func (c *ContinuousTrajectory[F]) buildSegment(t0, t1 Instant, degree int, sampler func(Instant) geometry.Point[F]) (*chebyshev.Series, error) {
	times := chebyshev.LobattoTimes(float64(t0), float64(t1), degree)
	samples := make([][]float64, len(times))
	for i, t := range times {
		samples[i] = pointToSlice(sampler(Instant(t)))
	}
	return chebyshev.Fit(float64(t0), float64(t1), degree, samples)
}

// validationError estimates a fitted segment's worst-case error against
// fresh samples taken between its Lobatto nodes.
func validationError(series *chebyshev.Series, sampler func(Instant) []float64) float64 {
	const probes = 5
	t0, t1 := series.T0(), series.T1()
	times := make([]float64, probes)
	samples := make([][]float64, probes)
	for i := 0; i < probes; i++ {
		frac := (float64(i) + 0.5) / probes
		t := t0 + frac*(t1-t0)
		times[i] = t
		samples[i] = sampler(Instant(t))
	}
	return chebyshev.FitTolerance(series, times, samples)
}

// Append fits and appends one segment of the given fixed degree over
// [t0, t1]. t0 must equal TMax() (or this must be the first segment).
func (c *ContinuousTrajectory[F]) Append(t0, t1 Instant, degree int, sampler func(Instant) geometry.Point[F]) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.segments) > 0 && float64(t0) != c.segments[len(c.segments)-1].T1() {
		return fmt.Errorf("trajectory: Append segment must touch previous segment's end %v, got t0=%v",
			c.segments[len(c.segments)-1].T1(), t0)
	}
	series, err := c.buildSegment(t0, t1, degree, sampler)
	if err != nil {
		return err
	}
	c.segments = append(c.segments, series)
	return nil
}

// AppendAutoDegree fits [t0, t1] starting at minDegree and doubling until
// the fit's validation error is within the trajectory's tolerance or
// maxDegree is reached, then appends the chosen segment.
func (c *ContinuousTrajectory[F]) AppendAutoDegree(t0, t1 Instant, sampler func(Instant) geometry.Point[F], minDegree, maxDegree int) (FitStatus, error) {
	sliceSampler := func(t Instant) []float64 { return pointToSlice(sampler(t)) }

	degree := minDegree
	for {
		c.mu.RLock()
		touching := len(c.segments) == 0 || float64(t0) == c.segments[len(c.segments)-1].T1()
		c.mu.RUnlock()
		if !touching {
			return FitToleranceNotMet, fmt.Errorf("trajectory: AppendAutoDegree segment must touch previous segment's end")
		}

		series, err := c.buildSegment(t0, t1, degree, sampler)
		if err != nil {
			return FitToleranceNotMet, err
		}
		err1 := validationError(series, sliceSampler)
		if err1 <= c.tolerance || degree >= maxDegree {
			c.mu.Lock()
			c.segments = append(c.segments, series)
			c.mu.Unlock()
			if err1 > c.tolerance {
				return FitToleranceNotMet, nil
			}
			return FitOK, nil
		}
		degree *= 2
		if degree > maxDegree {
			degree = maxDegree
		}
	}
}

// segmentFor returns the segment covering t, via binary search over
// segment upper bounds. Caller must hold at least a read lock.
func (c *ContinuousTrajectory[F]) segmentFor(t Instant) (*chebyshev.Series, error) {
	if len(c.segments) == 0 {
		return nil, fmt.Errorf("trajectory: evaluation of an empty ContinuousTrajectory")
	}
	if float64(t) < c.segments[0].T0() || float64(t) > c.segments[len(c.segments)-1].T1() {
		return nil, fmt.Errorf("trajectory: time %v outside [%v, %v]", t, c.segments[0].T0(), c.segments[len(c.segments)-1].T1())
	}
	i := sort.Search(len(c.segments), func(i int) bool { return c.segments[i].T1() >= float64(t) })
	return c.segments[i], nil
}

// EvaluatePosition returns the interpolated position at t. Panics if t is
// outside [TMin(), TMax()] or the trajectory is empty.
func (c *ContinuousTrajectory[F]) EvaluatePosition(t Instant) geometry.Point[F] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, err := c.segmentFor(t)
	if err != nil {
		panic(err)
	}
	return sliceToPoint[F](series.Evaluate(float64(t)))
}

// EvaluateVelocity returns the analytically differentiated velocity at t.
// Panics if t is outside [TMin(), TMax()] or the trajectory is empty.
func (c *ContinuousTrajectory[F]) EvaluateVelocity(t Instant) geometry.Velocity[F] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	series, err := c.segmentFor(t)
	if err != nil {
		panic(err)
	}
	return sliceToVelocity[F](series.EvaluateDerivative(float64(t)))
}

// ForgetBefore discards whole segments ending at or before time, keeping
// at least the segment covering time itself (if any). It never splits a
// segment, matching the append-only, segment-granular storage model.
func (c *ContinuousTrajectory[F]) ForgetBefore(time Instant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := sort.Search(len(c.segments), func(i int) bool { return c.segments[i].T1() > float64(time) })
	c.segments = c.segments[i:]
}

// AppendSegment appends a pre-fitted segment built elsewhere (for example
// by ephemeris, which fits all bodies from one shared dynamics replay
// rather than through a per-body sampler callback). t0 of the segment
// must equal TMax() (or this must be the first segment).
func (c *ContinuousTrajectory[F]) AppendSegment(series *chebyshev.Series) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.segments) > 0 && series.T0() != c.segments[len(c.segments)-1].T1() {
		return fmt.Errorf("trajectory: AppendSegment must touch previous segment's end %v, got t0=%v",
			c.segments[len(c.segments)-1].T1(), series.T0())
	}
	c.segments = append(c.segments, series)
	return nil
}

// NumSegments returns the number of stored segments, for diagnostics and
// tests.
func (c *ContinuousTrajectory[F]) NumSegments() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.segments)
}

// Segments returns the trajectory's fitted segments in order, for
// serialization. The returned slice is a copy; the segments themselves
// are shared and must not be mutated.
func (c *ContinuousTrajectory[F]) Segments() []*chebyshev.Series {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*chebyshev.Series(nil), c.segments...)
}

// Tolerance returns the auto-degree fitting tolerance this trajectory
// was constructed with, for serialization.
func (c *ContinuousTrajectory[F]) Tolerance() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tolerance
}

// FromSegments reconstructs a ContinuousTrajectory directly from
// previously persisted segments, for serialization's round trip.
func FromSegments[F any](tolerance float64, segments []*chebyshev.Series) *ContinuousTrajectory[F] {
	return &ContinuousTrajectory[F]{tolerance: tolerance, segments: append([]*chebyshev.Series(nil), segments...)}
}
