// Package ephemeris integrates the N-body dynamics of a fixed set of
// massive bodies and stores the result as one continuous trajectory per
// body, fitted to Chebyshev segments as integration proceeds. It also
// evaluates the gravitational field (including oblateness) at arbitrary
// points for massless bodies — vessels and pile-up parts — propagated
// separately by the caller.
package ephemeris

import (
	"fmt"
	"math"
	"sync"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/integrators"
	"github.com/anupshinde/principia/numerics/chebyshev"
	"github.com/anupshinde/principia/trajectory"
)

// Oblateness holds the J2 zonal harmonic term of a massive body's gravity
// field, sufficient to reproduce the equatorial bulge perturbation.
type Oblateness[F any] struct {
	J2               float64
	EquatorialRadius float64
	Pole             geometry.Vector[F] // unit vector along the rotation axis
}

// MassiveBody is one body participating in the N-body integration.
type MassiveBody[F any] struct {
	Name                   string
	GravitationalParameter float64
	Oblateness             *Oblateness[F]
}

// Ephemeris owns a fixed set of massive bodies and the continuous
// trajectory each of them accumulates as Prolong is called. Reads
// (Trajectory, ComputeGravitationalAcceleration) may run concurrently with
// each other; Prolong takes an exclusive lock, matching the
// single-writer/many-reader access pattern massive-body and vessel
// propagation need.
type Ephemeris[F any] struct {
	mu sync.RWMutex

	bodies       []*MassiveBody[F]
	index        map[string]int
	trajectories []*trajectory.ContinuousTrajectory[F]

	step                 float64
	fittingTolerance     float64
	minDegree, maxDegree int
	maxSteps             int

	q0, v0 []float64
	t0     trajectory.Instant
}

// NewEphemeris constructs an ephemeris for bodies, whose initial degrees of
// freedom at epoch are given by initial (keyed by body name; every body
// must have an entry). step is the fixed integration step in seconds;
// fittingTolerance is the position error Chebyshev segments must meet
// (same length units as positions); minDegree/maxDegree bound the
// per-segment polynomial degree search. maxSteps caps the number of
// fixed-step increments fitSegment will take between any two consecutive
// Lobatto sample times before giving up with FitStepsExceeded, guarding
// against an unbounded loop if step is misconfigured far too small.
func NewEphemeris[F any](
	bodies []*MassiveBody[F],
	initial map[string]geometry.DegreesOfFreedom[F],
	epoch trajectory.Instant,
	step, fittingTolerance float64,
	minDegree, maxDegree, maxSteps int,
) (*Ephemeris[F], error) {
	if step <= 0 {
		return nil, fmt.Errorf("ephemeris: step must be positive")
	}
	if minDegree < 1 || maxDegree < minDegree {
		return nil, fmt.Errorf("ephemeris: need 1 <= minDegree <= maxDegree")
	}
	if maxSteps <= 0 {
		return nil, fmt.Errorf("ephemeris: maxSteps must be positive")
	}

	n := len(bodies)
	index := make(map[string]int, n)
	trajectories := make([]*trajectory.ContinuousTrajectory[F], n)
	q0 := make([]float64, 3*n)
	v0 := make([]float64, 3*n)
	for i, b := range bodies {
		if _, dup := index[b.Name]; dup {
			return nil, fmt.Errorf("ephemeris: duplicate body name %q", b.Name)
		}
		index[b.Name] = i
		trajectories[i] = trajectory.NewContinuousTrajectory[F](fittingTolerance)

		dof, ok := initial[b.Name]
		if !ok {
			return nil, fmt.Errorf("ephemeris: missing initial state for body %q", b.Name)
		}
		q0[3*i], q0[3*i+1], q0[3*i+2] = dof.Position.X, dof.Position.Y, dof.Position.Z
		v0[3*i], v0[3*i+1], v0[3*i+2] = dof.Velocity.X, dof.Velocity.Y, dof.Velocity.Z
	}

	return &Ephemeris[F]{
		bodies:           append([]*MassiveBody[F](nil), bodies...),
		index:            index,
		trajectories:     trajectories,
		step:             step,
		fittingTolerance: fittingTolerance,
		minDegree:        minDegree,
		maxDegree:        maxDegree,
		maxSteps:         maxSteps,
		q0:               q0,
		v0:               v0,
		t0:               epoch,
	}, nil
}

// Body returns the named body's parameters.
func (e *Ephemeris[F]) Body(name string) (*MassiveBody[F], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.bodies[i], true
}

// Trajectory returns the named body's continuous trajectory.
func (e *Ephemeris[F]) Trajectory(name string) (*trajectory.ContinuousTrajectory[F], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	i, ok := e.index[name]
	if !ok {
		return nil, false
	}
	return e.trajectories[i], true
}

// TMax returns the latest instant covered by every body's trajectory.
func (e *Ephemeris[F]) TMax() trajectory.Instant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.t0
}

// Bodies returns every massive body, in the order passed to NewEphemeris.
func (e *Ephemeris[F]) Bodies() []*MassiveBody[F] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*MassiveBody[F](nil), e.bodies...)
}

// Parameters returns the fixed-step, fitting-tolerance, Chebyshev degree
// bounds, and step-count ceiling this ephemeris was constructed with,
// for serialization.
func (e *Ephemeris[F]) Parameters() (step, fittingTolerance float64, minDegree, maxDegree, maxSteps int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.step, e.fittingTolerance, e.minDegree, e.maxDegree, e.maxSteps
}

// FrontierState returns the integration state at TMax: the position and
// velocity vectors (flattened as in NewEphemeris's initial map, 3 floats
// per body in Bodies() order) that integration would resume from.
func (e *Ephemeris[F]) FrontierState() (q0, v0 []float64, t0 trajectory.Instant) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]float64(nil), e.q0...), append([]float64(nil), e.v0...), e.t0
}

// Reconstruct rebuilds an Ephemeris from previously persisted state:
// body parameters, each body's already-fitted trajectory segments (in
// Bodies() order), and the integration frontier needed to resume
// Prolong. Used by serialization's UnmarshalYAML rather than
// NewEphemeris, since a loaded ephemeris resumes mid-flight rather than
// starting fresh from a single initial-conditions map.
func Reconstruct[F any](
	bodies []*MassiveBody[F],
	segments [][]*chebyshev.Series,
	q0, v0 []float64,
	t0 trajectory.Instant,
	step, fittingTolerance float64,
	minDegree, maxDegree, maxSteps int,
) (*Ephemeris[F], error) {
	if len(segments) != len(bodies) {
		return nil, fmt.Errorf("ephemeris: Reconstruct got %d segment lists for %d bodies", len(segments), len(bodies))
	}
	index := make(map[string]int, len(bodies))
	trajectories := make([]*trajectory.ContinuousTrajectory[F], len(bodies))
	for i, b := range bodies {
		if _, dup := index[b.Name]; dup {
			return nil, fmt.Errorf("ephemeris: duplicate body name %q", b.Name)
		}
		index[b.Name] = i
		traj := trajectory.NewContinuousTrajectory[F](fittingTolerance)
		for _, s := range segments[i] {
			if err := traj.AppendSegment(s); err != nil {
				return nil, fmt.Errorf("ephemeris: reconstructing %q's trajectory: %w", b.Name, err)
			}
		}
		trajectories[i] = traj
	}
	return &Ephemeris[F]{
		bodies:           append([]*MassiveBody[F](nil), bodies...),
		index:            index,
		trajectories:     trajectories,
		step:             step,
		fittingTolerance: fittingTolerance,
		minDegree:        minDegree,
		maxDegree:        maxDegree,
		maxSteps:         maxSteps,
		q0:               append([]float64(nil), q0...),
		v0:               append([]float64(nil), v0...),
		t0:               t0,
	}, nil
}

func pairwiseAcceleration[F any](gm float64, obl *Oblateness[F], dx, dy, dz float64) (ax, ay, az float64) {
	r2 := dx*dx + dy*dy + dz*dz
	r := math.Sqrt(r2)
	f := gm / (r2 * r)
	ax, ay, az = f*dx, f*dy, f*dz
	if obl != nil {
		jx, jy, jz := j2Acceleration(obl.J2, gm, obl.EquatorialRadius, obl.Pole.X, obl.Pole.Y, obl.Pole.Z, -dx, -dy, -dz)
		ax += jx
		ay += jy
		az += jz
	}
	return
}

// j2Acceleration returns the J2 perturbation acceleration on a point at
// relative position (rx, ry, rz) from an oblate body's center, whose spin
// axis is the unit vector (kx, ky, kz).
func j2Acceleration(j2, gm, equatorialRadius, kx, ky, kz, rx, ry, rz float64) (ax, ay, az float64) {
	r2 := rx*rx + ry*ry + rz*rz
	r := math.Sqrt(r2)
	z := rx*kx + ry*ky + rz*kz
	perpX, perpY, perpZ := rx-z*kx, ry-z*ky, rz-z*kz
	factor := -1.5 * j2 * gm * equatorialRadius * equatorialRadius / (r2 * r2 * r)
	zr2 := z * z / r2
	perpScale := factor * (1 - 5*zr2)
	axialScale := factor * (3 - 5*zr2) * z
	ax = perpScale*perpX + axialScale*kx
	ay = perpScale*perpY + axialScale*ky
	az = perpScale*perpZ + axialScale*kz
	return
}

// accelerationFunc returns the coupled N-body acceleration function used
// to integrate the massive bodies' mutual dynamics.
func (e *Ephemeris[F]) accelerationFunc() integrators.AccelerationFunc {
	n := len(e.bodies)
	gm := make([]float64, n)
	obl := make([]*Oblateness[F], n)
	for i, b := range e.bodies {
		gm[i] = b.GravitationalParameter
		obl[i] = b.Oblateness
	}
	return func(t float64, q []float64) []float64 {
		a := make([]float64, 3*n)
		for i := 0; i < n; i++ {
			pix, piy, piz := q[3*i], q[3*i+1], q[3*i+2]
			var ax, ay, az float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx := q[3*j] - pix
				dy := q[3*j+1] - piy
				dz := q[3*j+2] - piz
				ddx, ddy, ddz := pairwiseAcceleration(gm[j], obl[j], dx, dy, dz)
				ax += ddx
				ay += ddy
				az += ddz
			}
			a[3*i], a[3*i+1], a[3*i+2] = ax, ay, az
		}
		return a
	}
}

// ComputeGravitationalAcceleration returns the acceleration due to every
// body's gravity (Newtonian plus any configured oblateness) at position,
// evaluated at time t. Used by vessel and pile-up propagation, which treat
// their own mass as negligible against the massive bodies.
func (e *Ephemeris[F]) ComputeGravitationalAcceleration(t trajectory.Instant, position geometry.Point[F]) geometry.Vector[F] {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var ax, ay, az float64
	for i, body := range e.bodies {
		p := e.trajectories[i].EvaluatePosition(t)
		dx, dy, dz := p.X-position.X, p.Y-position.Y, p.Z-position.Z
		ddx, ddy, ddz := pairwiseAcceleration(body.GravitationalParameter, body.Oblateness, dx, dy, dz)
		ax += ddx
		ay += ddy
		az += ddz
	}
	return geometry.Vector[F]{X: ax, Y: ay, Z: az}
}

// advanceTo steps integ from t to target in increments of at most step,
// accumulating both the elapsed time and each position component with
// compensated (Kahan/Neumaier) summation so that a long chain of fixed
// steps does not drift from the plain float64 rounding error each Step
// call introduces. It gives up with FitStepsExceeded if more than
// maxSteps increments are needed to reach target.
func advanceTo(integ *integrators.FixedStepIntegrator, step, t, target float64, q, v []float64, maxSteps int) (float64, []float64, []float64, trajectory.FitStatus) {
	var tAcc integrators.KahanSum
	tAcc.Add(t)
	qAcc := make([]integrators.KahanSum, len(q))
	for i, x := range q {
		qAcc[i].Add(x)
	}

	status := trajectory.FitOK
	for n := 0; tAcc.Value() < target; n++ {
		if n >= maxSteps {
			status = trajectory.FitStepsExceeded
			break
		}
		cur := tAcc.Value()
		h := step
		if cur+h > target {
			h = target - cur
		}
		_, qNew, vNew := integ.Step(cur, h, q, v)
		tAcc.Add(h)
		for i := range qNew {
			qAcc[i].Add(qNew[i] - q[i])
			qNew[i] = qAcc[i].Value()
		}
		q, v = qNew, vNew
	}
	return tAcc.Value(), q, v, status
}

// fitSegment replays the coupled dynamics from e.t0 (the committed state)
// to t1, at increasing Chebyshev degree until successive fits agree
// within tolerance or maxDegree is reached, and returns one fitted series
// per body together with the committed end-of-segment state.
func (e *Ephemeris[F]) fitSegment(t1 trajectory.Instant) ([]*chebyshev.Series, []float64, []float64, trajectory.FitStatus, error) {
	n := len(e.bodies)
	t0 := e.t0

	var previous []*chebyshev.Series
	degree := e.minDegree
	var q, v []float64
	var current []*chebyshev.Series
	status := trajectory.FitOK

	for {
		times := chebyshev.LobattoTimes(float64(t0), float64(t1), degree)
		samples := make([][][]float64, n)
		for b := range samples {
			samples[b] = make([][]float64, len(times))
		}

		q = append([]float64(nil), e.q0...)
		v = append([]float64(nil), e.v0...)
		tc := float64(t0)
		integ := integrators.NewSymplecticOrder4(e.accelerationFunc())
		// LobattoTimes runs from t1 down to t0; the replay only moves
		// forward, so visit the nodes from the last index to the first.
		for i := len(times) - 1; i >= 0; i-- {
			var stepStatus trajectory.FitStatus
			tc, q, v, stepStatus = advanceTo(integ, e.step, tc, times[i], q, v, e.maxSteps)
			if stepStatus == trajectory.FitStepsExceeded {
				return nil, nil, nil, stepStatus, nil
			}
			for b := 0; b < n; b++ {
				samples[b][i] = []float64{q[3*b], q[3*b+1], q[3*b+2]}
			}
		}

		current = make([]*chebyshev.Series, n)
		for b := 0; b < n; b++ {
			s, err := chebyshev.Fit(float64(t0), float64(t1), degree, samples[b])
			if err != nil {
				return nil, nil, nil, status, err
			}
			current[b] = s
		}

		diff := math.Inf(1)
		if previous != nil {
			diff = worstDisagreement(current, previous, float64(t0), float64(t1))
		}

		if degree >= e.maxDegree {
			if previous == nil || diff <= e.fittingTolerance {
				status = trajectory.FitOK
			} else {
				status = trajectory.FitToleranceNotMet
			}
			break
		}
		if previous != nil && diff <= e.fittingTolerance {
			status = trajectory.FitOK
			break
		}

		previous = current
		degree *= 2
		if degree > e.maxDegree {
			degree = e.maxDegree
		}
	}

	return current, q, v, status, nil
}

func worstDisagreement(a, b []*chebyshev.Series, t0, t1 float64) float64 {
	const probes = 5
	var worst float64
	for i := 0; i < probes; i++ {
		frac := (float64(i) + 0.5) / probes
		t := t0 + frac*(t1-t0)
		for k := range a {
			va := a[k].Evaluate(t)
			vb := b[k].Evaluate(t)
			for d := range va {
				if e := math.Abs(va[d] - vb[d]); e > worst {
					worst = e
				}
			}
		}
	}
	return worst
}

// Prolong extends every body's trajectory up to target, integrating the
// N-body dynamics in segments of at most segmentDuration seconds and
// fitting each to the smallest Chebyshev degree meeting tolerance.
// Returns FitToleranceNotMet if any segment could not meet tolerance by
// maxDegree (the run still proceeds — this mirrors spec.md's truncation
// status rather than treating it as a hard error). Returns
// FitStepsExceeded, and stops, if a segment's fixed-step integration ran
// past its configured step-count ceiling before reaching its target.
func (e *Ephemeris[F]) Prolong(target trajectory.Instant, segmentDuration float64) (trajectory.FitStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	overall := trajectory.FitOK
	for e.t0 < target {
		segEnd := e.t0 + trajectory.Instant(segmentDuration)
		if segEnd > target {
			segEnd = target
		}

		series, q, v, status, err := e.fitSegment(segEnd)
		if err != nil {
			return status, err
		}
		if status == trajectory.FitStepsExceeded {
			return status, nil
		}
		for b, s := range series {
			if err := e.trajectories[b].AppendSegment(s); err != nil {
				return status, err
			}
		}
		e.q0, e.v0, e.t0 = q, v, segEnd
		if status != trajectory.FitOK {
			overall = status
		}
	}
	return overall, nil
}
