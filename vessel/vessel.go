// Package vessel is the "plumbing" wrapper around a massless body's own
// trajectory: a history forked into a prolongation (the tentative tail
// being advanced right now) and an optional prediction (a further fork
// used to show the player where the vessel is headed), propagated
// through an ephemeris's gravitational field exactly like a pile-up of
// one part but without any of pileup's rigid-body bookkeeping.
//
// Grounded on original_source/ksp_plugin_test/vessel_test.cpp, the only
// pack source exercising Vessel's field set and lifecycle (no
// vessel.cpp survived distillation into the retrieval pack): history/
// prolongation/prediction, is_initialized, is_dirty, parent,
// CreateHistoryAndForkProlongation, AdvanceTimeInBubble,
// AdvanceTimeNotInBubble, UpdatePrediction, DeletePrediction.
package vessel

import (
	"math"
	"sync"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/integrators"
	"github.com/anupshinde/principia/trajectory"
)

// Vessel owns one massless body's trajectory as it is propagated
// through an ephemeris's field, forked into an always-advancing
// prolongation and an optional further prediction.
type Vessel[F any] struct {
	mu sync.Mutex

	name   string
	parent string

	eph       *ephemeris.Ephemeris[F]
	fixedStep float64

	adaptiveLengthTolerance, adaptiveSpeedTolerance float64
	adaptiveMinStep, adaptiveMaxStep                float64
	adaptiveMaxSteps                                int

	initialized bool
	dirty       bool

	history      *trajectory.DiscreteTrajectory[F]
	prolongation *trajectory.DiscreteTrajectory[F]
	prediction   *trajectory.DiscreteTrajectory[F]
}

// NewVessel returns an uninitialized vessel orbiting the named parent
// body; call CreateHistoryAndForkProlongation before using it.
// adaptiveLengthTolerance/adaptiveSpeedTolerance are the adaptive
// stepper's distinct position and velocity error tolerances;
// adaptiveMaxSteps bounds how many adaptive steps advanceAdaptiveLocked
// may take before giving up with FitStepsExceeded.
func NewVessel[F any](name, parent string, eph *ephemeris.Ephemeris[F], fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep float64, adaptiveMaxSteps int) *Vessel[F] {
	return &Vessel[F]{
		name: name, parent: parent, eph: eph,
		fixedStep:               fixedStep,
		adaptiveLengthTolerance: adaptiveLengthTolerance, adaptiveSpeedTolerance: adaptiveSpeedTolerance,
		adaptiveMinStep: adaptiveMinStep, adaptiveMaxStep: adaptiveMaxStep,
		adaptiveMaxSteps: adaptiveMaxSteps,
	}
}

// Name returns the vessel's name.
func (v *Vessel[F]) Name() string { return v.name }

// IsInitialized reports whether CreateHistoryAndForkProlongation has
// been called.
func (v *Vessel[F]) IsInitialized() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.initialized
}

// IsDirty reports whether the vessel's state was last set directly (by
// AdvanceTimeInBubble) rather than computed by the vessel's own
// integration (AdvanceTimeNotInBubble resets this).
func (v *Vessel[F]) IsDirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty
}

// SetDirty marks the vessel dirty, e.g. because some part of it moved
// for a reason the vessel's own integration doesn't know about.
func (v *Vessel[F]) SetDirty() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dirty = true
}

// Parent returns the name of the body the vessel is currently
// considered to orbit (used for patched-conic bookkeeping elsewhere,
// not by the integration itself).
func (v *Vessel[F]) Parent() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.parent
}

// SetParent updates the vessel's parent body.
func (v *Vessel[F]) SetParent(parent string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.parent = parent
}

// StepParameters returns the fixed and adaptive integration parameters
// the vessel was constructed or reconstructed with.
func (v *Vessel[F]) StepParameters() (fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep float64, adaptiveMaxSteps int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fixedStep, v.adaptiveLengthTolerance, v.adaptiveSpeedTolerance, v.adaptiveMinStep, v.adaptiveMaxStep, v.adaptiveMaxSteps
}

func (v *Vessel[F]) requireInitialized() {
	if !v.initialized {
		panic("vessel: use of an uninitialized vessel (is_initialized)")
	}
}

// History returns the vessel's authoritative trajectory. Panics if the
// vessel is not yet initialized.
func (v *Vessel[F]) History() *trajectory.DiscreteTrajectory[F] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requireInitialized()
	return v.history
}

// Prolongation returns the vessel's tentative tail, forked off history.
// Panics if the vessel is not yet initialized.
func (v *Vessel[F]) Prolongation() *trajectory.DiscreteTrajectory[F] {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requireInitialized()
	return v.prolongation
}

// HasPrediction reports whether a prediction fork currently exists.
func (v *Vessel[F]) HasPrediction() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.prediction != nil
}

// Prediction returns the vessel's current prediction fork. Panics if
// none exists.
func (v *Vessel[F]) Prediction() *trajectory.DiscreteTrajectory[F] {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.prediction == nil {
		panic("vessel: no prediction (has_prediction)")
	}
	return v.prediction
}

// CreateHistoryAndForkProlongation initializes the vessel at (t, dof):
// a fresh history with that one sample, and a prolongation forked at
// its last (only) point.
func (v *Vessel[F]) CreateHistoryAndForkProlongation(t trajectory.Instant, dof geometry.DegreesOfFreedom[F]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = trajectory.New[F]()
	v.history.Append(t, dof)
	v.prolongation = v.history.NewForkAtLast()
	v.initialized = true
}

// Reconstruct rebuilds a Vessel directly from previously persisted
// state, bypassing CreateHistoryAndForkProlongation's single-initial-
// sample assumption. prediction may be nil.
func Reconstruct[F any](
	name, parent string,
	eph *ephemeris.Ephemeris[F],
	fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep float64,
	adaptiveMaxSteps int,
	history, prolongation, prediction *trajectory.DiscreteTrajectory[F],
	dirty bool,
) *Vessel[F] {
	return &Vessel[F]{
		name: name, parent: parent, eph: eph,
		fixedStep:               fixedStep,
		adaptiveLengthTolerance: adaptiveLengthTolerance, adaptiveSpeedTolerance: adaptiveSpeedTolerance,
		adaptiveMinStep: adaptiveMinStep, adaptiveMaxStep: adaptiveMaxStep,
		adaptiveMaxSteps: adaptiveMaxSteps,
		initialized:      true,
		dirty:            dirty,
		history:          history,
		prolongation:     prolongation,
		prediction:       prediction,
	}
}

// accelFunc returns the acceleration felt by this (massless) vessel:
// purely the ephemeris's gravitational field, since a vessel carries no
// rigid-body intrinsic force of its own (that lives on pileup.Part for
// vessels currently stuck in a pile-up).
func (v *Vessel[F]) accelFunc() integrators.AccelerationFunc {
	return func(t float64, q []float64) []float64 {
		p := geometry.Point[F]{X: q[0], Y: q[1], Z: q[2]}
		a := v.eph.ComputeGravitationalAcceleration(trajectory.Instant(t), p)
		return []float64{a.X, a.Y, a.Z}
	}
}

// foldProlongationLocked makes the prolongation's tail authoritative by
// copying it onto history and deleting the fork.
func (v *Vessel[F]) foldProlongationLocked() {
	forkTime := v.prolongation.Fork().Time
	for _, s := range v.prolongation.Samples() {
		if s.Time > forkTime {
			v.history.Append(s.Time, s.DegreesOfFreedom)
		}
	}
	v.history.DeleteFork(v.prolongation)
}

// fixedStepHistoryLocked advances history by whole fixed steps up to
// (but not past) target, stopping early with FitStepsExceeded if more
// than adaptiveMaxSteps increments would be needed.
func (v *Vessel[F]) fixedStepHistoryLocked(target trajectory.Instant) trajectory.FitStatus {
	accel := v.accelFunc()
	last := v.history.Last()
	tCur := float64(last.Time)
	q := []float64{last.DegreesOfFreedom.Position.X, last.DegreesOfFreedom.Position.Y, last.DegreesOfFreedom.Position.Z}
	w := []float64{last.DegreesOfFreedom.Velocity.X, last.DegreesOfFreedom.Velocity.Y, last.DegreesOfFreedom.Velocity.Z}

	fixed := integrators.NewSymplecticOrder4(accel)
	var tAcc integrators.KahanSum
	tAcc.Add(tCur)
	qAcc := make([]integrators.KahanSum, len(q))
	for i, x := range q {
		qAcc[i].Add(x)
	}

	for steps := 0; tAcc.Value()+v.fixedStep <= float64(target); steps++ {
		if steps >= v.adaptiveMaxSteps {
			return trajectory.FitStepsExceeded
		}
		cur := tAcc.Value()
		_, qNew, wNew := fixed.Step(cur, v.fixedStep, q, w)
		tAcc.Add(v.fixedStep)
		for i := range qNew {
			qAcc[i].Add(qNew[i] - q[i])
			qNew[i] = qAcc[i].Value()
		}
		q, w = qNew, wNew
		v.history.Append(trajectory.Instant(tAcc.Value()), degreesOfFreedom[F](q, w))
	}
	return trajectory.FitOK
}

// advanceAdaptiveLocked integrates from the end of dest up to target
// with the adaptive stepper, appending onto dest.
func (v *Vessel[F]) advanceAdaptiveLocked(target trajectory.Instant, dest *trajectory.DiscreteTrajectory[F]) trajectory.FitStatus {
	status := trajectory.FitOK
	last := dest.Last()
	tCur := float64(last.Time)
	if tCur >= float64(target) {
		return status
	}
	q := []float64{last.DegreesOfFreedom.Position.X, last.DegreesOfFreedom.Position.Y, last.DegreesOfFreedom.Position.Z}
	w := []float64{last.DegreesOfFreedom.Velocity.X, last.DegreesOfFreedom.Velocity.Y, last.DegreesOfFreedom.Velocity.Z}

	adaptive := integrators.NewAdaptiveDormandPrince(v.accelFunc(), v.adaptiveLengthTolerance, v.adaptiveSpeedTolerance, v.adaptiveMinStep, v.adaptiveMaxStep)
	h := math.Min(v.adaptiveMaxStep, float64(target)-tCur)

	var tAcc integrators.KahanSum
	tAcc.Add(tCur)
	qAcc := make([]integrators.KahanSum, len(q))
	for i, x := range q {
		qAcc[i].Add(x)
	}

	for steps := 0; tAcc.Value() < float64(target); {
		if steps >= v.adaptiveMaxSteps {
			status = trajectory.FitStepsExceeded
			break
		}
		cur := tAcc.Value()
		step := math.Min(h, float64(target)-cur)
		tNew, qNew, wNew, hNext, s := adaptive.Step(cur, step, q, w)
		h = hNext
		if s == integrators.StepRejected {
			continue
		}
		steps++
		tAcc.Add(tNew - cur)
		for i := range qNew {
			qAcc[i].Add(qNew[i] - q[i])
			qNew[i] = qAcc[i].Value()
		}
		tCur, q, w = tAcc.Value(), qNew, wNew
		dest.Append(trajectory.Instant(tCur), degreesOfFreedom[F](q, w))
		if s == integrators.StepUnderflow && status == trajectory.FitOK {
			status = trajectory.FitToleranceNotMet
		}
	}
	return status
}

func degreesOfFreedom[F any](q, v []float64) geometry.DegreesOfFreedom[F] {
	return geometry.DegreesOfFreedom[F]{
		Position: geometry.Point[F]{X: q[0], Y: q[1], Z: q[2]},
		Velocity: geometry.Velocity[F]{X: v[0], Y: v[1], Z: v[2]},
	}
}

// AdvanceTimeInBubble is called while the vessel is mechanically
// coupled to others (inside a pile-up): history still advances by
// ephemeris-consistent fixed steps, but the prolongation's final point
// is simply set to whatever the pile-up computed, since within the
// bubble the vessel's own field integration is not authoritative.
func (v *Vessel[F]) AdvanceTimeInBubble(t trajectory.Instant, dof geometry.DegreesOfFreedom[F]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requireInitialized()

	v.discardPredictionLocked()
	v.foldProlongationLocked()
	v.fixedStepHistoryLocked(t)
	v.prolongation = v.history.NewForkAtLast()
	if v.prolongation.Last().Time < t {
		v.prolongation.Append(t, dof)
	}
	v.dirty = true
}

// AdvanceTimeNotInBubble integrates the vessel's own trajectory through
// the ephemeris's field up to t: fixed steps into history, then an
// adaptive remainder into a fresh prolongation fork.
func (v *Vessel[F]) AdvanceTimeNotInBubble(t trajectory.Instant) (trajectory.FitStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requireInitialized()

	v.discardPredictionLocked()
	v.foldProlongationLocked()
	status := v.fixedStepHistoryLocked(t)
	v.prolongation = v.history.NewForkAtLast()
	if status == trajectory.FitStepsExceeded {
		v.dirty = false
		return status, nil
	}
	status = v.advanceAdaptiveLocked(t, v.prolongation)
	v.dirty = false
	return status, nil
}

// discardPredictionLocked drops any prediction fork, since it becomes
// stale the moment the prolongation it was forked from is about to be
// folded away.
func (v *Vessel[F]) discardPredictionLocked() {
	if v.prediction == nil {
		return
	}
	v.prolongation.DeleteFork(v.prediction)
	v.prediction = nil
}

// UpdatePrediction replaces any existing prediction with a fresh
// adaptive-only integration, forked off the prolongation's last point,
// out to at least target.
func (v *Vessel[F]) UpdatePrediction(target trajectory.Instant) (trajectory.FitStatus, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requireInitialized()

	v.discardPredictionLocked()
	v.prediction = v.prolongation.NewForkAtLast()
	status := v.advanceAdaptiveLocked(target, v.prediction)
	return status, nil
}

// DeletePrediction discards the current prediction fork, if any.
func (v *Vessel[F]) DeletePrediction() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.discardPredictionLocked()
}
