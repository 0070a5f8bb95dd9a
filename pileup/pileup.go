package pileup

import (
	"fmt"
	"math"
	"sync"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/integrators"
	"github.com/anupshinde/principia/trajectory"
)

// PileUp is the mechanical system formed by several parts stuck
// together: it tracks one shared centre-of-mass trajectory, propagated
// through an ephemeris's gravitational field, and a per-part rigid
// motion relative to that centre of mass. Grounded directly on
// original_source/ksp_plugin/pile_up.cpp's PileUp class; one exclusive
// mutex per pile-up mirrors its absl::Mutex.
type PileUp[F any] struct {
	mu sync.Mutex

	parts []*Part[F]
	eph   *ephemeris.Ephemeris[F]

	fixedStep                                        float64
	adaptiveLengthTolerance, adaptiveSpeedTolerance  float64
	adaptiveMinStep, adaptiveMaxStep                 float64
	adaptiveMaxSteps                                 int

	history       *trajectory.DiscreteTrajectory[F]
	psychohistory *trajectory.DiscreteTrajectory[F]
	lastApplied   trajectory.Instant

	actualPartRigidMotion   map[*Part[F]]geometry.RigidMotion[RigidPart, NonRotatingPileUp]
	apparentPartRigidMotion map[*Part[F]]geometry.RigidMotion[RigidPart, ApparentBubble]

	angularMomentum geometry.Bivector[NonRotatingPileUp]

	mass                  float64
	intrinsicForce        geometry.Vector[F]
	intrinsicTorque       geometry.Bivector[NonRotatingPileUp]
	angularMomentumChange geometry.Bivector[NonRotatingPileUp]

	// ConserveAngularMomentum gates the rotational correction applied in
	// DeformPileUpIfNeeded. Mirrors the original's static
	// conserve_angular_momentum flag (also false by default there),
	// kept as an instance field rather than a package global so tests
	// can exercise both settings independently.
	ConserveAngularMomentum bool

	deletionCallback func()
}

// NewPileUp builds a pile-up out of parts at time t, propagated through
// eph with the given fixed (long-run, no-intrinsic-force) and adaptive
// (thrusting) step parameters. adaptiveLengthTolerance/
// adaptiveSpeedTolerance are the adaptive stepper's distinct position
// and velocity error tolerances; adaptiveMaxSteps bounds how many
// adaptive steps advanceAdaptive may take before giving up with
// FitStepsExceeded. deletionCallback, if non-nil, runs once when Close
// is called.
func NewPileUp[F any](
	parts []*Part[F],
	t trajectory.Instant,
	eph *ephemeris.Ephemeris[F],
	fixedStep float64,
	adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep float64,
	adaptiveMaxSteps int,
	deletionCallback func(),
) (*PileUp[F], error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("pileup: NewPileUp requires at least one part")
	}
	for _, p := range parts {
		if p.Mass <= 0 {
			return nil, fmt.Errorf("pileup: part %q has non-positive mass %v", p.Name, p.Mass)
		}
	}

	ms := NewMechanicalSystem[F, NonRotatingPileUp]()
	for _, p := range parts {
		ms.AddRigidBody(p.RigidMotion(), p.Mass, p.InertiaTensor)
	}
	barycentre := ms.CentreOfMass()

	history := trajectory.New[F]()
	history.Append(t, barycentre)

	angularMomentum := ms.AngularMomentum()
	barycentricToPileUp := ms.LinearMotion().Inverse()

	actual := make(map[*Part[F]]geometry.RigidMotion[RigidPart, NonRotatingPileUp], len(parts))
	for _, p := range parts {
		actual[p] = geometry.ComposeRigidMotion[RigidPart, F, NonRotatingPileUp](barycentricToPileUp, p.RigidMotion())
	}

	pu := &PileUp[F]{
		parts:                   append([]*Part[F](nil), parts...),
		eph:                     eph,
		fixedStep:               fixedStep,
		adaptiveLengthTolerance: adaptiveLengthTolerance,
		adaptiveSpeedTolerance:  adaptiveSpeedTolerance,
		adaptiveMinStep:         adaptiveMinStep,
		adaptiveMaxStep:         adaptiveMaxStep,
		adaptiveMaxSteps:        adaptiveMaxSteps,
		history:                 history,
		lastApplied:             t,
		actualPartRigidMotion:   actual,
		apparentPartRigidMotion: make(map[*Part[F]]geometry.RigidMotion[RigidPart, ApparentBubble]),
		angularMomentum:         angularMomentum,
		deletionCallback:        deletionCallback,
	}
	pu.psychohistory = pu.history.NewForkAtLast()
	pu.recomputeFromPartsLocked()
	return pu, nil
}

// Parts returns the pile-up's parts.
func (pu *PileUp[F]) Parts() []*Part[F] {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	return append([]*Part[F](nil), pu.parts...)
}

// Close runs the deletion callback, if any was supplied to NewPileUp.
func (pu *PileUp[F]) Close() {
	if pu.deletionCallback != nil {
		pu.deletionCallback()
	}
}

// SetPartApparentRigidMotion records the game-reported placement of
// part within this time step's "apparent bubble". Must be called at
// most once per part between two DeformAndAdvanceTime calls.
func (pu *PileUp[F]) SetPartApparentRigidMotion(part *Part[F], motion geometry.RigidMotion[RigidPart, ApparentBubble]) error {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	if _, exists := pu.apparentPartRigidMotion[part]; exists {
		return fmt.Errorf("pileup: duplicate apparent rigid motion for part %q", part.Name)
	}
	pu.apparentPartRigidMotion[part] = motion
	return nil
}

// RecomputeFromParts refreshes the pile-up's aggregate mass, intrinsic
// force/torque, and angular-momentum-change accumulators from its
// parts' current intrinsic properties. Callers that mutate a part's
// IntrinsicForce, IntrinsicTorque, or MassChangeRate (e.g. an engine
// changing throttle) must call this before the next
// DeformAndAdvanceTime.
func (pu *PileUp[F]) RecomputeFromParts() {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	pu.recomputeFromPartsLocked()
}

func (pu *PileUp[F]) recomputeFromPartsLocked() {
	var mass float64
	var force geometry.Vector[F]
	var torque geometry.Bivector[NonRotatingPileUp]
	var angularMomentumChange geometry.Bivector[NonRotatingPileUp]

	toNRP := geometry.Identity[F, NonRotatingPileUp]()

	for _, part := range pu.parts {
		mass += part.Mass
		force = force.Add(part.IntrinsicForce)

		actual := pu.actualPartRigidMotion[part]
		partDof := actual.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[RigidPart]{})
		lever := partDof.Position.Sub(geometry.Point[NonRotatingPileUp]{})

		forceInNRP := toNRP.ApplyVector(part.IntrinsicForce)
		torque = torque.
			Add(geometry.Wedge(lever, forceInNRP)).
			Add(actual.Rotation().ApplyBivector(part.IntrinsicTorque))

		rotatedInertia := RotateInertiaTensor[RigidPart, NonRotatingPileUp](actual.Rotation(), part.InertiaTensor)
		partOmega := actual.AngularVelocityOfToFrame()

		massVelocityTerm := geometry.Wedge(lever, partDof.Velocity.Scale(part.MassChangeRate).AsVector())
		spinTerm := rotatedInertia.Apply(partOmega).Scale(part.MassChangeRate / part.Mass)
		angularMomentumChange = angularMomentumChange.Add(massVelocityTerm).Add(spinTerm)
	}

	pu.mass = mass
	pu.intrinsicForce = force
	pu.intrinsicTorque = torque
	pu.angularMomentumChange = angularMomentumChange
}

// DeformAndAdvanceTime is the pile-up's per-frame entry point: if the
// psychohistory isn't already caught up to t, it corrects the parts'
// motions for momentum conservation (if new apparent motions arrived),
// advances the shared trajectory to t, and nudges every part's
// RigidMotion to match.
func (pu *PileUp[F]) DeformAndAdvanceTime(t trajectory.Instant) (trajectory.FitStatus, error) {
	pu.mu.Lock()
	defer pu.mu.Unlock()

	if pu.psychohistory.Last().Time >= t {
		return trajectory.FitOK, nil
	}

	pu.deformPileUpIfNeeded()
	status, err := pu.advanceTime(t)
	if err != nil {
		return status, err
	}
	pu.nudgeParts()
	return status, nil
}

// deformPileUpIfNeeded applies the angular-momentum-conserving
// rotational correction described in DESIGN.md's pileup entry: the
// game-reported apparent motions are rigidly rotated so that the
// resulting actual motions carry the pile-up's authoritative angular
// momentum, not whatever the game happened to report.
func (pu *PileUp[F]) deformPileUpIfNeeded() {
	if len(pu.apparentPartRigidMotion) == 0 {
		return
	}
	if len(pu.apparentPartRigidMotion) != len(pu.parts) {
		panic("pileup: SetPartApparentRigidMotion was not called for every part")
	}

	apparentSystem := NewMechanicalSystem[ApparentBubble, apparentPileUpFrame]()
	for part, motion := range pu.apparentPartRigidMotion {
		apparentSystem.AddRigidBody(motion, part.Mass, part.InertiaTensor)
	}
	apparentAngularMomentum := apparentSystem.AngularMomentum()
	inertiaTensor := apparentSystem.InertiaTensor()

	apparentEquivalentOmega := inertiaTensor.ApplyInverse(apparentAngularMomentum)
	inertiaInNRP := RotateInertiaTensor[apparentPileUpFrame, NonRotatingPileUp](
		geometry.Identity[apparentPileUpFrame, NonRotatingPileUp](), inertiaTensor)
	actualEquivalentOmega := inertiaInNRP.ApplyInverse(pu.angularMomentum)

	var apparentOmegaInEquivalent geometry.Bivector[equivalentRigidFrame]
	var actualOmegaInEquivalent geometry.Bivector[equivalentRigidFrame]
	if pu.ConserveAngularMomentum {
		// The equivalent frame co-rotates with the equivalent rigid body,
		// so each pile-up frame turns at minus that rate relative to it.
		apparentOmegaInEquivalent = geometry.Identity[apparentPileUpFrame, equivalentRigidFrame]().ApplyBivector(apparentEquivalentOmega).Scale(-1)
		actualOmegaInEquivalent = geometry.Identity[NonRotatingPileUp, equivalentRigidFrame]().ApplyBivector(actualEquivalentOmega).Scale(-1)
	}

	apparentRotation := geometry.MakeRigidMotion[apparentPileUpFrame, equivalentRigidFrame](
		geometry.Identity[apparentPileUpFrame, equivalentRigidFrame](),
		geometry.Point[equivalentRigidFrame]{}, geometry.Velocity[equivalentRigidFrame]{},
		apparentOmegaInEquivalent)
	actualRotation := geometry.MakeRigidMotion[NonRotatingPileUp, equivalentRigidFrame](
		geometry.Identity[NonRotatingPileUp, equivalentRigidFrame](),
		geometry.Point[equivalentRigidFrame]{}, geometry.Velocity[equivalentRigidFrame]{},
		actualOmegaInEquivalent)

	step1 := geometry.ComposeRigidMotion[ApparentBubble, apparentPileUpFrame, equivalentRigidFrame](
		apparentRotation, apparentSystem.LinearMotion().Inverse())
	apparentBubbleToPileUp := geometry.ComposeRigidMotion[ApparentBubble, equivalentRigidFrame, NonRotatingPileUp](
		actualRotation.Inverse(), step1)

	pu.actualPartRigidMotion = make(map[*Part[F]]geometry.RigidMotion[RigidPart, NonRotatingPileUp], len(pu.parts))
	for part, apparent := range pu.apparentPartRigidMotion {
		pu.actualPartRigidMotion[part] = geometry.ComposeRigidMotion[RigidPart, ApparentBubble, NonRotatingPileUp](apparentBubbleToPileUp, apparent)
	}
	pu.apparentPartRigidMotion = make(map[*Part[F]]geometry.RigidMotion[RigidPart, ApparentBubble])
	pu.recomputeFromPartsLocked()
}

// fieldAccel returns the acceleration felt by the pile-up's barycentre:
// the ephemeris's gravitational field plus, if present, the intrinsic
// force distributed over the pile-up's total mass.
func (pu *PileUp[F]) fieldAccel() integrators.AccelerationFunc {
	return func(t float64, q []float64) []float64 {
		p := geometry.Point[F]{X: q[0], Y: q[1], Z: q[2]}
		a := pu.eph.ComputeGravitationalAcceleration(trajectory.Instant(t), p)
		if pu.hasIntrinsicForce() {
			a = a.Add(pu.intrinsicForce.Scale(1 / pu.mass))
		}
		return []float64{a.X, a.Y, a.Z}
	}
}

func (pu *PileUp[F]) hasIntrinsicForce() bool {
	return pu.intrinsicForce != (geometry.Vector[F]{})
}

// advanceTime propagates the shared trajectory from its last recorded
// time to t: a fast fixed-step symplectic integration when no intrinsic
// force is acting (matching the original's FlowWithFixedStep branch),
// falling back to (or, under thrust, using exclusively) the adaptive
// stepper (the original's FlowWithAdaptiveStep branch).
func (pu *PileUp[F]) advanceTime(target trajectory.Instant) (trajectory.FitStatus, error) {
	dt := float64(target - pu.psychohistory.Last().Time)
	pu.angularMomentum = pu.angularMomentum.
		Add(pu.intrinsicTorque.Scale(dt)).
		Add(pu.angularMomentumChange.Scale(dt))

	pu.foldPsychohistory()
	accel := pu.fieldAccel()
	status := trajectory.FitOK

	if !pu.hasIntrinsicForce() {
		last := pu.history.Last()
		tCur := float64(last.Time)
		q := []float64{last.DegreesOfFreedom.Position.X, last.DegreesOfFreedom.Position.Y, last.DegreesOfFreedom.Position.Z}
		v := []float64{last.DegreesOfFreedom.Velocity.X, last.DegreesOfFreedom.Velocity.Y, last.DegreesOfFreedom.Velocity.Z}

		fixed := integrators.NewSymplecticOrder4(accel)
		var tAcc integrators.KahanSum
		tAcc.Add(tCur)
		qAcc := make([]integrators.KahanSum, len(q))
		for i, x := range q {
			qAcc[i].Add(x)
		}
		steps := 0
		for tAcc.Value()+pu.fixedStep <= float64(target) {
			if steps >= pu.adaptiveMaxSteps {
				status = trajectory.FitStepsExceeded
				break
			}
			steps++
			cur := tAcc.Value()
			_, qNew, vNew := fixed.Step(cur, pu.fixedStep, q, v)
			tAcc.Add(pu.fixedStep)
			for i := range qNew {
				qAcc[i].Add(qNew[i] - q[i])
				qNew[i] = qAcc[i].Value()
			}
			q, v = qNew, vNew
			tCur = tAcc.Value()
			pu.history.Append(trajectory.Instant(tCur), packDoF[F](q, v))
		}
		pu.psychohistory = pu.history.NewForkAtLast()
		if status != trajectory.FitStepsExceeded && tCur < float64(target) {
			status = pu.advanceAdaptive(target, tCur, q, v, accel, pu.psychohistory)
		}
	} else {
		last := pu.history.Last()
		status = pu.advanceAdaptive(target, float64(last.Time),
			[]float64{last.DegreesOfFreedom.Position.X, last.DegreesOfFreedom.Position.Y, last.DegreesOfFreedom.Position.Z},
			[]float64{last.DegreesOfFreedom.Velocity.X, last.DegreesOfFreedom.Velocity.Y, last.DegreesOfFreedom.Velocity.Z},
			accel, pu.history)
		pu.psychohistory = pu.history.NewForkAtLast()
	}

	pu.appendToParts()
	return status, nil
}

// foldPsychohistory makes the psychohistory's tail authoritative by
// copying it onto history and deleting the fork, mirroring the
// original's "DeleteFork(psychohistory_)" before a fresh integration.
func (pu *PileUp[F]) foldPsychohistory() {
	forkTime := pu.psychohistory.Fork().Time
	for _, s := range pu.psychohistory.Samples() {
		if s.Time > forkTime {
			pu.history.Append(s.Time, s.DegreesOfFreedom)
		}
	}
	pu.history.DeleteFork(pu.psychohistory)
}

func (pu *PileUp[F]) advanceAdaptive(target trajectory.Instant, tCur float64, q, v []float64, accel integrators.AccelerationFunc, dest *trajectory.DiscreteTrajectory[F]) trajectory.FitStatus {
	status := trajectory.FitOK
	if tCur >= float64(target) {
		return status
	}
	adaptive := integrators.NewAdaptiveDormandPrince(accel, pu.adaptiveLengthTolerance, pu.adaptiveSpeedTolerance, pu.adaptiveMinStep, pu.adaptiveMaxStep)
	h := math.Min(pu.adaptiveMaxStep, float64(target)-tCur)

	var tAcc integrators.KahanSum
	tAcc.Add(tCur)
	qAcc := make([]integrators.KahanSum, len(q))
	for i, x := range q {
		qAcc[i].Add(x)
	}

	for steps := 0; tAcc.Value() < float64(target); {
		if steps >= pu.adaptiveMaxSteps {
			status = trajectory.FitStepsExceeded
			break
		}
		cur := tAcc.Value()
		step := math.Min(h, float64(target)-cur)
		tNew, qNew, vNew, hNext, s := adaptive.Step(cur, step, q, v)
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
		tCur, q, v = tAcc.Value(), qNew, vNew
		dest.Append(trajectory.Instant(tCur), packDoF[F](q, v))
		if s == integrators.StepUnderflow && status == trajectory.FitOK {
			status = trajectory.FitToleranceNotMet
		}
	}
	return status
}

func packDoF[F any](q, v []float64) geometry.DegreesOfFreedom[F] {
	return geometry.DegreesOfFreedom[F]{
		Position: geometry.Point[F]{X: q[0], Y: q[1], Z: q[2]},
		Velocity: geometry.Velocity[F]{X: v[0], Y: v[1], Z: v[2]},
	}
}

// barycentricToPileUpMotion returns the rigid motion F -> NonRotatingPileUp
// that places the barycentre at rest at NonRotatingPileUp's origin.
func barycentricToPileUpMotion[F any](dof geometry.DegreesOfFreedom[F]) geometry.RigidMotion[F, NonRotatingPileUp] {
	return geometry.MakeRigidMotion[F, NonRotatingPileUp](
		geometry.Identity[F, NonRotatingPileUp](),
		geometry.Point[NonRotatingPileUp]{X: -dof.Position.X, Y: -dof.Position.Y, Z: -dof.Position.Z},
		geometry.Velocity[NonRotatingPileUp]{X: -dof.Velocity.X, Y: -dof.Velocity.Y, Z: -dof.Velocity.Z},
		geometry.Bivector[NonRotatingPileUp]{},
	)
}

// appendToParts propagates every newly-recorded barycentre sample since
// the last call down to each part's own trajectory, via the part's
// actual (post-correction) rigid motion relative to the barycentre.
func (pu *PileUp[F]) appendToParts() {
	for _, s := range pu.psychohistory.Samples() {
		if s.Time <= pu.lastApplied {
			continue
		}
		pileUpToBarycentric := barycentricToPileUpMotion(s.DegreesOfFreedom).Inverse()
		for _, part := range pu.parts {
			actual := pu.actualPartRigidMotion[part]
			dofInNRP := actual.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[RigidPart]{})
			dofInF := pileUpToBarycentric.TransformDegreesOfFreedom(dofInNRP)
			part.appendSample(s.Time, dofInF)
		}
		pu.lastApplied = s.Time
	}
}

// nudgeParts sets every part's live RigidMotion from the psychohistory's
// latest (possibly non-authoritative) barycentre sample, so callers
// reading Part.RigidMotion see the pile-up's current kinematic state.
func (pu *PileUp[F]) nudgeParts() {
	last := pu.psychohistory.Last()
	pileUpToBarycentric := barycentricToPileUpMotion(last.DegreesOfFreedom).Inverse()
	for _, part := range pu.parts {
		actual := pu.actualPartRigidMotion[part]
		motion := geometry.ComposeRigidMotion[RigidPart, NonRotatingPileUp, F](pileUpToBarycentric, actual)
		part.SetRigidMotion(motion)
	}
}

// Barycentre returns the pile-up's last-known centre-of-mass degrees of
// freedom.
func (pu *PileUp[F]) Barycentre() geometry.DegreesOfFreedom[F] {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	return pu.psychohistory.Last().DegreesOfFreedom
}

// AngularMomentum returns the pile-up's currently tracked (authoritative)
// angular momentum about its barycentre, in NonRotatingPileUp.
func (pu *PileUp[F]) AngularMomentum() geometry.Bivector[NonRotatingPileUp] {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	return pu.angularMomentum
}

// Time returns the instant the pile-up's psychohistory last reached, for
// serialization (the instant NewPileUp must be rebuilt at to resume).
func (pu *PileUp[F]) Time() trajectory.Instant {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	return pu.psychohistory.Last().Time
}

// StepParameters returns the fixed and adaptive integration parameters
// this pile-up was constructed with, for serialization.
func (pu *PileUp[F]) StepParameters() (fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep float64, adaptiveMaxSteps int) {
	pu.mu.Lock()
	defer pu.mu.Unlock()
	return pu.fixedStep, pu.adaptiveLengthTolerance, pu.adaptiveSpeedTolerance, pu.adaptiveMinStep, pu.adaptiveMaxStep, pu.adaptiveMaxSteps
}
