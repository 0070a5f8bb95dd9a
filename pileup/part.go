package pileup

import (
	"sync"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/trajectory"
)

// Part is one rigid, possibly-thrusting, possibly-mass-shedding body
// that a PileUp aggregates. Its RigidMotion is owned by the PileUp while
// the part belongs to one (set by NudgeParts after every
// DeformAndAdvanceTime); the fields below are the part's intrinsic,
// pile-up-independent properties and are read by RecomputeFromParts.
type Part[F any] struct {
	Name string

	// Mass, in kilograms.
	Mass float64
	// InertiaTensor is the part's own moment of inertia about its
	// reference point, in its own RigidPart frame.
	InertiaTensor InertiaTensor[RigidPart]
	// IntrinsicForce is a force applied to the part from outside the
	// pile-up's own gravitational/internal mechanics (e.g. engine
	// thrust), in the pile-up's ambient frame F.
	IntrinsicForce geometry.Vector[F]
	// IntrinsicTorque is likewise an externally applied torque, in the
	// part's own RigidPart frame.
	IntrinsicTorque geometry.Bivector[RigidPart]
	// MassChangeRate is d(mass)/dt, in kilograms per second (negative
	// while an engine burns propellant). KSP varies a part's inertia
	// tensor proportionally to its mass, so this rate alone determines
	// the part's contribution to angular momentum drift as it burns.
	MassChangeRate float64

	mu      sync.Mutex
	motion  geometry.RigidMotion[RigidPart, F]
	history *trajectory.DiscreteTrajectory[F]
}

// NewPart returns a part at the given initial rigid motion (its
// placement in the ambient frame F).
func NewPart[F any](name string, mass float64, inertia InertiaTensor[RigidPart], motion geometry.RigidMotion[RigidPart, F]) *Part[F] {
	return &Part[F]{Name: name, Mass: mass, InertiaTensor: inertia, motion: motion}
}

// RigidMotion returns the part's current placement in F.
func (p *Part[F]) RigidMotion() geometry.RigidMotion[RigidPart, F] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.motion
}

// SetRigidMotion updates the part's placement in F; called by the
// owning PileUp's NudgeParts once per DeformAndAdvanceTime.
func (p *Part[F]) SetRigidMotion(m geometry.RigidMotion[RigidPart, F]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.motion = m
}

// History returns the part's own recorded trajectory in F, built up as
// its owning PileUp advances time. Nil until the first sample is
// recorded.
func (p *Part[F]) History() *trajectory.DiscreteTrajectory[F] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history
}

// appendSample records one more (time, degrees of freedom) sample to
// the part's own history, skipping a duplicate at a fold boundary where
// a psychohistory tail is re-delivered as part of the authoritative
// history.
func (p *Part[F]) appendSample(t trajectory.Instant, dof geometry.DegreesOfFreedom[F]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.history == nil {
		p.history = trajectory.New[F]()
	}
	if !p.history.Empty() && p.history.Last().Time >= t {
		return
	}
	p.history.Append(t, dof)
}
