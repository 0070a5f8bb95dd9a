// Package pileup implements the mechanical system formed when several
// parts are rigidly stuck together: a shared centre-of-mass trajectory,
// an angular-momentum-conserving correction whenever the game reports new
// (possibly inconsistent) part placements, and propagation of the whole
// assembly through an ephemeris's gravitational field.
//
// Frames, following package geometry's phantom-type-parameter
// convention: RigidPart is a part's own body-fixed frame,
// NonRotatingPileUp is the pile-up's centre-of-mass frame (translating
// with the barycentre, not rotating), and ApparentBubble is the frame in
// which the game reports part placements before they are corrected for
// momentum conservation.
package pileup

import "github.com/anupshinde/principia/geometry"

// RigidPart is a part's own body-fixed frame: the origin is the part's
// reference point, at rest.
type RigidPart struct{}

// NonRotatingPileUp is the pile-up's centre-of-mass frame: translating
// with the barycentre, axes fixed relative to the frame the pile-up was
// constructed in.
type NonRotatingPileUp struct{}

// ApparentBubble is the frame in which the game reports part placements,
// before DeformPileUpIfNeeded corrects them for momentum conservation.
type ApparentBubble struct{}

// apparentPileUpFrame and equivalentRigidFrame are local bookkeeping
// frames used only inside DeformPileUpIfNeeded's rotational-correction
// algebra; they never escape the package.
type apparentPileUpFrame struct{}
type equivalentRigidFrame struct{}

// InertiaTensor is the symmetric 3x3 moment-of-inertia tensor of a rigid
// body in frame F, relating angular velocity to angular momentum.
type InertiaTensor[F any] struct {
	m [3][3]float64
}

// NewInertiaTensorDiagonal returns the inertia tensor of a body whose
// principal axes coincide with F's axes.
func NewInertiaTensorDiagonal[F any](ixx, iyy, izz float64) InertiaTensor[F] {
	return InertiaTensor[F]{m: [3][3]float64{
		{ixx, 0, 0},
		{0, iyy, 0},
		{0, 0, izz},
	}}
}

// Matrix returns the tensor's raw symmetric 3x3 matrix, for
// serialization's exact round-trip.
func (t InertiaTensor[F]) Matrix() [3][3]float64 { return t.m }

// InertiaTensorFromMatrix reconstructs an InertiaTensor from a
// previously persisted matrix.
func InertiaTensorFromMatrix[F any](m [3][3]float64) InertiaTensor[F] {
	return InertiaTensor[F]{m: m}
}

// Add returns the sum of two inertia tensors, as used when combining
// several rigid bodies' contributions about a common point.
func (t InertiaTensor[F]) Add(o InertiaTensor[F]) InertiaTensor[F] {
	var out InertiaTensor[F]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = t.m[i][j] + o.m[i][j]
		}
	}
	return out
}

// Scale returns the tensor scaled by s.
func (t InertiaTensor[F]) Scale(s float64) InertiaTensor[F] {
	var out InertiaTensor[F]
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.m[i][j] = t.m[i][j] * s
		}
	}
	return out
}

// Apply returns the angular momentum L = I*omega for angular velocity
// omega.
func (t InertiaTensor[F]) Apply(omega geometry.Bivector[F]) geometry.Bivector[F] {
	m := t.m
	return geometry.Bivector[F]{
		X: m[0][0]*omega.X + m[0][1]*omega.Y + m[0][2]*omega.Z,
		Y: m[1][0]*omega.X + m[1][1]*omega.Y + m[1][2]*omega.Z,
		Z: m[2][0]*omega.X + m[2][1]*omega.Y + m[2][2]*omega.Z,
	}
}

// ApplyInverse solves I*omega = L for omega, via Cramer's rule; a
// physical inertia tensor is always invertible, so no library beyond a
// closed-form 3x3 solve is warranted here.
func (t InertiaTensor[F]) ApplyInverse(l geometry.Bivector[F]) geometry.Bivector[F] {
	m := t.m
	det3 := func(a [3][3]float64) float64 {
		return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
			a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
			a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	}
	det := det3(m)
	solveCol := func(col int) float64 {
		a := m
		a[0][col], a[1][col], a[2][col] = l.X, l.Y, l.Z
		return det3(a) / det
	}
	return geometry.Bivector[F]{X: solveCol(0), Y: solveCol(1), Z: solveCol(2)}
}

// RotateInertiaTensor re-expresses an inertia tensor known in frame From
// into frame To, conjugating by rot: I' = R I R^-1. Implemented via
// rot's Inverse and bivector application rather than raw matrix access.
func RotateInertiaTensor[From, To any](rot geometry.Rotation[From, To], t InertiaTensor[From]) InertiaTensor[To] {
	inv := rot.Inverse()
	basis := [3]geometry.Bivector[To]{{X: 1}, {Y: 1}, {Z: 1}}
	var out InertiaTensor[To]
	for j, e := range basis {
		vFrom := inv.ApplyBivector(e)
		uFrom := t.Apply(vFrom)
		col := rot.ApplyBivector(uFrom)
		out.m[0][j] = col.X
		out.m[1][j] = col.Y
		out.m[2][j] = col.Z
	}
	return out
}

// parallelAxisTerm returns a point mass's contribution m*(|r|^2 I -
// r r^T) to a system's inertia tensor about a point displaced by r from
// the mass's own centre of mass (the parallel axis theorem).
func parallelAxisTerm[F any](mass float64, r geometry.Vector[F]) InertiaTensor[F] {
	r2 := r.Dot(r)
	return InertiaTensor[F]{m: [3][3]float64{
		{mass * (r2 - r.X*r.X), mass * (-r.X * r.Y), mass * (-r.X * r.Z)},
		{mass * (-r.Y * r.X), mass * (r2 - r.Y*r.Y), mass * (-r.Y * r.Z)},
		{mass * (-r.Z * r.X), mass * (-r.Z * r.Y), mass * (r2 - r.Z*r.Z)},
	}}
}

// msEntry is one rigid body added to a MechanicalSystem: its placement
// (RigidPart -> From), mass, and inertia tensor in its own RigidPart
// frame.
type msEntry[From any] struct {
	motion        geometry.RigidMotion[RigidPart, From]
	mass          float64
	inertiaTensor InertiaTensor[RigidPart]
}

// MechanicalSystem combines several rigid bodies, placed in frame From,
// into the aggregate mechanics of the system they form: centre of mass,
// total angular momentum, combined inertia tensor, and the rigid motion
// of a frame (named To) comoving with and centred on the barycentre.
// Mirrors the original's MechanicalSystem<Frame1,Frame2>, generalized
// from its template parameters onto Go's type parameters.
type MechanicalSystem[From, To any] struct {
	entries []msEntry[From]
}

// NewMechanicalSystem returns an empty system.
func NewMechanicalSystem[From, To any]() *MechanicalSystem[From, To] {
	return &MechanicalSystem[From, To]{}
}

// AddRigidBody adds one rigid body, placed in From by motion, to the
// system.
func (s *MechanicalSystem[From, To]) AddRigidBody(motion geometry.RigidMotion[RigidPart, From], mass float64, inertia InertiaTensor[RigidPart]) {
	s.entries = append(s.entries, msEntry[From]{motion, mass, inertia})
}

// CentreOfMass returns the mass-weighted barycentre position and
// velocity, in From.
func (s *MechanicalSystem[From, To]) CentreOfMass() geometry.DegreesOfFreedom[From] {
	var totalMass float64
	var posAccum geometry.Vector[From]
	var velAccum geometry.Velocity[From]
	for _, e := range s.entries {
		dof := e.motion.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[RigidPart]{})
		totalMass += e.mass
		posAccum = posAccum.Add(dof.Position.Sub(geometry.Point[From]{}).Scale(e.mass))
		velAccum = velAccum.Add(dof.Velocity.Scale(e.mass))
	}
	inv := 1 / totalMass
	return geometry.DegreesOfFreedom[From]{
		Position: geometry.Point[From]{}.Add(posAccum.Scale(inv)),
		Velocity: velAccum.Scale(inv),
	}
}

// LinearMotion returns the rigid motion of the non-rotating, barycentre-
// comoving frame To, as observed in From: To's origin sits at the
// barycentre, translating with it, never rotating.
func (s *MechanicalSystem[From, To]) LinearMotion() geometry.RigidMotion[To, From] {
	bc := s.CentreOfMass()
	return geometry.MakeRigidMotion[To, From](
		geometry.Identity[To, From](),
		bc.Position,
		bc.Velocity,
		geometry.Bivector[From]{},
	)
}

// AngularMomentum returns the system's total angular momentum about its
// barycentre, expressed in To.
func (s *MechanicalSystem[From, To]) AngularMomentum() geometry.Bivector[To] {
	bc := s.CentreOfMass()
	relabel := geometry.Identity[From, To]()
	var total geometry.Bivector[To]
	for _, e := range s.entries {
		dof := e.motion.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[RigidPart]{})
		r := relabel.ApplyVector(dof.Position.Sub(bc.Position))
		v := relabel.ApplyVector(dof.Velocity.Sub(bc.Velocity).AsVector())

		rot := geometry.ComposeRotation[RigidPart, From, To](relabel, e.motion.Rotation())
		inertiaInTo := RotateInertiaTensor(rot, e.inertiaTensor)
		omegaInTo := relabel.ApplyBivector(e.motion.AngularVelocityOfToFrame())

		total = total.Add(geometry.Wedge(r, v.Scale(e.mass))).Add(inertiaInTo.Apply(omegaInTo))
	}
	return total
}

// InertiaTensor returns the system's combined inertia tensor about its
// barycentre, expressed in To (parallel-axis-shifted and rotated from
// each body's own RigidPart tensor).
func (s *MechanicalSystem[From, To]) InertiaTensor() InertiaTensor[To] {
	bc := s.CentreOfMass()
	relabel := geometry.Identity[From, To]()
	var total InertiaTensor[To]
	for _, e := range s.entries {
		dof := e.motion.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[RigidPart]{})
		r := relabel.ApplyVector(dof.Position.Sub(bc.Position))
		rot := geometry.ComposeRotation[RigidPart, From, To](relabel, e.motion.Rotation())
		total = total.Add(RotateInertiaTensor(rot, e.inertiaTensor)).Add(parallelAxisTerm[To](e.mass, r))
	}
	return total
}
