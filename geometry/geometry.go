// Package geometry is the minimal affine/vector algebra surface the
// trajectory, ephemeris, and pile-up packages need: points, displacement
// vectors, bivectors (axial quantities such as angular velocity and
// angular momentum), and rigid motions between frames.
//
// Frames are phantom type parameters (spec.md §9: "a language with
// parametric polymorphism achieves [frame safety] via generic type
// parameters"): Point[Barycentric] and Point[NonRotatingPileUp] are
// distinct types, and the compiler rejects mixing them without an
// explicit RigidMotion. Components are plain float64 in SI base units
// (metres, seconds, radians); this package is the "out of scope"
// linear-algebra collaborator reduced to the surface this repository
// actually needs (see DESIGN.md).
package geometry

import "math"

// Point is an affine position in frame F, in metres.
type Point[F any] struct {
	X, Y, Z float64
}

// Vector is a displacement (or any length-dimensioned free vector) in
// frame F, in metres.
type Vector[F any] struct {
	X, Y, Z float64
}

// Velocity is a velocity in frame F, in metres per second.
type Velocity[F any] struct {
	X, Y, Z float64
}

// Bivector is an oriented-plane (axial) quantity in frame F: angular
// velocity (rad/s), angular momentum (kg m^2/s), or torque (N m)
// depending on context; the unit is documented at each call site.
type Bivector[F any] struct {
	X, Y, Z float64
}

// DegreesOfFreedom is a (position, velocity) pair in frame F.
type DegreesOfFreedom[F any] struct {
	Position Point[F]
	Velocity Velocity[F]
}

func (p Point[F]) Add(v Vector[F]) Point[F] {
	return Point[F]{p.X + v.X, p.Y + v.Y, p.Z + v.Z}
}

func (p Point[F]) Sub(o Point[F]) Vector[F] {
	return Vector[F]{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

func (v Vector[F]) Add(o Vector[F]) Vector[F] {
	return Vector[F]{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector[F]) Sub(o Vector[F]) Vector[F] {
	return Vector[F]{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vector[F]) Scale(s float64) Vector[F] {
	return Vector[F]{v.X * s, v.Y * s, v.Z * s}
}

func (v Vector[F]) Neg() Vector[F] { return v.Scale(-1) }

func (v Vector[F]) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func (v Vector[F]) Dot(o Vector[F]) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the vector cross product v x o.
func (v Vector[F]) Cross(o Vector[F]) Vector[F] {
	return Vector[F]{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Wedge returns the bivector (axial vector) v ∧ o; in three dimensions
// this coincides numerically with the cross product.
func Wedge[F any](v, o Vector[F]) Bivector[F] {
	c := v.Cross(o)
	return Bivector[F]{c.X, c.Y, c.Z}
}

func (b Bivector[F]) Add(o Bivector[F]) Bivector[F] {
	return Bivector[F]{b.X + o.X, b.Y + o.Y, b.Z + o.Z}
}

func (b Bivector[F]) Sub(o Bivector[F]) Bivector[F] {
	return Bivector[F]{b.X - o.X, b.Y - o.Y, b.Z - o.Z}
}

func (b Bivector[F]) Scale(s float64) Bivector[F] {
	return Bivector[F]{b.X * s, b.Y * s, b.Z * s}
}

func (b Bivector[F]) Norm() float64 {
	return math.Sqrt(b.X*b.X + b.Y*b.Y + b.Z*b.Z)
}

// Cross returns omega x v, the velocity contribution of a frame rotating
// at angular velocity omega at the point displaced by v from its axis.
func (b Bivector[F]) Cross(v Vector[F]) Vector[F] {
	return Vector[F]{
		b.Y*v.Z - b.Z*v.Y,
		b.Z*v.X - b.X*v.Z,
		b.X*v.Y - b.Y*v.X,
	}
}

func (v Velocity[F]) Add(o Velocity[F]) Velocity[F] {
	return Velocity[F]{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Velocity[F]) Sub(o Velocity[F]) Velocity[F] {
	return Velocity[F]{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Velocity[F]) Scale(s float64) Velocity[F] {
	return Velocity[F]{v.X * s, v.Y * s, v.Z * s}
}

func (v Velocity[F]) AsVector() Vector[F] { return Vector[F]{v.X, v.Y, v.Z} }

func VelocityFromVector[F any](v Vector[F]) Velocity[F] { return Velocity[F]{v.X, v.Y, v.Z} }

// Rotation is an orthogonal map from frame From to frame To: Apply
// rotates a free vector without translating it.
type Rotation[From, To any] struct {
	m [3][3]float64
}

// Identity returns the identity rotation.
func Identity[From, To any]() Rotation[From, To] {
	return Rotation[From, To]{m: [3][3]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}}
}

// RotationAboutAxis returns the rotation by angle (radians) about the
// given (not necessarily unit) axis, right-handed.
func RotationAboutAxis[From, To any](axis Vector[From], angleRad float64) Rotation[From, To] {
	n := axis.Norm()
	if n == 0 {
		return Identity[From, To]()
	}
	ux, uy, uz := axis.X/n, axis.Y/n, axis.Z/n
	s, c := math.Sincos(angleRad)
	t := 1 - c
	return Rotation[From, To]{m: [3][3]float64{
		{t*ux*ux + c, t*ux*uy - s*uz, t*ux*uz + s*uy},
		{t*ux*uy + s*uz, t*uy*uy + c, t*uy*uz - s*ux},
		{t*ux*uz - s*uy, t*uy*uz + s*ux, t*uz*uz + c},
	}}
}

// Matrix returns the rotation's raw 3x3 orthogonal matrix, for
// serialization's exact round-trip (Rotation carries no other
// accessible representation such as a quaternion or axis-angle pair).
func (r Rotation[From, To]) Matrix() [3][3]float64 { return r.m }

// RotationFromMatrix reconstructs a Rotation from a previously persisted
// matrix. The caller is responsible for the matrix being orthogonal;
// this is a deserialization helper, not a general-purpose constructor.
func RotationFromMatrix[From, To any](m [3][3]float64) Rotation[From, To] {
	return Rotation[From, To]{m: m}
}

func (r Rotation[From, To]) applyRaw(x, y, z float64) (float64, float64, float64) {
	m := r.m
	return m[0][0]*x + m[0][1]*y + m[0][2]*z,
		m[1][0]*x + m[1][1]*y + m[1][2]*z,
		m[2][0]*x + m[2][1]*y + m[2][2]*z
}

func (r Rotation[From, To]) ApplyVector(v Vector[From]) Vector[To] {
	x, y, z := r.applyRaw(v.X, v.Y, v.Z)
	return Vector[To]{x, y, z}
}

func (r Rotation[From, To]) ApplyBivector(b Bivector[From]) Bivector[To] {
	x, y, z := r.applyRaw(b.X, b.Y, b.Z)
	return Bivector[To]{x, y, z}
}

// Inverse returns the inverse (transpose) rotation.
func (r Rotation[From, To]) Inverse() Rotation[To, From] {
	m := r.m
	return Rotation[To, From]{m: [3][3]float64{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}}
}

// ComposeRotation returns the rotation equivalent to applying inner then
// outer: From -> Via -> To.
func ComposeRotation[From, Via, To any](outer Rotation[Via, To], inner Rotation[From, Via]) Rotation[From, To] {
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += outer.m[i][k] * inner.m[k][j]
			}
			m[i][j] = sum
		}
	}
	return Rotation[From, To]{m: m}
}

// RigidMotion is an instantaneous affine+kinematic map from frame From to
// frame To: it carries a position/orientation transform plus the
// linear and angular velocity of From's frame relative to To, so it can
// transport full (position, velocity) degrees of freedom, not just
// positions. This mirrors the Principia original's RigidMotion<From,To>
// (see original_source/geometry/rotation.hpp and the call sites in
// original_source/ksp_plugin/pile_up.cpp).
type RigidMotion[From, To any] struct {
	rotation            Rotation[From, To]
	fromOriginInTo      Point[To]     // position of From's origin, expressed in To
	fromOriginVelocity  Velocity[To]  // velocity of From's origin, expressed in To
	angularVelocityToOf Bivector[To]  // angular velocity of From's frame relative to To, expressed in To
}

// MakeRigidMotion builds a RigidMotion from its defining data.
func MakeRigidMotion[From, To any](
	rotation Rotation[From, To],
	fromOriginInTo Point[To],
	fromOriginVelocity Velocity[To],
	angularVelocityToOf Bivector[To],
) RigidMotion[From, To] {
	return RigidMotion[From, To]{rotation, fromOriginInTo, fromOriginVelocity, angularVelocityToOf}
}

// MakeNonRotatingMotion builds a RigidMotion whose rotation is the
// identity and whose angular velocity is zero — a pure translation,
// matching the original's RigidMotion::MakeNonRotatingMotion.
func MakeNonRotatingMotion[From, To any](dof DegreesOfFreedom[To]) RigidMotion[From, To] {
	return RigidMotion[From, To]{
		rotation:           Identity[From, To](),
		fromOriginInTo:     dof.Position,
		fromOriginVelocity: dof.Velocity,
	}
}

// TransformPosition maps a position in From to its position in To.
func (m RigidMotion[From, To]) TransformPosition(p Point[From]) Point[To] {
	v := Vector[From]{p.X, p.Y, p.Z}
	return m.fromOriginInTo.Add(m.rotation.ApplyVector(v))
}

// TransformDegreesOfFreedom maps a full (position, velocity) pair in
// From to To, including the rigid-body velocity transport term
// omega x r for a rotating From-to-To motion.
func (m RigidMotion[From, To]) TransformDegreesOfFreedom(dof DegreesOfFreedom[From]) DegreesOfFreedom[To] {
	posInTo := m.TransformPosition(dof.Position)
	rotatedVel := m.rotation.ApplyVector(dof.Velocity.AsVector())
	displacement := posInTo.Sub(m.fromOriginInTo)
	transportVel := m.angularVelocityToOf.Cross(displacement)
	vel := m.fromOriginVelocity.Add(VelocityFromVector(rotatedVel)).Add(VelocityFromVector(transportVel))
	return DegreesOfFreedom[To]{Position: posInTo, Velocity: vel}
}

// Rotation returns the orthogonal map part of the motion.
func (m RigidMotion[From, To]) Rotation() Rotation[From, To] { return m.rotation }

// AngularVelocityOfToFrame returns the motion's angular velocity: that of
// From's frame relative to To, expressed in To — the rate whose
// omega x r term TransformDegreesOfFreedom adds.
func (m RigidMotion[From, To]) AngularVelocityOfToFrame() Bivector[To] {
	return m.angularVelocityToOf
}

// Inverse returns the inverse motion, To -> From.
func (m RigidMotion[From, To]) Inverse() RigidMotion[To, From] {
	invRotation := m.rotation.Inverse()
	originDisplacement := Point[To]{}.Sub(m.fromOriginInTo) // -fromOriginInTo, as a Vector[To]
	toOriginInFrom := invRotation.ApplyVector(originDisplacement)
	negAngular := invRotation.ApplyBivector(m.angularVelocityToOf.Scale(-1))
	// velocity of To's origin in From: R^-1(-fromOriginVelocity + omega x
	// fromOriginInTo). The To origin lies at displacement -fromOriginInTo
	// from From's origin, so the forward transport term does not vanish
	// there and must be removed along with the linear velocity.
	transport := m.angularVelocityToOf.Cross(m.fromOriginInTo.Sub(Point[To]{}))
	negLinear := invRotation.ApplyVector(Vector[To]{
		-m.fromOriginVelocity.X + transport.X,
		-m.fromOriginVelocity.Y + transport.Y,
		-m.fromOriginVelocity.Z + transport.Z,
	})
	return RigidMotion[To, From]{
		rotation:            invRotation,
		fromOriginInTo:      Point[From]{toOriginInFrom.X, toOriginInFrom.Y, toOriginInFrom.Z},
		fromOriginVelocity:  Velocity[From]{negLinear.X, negLinear.Y, negLinear.Z},
		angularVelocityToOf: negAngular,
	}
}

// ComposeRigidMotion returns the motion equivalent to applying inner
// then outer: From -> Via -> To.
func ComposeRigidMotion[From, Via, To any](outer RigidMotion[Via, To], inner RigidMotion[From, Via]) RigidMotion[From, To] {
	rotation := ComposeRotation[From, Via, To](outer.rotation, inner.rotation)
	origin := outer.TransformPosition(inner.fromOriginInTo)
	// velocity of From's origin in To: transform inner's origin dof through outer.
	dof := outer.TransformDegreesOfFreedom(DegreesOfFreedom[Via]{
		Position: inner.fromOriginInTo,
		Velocity: inner.fromOriginVelocity,
	})
	angular := outer.rotation.ApplyBivector(inner.angularVelocityToOf).Add(outer.angularVelocityToOf)
	return RigidMotion[From, To]{
		rotation:            rotation,
		fromOriginInTo:      origin,
		fromOriginVelocity:  dof.Velocity,
		angularVelocityToOf: angular,
	}
}
