package serialization

import "github.com/anupshinde/principia/geometry"

// RigidMotionDoc is a RigidMotion's wire form: the rotation matrix plus
// the image (in To) of From's origin, at rest or in motion.
type RigidMotionDoc struct {
	Rotation       [3][3]float64 `yaml:"rotation"`
	OriginPosition [3]float64    `yaml:"origin_position"`
	OriginVelocity [3]float64    `yaml:"origin_velocity"`
	AngularVelocity [3]float64   `yaml:"angular_velocity"`
}

// MarshalRigidMotion builds m's document form. RigidMotion exposes its
// rotation matrix and angular velocity directly; the translational part
// (the image of From's origin) is recovered by transforming the zero
// degrees of freedom, since that is algebraically exactly
// (fromOriginInTo, fromOriginVelocity).
func MarshalRigidMotion[From, To any](m geometry.RigidMotion[From, To]) RigidMotionDoc {
	origin := m.TransformDegreesOfFreedom(geometry.DegreesOfFreedom[From]{})
	omega := m.AngularVelocityOfToFrame()
	return RigidMotionDoc{
		Rotation:        m.Rotation().Matrix(),
		OriginPosition:  [3]float64{origin.Position.X, origin.Position.Y, origin.Position.Z},
		OriginVelocity:  [3]float64{origin.Velocity.X, origin.Velocity.Y, origin.Velocity.Z},
		AngularVelocity: [3]float64{omega.X, omega.Y, omega.Z},
	}
}

// UnmarshalRigidMotion reconstructs a RigidMotion from doc.
func UnmarshalRigidMotion[From, To any](doc RigidMotionDoc) geometry.RigidMotion[From, To] {
	return geometry.MakeRigidMotion[From, To](
		geometry.RotationFromMatrix[From, To](doc.Rotation),
		geometry.Point[To]{X: doc.OriginPosition[0], Y: doc.OriginPosition[1], Z: doc.OriginPosition[2]},
		geometry.Velocity[To]{X: doc.OriginVelocity[0], Y: doc.OriginVelocity[1], Z: doc.OriginVelocity[2]},
		geometry.Bivector[To]{X: doc.AngularVelocity[0], Y: doc.AngularVelocity[1], Z: doc.AngularVelocity[2]},
	)
}
