package serialization

import (
	"github.com/anupshinde/principia/elements"
	"github.com/anupshinde/principia/geometry"
)

// DescribeOsculatingElements converts a degrees-of-freedom pair, in SI
// units relative to a parent of gravitational parameter gm, into
// human-readable osculating Keplerian elements. It is a debugging aid
// for serialization output (YAML documents store Cartesian state, not
// elements; this recovers the elements an operator reading a dump would
// actually want to see) and takes no part in any round trip.
func DescribeOsculatingElements[F any](dof geometry.DegreesOfFreedom[F], gm float64) elements.OsculatingElements {
	const metresPerKm = 1000
	pos := [3]float64{dof.Position.X / metresPerKm, dof.Position.Y / metresPerKm, dof.Position.Z / metresPerKm}
	vel := [3]float64{dof.Velocity.X / metresPerKm, dof.Velocity.Y / metresPerKm, dof.Velocity.Z / metresPerKm}
	return elements.FromStateVector(pos, vel, gm/(metresPerKm*metresPerKm*metresPerKm))
}
