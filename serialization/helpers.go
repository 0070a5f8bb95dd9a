package serialization

import (
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/trajectory"
)

func vec3[F any](a [3]float64) geometry.Vector[F] {
	return geometry.Vector[F]{X: a[0], Y: a[1], Z: a[2]}
}

func biv3[F any](a [3]float64) geometry.Bivector[F] {
	return geometry.Bivector[F]{X: a[0], Y: a[1], Z: a[2]}
}

func instant(t float64) trajectory.Instant { return trajectory.Instant(t) }
