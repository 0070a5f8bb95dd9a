package serialization

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/geometry"
)

func TestDescribeOsculatingElementsCircularOrbit(t *testing.T) {
	const gm = 3.986004418e14
	const r = 7e6
	v := math.Sqrt(gm / r)

	dof := geometry.DegreesOfFreedom[testFrame]{
		Position: geometry.Point[testFrame]{X: r},
		Velocity: geometry.Velocity[testFrame]{Y: v},
	}

	el := DescribeOsculatingElements(dof, gm)
	if math.Abs(el.Eccentricity) > 1e-6 {
		t.Errorf("eccentricity = %v, want ~0 for a circular orbit", el.Eccentricity)
	}
	if math.Abs(el.SemiMajorAxisKm-r/1000) > 1e-3 {
		t.Errorf("semi-major axis = %v km, want %v km", el.SemiMajorAxisKm, r/1000)
	}
}
