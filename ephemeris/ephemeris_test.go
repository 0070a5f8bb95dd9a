package ephemeris

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/internal/almosteq"
	"github.com/anupshinde/principia/trajectory"
)

type testFrame struct{}

// circularTwoBody returns initial conditions for a circular orbit of a
// light body around a heavy one, separated by radius with the heavy body
// at the barycenter's rest frame origin (both move about the common
// barycenter, but with GM1 >> GM2 the heavy body barely moves).
func circularTwoBody(gmHeavy, gmLight, radius float64) map[string]geometry.DegreesOfFreedom[testFrame] {
	speed := math.Sqrt((gmHeavy + gmLight) / radius)
	return map[string]geometry.DegreesOfFreedom[testFrame]{
		"heavy": {
			Position: geometry.Point[testFrame]{},
			Velocity: geometry.Velocity[testFrame]{},
		},
		"light": {
			Position: geometry.Point[testFrame]{X: radius},
			Velocity: geometry.Velocity[testFrame]{Y: speed},
		},
	}
}

func TestEphemerisTwoBodyCircularOrbitConservesRadius(t *testing.T) {
	const gmHeavy = 1.0
	const gmLight = 0.0 // test-particle limit keeps the reference orbit exact
	const radius = 1.0

	bodies := []*MassiveBody[testFrame]{
		{Name: "heavy", GravitationalParameter: gmHeavy},
		{Name: "light", GravitationalParameter: gmLight},
	}
	eph, err := NewEphemeris[testFrame](bodies, circularTwoBody(gmHeavy, gmLight, radius), 0, 0.01, 1e-6, 4, 16, 100000)
	if err != nil {
		t.Fatal(err)
	}

	period := 2 * math.Pi * math.Sqrt(radius*radius*radius/gmHeavy)
	if _, err := eph.Prolong(trajectory.Instant(period), period/4); err != nil {
		t.Fatal(err)
	}

	lightTraj, ok := eph.Trajectory("light")
	if !ok {
		t.Fatal("missing light trajectory")
	}
	for _, frac := range []float64{0.1, 0.5, 0.9} {
		tt := trajectory.Instant(frac * period)
		p := lightTraj.EvaluatePosition(tt)
		r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
		if math.Abs(r-radius) > 1e-3 {
			t.Errorf("at t=%v: radius = %v, want ~%v", tt, r, radius)
		}
	}

	// After one full period, the light body should be back near its start.
	final := lightTraj.EvaluatePosition(trajectory.Instant(period))
	if math.Abs(final.X-radius) > 1e-2 || math.Abs(final.Y) > 1e-2 {
		t.Errorf("after one period, position = %+v, want ~(%v, 0, 0)", final, radius)
	}
}

func TestComputeGravitationalAccelerationMatchesNewtonianPointMass(t *testing.T) {
	const gm = 5.0
	bodies := []*MassiveBody[testFrame]{{Name: "sun", GravitationalParameter: gm}}
	initial := map[string]geometry.DegreesOfFreedom[testFrame]{
		"sun": {Position: geometry.Point[testFrame]{}, Velocity: geometry.Velocity[testFrame]{}},
	}
	eph, err := NewEphemeris[testFrame](bodies, initial, 0, 0.1, 1e-6, 4, 8, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eph.Prolong(1, 1); err != nil {
		t.Fatal(err)
	}

	a := eph.ComputeGravitationalAcceleration(0.5, geometry.Point[testFrame]{X: 2})
	want := -gm / (2 * 2)
	if math.Abs(a.X-want) > 1e-9 || math.Abs(a.Y) > 1e-9 || math.Abs(a.Z) > 1e-9 {
		t.Errorf("acceleration = %+v, want (%v, 0, 0)", a, want)
	}
}

func TestJ2AccelerationIsAxiallySymmetric(t *testing.T) {
	// Equatorial points at the same radius should feel the same J2 pull
	// regardless of azimuth around the pole.
	ax1, ay1, az1 := j2Acceleration(0.001, 1.0, 0.1, 0, 0, 1, 1, 0, 0)
	ax2, ay2, az2 := j2Acceleration(0.001, 1.0, 0.1, 0, 0, 1, 0, 1, 0)
	r1 := math.Sqrt(ax1*ax1 + ay1*ay1 + az1*az1)
	r2 := math.Sqrt(ax2*ax2 + ay2*ay2 + az2*az2)
	const j2SymmetryMaxULPs = 16
	if !almosteq.Float(r1, r2, j2SymmetryMaxULPs) {
		t.Errorf("J2 acceleration magnitude differs by azimuth: %v vs %v (exceeds %d ULPs)", r1, r2, j2SymmetryMaxULPs)
	}
}

func TestNewEphemerisRejectsMissingInitialState(t *testing.T) {
	bodies := []*MassiveBody[testFrame]{{Name: "a", GravitationalParameter: 1}}
	_, err := NewEphemeris[testFrame](bodies, map[string]geometry.DegreesOfFreedom[testFrame]{}, 0, 0.1, 1e-6, 4, 8, 10000)
	if err == nil {
		t.Error("expected error for missing initial state")
	}
}
