package trajectory

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/geometry"
)

func circularOrbit(t Instant) geometry.Point[testFrame] {
	const omega = 0.1
	tt := float64(t)
	return geometry.Point[testFrame]{X: math.Cos(omega * tt), Y: math.Sin(omega * tt)}
}

func TestContinuousTrajectoryEvaluatePosition(t *testing.T) {
	ct := NewContinuousTrajectory[testFrame](1e-9)
	status, err := ct.AppendAutoDegree(0, 50, circularOrbit, 4, 16)
	if err != nil {
		t.Fatal(err)
	}
	if status != FitOK {
		t.Fatalf("status = %v, want FitOK", status)
	}

	for _, tt := range []float64{0, 12.5, 25, 50} {
		got := ct.EvaluatePosition(Instant(tt))
		want := circularOrbit(Instant(tt))
		if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
			t.Errorf("EvaluatePosition(%v) = %+v, want %+v", tt, got, want)
		}
	}
}

func TestContinuousTrajectoryEvaluateVelocityMatchesDerivative(t *testing.T) {
	const omega = 0.1
	ct := NewContinuousTrajectory[testFrame](1e-9)
	if _, err := ct.AppendAutoDegree(0, 50, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	got := ct.EvaluateVelocity(20)
	want := geometry.Velocity[testFrame]{
		X: -omega * math.Sin(omega*20),
		Y: omega * math.Cos(omega*20),
	}
	if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
		t.Errorf("EvaluateVelocity(20) = %+v, want %+v", got, want)
	}
}

func TestContinuousTrajectoryMultipleSegments(t *testing.T) {
	ct := NewContinuousTrajectory[testFrame](1e-9)
	if _, err := ct.AppendAutoDegree(0, 20, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	if _, err := ct.AppendAutoDegree(20, 40, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	if ct.NumSegments() != 2 {
		t.Fatalf("NumSegments = %d, want 2", ct.NumSegments())
	}
	if ct.TMin() != 0 || ct.TMax() != 40 {
		t.Errorf("bounds = [%v, %v], want [0, 40]", ct.TMin(), ct.TMax())
	}
	got := ct.EvaluatePosition(20)
	want := circularOrbit(20)
	if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 {
		t.Errorf("boundary EvaluatePosition(20) = %+v, want %+v", got, want)
	}
}

func TestContinuousTrajectoryAppendRejectsGap(t *testing.T) {
	ct := NewContinuousTrajectory[testFrame](1e-9)
	if _, err := ct.AppendAutoDegree(0, 20, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	if _, err := ct.AppendAutoDegree(21, 40, circularOrbit, 4, 16); err == nil {
		t.Error("expected error appending a non-touching segment")
	}
}

func TestContinuousTrajectoryForgetBefore(t *testing.T) {
	ct := NewContinuousTrajectory[testFrame](1e-9)
	if _, err := ct.AppendAutoDegree(0, 20, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	if _, err := ct.AppendAutoDegree(20, 40, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	ct.ForgetBefore(25)
	if ct.NumSegments() != 1 {
		t.Fatalf("NumSegments after ForgetBefore = %d, want 1", ct.NumSegments())
	}
	if ct.TMin() != 20 {
		t.Errorf("TMin after ForgetBefore = %v, want 20", ct.TMin())
	}
}

func TestContinuousTrajectoryEvaluateOutOfRangePanics(t *testing.T) {
	ct := NewContinuousTrajectory[testFrame](1e-9)
	if _, err := ct.AppendAutoDegree(0, 20, circularOrbit, 4, 16); err != nil {
		t.Fatal(err)
	}
	mustPanic(t, func() { ct.EvaluatePosition(100) })
}
