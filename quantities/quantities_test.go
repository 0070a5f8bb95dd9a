package quantities_test

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/internal/almosteq"
	. "github.com/anupshinde/principia/quantities"
)

func TestMulDivRoundTrip(t *testing.T) {
	a := Metres(3.5)
	b := Seconds(2.0)
	got := a.Mul(b).Div(b)
	if !almosteq.Quantity(got, a, almosteq.DefaultMaxULPs) {
		t.Errorf("(a*b)/b = %v, want %v within %d ULPs", got, a, almosteq.DefaultMaxULPs)
	}
}

func TestAddAssociative(t *testing.T) {
	a, b, c := Metres(1.0), Metres(2.0), Metres(3.0)
	left := a.Add(b).Add(c)
	right := a.Add(b.Add(c))
	if !almosteq.Quantity(left, right, almosteq.DefaultMaxULPs) {
		t.Errorf("addition not associative within %d ULPs: %v vs %v", almosteq.DefaultMaxULPs, left, right)
	}
}

func TestDimensionMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on dimension mismatch")
		}
	}()
	_ = Metres(1).Add(Seconds(1))
}

func TestHzVsRadPerSecondDistinct(t *testing.T) {
	hz := Dimensionless(1).Div(Seconds(1)) // cycles/s is dimensionless/time here
	radPerSec := RadiansPerSecond(1)
	if hz.Dimension() == radPerSec.Dimension() {
		t.Error("Hz and rad/s must carry distinct dimensions (winding)")
	}
}

func TestDegreeRadianConversion(t *testing.T) {
	full := Degree.Scale(360)
	if math.Abs(full.In(Radian)-2*math.Pi) > 1e-9 {
		t.Errorf("360 degrees = %v rad, want 2*pi", full.In(Radian))
	}
}

func TestSqrtGravitationalParameter(t *testing.T) {
	mu := GravitationalParameter(4.0)
	r := Metres(1)
	_ = mu
	_ = r
	speed := mu.Div(Metres(1)).Sqrt()
	if speed.Dimension() != SpeedD {
		t.Errorf("sqrt(GM/r) should have speed dimension, got %v", speed.Dimension())
	}
}
