package integrators

import (
	"math"
	"testing"
)

// harmonicAccel implements q̈ = -omega^2 q for a single 1-D oscillator.
func harmonicAccel(omega float64) AccelerationFunc {
	return func(t float64, q []float64) []float64 {
		return []float64{-omega * omega * q[0]}
	}
}

func TestVelocityVerletConservesEnergyApproximately(t *testing.T) {
	const omega = 1.0
	integ := NewVelocityVerlet(harmonicAccel(omega))
	q := []float64{1}
	v := []float64{0}
	tm := 0.0
	const h = 0.01
	energy0 := 0.5*v[0]*v[0] + 0.5*omega*omega*q[0]*q[0]
	for i := 0; i < 1000; i++ {
		tm, q, v = integ.Step(tm, h, q, v)
	}
	energy1 := 0.5*v[0]*v[0] + 0.5*omega*omega*q[0]*q[0]
	if math.Abs(energy1-energy0) > 1e-3 {
		t.Errorf("energy drift too large: %v -> %v", energy0, energy1)
	}
}

func TestSymplecticOrder4MoreAccurateThanVerlet(t *testing.T) {
	const omega = 1.0
	const h = 0.05
	const steps = 200

	runVerlet := func() (q, v float64) {
		integ := NewVelocityVerlet(harmonicAccel(omega))
		qq, vv := []float64{1}, []float64{0}
		tm := 0.0
		for i := 0; i < steps; i++ {
			tm, qq, vv = integ.Step(tm, h, qq, vv)
		}
		return qq[0], vv[0]
	}
	runOrder4 := func() (q, v float64) {
		integ := NewSymplecticOrder4(harmonicAccel(omega))
		qq, vv := []float64{1}, []float64{0}
		tm := 0.0
		for i := 0; i < steps; i++ {
			tm, qq, vv = integ.Step(tm, h, qq, vv)
		}
		return qq[0], vv[0]
	}

	finalT := h * steps
	wantQ := math.Cos(omega * finalT)

	q2, _ := runVerlet()
	q4, _ := runOrder4()

	err2 := math.Abs(q2 - wantQ)
	err4 := math.Abs(q4 - wantQ)
	if err4 >= err2 {
		t.Errorf("order-4 composition not more accurate: order2 err=%v order4 err=%v", err2, err4)
	}
}

func TestKahanSumReducesAccumulatedError(t *testing.T) {
	var naive float64
	var k KahanSum
	for i := 0; i < 100000; i++ {
		naive += 1e-10
		k.Add(1e-10)
	}
	want := 1e-5
	if math.Abs(k.Value()-want) > math.Abs(naive-want) {
		t.Errorf("KahanSum not more accurate than naive sum: kahan=%v naive=%v want=%v", k.Value(), naive, want)
	}
}

func TestAdaptiveStepIntegratorAccepts(t *testing.T) {
	const omega = 1.0
	integ := NewAdaptiveDormandPrince(harmonicAccel(omega), 1e-9, 1e-9, 1e-6, 1.0)
	q := []float64{1}
	v := []float64{0}
	tNew, qNew, vNew, hNext, status := integ.Step(0, 0.05, q, v)
	if status == StepRejected {
		t.Fatalf("expected step to be accepted or underflow, got rejected")
	}
	if tNew <= 0 {
		t.Errorf("time did not advance: %v", tNew)
	}
	if hNext <= 0 {
		t.Errorf("hNext must be positive, got %v", hNext)
	}
	_ = qNew
	_ = vNew
}

func TestAdaptiveStepIntegratorShrinksStepUnderTightTolerance(t *testing.T) {
	const omega = 1.0
	integ := NewAdaptiveDormandPrince(harmonicAccel(omega), 1e-14, 1e-14, 1e-8, 1.0)
	_, _, _, hNext, status := integ.Step(0, 1.0, []float64{1}, []float64{0})
	if status != StepRejected {
		t.Fatalf("expected a huge step under a tight tolerance to be rejected, got %v", status)
	}
	if hNext >= 1.0 {
		t.Errorf("hNext = %v, want a smaller step proposed", hNext)
	}
}
