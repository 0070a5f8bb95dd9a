package astronomy

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/internal/almosteq"
)

// solGM is the Sun's gravitational parameter in SI units (m^3/s^2).
const solGM = 1.32712440018e20

// solAU is one IAU astronomical unit in metres.
const solAU = 1.495978707e11

// keplerThirdLawMaxULPs is a generous multiple of almosteq's own default
// tolerance: the round trip below composes a square root, two divisions,
// and a cube root, each rounding independently, so a handful of ULPs of
// slack is allowed rather than asserting the tightest possible bound.
const keplerThirdLawMaxULPs = 64

// TestKeplerThirdLawRoundTrip exercises spec.md's Sol-system acceptance
// scenario: given a = 1 AU and GM☉, converting to a period and back
// recovers the original semi-major axis to within a small number of
// ULPs rather than merely a loose absolute tolerance.
func TestKeplerThirdLawRoundTrip(t *testing.T) {
	n := MeanMotion(solGM, solAU)
	period := Period(n)
	gotN := MeanMotionForPeriod(period)
	gotA := SemiMajorAxisForMeanMotion(solGM, gotN)

	if !almosteq.Float(gotA, solAU, keplerThirdLawMaxULPs) {
		t.Errorf("round-tripped semi-major axis = %v, want %v within %d ULPs (diff %v)",
			gotA, solAU, keplerThirdLawMaxULPs, gotA-solAU)
	}
}

// These use representative, not stock, Laythe/Vall/Tylo/Bop/Pol figures:
// the pack's spec explicitly treats the Kerbol initial-condition data
// files as an external collaborator out of scope for this module, so
// there are no stock GM/semi-major-axis constants to draw on here.
const (
	laytheGM = 1.962e12
	laytheA  = 2.7184e7

	vallGM = 2.074e11
	vallA0 = 4.3152e7

	tyloGM = 2.825e12
	tyloA0 = 6.85e7

	polGM = 7.217e8
	polA  = 1.7989e8

	bopGM  = 2.486e9
	bopA0  = 1.2894e8
	bopInc = 0.2705 // radians, ~15.5 degrees
)

func almostEqualRelative(t *testing.T, name string, got, want, maxRelErr float64) {
	t.Helper()
	if math.Abs(got-want) > maxRelErr*math.Abs(want) {
		t.Errorf("%s = %v, want %v (relative error %v exceeds %v)", name, got, want, math.Abs(got-want)/math.Abs(want), maxRelErr)
	}
}

func TestMeanMotionRoundTrip(t *testing.T) {
	n := MeanMotion(laytheGM, laytheA)
	a := SemiMajorAxisForMeanMotion(laytheGM, n)
	almostEqualRelative(t, "round-tripped semi-major axis", a, laytheA, 1e-12)
}

func TestPeriodRoundTrip(t *testing.T) {
	n := MeanMotion(vallGM, vallA0)
	p := Period(n)
	got := MeanMotionForPeriod(p)
	almostEqualRelative(t, "round-tripped mean motion", got, n, 1e-12)
}

func TestStabilizeResonantBody(t *testing.T) {
	laythe := ResonantMoon{GravitationalParameter: laytheGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: laytheA}}
	vall := ResonantMoon{GravitationalParameter: vallGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: vallA0}}
	tylo := ResonantMoon{GravitationalParameter: tyloGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: tyloA0}}
	pol := ResonantMoon{GravitationalParameter: polGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: polA}}
	bop := ResonantMoon{GravitationalParameter: bopGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: bopA0, Inclination: bopInc}}

	newVall, newTylo, newBop := StabilizeResonantBody(laythe, vall, tylo, bop, pol)

	laytheMeanMotion := MeanMotion(laytheGM, laytheA)
	polMeanMotion := MeanMotion(polGM, polA)

	vallMeanMotion := MeanMotion(vallGM, newVall.SemiMajorAxis)
	almostEqualRelative(t, "Vall mean motion", vallMeanMotion, laytheMeanMotion/(4/Phi), 1e-12)

	tyloMeanMotion := MeanMotion(tyloGM, newTylo.SemiMajorAxis)
	almostEqualRelative(t, "Tylo mean motion", tyloMeanMotion, laytheMeanMotion/(16/(Phi*Phi)), 1e-12)

	bopMeanMotion := MeanMotion(bopGM, newBop.SemiMajorAxis)
	almostEqualRelative(t, "Bop mean motion", bopMeanMotion, polMeanMotion/0.7, 1e-12)

	wantInc := math.Pi - bop.Elements.Inclination // float64 arithmetic, not an exact constant
	if newBop.Inclination != wantInc {
		t.Errorf("Bop inclination = %v, want exactly %v", newBop.Inclination, wantInc)
	}
}

func TestStabilizeResonantBodyLeavesOtherElementsUntouched(t *testing.T) {
	laythe := ResonantMoon{GravitationalParameter: laytheGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: laytheA}}
	vall := ResonantMoon{
		GravitationalParameter: vallGM,
		Elements: ephemeris.KeplerianElements{
			SemiMajorAxis: vallA0, Eccentricity: 0.002, ArgPeriapsis: 1.1, MeanAnomaly: 0.4,
		},
	}
	tylo := ResonantMoon{GravitationalParameter: tyloGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: tyloA0}}
	pol := ResonantMoon{GravitationalParameter: polGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: polA}}
	bop := ResonantMoon{GravitationalParameter: bopGM, Elements: ephemeris.KeplerianElements{SemiMajorAxis: bopA0, Inclination: bopInc, LongAscNode: 0.9}}

	newVall, _, newBop := StabilizeResonantBody(laythe, vall, tylo, bop, pol)

	if newVall.Eccentricity != vall.Elements.Eccentricity ||
		newVall.ArgPeriapsis != vall.Elements.ArgPeriapsis ||
		newVall.MeanAnomaly != vall.Elements.MeanAnomaly {
		t.Errorf("stabilization perturbed Vall's other elements: got %+v, want eccentricity/argument/anomaly unchanged from %+v", newVall, vall.Elements)
	}
	if newBop.LongAscNode != bop.Elements.LongAscNode {
		t.Errorf("stabilization perturbed Bop's ascending node: got %v, want %v", newBop.LongAscNode, bop.Elements.LongAscNode)
	}
}
