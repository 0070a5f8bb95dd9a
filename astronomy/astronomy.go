// Package astronomy holds solar-system-scale transforms that sit above a
// plain Keplerian-elements model: converting between semi-major axis,
// period, and mean motion, and the Vall/Tylo/Bop resonance-stabilization
// transform used to detune a stock three-moon orbital resonance.
//
// Grounded on original_source/astronomy/stabilize_ksp_body.hpp.
package astronomy

import (
	"math"

	"github.com/anupshinde/principia/ephemeris"
)

// Phi is the golden ratio, used to detune the Laythe/Vall/Tylo 1:2:4 mean
// motion resonance into a 1:4/φ:16/φ² dissonance.
var Phi = (1 + math.Sqrt(5)) / 2

// MeanMotion returns the mean motion n = √(GM/a³) of a Keplerian orbit
// with the given gravitational parameter and semi-major axis.
func MeanMotion(gravitationalParameter, semiMajorAxis float64) float64 {
	return math.Sqrt(gravitationalParameter / (semiMajorAxis * semiMajorAxis * semiMajorAxis))
}

// SemiMajorAxisForMeanMotion inverts MeanMotion: a = ∛(GM/n²).
func SemiMajorAxisForMeanMotion(gravitationalParameter, meanMotion float64) float64 {
	return math.Cbrt(gravitationalParameter / (meanMotion * meanMotion))
}

// Period returns the orbital period 2π/n corresponding to a mean motion.
func Period(meanMotion float64) float64 {
	return 2 * math.Pi / meanMotion
}

// MeanMotionForPeriod inverts Period: n = 2π/T.
func MeanMotionForPeriod(period float64) float64 {
	return 2 * math.Pi / period
}

// ResonantMoon is one body's gravitational parameter and elements, as
// needed to compute and re-express its mean motion.
type ResonantMoon struct {
	GravitationalParameter float64
	Elements               ephemeris.KeplerianElements
}

func (m ResonantMoon) meanMotion() float64 {
	return MeanMotion(m.GravitationalParameter, m.Elements.SemiMajorAxis)
}

// StabilizeResonantBody detunes the stock Laythe/Vall/Tylo 1:2:4 mean
// motion resonance into a 1:4/φ:16/φ² dissonance, and flips Bop into a
// retrograde orbit resonant with Pol instead of with Tylo. It returns
// Vall, Tylo, and Bop's new elements; laythe and pol are read only.
//
// All hail Retrobop.
func StabilizeResonantBody(laythe, vall, tylo, bop, pol ResonantMoon) (newVall, newTylo, newBop ephemeris.KeplerianElements) {
	laytheMeanMotion := laythe.meanMotion()
	polMeanMotion := pol.meanMotion()

	newVall = vall.Elements
	newVall.SemiMajorAxis = SemiMajorAxisForMeanMotion(
		vall.GravitationalParameter, laytheMeanMotion/(4/Phi))

	newTylo = tylo.Elements
	newTylo.SemiMajorAxis = SemiMajorAxisForMeanMotion(
		tylo.GravitationalParameter, laytheMeanMotion/(16/(Phi*Phi)))

	newBop = bop.Elements
	newBop.Inclination = math.Pi - bop.Elements.Inclination
	newBop.SemiMajorAxis = SemiMajorAxisForMeanMotion(
		bop.GravitationalParameter, polMeanMotion/0.7)

	return newVall, newTylo, newBop
}
