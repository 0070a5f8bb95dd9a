// Package almosteq provides N-ULP relative-error comparisons for use in
// tests, standing in for the exact-arithmetic assertions that hold in
// the integrators and geometric transforms elsewhere in this module.
//
// Grounded on original_source/testing_utilities/almost_equals.hpp's
// AlmostEqualsMatcher: matching its N-ULP semantics, reimplemented as
// plain functions rather than a gmock-style matcher, since nothing in
// this module's dependency surface provides a matcher framework to
// build one on top of.
package almosteq

import (
	"math"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/quantities"
)

// DefaultMaxULPs is the tolerance AlmostEquals falls back to when none
// is given, matching the original's default.
const DefaultMaxULPs = 4

// Float reports whether actual is within maxULPs representable float64
// steps of expected.
func Float(actual, expected float64, maxULPs int64) bool {
	if actual == expected {
		return true
	}
	if math.IsNaN(actual) || math.IsNaN(expected) {
		return false
	}
	if maxULPs < 0 {
		maxULPs = 0
	}
	lo, hi := expected, expected
	for i := int64(0); i < maxULPs; i++ {
		lo = math.Nextafter(lo, math.Inf(-1))
		hi = math.Nextafter(hi, math.Inf(1))
	}
	return actual >= lo && actual <= hi
}

// AlmostEquals reports whether actual is within DefaultMaxULPs of
// expected.
func AlmostEquals(actual, expected float64) bool {
	return Float(actual, expected, DefaultMaxULPs)
}

// Quantity reports whether actual is within maxULPs of expected. The
// two must share a dimension; a dimension mismatch is never almost
// equal.
func Quantity(actual, expected quantities.Quantity, maxULPs int64) bool {
	if actual.Dimension() != expected.Dimension() {
		return false
	}
	unit := quantities.New(1, expected.Dimension())
	return Float(actual.In(unit), expected.In(unit), maxULPs)
}

// Vector reports whether every component of actual is within maxULPs
// of the corresponding component of expected.
func Vector[F any](actual, expected geometry.Vector[F], maxULPs int64) bool {
	return Float(actual.X, expected.X, maxULPs) &&
		Float(actual.Y, expected.Y, maxULPs) &&
		Float(actual.Z, expected.Z, maxULPs)
}

// Bivector reports whether every component of actual is within maxULPs
// of the corresponding component of expected.
func Bivector[F any](actual, expected geometry.Bivector[F], maxULPs int64) bool {
	return Float(actual.X, expected.X, maxULPs) &&
		Float(actual.Y, expected.Y, maxULPs) &&
		Float(actual.Z, expected.Z, maxULPs)
}

// Point reports whether every coordinate of actual is within maxULPs
// of the corresponding coordinate of expected.
func Point[F any](actual, expected geometry.Point[F], maxULPs int64) bool {
	return Float(actual.X, expected.X, maxULPs) &&
		Float(actual.Y, expected.Y, maxULPs) &&
		Float(actual.Z, expected.Z, maxULPs)
}
