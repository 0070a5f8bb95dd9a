// Package serialization persists the physics core's runtime types —
// quantities, trajectories, an ephemeris, a pile-up, and a vessel — as
// plain YAML documents, and reconstructs them exactly rather than by
// re-deriving them from scratch (a reloaded ephemeris resumes
// mid-flight, not from its original initial conditions).
//
// Grounded on ehrlich-b-wingthing's config-loading style: gopkg.in/
// yaml.v3 struct tags throughout, errors given context with
// github.com/pkg/errors.
package serialization

import (
	"github.com/anupshinde/principia/quantities"
)

// QuantityDoc is a dimensioned scalar's wire form: its SI-base-unit
// magnitude alongside the eight-exponent dimension vector that gives it
// meaning, so a persisted quantity cannot silently be reloaded under the
// wrong unit.
type QuantityDoc struct {
	Magnitude float64            `yaml:"magnitude"`
	Dimension quantities.Dimension `yaml:"dimension"`
}

// MarshalQuantity converts q to its document form. Quantity exposes no
// direct magnitude accessor (arithmetic must stay dimension-checked), so
// the magnitude is recovered by dividing q by a unit quantity of its own
// dimension, which is always safe and always yields a dimensionless 1:1
// ratio equal to q's magnitude.
func MarshalQuantity(q quantities.Quantity) QuantityDoc {
	unit := quantities.New(1, q.Dimension())
	return QuantityDoc{Magnitude: quantities.Value(q.Div(unit)), Dimension: q.Dimension()}
}

// UnmarshalQuantity reconstructs a Quantity from its document form.
func UnmarshalQuantity(doc QuantityDoc) quantities.Quantity {
	return quantities.New(doc.Magnitude, doc.Dimension)
}
