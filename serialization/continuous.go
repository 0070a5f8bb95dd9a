package serialization

import (
	"github.com/anupshinde/principia/numerics/chebyshev"
	"github.com/anupshinde/principia/trajectory"
)

// SegmentDoc is one fitted Chebyshev segment's wire form: its raw
// coefficients, persisted exactly rather than re-fit from samples on
// load (re-fitting would need the original Lobatto samples, which a
// ContinuousTrajectory does not retain once a segment is fitted).
type SegmentDoc struct {
	T0           float64     `yaml:"t0"`
	T1           float64     `yaml:"t1"`
	Coefficients [][]float64 `yaml:"coefficients"`
}

// ContinuousTrajectoryDoc is a ContinuousTrajectory's wire form.
type ContinuousTrajectoryDoc struct {
	Tolerance float64      `yaml:"tolerance"`
	Segments  []SegmentDoc `yaml:"segments,omitempty"`
}

// MarshalContinuousTrajectory builds c's document form.
func MarshalContinuousTrajectory[F any](c *trajectory.ContinuousTrajectory[F]) ContinuousTrajectoryDoc {
	doc := ContinuousTrajectoryDoc{Tolerance: c.Tolerance()}
	for _, s := range c.Segments() {
		doc.Segments = append(doc.Segments, SegmentDoc{T0: s.T0(), T1: s.T1(), Coefficients: s.Coefficients()})
	}
	return doc
}

// UnmarshalContinuousTrajectory reconstructs a ContinuousTrajectory from
// doc, its segments restored exactly via their persisted coefficients.
func UnmarshalContinuousTrajectory[F any](doc ContinuousTrajectoryDoc) *trajectory.ContinuousTrajectory[F] {
	segments := make([]*chebyshev.Series, len(doc.Segments))
	for i, s := range doc.Segments {
		segments[i] = chebyshev.FromCoefficients(s.T0, s.T1, s.Coefficients)
	}
	return trajectory.FromSegments[F](doc.Tolerance, segments)
}
