package serialization

import (
	"github.com/pkg/errors"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/numerics/chebyshev"
	"github.com/anupshinde/principia/trajectory"
)

// OblatenessDoc is a MassiveBody's J2 perturbation term's wire form.
type OblatenessDoc struct {
	J2               float64    `yaml:"j2"`
	EquatorialRadius float64    `yaml:"equatorial_radius"`
	Pole             [3]float64 `yaml:"pole"`
}

// MassiveBodyDoc is one MassiveBody's wire form.
type MassiveBodyDoc struct {
	Name                   string         `yaml:"name"`
	GravitationalParameter float64        `yaml:"gm"`
	Oblateness             *OblatenessDoc `yaml:"oblateness,omitempty"`
}

// EphemerisDoc is an Ephemeris's wire form: its bodies, the integration
// parameters it was built with, the integration frontier Prolong will
// resume from, and each body's already-fitted trajectory.
type EphemerisDoc struct {
	Step             float64 `yaml:"step"`
	FittingTolerance float64 `yaml:"fitting_tolerance"`
	MinDegree        int     `yaml:"min_degree"`
	MaxDegree        int     `yaml:"max_degree"`
	MaxSteps         int     `yaml:"max_steps"`

	FrontierTime float64   `yaml:"frontier_time"`
	Q0           []float64 `yaml:"q0"`
	V0           []float64 `yaml:"v0"`

	Bodies []MassiveBodyDoc `yaml:"bodies"`

	// Trajectories is indexed in lockstep with Bodies.
	Trajectories []ContinuousTrajectoryDoc `yaml:"trajectories"`
}

// MarshalEphemeris builds e's document form.
func MarshalEphemeris[F any](e *ephemeris.Ephemeris[F]) EphemerisDoc {
	step, fittingTolerance, minDegree, maxDegree, maxSteps := e.Parameters()
	q0, v0, t0 := e.FrontierState()
	bodies := e.Bodies()

	doc := EphemerisDoc{
		Step:             step,
		FittingTolerance: fittingTolerance,
		MinDegree:        minDegree,
		MaxDegree:        maxDegree,
		MaxSteps:         maxSteps,
		FrontierTime:     float64(t0),
		Q0:               q0,
		V0:               v0,
	}
	for _, b := range bodies {
		bd := MassiveBodyDoc{Name: b.Name, GravitationalParameter: b.GravitationalParameter}
		if b.Oblateness != nil {
			pole := b.Oblateness.Pole
			bd.Oblateness = &OblatenessDoc{
				J2:               b.Oblateness.J2,
				EquatorialRadius: b.Oblateness.EquatorialRadius,
				Pole:             [3]float64{pole.X, pole.Y, pole.Z},
			}
		}
		doc.Bodies = append(doc.Bodies, bd)

		traj, ok := e.Trajectory(b.Name)
		if !ok {
			panic("serialization: ephemeris reports a body with no trajectory, internal inconsistency")
		}
		doc.Trajectories = append(doc.Trajectories, MarshalContinuousTrajectory[F](traj))
	}
	return doc
}

// UnmarshalEphemeris reconstructs an Ephemeris from doc, resuming
// exactly at its persisted integration frontier rather than replaying
// from scratch.
func UnmarshalEphemeris[F any](doc EphemerisDoc) (*ephemeris.Ephemeris[F], error) {
	if len(doc.Bodies) != len(doc.Trajectories) {
		return nil, errors.Errorf("serialization: ephemeris document has %d bodies but %d trajectories", len(doc.Bodies), len(doc.Trajectories))
	}

	bodies := make([]*ephemeris.MassiveBody[F], len(doc.Bodies))
	for i, bd := range doc.Bodies {
		var obl *ephemeris.Oblateness[F]
		if bd.Oblateness != nil {
			obl = &ephemeris.Oblateness[F]{
				J2:               bd.Oblateness.J2,
				EquatorialRadius: bd.Oblateness.EquatorialRadius,
				Pole:             geometry.Vector[F]{X: bd.Oblateness.Pole[0], Y: bd.Oblateness.Pole[1], Z: bd.Oblateness.Pole[2]},
			}
		}
		bodies[i] = &ephemeris.MassiveBody[F]{Name: bd.Name, GravitationalParameter: bd.GravitationalParameter, Oblateness: obl}
	}

	segments := make([][]*chebyshev.Series, len(doc.Trajectories))
	for i, td := range doc.Trajectories {
		segments[i] = make([]*chebyshev.Series, len(td.Segments))
		for j, sd := range td.Segments {
			segments[i][j] = chebyshev.FromCoefficients(sd.T0, sd.T1, sd.Coefficients)
		}
	}

	return ephemeris.Reconstruct[F](
		bodies,
		segments,
		doc.Q0, doc.V0, trajectory.Instant(doc.FrontierTime),
		doc.Step, doc.FittingTolerance, doc.MinDegree, doc.MaxDegree, doc.MaxSteps,
	)
}
