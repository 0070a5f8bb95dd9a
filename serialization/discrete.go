package serialization

import (
	"github.com/pkg/errors"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/trajectory"
)

// SampleDoc is one (time, degrees of freedom) pair's wire form.
type SampleDoc struct {
	Time     float64    `yaml:"time"`
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
}

func sampleToDoc[F any](s trajectory.Sample[F]) SampleDoc {
	p, v := s.DegreesOfFreedom.Position, s.DegreesOfFreedom.Velocity
	return SampleDoc{
		Time:     float64(s.Time),
		Position: [3]float64{p.X, p.Y, p.Z},
		Velocity: [3]float64{v.X, v.Y, v.Z},
	}
}

func docToDoF[F any](d SampleDoc) geometry.DegreesOfFreedom[F] {
	return geometry.DegreesOfFreedom[F]{
		Position: geometry.Point[F]{X: d.Position[0], Y: d.Position[1], Z: d.Position[2]},
		Velocity: geometry.Velocity[F]{X: d.Velocity[0], Y: d.Velocity[1], Z: d.Velocity[2]},
	}
}

// DiscreteTrajectoryDoc is a DiscreteTrajectory's wire form.
//
// History/Psychohistory is the current schema: the authoritative prefix
// and, if a tentative fork was live when the document was written, its
// suffix past the fork point.
//
// Samples/TrailingNonAuthoritative is the legacy ("pre-Cartan",
// "pre-Cesàro", "pre-Frege" in the original's terms) schema, from before
// the history/psychohistory fork split existed: one flat sample list,
// its last entry a non-authoritative in-progress sample if
// TrailingNonAuthoritative is set. A document carrying only this pair is
// rewritten on load into (history, psychohistory fork) rather than
// dropped or read verbatim.
type DiscreteTrajectoryDoc struct {
	History       []SampleDoc `yaml:"history,omitempty"`
	Psychohistory []SampleDoc `yaml:"psychohistory,omitempty"`

	Samples                  []SampleDoc `yaml:"samples,omitempty"`
	TrailingNonAuthoritative bool        `yaml:"trailing_non_authoritative,omitempty"`
}

// MarshalDiscreteTrajectory builds the current-schema document for
// history and, if fork is non-nil, its tentative suffix past the fork
// point.
func MarshalDiscreteTrajectory[F any](history *trajectory.DiscreteTrajectory[F], fork *trajectory.DiscreteTrajectory[F]) DiscreteTrajectoryDoc {
	var doc DiscreteTrajectoryDoc
	for _, s := range history.Samples() {
		doc.History = append(doc.History, sampleToDoc(s))
	}
	if fork != nil {
		forkTime := fork.Fork().Time
		for _, s := range fork.Samples() {
			if s.Time > forkTime {
				doc.Psychohistory = append(doc.Psychohistory, sampleToDoc(s))
			}
		}
	}
	return doc
}

// UnmarshalDiscreteTrajectory reconstructs a (history, fork) pair from
// doc. fork is nil if doc carried no tentative suffix. A legacy
// Samples/TrailingNonAuthoritative document is rewritten into the same
// (history, fork) shape: every sample but the trailing one becomes
// authoritative history, and the trailing non-authoritative sample (if
// any) becomes a one-sample psychohistory fork.
func UnmarshalDiscreteTrajectory[F any](doc DiscreteTrajectoryDoc) (history, fork *trajectory.DiscreteTrajectory[F], err error) {
	switch {
	case len(doc.History) > 0:
		history = trajectory.New[F]()
		for _, s := range doc.History {
			history.Append(trajectory.Instant(s.Time), docToDoF[F](s))
		}
		if len(doc.Psychohistory) > 0 {
			fork = history.NewForkAtLast()
			for _, s := range doc.Psychohistory {
				fork.Append(trajectory.Instant(s.Time), docToDoF[F](s))
			}
		}
		return history, fork, nil

	case len(doc.Samples) > 0:
		samples := doc.Samples
		history = trajectory.New[F]()
		authoritative := samples
		var trailing *SampleDoc
		if doc.TrailingNonAuthoritative && len(samples) > 0 {
			authoritative = samples[:len(samples)-1]
			trailing = &samples[len(samples)-1]
		}
		for _, s := range authoritative {
			history.Append(trajectory.Instant(s.Time), docToDoF[F](s))
		}
		if trailing != nil {
			if history.Empty() {
				return nil, nil, errors.New("serialization: legacy discrete trajectory has only a trailing sample, no authoritative history to fork from")
			}
			fork = history.NewForkAtLast()
			fork.Append(trajectory.Instant(trailing.Time), docToDoF[F](*trailing))
		}
		return history, fork, nil

	default:
		return nil, nil, errors.New("serialization: discrete trajectory document has neither a history nor legacy samples")
	}
}
