package serialization

import (
	"github.com/pkg/errors"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/trajectory"
	"github.com/anupshinde/principia/vessel"
)

// VesselDoc is a Vessel's wire form.
type VesselDoc struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
	Dirty  bool   `yaml:"dirty"`

	History    DiscreteTrajectoryDoc  `yaml:"history"`
	Prediction *DiscreteTrajectoryDoc `yaml:"prediction,omitempty"`

	FixedStep               float64 `yaml:"fixed_step"`
	AdaptiveLengthTolerance float64 `yaml:"adaptive_length_tolerance"`
	AdaptiveSpeedTolerance  float64 `yaml:"adaptive_speed_tolerance"`
	AdaptiveMinStep         float64 `yaml:"adaptive_min_step"`
	AdaptiveMaxStep         float64 `yaml:"adaptive_max_step"`
	AdaptiveMaxSteps        int     `yaml:"adaptive_max_steps"`
}

// MarshalVessel builds v's document form. History embeds the
// prolongation fork as its psychohistory suffix (the current-schema
// representation DiscreteTrajectoryDoc already supports); Prediction, if
// present, is stored as its own flat document since it forks off the
// prolongation rather than off history directly.
func MarshalVessel[F any](v *vessel.Vessel[F]) VesselDoc {
	fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep, adaptiveMaxSteps := v.StepParameters()
	doc := VesselDoc{
		Name:                    v.Name(),
		Parent:                  v.Parent(),
		Dirty:                   v.IsDirty(),
		History:                 MarshalDiscreteTrajectory(v.History(), v.Prolongation()),
		FixedStep:               fixedStep,
		AdaptiveLengthTolerance: adaptiveLengthTolerance,
		AdaptiveSpeedTolerance:  adaptiveSpeedTolerance,
		AdaptiveMinStep:         adaptiveMinStep,
		AdaptiveMaxStep:         adaptiveMaxStep,
		AdaptiveMaxSteps:        adaptiveMaxSteps,
	}
	if v.HasPrediction() {
		predictionDoc := MarshalDiscreteTrajectory(v.Prolongation(), v.Prediction())
		// Only the suffix past the prolongation matters; reuse the
		// psychohistory field as the prediction's own sample list.
		flat := DiscreteTrajectoryDoc{History: predictionDoc.Psychohistory}
		doc.Prediction = &flat
	}
	return doc
}

// UnmarshalVessel reconstructs a Vessel from doc, propagated through eph.
func UnmarshalVessel[F any](doc VesselDoc, eph *ephemeris.Ephemeris[F]) (*vessel.Vessel[F], error) {
	history, prolongation, err := UnmarshalDiscreteTrajectory[F](doc.History)
	if err != nil {
		return nil, errors.Wrapf(err, "serialization: unmarshalling vessel %q's history", doc.Name)
	}
	if prolongation == nil {
		prolongation = history.NewForkAtLast()
	}

	var prediction *trajectory.DiscreteTrajectory[F]
	if doc.Prediction != nil {
		predictionHistory, _, err := UnmarshalDiscreteTrajectory[F](*doc.Prediction)
		if err != nil {
			return nil, errors.Wrapf(err, "serialization: unmarshalling vessel %q's prediction", doc.Name)
		}
		prediction = prolongation.NewForkAtLast()
		for _, s := range predictionHistory.Samples() {
			if s.Time > prolongation.Last().Time {
				prediction.Append(s.Time, s.DegreesOfFreedom)
			}
		}
	}

	return vessel.Reconstruct[F](
		doc.Name, doc.Parent, eph,
		doc.FixedStep, doc.AdaptiveLengthTolerance, doc.AdaptiveSpeedTolerance, doc.AdaptiveMinStep, doc.AdaptiveMaxStep,
		doc.AdaptiveMaxSteps,
		history, prolongation, prediction,
		doc.Dirty,
	), nil
}
