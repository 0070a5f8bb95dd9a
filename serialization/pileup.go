package serialization

import (
	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/pileup"
)

// PartDoc is one Part's wire form. A part's own per-part history is not
// preserved across a round trip: NewPileUp always starts a part's
// history fresh from its current placement, so reconstruction resumes a
// pile-up's mechanics exactly but replays each part's displayed history
// from the reload point forward, not from before it.
type PartDoc struct {
	Name            string         `yaml:"name"`
	Mass            float64        `yaml:"mass"`
	InertiaTensor   [3][3]float64  `yaml:"inertia_tensor"`
	IntrinsicForce  [3]float64     `yaml:"intrinsic_force"`
	IntrinsicTorque [3]float64     `yaml:"intrinsic_torque"`
	MassChangeRate  float64        `yaml:"mass_change_rate"`
	RigidMotion     RigidMotionDoc `yaml:"rigid_motion"`
}

// PileUpDoc is a PileUp's wire form.
type PileUpDoc struct {
	Time float64   `yaml:"time"`
	Parts []PartDoc `yaml:"parts"`

	FixedStep               float64 `yaml:"fixed_step"`
	AdaptiveLengthTolerance float64 `yaml:"adaptive_length_tolerance"`
	AdaptiveSpeedTolerance  float64 `yaml:"adaptive_speed_tolerance"`
	AdaptiveMinStep         float64 `yaml:"adaptive_min_step"`
	AdaptiveMaxStep         float64 `yaml:"adaptive_max_step"`
	AdaptiveMaxSteps        int     `yaml:"adaptive_max_steps"`

	ConserveAngularMomentum bool `yaml:"conserve_angular_momentum"`
}

// MarshalPileUp builds pu's document form.
func MarshalPileUp[F any](pu *pileup.PileUp[F]) PileUpDoc {
	fixedStep, adaptiveLengthTolerance, adaptiveSpeedTolerance, adaptiveMinStep, adaptiveMaxStep, adaptiveMaxSteps := pu.StepParameters()
	doc := PileUpDoc{
		Time:                    float64(pu.Time()),
		FixedStep:               fixedStep,
		AdaptiveLengthTolerance: adaptiveLengthTolerance,
		AdaptiveSpeedTolerance:  adaptiveSpeedTolerance,
		AdaptiveMinStep:         adaptiveMinStep,
		AdaptiveMaxStep:         adaptiveMaxStep,
		AdaptiveMaxSteps:        adaptiveMaxSteps,
		ConserveAngularMomentum: pu.ConserveAngularMomentum,
	}
	for _, p := range pu.Parts() {
		m := p.InertiaTensor.Matrix()
		f, t := p.IntrinsicForce, p.IntrinsicTorque
		doc.Parts = append(doc.Parts, PartDoc{
			Name:            p.Name,
			Mass:            p.Mass,
			InertiaTensor:   m,
			IntrinsicForce:  [3]float64{f.X, f.Y, f.Z},
			IntrinsicTorque: [3]float64{t.X, t.Y, t.Z},
			MassChangeRate:  p.MassChangeRate,
			RigidMotion:     MarshalRigidMotion[pileup.RigidPart, F](p.RigidMotion()),
		})
	}
	return doc
}

// UnmarshalPileUp reconstructs a PileUp from doc, propagated through
// eph. deletionCallback is passed through to NewPileUp unchanged.
func UnmarshalPileUp[F any](doc PileUpDoc, eph *ephemeris.Ephemeris[F], deletionCallback func()) (*pileup.PileUp[F], error) {
	parts := make([]*pileup.Part[F], len(doc.Parts))
	for i, pd := range doc.Parts {
		inertia := pileup.InertiaTensorFromMatrix[pileup.RigidPart](pd.InertiaTensor)
		motion := UnmarshalRigidMotion[pileup.RigidPart, F](pd.RigidMotion)
		part := pileup.NewPart[F](pd.Name, pd.Mass, inertia, motion)
		part.IntrinsicForce = vec3[F](pd.IntrinsicForce)
		part.IntrinsicTorque = biv3[pileup.RigidPart](pd.IntrinsicTorque)
		part.MassChangeRate = pd.MassChangeRate
		parts[i] = part
	}

	pu, err := pileup.NewPileUp[F](
		parts,
		instant(doc.Time),
		eph,
		doc.FixedStep, doc.AdaptiveLengthTolerance, doc.AdaptiveSpeedTolerance, doc.AdaptiveMinStep, doc.AdaptiveMaxStep,
		doc.AdaptiveMaxSteps,
		deletionCallback,
	)
	if err != nil {
		return nil, err
	}
	pu.ConserveAngularMomentum = doc.ConserveAngularMomentum
	return pu, nil
}
