// Package config loads a human-readable body/vessel manifest describing
// an ephemeris's initial state and resolves it into the types the
// ephemeris and vessel packages consume.
//
// Grounded on ehrlich-b-wingthing's internal/config package: a plain
// gopkg.in/yaml.v3 struct-tagged manifest, loaded with a thin
// os.ReadFile + yaml.Unmarshal wrapper, errors given file-path context
// via github.com/pkg/errors.
package config

import (
	"math"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/anupshinde/principia/astronomy"
	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/kepler"
	"github.com/anupshinde/principia/trajectory"
)

// CartesianState is a body or vessel's initial state given directly as
// a position/velocity pair, in metres and metres per second.
type CartesianState struct {
	PositionM     [3]float64 `yaml:"position_m"`
	VelocityMPerS [3]float64 `yaml:"velocity_m_s"`
}

// KeplerianState is a body or vessel's initial state given as classical
// orbital elements relative to its Parent, angles in degrees. Exactly
// one of SemiMajorAxisM, PeriodS, or MeanMotionRadPerS should be set;
// when more than one is, SemiMajorAxisM wins, then PeriodS.
type KeplerianState struct {
	SemiMajorAxisM    float64 `yaml:"semi_major_axis_m,omitempty"`
	PeriodS           float64 `yaml:"period_s,omitempty"`
	MeanMotionRadPerS float64 `yaml:"mean_motion_rad_s,omitempty"`

	Eccentricity    float64 `yaml:"eccentricity"`
	InclinationDeg  float64 `yaml:"inclination_deg"`
	LongAscNodeDeg  float64 `yaml:"long_asc_node_deg"`
	ArgPeriapsisDeg float64 `yaml:"arg_periapsis_deg"`
	MeanAnomalyDeg  float64 `yaml:"mean_anomaly_deg"`
}

// semiMajorAxis resolves k's size however it was given, converting a
// period or mean motion into the equivalent semi-major axis via gm.
func semiMajorAxis(gm float64, k KeplerianState) (float64, error) {
	switch {
	case k.SemiMajorAxisM != 0:
		return k.SemiMajorAxisM, nil
	case k.PeriodS != 0:
		return astronomy.SemiMajorAxisForMeanMotion(gm, astronomy.MeanMotionForPeriod(k.PeriodS)), nil
	case k.MeanMotionRadPerS != 0:
		return astronomy.SemiMajorAxisForMeanMotion(gm, k.MeanMotionRadPerS), nil
	default:
		return 0, errors.New("config: keplerian state needs semi_major_axis_m, period_s, or mean_motion_rad_s")
	}
}

// BodyEntry describes one massive body in a manifest.
type BodyEntry struct {
	Name                   string   `yaml:"name"`
	GravitationalParameter float64  `yaml:"gm"`
	J2                     float64  `yaml:"j2,omitempty"`
	EquatorialRadiusM      float64  `yaml:"equatorial_radius_m,omitempty"`
	Pole                   [3]float64 `yaml:"pole,omitempty"`

	// Parent is empty for the root body (whose state must be Cartesian,
	// given directly in the ephemeris's own frame).
	Parent string `yaml:"parent,omitempty"`

	Cartesian *CartesianState `yaml:"cartesian,omitempty"`
	Keplerian *KeplerianState `yaml:"keplerian,omitempty"`
}

// VesselEntry describes one massless vessel's initial state, always
// relative to a named parent body.
type VesselEntry struct {
	Name      string          `yaml:"name"`
	Parent    string          `yaml:"parent"`
	Cartesian *CartesianState `yaml:"cartesian,omitempty"`
	Keplerian *KeplerianState `yaml:"keplerian,omitempty"`
}

// Manifest is the top-level shape of a body/vessel configuration file.
type Manifest struct {
	Epoch            float64 `yaml:"epoch"`
	Step             float64 `yaml:"step"`
	FittingTolerance float64 `yaml:"fitting_tolerance"`
	MinDegree        int     `yaml:"min_degree"`
	MaxDegree        int     `yaml:"max_degree"`
	// MaxSteps bounds how many fixed-step increments the ephemeris's
	// segment fitting may take between two consecutive Lobatto sample
	// times before giving up with trajectory.FitStepsExceeded.
	MaxSteps int `yaml:"max_steps"`

	// LengthIntegrationToleranceM and SpeedIntegrationToleranceMPerS are
	// the two distinct error bounds an adaptive (Dormand-Prince) vessel
	// or pile-up propagation is held to, applied to the position and
	// velocity halves of its state vector separately: see
	// integrators.NewAdaptiveDormandPrince. Not consumed by Build
	// (which only constructs the fixed-step massive-body ephemeris);
	// carried on the manifest as the config-layer knobs a caller
	// constructing vessel/pile-up propagation from this same file
	// should use, via AdaptiveStepParameters.
	LengthIntegrationToleranceM    float64 `yaml:"length_integration_tolerance_m"`
	SpeedIntegrationToleranceMPerS float64 `yaml:"speed_integration_tolerance_m_s"`

	Bodies  []BodyEntry   `yaml:"bodies"`
	Vessels []VesselEntry `yaml:"vessels,omitempty"`
}

// AdaptiveStepParameters returns the tolerance pair and step-count
// ceiling a caller should pass to integrators.NewAdaptiveDormandPrince
// when constructing vessel or pile-up propagation from this manifest.
func (m *Manifest) AdaptiveStepParameters() (lengthToleranceM, speedToleranceMPerS float64, maxSteps int) {
	return m.LengthIntegrationToleranceM, m.SpeedIntegrationToleranceMPerS, m.MaxSteps
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading manifest %q", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "config: parsing manifest %q", path)
	}
	return &m, nil
}

func stateVectors(gm float64, el KeplerianState) (position, velocity [3]float64, err error) {
	a, err := semiMajorAxis(gm, el)
	if err != nil {
		return position, velocity, err
	}
	position, velocity = kepler.ElementsToStateVectorsSI(
		gm, a, el.Eccentricity,
		el.InclinationDeg*math.Pi/180, el.LongAscNodeDeg*math.Pi/180,
		el.ArgPeriapsisDeg*math.Pi/180, el.MeanAnomalyDeg*math.Pi/180,
	)
	return position, velocity, nil
}

func relativeDoF[F any](gmParent float64, cart *CartesianState, kep *KeplerianState) (geometry.DegreesOfFreedom[F], error) {
	switch {
	case cart != nil:
		return geometry.DegreesOfFreedom[F]{
			Position: geometry.Point[F]{X: cart.PositionM[0], Y: cart.PositionM[1], Z: cart.PositionM[2]},
			Velocity: geometry.Velocity[F]{X: cart.VelocityMPerS[0], Y: cart.VelocityMPerS[1], Z: cart.VelocityMPerS[2]},
		}, nil
	case kep != nil:
		pos, vel, err := stateVectors(gmParent, *kep)
		if err != nil {
			return geometry.DegreesOfFreedom[F]{}, err
		}
		return geometry.DegreesOfFreedom[F]{
			Position: geometry.Point[F]{X: pos[0], Y: pos[1], Z: pos[2]},
			Velocity: geometry.Velocity[F]{X: vel[0], Y: vel[1], Z: vel[2]},
		}, nil
	default:
		var zero geometry.DegreesOfFreedom[F]
		return zero, errors.New("config: entry has neither a cartesian nor a keplerian initial state")
	}
}

func addDoF[F any](parent, relative geometry.DegreesOfFreedom[F]) geometry.DegreesOfFreedom[F] {
	return geometry.DegreesOfFreedom[F]{
		Position: parent.Position.Add(relative.Position.Sub(geometry.Point[F]{})),
		Velocity: geometry.Velocity[F]{
			X: parent.Velocity.X + relative.Velocity.X,
			Y: parent.Velocity.Y + relative.Velocity.Y,
			Z: parent.Velocity.Z + relative.Velocity.Z,
		},
	}
}

// resolveBodies walks the manifest's parent chain (root bodies first,
// then whichever bodies' parents have already been resolved) and
// returns every body's absolute initial state.
func resolveBodies[F any](bodies []BodyEntry) (map[string]geometry.DegreesOfFreedom[F], error) {
	byName := make(map[string]*BodyEntry, len(bodies))
	for i := range bodies {
		b := &bodies[i]
		if _, dup := byName[b.Name]; dup {
			return nil, errors.Errorf("config: duplicate body name %q", b.Name)
		}
		byName[b.Name] = b
	}

	resolved := make(map[string]geometry.DegreesOfFreedom[F], len(bodies))
	pending := make([]*BodyEntry, len(bodies))
	for i := range bodies {
		pending[i] = &bodies[i]
	}

	for len(pending) > 0 {
		var next []*BodyEntry
		progressed := false
		for _, b := range pending {
			if b.Parent == "" {
				if b.Cartesian == nil {
					return nil, errors.Errorf("config: root body %q needs a cartesian initial state", b.Name)
				}
				dof, err := relativeDoF[F](0, b.Cartesian, nil)
				if err != nil {
					return nil, err
				}
				resolved[b.Name] = dof
				progressed = true
				continue
			}
			parentDof, ok := resolved[b.Parent]
			if !ok {
				if _, known := byName[b.Parent]; !known {
					return nil, errors.Errorf("config: body %q references unknown parent %q", b.Name, b.Parent)
				}
				next = append(next, b)
				continue
			}
			parent := byName[b.Parent]
			relative, err := relativeDoF[F](parent.GravitationalParameter, b.Cartesian, b.Keplerian)
			if err != nil {
				return nil, errors.Wrapf(err, "config: resolving body %q", b.Name)
			}
			resolved[b.Name] = addDoF(parentDof, relative)
			progressed = true
		}
		if !progressed {
			return nil, errors.New("config: unresolved or cyclic parent chain among bodies")
		}
		pending = next
	}
	return resolved, nil
}

// Build parses a manifest's bodies into an Ephemeris and resolves every
// vessel entry's initial state relative to its parent body.
func Build[F any](m *Manifest) (*ephemeris.Ephemeris[F], map[string]geometry.DegreesOfFreedom[F], error) {
	resolvedBodies, err := resolveBodies[F](m.Bodies)
	if err != nil {
		return nil, nil, err
	}

	bodyConfigs := make([]ephemeris.BodyConfig[F], len(m.Bodies))
	for i, b := range m.Bodies {
		dof := resolvedBodies[b.Name]
		var obl *ephemeris.Oblateness[F]
		if b.J2 != 0 {
			obl = &ephemeris.Oblateness[F]{
				J2:               b.J2,
				EquatorialRadius: b.EquatorialRadiusM,
				Pole:             geometry.Vector[F]{X: b.Pole[0], Y: b.Pole[1], Z: b.Pole[2]},
			}
		}
		bodyConfigs[i] = ephemeris.BodyConfig[F]{
			Name:                   b.Name,
			GravitationalParameter: b.GravitationalParameter,
			Oblateness:             obl,
			Cartesian:              &dof,
		}
	}

	eph, err := ephemeris.NewFromConfig[F](
		bodyConfigs,
		func(gm float64, el ephemeris.KeplerianElements) geometry.DegreesOfFreedom[F] {
			pos, vel := kepler.ElementsToStateVectorsSI(gm, el.SemiMajorAxis, el.Eccentricity, el.Inclination, el.LongAscNode, el.ArgPeriapsis, el.MeanAnomaly)
			return geometry.DegreesOfFreedom[F]{
				Position: geometry.Point[F]{X: pos[0], Y: pos[1], Z: pos[2]},
				Velocity: geometry.Velocity[F]{X: vel[0], Y: vel[1], Z: vel[2]},
			}
		},
		trajectory.Instant(m.Epoch), m.Step, m.FittingTolerance, m.MinDegree, m.MaxDegree, m.MaxSteps,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "config: building ephemeris")
	}

	vessels := make(map[string]geometry.DegreesOfFreedom[F], len(m.Vessels))
	for _, v := range m.Vessels {
		parentDof, ok := resolvedBodies[v.Parent]
		if !ok {
			return nil, nil, errors.Errorf("config: vessel %q references unknown parent body %q", v.Name, v.Parent)
		}
		parentGM := 0.0
		for _, b := range m.Bodies {
			if b.Name == v.Parent {
				parentGM = b.GravitationalParameter
				break
			}
		}
		relative, err := relativeDoF[F](parentGM, v.Cartesian, v.Keplerian)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "config: resolving vessel %q", v.Name)
		}
		vessels[v.Name] = addDoF(parentDof, relative)
	}

	return eph, vessels, nil
}
