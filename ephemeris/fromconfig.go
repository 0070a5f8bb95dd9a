package ephemeris

import (
	"fmt"

	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/trajectory"
)

// BodyConfig is the config-layer description of one massive body: its
// physical parameters plus an initial state given either directly in
// Cartesian coordinates or, for everything but the root body, relative
// to an already-resolved parent body. Built by the config package from
// a parsed manifest and consumed by NewFromConfig.
type BodyConfig[F any] struct {
	Name                   string
	GravitationalParameter float64
	Oblateness             *Oblateness[F]

	// Parent is the name of the body this one's Cartesian/Keplerian
	// state is given relative to. Empty for the root body, whose state
	// must be given directly in the ephemeris's own frame.
	Parent string

	// Exactly one of Cartesian or Keplerian must be set.
	Cartesian *geometry.DegreesOfFreedom[F]
	Keplerian *KeplerianElements
}

// KeplerianElements are classical orbital elements in SI units (metres,
// radians), resolved relative to a BodyConfig's Parent at the
// ephemeris's epoch.
type KeplerianElements struct {
	SemiMajorAxis float64
	Eccentricity  float64
	Inclination   float64
	LongAscNode   float64
	ArgPeriapsis  float64
	MeanAnomaly   float64
}

// NewFromConfig builds an Ephemeris from body configs whose initial
// states may be expressed relative to one another's (Parent), resolving
// them in dependency order. toStateVectors converts Keplerian elements
// plus a parent gravitational parameter into a relative Cartesian state.
// It has no default: it is called for every body given in Keplerian
// elements, so it must be non-nil whenever any config uses them (an
// adapter over kepler.ElementsToStateVectorsSI serves; it is a parameter
// so this package need not import kepler, which is Sun/AU-flavored
// elsewhere in this repository).
func NewFromConfig[F any](
	configs []BodyConfig[F],
	toStateVectors func(gm float64, el KeplerianElements) geometry.DegreesOfFreedom[F],
	epoch trajectory.Instant,
	step, fittingTolerance float64,
	minDegree, maxDegree, maxSteps int,
) (*Ephemeris[F], error) {
	byName := make(map[string]*BodyConfig[F], len(configs))
	for i := range configs {
		c := &configs[i]
		if _, dup := byName[c.Name]; dup {
			return nil, fmt.Errorf("ephemeris: duplicate body name %q in config", c.Name)
		}
		byName[c.Name] = c
	}

	resolved := make(map[string]geometry.DegreesOfFreedom[F], len(configs))
	pending := append([]*BodyConfig[F](nil), func() []*BodyConfig[F] {
		out := make([]*BodyConfig[F], len(configs))
		for i := range configs {
			out[i] = &configs[i]
		}
		return out
	}()...)

	for len(pending) > 0 {
		progressed := false
		var next []*BodyConfig[F]
		for _, c := range pending {
			dof, ok, err := resolveOne(c, byName, resolved, toStateVectors)
			if err != nil {
				return nil, err
			}
			if !ok {
				next = append(next, c)
				continue
			}
			resolved[c.Name] = dof
			progressed = true
		}
		if !progressed {
			return nil, fmt.Errorf("ephemeris: config bodies %v have an unresolved or cyclic parent chain", names(next))
		}
		pending = next
	}

	bodies := make([]*MassiveBody[F], len(configs))
	for i := range configs {
		c := &configs[i]
		bodies[i] = &MassiveBody[F]{Name: c.Name, GravitationalParameter: c.GravitationalParameter, Oblateness: c.Oblateness}
	}
	return NewEphemeris[F](bodies, resolved, epoch, step, fittingTolerance, minDegree, maxDegree, maxSteps)
}

func resolveOne[F any](
	c *BodyConfig[F],
	byName map[string]*BodyConfig[F],
	resolved map[string]geometry.DegreesOfFreedom[F],
	toStateVectors func(gm float64, el KeplerianElements) geometry.DegreesOfFreedom[F],
) (geometry.DegreesOfFreedom[F], bool, error) {
	var zero geometry.DegreesOfFreedom[F]
	if c.Cartesian != nil && c.Parent == "" {
		return *c.Cartesian, true, nil
	}
	if c.Parent == "" {
		return zero, false, fmt.Errorf("ephemeris: root body %q needs a Cartesian initial state", c.Name)
	}
	parentDof, ok := resolved[c.Parent]
	if !ok {
		if _, known := byName[c.Parent]; !known {
			return zero, false, fmt.Errorf("ephemeris: body %q references unknown parent %q", c.Name, c.Parent)
		}
		return zero, false, nil
	}
	parent := byName[c.Parent]

	var relative geometry.DegreesOfFreedom[F]
	switch {
	case c.Cartesian != nil:
		relative = *c.Cartesian
	case c.Keplerian != nil:
		relative = toStateVectors(parent.GravitationalParameter, *c.Keplerian)
	default:
		return zero, false, fmt.Errorf("ephemeris: body %q has neither a Cartesian nor a Keplerian initial state", c.Name)
	}
	dof := geometry.DegreesOfFreedom[F]{
		Position: parentDof.Position.Add(relative.Position.Sub(geometry.Point[F]{})),
		Velocity: geometry.Velocity[F]{
			X: parentDof.Velocity.X + relative.Velocity.X,
			Y: parentDof.Velocity.Y + relative.Velocity.Y,
			Z: parentDof.Velocity.Z + relative.Velocity.Z,
		},
	}
	return dof, true, nil
}

func names[F any](cs []*BodyConfig[F]) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}
