package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/anupshinde/principia/trajectory"
)

type testFrame struct{}

const manifestYAML = `
epoch: 0
step: 10
fitting_tolerance: 1
min_degree: 4
max_degree: 16
max_steps: 10000
bodies:
  - name: star
    gm: 1.0
    cartesian:
      position_m: [0, 0, 0]
      velocity_m_s: [0, 0, 0]
  - name: planet
    gm: 0
    parent: star
    keplerian:
      semi_major_axis_m: 1.0
      eccentricity: 0
      inclination_deg: 0
      long_asc_node_deg: 0
      arg_periapsis_deg: 0
      mean_anomaly_deg: 0
vessels:
  - name: probe
    parent: planet
    cartesian:
      position_m: [10, 0, 0]
      velocity_m_s: [0, 0, 0]
`

func writeManifest(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesManifest(t *testing.T) {
	path := writeManifest(t)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Bodies) != 2 || len(m.Vessels) != 1 {
		t.Fatalf("got %d bodies, %d vessels; want 2, 1", len(m.Bodies), len(m.Vessels))
	}
	if m.Bodies[1].Keplerian == nil {
		t.Fatal("planet entry missing keplerian state")
	}
}

func TestBuildResolvesKeplerianBodyAndVesselState(t *testing.T) {
	path := writeManifest(t)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	eph, vessels, err := Build[testFrame](m)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := eph.Prolong(1, 1); err != nil {
		t.Fatal(err)
	}
	planetTraj, ok := eph.Trajectory("planet")
	if !ok {
		t.Fatal("missing planet trajectory")
	}
	p := planetTraj.EvaluatePosition(trajectory.Instant(0))
	r := math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
	if math.Abs(r-1.0) > 1e-9 {
		t.Errorf("planet radius = %v, want 1", r)
	}

	probe, ok := vessels["probe"]
	if !ok {
		t.Fatal("missing probe initial state")
	}
	wantX := p.X + 10
	if math.Abs(probe.Position.X-wantX) > 1e-9 {
		t.Errorf("probe position X = %v, want %v (planet position + 10m offset)", probe.Position.X, wantX)
	}
}

func TestBuildRejectsUnknownParent(t *testing.T) {
	m := &Manifest{
		Epoch: 0, Step: 1, FittingTolerance: 1, MinDegree: 2, MaxDegree: 4,
		Bodies: []BodyEntry{
			{Name: "orphan", GravitationalParameter: 1, Parent: "nobody",
				Keplerian: &KeplerianState{SemiMajorAxisM: 1}},
		},
	}
	if _, _, err := Build[testFrame](m); err == nil {
		t.Error("expected an error for a body with an unknown parent")
	}
}

func TestKeplerianStateAcceptsPeriodOrMeanMotion(t *testing.T) {
	gm := 1.0
	wantA := 1.0
	n := math.Sqrt(gm / (wantA * wantA * wantA))
	period := 2 * math.Pi / n

	byPeriod := KeplerianState{PeriodS: period}
	a, err := semiMajorAxis(gm, byPeriod)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a-wantA) > 1e-9 {
		t.Errorf("semi-major axis from period = %v, want %v", a, wantA)
	}

	byMeanMotion := KeplerianState{MeanMotionRadPerS: n}
	a, err = semiMajorAxis(gm, byMeanMotion)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(a-wantA) > 1e-9 {
		t.Errorf("semi-major axis from mean motion = %v, want %v", a, wantA)
	}
}

func TestKeplerianStateRejectsEmptyState(t *testing.T) {
	if _, err := semiMajorAxis(1, KeplerianState{}); err == nil {
		t.Error("expected an error when none of semi_major_axis_m/period_s/mean_motion_rad_s is set")
	}
}

func TestBuildRejectsMissingInitialState(t *testing.T) {
	m := &Manifest{
		Epoch: 0, Step: 1, FittingTolerance: 1, MinDegree: 2, MaxDegree: 4,
		Bodies: []BodyEntry{{Name: "root", GravitationalParameter: 1}},
	}
	if _, _, err := Build[testFrame](m); err == nil {
		t.Error("expected an error for a root body without a cartesian state")
	}
}
