package serialization

import (
	"math"
	"testing"

	"github.com/anupshinde/principia/ephemeris"
	"github.com/anupshinde/principia/geometry"
	"github.com/anupshinde/principia/pileup"
	"github.com/anupshinde/principia/quantities"
	"github.com/anupshinde/principia/trajectory"
	"github.com/anupshinde/principia/vessel"
)

type testFrame struct{}

func dof(x float64) geometry.DegreesOfFreedom[testFrame] {
	return geometry.DegreesOfFreedom[testFrame]{
		Position: geometry.Point[testFrame]{X: x},
		Velocity: geometry.Velocity[testFrame]{X: x},
	}
}

func TestQuantityRoundTrip(t *testing.T) {
	q := quantities.GravitationalParameter(3.986e14)
	doc := MarshalQuantity(q)
	got := UnmarshalQuantity(doc)
	if got.Dimension() != q.Dimension() {
		t.Fatalf("dimension = %v, want %v", got.Dimension(), q.Dimension())
	}
	if got.In(q) != 1 {
		t.Errorf("round-tripped quantity does not equal original")
	}
}

func TestDiscreteTrajectoryRoundTrip(t *testing.T) {
	history := trajectory.New[testFrame]()
	history.Append(0, dof(0))
	history.Append(1, dof(1))
	history.Append(2, dof(2))
	fork := history.NewForkAtLast()
	fork.Append(3, dof(3))

	doc := MarshalDiscreteTrajectory(history, fork)
	if len(doc.History) != 3 || len(doc.Psychohistory) != 1 {
		t.Fatalf("doc has %d history, %d psychohistory samples; want 3, 1", len(doc.History), len(doc.Psychohistory))
	}

	gotHistory, gotFork, err := UnmarshalDiscreteTrajectory[testFrame](doc)
	if err != nil {
		t.Fatal(err)
	}
	if gotHistory.Size() != 3 {
		t.Errorf("reconstructed history size = %d, want 3", gotHistory.Size())
	}
	if gotFork == nil || gotFork.Last().Time != 3 {
		t.Fatalf("reconstructed fork missing or at wrong time: %+v", gotFork)
	}
}

func TestDiscreteTrajectoryLegacySchemaRewrite(t *testing.T) {
	doc := DiscreteTrajectoryDoc{
		Samples: []SampleDoc{
			{Time: 0, Position: [3]float64{0, 0, 0}},
			{Time: 1, Position: [3]float64{1, 0, 0}},
			{Time: 2, Position: [3]float64{2, 0, 0}},
		},
		TrailingNonAuthoritative: true,
	}

	history, fork, err := UnmarshalDiscreteTrajectory[testFrame](doc)
	if err != nil {
		t.Fatal(err)
	}
	if history.Size() != 2 {
		t.Fatalf("legacy rewrite: history size = %d, want 2 (trailing sample split into a fork)", history.Size())
	}
	if fork == nil {
		t.Fatal("legacy rewrite: expected a psychohistory fork for the trailing sample")
	}
	if fork.Last().Time != 2 {
		t.Errorf("legacy rewrite: fork's last time = %v, want 2", fork.Last().Time)
	}
	if history.Last().Time != 1 {
		t.Errorf("legacy rewrite: history's last authoritative time = %v, want 1", history.Last().Time)
	}
}

func TestDiscreteTrajectoryDocRejectsEmpty(t *testing.T) {
	if _, _, err := UnmarshalDiscreteTrajectory[testFrame](DiscreteTrajectoryDoc{}); err == nil {
		t.Error("expected an error unmarshalling an empty document")
	}
}

func TestContinuousTrajectoryRoundTrip(t *testing.T) {
	c := trajectory.NewContinuousTrajectory[testFrame](1e-6)
	sampler := func(t trajectory.Instant) geometry.Point[testFrame] {
		return geometry.Point[testFrame]{X: float64(t), Y: float64(t) * 2}
	}
	if _, err := c.AppendAutoDegree(0, 10, sampler, 2, 8); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AppendAutoDegree(10, 20, sampler, 2, 8); err != nil {
		t.Fatal(err)
	}

	doc := MarshalContinuousTrajectory[testFrame](c)
	if len(doc.Segments) != 2 {
		t.Fatalf("doc has %d segments, want 2", len(doc.Segments))
	}

	got := UnmarshalContinuousTrajectory[testFrame](doc)
	if got.NumSegments() != 2 {
		t.Fatalf("reconstructed trajectory has %d segments, want 2", got.NumSegments())
	}
	p := got.EvaluatePosition(15)
	if math.Abs(p.X-15) > 1e-6 || math.Abs(p.Y-30) > 1e-6 {
		t.Errorf("reconstructed trajectory evaluates to %+v at t=15, want (15, 30, 0)", p)
	}
}

func TestEphemerisRoundTrip(t *testing.T) {
	bodies := []*ephemeris.MassiveBody[testFrame]{
		{Name: "star", GravitationalParameter: 1e12},
		{Name: "planet", GravitationalParameter: 0},
	}
	initial := map[string]geometry.DegreesOfFreedom[testFrame]{
		"star":   {},
		"planet": {Position: geometry.Point[testFrame]{X: 1e7}, Velocity: geometry.Velocity[testFrame]{Y: 3162}},
	}
	eph, err := ephemeris.NewEphemeris[testFrame](bodies, initial, 0, 10, 1, 4, 16, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eph.Prolong(1000, 200); err != nil {
		t.Fatal(err)
	}

	doc := MarshalEphemeris[testFrame](eph)
	if len(doc.Bodies) != 2 || len(doc.Trajectories) != 2 {
		t.Fatalf("doc has %d bodies, %d trajectories; want 2, 2", len(doc.Bodies), len(doc.Trajectories))
	}

	got, err := UnmarshalEphemeris[testFrame](doc)
	if err != nil {
		t.Fatal(err)
	}
	if got.TMax() != eph.TMax() {
		t.Errorf("reconstructed TMax = %v, want %v", got.TMax(), eph.TMax())
	}
	wantTraj, _ := eph.Trajectory("planet")
	gotTraj, ok := got.Trajectory("planet")
	if !ok {
		t.Fatal("reconstructed ephemeris missing planet trajectory")
	}
	wantPos := wantTraj.EvaluatePosition(500)
	gotPos := gotTraj.EvaluatePosition(500)
	if wantPos != gotPos {
		t.Errorf("reconstructed planet position at t=500 = %+v, want %+v", gotPos, wantPos)
	}

	if _, err := got.Prolong(1010, 10); err != nil {
		t.Errorf("reconstructed ephemeris failed to resume prolonging: %v", err)
	}
}

func TestPileUpRoundTrip(t *testing.T) {
	anchor := []*ephemeris.MassiveBody[testFrame]{{Name: "anchor", GravitationalParameter: 0}}
	initial := map[string]geometry.DegreesOfFreedom[testFrame]{"anchor": {}}
	eph, err := ephemeris.NewEphemeris[testFrame](anchor, initial, 0, 1, 1e-6, 2, 4, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eph.Prolong(100, 50); err != nil {
		t.Fatal(err)
	}

	inertia := pileup.NewInertiaTensorDiagonal[pileup.RigidPart](0.1, 0.1, 0.1)
	p1 := pileup.NewPart[testFrame]("p1", 1, inertia, geometry.MakeRigidMotion[pileup.RigidPart, testFrame](
		geometry.Identity[pileup.RigidPart, testFrame](),
		geometry.Point[testFrame]{X: 1}, geometry.Velocity[testFrame]{Y: 1}, geometry.Bivector[testFrame]{}))
	p2 := pileup.NewPart[testFrame]("p2", 1, inertia, geometry.MakeRigidMotion[pileup.RigidPart, testFrame](
		geometry.Identity[pileup.RigidPart, testFrame](),
		geometry.Point[testFrame]{X: -1}, geometry.Velocity[testFrame]{Y: -1}, geometry.Bivector[testFrame]{}))

	pu, err := pileup.NewPileUp[testFrame]([]*pileup.Part[testFrame]{p1, p2}, 0, eph, 0.5, 1e-9, 1e-9, 1e-4, 1, 10000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pu.DeformAndAdvanceTime(10); err != nil {
		t.Fatal(err)
	}

	doc := MarshalPileUp[testFrame](pu)
	if len(doc.Parts) != 2 {
		t.Fatalf("doc has %d parts, want 2", len(doc.Parts))
	}

	got, err := UnmarshalPileUp[testFrame](doc, eph, nil)
	if err != nil {
		t.Fatal(err)
	}
	wantAM, gotAM := pu.AngularMomentum(), got.AngularMomentum()
	if math.Abs(wantAM.Z-gotAM.Z) > 1e-9 {
		t.Errorf("reconstructed angular momentum Z = %v, want %v", gotAM.Z, wantAM.Z)
	}
	if len(got.Parts()) != 2 {
		t.Errorf("reconstructed pile-up has %d parts, want 2", len(got.Parts()))
	}
}

func TestVesselRoundTrip(t *testing.T) {
	anchor := []*ephemeris.MassiveBody[testFrame]{{Name: "anchor", GravitationalParameter: 0}}
	initial := map[string]geometry.DegreesOfFreedom[testFrame]{"anchor": {}}
	eph, err := ephemeris.NewEphemeris[testFrame](anchor, initial, 0, 1, 1e-6, 2, 4, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := eph.Prolong(100, 50); err != nil {
		t.Fatal(err)
	}

	v := vessel.NewVessel[testFrame]("probe", "anchor", eph, 1, 1e-9, 1e-9, 1e-4, 1, 10000)
	v.CreateHistoryAndForkProlongation(0, geometry.DegreesOfFreedom[testFrame]{Velocity: geometry.Velocity[testFrame]{X: 1}})
	if _, err := v.AdvanceTimeNotInBubble(10); err != nil {
		t.Fatal(err)
	}
	if _, err := v.UpdatePrediction(20); err != nil {
		t.Fatal(err)
	}

	doc := MarshalVessel[testFrame](v)
	if doc.Name != "probe" || doc.Parent != "anchor" {
		t.Fatalf("doc = %+v, want name=probe parent=anchor", doc)
	}
	if doc.Prediction == nil {
		t.Fatal("expected a prediction document")
	}

	got, err := UnmarshalVessel[testFrame](doc, eph)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "probe" || got.Parent() != "anchor" {
		t.Errorf("reconstructed vessel = %q/%q, want probe/anchor", got.Name(), got.Parent())
	}
	if !got.IsInitialized() {
		t.Fatal("reconstructed vessel is not initialized")
	}
	if !got.HasPrediction() {
		t.Error("reconstructed vessel lost its prediction")
	}
	if got.History().Last().Time != v.History().Last().Time {
		t.Errorf("reconstructed history last time = %v, want %v", got.History().Last().Time, v.History().Last().Time)
	}
}
