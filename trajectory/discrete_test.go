package trajectory

import (
	"testing"

	"github.com/anupshinde/principia/geometry"
)

type testFrame struct{}

func dof(x float64) geometry.DegreesOfFreedom[testFrame] {
	return geometry.DegreesOfFreedom[testFrame]{
		Position: geometry.Point[testFrame]{X: x},
		Velocity: geometry.Velocity[testFrame]{X: x},
	}
}

func times(samples []Sample[testFrame]) []Instant {
	out := make([]Instant, len(samples))
	for i, s := range samples {
		out[i] = s.Time
	}
	return out
}

// TestForkSemantics implements spec.md §8 scenario 6.
func TestForkSemantics(t *testing.T) {
	root := New[testFrame]()
	root.Append(0, dof(0))
	root.Append(1, dof(1))
	root.Append(2, dof(2))
	root.Append(3, dof(3))

	fork := root.NewForkWithCopy(2)
	fork.Append(2.5, dof(2.5))
	fork.Append(3.5, dof(3.5))

	wantFork := []Instant{0, 1, 2, 2.5, 3.5}
	if got := times(fork.Samples()); !equalInstants(got, wantFork) {
		t.Errorf("fork samples = %v, want %v", got, wantFork)
	}

	wantParent := []Instant{0, 1, 2, 3}
	if got := times(root.Samples()); !equalInstants(got, wantParent) {
		t.Errorf("parent samples = %v, want %v", got, wantParent)
	}

	// ForgetBefore(1.5) only removes samples before the fork point at
	// t=2, which survives — it succeeds. ForgetBefore(2.5) would remove
	// t=2 itself, orphaning the fork — it must panic. (spec.md §8
	// scenario 6's parenthetical confirms t=2 "does not disappear" at
	// 1.5; see DESIGN.md for this reading of the scenario.)
	root.ForgetBefore(1.5)
	if got := times(root.Samples()); !equalInstants(got, []Instant{2, 3}) {
		t.Errorf("parent samples after ForgetBefore(1.5) = %v, want [2 3]", got)
	}
	mustPanic(t, func() { root.ForgetBefore(2.5) })
}

func TestAppendNonMonotonicPanics(t *testing.T) {
	root := New[testFrame]()
	root.Append(1, dof(1))
	mustPanic(t, func() { root.Append(1, dof(1)) })
	mustPanic(t, func() { root.Append(0, dof(0)) })
}

func TestDeleteForkDoesNotAffectParent(t *testing.T) {
	root := New[testFrame]()
	root.Append(0, dof(0))
	root.Append(1, dof(1))
	fork := root.NewForkAtLast()
	fork.Append(2, dof(2))

	root.DeleteFork(fork)
	if got := root.Size(); got != 2 {
		t.Errorf("root size after DeleteFork = %d, want 2", got)
	}
	mustPanic(t, func() { fork.Append(3, dof(3)) })
}

func TestForgetBeforeAfterWithoutForks(t *testing.T) {
	root := New[testFrame]()
	for i := 0; i < 5; i++ {
		root.Append(Instant(i), dof(float64(i)))
	}
	root.ForgetBefore(2)
	root.ForgetAfter(3)
	want := []Instant{2, 3}
	if got := times(root.Samples()); !equalInstants(got, want) {
		t.Errorf("samples = %v, want %v", got, want)
	}
}

func TestEmptyTrajectoryQueriesPanic(t *testing.T) {
	root := New[testFrame]()
	mustPanic(t, func() { root.Last() })
	mustPanic(t, func() { root.Front() })
	mustPanic(t, func() { root.NewForkAtLast() })
}

func equalInstants(a, b []Instant) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mustPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	f()
}
