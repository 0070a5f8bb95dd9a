// Package trajectory implements the discrete and continuous trajectory
// containers of spec.md §4.2 and §4.4.
//
// DiscreteTrajectory is a strictly time-ordered sequence of
// (Instant, DegreesOfFreedom) samples supporting cheap forks: a fork
// shares its parent's prefix up to a fork point and appends its own
// suffix. Per spec.md §9's design note, the whole family of forks is
// represented as an arena of nodes addressed by integer index rather
// than the original's shared-pointer polytree; a fork is a parent index
// plus a "ceiling" index into the parent's own sample slice. Storage
// only grows (Forget* narrows a logical [begin,end) window rather than
// freeing memory) so that indices referenced by children are never
// invalidated; determinism and fork semantics matter here, not
// reclaiming storage eagerly.
package trajectory

import (
	"fmt"
	"sort"

	"github.com/anupshinde/principia/geometry"
)

// Instant is a simulation time, in seconds from an arbitrary epoch.
type Instant float64

// Sample is one (Instant, DegreesOfFreedom) pair.
type Sample[F any] struct {
	Time            Instant
	DegreesOfFreedom geometry.DegreesOfFreedom[F]
}

type node[F any] struct {
	parent  int // -1 for the root
	ceiling int // index into nodes[parent].times, inclusive fork point; meaningless if parent == -1

	times []Instant
	dofs  []geometry.DegreesOfFreedom[F]
	begin int // first live index
	end   int // one past the last live index

	children []int
	deleted  bool
}

// arena owns every node of one trajectory family.
type arena[F any] struct {
	nodes []*node[F]
}

// DiscreteTrajectory is a handle onto one node of a trajectory family.
// The zero value is not usable; construct with New.
type DiscreteTrajectory[F any] struct {
	a    *arena[F]
	self int
}

// New returns a new, empty root trajectory.
func New[F any]() *DiscreteTrajectory[F] {
	a := &arena[F]{nodes: []*node[F]{{parent: -1}}}
	return &DiscreteTrajectory[F]{a: a, self: 0}
}

func (t *DiscreteTrajectory[F]) node() *node[F] {
	n := t.a.nodes[t.self]
	if n.deleted {
		panic("trajectory: use of a deleted fork")
	}
	return n
}

// Append appends a sample at time time, which must be strictly greater
// than LastTime(). Fatal (panics) otherwise, per spec.md §4.2/§7.
func (t *DiscreteTrajectory[F]) Append(time Instant, dof geometry.DegreesOfFreedom[F]) {
	n := t.node()
	if last, ok := t.lastTime(); ok && time <= last {
		panic(fmt.Sprintf("trajectory: Append at %v is not after last time %v", time, last))
	}
	n.times = append(n.times[:n.end], time)
	n.dofs = append(n.dofs[:n.end], dof)
	n.end = len(n.times)
}

// lastTime reports the time of the most recent live sample visible from
// t, following the parent chain if t's own window is empty.
func (t *DiscreteTrajectory[F]) lastTime() (Instant, bool) {
	n := t.a.nodes[t.self]
	if n.end > n.begin {
		return n.times[n.end-1], true
	}
	if n.parent == -1 {
		return 0, false
	}
	// The visible sample at the parent is exactly n's fork point, which
	// is guaranteed live by the fork invariant.
	return t.a.nodes[n.parent].times[n.ceiling], true
}

// Last returns the most recent sample. Panics if the trajectory is empty.
func (t *DiscreteTrajectory[F]) Last() Sample[F] {
	time, ok := t.lastTime()
	if !ok {
		panic("trajectory: Last on an empty trajectory")
	}
	dof, ok2 := t.at(time)
	if !ok2 {
		panic("trajectory: internal inconsistency locating Last")
	}
	return Sample[F]{Time: time, DegreesOfFreedom: dof}
}

// Back is an alias for Last, matching the original's iterator-style name.
func (t *DiscreteTrajectory[F]) Back() Sample[F] { return t.Last() }

// at returns the degrees of freedom at the given exact time, if live and
// visible from t.
func (t *DiscreteTrajectory[F]) at(time Instant) (geometry.DegreesOfFreedom[F], bool) {
	cur := t.self
	limit := -1 // -1 means "use n.end" (full own live window)
	for {
		n := t.a.nodes[cur]
		hi := n.end
		if limit >= 0 && limit < hi {
			hi = limit
		}
		lo := n.begin
		idx := sort.Search(hi-lo, func(i int) bool { return n.times[lo+i] >= time })
		if idx < hi-lo && n.times[lo+idx] == time {
			return n.dofs[lo+idx], true
		}
		if n.parent == -1 {
			var zero geometry.DegreesOfFreedom[F]
			return zero, false
		}
		limit = n.ceiling + 1
		cur = n.parent
	}
}

// Find returns the sample at exactly the given time, if present.
func (t *DiscreteTrajectory[F]) Find(time Instant) (Sample[F], bool) {
	dof, ok := t.at(time)
	if !ok {
		return Sample[F]{}, false
	}
	return Sample[F]{Time: time, DegreesOfFreedom: dof}, true
}

// Samples materializes the full logical series visible from t, in time
// order: the ancestor prefix (up to this node's fork point) followed by
// this node's own live samples.
func (t *DiscreteTrajectory[F]) Samples() []Sample[F] {
	var out []Sample[F]
	t.appendAncestorPrefix(&out)
	n := t.node()
	for i := n.begin; i < n.end; i++ {
		out = append(out, Sample[F]{Time: n.times[i], DegreesOfFreedom: n.dofs[i]})
	}
	return out
}

func (t *DiscreteTrajectory[F]) appendAncestorPrefix(out *[]Sample[F]) {
	n := t.a.nodes[t.self]
	if n.parent == -1 {
		return
	}
	parentHandle := DiscreteTrajectory[F]{a: t.a, self: n.parent}
	parentHandle.appendAncestorPrefix(out)
	pn := t.a.nodes[n.parent]
	for i := pn.begin; i <= n.ceiling; i++ {
		*out = append(*out, Sample[F]{Time: pn.times[i], DegreesOfFreedom: pn.dofs[i]})
	}
}

// Front returns the earliest live sample. Panics if empty.
func (t *DiscreteTrajectory[F]) Front() Sample[F] {
	s := t.Samples()
	if len(s) == 0 {
		panic("trajectory: Front on an empty trajectory")
	}
	return s[0]
}

// Size returns the number of live samples visible from t.
func (t *DiscreteTrajectory[F]) Size() int {
	n := t.node()
	count := n.end - n.begin
	if n.parent != -1 {
		count += ancestorCount(t.a, n.parent, n.ceiling)
	}
	return count
}

func ancestorCount[F any](a *arena[F], nodeIdx, ceiling int) int {
	n := a.nodes[nodeIdx]
	count := ceiling - n.begin + 1
	if n.parent != -1 {
		count += ancestorCount(a, n.parent, n.ceiling)
	}
	return count
}

// Empty reports whether t has no live samples.
func (t *DiscreteTrajectory[F]) Empty() bool { return t.Size() == 0 }

// locate finds the (node index, local index) of the live sample at time,
// searching t's own window then its ancestor chain. Used by the fork
// constructors.
func (t *DiscreteTrajectory[F]) locate(time Instant) (nodeIdx, localIdx int, ok bool) {
	cur := t.self
	limit := -1
	for {
		n := t.a.nodes[cur]
		hi := n.end
		if limit >= 0 && limit < hi {
			hi = limit
		}
		lo := n.begin
		idx := sort.Search(hi-lo, func(i int) bool { return n.times[lo+i] >= time })
		if idx < hi-lo && n.times[lo+idx] == time {
			return cur, lo + idx, true
		}
		if n.parent == -1 {
			return 0, 0, false
		}
		limit = n.ceiling + 1
		cur = n.parent
	}
}

func (t *DiscreteTrajectory[F]) newForkAt(nodeIdx, localIdx int) *DiscreteTrajectory[F] {
	child := &node[F]{parent: nodeIdx, ceiling: localIdx}
	t.a.nodes = append(t.a.nodes, child)
	childIdx := len(t.a.nodes) - 1
	t.a.nodes[nodeIdx].children = append(t.a.nodes[nodeIdx].children, childIdx)
	return &DiscreteTrajectory[F]{a: t.a, self: childIdx}
}

// NewForkWithCopy returns a new trajectory forked at time, which must be
// an existing live sample of t (visible from t). Fatal if time is not a
// live sample.
func (t *DiscreteTrajectory[F]) NewForkWithCopy(time Instant) *DiscreteTrajectory[F] {
	nodeIdx, localIdx, ok := t.locate(time)
	if !ok {
		panic(fmt.Sprintf("trajectory: NewForkWithCopy at %v: no such sample", time))
	}
	return t.newForkAt(nodeIdx, localIdx)
}

// NewForkAtLast returns a new trajectory forked at t's last time. Fatal
// if t is empty.
func (t *DiscreteTrajectory[F]) NewForkAtLast() *DiscreteTrajectory[F] {
	last, ok := t.lastTime()
	if !ok {
		panic("trajectory: NewForkAtLast on an empty trajectory")
	}
	return t.NewForkWithCopy(last)
}

// DeleteFork detaches and destroys child, which must have been created
// by t.NewForkAtLast/NewForkWithCopy (directly or transitively through a
// chain still rooted at t's node). Invalidates further use of child.
func (t *DiscreteTrajectory[F]) DeleteFork(child *DiscreteTrajectory[F]) {
	n := t.a.nodes[child.self]
	if n.deleted {
		panic("trajectory: DeleteFork on an already-deleted fork")
	}
	if n.parent == -1 {
		panic("trajectory: DeleteFork on a root trajectory")
	}
	parent := t.a.nodes[n.parent]
	for i, c := range parent.children {
		if c == child.self {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			break
		}
	}
	markDeleted(t.a, child.self)
}

func markDeleted[F any](a *arena[F], idx int) {
	n := a.nodes[idx]
	n.deleted = true
	for _, c := range n.children {
		markDeleted(a, c)
	}
}

// minChildCeiling returns the smallest fork-point index among the live
// direct children of t's node, and false if there are none. ForgetBefore
// and ForgetAfter use it to refuse to orphan a fork.
func (t *DiscreteTrajectory[F]) minChildCeiling() (int, bool) {
	n := t.node()
	min := -1
	for _, ci := range n.children {
		c := t.a.nodes[ci]
		if c.deleted {
			continue
		}
		if min == -1 || c.ceiling < min {
			min = c.ceiling
		}
	}
	return min, min != -1
}

// ForgetBefore deletes samples strictly before time from t's own
// window. Fatal if doing so would orphan an active fork of t (a fork
// whose ceiling lies before the new window start).
func (t *DiscreteTrajectory[F]) ForgetBefore(time Instant) {
	n := t.node()
	newBegin := sort.Search(n.end-n.begin, func(i int) bool { return n.times[n.begin+i] >= time }) + n.begin
	if minCeiling, ok := t.minChildCeiling(); ok && minCeiling < newBegin {
		panic(fmt.Sprintf("trajectory: ForgetBefore(%v) would orphan a fork at %v", time, n.times[minCeiling]))
	}
	n.begin = newBegin
}

// ForgetAfter deletes samples strictly after time from t's own window.
// Fatal if doing so would orphan an active fork of t.
func (t *DiscreteTrajectory[F]) ForgetAfter(time Instant) {
	n := t.node()
	newEnd := sort.Search(n.end-n.begin, func(i int) bool { return n.times[n.begin+i] > time }) + n.begin
	if minCeiling, ok := t.minChildCeiling(); ok && newEnd <= minCeiling {
		panic(fmt.Sprintf("trajectory: ForgetAfter(%v) would orphan a fork at %v", time, n.times[minCeiling]))
	}
	n.end = newEnd
}

// Fork returns the parent's sample at t's fork point, i.e. the sample t
// was forked from. Panics if t is a root.
func (t *DiscreteTrajectory[F]) Fork() Sample[F] {
	n := t.node()
	if n.parent == -1 {
		panic("trajectory: Fork on a root trajectory")
	}
	pn := t.a.nodes[n.parent]
	return Sample[F]{Time: pn.times[n.ceiling], DegreesOfFreedom: pn.dofs[n.ceiling]}
}

// IsRoot reports whether t has no parent.
func (t *DiscreteTrajectory[F]) IsRoot() bool { return t.node().parent == -1 }
