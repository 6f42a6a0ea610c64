package diagram

import (
	"fmt"

	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

// Context is what a transition knows about the diagram owning it.
// Keeping it an interface keeps entities free of hidden global state
// while preserving notification timing.
type Context interface {
	// IsInitialTransition reports whether t is the synthetic marker
	// edge pointing at the initial state.
	IsInitialTransition(t *Transition) bool
	// InvalidateInitialState drops any cached analysis that depends
	// on guard conditions, such as which state a run reaches first.
	InvalidateInitialState()
	// MarkModified flags the diagram as changed since the last save.
	MarkModified()
}

// Layout tuning. Damping and the convergence threshold follow the
// usual force-directed settling behaviour; iterations are bounded so
// a pathological diagram cannot spin forever.
const (
	damping = 0.85
	maxStep = 30.0

	// ForceEpsilon is the movement threshold below which the layout
	// counts as settled; callers driving Step directly test against it.
	ForceEpsilon        = 0.1
	MaxLayoutIterations = 600
)

// initialMarkerOffset is where the start-marker tail sits relative to
// the initial state.
var initialMarkerOffset = geom.V(-70, -70)

// Diagram owns the states and transitions of one state machine
// drawing and drives their layout simulation. All access is expected
// from a single goroutine (the editor's UI loop).
type Diagram struct {
	name        string
	states      []*State
	transitions []*Transition

	initial       *State
	initialMarker *Transition
	initialAnchor *State

	startCache []*Transition
	startFresh bool

	modified bool
}

// New creates an empty diagram.
func New(name string) *Diagram {
	return &Diagram{name: name}
}

// Name returns the diagram name.
func (d *Diagram) Name() string {
	return d.name
}

// SetName renames the diagram.
func (d *Diagram) SetName(name string) {
	if d.name != name {
		d.name = name
		d.modified = true
	}
}

// States returns the diagram's states.
func (d *Diagram) States() []*State {
	return d.states
}

// Transitions returns the diagram's transitions, including the
// initial marker when one is set.
func (d *Diagram) Transitions() []*Transition {
	return d.transitions
}

// AddState creates a state and adds it to the diagram.
func (d *Diagram) AddState(name string) *State {
	s := NewState(name)
	d.states = append(d.states, s)
	d.modified = true
	return s
}

// AddTransition creates a transition between two states already in
// the diagram.
func (d *Diagram) AddTransition(from, to *State, condition string) *Transition {
	t := NewTransition(from, to, condition)
	t.ctx = d
	d.transitions = append(d.transitions, t)
	d.invalidateStart()
	d.modified = true
	return t
}

// RemoveTransition removes t from the diagram.
func (d *Diagram) RemoveTransition(t *Transition) {
	for i, o := range d.transitions {
		if o == t {
			d.transitions = append(d.transitions[:i], d.transitions[i+1:]...)
			d.invalidateStart()
			d.modified = true
			return
		}
	}
}

// RemoveState removes s and every transition attached to it. Removing
// the initial state also removes the start marker.
func (d *Diagram) RemoveState(s *State) {
	for i, o := range d.states {
		if o == s {
			d.states = append(d.states[:i], d.states[i+1:]...)
			break
		}
	}

	kept := d.transitions[:0]
	for _, t := range d.transitions {
		if t.fromState == s || t.toState == s {
			continue
		}
		kept = append(kept, t)
	}
	d.transitions = kept

	if d.initial == s {
		d.initial = nil
		d.initialMarker = nil
		d.initialAnchor = nil
	}
	d.invalidateStart()
	d.modified = true
}

// SetInitial marks s as the machine's start state and installs the
// synthetic marker transition pointing at it. The marker's tail is a
// fixed anchor that follows the state, so the arrow stays put no
// matter what the rest of the simulation does.
func (d *Diagram) SetInitial(s *State) {
	if d.initialMarker != nil {
		d.RemoveTransition(d.initialMarker)
	}

	anchor := NewState("")
	anchor.radius = 0
	anchor.fixed = true
	anchor.Movable.SetPos(s.Pos().Add(initialMarkerOffset))

	marker := NewTransition(anchor, s, "")
	marker.ctx = d

	d.initial = s
	d.initialAnchor = anchor
	d.initialMarker = marker
	d.transitions = append(d.transitions, marker)
	d.invalidateStart()
	d.modified = true
}

// Initial returns the start state, or nil.
func (d *Diagram) Initial() *State {
	return d.initial
}

// InitialTransition returns the synthetic start marker, or nil.
func (d *Diagram) InitialTransition() *Transition {
	return d.initialMarker
}

// IsInitialTransition implements Context.
func (d *Diagram) IsInitialTransition(t *Transition) bool {
	return d.initialMarker != nil && t == d.initialMarker
}

// InvalidateInitialState implements Context.
func (d *Diagram) InvalidateInitialState() {
	d.invalidateStart()
}

// MarkModified implements Context.
func (d *Diagram) MarkModified() {
	d.modified = true
}

func (d *Diagram) invalidateStart() {
	d.startFresh = false
	d.startCache = nil
}

// StartTransitions returns the transitions leaving the initial state,
// validating their guards. The result is cached; any condition edit
// invalidates it, because a changed guard can change which state a
// run reaches first. Returns a *ConditionError for the first invalid
// guard found.
func (d *Diagram) StartTransitions() ([]*Transition, error) {
	if !d.startFresh {
		var list []*Transition
		for _, t := range d.transitions {
			if t == d.initialMarker || d.initial == nil || t.fromState != d.initial {
				continue
			}
			if _, err := t.ConditionExpression(); err != nil {
				return nil, err
			}
			list = append(list, t)
		}
		d.startCache = list
		d.startFresh = true
	}
	return d.startCache, nil
}

// Validate checks every guard condition and returns the first error.
func (d *Diagram) Validate() error {
	for _, t := range d.transitions {
		if _, err := t.ConditionExpression(); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	return nil
}

// CalcForces runs one force pass. It only reads positions, so every
// entity observes a consistent snapshot of the previous tick;
// Integrate then writes all positions in a second pass.
func (d *Diagram) CalcForces() {
	if d.initialAnchor != nil {
		d.initialAnchor.Movable.SetPos(d.initial.Pos().Add(initialMarkerOffset))
	}

	for _, s := range d.states {
		s.CalcForce(d.states)
	}
	for _, t := range d.transitions {
		t.CalcForce(d.states, d.transitions)
	}
}

// Integrate applies all accumulated forces to positions and returns
// the largest single movement.
func (d *Diagram) Integrate() float64 {
	moved := 0.0
	for _, s := range d.states {
		if s.fixed {
			continue
		}
		if m := s.integrate(damping, maxStep); m > moved {
			moved = m
		}
	}
	for _, t := range d.transitions {
		if m := t.integrate(damping, maxStep); m > moved {
			moved = m
		}
	}

	// Re-pin the marker tail so the start arrow follows its state
	// within the same tick.
	if d.initialAnchor != nil {
		d.initialAnchor.Movable.SetPos(d.initial.Pos().Add(initialMarkerOffset))
	}
	return moved
}

// Step runs one simulation tick and returns the largest movement.
func (d *Diagram) Step() float64 {
	d.CalcForces()
	return d.Integrate()
}

// Layout runs simulation ticks until movement falls below the
// convergence threshold or the iteration bound is hit. Returns the
// number of ticks run.
func (d *Diagram) Layout() int {
	for i := 0; i < MaxLayoutIterations; i++ {
		if d.Step() < ForceEpsilon {
			return i + 1
		}
	}
	return MaxLayoutIterations
}

// DrawTo renders the whole diagram: transitions first, states on top.
func (d *Diagram) DrawTo(gr graphic.Graphic) {
	for _, t := range d.transitions {
		t.DrawTo(gr)
	}
	for _, s := range d.states {
		if s == d.initialAnchor {
			continue
		}
		s.DrawTo(gr)
	}
}

// Bounds returns the bounding box of all states and curve handles.
func (d *Diagram) Bounds() (min, max geom.Vec) {
	first := true
	extend := func(p geom.Vec, r float64) {
		if first {
			min = geom.V(p.X-r, p.Y-r)
			max = geom.V(p.X+r, p.Y+r)
			first = false
			return
		}
		if p.X-r < min.X {
			min.X = p.X - r
		}
		if p.Y-r < min.Y {
			min.Y = p.Y - r
		}
		if p.X+r > max.X {
			max.X = p.X + r
		}
		if p.Y+r > max.Y {
			max.Y = p.Y + r
		}
	}

	for _, s := range d.states {
		extend(s.Pos(), s.VisualRadius()+graphic.MaxLineThick)
	}
	for _, t := range d.transitions {
		extend(t.Pos(), 0)
	}
	return min, max
}

// FindState returns the topmost state containing pos, or nil.
func (d *Diagram) FindState(pos geom.Vec) *State {
	for i := len(d.states) - 1; i >= 0; i-- {
		if d.states[i].Matches(pos) {
			return d.states[i]
		}
	}
	return nil
}

// FindTransition returns the transition whose handle is nearest pos
// within picking distance, or nil.
func (d *Diagram) FindTransition(pos geom.Vec) *Transition {
	var best *Transition
	bestDist := 0.0
	for _, t := range d.transitions {
		if !t.Matches(pos) {
			continue
		}
		dist := pos.Sub(t.Pos()).Len()
		if best == nil || dist < bestDist {
			best = t
			bestDist = dist
		}
	}
	return best
}

// Modified reports whether the diagram or any entity changed since
// the last ClearModified.
func (d *Diagram) Modified() bool {
	if d.modified {
		return true
	}
	for _, s := range d.states {
		if s.Modified() {
			return true
		}
	}
	for _, t := range d.transitions {
		if t.Modified() {
			return true
		}
	}
	return false
}

// ClearModified resets all change flags, typically after a save.
func (d *Diagram) ClearModified() {
	d.modified = false
	for _, s := range d.states {
		s.ClearModified()
	}
	for _, t := range d.transitions {
		t.ClearModified()
	}
}
