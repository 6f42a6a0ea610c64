package diagram

import (
	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

// DefaultStateRadius is the visual radius states are created with.
const DefaultStateRadius = 30

// stateRepulsion is the strength states (and transitions avoiding
// them) push away with. Tuned visually; see also transRepulsion.
const stateRepulsion = 2000

// State is a circular diagram node.
type State struct {
	Movable
	name      string
	radius    float64
	accepting bool
	fixed     bool
}

// NewState creates a state with the default radius.
func NewState(name string) *State {
	return &State{name: name, radius: DefaultStateRadius}
}

// Name returns the state name.
func (s *State) Name() string {
	return s.name
}

// SetName renames the state.
func (s *State) SetName(name string) {
	if s.name != name {
		s.name = name
		s.MarkModified()
	}
}

// Radius returns the configured radius.
func (s *State) Radius() float64 {
	return s.radius
}

// SetRadius changes the state's radius.
func (s *State) SetRadius(r float64) {
	if s.radius != r {
		s.radius = r
		s.MarkModified()
	}
}

// Accepting reports whether the state is drawn with a double ring.
func (s *State) Accepting() bool {
	return s.accepting
}

// SetAccepting marks the state as accepting.
func (s *State) SetAccepting(a bool) {
	if s.accepting != a {
		s.accepting = a
		s.MarkModified()
	}
}

// VisualRadius is the radius transitions attach their curves to.
func (s *State) VisualRadius() float64 {
	return s.radius
}

// CalcForce accumulates this state's repulsion from every other
// state. The attractive counterpart comes from the spring term of the
// transitions connected to it.
func (s *State) CalcForce(states []*State) {
	s.ResetForce()
	for _, o := range states {
		if o != s {
			s.AddRepulsive(o.Pos(), stateRepulsion)
		}
	}
}

// DrawTo renders the state circle and name.
func (s *State) DrawTo(gr graphic.Graphic) {
	gr.DrawCircle(s.Pos(), s.radius, graphic.Normal)
	if s.accepting {
		gr.DrawCircle(s.Pos(), s.radius-5, graphic.Thin)
	}
	if s.name != "" {
		gr.DrawText(s.Pos(), s.Pos().Add(geom.V(1, 0)), s.name, graphic.CenterCenter, graphic.Normal)
	}
}

// Matches reports whether pos falls inside the state circle.
func (s *State) Matches(pos geom.Vec) bool {
	return pos.Sub(s.Pos()).Len() <= s.radius
}
