package diagram

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/expr"
	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

const (
	// expansionTrans scales the spring force pulling a transition's
	// endpoints toward their preferred distance.
	expansionTrans = 0.001
	// preferredDistFactor times the larger endpoint radius gives the
	// spring's rest length.
	preferredDistFactor = 5
	// transRepulsion is how strongly transitions push each other's
	// curve handles apart. Tuned visually, like stateRepulsion.
	transRepulsion = 1500

	// Arrowhead proportions and the extra clearance reserved for it
	// at the head end of a curve. Tuned visually.
	arrowLength    = 20
	arrowWidth     = 0.3
	arrowClearance = 2

	// transitionHitRadius is the pick distance for the curve handle.
	transitionHitRadius = 50
)

// ConditionError reports a guard condition that failed to parse or
// did not contain exactly one expression.
type ConditionError struct {
	Condition string
	Err       error
}

func (e *ConditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("error in condition %q: %v", e.Condition, e.Err)
	}
	return fmt.Sprintf("error in condition %q: expected a single expression", e.Condition)
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// conditionCache holds the lazily parsed guard expression. It is
// either stale (nothing cached) or fresh with the parse of the
// current condition text; nil expr means an empty condition.
type conditionCache struct {
	fresh bool
	expr  expr.Expression
}

// Transition is a directed, guarded edge between two states. Its own
// position is the curve handle the edge bends through.
type Transition struct {
	Movable
	fromState *State
	toState   *State
	condition string
	values    string
	cond      conditionCache
	ctx       Context
}

// NewTransition creates a transition and seeds its handle near the
// endpoint midpoint. Diagram.AddTransition is the usual entry point.
func NewTransition(fromState, toState *State, condition string) *Transition {
	t := &Transition{
		fromState: fromState,
		toState:   toState,
		condition: condition,
	}
	t.InitPos()
	return t
}

// FromState returns the state the transition leaves.
func (t *Transition) FromState() *State {
	return t.fromState
}

// ToState returns the state the transition enters.
func (t *Transition) ToState() *State {
	return t.toState
}

// IsSelfLoop reports whether both endpoints are the same state.
func (t *Transition) IsSelfLoop() bool {
	return t.fromState == t.toState
}

// InitPos places the handle at the endpoint midpoint with a small
// random jitter. The jitter guarantees non-degenerate starting
// geometry; for self-loops every other default would collapse the
// handle onto the state centre.
func (t *Transition) InitPos() {
	jitter := geom.V(rand.Float64()-0.5, rand.Float64()-0.5).Mul(2)
	t.SetPos(t.fromState.Pos().Add(t.toState.Pos()).Mul(0.5).Add(jitter))
}

// CalcForce accumulates one tick's forces: the endpoint spring, the
// handle's pull toward the endpoint midpoint, and repulsion from all
// unrelated states and transitions.
func (t *Transition) CalcForce(states []*State, transitions []*Transition) {
	preferredDist := math.Max(t.fromState.VisualRadius(), t.toState.VisualRadius()) * preferredDistFactor
	t.calcForce(preferredDist, states, transitions)
}

func (t *Transition) calcForce(preferredDist float64, states []*State, transitions []*Transition) {
	// Hookean spring between the endpoints: pushes apart when closer
	// than the preferred distance, pulls together when further.
	if t.fromState != t.toState {
		dir := t.fromState.Pos().Sub(t.toState.Pos())
		delta := dir.Len() - preferredDist
		dir = dir.Mul(expansionTrans * delta)
		t.toState.AddForce(dir)
		t.fromState.AddForce(dir.Mul(-1))
	}

	t.ResetForce()
	center := t.fromState.Pos().Add(t.toState.Pos()).Mul(0.5)
	t.AddAttractiveTo(center, 1)

	// The initial marker stays anchored at the start state; general
	// repulsion must not perturb it.
	if !t.isInitial() {
		for _, s := range states {
			if s != t.fromState && s != t.toState {
				t.AddRepulsive(s.Pos(), stateRepulsion)
			}
		}
		for _, o := range transitions {
			if o != t {
				t.AddRepulsive(o.Pos(), transRepulsion)
			}
		}
	}
}

func (t *Transition) isInitial() bool {
	return t.ctx != nil && t.ctx.IsInitialTransition(t)
}

// SetPos moves the curve handle. For a normal edge the handle is
// constrained to the perpendicular bisector of the line between the
// endpoint boundary points, so dragging always yields a symmetric
// curve. Self-loops and coincident endpoints accept the raw position.
func (t *Transition) SetPos(position geom.Vec) {
	if t.fromState != t.toState {
		dist := t.toState.Pos().Sub(t.fromState.Pos())
		if !dist.IsZero() {
			dist = dist.Norm()
			start := t.fromState.Pos().Add(dist.Mul(t.fromState.VisualRadius()))
			end := t.toState.Pos().Sub(dist.Mul(t.toState.VisualRadius()))

			n := dist.Orthogonal()
			l := position.Sub(start).Dot(n)
			t.Movable.SetPos(start.Add(end).Div(2).Add(n.Mul(l)))
			return
		}
	}
	t.Movable.SetPos(position)
}

// DrawTo renders the transition curve, arrowhead and labels.
func (t *Transition) DrawTo(gr graphic.Graphic) {
	var start, end geom.Vec
	if t.fromState == t.toState {
		// Spread the two attachment points either side of the handle
		// direction so the loop leaves and re-enters visibly apart.
		dif := t.Pos().Sub(t.fromState.Pos()).Orthogonal().Mul(0.5)
		ps := t.Pos().Add(dif)
		pe := t.Pos().Sub(dif)
		start = t.fromState.Pos().Add(
			ps.Sub(t.fromState.Pos()).Norm().Mul(t.fromState.VisualRadius() + graphic.MaxLineThick))
		end = t.toState.Pos().Add(
			pe.Sub(t.toState.Pos()).Norm().Mul(t.toState.VisualRadius() + graphic.MaxLineThick + arrowClearance))
	} else {
		start = t.fromState.Pos().Add(
			t.Pos().Sub(t.fromState.Pos()).Norm().Mul(t.fromState.VisualRadius() + graphic.MaxLineThick))
		end = t.toState.Pos().Add(
			t.Pos().Sub(t.toState.Pos()).Norm().Mul(t.toState.VisualRadius() + graphic.MaxLineThick + arrowClearance))
	}

	// Control point reflected past the handle so the curve's visual
	// apex passes through the handle itself.
	anchor := t.Pos().Mul(2).Sub(start.Div(2)).Sub(end.Div(2))
	gr.DrawPolygon(graphic.NewPolygon(false).Add(start).AddQuad(anchor, end), graphic.Pin)

	// Arrowhead aligned with the curve tangent at the head end.
	dir := anchor.Sub(end).Norm().Mul(arrowLength)
	lot := dir.Orthogonal().Mul(arrowWidth)
	gr.DrawPolygon(graphic.NewPolygon(true).
		Add(end.Add(dir).Add(lot)).
		Add(end.Sub(dir.Mul(0.1))).
		Add(end.Add(dir).Sub(lot)), graphic.Pin.Fill())

	// Nudge labels outside the bend when both endpoints lie on the
	// same side of the handle.
	textPos := t.Pos()
	fontSize := graphic.Label.FontSize
	if t.fromState.Pos().Y < t.Pos().Y && t.toState.Pos().Y < t.Pos().Y {
		textPos = textPos.Add(geom.V(0, fontSize/2))
	}
	if t.fromState.Pos().Y > t.Pos().Y && t.toState.Pos().Y > t.Pos().Y {
		textPos = textPos.Add(geom.V(0, -fontSize/2))
	}

	if t.condition != "" {
		gr.DrawText(textPos, textPos.Add(geom.V(1, 0)), t.condition, graphic.CenterCenter, graphic.Label)
	}
	if t.values != "" {
		textPos = textPos.Add(geom.V(0, fontSize))
		gr.DrawText(textPos, textPos.Add(geom.V(1, 0)), "set "+t.values, graphic.CenterCenter, graphic.Label)
	}
}

// Condition returns the guard condition text.
func (t *Transition) Condition() string {
	return t.condition
}

// SetCondition updates the guard text, invalidating the cached parse.
// Setting the identical text is a no-op so that an unchanged edit
// neither drops the cache nor signals the diagram.
func (t *Transition) SetCondition(condition string) {
	if t.condition == condition {
		return
	}
	t.condition = condition
	t.cond = conditionCache{}
	t.MarkModified()
	if t.ctx != nil {
		t.ctx.MarkModified()
		t.ctx.InvalidateInitialState()
	}
}

// ConditionExpression returns the parsed guard, parsing lazily on the
// first access after an edit. An empty condition yields nil with no
// error; anything but exactly one well-formed expression yields a
// *ConditionError. Errors are not cached: the next access re-parses.
func (t *Transition) ConditionExpression() (expr.Expression, error) {
	if !t.cond.fresh {
		var parsed expr.Expression
		if strings.TrimSpace(t.condition) != "" {
			list, err := expr.Parse(t.condition)
			if err != nil {
				return nil, &ConditionError{Condition: t.condition, Err: err}
			}
			if len(list) != 1 {
				return nil, &ConditionError{Condition: t.condition}
			}
			parsed = list[0]
		}
		t.cond = conditionCache{fresh: true, expr: parsed}
	}
	return t.cond.expr, nil
}

// HasCondition reports whether the transition carries a guard.
func (t *Transition) HasCondition() (bool, error) {
	e, err := t.ConditionExpression()
	if err != nil {
		return false, err
	}
	return e != nil, nil
}

// Values returns the register-assignment annotation.
func (t *Transition) Values() string {
	return t.values
}

// SetValues updates the register-assignment annotation.
func (t *Transition) SetValues(values string) {
	if t.values != values {
		t.values = values
		t.MarkModified()
		if t.ctx != nil {
			t.ctx.MarkModified()
		}
	}
}

// Matches reports whether pos is close enough to pick the handle.
func (t *Transition) Matches(pos geom.Vec) bool {
	return pos.Sub(t.Pos()).Len() < transitionHitRadius
}

func (t *Transition) String() string {
	return fmt.Sprintf("%s --[%s]-> %s", t.fromState.Name(), t.condition, t.toState.Name())
}
