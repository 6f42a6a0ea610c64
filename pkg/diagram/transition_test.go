package diagram

import (
	"errors"
	"math"
	"testing"

	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

// fakeContext counts the notifications a transition sends its owner.
type fakeContext struct {
	initial       *Transition
	invalidations int
	modifications int
}

func (f *fakeContext) IsInitialTransition(t *Transition) bool { return t == f.initial }
func (f *fakeContext) InvalidateInitialState()                { f.invalidations++ }
func (f *fakeContext) MarkModified()                          { f.modifications++ }

func newTestPair() (*State, *State) {
	a := NewState("A")
	a.SetPos(geom.V(0, 0))
	b := NewState("B")
	b.SetPos(geom.V(200, 0))
	return a, b
}

func TestSetPosStaysOnBisector(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")

	requests := []geom.Vec{
		{X: 100, Y: 40},
		{X: 13, Y: -87},
		{X: 250, Y: 10},
		{X: 0, Y: 0},
	}

	axis := b.Pos().Sub(a.Pos()).Norm()
	mid := a.Pos().Add(b.Pos()).Mul(0.5)

	for _, req := range requests {
		tr.SetPos(req)
		// The handle must lie on the perpendicular bisector: its
		// offset from the midpoint has no component along the axis.
		residual := tr.Pos().Sub(mid).Dot(axis)
		if math.Abs(residual) > 1e-9 {
			t.Errorf("SetPos(%v): handle %v off bisector, residual %g", req, tr.Pos(), residual)
		}
	}

	// A request already on the bisector comes back unchanged
	tr.SetPos(geom.V(100, 40))
	if tr.Pos().Dist(geom.V(100, 40)) > 1e-9 {
		t.Errorf("on-bisector request moved to %v", tr.Pos())
	}
}

func TestSetPosSelfLoopRaw(t *testing.T) {
	c := NewState("C")
	c.SetPos(geom.V(50, 50))
	tr := NewTransition(c, c, "")

	req := geom.V(123, -45)
	tr.SetPos(req)
	if tr.Pos() != req {
		t.Errorf("self-loop SetPos should accept raw position, got %v", tr.Pos())
	}
}

func TestSetPosCoincidentEndpoints(t *testing.T) {
	a := NewState("A")
	a.SetPos(geom.V(10, 10))
	b := NewState("B")
	b.SetPos(geom.V(10, 10))
	tr := NewTransition(a, b, "")

	req := geom.V(70, 80)
	tr.SetPos(req)
	if tr.Pos() != req {
		t.Errorf("coincident endpoints should accept raw position, got %v", tr.Pos())
	}
}

func TestCalcForceSpring(t *testing.T) {
	// preferredDist = 5 * 30 = 150
	a, b := newTestPair() // 200 apart: further than preferred
	tr := NewTransition(a, b, "")
	a.ResetForce()
	b.ResetForce()

	tr.CalcForce([]*State{a, b}, []*Transition{tr})

	// Hookean spring: endpoints further apart than the rest length
	// are pulled toward each other along the A-B axis.
	if a.Force().X <= 0 {
		t.Errorf("A should be pulled toward B, force %v", a.Force())
	}
	if b.Force().X >= 0 {
		t.Errorf("B should be pulled toward A, force %v", b.Force())
	}
	wantMag := expansionTrans * 50 * 200 // delta=50 on an unnormalised 200-long axis
	if math.Abs(a.Force().Len()-wantMag) > 1e-9 {
		t.Errorf("spring magnitude: got %g, want %g", a.Force().Len(), wantMag)
	}

	// Closer than the rest length: pushed apart
	b.SetPos(geom.V(100, 0))
	a.ResetForce()
	b.ResetForce()
	tr.CalcForce([]*State{a, b}, []*Transition{tr})
	if a.Force().X >= 0 {
		t.Errorf("A should be pushed away from B, force %v", a.Force())
	}
	if b.Force().X <= 0 {
		t.Errorf("B should be pushed away from A, force %v", b.Force())
	}
}

func TestCalcForceSelfLoopSkipsSpring(t *testing.T) {
	c := NewState("C")
	c.SetPos(geom.V(50, 50))
	tr := NewTransition(c, c, "")
	c.ResetForce()

	tr.CalcForce([]*State{c}, []*Transition{tr})

	if !c.Force().IsZero() {
		t.Errorf("self-loop should add no endpoint spring force, got %v", c.Force())
	}
}

func TestCalcForceMidpointAttraction(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")
	tr.Movable.SetPos(geom.V(100, 40))

	tr.CalcForce([]*State{a, b}, []*Transition{tr})

	// With no other entities, the handle force is exactly the pull
	// toward the endpoint midpoint.
	center := a.Pos().Add(b.Pos()).Mul(0.5)
	want := center.Sub(tr.Pos()).Mul(attraction)
	if tr.Force().Dist(want) > 1e-9 {
		t.Errorf("handle force %v, want pure midpoint pull %v", tr.Force(), want)
	}
}

func TestInitialTransitionExemptFromRepulsion(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")
	tr.Movable.SetPos(geom.V(100, 40))
	ctx := &fakeContext{initial: tr}
	tr.ctx = ctx

	// Crowd the neighbourhood with unrelated entities
	other := NewState("X")
	other.SetPos(geom.V(110, 50))
	o2 := NewTransition(a, other, "")
	o2.Movable.SetPos(geom.V(95, 35))

	tr.CalcForce([]*State{a, b, other}, []*Transition{tr, o2})

	center := a.Pos().Add(b.Pos()).Mul(0.5)
	want := center.Sub(tr.Pos()).Mul(attraction)
	if tr.Force().Dist(want) > 1e-9 {
		t.Errorf("initial transition received repulsion: force %v, want %v", tr.Force(), want)
	}

	// The same setup without the exemption does pick up repulsion
	tr.ctx = &fakeContext{}
	tr.CalcForce([]*State{a, b, other}, []*Transition{tr, o2})
	if tr.Force().Dist(want) < 1e-9 {
		t.Errorf("ordinary transition should be repelled by nearby entities")
	}
}

func TestSetConditionNoOpOnEqualValue(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")
	ctx := &fakeContext{}
	tr.ctx = ctx

	tr.SetCondition("a&b")
	if ctx.invalidations != 1 {
		t.Fatalf("expected 1 invalidation, got %d", ctx.invalidations)
	}

	e1, err := tr.ConditionExpression()
	if err != nil {
		t.Fatalf("ConditionExpression: %v", err)
	}

	// Same value again: cache kept, no second notification
	tr.SetCondition("a&b")
	if ctx.invalidations != 1 {
		t.Errorf("equal-value SetCondition notified again (%d invalidations)", ctx.invalidations)
	}
	e2, err := tr.ConditionExpression()
	if err != nil {
		t.Fatalf("ConditionExpression: %v", err)
	}
	if e1 != e2 {
		t.Errorf("equal-value SetCondition dropped the cached expression")
	}

	// A different value invalidates
	tr.SetCondition("a|b")
	if ctx.invalidations != 2 {
		t.Errorf("expected 2 invalidations after real edit, got %d", ctx.invalidations)
	}
	e3, err := tr.ConditionExpression()
	if err != nil {
		t.Fatalf("ConditionExpression: %v", err)
	}
	if e3 == e1 {
		t.Errorf("edit did not re-parse the expression")
	}
}

func TestConditionExpressionRoundTrip(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "a&b")

	e, err := tr.ConditionExpression()
	if err != nil {
		t.Fatalf("ConditionExpression: %v", err)
	}
	if e == nil {
		t.Fatal("expected an expression for a&b")
	}
	if !e.Eval(map[string]bool{"a": true, "b": true}) {
		t.Errorf("a&b should evaluate true under a=b=1")
	}

	tr.SetCondition("")
	e, err = tr.ConditionExpression()
	if err != nil {
		t.Fatalf("empty condition should not error: %v", err)
	}
	if e != nil {
		t.Errorf("empty condition should yield no expression, got %v", e)
	}

	has, err := tr.HasCondition()
	if err != nil || has {
		t.Errorf("HasCondition on empty = (%v, %v), want (false, nil)", has, err)
	}
}

func TestConditionErrorsAreLazy(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")

	// Neither the malformed nor the two-expression text errors at
	// set time; typing invalid text mid-edit must not crash anything.
	for _, bad := range []string{"(", "a&b  c"} {
		tr.SetCondition(bad)

		_, err := tr.ConditionExpression()
		if err == nil {
			t.Errorf("ConditionExpression(%q): expected error", bad)
			continue
		}
		var ce *ConditionError
		if !errors.As(err, &ce) {
			t.Errorf("ConditionExpression(%q): error %v is not a *ConditionError", bad, err)
			continue
		}
		if ce.Condition != bad {
			t.Errorf("ConditionError should carry the offending text, got %q", ce.Condition)
		}
	}
}

func TestDrawToNormalGeometry(t *testing.T) {
	a, b := newTestPair() // A(0,0,r30), B(200,0,r30)
	tr := NewTransition(a, b, "go")
	tr.SetPos(geom.V(100, 40))

	rec := &graphic.Recorder{}
	tr.DrawTo(rec)

	if len(rec.Polygons) != 2 {
		t.Fatalf("expected curve + arrowhead polygons, got %d", len(rec.Polygons))
	}

	curve := rec.Polygons[0].Polygon
	if curve.Closed {
		t.Errorf("curve polygon should be open")
	}
	if len(curve.Path) != 2 || !curve.Path[1].Quad {
		t.Fatalf("curve should be start + one quadratic element")
	}

	// Start boundary point: A's centre offset toward the handle by
	// radius + max line thickness.
	wantStart := a.Pos().Add(tr.Pos().Sub(a.Pos()).Norm().Mul(a.VisualRadius() + graphic.MaxLineThick))
	if curve.Path[0].To.Dist(wantStart) > 1e-9 {
		t.Errorf("curve start %v, want %v", curve.Path[0].To, wantStart)
	}

	// End boundary point reserves extra clearance for the arrowhead
	wantEnd := b.Pos().Add(tr.Pos().Sub(b.Pos()).Norm().Mul(b.VisualRadius() + graphic.MaxLineThick + 2))
	if curve.Path[1].To.Dist(wantEnd) > 1e-9 {
		t.Errorf("curve end %v, want %v", curve.Path[1].To, wantEnd)
	}

	// Control point amplified so the apex passes through the handle
	wantAnchor := tr.Pos().Mul(2).Sub(wantStart.Div(2)).Sub(wantEnd.Div(2))
	if curve.Path[1].Ctrl.Dist(wantAnchor) > 1e-9 {
		t.Errorf("curve anchor %v, want %v", curve.Path[1].Ctrl, wantAnchor)
	}

	// Arrowhead: filled triangle aligned with the incoming tangent
	head := rec.Polygons[1]
	if !head.Style.Filled {
		t.Errorf("arrowhead should be filled")
	}
	if len(head.Polygon.Path) != 3 || !head.Polygon.Closed {
		t.Errorf("arrowhead should be a closed triangle")
	}
	dir := wantAnchor.Sub(wantEnd).Norm().Mul(20)
	lot := dir.Orthogonal().Mul(0.3)
	wantTip := wantEnd.Sub(dir.Mul(0.1))
	if head.Polygon.Path[1].To.Dist(wantTip) > 1e-9 {
		t.Errorf("arrow tip %v, want %v", head.Polygon.Path[1].To, wantTip)
	}
	if head.Polygon.Path[0].To.Dist(wantEnd.Add(dir).Add(lot)) > 1e-9 {
		t.Errorf("arrow wing %v, want %v", head.Polygon.Path[0].To, wantEnd.Add(dir).Add(lot))
	}

	// Condition label: both endpoints lie below the handle, so the
	// text is nudged down by half a font height.
	if len(rec.Texts) != 1 {
		t.Fatalf("expected 1 label, got %d", len(rec.Texts))
	}
	wantText := tr.Pos().Add(geom.V(0, graphic.Label.FontSize/2))
	if rec.Texts[0].Anchor.Dist(wantText) > 1e-9 {
		t.Errorf("label anchor %v, want %v", rec.Texts[0].Anchor, wantText)
	}
	if rec.Texts[0].Text != "go" {
		t.Errorf("label text %q", rec.Texts[0].Text)
	}
}

func TestDrawToSelfLoopGeometry(t *testing.T) {
	c := NewState("C")
	c.SetPos(geom.V(50, 50))
	c.SetRadius(20)
	tr := NewTransition(c, c, "")
	tr.SetPos(geom.V(60, 65))

	rec := &graphic.Recorder{}
	tr.DrawTo(rec)

	curve := rec.Polygons[0].Polygon
	start := curve.Path[0].To
	end := curve.Path[1].To

	if start.Dist(end) < 1e-6 {
		t.Fatalf("self-loop start and end coincide at %v", start)
	}

	// Attachment points derive from the orthogonal of handle-centre,
	// scaled 0.5, projected onto the circle boundary.
	dif := tr.Pos().Sub(c.Pos()).Orthogonal().Mul(0.5)
	wantStart := c.Pos().Add(tr.Pos().Add(dif).Sub(c.Pos()).Norm().Mul(c.VisualRadius() + graphic.MaxLineThick))
	wantEnd := c.Pos().Add(tr.Pos().Sub(dif).Sub(c.Pos()).Norm().Mul(c.VisualRadius() + graphic.MaxLineThick + 2))
	if start.Dist(wantStart) > 1e-9 {
		t.Errorf("self-loop start %v, want %v", start, wantStart)
	}
	if end.Dist(wantEnd) > 1e-9 {
		t.Errorf("self-loop end %v, want %v", end, wantEnd)
	}

	// Both attachment points sit just outside the circle
	for _, p := range []geom.Vec{start, end} {
		if p.Dist(c.Pos()) < c.VisualRadius() {
			t.Errorf("attachment point %v inside the state circle", p)
		}
	}
}

func TestDrawToSkipsEmptyCondition(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")
	tr.SetPos(geom.V(100, 40))

	rec := &graphic.Recorder{}
	tr.DrawTo(rec)
	if len(rec.Texts) != 0 {
		t.Errorf("empty condition should draw no label, got %d texts", len(rec.Texts))
	}

	tr.SetValues("y:=1")
	rec = &graphic.Recorder{}
	tr.DrawTo(rec)
	if len(rec.Texts) != 1 {
		t.Fatalf("values annotation should draw, got %d texts", len(rec.Texts))
	}
	if rec.Texts[0].Text != "set y:=1" {
		t.Errorf("values label %q", rec.Texts[0].Text)
	}
}

func TestInitPosJitter(t *testing.T) {
	c := NewState("C")
	c.SetPos(geom.V(50, 50))

	// Self-loop handles must never start exactly on the node centre:
	// the loop geometry needs a direction to hang the arc off.
	for i := 0; i < 20; i++ {
		tr := NewTransition(c, c, "")
		off := tr.Pos().Sub(c.Pos())
		if off.Len() > math.Sqrt2 {
			t.Errorf("jitter too large: %v", off)
		}
		if off.Len() == 0 {
			t.Errorf("self-loop handle placed exactly on the centre")
		}
	}
}

func TestInitPosStartsOnBisector(t *testing.T) {
	a, b := newTestPair()
	axis := b.Pos().Sub(a.Pos()).Norm()
	mid := a.Pos().Add(b.Pos()).Mul(0.5)

	for i := 0; i < 20; i++ {
		tr := NewTransition(a, b, "")
		residual := tr.Pos().Sub(mid).Dot(axis)
		if math.Abs(residual) > 1e-9 {
			t.Errorf("initial handle %v off bisector, residual %g", tr.Pos(), residual)
		}
		if off := tr.Pos().Sub(mid); off.Len() > math.Sqrt2 {
			t.Errorf("jitter too large: %v", off)
		}
	}
}

func TestMatches(t *testing.T) {
	a, b := newTestPair()
	tr := NewTransition(a, b, "")
	tr.SetPos(geom.V(100, 0))

	if !tr.Matches(geom.V(120, 30)) {
		t.Errorf("point within pick radius should match")
	}
	if tr.Matches(geom.V(200, 100)) {
		t.Errorf("distant point should not match")
	}
}
