package diagram

import (
	"math"
	"testing"

	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

func newTestDiagram() (*Diagram, *State, *State, *State) {
	d := New("test")
	a := d.AddState("A")
	a.SetPos(geom.V(0, 0))
	b := d.AddState("B")
	b.SetPos(geom.V(200, 0))
	c := d.AddState("C")
	c.SetPos(geom.V(100, 180))
	return d, a, b, c
}

func TestAddRemove(t *testing.T) {
	d, a, b, c := newTestDiagram()
	t1 := d.AddTransition(a, b, "x")
	t2 := d.AddTransition(b, c, "y")
	d.AddTransition(c, a, "")

	if len(d.States()) != 3 || len(d.Transitions()) != 3 {
		t.Fatalf("got %d states, %d transitions", len(d.States()), len(d.Transitions()))
	}

	d.RemoveTransition(t2)
	if len(d.Transitions()) != 2 {
		t.Errorf("RemoveTransition left %d transitions", len(d.Transitions()))
	}

	// Removing a state cascades to its transitions
	d.RemoveState(a)
	if len(d.States()) != 2 {
		t.Errorf("RemoveState left %d states", len(d.States()))
	}
	for _, tr := range d.Transitions() {
		if tr == t1 {
			t.Errorf("transition attached to removed state survived")
		}
	}
}

func TestSetInitial(t *testing.T) {
	d, a, b, _ := newTestDiagram()
	d.AddTransition(a, b, "")
	d.SetInitial(a)

	marker := d.InitialTransition()
	if marker == nil {
		t.Fatal("expected an initial marker transition")
	}
	if !d.IsInitialTransition(marker) {
		t.Errorf("IsInitialTransition should identify the marker")
	}
	if marker.ToState() != a {
		t.Errorf("marker should point at the initial state")
	}

	// Ordinary transitions are not the marker
	for _, tr := range d.Transitions() {
		if tr != marker && d.IsInitialTransition(tr) {
			t.Errorf("ordinary transition identified as initial marker")
		}
	}

	// The marker tail stays anchored relative to the state across ticks
	d.Step()
	tail := marker.FromState().Pos()
	want := a.Pos().Add(initialMarkerOffset)
	if tail.Dist(want) > 1e-9 {
		t.Errorf("marker tail %v, want anchored at %v", tail, want)
	}

	// Re-assigning replaces the marker
	d.SetInitial(b)
	if d.Initial() != b {
		t.Errorf("Initial() = %v", d.Initial().Name())
	}
	count := 0
	for _, tr := range d.Transitions() {
		if d.IsInitialTransition(tr) {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one marker after re-assignment, got %d", count)
	}
}

func TestStartTransitionsCache(t *testing.T) {
	d, a, b, c := newTestDiagram()
	ab := d.AddTransition(a, b, "go")
	d.AddTransition(b, c, "x")
	d.SetInitial(a)

	list, err := d.StartTransitions()
	if err != nil {
		t.Fatalf("StartTransitions: %v", err)
	}
	if len(list) != 1 || list[0] != ab {
		t.Fatalf("StartTransitions = %v", list)
	}

	// A guard edit invalidates the cache; a broken guard surfaces
	// through the analysis, not at edit time.
	ab.SetCondition("(")
	if _, err := d.StartTransitions(); err == nil {
		t.Errorf("expected error for malformed start guard")
	}

	ab.SetCondition("go & fast")
	list, err = d.StartTransitions()
	if err != nil {
		t.Fatalf("StartTransitions after fix: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 start transition, got %d", len(list))
	}
}

func TestLayoutConverges(t *testing.T) {
	d, a, b, c := newTestDiagram()
	d.AddTransition(a, b, "")
	d.AddTransition(b, c, "")
	d.AddTransition(c, a, "")
	d.AddTransition(c, c, "loop")

	ticks := d.Layout()
	if ticks <= 0 || ticks > MaxLayoutIterations {
		t.Fatalf("Layout ran %d ticks", ticks)
	}

	// Positions must stay finite and states must not collapse
	for _, s := range d.States() {
		if math.IsNaN(s.Pos().X) || math.IsInf(s.Pos().X, 0) ||
			math.IsNaN(s.Pos().Y) || math.IsInf(s.Pos().Y, 0) {
			t.Fatalf("state %s at non-finite position %v", s.Name(), s.Pos())
		}
	}
	for i, s := range d.States() {
		for _, o := range d.States()[i+1:] {
			if s.Pos().Dist(o.Pos()) < 1 {
				t.Errorf("states %s and %s collapsed", s.Name(), o.Name())
			}
		}
	}
}

func TestLayoutSettlesBelowThreshold(t *testing.T) {
	d, a, b, c := newTestDiagram()
	d.AddTransition(a, b, "")
	d.AddTransition(b, c, "")

	ticks := d.Layout()
	if ticks >= MaxLayoutIterations {
		t.Fatalf("layout did not settle in %d ticks", ticks)
	}
	// Once Layout reports settled, further steps stay under the
	// same threshold the editor polls against.
	if m := d.Step(); m >= ForceEpsilon {
		t.Errorf("post-layout step moved %g, want below %g", m, ForceEpsilon)
	}
}

func TestIntegrationSnapshotSemantics(t *testing.T) {
	d, a, b, _ := newTestDiagram()
	d.AddTransition(a, b, "")

	// Force computation must not move anything; only Integrate does.
	before := make(map[*State]geom.Vec)
	for _, s := range d.States() {
		before[s] = s.Pos()
	}
	d.CalcForces()
	for _, s := range d.States() {
		if s.Pos() != before[s] {
			t.Errorf("CalcForces moved state %s", s.Name())
		}
	}
	d.Integrate()
}

func TestFindStateAndTransition(t *testing.T) {
	d, a, b, _ := newTestDiagram()
	tr := d.AddTransition(a, b, "")
	tr.SetPos(geom.V(100, 60))

	if got := d.FindState(geom.V(5, 5)); got != a {
		t.Errorf("FindState near A returned %v", got)
	}
	if got := d.FindState(geom.V(500, 500)); got != nil {
		t.Errorf("FindState far away returned %v", got)
	}
	if got := d.FindTransition(geom.V(105, 65)); got != tr {
		t.Errorf("FindTransition near handle returned %v", got)
	}
	if got := d.FindTransition(geom.V(500, 500)); got != nil {
		t.Errorf("FindTransition far away returned %v", got)
	}
}

func TestModifiedTracking(t *testing.T) {
	d := New("test")
	d.ClearModified()
	if d.Modified() {
		t.Fatal("fresh diagram should not be modified")
	}

	a := d.AddState("A")
	if !d.Modified() {
		t.Errorf("AddState should mark the diagram modified")
	}
	d.ClearModified()

	a.SetName("A2")
	if !d.Modified() {
		t.Errorf("entity edits should surface through Modified")
	}
	d.ClearModified()

	b := d.AddState("B")
	d.ClearModified()
	d.AddTransition(a, b, "")
	if !d.Modified() {
		t.Errorf("AddTransition should mark the diagram modified")
	}
}

func TestDrawToDrawsEverything(t *testing.T) {
	d, a, b, c := newTestDiagram()
	d.AddTransition(a, b, "x")
	d.AddTransition(b, c, "")
	d.SetInitial(a)

	rec := &graphic.Recorder{}
	d.DrawTo(rec)

	// 3 state outlines; the marker's hidden anchor draws nothing
	if len(rec.Circles) != 3 {
		t.Errorf("expected 3 circles, got %d", len(rec.Circles))
	}
	// 2 transitions + marker, each curve + arrowhead
	if len(rec.Polygons) != 6 {
		t.Errorf("expected 6 polygons, got %d", len(rec.Polygons))
	}
}

func TestBounds(t *testing.T) {
	d, a, _, _ := newTestDiagram()
	min, max := d.Bounds()

	r := a.VisualRadius() + graphic.MaxLineThick
	if min.X > -r+1e-9 || min.Y > -r+1e-9 {
		t.Errorf("min %v should cover state radius", min)
	}
	if max.X < 200+r-1e-9 || max.Y < 180+r-1e-9 {
		t.Errorf("max %v should cover all states", max)
	}
}
