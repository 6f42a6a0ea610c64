package machine

import (
	"testing"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

func buildDiagram() *diagram.Diagram {
	d := diagram.New("turnstile")
	locked := d.AddState("locked")
	unlocked := d.AddState("unlocked")
	unlocked.SetAccepting(true)
	d.AddTransition(locked, unlocked, "coin")
	d.AddTransition(unlocked, locked, "push")
	d.SetInitial(locked)
	return d
}

func TestRunnerBasics(t *testing.T) {
	d := buildDiagram()
	r, err := NewRunner(d)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if r.CurrentState().Name() != "locked" {
		t.Fatalf("start state %q", r.CurrentState().Name())
	}
	if r.IsAccepting() {
		t.Error("locked should not accept")
	}

	// No guard holds: the machine stays put
	fired, err := r.Step(map[string]bool{"push": true})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if fired != nil {
		t.Errorf("unexpected transition %v", fired)
	}
	if r.CurrentState().Name() != "locked" {
		t.Errorf("moved to %q without a matching guard", r.CurrentState().Name())
	}

	fired, err = r.Step(map[string]bool{"coin": true})
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if fired == nil || fired.ToState().Name() != "unlocked" {
		t.Fatalf("expected move to unlocked, got %v", fired)
	}
	if !r.IsAccepting() {
		t.Error("unlocked should accept")
	}

	if len(r.History()) != 1 {
		t.Fatalf("history length %d", len(r.History()))
	}
	step := r.History()[0]
	if step.From != "locked" || step.To != "unlocked" {
		t.Errorf("recorded %s -> %s", step.From, step.To)
	}

	r.Reset()
	if r.CurrentState().Name() != "locked" || len(r.History()) != 0 {
		t.Errorf("reset did not restore initial state")
	}
}

func TestRunnerUnconditionalFires(t *testing.T) {
	d := diagram.New("")
	a := d.AddState("a")
	b := d.AddState("b")
	d.AddTransition(a, b, "")
	d.SetInitial(a)

	r, err := NewRunner(d)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	fired, err := r.Step(nil)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if fired == nil || r.CurrentState() != b {
		t.Errorf("unconditional transition should always fire")
	}
}

func TestRunnerFirstGuardWins(t *testing.T) {
	d := diagram.New("")
	a := d.AddState("a")
	b := d.AddState("b")
	c := d.AddState("c")
	d.AddTransition(a, b, "x")
	d.AddTransition(a, c, "x")
	d.SetInitial(a)

	r, _ := NewRunner(d)
	fired, _ := r.Step(map[string]bool{"x": true})
	if fired == nil || fired.ToState() != b {
		t.Errorf("the transition added first should win")
	}
}

func TestRunnerRejectsMissingInitial(t *testing.T) {
	d := diagram.New("")
	d.AddState("a")
	if _, err := NewRunner(d); err == nil {
		t.Error("expected error without initial state")
	}
}

func TestRunnerRejectsBadGuards(t *testing.T) {
	d := buildDiagram()
	tr := d.Transitions()[0]
	tr.SetCondition("coin &")
	if _, err := NewRunner(d); err == nil {
		t.Error("expected error for unparseable guard")
	}
}

func TestSignals(t *testing.T) {
	d := diagram.New("")
	a := d.AddState("a")
	b := d.AddState("b")
	d.AddTransition(a, b, "x & !y")
	d.AddTransition(b, a, "y | z")
	d.SetInitial(a)

	r, _ := NewRunner(d)
	got := r.Signals()
	want := []string{"x", "y", "z"}
	if len(got) != len(want) {
		t.Fatalf("signals %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("signals %v, want %v", got, want)
			break
		}
	}
}
