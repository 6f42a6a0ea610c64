package codegen

import (
	"strings"
	"testing"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

func buildDiagram() *diagram.Diagram {
	d := diagram.New("traffic light")
	red := d.AddState("red")
	green := d.AddState("green")
	green.SetAccepting(true)
	t := d.AddTransition(red, green, "go & !fault")
	t.SetValues("lamp:=1")
	d.AddTransition(green, red, "")
	d.SetInitial(red)
	return d
}

func TestGenerateGo(t *testing.T) {
	code, err := GenerateGo(buildDiagram(), "traffic")
	if err != nil {
		t.Fatalf("GenerateGo: %v", err)
	}

	for _, want := range []string{
		"package traffic",
		"type TrafficLightState uint16",
		"TrafficLightStateRed TrafficLightState = iota",
		"TrafficLightStateGreen",
		"type TrafficLightInputs struct {",
		"Fault bool",
		"Go bool",
		"if in.Go && !in.Fault {",
		"m.state = TrafficLightStateGreen",
		`m.values = "lamp:=1"`,
		"case TrafficLightStateGreen:",
		"func (m *TrafficLight) IsAccepting() bool",
		"func (m *TrafficLight) Reset()",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q", want)
		}
	}

	// The unconditional green->red transition has no guard
	marker := "case TrafficLightStateGreen:"
	idx := strings.Index(code, marker)
	if idx < 0 {
		t.Fatal("missing green case")
	}
	tail := code[idx+len(marker):]
	if end := strings.Index(tail, "}"); end > 0 {
		tail = tail[:end]
	}
	if strings.Contains(tail, "if ") {
		t.Errorf("unconditional transition should not emit a guard:\n%s", tail)
	}
}

func TestGenerateGoRequiresInitial(t *testing.T) {
	d := diagram.New("x")
	d.AddState("a")
	if _, err := GenerateGo(d, ""); err == nil {
		t.Error("expected error without initial state")
	}
}

func TestGenerateGoRejectsBadGuard(t *testing.T) {
	d := buildDiagram()
	d.Transitions()[0].SetCondition("go &")
	if _, err := GenerateGo(d, ""); err == nil {
		t.Error("expected error for unparseable guard")
	}
}

func TestGoExprPrecedence(t *testing.T) {
	d := diagram.New("")
	a := d.AddState("a")
	b := d.AddState("b")
	d.AddTransition(a, b, "(x | y) & z")
	d.SetInitial(a)

	code, err := GenerateGo(d, "")
	if err != nil {
		t.Fatalf("GenerateGo: %v", err)
	}
	if !strings.Contains(code, "(in.X || in.Y) && in.Z") {
		t.Errorf("compound operands should stay parenthesised")
	}
}
