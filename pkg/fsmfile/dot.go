package fsmfile

import (
	"fmt"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
)

// GenerateDOT converts a diagram to Graphviz DOT format. Layout
// positions are not exported; Graphviz does its own placement.
func GenerateDOT(d *diagram.Diagram) string {
	var sb strings.Builder

	sb.WriteString("digraph FSM {\n")
	sb.WriteString("    rankdir=LR;\n")
	sb.WriteString("    node [fontname=\"Helvetica\", fontsize=11];\n")
	sb.WriteString("    edge [fontname=\"Helvetica\", fontsize=10];\n")
	sb.WriteString("\n")

	if d.Name() != "" {
		sb.WriteString("    labelloc=\"t\";\n")
		sb.WriteString(fmt.Sprintf("    label=\"%s\";\n", escapeDOT(d.Name())))
		sb.WriteString("\n")
	}

	// Invisible start node standing in for the initial marker
	if d.Initial() != nil {
		sb.WriteString("    __start [shape=none, label=\"\", width=0, height=0];\n")
		sb.WriteString(fmt.Sprintf("    __start -> \"%s\";\n", escapeDOT(d.Initial().Name())))
		sb.WriteString("\n")
	}

	for _, s := range d.States() {
		shape := "circle"
		if s.Accepting() {
			shape = "doublecircle"
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" [shape=%s];\n", escapeDOT(s.Name()), shape))
	}
	sb.WriteString("\n")

	for _, t := range d.Transitions() {
		if t == d.InitialTransition() {
			continue
		}
		label := escapeDOT(t.Condition())
		if t.Values() != "" {
			if label != "" {
				label += "\\n"
			}
			label += escapeDOT("set " + t.Values())
		}
		sb.WriteString(fmt.Sprintf("    \"%s\" -> \"%s\" [label=\"%s\"];\n",
			escapeDOT(t.FromState().Name()), escapeDOT(t.ToState().Name()), label))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "<", "\\<")
	s = strings.ReplaceAll(s, ">", "\\>")
	return s
}
