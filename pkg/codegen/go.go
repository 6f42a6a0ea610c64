// Package codegen turns a state diagram into standalone source code.
// The generated machines evaluate the same guard conditions the
// diagram carries, with signals passed as a struct of booleans.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/expr"
)

// GenerateGo generates Go code for the diagram. The result is plain
// Go with no allocations in the step function, suitable for TinyGo.
func GenerateGo(d *diagram.Diagram, packageName string) (string, error) {
	initial := d.Initial()
	if initial == nil {
		return "", fmt.Errorf("no initial state set")
	}
	if packageName == "" {
		packageName = "fsm"
	}

	typeName := toPascalCase(sanitizeName(d.Name()))
	if typeName == "" {
		typeName = "Machine"
	}

	// Outgoing transitions per state, in diagram order so earlier
	// guards keep their precedence
	outgoing := map[*diagram.State][]*diagram.Transition{}
	signals := map[string]bool{}
	hasValues := false
	for _, t := range d.Transitions() {
		if d.IsInitialTransition(t) {
			continue
		}
		e, err := t.ConditionExpression()
		if err != nil {
			return "", err
		}
		if e != nil {
			for _, v := range expr.Variables(e) {
				signals[v] = true
			}
		}
		if t.Values() != "" {
			hasValues = true
		}
		outgoing[t.FromState()] = append(outgoing[t.FromState()], t)
	}

	var signalNames []string
	for v := range signals {
		signalNames = append(signalNames, v)
	}
	sort.Strings(signalNames)

	var sb strings.Builder
	fmt.Fprintf(&sb, `// Code generated from state diagram. DO NOT EDIT.
// Diagram: %s

package %s

`, d.Name(), packageName)

	// State type
	fmt.Fprintf(&sb, "// %sState represents the states of the machine\n", typeName)
	fmt.Fprintf(&sb, "type %sState uint16\n\n", typeName)

	sb.WriteString("const (\n")
	for i, s := range d.States() {
		constName := stateConst(typeName, s)
		if i == 0 {
			fmt.Fprintf(&sb, "\t%s %sState = iota\n", constName, typeName)
		} else {
			fmt.Fprintf(&sb, "\t%s\n", constName)
		}
	}
	sb.WriteString(")\n\n")

	fmt.Fprintf(&sb, "var %sStateNames = [...]string{\n", strings.ToLower(typeName))
	for _, s := range d.States() {
		fmt.Fprintf(&sb, "\t%q,\n", s.Name())
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "func (s %sState) String() string {\n", typeName)
	fmt.Fprintf(&sb, "\tif int(s) < len(%sStateNames) {\n", strings.ToLower(typeName))
	fmt.Fprintf(&sb, "\t\treturn %sStateNames[s]\n", strings.ToLower(typeName))
	sb.WriteString("\t}\n")
	sb.WriteString("\treturn \"unknown\"\n")
	sb.WriteString("}\n\n")

	// Inputs struct
	fmt.Fprintf(&sb, "// %sInputs carries the signal values for one step\n", typeName)
	fmt.Fprintf(&sb, "type %sInputs struct {\n", typeName)
	for _, v := range signalNames {
		fmt.Fprintf(&sb, "\t%s bool\n", toPascalCase(sanitizeName(v)))
	}
	sb.WriteString("}\n\n")

	// Machine struct
	fmt.Fprintf(&sb, "// %s is the state machine\n", typeName)
	fmt.Fprintf(&sb, "type %s struct {\n", typeName)
	fmt.Fprintf(&sb, "\tstate %sState\n", typeName)
	if hasValues {
		sb.WriteString("\tvalues string\n")
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "// New%s creates the machine in its initial state\n", typeName)
	fmt.Fprintf(&sb, "func New%s() *%s {\n", typeName, typeName)
	fmt.Fprintf(&sb, "\treturn &%s{state: %s}\n", typeName, stateConst(typeName, initial))
	sb.WriteString("}\n\n")

	fmt.Fprintf(&sb, "// State returns the current state\n")
	fmt.Fprintf(&sb, "func (m *%s) State() %sState {\n", typeName, typeName)
	sb.WriteString("\treturn m.state\n")
	sb.WriteString("}\n\n")

	if hasValues {
		fmt.Fprintf(&sb, "// Values returns the output assignments of the last fired transition\n")
		fmt.Fprintf(&sb, "func (m *%s) Values() string {\n", typeName)
		sb.WriteString("\treturn m.values\n")
		sb.WriteString("}\n\n")
	}

	// Step: first guard that holds wins
	fmt.Fprintf(&sb, "// Step evaluates the guards of the current state and follows the\n")
	fmt.Fprintf(&sb, "// first one that holds. Returns true if a transition fired.\n")
	fmt.Fprintf(&sb, "func (m *%s) Step(in %sInputs) bool {\n", typeName, typeName)
	sb.WriteString("\tswitch m.state {\n")
	for _, s := range d.States() {
		trans := outgoing[s]
		if len(trans) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\tcase %s:\n", stateConst(typeName, s))
		for _, t := range trans {
			e, _ := t.ConditionExpression()
			indent := "\t\t"
			if e != nil {
				fmt.Fprintf(&sb, "\t\tif %s {\n", goExpr(e))
				indent = "\t\t\t"
			}
			fmt.Fprintf(&sb, "%sm.state = %s\n", indent, stateConst(typeName, t.ToState()))
			if hasValues {
				fmt.Fprintf(&sb, "%sm.values = %q\n", indent, t.Values())
			}
			fmt.Fprintf(&sb, "%sreturn true\n", indent)
			if e != nil {
				sb.WriteString("\t\t}\n")
			}
		}
	}
	sb.WriteString("\t}\n")
	sb.WriteString("\treturn false\n")
	sb.WriteString("}\n\n")

	// IsAccepting
	var accepting []*diagram.State
	for _, s := range d.States() {
		if s.Accepting() {
			accepting = append(accepting, s)
		}
	}
	sb.WriteString("// IsAccepting returns true if the current state is accepting\n")
	fmt.Fprintf(&sb, "func (m *%s) IsAccepting() bool {\n", typeName)
	if len(accepting) > 0 {
		sb.WriteString("\tswitch m.state {\n")
		sb.WriteString("\tcase ")
		for i, s := range accepting {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(stateConst(typeName, s))
		}
		sb.WriteString(":\n")
		sb.WriteString("\t\treturn true\n")
		sb.WriteString("\t}\n")
	}
	sb.WriteString("\treturn false\n")
	sb.WriteString("}\n\n")

	// Reset
	sb.WriteString("// Reset returns the machine to its initial state\n")
	fmt.Fprintf(&sb, "func (m *%s) Reset() {\n", typeName)
	fmt.Fprintf(&sb, "\tm.state = %s\n", stateConst(typeName, initial))
	if hasValues {
		sb.WriteString("\tm.values = \"\"\n")
	}
	sb.WriteString("}\n")

	return sb.String(), nil
}

func stateConst(typeName string, s *diagram.State) string {
	return fmt.Sprintf("%sState%s", typeName, toPascalCase(sanitizeName(s.Name())))
}

// goExpr renders a guard condition as a Go boolean expression over
// the inputs struct.
func goExpr(e expr.Expression) string {
	switch v := e.(type) {
	case *expr.Variable:
		return "in." + toPascalCase(sanitizeName(v.Name))
	case *expr.Constant:
		if v.Value {
			return "true"
		}
		return "false"
	case *expr.Not:
		return "!" + goOperand(v.Expr)
	case *expr.And:
		return joinGo(v.Exprs, " && ")
	case *expr.Or:
		return joinGo(v.Exprs, " || ")
	case *expr.Xor:
		return goOperand(v.A) + " != " + goOperand(v.B)
	default:
		return "false"
	}
}

func goOperand(e expr.Expression) string {
	switch e.(type) {
	case *expr.Variable, *expr.Constant, *expr.Not:
		return goExpr(e)
	default:
		return "(" + goExpr(e) + ")"
	}
}

func joinGo(exprs []expr.Expression, op string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = goOperand(e)
	}
	return strings.Join(parts, op)
}
