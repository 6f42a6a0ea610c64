// Package expr parses and evaluates the boolean guard conditions
// attached to diagram transitions.
package expr

import (
	"sort"
	"strings"
)

// Expression is a parsed boolean guard condition.
type Expression interface {
	// Eval evaluates the expression against variable assignments.
	// Unassigned variables evaluate to false.
	Eval(vars map[string]bool) bool
	String() string
}

// Variable references a named input signal.
type Variable struct {
	Name string
}

func (v *Variable) Eval(vars map[string]bool) bool { return vars[v.Name] }
func (v *Variable) String() string                 { return v.Name }

// Constant is a literal 0 or 1.
type Constant struct {
	Value bool
}

func (c *Constant) Eval(map[string]bool) bool { return c.Value }
func (c *Constant) String() string {
	if c.Value {
		return "1"
	}
	return "0"
}

// Not negates its operand.
type Not struct {
	Expr Expression
}

func (n *Not) Eval(vars map[string]bool) bool { return !n.Expr.Eval(vars) }
func (n *Not) String() string                 { return "!" + operandString(n.Expr) }

// And is the conjunction of two or more operands.
type And struct {
	Exprs []Expression
}

func (a *And) Eval(vars map[string]bool) bool {
	for _, e := range a.Exprs {
		if !e.Eval(vars) {
			return false
		}
	}
	return true
}

func (a *And) String() string { return joinOperands(a.Exprs, "&") }

// Or is the disjunction of two or more operands.
type Or struct {
	Exprs []Expression
}

func (o *Or) Eval(vars map[string]bool) bool {
	for _, e := range o.Exprs {
		if e.Eval(vars) {
			return true
		}
	}
	return false
}

func (o *Or) String() string { return joinOperands(o.Exprs, "|") }

// Xor is the exclusive or of two operands.
type Xor struct {
	A, B Expression
}

func (x *Xor) Eval(vars map[string]bool) bool { return x.A.Eval(vars) != x.B.Eval(vars) }
func (x *Xor) String() string {
	return operandString(x.A) + "^" + operandString(x.B)
}

// operandString parenthesises compound operands so that String output
// round-trips through Parse with the same structure.
func operandString(e Expression) string {
	switch e.(type) {
	case *Variable, *Constant, *Not:
		return e.String()
	default:
		return "(" + e.String() + ")"
	}
}

func joinOperands(exprs []Expression, op string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = operandString(e)
	}
	return strings.Join(parts, op)
}

// Variables returns the sorted set of variable names used in e.
func Variables(e Expression) []string {
	seen := make(map[string]bool)
	collectVariables(e, seen)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectVariables(e Expression, seen map[string]bool) {
	switch v := e.(type) {
	case *Variable:
		seen[v.Name] = true
	case *Not:
		collectVariables(v.Expr, seen)
	case *And:
		for _, sub := range v.Exprs {
			collectVariables(sub, seen)
		}
	case *Or:
		for _, sub := range v.Exprs {
			collectVariables(sub, seen)
		}
	case *Xor:
		collectVariables(v.A, seen)
		collectVariables(v.B, seen)
	}
}
