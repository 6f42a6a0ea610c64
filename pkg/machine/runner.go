// Package machine executes a state diagram: it walks the states by
// evaluating transition guard conditions against signal values.
package machine

import (
	"fmt"
	"sort"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/expr"
)

// Step records one step of execution.
type Step struct {
	From    string
	To      string
	Signals map[string]bool // signal values the step was taken under
	Values  string          // output assignments of the fired transition
}

// Runner executes a diagram interactively. When several guards are
// true at once, the transition added first wins.
type Runner struct {
	d       *diagram.Diagram
	current *diagram.State
	history []Step
}

// NewRunner creates a runner positioned at the diagram's initial
// state. All guard conditions must parse.
func NewRunner(d *diagram.Diagram) (*Runner, error) {
	if d.Initial() == nil {
		return nil, fmt.Errorf("no initial state set")
	}
	for _, t := range d.Transitions() {
		if d.IsInitialTransition(t) {
			continue
		}
		if _, err := t.ConditionExpression(); err != nil {
			return nil, err
		}
	}
	return &Runner{
		d:       d,
		current: d.Initial(),
	}, nil
}

// CurrentState returns the state the runner is in.
func (r *Runner) CurrentState() *diagram.State {
	return r.current
}

// IsAccepting reports whether the current state is accepting.
func (r *Runner) IsAccepting() bool {
	return r.current.Accepting()
}

// Signals returns the names of all signals referenced by any guard,
// sorted.
func (r *Runner) Signals() []string {
	seen := map[string]bool{}
	for _, t := range r.d.Transitions() {
		if r.d.IsInitialTransition(t) {
			continue
		}
		e, err := t.ConditionExpression()
		if err != nil || e == nil {
			continue
		}
		for _, v := range expr.Variables(e) {
			seen[v] = true
		}
	}
	names := make([]string, 0, len(seen))
	for v := range seen {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Step evaluates the outgoing guards of the current state under the
// given signal values and follows the first one that holds. A
// transition without a condition always fires. Returns the fired
// transition, or nil when no guard holds and the machine stays put.
func (r *Runner) Step(signals map[string]bool) (*diagram.Transition, error) {
	for _, t := range r.d.Transitions() {
		if r.d.IsInitialTransition(t) || t.FromState() != r.current {
			continue
		}
		e, err := t.ConditionExpression()
		if err != nil {
			return nil, err
		}
		if e != nil && !e.Eval(signals) {
			continue
		}

		r.history = append(r.history, Step{
			From:    r.current.Name(),
			To:      t.ToState().Name(),
			Signals: copySignals(signals),
			Values:  t.Values(),
		})
		r.current = t.ToState()
		return t, nil
	}
	return nil, nil
}

// Run steps the machine once per signal assignment and returns the
// fired transitions, nil entries marking ticks where nothing fired.
func (r *Runner) Run(sequence []map[string]bool) ([]*diagram.Transition, error) {
	var fired []*diagram.Transition
	for _, signals := range sequence {
		t, err := r.Step(signals)
		if err != nil {
			return fired, err
		}
		fired = append(fired, t)
	}
	return fired, nil
}

// Reset returns the runner to the initial state and clears history.
func (r *Runner) Reset() {
	r.current = r.d.Initial()
	r.history = nil
}

// History returns the execution history.
func (r *Runner) History() []Step {
	return r.history
}

// Status returns a one-line description of the current state.
func (r *Runner) Status() string {
	status := fmt.Sprintf("State: %s", r.current.Name())
	if r.IsAccepting() {
		status += " [accepting]"
	}
	return status
}

func copySignals(signals map[string]bool) map[string]bool {
	c := make(map[string]bool, len(signals))
	for k, v := range signals {
		c[k] = v
	}
	return c
}
