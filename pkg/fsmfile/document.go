// Package fsmfile loads and saves diagram documents and exports them
// to external formats.
package fsmfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/geom"
)

// Document is the YAML file format for a diagram.
type Document struct {
	Name        string          `yaml:"name,omitempty"`
	Initial     string          `yaml:"initial,omitempty"`
	States      []StateDoc      `yaml:"states"`
	Transitions []TransitionDoc `yaml:"transitions,omitempty"`
}

// StateDoc is the persisted form of a state.
type StateDoc struct {
	Name      string  `yaml:"name"`
	X         float64 `yaml:"x"`
	Y         float64 `yaml:"y"`
	Radius    float64 `yaml:"radius,omitempty"`
	Accepting bool    `yaml:"accepting,omitempty"`
}

// TransitionDoc is the persisted form of a transition. The handle
// position is optional: a missing one gets the seeded default.
type TransitionDoc struct {
	From      string   `yaml:"from"`
	To        string   `yaml:"to"`
	Condition string   `yaml:"condition,omitempty"`
	Values    string   `yaml:"values,omitempty"`
	X         *float64 `yaml:"x,omitempty"`
	Y         *float64 `yaml:"y,omitempty"`
}

// Encode serialises a diagram to YAML. The synthetic initial marker
// is not persisted; it is reconstructed from the initial field.
func Encode(d *diagram.Diagram) ([]byte, error) {
	doc := Document{Name: d.Name()}
	if d.Initial() != nil {
		doc.Initial = d.Initial().Name()
	}

	for _, s := range d.States() {
		doc.States = append(doc.States, StateDoc{
			Name:      s.Name(),
			X:         s.Pos().X,
			Y:         s.Pos().Y,
			Radius:    s.Radius(),
			Accepting: s.Accepting(),
		})
	}

	for _, t := range d.Transitions() {
		if t == d.InitialTransition() {
			continue
		}
		x, y := t.Pos().X, t.Pos().Y
		doc.Transitions = append(doc.Transitions, TransitionDoc{
			From:      t.FromState().Name(),
			To:        t.ToState().Name(),
			Condition: t.Condition(),
			Values:    t.Values(),
			X:         &x,
			Y:         &y,
		})
	}

	return yaml.Marshal(&doc)
}

// Decode builds a diagram from YAML.
func Decode(data []byte) (*diagram.Diagram, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	d := diagram.New(doc.Name)
	byName := make(map[string]*diagram.State, len(doc.States))

	for _, sd := range doc.States {
		if sd.Name == "" {
			return nil, fmt.Errorf("state with empty name")
		}
		if _, dup := byName[sd.Name]; dup {
			return nil, fmt.Errorf("duplicate state %q", sd.Name)
		}
		s := d.AddState(sd.Name)
		s.SetPos(geom.V(sd.X, sd.Y))
		if sd.Radius > 0 {
			s.SetRadius(sd.Radius)
		}
		s.SetAccepting(sd.Accepting)
		byName[sd.Name] = s
	}

	for i, td := range doc.Transitions {
		from, ok := byName[td.From]
		if !ok {
			return nil, fmt.Errorf("transition %d: unknown state %q", i, td.From)
		}
		to, ok := byName[td.To]
		if !ok {
			return nil, fmt.Errorf("transition %d: unknown state %q", i, td.To)
		}

		t := d.AddTransition(from, to, td.Condition)
		t.SetValues(td.Values)
		if td.X != nil && td.Y != nil {
			// Restore the raw handle position; the drag constraint
			// only applies to interactive moves.
			t.Movable.SetPos(geom.V(*td.X, *td.Y))
		}
	}

	if doc.Initial != "" {
		s, ok := byName[doc.Initial]
		if !ok {
			return nil, fmt.Errorf("unknown initial state %q", doc.Initial)
		}
		d.SetInitial(s)
	}

	d.ClearModified()
	return d, nil
}

// Load reads a diagram document from a file.
func Load(path string) (*diagram.Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Save writes a diagram document to a file and clears its modified
// flags.
func Save(path string, d *diagram.Diagram) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	d.ClearModified()
	return nil
}
