// Command fsmdraw renders state diagrams to SVG, PNG or Graphviz DOT.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/codegen"
	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/expr"
	"github.com/ha1tch/fsm-designer/pkg/fsmfile"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
	"github.com/ha1tch/fsm-designer/pkg/machine"
)

const usage = `fsmdraw - state diagram renderer

Usage:
  fsmdraw <command> [options]

Commands:
  render     Render a diagram to SVG, PNG or DOT
  layout     Run automatic layout and save the result
  info       Show diagram information
  check      Check guard conditions and the initial state
  run        Step through the diagram interactively
  gen        Generate Go source code for the machine

Examples:
  fsmdraw render machine.yaml -o machine.svg
  fsmdraw render machine.yaml -o machine.png --size 1200x900
  fsmdraw render machine.yaml -o machine.dot
  fsmdraw layout machine.yaml
  fsmdraw check machine.yaml
  fsmdraw run machine.yaml
  fsmdraw gen machine.yaml -p trafficlight -o machine_gen.go

Use "fsmdraw <command> -h" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "render":
		cmdRender(args)
	case "layout":
		cmdLayout(args)
	case "info":
		cmdInfo(args)
	case "check":
		cmdCheck(args)
	case "run":
		cmdRun(args)
	case "gen":
		cmdGen(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}

func cmdRender(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw render <input> [-o output] [--size WxH] [--layout] [-t title]")
		os.Exit(1)
	}

	input := args[0]
	var output, title string
	width, height := 800, 600
	runLayout := false

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "-t", "--title":
			if i+1 < len(args) {
				title = args[i+1]
				i++
			}
		case "--size":
			if i+1 < len(args) {
				w, h, err := parseSize(args[i+1])
				if err != nil {
					fmt.Fprintf(os.Stderr, "Bad size %q: %v\n", args[i+1], err)
					os.Exit(1)
				}
				width, height = w, h
				i++
			}
		case "--layout":
			runLayout = true
		}
	}

	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	if runLayout {
		d.Layout()
	}

	if title == "" {
		title = d.Name()
	}
	if output == "" {
		output = replaceExt(input, ".svg")
	}

	min, max := d.Bounds()

	switch filepath.Ext(output) {
	case ".svg":
		opts := graphic.DefaultSVGOptions()
		opts.Width = width
		opts.Height = height
		opts.Title = title
		svg := graphic.NewSVG(min, max, opts)
		d.DrawTo(svg)
		err = svg.WriteFile(output)
	case ".png":
		opts := graphic.DefaultPNGOptions()
		opts.Width = width
		opts.Height = height
		opts.Title = title
		img := graphic.NewPNG(min, max, opts)
		d.DrawTo(img)
		err = img.WriteFile(output)
	case ".dot":
		err = os.WriteFile(output, []byte(fsmfile.GenerateDOT(d)), 0644)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format: %s\n", filepath.Ext(output))
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
		os.Exit(1)
	}

	fmt.Printf("Written: %s\n", output)
}

func cmdLayout(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw layout <input> [-o output]")
		os.Exit(1)
	}

	input := args[0]
	output := input

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		}
	}

	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	iterations := d.Layout()

	if err := fsmfile.Save(output, d); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
		os.Exit(1)
	}

	fmt.Printf("Layout settled after %d iterations, written: %s\n", iterations, output)
}

func cmdInfo(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw info <input>")
		os.Exit(1)
	}

	input := args[0]
	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	if d.Name() != "" {
		fmt.Printf("Name:        %s\n", d.Name())
	}
	fmt.Printf("States:      %d\n", len(d.States()))
	fmt.Printf("Transitions: %d\n", countVisible(d))
	if initial := d.Initial(); initial != nil {
		fmt.Printf("Initial:     %s\n", initial.Name())
	}

	var accepting []string
	for _, s := range d.States() {
		if s.Accepting() {
			accepting = append(accepting, s.Name())
		}
	}
	if len(accepting) > 0 {
		fmt.Printf("Accepting:   %v\n", accepting)
	}

	vars := map[string]bool{}
	for _, t := range d.Transitions() {
		e, err := t.ConditionExpression()
		if err != nil || e == nil {
			continue
		}
		for _, v := range expr.Variables(e) {
			vars[v] = true
		}
	}
	if len(vars) > 0 {
		names := make([]string, 0, len(vars))
		for v := range vars {
			names = append(names, v)
		}
		sort.Strings(names)
		fmt.Printf("Signals:     %v\n", names)
	}
}

func cmdCheck(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw check <input>")
		os.Exit(1)
	}

	input := args[0]
	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	failed := false
	for _, t := range d.Transitions() {
		if d.IsInitialTransition(t) {
			continue
		}
		if _, err := t.ConditionExpression(); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", t, err)
			failed = true
		}
	}

	if err := d.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		failed = true
	}

	if failed {
		os.Exit(1)
	}

	fmt.Printf("%s: %d states, %d transitions, all conditions parse\n",
		input, len(d.States()), countVisible(d))
}

func cmdRun(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw run <input>")
		os.Exit(1)
	}

	input := args[0]
	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	runner, err := machine.NewRunner(d)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating runner: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Diagram: %s\n", d.Name())
	if signals := runner.Signals(); len(signals) > 0 {
		fmt.Printf("Signals: %v\n", signals)
	}
	fmt.Println("Commands: <signal>=<0|1> ..., step, reset, status, history, quit")
	fmt.Println()
	fmt.Println(runner.Status())

	signals := map[string]bool{}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit", "q":
			return
		case "reset":
			runner.Reset()
			fmt.Println("Reset to initial state")
			fmt.Println(runner.Status())
		case "status":
			fmt.Println(runner.Status())
		case "history":
			printHistory(runner)
		case "step":
			step(runner, signals)
		default:
			// Parse signal assignments, then step
			ok := true
			for _, field := range strings.Fields(line) {
				name, value, found := strings.Cut(field, "=")
				if !found {
					fmt.Fprintf(os.Stderr, "Expected <signal>=<0|1>, got %q\n", field)
					ok = false
					break
				}
				signals[name] = value == "1" || value == "true"
			}
			if ok {
				step(runner, signals)
			}
		}
	}
}

func step(runner *machine.Runner, signals map[string]bool) {
	fired, err := runner.Step(signals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if fired == nil {
		fmt.Println("No guard holds, staying put")
	} else if fired.Values() != "" {
		fmt.Printf("Fired, set %s\n", fired.Values())
	}
	fmt.Println(runner.Status())
}

func printHistory(runner *machine.Runner) {
	history := runner.History()
	if len(history) == 0 {
		fmt.Println("No history yet")
		return
	}
	fmt.Println("History:")
	for i, s := range history {
		line := fmt.Sprintf("  %d: %s --> %s", i+1, s.From, s.To)
		if s.Values != "" {
			line += fmt.Sprintf(" [set %s]", s.Values)
		}
		fmt.Println(line)
	}
}

func cmdGen(args []string) {
	if len(args) < 1 || args[0] == "-h" {
		fmt.Fprintln(os.Stderr, "Usage: fsmdraw gen <input> [-o output] [-p package]")
		os.Exit(1)
	}

	input := args[0]
	var output, pkg string

	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-o", "--output":
			if i+1 < len(args) {
				output = args[i+1]
				i++
			}
		case "-p", "--package":
			if i+1 < len(args) {
				pkg = args[i+1]
				i++
			}
		}
	}

	d, err := fsmfile.Load(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", input, err)
		os.Exit(1)
	}

	code, err := codegen.GenerateGo(d, pkg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating code: %v\n", err)
		os.Exit(1)
	}

	if output == "" {
		fmt.Print(code)
		return
	}
	if err := os.WriteFile(output, []byte(code), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", output, err)
		os.Exit(1)
	}
	fmt.Printf("Written: %s\n", output)
}

// countVisible excludes the synthetic initial marker.
func countVisible(d *diagram.Diagram) int {
	n := 0
	for _, t := range d.Transitions() {
		if !d.IsInitialTransition(t) {
			n++
		}
	}
	return n
}

func parseSize(s string) (int, int, error) {
	for i := 0; i < len(s); i++ {
		if s[i] == 'x' {
			w, err := strconv.Atoi(s[:i])
			if err != nil {
				return 0, 0, err
			}
			h, err := strconv.Atoi(s[i+1:])
			if err != nil {
				return 0, 0, err
			}
			if w < 1 || h < 1 {
				return 0, 0, fmt.Errorf("size must be positive")
			}
			return w, h, nil
		}
	}
	return 0, 0, fmt.Errorf("expected WxH")
}

func replaceExt(path, ext string) string {
	old := filepath.Ext(path)
	return path[:len(path)-len(old)] + ext
}
