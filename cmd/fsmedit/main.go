// Command fsmedit is a terminal editor for state diagrams.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsm-designer/pkg/diagram"
	"github.com/ha1tch/fsm-designer/pkg/fsmfile"
	"github.com/ha1tch/fsm-designer/pkg/geom"
)

// Mode represents editor mode
type Mode int

const (
	ModeCanvas Mode = iota
	ModeInput            // text entry in the prompt box
	ModePickTarget       // choosing the target state of a new transition
	ModeHelp             // help overlay
)

// MessageType for status messages
type MessageType int

const (
	MsgInfo MessageType = iota
	MsgError
	MsgSuccess
)

// movement per arrow key press, in diagram units
const cursorStep = 10

// Editor holds all editor state
type Editor struct {
	screen   tcell.Screen
	diagram  *diagram.Diagram
	filename string
	mode     Mode

	message           string
	messageType       MessageType
	messageFlashStart int64 // Unix milliseconds when message was shown

	// Canvas view
	offset geom.Vec // diagram coordinate of the top-left cell
	zoom   float64  // cells per diagram unit
	cursor geom.Vec // keyboard cursor in diagram coordinates

	// Selection
	selState *diagram.State
	selTrans *diagram.Transition

	// Mouse dragging
	dragState *diagram.State
	dragTrans *diagram.Transition

	// Pending transition source while picking a target
	transSource *diagram.State
	pickIndex   int

	// Automatic layout, stepped once per tick while running
	layoutRunning bool

	// Input prompt
	inputBuffer string
	inputPrompt string
	inputAction func(string)

	quitConfirm bool
}

func main() {
	ed := &Editor{
		diagram: diagram.New(""),
		zoom:    0.25,
		offset:  geom.V(-100, -100),
	}

	if len(os.Args) > 1 {
		if os.Args[1] == "-h" || os.Args[1] == "--help" {
			fmt.Println("Usage: fsmedit [file.yaml]")
			return
		}
		ed.filename = os.Args[1]
		if _, err := os.Stat(ed.filename); err == nil {
			d, err := fsmfile.Load(ed.filename)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", ed.filename, err)
				os.Exit(1)
			}
			ed.diagram = d
		}
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.EnableMouse()
	screen.Clear()

	ed.screen = screen
	ed.centerView()
	ed.run()

	screen.Fini()
}

func (ed *Editor) run() {
	// Periodic refresh while layout runs or a message flashes
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			flash := ed.message != "" && ed.messageFlashStart > 0 &&
				time.Now().UnixMilli()-ed.messageFlashStart < flashPeriod
			if ed.layoutRunning || flash {
				ed.screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		if ed.layoutRunning {
			if ed.diagram.Step() < diagram.ForceEpsilon {
				ed.layoutRunning = false
				ed.showMessage("Layout settled", MsgSuccess)
			}
		}

		ed.draw()
		ed.screen.Show()

		ev := ed.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			ed.screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventMouse:
			ed.handleMouse(ev)
		case *tcell.EventInterrupt:
			// Redraw only
		}
	}
}

func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	switch ed.mode {
	case ModeInput:
		ed.handleInputKey(ev)
		return false
	case ModePickTarget:
		ed.handlePickTargetKey(ev)
		return false
	case ModeHelp:
		ed.mode = ModeCanvas
		return false
	}

	if ev.Key() == tcell.KeyCtrlS {
		ed.save()
		return false
	}
	if ev.Key() == tcell.KeyCtrlQ || ev.Key() == tcell.KeyCtrlC {
		return ed.confirmQuit()
	}

	switch ev.Key() {
	case tcell.KeyUp:
		ed.moveCursor(geom.V(0, -cursorStep))
	case tcell.KeyDown:
		ed.moveCursor(geom.V(0, cursorStep))
	case tcell.KeyLeft:
		ed.moveCursor(geom.V(-cursorStep, 0))
	case tcell.KeyRight:
		ed.moveCursor(geom.V(cursorStep, 0))
	case tcell.KeyTab:
		ed.cycleSelection()
	case tcell.KeyEnter:
		ed.promptAddState()
	case tcell.KeyDelete, tcell.KeyBackspace2:
		ed.deleteSelected()
	case tcell.KeyEscape:
		ed.selState = nil
		ed.selTrans = nil
		ed.quitConfirm = false
	case tcell.KeyRune:
		return ed.handleRune(ev.Rune())
	}
	return false
}

func (ed *Editor) handleRune(r rune) bool {
	switch r {
	case 'q':
		return ed.confirmQuit()
	case 'n':
		ed.promptAddState()
	case 't':
		ed.startTransition()
	case 'c':
		ed.promptCondition()
	case 'v':
		ed.promptValues()
	case 'r':
		ed.promptRename()
	case 'a':
		ed.toggleAccepting()
	case 'i':
		ed.setInitial()
	case 'l':
		ed.layoutRunning = !ed.layoutRunning
		if ed.layoutRunning {
			ed.showMessage("Layout running", MsgInfo)
		} else {
			ed.showMessage("Layout paused", MsgInfo)
		}
	case ' ':
		ed.diagram.Step()
	case '+', '=':
		ed.zoomBy(1.25)
	case '-':
		ed.zoomBy(0.8)
	case 'h', '?':
		ed.mode = ModeHelp
	}
	return false
}

func (ed *Editor) handleInputKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.inputBuffer = ""
	case tcell.KeyEnter:
		action := ed.inputAction
		text := ed.inputBuffer
		ed.mode = ModeCanvas
		ed.inputBuffer = ""
		if action != nil {
			action(text)
		}
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if len(ed.inputBuffer) > 0 {
			ed.inputBuffer = ed.inputBuffer[:len(ed.inputBuffer)-1]
		}
	case tcell.KeyRune:
		ed.inputBuffer += string(ev.Rune())
	}
}

func (ed *Editor) handlePickTargetKey(ev *tcell.EventKey) {
	states := ed.diagram.States()
	switch ev.Key() {
	case tcell.KeyEscape:
		ed.mode = ModeCanvas
		ed.transSource = nil
	case tcell.KeyTab, tcell.KeyDown:
		if len(states) > 0 {
			ed.pickIndex = (ed.pickIndex + 1) % len(states)
		}
	case tcell.KeyUp:
		if len(states) > 0 {
			ed.pickIndex = (ed.pickIndex + len(states) - 1) % len(states)
		}
	case tcell.KeyEnter:
		if ed.pickIndex < len(states) {
			ed.finishTransition(states[ed.pickIndex])
		}
	}
}

func (ed *Editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	canvas := ed.canvas()
	pos := canvas.toDiagram(x, y)

	switch {
	case ev.Buttons()&tcell.Button1 != 0:
		if ed.dragState != nil {
			ed.dragState.SetPos(pos)
			return
		}
		if ed.dragTrans != nil {
			// Constrained: the handle stays on the bisector
			ed.dragTrans.SetPos(pos)
			return
		}

		ed.cursor = pos
		if s := ed.diagram.FindState(pos); s != nil {
			ed.selState = s
			ed.selTrans = nil
			ed.dragState = s
			if ed.mode == ModePickTarget {
				ed.finishTransition(s)
			}
			return
		}
		if t := ed.diagram.FindTransition(pos); t != nil {
			ed.selTrans = t
			ed.selState = nil
			ed.dragTrans = t
			return
		}
		ed.selState = nil
		ed.selTrans = nil

	case ev.Buttons() == tcell.ButtonNone:
		ed.dragState = nil
		ed.dragTrans = nil
	}
}

func (ed *Editor) moveCursor(delta geom.Vec) {
	ed.cursor = ed.cursor.Add(delta)
	if ed.selState != nil {
		ed.selState.SetPos(ed.selState.Pos().Add(delta))
	} else if ed.selTrans != nil {
		ed.selTrans.SetPos(ed.selTrans.Pos().Add(delta))
	}
}

func (ed *Editor) cycleSelection() {
	states := ed.diagram.States()
	if len(states) == 0 {
		return
	}
	next := 0
	for i, s := range states {
		if s == ed.selState {
			next = (i + 1) % len(states)
			break
		}
	}
	ed.selState = states[next]
	ed.selTrans = nil
	ed.cursor = ed.selState.Pos()
}

func (ed *Editor) promptAddState() {
	at := ed.cursor
	ed.prompt("State name: ", func(name string) {
		if name == "" {
			return
		}
		s := ed.diagram.AddState(name)
		s.SetPos(at)
		ed.selState = s
		ed.selTrans = nil
		ed.showMessage("Added state "+name, MsgSuccess)
	})
}

func (ed *Editor) startTransition() {
	if ed.selState == nil {
		ed.showMessage("Select a source state first", MsgError)
		return
	}
	ed.transSource = ed.selState
	ed.pickIndex = 0
	ed.mode = ModePickTarget
}

func (ed *Editor) finishTransition(target *diagram.State) {
	source := ed.transSource
	ed.transSource = nil
	ed.mode = ModeCanvas
	if source == nil {
		return
	}
	t := ed.diagram.AddTransition(source, target, "")
	ed.selTrans = t
	ed.selState = nil
	ed.promptCondition()
}

func (ed *Editor) promptCondition() {
	t := ed.selTrans
	if t == nil {
		ed.showMessage("Select a transition first", MsgError)
		return
	}
	ed.inputBuffer = t.Condition()
	ed.prompt("Condition: ", func(text string) {
		t.SetCondition(text)
		if _, err := t.ConditionExpression(); err != nil {
			ed.showMessage(err.Error(), MsgError)
			return
		}
		ed.showMessage("Condition set", MsgSuccess)
	})
}

func (ed *Editor) promptValues() {
	t := ed.selTrans
	if t == nil {
		ed.showMessage("Select a transition first", MsgError)
		return
	}
	ed.inputBuffer = t.Values()
	ed.prompt("Set values: ", func(text string) {
		t.SetValues(text)
	})
}

func (ed *Editor) promptRename() {
	s := ed.selState
	if s == nil {
		ed.showMessage("Select a state first", MsgError)
		return
	}
	ed.inputBuffer = s.Name()
	ed.prompt("Rename to: ", func(name string) {
		if name != "" {
			s.SetName(name)
		}
	})
}

func (ed *Editor) toggleAccepting() {
	if ed.selState == nil {
		ed.showMessage("Select a state first", MsgError)
		return
	}
	ed.selState.SetAccepting(!ed.selState.Accepting())
}

func (ed *Editor) setInitial() {
	if ed.selState == nil {
		ed.showMessage("Select a state first", MsgError)
		return
	}
	ed.diagram.SetInitial(ed.selState)
	ed.showMessage("Initial state: "+ed.selState.Name(), MsgSuccess)
}

func (ed *Editor) deleteSelected() {
	switch {
	case ed.selTrans != nil:
		ed.diagram.RemoveTransition(ed.selTrans)
		ed.selTrans = nil
		ed.showMessage("Transition removed", MsgSuccess)
	case ed.selState != nil:
		name := ed.selState.Name()
		ed.diagram.RemoveState(ed.selState)
		ed.selState = nil
		ed.showMessage("Removed state "+name, MsgSuccess)
	}
}

func (ed *Editor) save() {
	if ed.filename == "" {
		ed.prompt("Save as: ", func(name string) {
			if name == "" {
				return
			}
			ed.filename = name
			ed.save()
		})
		return
	}
	if err := fsmfile.Save(ed.filename, ed.diagram); err != nil {
		ed.showMessage("Save failed: "+err.Error(), MsgError)
		return
	}
	ed.showMessage("Saved "+ed.filename, MsgSuccess)
}

func (ed *Editor) confirmQuit() bool {
	if !ed.diagram.Modified() || ed.quitConfirm {
		return true
	}
	ed.quitConfirm = true
	ed.showMessage("Unsaved changes, press again to quit", MsgError)
	return false
}

func (ed *Editor) prompt(label string, action func(string)) {
	ed.inputPrompt = label
	ed.inputAction = action
	ed.mode = ModeInput
}

func (ed *Editor) showMessage(msg string, t MessageType) {
	ed.message = msg
	ed.messageType = t
	ed.messageFlashStart = time.Now().UnixMilli()
}

func (ed *Editor) zoomBy(factor float64) {
	center := ed.viewCenter()
	ed.zoom *= factor
	if ed.zoom < 0.05 {
		ed.zoom = 0.05
	}
	if ed.zoom > 2 {
		ed.zoom = 2
	}
	ed.panTo(center)
}

// centerView pans so the diagram bounds sit in the middle of the canvas.
func (ed *Editor) centerView() {
	min, max := ed.diagram.Bounds()
	ed.panTo(min.Add(max).Mul(0.5))
	ed.cursor = min.Add(max).Mul(0.5)
}

func (ed *Editor) viewCenter() geom.Vec {
	c := ed.canvas()
	return c.toDiagram(c.width/2, c.height/2)
}

func (ed *Editor) panTo(center geom.Vec) {
	w, h := ed.canvasSize()
	ed.offset = geom.V(
		center.X-float64(w)/2/ed.zoom,
		center.Y-float64(h)/2*cellAspect/ed.zoom,
	)
}

func (ed *Editor) canvasSize() (int, int) {
	w, h := ed.screen.Size()
	return w - sidebarWidth, h - 2
}

func (ed *Editor) canvas() *cellCanvas {
	w, h := ed.canvasSize()
	return newCellCanvas(ed.screen, w, h, ed.offset, ed.zoom)
}
