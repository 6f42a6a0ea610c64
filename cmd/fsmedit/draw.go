package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
)

const sidebarWidth = 30

// flashPeriod is how long error and success messages flash, in ms.
const flashPeriod = 500

// Styles
var (
	styleDefault  = tcell.StyleDefault
	styleMenuSel  = tcell.StyleDefault.Background(tcell.ColorBlue).Foreground(tcell.ColorWhite)
	styleSidebar  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleSidebarH = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgError = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleHelp     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleCursor   = tcell.StyleDefault.Background(tcell.ColorDarkGray)
	styleSelected = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleBorder   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleInput    = tcell.StyleDefault.Background(tcell.ColorNavy).Foreground(tcell.ColorWhite)
)

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()

	canvas := ed.canvas()
	ed.diagram.DrawTo(canvas)
	ed.drawSelectionMarkers(canvas)

	// Keyboard cursor
	cx, cy := canvas.toCell(ed.cursor)
	if cx >= 0 && cx < canvas.width && cy >= 0 && cy < canvas.height {
		ed.screen.SetContent(cx, cy, '+', nil, styleCursor)
	}

	// Canvas / sidebar divider
	for y := 0; y < h-2; y++ {
		ed.screen.SetContent(w-sidebarWidth, y, '│', nil, styleBorder)
	}

	ed.drawSidebar(w, h)

	switch ed.mode {
	case ModeInput:
		ed.drawInputBox(w, h)
	case ModePickTarget:
		ed.drawTargetPicker(w, h)
	case ModeHelp:
		ed.drawHelp(w, h)
	}

	ed.drawStatusBar(w, h)
}

// drawSelectionMarkers tags the selected state or handle so it stands
// out on the character grid.
func (ed *Editor) drawSelectionMarkers(canvas *cellCanvas) {
	if ed.selState != nil {
		x, y := canvas.toCell(ed.selState.Pos())
		canvas.set(x, y-1, '▾', styleSelected)
	}
	if ed.selTrans != nil {
		x, y := canvas.toCell(ed.selTrans.Pos())
		canvas.set(x, y, '◆', styleSelected)
	}
}

func (ed *Editor) drawSidebar(w, h int) {
	x := w - sidebarWidth + 2
	y := 0

	title := ed.diagram.Name()
	if title == "" {
		title = "(unnamed)"
	}
	ed.drawString(x, y, truncate(title, sidebarWidth-4), styleSidebarH)
	y += 2

	ed.drawString(x, y, "States:", styleSidebarH)
	y++
	for _, s := range ed.diagram.States() {
		prefix := "  "
		suffix := ""
		if s == ed.diagram.Initial() {
			prefix = "→ "
		}
		if s.Accepting() {
			suffix = " *"
		}
		style := styleSidebar
		if s == ed.selState {
			style = styleMenuSel
		}
		ed.drawString(x, y, truncate(prefix+s.Name()+suffix, sidebarWidth-4), style)
		y++
		if y >= h-3 {
			return
		}
	}
	y++

	ed.drawString(x, y, "Transitions:", styleSidebarH)
	y++
	for _, t := range ed.diagram.Transitions() {
		if ed.diagram.IsInitialTransition(t) {
			continue
		}
		style := styleSidebar
		if t == ed.selTrans {
			style = styleMenuSel
		}
		ed.drawString(x, y, truncate("  "+t.String(), sidebarWidth-4), style)
		y++
		if y >= h-3 {
			ed.drawString(x, y, "  ...", styleSidebar)
			return
		}
	}
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[New]"
	if ed.filename != "" {
		fileInfo = ed.filename
	}
	if ed.diagram.Modified() {
		fileInfo += " *"
	}
	if ed.layoutRunning {
		fileInfo += "  [layout]"
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	if ed.message != "" {
		style := styleStatus
		if ed.messageType == MsgError {
			style = styleMsgError
		}
		elapsed := time.Now().UnixMilli() - ed.messageFlashStart
		if shouldFlashForType(ed.messageType) && shouldBeInverted(elapsed) {
			style = style.Reverse(true)
		}
		ed.drawString(w-len(ed.message)-2, y, ed.message, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

// shouldBeInverted alternates 125ms phases within the flash period.
func shouldBeInverted(elapsed int64) bool {
	if elapsed < 0 || elapsed >= flashPeriod {
		return false
	}
	phase := elapsed / 125
	return phase == 1 || phase == 3
}

func shouldFlashForType(t MessageType) bool {
	return t == MsgError || t == MsgSuccess
}

func (ed *Editor) helpString() string {
	switch ed.mode {
	case ModeInput:
		return "Type text  Enter:Confirm  Esc:Cancel"
	case ModePickTarget:
		return "Tab/↑↓:Select target  Enter:Confirm  Esc:Cancel"
	case ModeHelp:
		return "Any key to close"
	default:
		return "Enter:Add  Tab:Cycle  t:Trans  c:Cond  i:Initial  a:Accept  l:Layout  Del:Delete  ?:Help  Ctrl+S:Save  q:Quit"
	}
}

func (ed *Editor) drawInputBox(w, h int) {
	boxW := 50
	boxH := 3
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleInput)
	ed.drawString(boxX+2, boxY+1, ed.inputPrompt, styleInput)
	ed.drawString(boxX+2+len(ed.inputPrompt), boxY+1, ed.inputBuffer+"_", styleInput)
}

func (ed *Editor) drawTargetPicker(w, h int) {
	states := ed.diagram.States()
	boxW := 35
	boxH := len(states) + 4
	if boxH > h-4 {
		boxH = h - 4
	}
	boxX := (w - boxW) / 2
	boxY := 3

	ed.drawBox(boxX, boxY, boxW, boxH, styleDefault)
	title := "Target state:"
	if ed.transSource != nil {
		title = fmt.Sprintf("Target for %s:", ed.transSource.Name())
	}
	ed.drawString(boxX+2, boxY+1, title, styleSidebarH)

	for i, s := range states {
		if i >= boxH-4 {
			break
		}
		style := styleSidebar
		if i == ed.pickIndex {
			style = styleMenuSel
		}
		ed.drawString(boxX+2, boxY+3+i, fmt.Sprintf(" %-31s", truncate(s.Name(), 31)), style)
	}
}

func (ed *Editor) drawHelp(w, h int) {
	lines := []string{
		"Enter / n   add state at cursor",
		"Tab         cycle state selection",
		"t           add transition from selected state",
		"c           edit condition of selected transition",
		"v           edit output values",
		"r           rename selected state",
		"a           toggle accepting",
		"i           set initial state",
		"l           toggle automatic layout",
		"Space       single layout step",
		"+/-         zoom",
		"Arrows      move cursor or selection",
		"Del         delete selection",
		"Ctrl+S      save",
		"q           quit",
	}

	boxW := 52
	boxH := len(lines) + 4
	boxX := (w - boxW) / 2
	boxY := (h - boxH) / 2

	ed.drawBox(boxX, boxY, boxW, boxH, styleDefault)
	ed.drawString(boxX+2, boxY+1, "fsmedit keys", styleSidebarH)
	for i, l := range lines {
		ed.drawString(boxX+2, boxY+3+i, l, styleSidebar)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for i, r := range s {
		ed.screen.SetContent(x+i, y, r, nil, style)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
