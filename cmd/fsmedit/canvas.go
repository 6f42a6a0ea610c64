package main

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/fsm-designer/pkg/geom"
	"github.com/ha1tch/fsm-designer/pkg/graphic"
)

// cellCanvas renders drawing primitives onto a terminal grid. Terminal
// cells are about twice as tall as wide, so the vertical axis is
// compressed by cellAspect to keep circles round.
type cellCanvas struct {
	screen tcell.Screen
	width  int // cells available for the canvas
	height int
	offset geom.Vec // diagram coordinate of the top-left cell
	zoom   float64  // cells per diagram unit on the x axis
}

const cellAspect = 2.0

func newCellCanvas(screen tcell.Screen, width, height int, offset geom.Vec, zoom float64) *cellCanvas {
	return &cellCanvas{
		screen: screen,
		width:  width,
		height: height,
		offset: offset,
		zoom:   zoom,
	}
}

// toCell maps a diagram point to a terminal cell.
func (c *cellCanvas) toCell(p geom.Vec) (int, int) {
	x := (p.X - c.offset.X) * c.zoom
	y := (p.Y - c.offset.Y) * c.zoom / cellAspect
	return int(math.Round(x)), int(math.Round(y))
}

// toDiagram maps a terminal cell back to diagram coordinates.
func (c *cellCanvas) toDiagram(x, y int) geom.Vec {
	return geom.V(
		float64(x)/c.zoom+c.offset.X,
		float64(y)*cellAspect/c.zoom+c.offset.Y,
	)
}

func (c *cellCanvas) set(x, y int, r rune, style tcell.Style) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.screen.SetContent(x, y, r, nil, style)
}

// DrawPolygon strokes the flattened path with line-drawing runes.
func (c *cellCanvas) DrawPolygon(p *graphic.Polygon, style graphic.Style) {
	pts := p.Flatten(16)
	if len(pts) < 2 {
		return
	}
	st := cellStyle(style)
	for i := 1; i < len(pts); i++ {
		x0, y0 := c.toCell(pts[i-1])
		x1, y1 := c.toCell(pts[i])
		c.line(x0, y0, x1, y1, st)
	}
}

// DrawCircle plots the outline parametrically.
func (c *cellCanvas) DrawCircle(center geom.Vec, radius float64, style graphic.Style) {
	st := cellStyle(style)
	steps := int(radius*c.zoom*8) + 8
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		p := center.Add(geom.V(math.Cos(a)*radius, math.Sin(a)*radius))
		x, y := c.toCell(p)
		c.set(x, y, circleRune(a), st)
	}
}

// DrawText places text horizontally; dir is ignored on a cell grid.
func (c *cellCanvas) DrawText(anchor, dir geom.Vec, text string, orient graphic.Orientation, style graphic.Style) {
	if text == "" {
		return
	}
	x, y := c.toCell(anchor)
	runes := []rune(text)

	switch orient {
	case graphic.CenterCenter, graphic.CenterTop, graphic.CenterBottom:
		x -= len(runes) / 2
	case graphic.RightCenter:
		x -= len(runes)
	}
	switch orient {
	case graphic.CenterTop:
		y++
	case graphic.CenterBottom:
		y--
	}

	st := cellStyle(style)
	for i, r := range runes {
		c.set(x+i, y, r, st)
	}
}

// line draws with Bresenham stepping, picking a rune from the slope.
func (c *cellCanvas) line(x0, y0, x1, y1 int, style tcell.Style) {
	r := lineRune(x1-x0, y1-y0)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		c.set(x0, y0, r, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// lineRune picks a box-drawing rune matching the segment direction.
func lineRune(dx, dy int) rune {
	adx, ady := abs(dx), abs(dy)
	switch {
	case ady == 0 || adx > 2*ady:
		return '─'
	case adx == 0 || ady > 2*adx:
		return '│'
	case (dx > 0) == (dy > 0):
		return '\\'
	default:
		return '/'
	}
}

// circleRune picks a rune by the local tangent of the outline.
func circleRune(angle float64) rune {
	// Tangent direction is angle + 90°
	return lineRune(
		int(math.Round(-math.Sin(angle)*4)),
		int(math.Round(math.Cos(angle)*4)),
	)
}

// cellStyle maps a drawing pen to a terminal style by colour.
func cellStyle(style graphic.Style) tcell.Style {
	c := style.Color
	st := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
	if style.Thickness >= 2 {
		st = st.Bold(true)
	}
	return st
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
