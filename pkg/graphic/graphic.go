// Package graphic defines the drawing primitives the diagram renders
// itself with, and the backends that turn them into SVG, PNG or
// terminal output.
package graphic

import (
	"image/color"

	"github.com/ha1tch/fsm-designer/pkg/geom"
)

// MaxLineThick is the widest stroke any pen uses. Edge geometry offsets
// its attachment points by this amount so curves meet the state outline
// regardless of the pen drawn with.
const MaxLineThick = 4

// Style describes a pen used for strokes, fills and text.
type Style struct {
	Thickness float64
	Color     color.RGBA
	Filled    bool
	FontSize  float64
}

// Fill returns a filled variant of the style.
func (s Style) Fill() Style {
	s.Filled = true
	return s
}

// Predefined pens.
var (
	colorBlack = color.RGBA{51, 51, 51, 255}
	colorGray  = color.RGBA{102, 102, 102, 255}
	colorBlue  = color.RGBA{21, 101, 192, 255}
	colorGreen = color.RGBA{46, 125, 50, 255}

	// Normal is used for state outlines and names.
	Normal = Style{Thickness: 2, Color: colorBlack, FontSize: 14}
	// Thin is used for secondary rings and decorations.
	Thin = Style{Thickness: 1, Color: colorBlack, FontSize: 14}
	// Pin is used for transition curves and arrowheads.
	Pin = Style{Thickness: 1, Color: colorBlue, FontSize: 14}
	// Highlight is used for the initial-state marker.
	Highlight = Style{Thickness: 2, Color: colorGreen, FontSize: 14}
	// Label is used for transition condition and value annotations.
	Label = Style{Thickness: 1, Color: colorGray, FontSize: 12}
)

// Orientation positions text relative to its anchor point.
type Orientation int

const (
	CenterCenter Orientation = iota
	CenterTop                // anchor at top edge, text extends down
	CenterBottom             // anchor at bottom edge, text extends up
	LeftCenter
	RightCenter
)

// Graphic is the render target the diagram draws itself onto.
// Implementations exist for SVG, PNG and the terminal editor canvas.
type Graphic interface {
	// DrawPolygon strokes (or fills) a path of line and quadratic
	// Bézier elements.
	DrawPolygon(p *Polygon, style Style)
	// DrawCircle strokes a circle around center.
	DrawCircle(center geom.Vec, radius float64, style Style)
	// DrawText places text at anchor. dir gives the text baseline
	// direction; backends that cannot rotate text may ignore it.
	DrawText(anchor, dir geom.Vec, text string, orient Orientation, style Style)
}
