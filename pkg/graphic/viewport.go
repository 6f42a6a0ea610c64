package graphic

import "github.com/ha1tch/fsm-designer/pkg/geom"

// Viewport maps diagram coordinates onto an output pixel rectangle.
type Viewport struct {
	offset geom.Vec
	scale  float64
}

// IdentityViewport maps diagram coordinates straight through.
func IdentityViewport() Viewport {
	return Viewport{scale: 1}
}

// FitViewport computes the uniform scale and offset that fit the
// diagram bounds into a width×height canvas with the given padding,
// centred on both axes. Degenerate bounds map to the canvas centre.
func FitViewport(min, max geom.Vec, width, height, padding float64) Viewport {
	spanX := max.X - min.X
	spanY := max.Y - min.Y

	availW := width - 2*padding
	availH := height - 2*padding
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	scale := 1.0
	if spanX > 0 || spanY > 0 {
		scale = availW / spanX
		if spanX == 0 || (spanY > 0 && availH/spanY < scale) {
			scale = availH / spanY
		}
		if scale > 1 {
			// Never blow small diagrams up; whitespace reads better
			scale = 1
		}
	}

	// Centre the scaled bounds
	offX := padding + (availW-spanX*scale)/2 - min.X*scale
	offY := padding + (availH-spanY*scale)/2 - min.Y*scale

	return Viewport{offset: geom.V(offX, offY), scale: scale}
}

// Apply maps a diagram point to canvas pixels.
func (v Viewport) Apply(p geom.Vec) geom.Vec {
	return p.Mul(v.scale).Add(v.offset)
}

// Scale returns the diagram-to-pixel scale factor.
func (v Viewport) Scale() float64 {
	return v.scale
}
