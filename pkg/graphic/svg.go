package graphic

import (
	"fmt"
	"html"
	"image/color"
	"io"
	"os"
	"strings"

	"github.com/ha1tch/fsm-designer/pkg/geom"
)

// SVGOptions controls SVG output.
type SVGOptions struct {
	Width   int    // canvas width in pixels
	Height  int    // canvas height in pixels
	Padding int    // padding around the diagram
	Title   string // optional <title> element
}

// DefaultSVGOptions returns sensible defaults.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		Width:   800,
		Height:  600,
		Padding: 50,
	}
}

// SVG renders drawing primitives into an SVG document.
type SVG struct {
	opts SVGOptions
	vp   Viewport
	body strings.Builder
}

// NewSVG creates an SVG canvas mapping the diagram bounds min..max
// into the output rectangle.
func NewSVG(min, max geom.Vec, opts SVGOptions) *SVG {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}
	return &SVG{
		opts: opts,
		vp:   FitViewport(min, max, float64(opts.Width), float64(opts.Height), float64(opts.Padding)),
	}
}

// DrawPolygon emits a <path> element.
func (s *SVG) DrawPolygon(p *Polygon, style Style) {
	if len(p.Path) == 0 {
		return
	}

	var d strings.Builder
	start := s.vp.Apply(p.Path[0].To)
	fmt.Fprintf(&d, "M %.2f %.2f", start.X, start.Y)
	for _, el := range p.Path[1:] {
		to := s.vp.Apply(el.To)
		if el.Quad {
			ctrl := s.vp.Apply(el.Ctrl)
			fmt.Fprintf(&d, " Q %.2f %.2f %.2f %.2f", ctrl.X, ctrl.Y, to.X, to.Y)
		} else {
			fmt.Fprintf(&d, " L %.2f %.2f", to.X, to.Y)
		}
	}
	if p.Closed {
		d.WriteString(" Z")
	}

	fill := "none"
	if style.Filled {
		fill = rgb(style.Color)
	}
	fmt.Fprintf(&s.body, "  <path d=%q fill=%q stroke=%q stroke-width=\"%.2f\"/>\n",
		d.String(), fill, rgb(style.Color), style.Thickness)
}

// DrawCircle emits a <circle> element.
func (s *SVG) DrawCircle(center geom.Vec, radius float64, style Style) {
	c := s.vp.Apply(center)
	fill := "none"
	if style.Filled {
		fill = rgb(style.Color)
	}
	fmt.Fprintf(&s.body, "  <circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=%q stroke=%q stroke-width=\"%.2f\"/>\n",
		c.X, c.Y, radius*s.vp.Scale(), fill, rgb(style.Color), style.Thickness)
}

// DrawText emits a <text> element. Text stays horizontal; dir is
// ignored because the diagram only draws horizontal labels.
func (s *SVG) DrawText(anchor, dir geom.Vec, text string, orient Orientation, style Style) {
	if text == "" {
		return
	}
	a := s.vp.Apply(anchor)

	textAnchor := "middle"
	baseline := "central"
	switch orient {
	case CenterTop:
		baseline = "hanging"
	case CenterBottom:
		baseline = "text-after-edge"
	case LeftCenter:
		textAnchor = "start"
	case RightCenter:
		textAnchor = "end"
	}

	size := style.FontSize * s.vp.Scale()
	fmt.Fprintf(&s.body, "  <text x=\"%.2f\" y=\"%.2f\" font-family=\"sans-serif\" font-size=\"%.1f\" fill=%q text-anchor=%q dominant-baseline=%q>%s</text>\n",
		a.X, a.Y, size, rgb(style.Color), textAnchor, baseline, html.EscapeString(text))
}

// String assembles the complete SVG document.
func (s *SVG) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%d\" height=\"%d\" viewBox=\"0 0 %d %d\">\n",
		s.opts.Width, s.opts.Height, s.opts.Width, s.opts.Height)
	if s.opts.Title != "" {
		fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(s.opts.Title))
	}
	sb.WriteString("  <rect width=\"100%\" height=\"100%\" fill=\"white\"/>\n")
	sb.WriteString(s.body.String())
	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteTo writes the document to w.
func (s *SVG) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}

// WriteFile writes the document to a file.
func (s *SVG) WriteFile(path string) error {
	return os.WriteFile(path, []byte(s.String()), 0644)
}

func rgb(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
