// Native PNG rendering of drawing primitives.
// Renders supersampled and downsamples for smooth strokes.

package graphic

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"sort"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/fsm-designer/pkg/geom"
)

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Width   int
	Height  int
	Padding int
	Title   string
}

// DefaultPNGOptions returns sensible defaults.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{
		Width:   800,
		Height:  600,
		Padding: 50,
	}
}

// supersample is the oversampling factor for raster output.
const supersample = 4

var colorWhite = color.RGBA{255, 255, 255, 255}

// PNG renders drawing primitives into a raster image.
type PNG struct {
	opts  PNGOptions
	img   *image.RGBA
	vp    Viewport
	fnt   *opentype.Font
	faces map[int]font.Face
}

// NewPNG creates a raster canvas mapping the diagram bounds min..max
// into the output rectangle.
func NewPNG(min, max geom.Vec, opts PNGOptions) *PNG {
	if opts.Width == 0 {
		opts.Width = 800
	}
	if opts.Height == 0 {
		opts.Height = 600
	}

	w := opts.Width * supersample
	h := opts.Height * supersample
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, colorWhite)
		}
	}

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err) // embedded font, cannot fail
	}

	// The viewport maps diagram units to logical output pixels, so the
	// no-upscale cap applies at output resolution; toPixel applies the
	// supersample factor on top, once, for every coordinate.
	p := &PNG{
		opts:  opts,
		img:   img,
		vp:    FitViewport(min, max, float64(opts.Width), float64(opts.Height), float64(opts.Padding)),
		fnt:   fnt,
		faces: make(map[int]font.Face),
	}

	if opts.Title != "" {
		p.drawString(geom.V(float64(w)/2, 25*supersample), opts.Title, CenterCenter, Normal, 16*supersample)
	}
	return p
}

// toPixel maps a diagram point to supersampled canvas pixels.
func (p *PNG) toPixel(v geom.Vec) geom.Vec {
	return p.vp.Apply(v).Mul(supersample)
}

// DrawPolygon strokes the flattened path, filling it first if the
// style asks for it.
func (p *PNG) DrawPolygon(poly *Polygon, style Style) {
	pts := poly.Flatten(32)
	if len(pts) < 2 {
		return
	}
	for i := range pts {
		pts[i] = p.toPixel(pts[i])
	}

	if style.Filled {
		p.fillPolygon(pts, style.Color)
	}

	thickness := p.strokeWidth(style)
	for i := 1; i < len(pts); i++ {
		p.drawLine(pts[i-1], pts[i], thickness, style.Color)
	}
}

// DrawCircle strokes a circle, stepping the outline with radial
// thickness like the ellipse renderer it derives from.
func (p *PNG) DrawCircle(center geom.Vec, radius float64, style Style) {
	c := p.toPixel(center)
	r := radius * p.vp.Scale() * supersample
	thickness := p.strokeWidth(style)

	if style.Filled {
		for dy := -r; dy <= r; dy++ {
			span := math.Sqrt(r*r - dy*dy)
			for dx := -span; dx <= span; dx++ {
				p.img.Set(int(c.X+dx), int(c.Y+dy), style.Color)
			}
		}
	}

	step := 0.5 / math.Max(r, 1)
	for angle := 0.0; angle < 2*math.Pi; angle += step {
		nx := math.Cos(angle)
		ny := math.Sin(angle)
		for t := -thickness / 2; t <= thickness/2; t += 0.5 {
			p.img.Set(int(c.X+nx*(r+t)), int(c.Y+ny*(r+t)), style.Color)
		}
	}
}

// DrawText renders horizontal text; dir is ignored.
func (p *PNG) DrawText(anchor, dir geom.Vec, text string, orient Orientation, style Style) {
	if text == "" {
		return
	}
	a := p.toPixel(anchor)
	size := style.FontSize * p.vp.Scale() * supersample
	p.drawString(a, text, orient, style, size)
}

func (p *PNG) drawString(a geom.Vec, text string, orient Orientation, style Style, size float64) {
	face := p.face(size)
	width := font.MeasureString(face, text).Ceil()
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()

	x := a.X
	y := a.Y
	switch orient {
	case CenterCenter:
		x -= float64(width) / 2
		y += float64(ascent) * 0.35 // visually centre cap height
	case CenterTop:
		x -= float64(width) / 2
		y += float64(ascent)
	case CenterBottom:
		x -= float64(width) / 2
		y -= float64(descent)
	case LeftCenter:
		y += float64(ascent) * 0.35
	case RightCenter:
		x -= float64(width)
		y += float64(ascent) * 0.35
	}

	d := &font.Drawer{
		Dst:  p.img,
		Src:  image.NewUniform(style.Color),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(int(x)), Y: fixed.I(int(y))},
	}
	d.DrawString(text)
}

func (p *PNG) face(size float64) font.Face {
	key := int(math.Round(size))
	if key < 4 {
		key = 4
	}
	if f, ok := p.faces[key]; ok {
		return f
	}
	f, err := opentype.NewFace(p.fnt, &opentype.FaceOptions{
		Size:    float64(key),
		DPI:     72,
		Hinting: font.HintingNone, // supersampling smooths instead
	})
	if err != nil {
		panic(err)
	}
	p.faces[key] = f
	return f
}

func (p *PNG) strokeWidth(style Style) float64 {
	t := style.Thickness * supersample
	if t < 1 {
		t = 1
	}
	return t
}

// drawLine strokes a segment by stepping along it and offsetting
// perpendicular for thickness.
func (p *PNG) drawLine(a, b geom.Vec, thickness float64, c color.RGBA) {
	d := b.Sub(a)
	steps := math.Max(math.Abs(d.X), math.Abs(d.Y))
	if steps < 1 {
		p.img.Set(int(a.X), int(a.Y), c)
		return
	}

	perp := d.Norm().Orthogonal()
	half := thickness / 2
	for i := 0.0; i <= steps; i++ {
		pt := a.Add(d.Mul(i / steps))
		for off := -half; off <= half; off += 0.5 {
			p.img.Set(int(pt.X+perp.X*off), int(pt.Y+perp.Y*off), c)
		}
	}
}

// fillPolygon fills the ring with even-odd scanlines.
func (p *PNG) fillPolygon(pts []geom.Vec, c color.RGBA) {
	if len(pts) < 3 {
		return
	}
	ring := pts
	if ring[0] != ring[len(ring)-1] {
		ring = append(append([]geom.Vec{}, ring...), ring[0])
	}

	minY, maxY := ring[0].Y, ring[0].Y
	for _, pt := range ring {
		minY = math.Min(minY, pt.Y)
		maxY = math.Max(maxY, pt.Y)
	}

	for y := int(minY); y <= int(maxY); y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i := 1; i < len(ring); i++ {
			a, b := ring[i-1], ring[i]
			if (a.Y <= fy && b.Y > fy) || (b.Y <= fy && a.Y > fy) {
				t := (fy - a.Y) / (b.Y - a.Y)
				xs = append(xs, a.X+t*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(xs[i]); x <= int(xs[i+1]); x++ {
				p.img.Set(x, y, c)
			}
		}
	}
}

// Encode downsamples the canvas and writes it as PNG.
func (p *PNG) Encode(w io.Writer) error {
	final := image.NewRGBA(image.Rect(0, 0, p.opts.Width, p.opts.Height))
	xdraw.CatmullRom.Scale(final, final.Bounds(), p.img, p.img.Bounds(), xdraw.Over, nil)
	return png.Encode(w, final)
}

// WriteFile writes the encoded image to a file.
func (p *PNG) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.Encode(f)
}
