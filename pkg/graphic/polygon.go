package graphic

import "github.com/ha1tch/fsm-designer/pkg/geom"

// PathElement is one segment of a Polygon: a straight line to To, or a
// quadratic Bézier through control point Ctrl when Quad is set.
type PathElement struct {
	Quad bool
	Ctrl geom.Vec
	To   geom.Vec
}

// Polygon is a path of line and quadratic Bézier elements. Open
// polygons are stroked as polylines; closed ones connect the last
// point back to the first and may be filled.
type Polygon struct {
	Closed bool
	Path   []PathElement
}

// NewPolygon creates an empty polygon.
func NewPolygon(closed bool) *Polygon {
	return &Polygon{Closed: closed}
}

// Add appends a straight line to v (or the start point if first).
func (p *Polygon) Add(v geom.Vec) *Polygon {
	p.Path = append(p.Path, PathElement{To: v})
	return p
}

// AddQuad appends a quadratic Bézier through ctrl ending at to.
func (p *Polygon) AddQuad(ctrl, to geom.Vec) *Polygon {
	p.Path = append(p.Path, PathElement{Quad: true, Ctrl: ctrl, To: to})
	return p
}

// Flatten samples the path into a polyline, subdividing each quadratic
// element into samples segments. Raster backends stroke the result.
func (p *Polygon) Flatten(samples int) []geom.Vec {
	if len(p.Path) == 0 {
		return nil
	}
	if samples < 1 {
		samples = 1
	}

	pts := []geom.Vec{p.Path[0].To}
	prev := p.Path[0].To

	for _, el := range p.Path[1:] {
		if el.Quad {
			for i := 1; i <= samples; i++ {
				t := float64(i) / float64(samples)
				pts = append(pts, quadPoint(prev, el.Ctrl, el.To, t))
			}
		} else {
			pts = append(pts, el.To)
		}
		prev = el.To
	}

	if p.Closed && len(pts) > 1 {
		pts = append(pts, pts[0])
	}
	return pts
}

// quadPoint evaluates a quadratic Bézier at parameter t.
func quadPoint(p0, ctrl, p1 geom.Vec, t float64) geom.Vec {
	mt := 1 - t
	return geom.Vec{
		X: mt*mt*p0.X + 2*mt*t*ctrl.X + t*t*p1.X,
		Y: mt*mt*p0.Y + 2*mt*t*ctrl.Y + t*t*p1.Y,
	}
}
