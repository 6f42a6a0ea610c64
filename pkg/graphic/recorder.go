package graphic

import "github.com/ha1tch/fsm-designer/pkg/geom"

// Recorder captures draw calls for inspection in tests.
type Recorder struct {
	Polygons []RecordedPolygon
	Circles  []RecordedCircle
	Texts    []RecordedText
}

// RecordedPolygon is a captured DrawPolygon call.
type RecordedPolygon struct {
	Polygon *Polygon
	Style   Style
}

// RecordedCircle is a captured DrawCircle call.
type RecordedCircle struct {
	Center geom.Vec
	Radius float64
	Style  Style
}

// RecordedText is a captured DrawText call.
type RecordedText struct {
	Anchor geom.Vec
	Dir    geom.Vec
	Text   string
	Orient Orientation
	Style  Style
}

func (r *Recorder) DrawPolygon(p *Polygon, style Style) {
	r.Polygons = append(r.Polygons, RecordedPolygon{Polygon: p, Style: style})
}

func (r *Recorder) DrawCircle(center geom.Vec, radius float64, style Style) {
	r.Circles = append(r.Circles, RecordedCircle{Center: center, Radius: radius, Style: style})
}

func (r *Recorder) DrawText(anchor, dir geom.Vec, text string, orient Orientation, style Style) {
	r.Texts = append(r.Texts, RecordedText{Anchor: anchor, Dir: dir, Text: text, Orient: orient, Style: style})
}
