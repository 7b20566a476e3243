// Package scene is a backend-neutral scene-graph builder. Layout code draws
// arcs, circles, rects, text and lines onto a Surface; backends turn them into
// SVG, PNG or a recorded list of draw calls.
//
// Angles are radians measured clockwise from 12 o'clock, so a point at radius
// r and angle a sits at (cx + r*sin(a), cy - r*cos(a)) in screen coordinates.
package scene

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polar returns the screen point at radius r and angle a around c.
func Polar(c Point, r, a float64) Point {
	return Point{X: c.X + r*math.Sin(a), Y: c.Y - r*math.Cos(a)}
}

type Stroke struct {
	Color string    `json:"color,omitempty"`
	Width float64   `json:"width,omitempty"`
	Dash  []float64 `json:"dash,omitempty"`
}

// Paint describes fill and outline. An empty or "none" Fill draws no fill.
// Opacity 0 is treated as fully opaque.
type Paint struct {
	Fill    string  `json:"fill,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
	Stroke  Stroke  `json:"stroke,omitempty"`
}

// EffectiveOpacity resolves the zero value to 1.
func (p Paint) EffectiveOpacity() float64 {
	if p.Opacity <= 0 {
		return 1
	}
	return p.Opacity
}

// Arc is an annular sector, the clickable element of the chart.
type Arc struct {
	Center      Point   `json:"center"`
	InnerRadius float64 `json:"inner_radius"`
	OuterRadius float64 `json:"outer_radius"`
	StartAngle  float64 `json:"start_angle"`
	EndAngle    float64 `json:"end_angle"`
	Paint       Paint   `json:"paint"`
	// Hover is the outline used while the pointer is over the arc; nil means
	// the arc does not react to hover.
	Hover *Stroke `json:"hover,omitempty"`
	// Target is the click target id reported to OnClick, or -1.
	Target  int    `json:"target"`
	OnClick func() `json:"-"`
	Cursor  string `json:"cursor,omitempty"`
}

type Circle struct {
	Center      Point   `json:"center"`
	Radius      float64 `json:"radius"`
	Paint       Paint   `json:"paint"`
	PassThrough bool    `json:"pass_through,omitempty"`
}

type Rect struct {
	Min          Point   `json:"min"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	CornerRadius float64 `json:"corner_radius,omitempty"`
	Paint        Paint   `json:"paint"`
	PassThrough  bool    `json:"pass_through,omitempty"`
}

type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

type Baseline string

const (
	BaselineAlphabetic Baseline = "alphabetic"
	BaselineMiddle     Baseline = "middle"
)

type Text struct {
	Pos         Point    `json:"pos"`
	Content     string   `json:"content"`
	FontSize    float64  `json:"font_size"`
	Bold        bool     `json:"bold,omitempty"`
	Fill        string   `json:"fill,omitempty"`
	Anchor      Anchor   `json:"anchor,omitempty"`
	Baseline    Baseline `json:"baseline,omitempty"`
	PassThrough bool     `json:"pass_through,omitempty"`
}

type Line struct {
	From        Point   `json:"from"`
	To          Point   `json:"to"`
	Stroke      Stroke  `json:"stroke"`
	Opacity     float64 `json:"opacity,omitempty"`
	PassThrough bool    `json:"pass_through,omitempty"`
}

// Surface is the drawing capability a renderer needs. Clear drops everything
// previously drawn; elements are painted in call order.
type Surface interface {
	Clear()
	Arc(Arc)
	Circle(Circle)
	Rect(Rect)
	Text(Text)
	Line(Line)
}

// EstimateTextWidth approximates rendered width: 0.6em per character plus
// 20px of padding.
func EstimateTextWidth(text string, fontSize float64) float64 {
	return float64(len([]rune(text)))*fontSize*0.6 + 20
}

// NormalizeAngle maps a into [0, 2π).
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
