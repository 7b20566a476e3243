package scene

import "math"

type Kind string

const (
	KindArc    Kind = "arc"
	KindCircle Kind = "circle"
	KindRect   Kind = "rect"
	KindText   Kind = "text"
	KindLine   Kind = "line"
)

// Element is one recorded draw call. Exactly one shape pointer is set.
type Element struct {
	Kind   Kind    `json:"kind"`
	Arc    *Arc    `json:"arc,omitempty"`
	Circle *Circle `json:"circle,omitempty"`
	Rect   *Rect   `json:"rect,omitempty"`
	Text   *Text   `json:"text,omitempty"`
	Line   *Line   `json:"line,omitempty"`
}

// Recorder is a headless Surface that keeps the draw calls for inspection and
// supports pointer hit-testing in paint order.
type Recorder struct {
	elements []Element
	clears   int
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Clear() {
	r.elements = r.elements[:0]
	r.clears++
}

func (r *Recorder) Arc(a Arc)       { r.elements = append(r.elements, Element{Kind: KindArc, Arc: &a}) }
func (r *Recorder) Circle(c Circle) { r.elements = append(r.elements, Element{Kind: KindCircle, Circle: &c}) }
func (r *Recorder) Rect(x Rect)     { r.elements = append(r.elements, Element{Kind: KindRect, Rect: &x}) }
func (r *Recorder) Text(t Text)     { r.elements = append(r.elements, Element{Kind: KindText, Text: &t}) }
func (r *Recorder) Line(l Line)     { r.elements = append(r.elements, Element{Kind: KindLine, Line: &l}) }

// Elements returns the draw calls since the last Clear.
func (r *Recorder) Elements() []Element {
	out := make([]Element, len(r.elements))
	copy(out, r.elements)
	return out
}

// Clears counts Clear calls.
func (r *Recorder) Clears() int {
	return r.clears
}

func (r *Recorder) Arcs() []Arc {
	var out []Arc
	for _, e := range r.elements {
		if e.Arc != nil {
			out = append(out, *e.Arc)
		}
	}
	return out
}

func (r *Recorder) Circles() []Circle {
	var out []Circle
	for _, e := range r.elements {
		if e.Circle != nil {
			out = append(out, *e.Circle)
		}
	}
	return out
}

func (r *Recorder) Rects() []Rect {
	var out []Rect
	for _, e := range r.elements {
		if e.Rect != nil {
			out = append(out, *e.Rect)
		}
	}
	return out
}

func (r *Recorder) Texts() []Text {
	var out []Text
	for _, e := range r.elements {
		if e.Text != nil {
			out = append(out, *e.Text)
		}
	}
	return out
}

func (r *Recorder) Lines() []Line {
	var out []Line
	for _, e := range r.elements {
		if e.Line != nil {
			out = append(out, *e.Line)
		}
	}
	return out
}

// FindText returns the first text element with the given content.
func (r *Recorder) FindText(content string) (Text, bool) {
	for _, e := range r.elements {
		if e.Text != nil && e.Text.Content == content {
			return *e.Text, true
		}
	}
	return Text{}, false
}

// HitTest returns the topmost element under p that accepts pointer events.
func (r *Recorder) HitTest(p Point) (Element, bool) {
	for i := len(r.elements) - 1; i >= 0; i-- {
		e := r.elements[i]
		if e.hit(p) {
			return e, true
		}
	}
	return Element{}, false
}

// Click dispatches a pointer click at p. It reports whether a click handler ran.
func (r *Recorder) Click(p Point) bool {
	e, ok := r.HitTest(p)
	if !ok || e.Arc == nil || e.Arc.OnClick == nil {
		return false
	}
	e.Arc.OnClick()
	return true
}

// ClickTarget runs the handler of the arc registered under target.
func (r *Recorder) ClickTarget(target int) bool {
	for _, e := range r.elements {
		if e.Arc != nil && e.Arc.Target == target && e.Arc.OnClick != nil {
			e.Arc.OnClick()
			return true
		}
	}
	return false
}

func (e Element) hit(p Point) bool {
	switch e.Kind {
	case KindArc:
		return e.Arc.Contains(p)
	case KindCircle:
		c := e.Circle
		if c.PassThrough {
			return false
		}
		d := math.Hypot(p.X-c.Center.X, p.Y-c.Center.Y)
		if c.Paint.Fill == "" || c.Paint.Fill == "none" {
			return math.Abs(d-c.Radius) <= math.Max(c.Paint.Stroke.Width, 1)/2
		}
		return d <= c.Radius
	case KindRect:
		x := e.Rect
		if x.PassThrough {
			return false
		}
		return p.X >= x.Min.X && p.X <= x.Min.X+x.Width && p.Y >= x.Min.Y && p.Y <= x.Min.Y+x.Height
	case KindText:
		t := e.Text
		if t.PassThrough {
			return false
		}
		origin, w, h := t.Bounds()
		return p.X >= origin.X && p.X <= origin.X+w && p.Y >= origin.Y && p.Y <= origin.Y+h
	case KindLine:
		l := e.Line
		if l.PassThrough {
			return false
		}
		return segmentDistance(p, l.From, l.To) <= math.Max(l.Stroke.Width, 1)/2
	}
	return false
}

// Contains reports whether p lies inside the sector.
func (a Arc) Contains(p Point) bool {
	dx, dy := p.X-a.Center.X, p.Y-a.Center.Y
	d := math.Hypot(dx, dy)
	if d < a.InnerRadius || d > a.OuterRadius || a.OuterRadius <= a.InnerRadius {
		return false
	}
	angle := math.Atan2(dx, -dy)
	span := a.EndAngle - a.StartAngle
	return NormalizeAngle(angle-a.StartAngle) <= span
}

// Bounds estimates the text box from its anchor, baseline and font size.
func (t Text) Bounds() (Point, float64, float64) {
	w := EstimateTextWidth(t.Content, t.FontSize) - 20
	h := t.FontSize
	origin := Point{X: t.Pos.X, Y: t.Pos.Y - h}
	switch t.Anchor {
	case AnchorMiddle:
		origin.X -= w / 2
	case AnchorEnd:
		origin.X -= w
	}
	if t.Baseline == BaselineMiddle {
		origin.Y = t.Pos.Y - h/2
	}
	return origin, w, h
}

func segmentDistance(p, a, b Point) float64 {
	vx, vy := b.X-a.X, b.Y-a.Y
	l2 := vx*vx + vy*vy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*vx + (p.Y-a.Y)*vy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*vx), p.Y-(a.Y+t*vy))
}
