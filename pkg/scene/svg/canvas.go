// Package svg renders a scene into standalone SVG markup.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/synaptica-ai/planscore/pkg/scene"
)

// Canvas is a scene.Surface that accumulates SVG elements.
type Canvas struct {
	Width  float64
	Height float64

	body  bytes.Buffer
	hover []string
}

func New(width, height float64) *Canvas {
	return &Canvas{Width: width, Height: height}
}

func (c *Canvas) Clear() {
	c.body.Reset()
	c.hover = c.hover[:0]
}

func (c *Canvas) Arc(a scene.Arc) {
	attrs := []string{attr("d", arcPath(a))}
	attrs = append(attrs, paintAttrs(a.Paint)...)
	if a.Target >= 0 {
		id := fmt.Sprintf("sector-%d", a.Target)
		attrs = append(attrs, attr("id", id), attr("data-sector", strconv.Itoa(a.Target)))
		if a.Hover != nil {
			c.hover = append(c.hover, fmt.Sprintf("#%s:hover{stroke:%s;stroke-width:%s}", id, a.Hover.Color, num(a.Hover.Width)))
		}
	}
	if a.Cursor != "" {
		attrs = append(attrs, attr("style", "cursor:"+a.Cursor))
	}
	c.element("path", attrs, "")
}

func (c *Canvas) Circle(ci scene.Circle) {
	attrs := []string{
		attr("cx", num(ci.Center.X)),
		attr("cy", num(ci.Center.Y)),
		attr("r", num(ci.Radius)),
	}
	attrs = append(attrs, paintAttrs(ci.Paint)...)
	if ci.PassThrough {
		attrs = append(attrs, attr("pointer-events", "none"))
	}
	c.element("circle", attrs, "")
}

func (c *Canvas) Rect(r scene.Rect) {
	attrs := []string{
		attr("x", num(r.Min.X)),
		attr("y", num(r.Min.Y)),
		attr("width", num(r.Width)),
		attr("height", num(r.Height)),
	}
	if r.CornerRadius > 0 {
		attrs = append(attrs, attr("rx", num(r.CornerRadius)))
	}
	attrs = append(attrs, paintAttrs(r.Paint)...)
	if r.PassThrough {
		attrs = append(attrs, attr("pointer-events", "none"))
	}
	c.element("rect", attrs, "")
}

func (c *Canvas) Text(t scene.Text) {
	attrs := []string{
		attr("x", num(t.Pos.X)),
		attr("y", num(t.Pos.Y)),
		attr("font-size", num(t.FontSize)+"px"),
		attr("font-family", "sans-serif"),
	}
	if t.Bold {
		attrs = append(attrs, attr("font-weight", "bold"))
	}
	if t.Fill != "" {
		attrs = append(attrs, attr("fill", t.Fill))
	}
	if t.Anchor != "" {
		attrs = append(attrs, attr("text-anchor", string(t.Anchor)))
	}
	if t.Baseline == scene.BaselineMiddle {
		attrs = append(attrs, attr("dominant-baseline", "middle"))
	}
	if t.PassThrough {
		attrs = append(attrs, attr("pointer-events", "none"))
	}
	c.element("text", attrs, escape(t.Content))
}

func (c *Canvas) Line(l scene.Line) {
	attrs := []string{
		attr("x1", num(l.From.X)),
		attr("y1", num(l.From.Y)),
		attr("x2", num(l.To.X)),
		attr("y2", num(l.To.Y)),
	}
	attrs = append(attrs, strokeAttrs(l.Stroke)...)
	if l.Opacity > 0 && l.Opacity < 1 {
		attrs = append(attrs, attr("opacity", num(l.Opacity)))
	}
	if l.PassThrough {
		attrs = append(attrs, attr("pointer-events", "none"))
	}
	c.element("line", attrs, "")
}

// WriteTo writes the complete SVG document.
func (c *Canvas) WriteTo(w io.Writer) (int64, error) {
	var doc bytes.Buffer
	fmt.Fprintf(&doc, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		num(c.Width), num(c.Height), num(c.Width), num(c.Height))
	doc.WriteString("\n")
	if len(c.hover) > 0 {
		doc.WriteString("<style>")
		doc.WriteString(strings.Join(c.hover, ""))
		doc.WriteString("</style>\n")
	}
	fmt.Fprintf(&doc, `<rect x="0" y="0" width="%s" height="%s" fill="white"/>`, num(c.Width), num(c.Height))
	doc.WriteString("\n")
	doc.Write(c.body.Bytes())
	doc.WriteString("</svg>\n")
	return doc.WriteTo(w)
}

func (c *Canvas) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = c.WriteTo(&buf)
	return buf.Bytes()
}

func (c *Canvas) element(name string, attrs []string, content string) {
	c.body.WriteString("<")
	c.body.WriteString(name)
	for _, a := range attrs {
		c.body.WriteString(" ")
		c.body.WriteString(a)
	}
	if content == "" {
		c.body.WriteString("/>\n")
		return
	}
	c.body.WriteString(">")
	c.body.WriteString(content)
	c.body.WriteString("</")
	c.body.WriteString(name)
	c.body.WriteString(">\n")
}

func arcPath(a scene.Arc) string {
	large := 0
	if a.EndAngle-a.StartAngle > math.Pi {
		large = 1
	}
	o0 := scene.Polar(a.Center, a.OuterRadius, a.StartAngle)
	o1 := scene.Polar(a.Center, a.OuterRadius, a.EndAngle)
	var b strings.Builder
	fmt.Fprintf(&b, "M%s,%s A%s,%s 0 %d 1 %s,%s",
		num(o0.X), num(o0.Y), num(a.OuterRadius), num(a.OuterRadius), large, num(o1.X), num(o1.Y))
	if a.InnerRadius <= 0 {
		fmt.Fprintf(&b, " L%s,%s Z", num(a.Center.X), num(a.Center.Y))
		return b.String()
	}
	i1 := scene.Polar(a.Center, a.InnerRadius, a.EndAngle)
	i0 := scene.Polar(a.Center, a.InnerRadius, a.StartAngle)
	fmt.Fprintf(&b, " L%s,%s A%s,%s 0 %d 0 %s,%s Z",
		num(i1.X), num(i1.Y), num(a.InnerRadius), num(a.InnerRadius), large, num(i0.X), num(i0.Y))
	return b.String()
}

func paintAttrs(p scene.Paint) []string {
	fill := p.Fill
	if fill == "" {
		fill = "none"
	}
	attrs := []string{attr("fill", fill)}
	if p.Opacity > 0 && p.Opacity < 1 {
		attrs = append(attrs, attr("opacity", num(p.Opacity)))
	}
	return append(attrs, strokeAttrs(p.Stroke)...)
}

func strokeAttrs(s scene.Stroke) []string {
	if s.Color == "" || s.Color == "none" || s.Width <= 0 {
		return nil
	}
	attrs := []string{attr("stroke", s.Color), attr("stroke-width", num(s.Width))}
	if len(s.Dash) > 0 {
		parts := make([]string, len(s.Dash))
		for i, d := range s.Dash {
			parts[i] = num(d)
		}
		attrs = append(attrs, attr("stroke-dasharray", strings.Join(parts, ",")))
	}
	return attrs
}

func attr(name, value string) string {
	return name + `="` + escape(value) + `"`
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// num prints at most two decimals without trailing zeros.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
