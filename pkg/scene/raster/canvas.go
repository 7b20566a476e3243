// Package raster paints a scene onto an image with fogleman/gg.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/synaptica-ai/planscore/pkg/scene"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

type faceKey struct {
	size float64
	bold bool
}

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

// face returns the canvas's face for size and weight. Faces hold glyph
// buffers and must not be shared between canvases; the parsed fonts can be.
func (c *Canvas) face(size float64, bold bool) font.Face {
	key := faceKey{size: size, bold: bold}
	if f, ok := c.faces[key]; ok {
		return f
	}
	f := regularFont
	if bold {
		f = boldFont
	}
	ff := truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
	c.faces[key] = ff
	return ff
}

// Canvas is a scene.Surface backed by a gg drawing context. Scale multiplies
// every coordinate so the same layout can be exported at higher resolution.
// A Canvas is used by one goroutine at a time; separate canvases are
// independent.
type Canvas struct {
	width, height int
	scale         float64
	dc            *gg.Context
	faces         map[faceKey]font.Face
}

func New(width, height int, scale float64) (*Canvas, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("loading fonts: %w", err)
	}
	if scale <= 0 {
		scale = 1
	}
	c := &Canvas{width: width, height: height, scale: scale, faces: map[faceKey]font.Face{}}
	c.Clear()
	return c, nil
}

func (c *Canvas) Clear() {
	w := int(math.Ceil(float64(c.width) * c.scale))
	h := int(math.Ceil(float64(c.height) * c.scale))
	c.dc = gg.NewContext(w, h)
	c.dc.Scale(c.scale, c.scale)
	c.dc.SetColor(color.White)
	c.dc.Clear()
}

func (c *Canvas) Arc(a scene.Arc) {
	dc := c.dc
	dc.NewSubPath()
	// gg measures angles from 3 o'clock; scene measures from 12 o'clock.
	start, end := a.StartAngle-math.Pi/2, a.EndAngle-math.Pi/2
	dc.DrawArc(a.Center.X, a.Center.Y, a.OuterRadius, start, end)
	if a.InnerRadius > 0 {
		dc.DrawArc(a.Center.X, a.Center.Y, a.InnerRadius, end, start)
	} else {
		dc.LineTo(a.Center.X, a.Center.Y)
	}
	dc.ClosePath()
	c.fillAndStroke(a.Paint)
}

func (c *Canvas) Circle(ci scene.Circle) {
	c.dc.DrawCircle(ci.Center.X, ci.Center.Y, ci.Radius)
	c.fillAndStroke(ci.Paint)
}

func (c *Canvas) Rect(r scene.Rect) {
	if r.CornerRadius > 0 {
		c.dc.DrawRoundedRectangle(r.Min.X, r.Min.Y, r.Width, r.Height, r.CornerRadius)
	} else {
		c.dc.DrawRectangle(r.Min.X, r.Min.Y, r.Width, r.Height)
	}
	c.fillAndStroke(r.Paint)
}

func (c *Canvas) Text(t scene.Text) {
	dc := c.dc
	dc.SetFontFace(c.face(t.FontSize, t.Bold))
	fill := t.Fill
	if fill == "" {
		fill = "black"
	}
	dc.SetColor(ParseColor(fill, 1))

	ax := 0.0
	switch t.Anchor {
	case scene.AnchorMiddle:
		ax = 0.5
	case scene.AnchorEnd:
		ax = 1
	}
	ay := 0.0
	if t.Baseline == scene.BaselineMiddle {
		ay = 0.5
	}
	dc.DrawStringAnchored(t.Content, t.Pos.X, t.Pos.Y, ax, ay)
}

func (c *Canvas) Line(l scene.Line) {
	if l.Stroke.Color == "" || l.Stroke.Width <= 0 {
		return
	}
	dc := c.dc
	dc.DrawLine(l.From.X, l.From.Y, l.To.X, l.To.Y)
	opacity := l.Opacity
	if opacity <= 0 {
		opacity = 1
	}
	c.stroke(l.Stroke, opacity)
}

func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

func (c *Canvas) fillAndStroke(p scene.Paint) {
	dc := c.dc
	opacity := p.EffectiveOpacity()
	hasStroke := p.Stroke.Color != "" && p.Stroke.Color != "none" && p.Stroke.Width > 0
	if p.Fill != "" && p.Fill != "none" {
		dc.SetColor(ParseColor(p.Fill, opacity))
		if hasStroke {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if hasStroke {
		c.stroke(p.Stroke, opacity)
		return
	}
	dc.ClearPath()
}

func (c *Canvas) stroke(s scene.Stroke, opacity float64) {
	dc := c.dc
	dc.SetColor(ParseColor(s.Color, opacity))
	dc.SetLineWidth(s.Width)
	if len(s.Dash) > 0 {
		dc.SetDash(s.Dash...)
	} else {
		dc.SetDash()
	}
	dc.Stroke()
}

var namedColors = map[string]color.NRGBA{
	"white": {R: 255, G: 255, B: 255, A: 255},
	"black": {A: 255},
}

// ParseColor understands #rgb, #rrggbb and the named colors used by the
// chart. Unknown values fall back to black.
func ParseColor(s string, opacity float64) color.NRGBA {
	c, ok := namedColors[strings.ToLower(s)]
	if !ok {
		c = parseHex(s)
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

func parseHex(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.NRGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
