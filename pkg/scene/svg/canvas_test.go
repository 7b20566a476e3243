package svg

import (
	"encoding/xml"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/scene"
)

func TestCanvasProducesWellFormedXML(t *testing.T) {
	c := New(200, 100)
	c.Arc(scene.Arc{
		Center:      scene.Point{X: 100, Y: 50},
		InnerRadius: 10,
		OuterRadius: 40,
		StartAngle:  -0.2,
		EndAngle:    0.2,
		Paint:       scene.Paint{Fill: "#dc2626", Opacity: 0.7, Stroke: scene.Stroke{Color: "#000000", Width: 1}},
		Hover:       &scene.Stroke{Color: "#666", Width: 2},
		Target:      3,
	})
	c.Circle(scene.Circle{Center: scene.Point{X: 100, Y: 50}, Radius: 5, Paint: scene.Paint{Fill: "black"}, PassThrough: true})
	c.Rect(scene.Rect{Min: scene.Point{X: 1, Y: 2}, Width: 30, Height: 24, CornerRadius: 4, Paint: scene.Paint{Fill: "white"}})
	c.Text(scene.Text{Pos: scene.Point{X: 5, Y: 5}, Content: `Lungs <GTV> & "cord"`, FontSize: 12, Anchor: scene.AnchorMiddle, Baseline: scene.BaselineMiddle})
	c.Line(scene.Line{From: scene.Point{}, To: scene.Point{X: 10, Y: 10}, Stroke: scene.Stroke{Color: "#2563eb", Width: 2, Dash: []float64{5, 5}}, Opacity: 0.7})

	out := string(c.Bytes())

	decoder := xml.NewDecoder(strings.NewReader(out))
	for {
		_, err := decoder.Token()
		if err != nil {
			require.Equal(t, "EOF", err.Error())
			break
		}
	}

	assert.Contains(t, out, `data-sector="3"`)
	assert.Contains(t, out, `#sector-3:hover{stroke:#666;stroke-width:2}`)
	assert.Contains(t, out, `opacity="0.7"`)
	assert.Contains(t, out, `pointer-events="none"`)
	assert.Contains(t, out, `stroke-dasharray="5,5"`)
	assert.Contains(t, out, `rx="4"`)
	assert.Contains(t, out, "Lungs &lt;GTV&gt; &amp;")
}

func TestClearDropsPreviousContent(t *testing.T) {
	c := New(100, 100)
	c.Text(scene.Text{Content: "first", FontSize: 10})
	c.Clear()
	c.Text(scene.Text{Content: "second", FontSize: 10})

	out := string(c.Bytes())
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "second")
}

func TestArcPath(t *testing.T) {
	a := scene.Arc{Center: scene.Point{X: 0, Y: 0}, InnerRadius: 10, OuterRadius: 20, StartAngle: 0, EndAngle: math.Pi / 2}
	assert.Equal(t, "M0,-20 A20,20 0 0 1 20,0 L10,0 A10,10 0 0 0 0,-10 Z", arcPath(a))

	a.InnerRadius = 0
	a.EndAngle = 1.5 * math.Pi
	assert.Equal(t, "M0,-20 A20,20 0 1 1 -20,0 L0,0 Z", arcPath(a))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0", num(0))
	assert.Equal(t, "0", num(-0.001))
	assert.Equal(t, "12.5", num(12.5))
	assert.Equal(t, "330", num(330))
	assert.Equal(t, "0.33", num(1.0/3))
}
