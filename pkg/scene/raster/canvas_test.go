package raster

import (
	"bytes"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/scene"
)

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.NRGBA{R: 0xdc, G: 0x26, B: 0x26, A: 255}, ParseColor("#dc2626", 1))
	assert.Equal(t, color.NRGBA{R: 0x66, G: 0x66, B: 0x66, A: 255}, ParseColor("#666", 1))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 102}, ParseColor("white", 0.4))
	assert.Equal(t, color.NRGBA{A: 255}, ParseColor("not-a-color", 1))
}

func TestCanvasPaintsArcAndEncodesPNG(t *testing.T) {
	c, err := New(100, 100, 1)
	require.NoError(t, err)

	center := scene.Point{X: 50, Y: 50}
	c.Arc(scene.Arc{
		Center:      center,
		InnerRadius: 10,
		OuterRadius: 40,
		StartAngle:  -0.3,
		EndAngle:    0.3,
		Paint:       scene.Paint{Fill: "#dc2626", Opacity: 1},
		Target:      0,
	})
	c.Text(scene.Text{Pos: center, Content: "80%", FontSize: 10, Anchor: scene.AnchorMiddle, Baseline: scene.BaselineMiddle})

	// A point straight above the centre, between the radii, is inside the sector.
	r, g, b, _ := c.Image().At(50, 25).RGBA()
	assert.Equal(t, uint32(0xdc), r>>8)
	assert.Equal(t, uint32(0x26), g>>8)
	assert.Equal(t, uint32(0x26), b>>8)

	// The corner stays white.
	r, g, b, _ = c.Image().At(2, 2).RGBA()
	assert.Equal(t, []uint32{0xff, 0xff, 0xff}, []uint32{r >> 8, g >> 8, b >> 8})

	var buf bytes.Buffer
	require.NoError(t, c.EncodePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestCanvasScaleAndClear(t *testing.T) {
	c, err := New(50, 40, 2)
	require.NoError(t, err)
	c.Rect(scene.Rect{Min: scene.Point{X: 0, Y: 0}, Width: 50, Height: 40, Paint: scene.Paint{Fill: "black"}})
	c.Clear()

	assert.Equal(t, 100, c.Image().Bounds().Dx())
	assert.Equal(t, 80, c.Image().Bounds().Dy())
	r, _, _, _ := c.Image().At(10, 10).RGBA()
	assert.Equal(t, uint32(0xff), r>>8)
}

func TestConcurrentCanvasesDrawText(t *testing.T) {
	const workers = 4
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := New(200, 200, 1)
			if err != nil {
				errs[i] = err
				return
			}
			for j := 0; j < 50; j++ {
				c.Text(scene.Text{Pos: scene.Point{X: 100, Y: 100}, Content: "Heart V50Gy", FontSize: 12, Bold: j%2 == 0})
			}
			var buf bytes.Buffer
			errs[i] = c.EncodePNG(&buf)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}
