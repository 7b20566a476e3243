package scorecard

import (
	"math"

	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scene"
)

// Layout holds the fixed geometry of the chart.
type Layout struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	Margin      float64 `json:"margin"`
	InnerRadius float64 `json:"inner_radius"`
}

func DefaultLayout() Layout {
	return Layout{Width: 900, Height: 900, Margin: 120, InnerRadius: 140}
}

func (l Layout) Center() scene.Point {
	return scene.Point{X: l.Width / 2, Y: l.Height / 2}
}

func (l Layout) OuterRadius() float64 {
	return math.Min(l.Width, l.Height)/2 - l.Margin
}

// RadiusAt maps a percentile onto the radial axis. Bars grow outward from the
// inner radius.
func (l Layout) RadiusAt(percentile float64) float64 {
	return l.InnerRadius + l.BarHeight(percentile)
}

func (l Layout) BarHeight(percentile float64) float64 {
	return (l.OuterRadius() - l.InnerRadius) * (percentile / 100)
}

const (
	startAngle = -math.Pi / 4
	barFill    = 0.7
)

// SectorAngle is the centre angle of sector i out of n. The first sector sits
// at top-left and the rest follow clockwise.
func SectorAngle(i, n int) float64 {
	return startAngle + float64(i)*angleStep(n)
}

// SectorHalfWidth leaves a 30% gap between neighbouring bars.
func SectorHalfWidth(n int) float64 {
	return 0.5 * angleStep(n) * barFill
}

func angleStep(n int) float64 {
	if n <= 0 {
		return 2 * math.Pi
	}
	return 2 * math.Pi / float64(n)
}

// Band is one performance colour bracket, [Min, Max) on the achieved percentile.
type Band struct {
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Color string `json:"color"`
	Label string `json:"label"`
}

var Bands = []Band{
	{Min: 0, Max: 20, Color: "#dc2626", Label: "0-20th percentile (poor)"},
	{Min: 20, Max: 40, Color: "#f87171", Label: "20-40th percentile (below avg)"},
	{Min: 40, Max: 60, Color: "#fde047", Label: "40-60th percentile (average)"},
	{Min: 60, Max: 80, Color: "#bbf7d0", Label: "60-80th percentile (good)"},
	{Min: 80, Max: 90, Color: "#4ade80", Label: "80-90th percentile (very good)"},
	{Min: 90, Max: 95, Color: "#16a34a", Label: "90-95th percentile (excellent)"},
	{Min: 95, Max: 101, Color: "#065f46", Label: "95-100th percentile (outstanding)"},
}

// BandColor returns the performance colour for an achieved percentile.
func BandColor(percentile int) string {
	for _, b := range Bands {
		if percentile < b.Max {
			return b.Color
		}
	}
	return Bands[len(Bands)-1].Color
}

// Style is a sector's fill after the priority overlay.
type Style struct {
	Fill    string  `json:"fill"`
	Opacity float64 `json:"opacity"`
}

// PriorityStyle applies the priority overlay to a band colour. Priority only
// changes opacity, except Report which always paints white.
func PriorityStyle(priority, bandColor string) Style {
	switch priority {
	case protocol.Priority1:
		return Style{Fill: bandColor, Opacity: 1}
	case protocol.Priority2:
		return Style{Fill: bandColor, Opacity: 0.7}
	case protocol.Priority3:
		return Style{Fill: bandColor, Opacity: 0.4}
	case protocol.PriorityReport:
		return Style{Fill: "white", Opacity: 1}
	}
	return Style{Fill: bandColor, Opacity: 0.4}
}
