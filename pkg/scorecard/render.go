// Package scorecard lays out the radial plan scorecard ("daisy" chart) on a
// scene.Surface.
package scorecard

import (
	"fmt"
	"math"

	"github.com/synaptica-ai/planscore/pkg/acceptability"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/percentile"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scene"
	"github.com/synaptica-ai/planscore/pkg/selection"
)

const (
	selectedColor    = "#2563eb"
	selectedText     = "#1d4ed8"
	selectedBoxFill  = "#dbeafe"
	legendTextColor  = "#374151"
	guideStrokeColor = "#ddd"
	guideLabelColor  = "#999"
)

// GuidePercentiles are the dashed reference circles.
var GuidePercentiles = []int{0, 25, 50, 75, 100}

// Renderer draws scorecards with a fixed layout.
type Renderer struct {
	Layout Layout
}

func NewRenderer(layout Layout) *Renderer {
	return &Renderer{Layout: layout}
}

// Render draws card with the default layout.
func Render(s scene.Surface, card Card, population []models.PlanRecord, catalog protocol.Catalog, selected selection.Index, onSectorClick func(selection.Index)) {
	NewRenderer(DefaultLayout()).Render(s, card, population, catalog, selected, onSectorClick)
}

// Render replaces everything on s with the scorecard for card. The drawing is
// a pure function of its arguments. Each sector's click handler reports the
// toggled selection through onSectorClick, which may be nil.
func (r *Renderer) Render(s scene.Surface, card Card, population []models.PlanRecord, catalog protocol.Catalog, selected selection.Index, onSectorClick func(selection.Index)) {
	s.Clear()

	r.drawPriorityLegend(s)
	r.drawPerformanceLegend(s)
	r.drawDotLegend(s)
	r.drawPopulationLegend(s, population)

	r.drawScore(s, card.Plan.Patient.PlanScore)
	r.drawGuides(s)

	metrics := Presentations(card, catalog)
	for i, m := range metrics {
		r.drawSector(s, i, len(metrics), m, selected, onSectorClick)
	}
}

func (r *Renderer) drawSector(s scene.Surface, i, n int, m MetricPresentation, selected selection.Index, onSectorClick func(selection.Index)) {
	l := r.Layout
	c := l.Center()
	outer := l.OuterRadius()
	angle := SectorAngle(i, n)
	half := SectorHalfWidth(n)
	p := clampPercentile(m.Percentile)
	isSelected := selected.Is(i)

	style := PriorityStyle(m.Priority, BandColor(p))
	outline := scene.Stroke{Color: "#000000", Width: 1}
	var hover *scene.Stroke
	if isSelected {
		outline = scene.Stroke{Color: selectedColor, Width: 3}
	} else {
		hover = &scene.Stroke{Color: "#666", Width: 2}
	}

	s.Arc(scene.Arc{
		Center:      c,
		InnerRadius: l.InnerRadius,
		OuterRadius: l.RadiusAt(float64(p)),
		StartAngle:  angle - half,
		EndAngle:    angle + half,
		Paint:       scene.Paint{Fill: style.Fill, Opacity: style.Opacity, Stroke: outline},
		Hover:       hover,
		Target:      i,
		Cursor:      "pointer",
		OnClick: func() {
			if onSectorClick != nil {
				onSectorClick(selection.Toggle(selected, i))
			}
		},
	})

	dotRadius := 5.0
	achieved := scene.Paint{Fill: "black"}
	requested := scene.Paint{Fill: "#888", Opacity: 0.7}
	if isSelected {
		dotRadius = 7
		achieved = scene.Paint{Fill: selectedText, Stroke: scene.Stroke{Color: "white", Width: 2}}
		requested = scene.Paint{Fill: "#64748b", Opacity: 0.7, Stroke: scene.Stroke{Color: "white", Width: 1}}
	}
	tip := scene.Polar(c, l.RadiusAt(float64(p)), angle)
	s.Circle(scene.Circle{Center: tip, Radius: dotRadius, Paint: achieved, PassThrough: true})
	s.Circle(scene.Circle{
		Center:      scene.Polar(c, l.RadiusAt(float64(clampPercentile(m.Requested))), angle),
		Radius:      dotRadius,
		Paint:       requested,
		PassThrough: true,
	})

	r.drawLabel(s, scene.Polar(c, outer+30, angle), m.Name, isSelected)
	r.drawTooltip(s, tip, fmt.Sprintf("%d%%, %s", m.Percentile, m.Value), isSelected)

	if isSelected {
		s.Line(scene.Line{
			From:        c,
			To:          scene.Polar(c, outer, angle),
			Stroke:      scene.Stroke{Color: selectedColor, Width: 2, Dash: []float64{5, 5}},
			Opacity:     0.7,
			PassThrough: true,
		})
	}
}

func (r *Renderer) drawLabel(s scene.Surface, at scene.Point, text string, isSelected bool) {
	fontSize := 12.0
	box := scene.Paint{Fill: "white", Opacity: 0.9, Stroke: scene.Stroke{Color: "#ccc", Width: 1}}
	fill := "black"
	if isSelected {
		fontSize = 13
		box = scene.Paint{Fill: selectedBoxFill, Opacity: 0.9, Stroke: scene.Stroke{Color: selectedColor, Width: 2}}
		fill = selectedText
	}
	width := scene.EstimateTextWidth(text, fontSize)
	const height = 24.0
	s.Rect(scene.Rect{
		Min:          scene.Point{X: at.X - width/2, Y: at.Y - height/2},
		Width:        width,
		Height:       height,
		CornerRadius: 4,
		Paint:        box,
		PassThrough:  true,
	})
	s.Text(scene.Text{
		Pos:         at,
		Content:     text,
		FontSize:    fontSize,
		Bold:        isSelected,
		Fill:        fill,
		Anchor:      scene.AnchorMiddle,
		Baseline:    scene.BaselineMiddle,
		PassThrough: true,
	})
}

func (r *Renderer) drawTooltip(s scene.Surface, at scene.Point, text string, isSelected bool) {
	fontSize := 10.0
	box := scene.Paint{Fill: "white", Stroke: scene.Stroke{Color: "#ccc", Width: 1}}
	fill := "black"
	if isSelected {
		fontSize = 11
		box = scene.Paint{Fill: selectedBoxFill, Stroke: scene.Stroke{Color: selectedColor, Width: 2}}
		fill = selectedText
	}
	width := math.Max(90, scene.EstimateTextWidth(text, 10)+10)
	s.Rect(scene.Rect{
		Min:          scene.Point{X: at.X - width/2, Y: at.Y - 12},
		Width:        width,
		Height:       24,
		CornerRadius: 4,
		Paint:        box,
		PassThrough:  true,
	})
	s.Text(scene.Text{
		Pos:         at,
		Content:     text,
		FontSize:    fontSize,
		Bold:        isSelected,
		Fill:        fill,
		Anchor:      scene.AnchorMiddle,
		Baseline:    scene.BaselineMiddle,
		PassThrough: true,
	})
}

func (r *Renderer) drawScore(s scene.Surface, score float64) {
	s.Text(scene.Text{
		Pos:      r.Layout.Center(),
		Content:  models.FormatNumber(score) + "%",
		FontSize: 52,
		Bold:     true,
		Fill:     acceptability.Classify(score).Colors.Foreground,
		Anchor:   scene.AnchorMiddle,
		Baseline: scene.BaselineMiddle,
	})
}

func (r *Renderer) drawGuides(s scene.Surface) {
	c := r.Layout.Center()
	for _, g := range GuidePercentiles {
		radius := r.Layout.RadiusAt(float64(g))
		s.Circle(scene.Circle{
			Center:      c,
			Radius:      radius,
			Paint:       scene.Paint{Fill: "none", Stroke: scene.Stroke{Color: guideStrokeColor, Width: 1, Dash: []float64{2, 2}}},
			PassThrough: true,
		})
		if g == 0 {
			continue
		}
		s.Text(scene.Text{
			Pos:         scene.Point{X: c.X + 5, Y: c.Y - radius + 5 - 0.3*12},
			Content:     fmt.Sprintf("%d%%", g),
			FontSize:    12,
			Fill:        guideLabelColor,
			Anchor:      scene.AnchorStart,
			PassThrough: true,
		})
	}
}

var priorityLegend = []struct {
	label string
	style Style
}{
	{"Priority 1 (Critical) - Full opacity", PriorityStyle(protocol.Priority1, "#bbf7d0")},
	{"Priority 2 (Important) - Medium opacity", PriorityStyle(protocol.Priority2, "#bbf7d0")},
	{"Priority 3 (Standard) - Light opacity", PriorityStyle(protocol.Priority3, "#bbf7d0")},
	{"Report Only - White", PriorityStyle(protocol.PriorityReport, "#bbf7d0")},
}

func (r *Renderer) drawPriorityLegend(s scene.Surface) {
	origin := scene.Point{X: 20, Y: 20}
	legendTitle(s, origin, "Priority Levels:")
	for i, item := range priorityLegend {
		y := origin.Y + 20 + float64(i)*20
		s.Rect(scene.Rect{
			Min:    scene.Point{X: origin.X, Y: y - 8},
			Width:  16,
			Height: 12,
			Paint:  scene.Paint{Fill: item.style.Fill, Opacity: item.style.Opacity, Stroke: scene.Stroke{Color: "#d1d5db", Width: 1}},
		})
		legendText(s, scene.Point{X: origin.X + 22, Y: y}, item.label, 12)
	}
}

func (r *Renderer) drawPerformanceLegend(s scene.Surface) {
	origin := scene.Point{X: r.Layout.Width - 180, Y: 20}
	legendTitle(s, origin, "Percentile Performance:")
	for i, b := range Bands {
		y := origin.Y + 20 + float64(i)*18
		s.Rect(scene.Rect{Min: scene.Point{X: origin.X, Y: y - 8}, Width: 16, Height: 12, Paint: scene.Paint{Fill: b.Color}})
		legendText(s, scene.Point{X: origin.X + 22, Y: y}, b.Label, 11)
	}
}

func (r *Renderer) drawDotLegend(s scene.Surface) {
	origin := scene.Point{X: 20, Y: r.Layout.Height - 80}
	legendTitle(s, origin, "Dot Indicators:")
	items := []struct {
		label string
		paint scene.Paint
	}{
		{"Achieved Value", scene.Paint{Fill: "black"}},
		{"Requested Value", scene.Paint{Fill: "#888", Opacity: 0.7}},
	}
	for i, item := range items {
		y := origin.Y + 20 + float64(i)*20
		s.Circle(scene.Circle{Center: scene.Point{X: origin.X + 8, Y: y - 4}, Radius: 5, Paint: item.paint})
		legendText(s, scene.Point{X: origin.X + 22, Y: y}, item.label, 12)
	}
}

// drawPopulationLegend reports how many plans the ranking was computed against.
func (r *Renderer) drawPopulationLegend(s scene.Surface, population []models.PlanRecord) {
	valid := len(percentile.ValidComparators(models.Patients(population)))
	origin := scene.Point{X: r.Layout.Width - 20, Y: r.Layout.Height - 40}
	s.Text(scene.Text{
		Pos:      origin,
		Content:  "Population:",
		FontSize: 14,
		Bold:     true,
		Fill:     legendTextColor,
		Anchor:   scene.AnchorEnd,
	})
	s.Text(scene.Text{
		Pos:      scene.Point{X: origin.X, Y: origin.Y + 20},
		Content:  PopulationLabel(valid),
		FontSize: 12,
		Fill:     legendTextColor,
		Anchor:   scene.AnchorEnd,
	})
}

// PopulationLabel is the text of the population legend.
func PopulationLabel(valid int) string {
	if valid == 1 {
		return "1 comparable plan"
	}
	return fmt.Sprintf("%d comparable plans", valid)
}

func legendTitle(s scene.Surface, at scene.Point, text string) {
	s.Text(scene.Text{Pos: at, Content: text, FontSize: 14, Bold: true, Fill: legendTextColor})
}

func legendText(s scene.Surface, at scene.Point, text string, size float64) {
	s.Text(scene.Text{Pos: at, Content: text, FontSize: size, Fill: legendTextColor})
}

func clampPercentile(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
