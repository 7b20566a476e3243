// Package dashboard keeps one scorecard session per viewer: the active plan,
// the protocol table and the radial chart, joined by a shared selection.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/synaptica-ai/planscore/pkg/acceptability"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/percentile"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scene"
	"github.com/synaptica-ai/planscore/pkg/scorecard"
	"github.com/synaptica-ai/planscore/pkg/selection"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlanNotFound    = errors.New("plan not found")
	ErrNoPlan          = errors.New("session has no active plan")
)

// Ranker computes percentile vectors; population.Service implements it with
// a cache in front.
type Ranker interface {
	Percentiles(ctx context.Context, plan models.PlanRecord, population []models.PlanRecord) percentile.Vector
}

type directRanker struct{}

func (directRanker) Percentiles(_ context.Context, plan models.PlanRecord, population []models.PlanRecord) percentile.Vector {
	return percentile.ComputePlan(plan, population)
}

// SelectionEvent describes one committed selection change.
type SelectionEvent struct {
	SessionID string           `json:"session_id"`
	Plan      models.PlanKey   `json:"plan"`
	Index     selection.Index  `json:"index"`
	Source    selection.Source `json:"source"`
	At        time.Time        `json:"at"`
}

// Session is safe for concurrent use. Every mutation and the chart redraw it
// triggers run under one lock, so readers never see a half-applied change.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	population []models.PlanRecord
	catalog    protocol.Catalog
	ranker     Ranker
	renderer   *scorecard.Renderer
	coord      *selection.Coordinator
	card       scorecard.Card
	hasPlan    bool
	chart      *scene.Recorder

	pending  []SelectionEvent
	onSelect func(SelectionEvent)
}

// NewSession opens a session on the first plan of population. A nil ranker
// computes percentiles directly.
func NewSession(ctx context.Context, id string, population []models.PlanRecord, catalog protocol.Catalog, ranker Ranker, renderer *scorecard.Renderer) *Session {
	if ranker == nil {
		ranker = directRanker{}
	}
	if renderer == nil {
		renderer = scorecard.NewRenderer(scorecard.DefaultLayout())
	}
	s := &Session{
		ID:         id,
		CreatedAt:  time.Now().UTC(),
		population: population,
		catalog:    catalog,
		ranker:     ranker,
		renderer:   renderer,
		coord:      selection.NewCoordinator(),
		chart:      scene.NewRecorder(),
	}
	s.coord.Subscribe(s.selectionChanged)

	if len(population) > 0 {
		s.activate(ctx, population[0])
	}
	s.redraw()
	return s
}

// OnSelect registers fn to receive every committed selection change. fn runs
// after the session lock is released.
func (s *Session) OnSelect(fn func(SelectionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSelect = fn
}

func (s *Session) activate(ctx context.Context, plan models.PlanRecord) {
	s.card = scorecard.Card{Plan: plan, Percentiles: s.ranker.Percentiles(ctx, plan, s.population)}
	s.hasPlan = true
}

func (s *Session) selectionChanged(idx selection.Index, source selection.Source) {
	s.redraw()
	s.pending = append(s.pending, SelectionEvent{
		SessionID: s.ID,
		Plan:      s.card.Plan.Key(),
		Index:     idx,
		Source:    source,
		At:        time.Now().UTC(),
	})
}

func (s *Session) redraw() {
	if !s.hasPlan {
		s.chart.Clear()
		return
	}
	s.renderer.Render(s.chart, s.card, s.population, s.catalog, s.coord.Current(), s.applyFromChart)
}

// applyFromChart is the chart's click callback for the session's own chart;
// it runs with the lock already held.
func (s *Session) applyFromChart(next selection.Index) {
	s.coord.Apply(next, selection.SourceChart)
}

// do runs fn under the lock, then hands the selection events it produced to
// the OnSelect hook.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	fn()
	events := s.pending
	s.pending = nil
	hook := s.onSelect
	s.mu.Unlock()

	if hook == nil {
		return
	}
	for _, e := range events {
		hook(e)
	}
}

// SelectPlan makes the plan named by key active and clears the selection,
// even when key is already active.
func (s *Session) SelectPlan(ctx context.Context, key models.PlanKey) error {
	var err error
	s.do(func() {
		for _, p := range s.population {
			if p.Key() == key {
				s.activate(ctx, p)
				s.coord.Reset()
				return
			}
		}
		err = ErrPlanNotFound
	})
	return err
}

// ClickRow toggles the protocol table row i.
func (s *Session) ClickRow(i int) selection.Index {
	var next selection.Index
	s.do(func() {
		next = s.coord.Toggle(i, selection.SourceTable)
	})
	return next
}

// ClickSector toggles sector i through the chart's own click handler.
func (s *Session) ClickSector(i int) selection.Index {
	var next selection.Index
	s.do(func() {
		if !s.chart.ClickTarget(i) {
			s.coord.Toggle(i, selection.SourceChart)
		}
		next = s.coord.Current()
	})
	return next
}

// ClickAt dispatches a pointer click at chart coordinates (x, y). It reports
// whether a sector was hit.
func (s *Session) ClickAt(x, y float64) (selection.Index, bool) {
	var (
		next selection.Index
		hit  bool
	)
	s.do(func() {
		hit = s.chart.Click(scene.Point{X: x, Y: y})
		next = s.coord.Current()
	})
	return next, hit
}

func (s *Session) Selection() selection.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coord.Current()
}

// RenderTo draws the current scorecard on surface. Clicks recorded on surface
// feed back into the session.
func (s *Session) RenderTo(surface scene.Surface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPlan {
		return ErrNoPlan
	}
	current := s.coord.Current()
	s.renderer.Render(surface, s.card, s.population, s.catalog, current, s.surfaceClick(current))
	return nil
}

// surfaceClick recovers the clicked sector from a callback computed against
// the selection a surface was drawn with, and toggles it against the live
// selection. A surface that was not redrawn after a table click therefore
// still agrees with the table.
func (s *Session) surfaceClick(drawn selection.Index) func(selection.Index) {
	return func(next selection.Index) {
		clicked, ok := next.Get()
		if !ok {
			clicked, ok = drawn.Get()
		}
		if !ok {
			return
		}
		s.do(func() { s.coord.Toggle(clicked, selection.SourceChart) })
	}
}

// Layout is the chart geometry used by RenderTo.
func (s *Session) Layout() scorecard.Layout {
	return s.renderer.Layout
}

// TableRow is one protocol table row.
type TableRow struct {
	Index int `json:"index"`
	protocol.Entry
	Selected bool `json:"selected"`
}

// Table returns the protocol table with the selected row flagged.
func (s *Session) Table() []TableRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.coord.Current()
	rows := make([]TableRow, len(s.catalog.Entries))
	for i, e := range s.catalog.Entries {
		rows[i] = TableRow{Index: i, Entry: e, Selected: current.Is(i)}
	}
	return rows
}

// Header summarises the active plan.
type Header struct {
	PatientNumber int     `json:"patient_number"`
	PlanName      string  `json:"plan_name"`
	ProtocolName  string  `json:"protocol_name"`
	TotalDose     float64 `json:"total_dose"`
	NumFractions  int     `json:"num_fractions"`
	Status        string  `json:"status"`
	Score         float64 `json:"score"`
}

// SelectedEntry details the selected index. Entry and Metric are nil when the
// index falls outside the catalog or the metric list.
type SelectedEntry struct {
	Index    int                           `json:"index"`
	Entry    *protocol.Entry               `json:"entry,omitempty"`
	Priority string                        `json:"priority"`
	Metric   *scorecard.MetricPresentation `json:"metric,omitempty"`
}

type View struct {
	SessionID     string                         `json:"session_id"`
	Plan          *Header                        `json:"plan,omitempty"`
	Acceptability *acceptability.Result          `json:"acceptability,omitempty"`
	Selection     selection.Index                `json:"selection"`
	Selected      *SelectedEntry                 `json:"selected,omitempty"`
	Metrics       []scorecard.MetricPresentation `json:"metrics"`
	Ranges        []acceptability.Range          `json:"ranges"`
	Comparable    int                            `json:"comparable_plans"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:  s.ID,
		Selection:  s.coord.Current(),
		Metrics:    []scorecard.MetricPresentation{},
		Ranges:     acceptability.Ranges(),
		Comparable: comparableCount(s.population),
	}
	if !s.hasPlan {
		return v
	}

	p := s.card.Plan.Patient
	v.Plan = &Header{
		PatientNumber: p.PatientNumber,
		PlanName:      p.PlanName,
		ProtocolName:  p.ProtocolName,
		TotalDose:     p.TotalDose,
		NumFractions:  p.NumFractions,
		Status:        p.PlanningApproved,
		Score:         p.PlanScore,
	}
	result := acceptability.Classify(p.PlanScore)
	v.Acceptability = &result
	v.Metrics = scorecard.Presentations(s.card, s.catalog)

	if i, ok := v.Selection.Get(); ok {
		sel := &SelectedEntry{Index: i, Priority: s.catalog.PriorityAt(i)}
		if e, ok := s.catalog.At(i); ok {
			sel.Entry = &e
		}
		if i >= 0 && i < len(v.Metrics) {
			m := v.Metrics[i]
			sel.Metric = &m
		}
		v.Selected = sel
	}
	return v
}

func comparableCount(population []models.PlanRecord) int {
	return len(percentile.ValidComparators(models.Patients(population)))
}
