package population

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/planscore/pkg/acceptability"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"github.com/synaptica-ai/planscore/pkg/percentile"
	"github.com/synaptica-ai/planscore/pkg/scorecard"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	store   Store
	cache   Cache
	metrics *metrics.Metrics
	flight  singleflight.Group
}

// NewService wires a store and an optional cache. m may be nil.
func NewService(store Store, cache Cache, m *metrics.Metrics) *Service {
	return &Service{store: store, cache: cache, metrics: m}
}

func (s *Service) Population(ctx context.Context) ([]models.PlanRecord, error) {
	return s.store.List(ctx)
}

func (s *Service) Plan(ctx context.Context, key models.PlanKey) (models.PlanRecord, error) {
	return s.store.Get(ctx, key)
}

// Save upserts plans into the reference population.
func (s *Service) Save(ctx context.Context, plans []models.PlanRecord) error {
	return s.store.Upsert(ctx, plans)
}

// Percentiles ranks plan against population, reusing a cached vector when the
// same plan was ranked against an identical population.
func (s *Service) Percentiles(ctx context.Context, plan models.PlanRecord, population []models.PlanRecord) percentile.Vector {
	if s.cache == nil {
		return percentile.ComputePlan(plan, population)
	}
	key := CacheKey(plan, Fingerprint(population))
	if v, ok := s.cache.Get(ctx, key); ok {
		s.metrics.CacheHit()
		return v
	}
	// Concurrent misses on one key compute once and share the result.
	res, _, shared := s.flight.Do(key, func() (interface{}, error) {
		s.metrics.CacheMiss()
		v := percentile.ComputePlan(plan, population)
		s.cache.Set(ctx, key, v)
		return v, nil
	})
	v := res.(percentile.Vector)
	if shared {
		return v.Clone()
	}
	return v
}

// Scorecard loads the plan named by key and ranks it against the stored
// population. The population is returned for the renderer's legend.
func (s *Service) Scorecard(ctx context.Context, key models.PlanKey) (scorecard.Card, []models.PlanRecord, error) {
	population, err := s.store.List(ctx)
	if err != nil {
		return scorecard.Card{}, nil, fmt.Errorf("loading population: %w", err)
	}
	for _, p := range population {
		if p.Key() == key {
			card := scorecard.Card{Plan: p, Percentiles: s.Percentiles(ctx, p, population)}
			category := acceptability.Classify(p.Patient.PlanScore).Category
			s.metrics.PlanScored(string(category))
			logger.WithField("plan", key.String()).WithField("category", category).Debug("plan scored")
			return card, population, nil
		}
	}
	return scorecard.Card{}, nil, ErrNotFound
}

// Option is one entry of the plan picker.
type Option struct {
	Key   string         `json:"key"`
	Plan  models.PlanKey `json:"plan"`
	Label string         `json:"label"`
	Score float64        `json:"score"`
}

type Group struct {
	Status  string   `json:"status"`
	Title   string   `json:"title"`
	Options []Option `json:"options"`
}

// Groups is the plan picker content: approved plans first, then unapproved,
// then any other status the export carried.
type Groups struct {
	Groups     []Group `json:"groups"`
	Total      int     `json:"total"`
	Approved   int     `json:"approved"`
	Unapproved int     `json:"unapproved"`
}

func (s *Service) Grouped(ctx context.Context) (Groups, error) {
	plans, err := s.store.List(ctx)
	if err != nil {
		return Groups{}, err
	}
	return GroupPlans(plans), nil
}

// GroupPlans splits plans by approval status, keeping their order.
func GroupPlans(plans []models.PlanRecord) Groups {
	approved := Group{Status: models.StatusPlanningApproved, Title: "Approved Plans", Options: []Option{}}
	unapproved := Group{Status: models.StatusUnApproved, Title: "Unapproved Plans", Options: []Option{}}
	other := Group{Status: "Other", Title: "Other Plans", Options: []Option{}}

	for _, p := range plans {
		opt := Option{
			Key:   p.Key().String(),
			Plan:  p.Key(),
			Label: fmt.Sprintf("Patient %d - %s (Score: %s%%)", p.Patient.PatientNumber, p.Patient.PlanName, models.FormatNumber(p.Patient.PlanScore)),
			Score: p.Patient.PlanScore,
		}
		switch p.Patient.PlanningApproved {
		case models.StatusPlanningApproved:
			approved.Options = append(approved.Options, opt)
		case models.StatusUnApproved:
			unapproved.Options = append(unapproved.Options, opt)
		default:
			other.Options = append(other.Options, opt)
		}
	}

	g := Groups{
		Groups:     []Group{approved, unapproved},
		Total:      len(plans),
		Approved:   len(approved.Options),
		Unapproved: len(unapproved.Options),
	}
	if len(other.Options) > 0 {
		g.Groups = append(g.Groups, other)
	}
	return g
}
