package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/synaptica-ai/planscore/pkg/common/kafka"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"github.com/synaptica-ai/planscore/pkg/population"
	"github.com/synaptica-ai/planscore/pkg/protocol"
	"github.com/synaptica-ai/planscore/pkg/scorecard"
)

// EventSelectionChanged is the audit event published for every selection change.
const EventSelectionChanged = "selection_changed"

const publishTimeout = 5 * time.Second

// Store holds live sessions. Idle sessions expire after the TTL; every Get
// extends it.
type Store struct {
	sessions  *gocache.Cache
	ttl       time.Duration
	plans     *population.Service
	catalog   protocol.Catalog
	renderer  *scorecard.Renderer
	publisher kafka.Publisher
	metrics   *metrics.Metrics
}

// NewStore creates a session store. publisher and m may be nil.
func NewStore(plans *population.Service, catalog protocol.Catalog, renderer *scorecard.Renderer, publisher kafka.Publisher, m *metrics.Metrics, ttl time.Duration) *Store {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	st := &Store{
		sessions:  gocache.New(ttl, ttl/2),
		ttl:       ttl,
		plans:     plans,
		catalog:   catalog,
		renderer:  renderer,
		publisher: publisher,
		metrics:   m,
	}
	st.sessions.OnEvicted(func(id string, _ interface{}) {
		logger.WithField("session_id", id).Debug("session closed")
		st.metrics.SetActiveSessions(st.sessions.ItemCount())
	})
	return st
}

// Create opens a session over the current population snapshot.
func (st *Store) Create(ctx context.Context) (*Session, error) {
	plans, err := st.plans.Population(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading population: %w", err)
	}

	s := NewSession(ctx, uuid.New().String(), plans, st.catalog, st.plans, st.renderer)
	s.OnSelect(st.audit)
	st.sessions.Set(s.ID, s, gocache.DefaultExpiration)
	st.metrics.SetActiveSessions(st.sessions.ItemCount())

	logger.WithFields(map[string]interface{}{
		"session_id": s.ID,
		"plans":      len(plans),
	}).Info("session opened")
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := v.(*Session)
	st.sessions.Set(id, s, gocache.DefaultExpiration)
	return s, nil
}

func (st *Store) Delete(id string) {
	st.sessions.Delete(id)
}

func (st *Store) Len() int {
	return st.sessions.ItemCount()
}

// audit counts the change and publishes it keyed by session, so one
// session's events stay ordered on a partition.
func (st *Store) audit(e SelectionEvent) {
	st.metrics.SelectionChanged(string(e.Source))

	data := map[string]interface{}{
		"session_id": e.SessionID,
		"plan":       e.Plan.String(),
		"index":      nil,
		"source":     string(e.Source),
		"at":         e.At,
	}
	if i, ok := e.Index.Get(); ok {
		data["index"] = i
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := st.publisher.PublishEvent(ctx, EventSelectionChanged, "dashboard", e.SessionID, data); err != nil {
		logger.WithField("session_id", e.SessionID).WithError(err).Warn("failed to publish selection event")
	}
}
