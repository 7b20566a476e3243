// Package population stores the reference plans used for ranking and serves
// cached percentile vectors computed against them.
package population

import (
	"context"
	"errors"
	"sync"

	"github.com/synaptica-ai/planscore/pkg/common/models"
)

var ErrNotFound = errors.New("plan not found")

// Store persists plan records keyed by (patient number, plan name).
type Store interface {
	// Upsert inserts plans, replacing any stored plan with the same key.
	Upsert(ctx context.Context, plans []models.PlanRecord) error
	List(ctx context.Context) ([]models.PlanRecord, error)
	Get(ctx context.Context, key models.PlanKey) (models.PlanRecord, error)
}

// MemoryStore keeps plans in insertion order. It backs the CLI and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	plans []models.PlanRecord
	index map[models.PlanKey]int
}

func NewMemoryStore(plans ...models.PlanRecord) *MemoryStore {
	s := &MemoryStore{index: make(map[models.PlanKey]int)}
	_ = s.Upsert(context.Background(), plans)
	return s
}

func (s *MemoryStore) Upsert(_ context.Context, plans []models.PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plans {
		key := p.Key()
		if i, ok := s.index[key]; ok {
			s.plans[i] = p
			continue
		}
		s.index[key] = len(s.plans)
		s.plans = append(s.plans, p)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]models.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PlanRecord, len(s.plans))
	copy(out, s.plans)
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, key models.PlanKey) (models.PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		return models.PlanRecord{}, ErrNotFound
	}
	return s.plans[i], nil
}
