package population

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"github.com/synaptica-ai/planscore/pkg/common/models"
	"github.com/synaptica-ai/planscore/pkg/percentile"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	logger.Discard()
}

func plan(n int, name, status string, ptv, score float64) models.PlanRecord {
	return models.PlanRecord{Patient: models.PatientRecord{
		PatientNumber:    n,
		PlanName:         name,
		PlanningApproved: status,
		PTVD95:           ptv,
		HeartMean:        float64(n),
		PlanScore:        score,
	}}
}

func samplePlans() []models.PlanRecord {
	return []models.PlanRecord{
		plan(1, "Plan1", models.StatusPlanningApproved, 95, 80),
		plan(2, "Plan1", models.StatusUnApproved, 96, 60),
		plan(3, "Plan1", models.StatusPlanningApproved, 97, 30),
	}
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")
	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func TestRepositoryUpsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t)

	plans := samplePlans()
	plans[0].DVH = &models.DVHRecord{PatientNumber: 1, PlanName: "Plan1", Values: map[models.MetricKey]string{models.PTVD95: "95.0%"}}
	require.NoError(t, repo.Upsert(ctx, plans))

	got, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 95.0, got[0].Patient.PTVD95)
	assert.Equal(t, 1.0, got[0].Patient.HeartMean)
	require.NotNil(t, got[0].DVH)
	assert.Equal(t, "95.0%", got[0].DVH.Values[models.PTVD95])
	assert.Nil(t, got[1].DVH)

	updated := plan(2, "Plan1", models.StatusPlanningApproved, 99, 90)
	require.NoError(t, repo.Upsert(ctx, []models.PlanRecord{updated}))

	one, err := repo.Get(ctx, models.PlanKey{PatientNumber: 2, PlanName: "Plan1"})
	require.NoError(t, err)
	assert.Equal(t, 99.0, one.Patient.PTVD95)
	assert.Equal(t, models.StatusPlanningApproved, one.Patient.PlanningApproved)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3, "upsert replaces rather than duplicates")

	_, err = repo.Get(ctx, models.PlanKey{PatientNumber: 9, PlanName: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(plan(5, "B", "", 1, 1), plan(2, "A", "", 1, 1))
	require.NoError(t, s.Upsert(ctx, []models.PlanRecord{plan(5, "B", "", 2, 2)}))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 5, all[0].Patient.PatientNumber)
	assert.Equal(t, 2.0, all[0].Patient.PTVD95)

	_, err = s.Get(ctx, models.PlanKey{PatientNumber: 7, PlanName: "A"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := samplePlans()
	b := []models.PlanRecord{a[2], a[0], a[1]}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	c := samplePlans()
	c[1].Patient.HeartMean = 42
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))

	assert.NotEqual(t, CacheKey(a[0], Fingerprint(a)), CacheKey(a[1], Fingerprint(a)))
}

type countingCache struct {
	inner      Cache
	gets, sets int
}

func (c *countingCache) Get(ctx context.Context, key string) (percentile.Vector, bool) {
	c.gets++
	return c.inner.Get(ctx, key)
}

func (c *countingCache) Set(ctx context.Context, key string, v percentile.Vector) {
	c.sets++
	c.inner.Set(ctx, key, v)
}

func TestServicePercentilesAreCached(t *testing.T) {
	ctx := context.Background()
	cache := &countingCache{inner: NewMemoryCache(time.Minute)}
	svc := NewService(NewMemoryStore(samplePlans()...), cache, nil)

	pop, err := svc.Population(ctx)
	require.NoError(t, err)

	first := svc.Percentiles(ctx, pop[1], pop)
	second := svc.Percentiles(ctx, pop[1], pop)
	assert.Equal(t, first, second)
	assert.Equal(t, percentile.ComputePlan(pop[1], pop), first)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 2, cache.gets)

	// Mutating a returned vector must not poison the cache.
	second[models.PTVD95] = -1
	third := svc.Percentiles(ctx, pop[1], pop)
	assert.Equal(t, first[models.PTVD95], third[models.PTVD95])
}

// barrierCache misses every read and holds writes until every reader has
// missed, so callers overlap on the in-flight computation.
type barrierCache struct {
	missed sync.WaitGroup
	mu     sync.Mutex
	sets   int
}

func (c *barrierCache) Get(context.Context, string) (percentile.Vector, bool) {
	c.missed.Done()
	return nil, false
}

func (c *barrierCache) Set(context.Context, string, percentile.Vector) {
	c.missed.Wait()
	time.Sleep(20 * time.Millisecond)
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
}

func TestConcurrentMissesComputeOnce(t *testing.T) {
	const callers = 8
	ctx := context.Background()
	cache := &barrierCache{}
	cache.missed.Add(callers)
	svc := NewService(NewMemoryStore(samplePlans()...), cache, nil)
	pop, err := svc.Population(ctx)
	require.NoError(t, err)

	results := make([]percentile.Vector, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Percentiles(ctx, pop[0], pop)
		}(i)
	}
	wg.Wait()

	assert.Less(t, cache.sets, callers)
	want := percentile.ComputePlan(pop[0], pop)
	for _, v := range results {
		assert.Equal(t, want, v)
	}
	results[0][models.PTVD95] = -1
	assert.Equal(t, want[models.PTVD95], results[1][models.PTVD95], "callers get independent vectors")
}

func TestServiceScorecard(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(samplePlans()...), NewMemoryCache(time.Minute), nil)

	card, pop, err := svc.Scorecard(ctx, models.PlanKey{PatientNumber: 2, PlanName: "Plan1"})
	require.NoError(t, err)
	assert.Len(t, pop, 3)
	assert.Equal(t, 2, card.Plan.Patient.PatientNumber)
	// PTV 96 among {95,96,97}: first index >= 96 is 1 -> 33.
	assert.Equal(t, 33, card.Percentiles[models.PTVD95])
	assert.Len(t, card.Percentiles, 14)

	_, _, err = svc.Scorecard(ctx, models.PlanKey{PatientNumber: 8, PlanName: "Plan1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupPlans(t *testing.T) {
	plans := append(samplePlans(), plan(4, "Plan2", "Reviewed", 90, 50))
	g := GroupPlans(plans)

	assert.Equal(t, 4, g.Total)
	assert.Equal(t, 2, g.Approved)
	assert.Equal(t, 1, g.Unapproved)
	require.Len(t, g.Groups, 3)
	assert.Equal(t, "PlanningApproved", g.Groups[0].Status)
	assert.Equal(t, "1-Plan1", g.Groups[0].Options[0].Key)
	assert.Equal(t, "Patient 1 - Plan1 (Score: 80%)", g.Groups[0].Options[0].Label)
	assert.Equal(t, "3-Plan1", g.Groups[0].Options[1].Key)
	assert.Equal(t, "2-Plan1", g.Groups[1].Options[0].Key)
	assert.Equal(t, "4-Plan2", g.Groups[2].Options[0].Key)

	assert.Len(t, GroupPlans(samplePlans()).Groups, 2)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(20 * time.Millisecond)
	c.Set(ctx, "k", percentile.Vector{models.PTVD95: 50})
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 50, v[models.PTVD95])
	assert.Equal(t, 1, c.Len())

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRedisCacheDegradesToMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	c := NewRedisCache(client, time.Minute)

	ctx := context.Background()
	c.Set(ctx, "k", percentile.Vector{models.PTVD95: 1})
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRemoteSourceUsesClientCredentials(t *testing.T) {
	var tokenCalls, planCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			tokenCalls.Add(1)
			assert.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"secret-token","token_type":"bearer","expires_in":3600}`))
		case "/api/plans":
			if planCalls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			if r.Header.Get("Authorization") != "Bearer secret-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(registryPage{Plans: []models.PlanRecord{
				plan(10, "Remote", models.StatusPlanningApproved, 95, 70),
				plan(0, "", "", 0, 0),
			}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	src, err := NewRemoteSource(ctx, RegistryConfig{
		URL:          srv.URL + "/api/",
		TokenURL:     srv.URL + "/token",
		ClientID:     "planscore",
		ClientSecret: "shh",
		Attempts:     3,
	})
	require.NoError(t, err)

	store := NewMemoryStore()
	svc := NewService(store, nil, nil)
	n, err := svc.Sync(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int32(2), planCalls.Load(), "the 503 is retried")
	assert.Equal(t, int32(1), tokenCalls.Load())

	got, err := store.Get(ctx, models.PlanKey{PatientNumber: 10, PlanName: "Remote"})
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Patient.PlanScore)
}

func TestRemoteSourceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src, err := NewRemoteSource(context.Background(), RegistryConfig{URL: srv.URL, Attempts: 3})
	require.NoError(t, err)
	_, err = src.Fetch(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	_, err = NewRemoteSource(context.Background(), RegistryConfig{})
	assert.ErrorIs(t, err, ErrRegistryNotConfigured)
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, nil, nil)

	p := plan(7, "Evt", models.StatusUnApproved, 94, 55)
	var data map[string]interface{}
	b, _ := json.Marshal(map[string]interface{}{"plan": p})
	require.NoError(t, json.Unmarshal(b, &data))

	require.NoError(t, svc.HandleEvent(ctx, models.Event{ID: "1", Type: EventPlanRecord, Data: data}))
	got, err := store.Get(ctx, p.Key())
	require.NoError(t, err)
	assert.Equal(t, 94.0, got.Patient.PTVD95)

	require.NoError(t, svc.HandleEvent(ctx, models.Event{ID: "2", Type: EventPlanRecord, Data: map[string]interface{}{"plan": "nope"}}))
	require.NoError(t, svc.HandleEvent(ctx, models.Event{ID: "3", Type: "something_else"}))
	all, _ := store.List(ctx)
	assert.Len(t, all, 1)
}
