package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/planscore/pkg/observability/metrics"
	"github.com/synaptica-ai/planscore/pkg/population"
	"github.com/synaptica-ai/planscore/pkg/protocol"
)

func TestStoreExpiresIdleSessions(t *testing.T) {
	svc := population.NewService(population.NewMemoryStore(fixturePlans()...), nil, nil)
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	store := NewStore(svc, protocol.DefaultCatalog(), nil, nil, m, 30*time.Millisecond)

	s, err := store.Create(context.Background())
	require.NoError(t, err)
	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Equal(t, 1, store.Len())

	time.Sleep(60 * time.Millisecond)
	_, err = store.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	svc := population.NewService(population.NewMemoryStore(fixturePlans()...), nil, nil)
	store := NewStore(svc, protocol.DefaultCatalog(), nil, nil, nil, time.Minute)
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	a.ClickRow(4)
	assert.True(t, a.Selection().Is(4))
	assert.True(t, b.Selection().IsNone())
}
