package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsRecord(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.ObserveRender("svg", 3*time.Millisecond)
	m.ObserveRender("svg", time.Millisecond)
	m.SelectionChanged("chart")
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.PlansImported(12, 3)
	m.PlanScored("Unacceptable")
	m.SetActiveSessions(4)
	m.RegistrySync("ok")

	out := scrape(t, m)
	assert.Contains(t, out, `planscore_renders_total{format="svg"} 2`)
	assert.Contains(t, out, `planscore_render_duration_seconds_count{format="svg"} 2`)
	assert.Contains(t, out, `planscore_selection_changes_total{source="chart"} 1`)
	assert.Contains(t, out, `planscore_percentile_cache_lookups_total{result="miss"} 2`)
	assert.Contains(t, out, `planscore_percentile_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, out, "planscore_plans_imported_total 12")
	assert.Contains(t, out, "planscore_import_skipped_lines_total 3")
	assert.Contains(t, out, `planscore_plans_scored_total{category="Unacceptable"} 1`)
	assert.Contains(t, out, "planscore_active_sessions 4")
	assert.Contains(t, out, `planscore_registry_syncs_total{outcome="ok"} 1`)
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRender("png", time.Second)
		m.SelectionChanged("table")
		m.CacheHit()
		m.CacheMiss()
		m.PlansImported(1, 0)
		m.PlanScored("Acceptable")
		m.SetActiveSessions(1)
		m.RegistrySync("ok")
	})
}
