// Package metrics exposes Prometheus collectors for the scorecard service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planscore"

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, so libraries can be used without a registry.
type Metrics struct {
	registry *prometheus.Registry

	renders          *prometheus.CounterVec
	renderDuration   *prometheus.HistogramVec
	selectionChanges *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	plansImported    prometheus.Counter
	importSkipped    prometheus.Counter
	plansScored      *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	registrySyncs    *prometheus.CounterVec
}

// New creates the collectors and registers them on registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Scorecards rendered, by output format.",
		}, []string{"format"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a scorecard, by output format.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"format"}),
		selectionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_changes_total",
			Help:      "Protocol selection changes, by the view that produced them.",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "percentile_cache_lookups_total",
			Help:      "Percentile cache lookups, by result.",
		}, []string{"result"}),
		plansImported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_imported_total",
			Help:      "Plan records accepted by imports.",
		}),
		importSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_skipped_lines_total",
			Help:      "Input lines dropped by the plan parsers.",
		}),
		plansScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_scored_total",
			Help:      "Scorecards computed, by acceptability category.",
		}, []string{"category"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Dashboard sessions currently held in memory.",
		}),
		registrySyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_syncs_total",
			Help:      "Plan registry synchronisations, by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{
		m.renders, m.renderDuration, m.selectionChanges, m.cacheLookups,
		m.plansImported, m.importSkipped, m.plansScored, m.activeSessions, m.registrySyncs,
	} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRender(format string, d time.Duration) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(format).Inc()
	m.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (m *Metrics) SelectionChanged(source string) {
	if m == nil {
		return
	}
	m.selectionChanges.WithLabelValues(source).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) PlansImported(n, skipped int) {
	if m == nil {
		return
	}
	m.plansImported.Add(float64(n))
	m.importSkipped.Add(float64(skipped))
}

func (m *Metrics) PlanScored(category string) {
	if m == nil {
		return
	}
	m.plansScored.WithLabelValues(category).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) RegistrySync(outcome string) {
	if m == nil {
		return
	}
	m.registrySyncs.WithLabelValues(outcome).Inc()
}
