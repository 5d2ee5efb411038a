package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcome label values
const (
	OutcomeReceived = "received"
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
)

// Collector holds all Prometheus metrics for the visualization core. Each
// collector owns its registry so independent instances never collide.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// Simulation metrics
	Ticks            prometheus.Counter
	TickDuration     prometheus.Histogram
	DivergenceResets prometheus.Counter
	SettledTotal     prometheus.Counter
	DroppedEdges     prometheus.Counter
	ActiveHandles    prometheus.Gauge

	// Query metrics
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Timeline metrics
	TimelineProjections prometheus.Counter
}

// NewCollector creates a collector with the given namespace
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	ticks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_ticks_total",
			Help:      "Total number of force simulation ticks",
		},
	)

	tickDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_tick_duration_seconds",
			Help:      "Force simulation tick duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)

	divergenceResets := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_divergence_resets_total",
			Help:      "Total number of node resets after non-finite positions",
		},
	)

	settled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulation_settled_total",
			Help:      "Total number of simulations that reached the settled state",
		},
	)

	droppedEdges := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_dropped_edges_total",
			Help:      "Total number of relationships dropped for invalid references",
		},
	)

	activeHandles := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visualization_active_handles",
			Help:      "Number of mounted, undisposed visualization handles",
		},
	)

	queries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries by type and outcome",
		},
		[]string{"query", "outcome"},
	)

	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	projections := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_projections_total",
			Help:      "Total number of timeline projections computed",
		},
	)

	registry.MustRegister(
		ticks,
		tickDuration,
		divergenceResets,
		settled,
		droppedEdges,
		activeHandles,
		queries,
		queryDuration,
		projections,
	)

	return &Collector{
		registry:            registry,
		Ticks:               ticks,
		TickDuration:        tickDuration,
		DivergenceResets:    divergenceResets,
		SettledTotal:        settled,
		DroppedEdges:        droppedEdges,
		ActiveHandles:       activeHandles,
		Queries:             queries,
		QueryDuration:       queryDuration,
		TimelineProjections: projections,
	}
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler exposes the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveTick records one advanced tick
func (c *Collector) ObserveTick(duration time.Duration, resets int, settled bool) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.TickDuration.Observe(duration.Seconds())
	if resets > 0 {
		c.DivergenceResets.Add(float64(resets))
	}
	if settled {
		c.SettledTotal.Inc()
	}
}

// RecordDroppedEdges adds to the dropped relationship count
func (c *Collector) RecordDroppedEdges(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.DroppedEdges.Add(float64(n))
}

// HandleMounted increments the active handle gauge
func (c *Collector) HandleMounted() {
	if c == nil {
		return
	}
	c.ActiveHandles.Inc()
}

// HandleDisposed decrements the active handle gauge
func (c *Collector) HandleDisposed() {
	if c == nil {
		return
	}
	c.ActiveHandles.Dec()
}

// RecordProjection counts a timeline projection
func (c *Collector) RecordProjection() {
	if c == nil {
		return
	}
	c.TimelineProjections.Inc()
}

// RecordQuery counts a query outcome
func (c *Collector) RecordQuery(query, outcome string) {
	if c == nil {
		return
	}
	c.Queries.WithLabelValues(query, outcome).Inc()
}

// Timer measures one query
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// StartQueryTimer starts timing a query of the given type
func (c *Collector) StartQueryTimer(query string) *Timer {
	t := &Timer{start: time.Now()}
	if c != nil {
		t.observer = c.QueryDuration.WithLabelValues(query)
	}
	return t
}

// Stop records the elapsed time
func (t *Timer) Stop() {
	if t.observer != nil {
		t.observer.Observe(time.Since(t.start).Seconds())
	}
}
