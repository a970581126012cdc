package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/waypoint/pkg/loader"
	"github.com/vango-dev/waypoint/pkg/navigation"
)

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "waypoint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for navigation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus exporter.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "waypoint",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics records navigation events as Prometheus metrics.
// It is safe for concurrent use.
type Metrics struct {
	config  MetricsConfig
	factory promauto.Factory

	navigations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	redirects   prometheus.Counter
	commits     *prometheus.CounterVec

	mu      sync.Mutex
	active  map[string]int // navigation id -> redirects seen
	loaders int
}

// NewMetrics registers the navigation metrics and returns the observer.
// Registering twice against the same registry panics, like promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(config.Registry)
	m := &Metrics{
		config:  config,
		factory: factory,
		active:  make(map[string]int),
	}

	m.navigations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "navigations_total",
		Help:        "Total number of finished navigations by outcome",
		ConstLabels: config.ConstLabels,
	}, []string{"outcome"})

	m.duration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "navigation_duration_seconds",
		Help:        "Time from navigation start to its terminal state in seconds",
		ConstLabels: config.ConstLabels,
		Buckets:     config.Buckets,
	}, []string{"outcome"})

	m.inFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "navigations_in_flight",
		Help:        "Navigations that have started but not finished",
		ConstLabels: config.ConstLabels,
	})

	m.redirects = factory.NewCounter(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "redirects_total",
		Help:        "Total number of redirects followed",
		ConstLabels: config.ConstLabels,
	})

	m.commits = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace:   config.Namespace,
		Subsystem:   config.Subsystem,
		Name:        "views_committed_total",
		Help:        "Total number of commits per view",
		ConstLabels: config.ConstLabels,
	}, []string{"view"})

	return m
}

// OnEvent implements navigation.Observer.
func (m *Metrics) OnEvent(e navigation.Event) {
	m.mu.Lock()
	seen, ok := m.active[e.NavigationID]
	if !ok {
		m.inFlight.Inc()
	}
	if e.Redirects > seen {
		m.redirects.Add(float64(e.Redirects - seen))
		seen = e.Redirects
	}
	if e.Terminal() {
		delete(m.active, e.NavigationID)
		m.inFlight.Dec()
	} else {
		m.active[e.NavigationID] = seen
	}
	m.mu.Unlock()

	if !e.Terminal() {
		return
	}
	outcome := Outcome(e)
	m.navigations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(e.Elapsed.Seconds())
	if e.Commit != nil {
		viewID := e.Commit.ViewID
		if viewID == "" {
			viewID = "none"
		}
		m.commits.WithLabelValues(viewID).Inc()
	}
}

// RegisterLoader exports l's cache statistics. Only the first loader is
// registered; later calls are ignored since the series would collide.
func (m *Metrics) RegisterLoader(l *loader.Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaders > 0 {
		return
	}
	m.loaders++

	counter := func(name, help string, value func(loader.Stats) int64) {
		m.factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   m.config.Namespace,
			Subsystem:   m.config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: m.config.ConstLabels,
		}, func() float64 { return float64(value(l.Stats())) })
	}
	counter("loader_fetches_total", "View fetches started by the loader",
		func(s loader.Stats) int64 { return s.Fetches })
	counter("loader_cache_hits_total", "Loads served from the view cache",
		func(s loader.Stats) int64 { return s.Hits })
	counter("loader_shared_total", "Loads that joined an in-flight fetch",
		func(s loader.Stats) int64 { return s.Shared })
	counter("loader_failures_total", "View fetches that failed",
		func(s loader.Stats) int64 { return s.Failures })

	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.config.Namespace,
		Subsystem:   m.config.Subsystem,
		Name:        "loader_cached_views",
		Help:        "View factories currently cached",
		ConstLabels: m.config.ConstLabels,
	}, func() float64 { return float64(l.Stats().Cached) })
}
