package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/locsync/pkg/location"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "locsync").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for the idle wait.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
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

// WithBuckets sets the idle wait histogram buckets.
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
		Namespace: "locsync",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors. It is a location.Observer and a
// server session hook; one instance is shared by all sessions.
type Metrics struct {
	navigations     *prometheus.CounterVec
	deferred        prometheus.Counter
	idleWait        prometheus.Histogram
	activeSessions  prometheus.Gauge
	sessionDuration prometheus.Histogram
	protocolErrors  *prometheus.CounterVec
}

// Prometheus registers the locsync collectors and returns them.
// Registering twice on the same registry panics, as with promauto.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		navigations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Browser side effects issued by location sync, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "field"}),

		deferred: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deferred_navigations_total",
			Help:        "Soft updates held until the document became idle",
			ConstLabels: config.ConstLabels,
		}),

		idleWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "idle_wait_seconds",
			Help:        "Time between the first soft update and the document becoming idle",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		sessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "session_duration_seconds",
			Help:        "Lifetime of closed sessions in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 10, 60, 300, 1800, 3600, 14400},
		}),

		protocolErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "protocol_errors_total",
			Help:        "Malformed frames and events received from clients",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// Observer returns m; sessions share the same collectors.
func (m *Metrics) Observer(sessionID string) location.Observer {
	return m
}

// ObserveNavigation implements location.Observer.
func (m *Metrics) ObserveNavigation(n location.Navigation) {
	m.navigations.WithLabelValues(n.Kind.String(), n.Field.String()).Inc()
	if n.Kind == location.NavDeferred {
		m.deferred.Inc()
	}
}

// ObserveGateOpened implements location.Observer. A gate that was already
// open at first use is not a wait and is not recorded.
func (m *Metrics) ObserveGateOpened(waited time.Duration) {
	if waited <= 0 {
		return
	}
	m.idleWait.Observe(waited.Seconds())
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened(sessionID string) {
	m.activeSessions.Inc()
}

// SessionClosed records a session ending after lifetime.
func (m *Metrics) SessionClosed(sessionID string, lifetime time.Duration) {
	m.activeSessions.Dec()
	m.sessionDuration.Observe(lifetime.Seconds())
}

// ProtocolError records a malformed client message of the given kind
// ("frame", "event", "control", "handshake", "rate_limit").
func (m *Metrics) ProtocolError(sessionID, kind string) {
	m.protocolErrors.WithLabelValues(kind).Inc()
}
