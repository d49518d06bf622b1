package debounce

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig controls how the collectors are named and registered.
type MetricsConfig struct {
	Namespace   string            // metric name prefix, "debounce" by default
	Subsystem   string            // optional second prefix
	ConstLabels prometheus.Labels // added to every series
	Buckets     []float64         // settle_seconds buckets, 10ms to ~5s by default
	Registry    prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace overrides the metric name prefix.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem inserts subsystem between the namespace and metric name.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels attaches labels to every series.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the settle-time histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry registers the collectors on r instead of the default
// registerer.
func WithRegistry(r prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = r }
}

// Metrics holds the collectors shared by every Value given WithMetrics.
// A nil *Metrics records nothing.
//
// Collected, labelled by value name:
//   - armed_total: timers armed
//   - cancelled_total: timers cancelled before firing
//   - applied_total: debounced updates applied
//   - settle_seconds: time from the first write of a burst to its apply
type Metrics struct {
	armed     *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	applied   *prometheus.CounterVec
	settle    *prometheus.HistogramVec
}

// NewMetrics registers the collectors. Registering twice on the same
// registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := MetricsConfig{
		Namespace: "debounce",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := promauto.With(cfg.Registry)
	labels := []string{"name"}
	counter := func(name, help string) *prometheus.CounterVec {
		return f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Metrics{
		armed:     counter("armed_total", "Deferred updates armed."),
		cancelled: counter("cancelled_total", "Deferred updates cancelled before they fired."),
		applied:   counter("applied_total", "Debounced updates applied."),
		settle: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "settle_seconds",
			Help:        "Seconds from the first write of a burst to its debounced update.",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, labels),
	}
}

func (m *Metrics) recordArm(name string) {
	if m != nil {
		m.armed.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) recordCancel(name string) {
	if m != nil {
		m.cancelled.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) recordApply(name string, settle time.Duration) {
	if m != nil {
		m.applied.WithLabelValues(name).Inc()
		m.settle.WithLabelValues(name).Observe(settle.Seconds())
	}
}
