package debounce

import (
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/debounce/pkg/vango"
)

// DefaultDelay is the quiescence delay used when WithDelay is not given.
const DefaultDelay = 500 * time.Millisecond

const (
	defaultName       = "debounce"
	defaultTracerName = "github.com/vango-dev/debounce"
)

type config struct {
	delay    time.Duration
	delaySet bool
	name     string
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
	parent   *vango.Owner
}

func defaultConfig() config {
	return config{
		delay: DefaultDelay,
		name:  defaultName,
	}
}

func (c *config) resolve() {
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaultTracerName)
	}
}

// Option configures a Value.
type Option func(*config)

// WithDelay sets the quiescence delay. Negative delays are treated as zero.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = normalizeDelay(d)
		c.delaySet = true
	}
}

// WithName labels the value in logs, metrics and traces.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithLogger sets the logger. Arm, cancel and apply are logged at Debug.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records arm, cancel and apply counts on m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer sets the tracer for apply spans. The default comes from the
// global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// WithParent attaches the value to parent so disposing parent disposes the
// value. Without it the value attaches to the current owner, if any.
func WithParent(parent *vango.Owner) Option {
	return func(c *config) {
		c.parent = parent
	}
}

// Millis converts a millisecond count to a delay. NaN, infinities and
// negative values yield zero.
func Millis(ms float64) time.Duration {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return 0
	}
	d := ms * float64(time.Millisecond)
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func normalizeDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
