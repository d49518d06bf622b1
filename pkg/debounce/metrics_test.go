package debounce

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricHistogram(t *testing.T, o prometheus.Observer) *dto.Histogram {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram()
}

func TestMetricsRecordBurst(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	h := newHarness()

	v := New(h.loop, 0, WithName("search"), WithMetrics(m), WithDelay(300*time.Millisecond))
	v.Set(1)
	h.advance(100 * time.Millisecond)
	v.Set(2)
	h.advance(300 * time.Millisecond)
	v.Dispose()

	// Construction arms once, each write cancels and re-arms.
	if got := metricCounterValue(t, m.armed.WithLabelValues("search")); got != 3 {
		t.Errorf("armed_total = %v, want 3", got)
	}
	if got := metricCounterValue(t, m.cancelled.WithLabelValues("search")); got != 2 {
		t.Errorf("cancelled_total = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.applied.WithLabelValues("search")); got != 1 {
		t.Errorf("applied_total = %v, want 1", got)
	}

	hist := metricHistogram(t, m.settle.WithLabelValues("search"))
	if hist.GetSampleCount() != 1 {
		t.Fatalf("settle_seconds count = %d, want 1", hist.GetSampleCount())
	}
	// The burst began at construction, t=0, and settled at t=400ms.
	if got := hist.GetSampleSum(); got < 0.399 || got > 0.401 {
		t.Errorf("settle_seconds sum = %v, want 0.4", got)
	}
}

func TestMetricsDisposeCountsCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg))
	h := newHarness()

	v := New(h.loop, "", WithName("q"), WithMetrics(m))
	v.Dispose()

	if got := metricCounterValue(t, m.cancelled.WithLabelValues("q")); got != 1 {
		t.Errorf("cancelled_total = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.applied.WithLabelValues("q")); got != 0 {
		t.Errorf("applied_total = %v, want 0", got)
	}
}

func TestMetricsNamingAndRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("input"),
		WithConstLabels(prometheus.Labels{"service": "search"}),
		WithBuckets([]float64{0.1, 1}),
	)
	m.recordArm("x")
	m.recordApply("x", 50*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
		for _, metric := range mf.GetMetric() {
			found := false
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "service" && lp.GetValue() == "search" {
					found = true
				}
			}
			if !found {
				t.Errorf("%s is missing the const label", mf.GetName())
			}
		}
	}

	for _, want := range []string{"app_input_armed_total", "app_input_applied_total", "app_input_settle_seconds"} {
		if !names[want] {
			t.Errorf("metric %s not registered; got %v", want, names)
		}
	}

	hist := metricHistogram(t, m.settle.WithLabelValues("x"))
	if len(hist.GetBucket()) != 2 {
		t.Errorf("buckets = %d, want 2", len(hist.GetBucket()))
	}
}

func TestMetricsDoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(WithRegistry(reg))

	defer func() {
		if recover() == nil {
			t.Error("expected a panic registering the same collectors twice")
		}
	}()
	NewMetrics(WithRegistry(reg))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.recordArm("x")
	m.recordCancel("x")
	m.recordApply("x", time.Second)
}
