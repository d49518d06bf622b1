package debounce

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingTracer struct {
	noop.Tracer
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, attrs: cfg.Attributes()}
	r.spans = append(r.spans, s)
	return trace.ContextWithSpan(ctx, s), s
}

type recordedSpan struct {
	noop.Span
	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	ended  bool
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.attrs = append(s.attrs, kv...)
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) {
	s.status = code
}

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

func (s *recordedSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestApplySpan(t *testing.T) {
	tracer := &recordingTracer{}
	h := newHarness()

	v := New(h.loop, "", WithName("search"), WithTracer(tracer), WithDelay(250*time.Millisecond))
	v.Set("g")
	v.Set("go")
	h.advance(250 * time.Millisecond)

	if len(tracer.spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(tracer.spans))
	}
	span := tracer.spans[0]
	if span.name != "debounce.apply" {
		t.Errorf("span name = %q", span.name)
	}
	if !span.ended || span.status != codes.Ok {
		t.Errorf("span ended=%v status=%v, want ended with Ok", span.ended, span.status)
	}

	checks := map[string]attribute.Value{
		"debounce.name":      attribute.StringValue("search"),
		"debounce.delay_ms":  attribute.Int64Value(250),
		"debounce.coalesced": attribute.IntValue(2),
		"debounce.changed":   attribute.BoolValue(true),
	}
	for key, want := range checks {
		got, ok := span.attr(key)
		if !ok {
			t.Errorf("missing attribute %s", key)
			continue
		}
		if got != want {
			t.Errorf("%s = %v, want %v", key, got.Emit(), want.Emit())
		}
	}
}

func TestApplySpanUnchangedValue(t *testing.T) {
	tracer := &recordingTracer{}
	h := newHarness()

	// The timer armed at construction applies the initial value again.
	New(h.loop, "same", WithTracer(tracer), WithDelay(10*time.Millisecond))
	h.advance(10 * time.Millisecond)

	if len(tracer.spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(tracer.spans))
	}
	got, _ := tracer.spans[0].attr("debounce.changed")
	if got.AsBool() {
		t.Error("debounce.changed should be false when the value is unchanged")
	}
}

func TestCancelledTimerRecordsNoSpan(t *testing.T) {
	tracer := &recordingTracer{}
	h := newHarness()

	v := New(h.loop, 0, WithTracer(tracer), WithDelay(100*time.Millisecond))
	h.advance(50 * time.Millisecond)
	v.Dispose()
	h.advance(time.Second)

	if len(tracer.spans) != 0 {
		t.Errorf("recorded %d spans for a cancelled timer", len(tracer.spans))
	}
}
