package debounce

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/debounce/pkg/clock"
	"github.com/vango-dev/debounce/pkg/vango"
)

// Value is a debounced value holder.
//
// The immediate value changes on every Set or Update. The debounced value
// follows it after Delay has passed with no further change of the
// immediate value or of the delay. At most one timer is pending at a time.
type Value[T any] struct {
	immediate *vango.Signal[T]
	debounced *vango.Signal[T]
	delay     *vango.Signal[time.Duration]

	host   vango.Ctx
	clock  clock.Clock
	owner  *vango.Owner
	effect *vango.Effect

	name    string
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	pending atomic.Bool

	// burst tracks the writes coalesced into the next apply.
	burstMu    sync.Mutex
	burstStart time.Time
	burstArms  int
}

// New creates a Value whose immediate and debounced values both start at
// initial. host is the event loop the apply step is dispatched onto; it
// panics with vango.ErrEffectContext when nil.
//
// Like an effect on mount, construction arms the first timer.
func New[T any](host vango.Ctx, initial T, opts ...Option) *Value[T] {
	if host == nil {
		panic(vango.ErrEffectContext)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.resolve()

	parent := cfg.parent
	if parent == nil {
		parent = vango.CurrentOwner()
	}

	v := &Value[T]{
		immediate: vango.NewSignal(initial),
		debounced: vango.NewSignal(initial),
		delay:     vango.NewSignal(cfg.delay),
		host:      host,
		clock:     vango.ClockOf(host),
		owner:     vango.NewOwner(parent),
		name:      cfg.name,
		logger:    cfg.logger.With("debounce", cfg.name),
		metrics:   cfg.metrics,
		tracer:    cfg.tracer,
	}

	vango.WithCtx(host, func() {
		vango.WithOwner(v.owner, func() {
			v.effect = vango.CreateEffect(v.arm, vango.EffectTxName(v.name))
		})
	})

	return v
}

// WithEquals sets the equality used to decide whether a write changes the
// immediate value. Equal writes neither notify nor re-arm.
func (v *Value[T]) WithEquals(fn func(a, b T) bool) *Value[T] {
	v.immediate.WithEquals(fn)
	v.debounced.WithEquals(fn)
	return v
}

// Immediate returns the latest written value without subscribing.
func (v *Value[T]) Immediate() T {
	return v.immediate.Peek()
}

// Debounced returns the settled value without subscribing.
func (v *Value[T]) Debounced() T {
	return v.debounced.Peek()
}

// ImmediateSignal exposes the immediate value for tracked reads.
func (v *Value[T]) ImmediateSignal() *vango.Signal[T] {
	return v.immediate
}

// DebouncedSignal exposes the debounced value for tracked reads. Effects
// that read it re-run when a burst settles.
func (v *Value[T]) DebouncedSignal() *vango.Signal[T] {
	return v.debounced
}

// Delay returns the current quiescence delay.
func (v *Value[T]) Delay() time.Duration {
	return v.delay.Peek()
}

// Pending reports whether a deferred update is armed.
func (v *Value[T]) Pending() bool {
	return v.pending.Load()
}

// Name returns the label set with WithName.
func (v *Value[T]) Name() string {
	return v.name
}

// Set replaces the immediate value and re-arms the deferred update.
func (v *Value[T]) Set(value T) {
	if v.immediate.Set(value) {
		v.flush()
	}
}

// Update replaces the immediate value with fn applied to the current
// immediate value, then re-arms the deferred update. fn may read v; if it
// writes v, fn is called again with the value it wrote.
func (v *Value[T]) Update(fn func(prev T) T) {
	if v.immediate.Update(fn) {
		v.flush()
	}
}

// SetDelay changes the quiescence delay. A pending wait restarts with the
// new delay and the current immediate value.
func (v *Value[T]) SetDelay(d time.Duration) {
	if v.delay.Set(normalizeDelay(d)) {
		v.flush()
	}
}

// Dispose cancels any pending timer. Afterwards the debounced value never
// changes again; Set still updates the immediate value.
func (v *Value[T]) Dispose() {
	if v.owner.IsDisposed() {
		return
	}
	v.owner.Dispose()
	v.logger.Debug("debounce disposed")
}

// IsDisposed reports whether Dispose has run, directly or via the parent.
func (v *Value[T]) IsDisposed() bool {
	return v.owner.IsDisposed()
}

// flush re-arms synchronously unless a batch is open, in which case the
// loop re-arms when it flushes effects after the current callback.
func (v *Value[T]) flush() {
	if vango.InBatch() || v.owner.IsDisposed() {
		return
	}
	vango.WithCtx(v.host, v.owner.RunPendingEffects)
}

// arm is the effect body. It reads the immediate value and the delay, so a
// change to either re-runs it after the previous timer's cleanup.
func (v *Value[T]) arm() vango.Cleanup {
	value := v.immediate.Get()
	delay := v.delay.Get()

	v.burstMu.Lock()
	if v.burstArms == 0 {
		v.burstStart = v.clock.Now()
	}
	v.burstArms++
	v.burstMu.Unlock()

	v.pending.Store(true)
	v.metrics.recordArm(v.name)
	v.logger.Debug("debounce armed", "delay", delay)

	var applied atomic.Bool
	stop := vango.Timeout(delay, func() {
		applied.Store(true)
		v.apply(value, delay)
	}, vango.TimeoutTxName(v.name))

	return func() {
		stop()
		if applied.Load() {
			return
		}
		v.pending.Store(false)
		v.metrics.recordCancel(v.name)
		v.logger.Debug("debounce cancelled", "delay", delay)
		if v.owner.IsDisposed() {
			v.resetBurst()
		}
	}
}

// apply runs on the loop when a timer survives its full delay.
func (v *Value[T]) apply(value T, delay time.Duration) {
	start, arms := v.resetBurst()
	v.pending.Store(false)

	_, span := v.tracer.Start(v.host.StdContext(), "debounce.apply",
		trace.WithAttributes(
			attribute.String("debounce.name", v.name),
			attribute.Int64("debounce.delay_ms", delay.Milliseconds()),
			attribute.Int("debounce.coalesced", arms-1),
		),
	)
	changed := v.debounced.Set(value)
	span.SetAttributes(attribute.Bool("debounce.changed", changed))
	span.SetStatus(codes.Ok, "")
	span.End()

	settle := v.clock.Now().Sub(start)
	v.metrics.recordApply(v.name, settle)
	v.logger.Debug("debounce applied",
		"delay", delay,
		"settle", settle,
		"coalesced", arms-1,
		"changed", changed)
}

func (v *Value[T]) resetBurst() (start time.Time, arms int) {
	v.burstMu.Lock()
	defer v.burstMu.Unlock()
	start, arms = v.burstStart, v.burstArms
	v.burstStart = time.Time{}
	v.burstArms = 0
	return start, arms
}
