// Package loop provides the single-threaded event loop that debounced
// values run on.
//
// All reactive work for a Loop happens on the goroutine running Run:
// dispatched callbacks execute one at a time with the Loop as the current
// runtime context and its root Owner as the current owner, and pending
// effects are flushed after every callback. Timer callbacks created with
// vango.Timeout reach the loop only through Dispatch.
//
//	l := loop.New(loop.WithLogger(logger))
//	go l.Run(ctx)
//	l.Dispatch(func() {
//	    v := debounce.New(l, "")
//	    ...
//	})
package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/debounce/pkg/clock"
	"github.com/vango-dev/debounce/pkg/vango"
)

// DefaultQueueSize is the dispatch queue capacity used when none is set.
const DefaultQueueSize = 256

var (
	// ErrClosed is returned by Run on a loop that has already been closed,
	// and by Call when the loop closes before fn runs.
	ErrClosed = errors.New("loop: closed")

	// ErrCallPanicked is returned by Call when fn panicked.
	ErrCallPanicked = errors.New("loop: call panicked")
)

// Loop serializes dispatched callbacks onto one goroutine.
type Loop struct {
	dispatchCh chan func()
	done       chan struct{}
	closed     atomic.Bool
	running    atomic.Bool

	owner  *vango.Owner
	clock  clock.Clock
	logger *slog.Logger
	stdCtx atomic.Pointer[context.Context]

	// dropped counts callbacks discarded because the queue was full.
	dropped atomic.Uint64

	// overflow holds posted callbacks that did not fit in dispatchCh.
	// wake has capacity 1 and is signalled whenever overflow grows.
	overflowMu sync.Mutex
	overflow   []func()
	wake       chan struct{}
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock sets the timer facility handed to vango.Timeout.
func WithClock(c clock.Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

// WithLogger sets the logger for panics and dropped callbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.dispatchCh = make(chan func(), n)
		}
	}
}

// New creates a Loop. Call Run to start processing.
func New(opts ...Option) *Loop {
	l := &Loop{
		dispatchCh: make(chan func(), DefaultQueueSize),
		done:       make(chan struct{}),
		wake:       make(chan struct{}, 1),
		owner:      vango.NewOwner(nil),
		clock:      clock.Real(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dispatch queues fn to run on the loop. Safe from any goroutine.
// Callbacks dispatched after Close are discarded.
func (l *Loop) Dispatch(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.dispatchCh <- fn:
	case <-l.done:
	default:
		l.dropped.Add(1)
		l.logger.Warn("dispatch queue full, discarding callback")
	}
}

// Post queues fn like Dispatch but never discards it: when the queue is
// full fn waits in an overflow list that the loop drains after the queue.
// Post does not block. vango.Timeout uses it for timer callbacks, so the
// overflow holds at most one callback per live timer.
func (l *Loop) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.dispatchCh <- fn:
		return
	case <-l.done:
		return
	default:
	}

	l.overflowMu.Lock()
	l.overflow = append(l.overflow, fn)
	l.overflowMu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Call runs fn on the loop and waits until it has returned. It returns
// ErrClosed if the loop closes first and ErrCallPanicked if fn panics.
// Call must not be used from the loop goroutine.
func (l *Loop) Call(fn func()) error {
	done := make(chan struct{})
	var returned bool
	l.Post(func() {
		defer close(done)
		fn()
		returned = true
	})

	select {
	case <-done:
	case <-l.done:
		select {
		case <-done:
		default:
			return ErrClosed
		}
	}
	if !returned {
		return ErrCallPanicked
	}
	return nil
}

// StdContext returns the context of the current Run, or Background.
func (l *Loop) StdContext() context.Context {
	if ctx := l.stdCtx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// Clock returns the loop's timer facility.
func (l *Loop) Clock() clock.Clock {
	return l.clock
}

// Owner returns the root owner. Effects created by dispatched callbacks
// belong to it unless they establish their own owner.
func (l *Loop) Owner() *vango.Owner {
	return l.owner
}

// Dropped returns how many callbacks were discarded on a full queue.
func (l *Loop) Dropped() uint64 {
	return l.dropped.Load()
}

// Run processes dispatched callbacks until ctx is cancelled or Close is
// called. On exit it disposes the root owner, cancelling every pending
// timer owned through it.
func (l *Loop) Run(ctx context.Context) error {
	if l.closed.Load() {
		return ErrClosed
	}
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop: already running")
	}
	l.stdCtx.Store(&ctx)

	defer func() {
		l.owner.Dispose()
		vango.ReleaseGoroutine()
	}()

	for {
		select {
		case fn := <-l.dispatchCh:
			l.execute(fn)

		case <-l.wake:
			l.drainOverflow()

		case <-ctx.Done():
			l.Close()
			return ctx.Err()

		case <-l.done:
			return nil
		}
	}
}

// RunPending executes the callbacks queued so far, overflow included, on
// the calling goroutine and returns how many ran. Tests and embedders that
// drive the loop manually use it instead of Run.
func (l *Loop) RunPending() int {
	n := 0
queue:
	for queued := len(l.dispatchCh); n < queued; n++ {
		select {
		case fn := <-l.dispatchCh:
			l.execute(fn)
		default:
			break queue
		}
	}
	select {
	case <-l.wake:
	default:
	}
	return n + l.drainOverflow()
}

// drainOverflow runs the posted callbacks waiting in overflow. Callbacks
// posted while it runs wait for the next wake.
func (l *Loop) drainOverflow() int {
	l.overflowMu.Lock()
	pending := l.overflow
	l.overflow = nil
	l.overflowMu.Unlock()

	for _, fn := range pending {
		l.execute(fn)
	}
	return len(pending)
}

// Overflowed returns how many posted callbacks are waiting in overflow.
func (l *Loop) Overflowed() int {
	l.overflowMu.Lock()
	defer l.overflowMu.Unlock()
	return len(l.overflow)
}

// Close stops Run and discards further dispatches. It is idempotent.
func (l *Loop) Close() {
	if l.closed.Swap(true) {
		return
	}
	close(l.done)
}

// execute runs fn with the loop as runtime context and flushes pending
// effects. A panic is logged and does not stop the loop.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	vango.WithCtx(l, func() {
		vango.WithOwner(l.owner, func() {
			fn()
			l.owner.RunPendingEffects()
		})
	})
}
