package vango

import (
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect that re-runs when the signals it read
// during its last run change. The Cleanup returned by a run is called
// before the next run and when the effect is disposed.
type Effect struct {
	id uint64

	fn      func() Cleanup
	cleanup Cleanup

	// sources are the signals read during the last run.
	sources   []*signalBase
	sourcesMu sync.Mutex

	owner *Owner

	// pending is set between MarkDirty and the next run.
	pending atomic.Bool

	disposed atomic.Bool

	// runs counts completed runs.
	runs atomic.Uint64

	txName string
}

// MarkDirty schedules the effect on its owner. Implements Listener.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}

	// Schedule once per dirty period.
	if e.pending.CompareAndSwap(false, true) && e.owner != nil {
		e.owner.scheduleEffect(e)
	}
}

// ID returns the unique identifier for this effect. Implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// Runs returns how many times the effect body has run.
func (e *Effect) Runs() uint64 {
	return e.runs.Load()
}

// Name returns the name set with EffectTxName.
func (e *Effect) Name() string {
	return e.txName
}

// IsDisposed reports whether the effect has been disposed.
func (e *Effect) IsDisposed() bool {
	return e.disposed.Load()
}

// run cleans up the previous run, drops old subscriptions and runs the
// body with e as the current listener so its reads are re-tracked.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.pending.Store(false)

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.dropSources()

	old := setCurrentListener(e)
	defer setCurrentListener(old)

	e.cleanup = e.fn()
	e.runs.Add(1)
}

func (e *Effect) addSource(source *signalBase) {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

func (e *Effect) dropSources() {
	e.sourcesMu.Lock()
	defer e.sourcesMu.Unlock()

	for _, source := range e.sources {
		source.unsubscribe(e)
	}
	e.sources = e.sources[:0]
}

// dispose runs the last cleanup and unsubscribes from all sources.
func (e *Effect) dispose() {
	if e.disposed.Swap(true) {
		return
	}

	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}

	e.dropSources()
}

// Dispose disposes the effect ahead of its owner.
func (e *Effect) Dispose() {
	e.dispose()
}

// EffectOption configures an Effect.
type EffectOption interface {
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// EffectTxName names the effect for logs and traces.
func EffectTxName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.txName = name
	})
}

// CreateEffect creates an effect owned by the current owner and runs it
// immediately.
//
//	CreateEffect(func() Cleanup {
//	    fmt.Println("query is", query.Get())
//	    return func() { fmt.Println("cleanup") }
//	})
func CreateEffect(fn func() Cleanup, opts ...EffectOption) *Effect {
	owner := getCurrentOwner()

	e := &Effect{
		id:    nextID(),
		fn:    fn,
		owner: owner,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if owner != nil {
		owner.registerEffect(e)
	}

	e.run()
	return e
}

// OnUnmount registers fn to run when the current owner is disposed.
func OnUnmount(fn func()) {
	if owner := getCurrentOwner(); owner != nil {
		owner.OnCleanup(fn)
	}
}
