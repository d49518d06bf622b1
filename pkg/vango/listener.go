package vango

import "sync/atomic"

// Listener is anything that can be notified when a dependency changes.
// Effects implement it; hosts may implement it to re-render on change.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies changed.
	MarkDirty()

	// ID returns a unique identifier used for deduplication in batches.
	ID() uint64
}

// Cleanup is returned by effects and helpers to release resources.
// It is called before the effect re-runs and when the effect is disposed.
type Cleanup func()

// ListenerFunc adapts a plain function into a Listener.
type ListenerFunc struct {
	id uint64
	fn func()
}

// NewListener wraps fn as a Listener with a fresh ID.
func NewListener(fn func()) *ListenerFunc {
	return &ListenerFunc{id: nextID(), fn: fn}
}

// MarkDirty calls the wrapped function.
func (l *ListenerFunc) MarkDirty() { l.fn() }

// ID returns the listener ID.
func (l *ListenerFunc) ID() uint64 { return l.id }

var idCounter atomic.Uint64

// nextID returns the next unique ID for a reactive primitive.
func nextID() uint64 {
	return idCounter.Add(1)
}
