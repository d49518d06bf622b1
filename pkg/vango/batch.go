package vango

import "log/slog"

// DebugMode makes TxNamed log transaction boundaries through slog.Default.
// Set it at startup; it is not synchronized.
var DebugMode bool

// Batch groups signal writes so each affected listener is notified once,
// when the outermost batch on this goroutine completes.
//
//	Batch(func() {
//	    query.Set("go")
//	    page.Set(1)
//	})
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			processPendingUpdates()
		}
	}()

	fn()
}

// processPendingUpdates notifies each queued listener once, in first-queued
// order.
func processPendingUpdates() {
	updates := drainPendingUpdates()
	if len(updates) == 0 {
		return
	}

	seen := make(map[uint64]struct{}, len(updates))
	for _, l := range updates {
		id := l.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		l.MarkDirty()
	}
}

// Untracked runs fn without subscribing the current listener to reads.
// For a single read prefer Signal.Peek.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}

// TxNamed runs fn as a named batch. In DebugMode the boundaries are logged.
func TxNamed(name string, fn func()) {
	if DebugMode {
		slog.Debug("tx start", "tx", name)
		defer slog.Debug("tx end", "tx", name)
	}
	Batch(fn)
}
