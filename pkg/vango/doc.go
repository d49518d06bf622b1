// Package vango provides the reactive core used by debounced values.
//
// Dependencies are tracked at runtime: reading a Signal inside an Effect
// subscribes that Effect, and writing the Signal schedules the Effect to
// re-run on its Owner.
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	query := NewSignal("")
//	value := query.Get()  // Read (subscribes current listener)
//	query.Set("go")       // Write (notifies subscribers)
//	query.Update(func(s string) string { return s + "lang" })
//
// Effect runs side effects when dependencies change and cleans up before
// every re-run and on disposal:
//
//	CreateEffect(func() Cleanup {
//	    q := query.Get()
//	    return Timeout(300*time.Millisecond, func() {
//	        search(q)
//	    })
//	})
//
// Owner scopes effects and cleanups. Disposing an Owner disposes its
// children, runs effect cleanups and then registered OnCleanup functions.
//
// # Scheduling
//
// Effects re-run when their Owner's RunPendingEffects is called, which the
// event loop does after each dispatched callback. Timer callbacks created
// by Timeout never touch state directly: they Dispatch onto the loop.
//
// # Thread Safety
//
// Signals are safe for concurrent reads and writes. The tracking context
// is per-goroutine, so code that runs on other goroutines must establish
// its owner and runtime context explicitly via WithOwner and WithCtx.
package vango
