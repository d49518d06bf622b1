package vango

import (
	"runtime"
	"sync"
)

// TrackingContext holds the reactive state for a goroutine.
type TrackingContext struct {
	// currentOwner owns newly created effects.
	currentOwner *Owner

	// currentListener is subscribed by signal reads. nil disables tracking.
	currentListener Listener

	// batchDepth counts nested Batch calls.
	batchDepth int

	// pendingUpdates collects listeners notified during a batch.
	pendingUpdates []Listener

	// currentCtx is the runtime context returned by UseCtx.
	currentCtx Ctx

	// rendering is set while a render started by Owner.StartRender is open.
	rendering bool
}

var trackingContexts sync.Map

// getGoroutineID parses the current goroutine ID from the stack header
// "goroutine <id> [...]".
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// getTrackingContext returns the context for the current goroutine,
// creating it on first use.
func getTrackingContext() *TrackingContext {
	gid := getGoroutineID()
	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*TrackingContext)
	}

	ctx := &TrackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

func getCurrentListener() Listener {
	return getTrackingContext().currentListener
}

func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

func getCurrentOwner() *Owner {
	return getTrackingContext().currentOwner
}

func setCurrentOwner(o *Owner) *Owner {
	ctx := getTrackingContext()
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

func getBatchDepth() int {
	return getTrackingContext().batchDepth
}

func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth reports whether the outermost batch just closed.
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

func getCurrentCtx() Ctx {
	return getTrackingContext().currentCtx
}

func setCurrentCtx(c Ctx) Ctx {
	ctx := getTrackingContext()
	old := ctx.currentCtx
	ctx.currentCtx = c
	return old
}

func setRendering(on bool) bool {
	ctx := getTrackingContext()
	old := ctx.rendering
	ctx.rendering = on
	return old
}

// CurrentOwner returns the owner for the current goroutine, or nil.
func CurrentOwner() *Owner {
	return getCurrentOwner()
}

// InBatch reports whether a Batch is open on the current goroutine.
func InBatch() bool {
	return getBatchDepth() > 0
}

// IsRendering reports whether the current goroutine is inside a render
// started with Owner.StartRender.
func IsRendering() bool {
	return getTrackingContext().rendering
}

// WithOwner runs fn with owner as the current owner.
// Goroutines that create effects for a component use it to attach them.
//
//	go func() {
//	    WithOwner(parentOwner, func() {
//	        CreateEffect(...)
//	    })
//	}()
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// WithListener runs fn with l subscribed to every signal it reads.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}

// WithCtx runs fn with c as the runtime context returned by UseCtx.
// The event loop uses it around every dispatched callback.
func WithCtx(c Ctx, fn func()) {
	old := setCurrentCtx(c)
	defer setCurrentCtx(old)
	fn()
}

// ReleaseGoroutine drops the tracking context of the calling goroutine.
// Long-lived loops call it on exit.
func ReleaseGoroutine() {
	trackingContexts.Delete(getGoroutineID())
}
