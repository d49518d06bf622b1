package vango

import (
	"context"

	"github.com/vango-dev/debounce/pkg/clock"
)

// Ctx is the runtime context available to effects and dispatched callbacks.
type Ctx interface {
	// Dispatch queues fn to run on the event loop. It is safe to call from
	// any goroutine and is the only way timer callbacks reach signals.
	Dispatch(fn func())

	// StdContext returns the context carrying cancellation and trace
	// propagation for work started from the loop.
	StdContext() context.Context
}

// ClockProvider is implemented by contexts that supply their own timer
// facility. Timeout falls back to clock.Real for contexts that do not.
type ClockProvider interface {
	Clock() clock.Clock
}

// Poster is implemented by contexts that can queue a callback without
// ever discarding it. Timeout posts its callback when the context is a
// Poster, since a dropped timer callback is never re-armed.
type Poster interface {
	Post(fn func())
}

// UseCtx returns the runtime context of the current goroutine, or nil
// outside a dispatched callback, effect or render.
func UseCtx() Ctx {
	return getCurrentCtx()
}

// ClockOf returns the clock supplied by c, or the real clock.
func ClockOf(c Ctx) clock.Clock {
	if p, ok := c.(ClockProvider); ok {
		if clk := p.Clock(); clk != nil {
			return clk
		}
	}
	return clock.Real()
}

// postFunc returns c.Post when c is a Poster and c.Dispatch otherwise.
func postFunc(c Ctx) func(func()) {
	if p, ok := c.(Poster); ok {
		return p.Post
	}
	return c.Dispatch
}
