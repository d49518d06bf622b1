// Package clock provides the timer facility used by reactive helpers.
//
// Production code uses Real, which delegates to the time package. Tests use
// Fake, whose time only moves when Advance is called, so debounce windows
// can be stepped through deterministically:
//
//	clk := clock.NewFake(time.Unix(0, 0))
//	clk.AfterFunc(300*time.Millisecond, fire)
//	clk.Advance(299 * time.Millisecond) // nothing
//	clk.Advance(time.Millisecond)       // fire runs
package clock

import "time"

// Clock schedules deferred callbacks and reports the current time.
// Implementations must be safe for concurrent use.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls fn in its own goroutine (Real) or inside Advance
	// (Fake) once d has elapsed. A non-positive d fires at the next
	// opportunity, never synchronously inside AfterFunc.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a handle to a callback scheduled with AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing.
	// It returns false if the callback already fired or was stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, fn)
}
