package vango

import (
	"sync/atomic"
	"time"
)

// Timeout runs fn on the event loop once d has elapsed and returns a
// Cleanup that cancels it. A negative d is treated as zero; zero fires on
// the next loop turn, never synchronously.
//
// MUST be called with a runtime context (inside an effect run on the loop,
// or under WithCtx), and the Cleanup SHOULD be returned from the effect:
//
//	CreateEffect(func() Cleanup {
//	    q := query.Get()
//	    return Timeout(300*time.Millisecond, func() {
//	        settled.Set(q)
//	    })
//	})
//
// Once the Cleanup has run, fn never runs, even if the timer already fired
// and its callback is queued on the loop. If ctx is a Poster the callback is
// posted rather than dispatched, so a full queue cannot lose it.
func Timeout(d time.Duration, fn func(), opts ...TimeoutOption) Cleanup {
	ctx := UseCtx()
	if ctx == nil {
		panic(ErrEffectContext)
	}

	var cfg timeoutConfig
	for _, opt := range opts {
		opt.applyTimeout(&cfg)
	}

	if d < 0 {
		d = 0
	}

	post := postFunc(ctx)
	var cancelled atomic.Bool
	timer := ClockOf(ctx).AfterFunc(d, func() {
		if cancelled.Load() {
			return
		}
		post(func() {
			// Checked again on the loop: Cleanup runs there too, so this
			// observes any cancel issued before the callback was dequeued.
			if cancelled.Load() {
				return
			}
			TxNamed(cfg.txName(), fn)
		})
	})

	return func() {
		cancelled.Store(true)
		timer.Stop()
	}
}

type timeoutConfig struct {
	name string
}

func (c *timeoutConfig) txName() string {
	if c.name != "" {
		return "Timeout:" + c.name
	}
	return "Timeout"
}

// TimeoutOption configures Timeout.
type TimeoutOption interface {
	applyTimeout(cfg *timeoutConfig)
}

type timeoutOptionFunc func(*timeoutConfig)

func (f timeoutOptionFunc) applyTimeout(cfg *timeoutConfig) { f(cfg) }

// TimeoutTxName names the timeout's transaction as Timeout:<name>.
func TimeoutTxName(name string) TimeoutOption {
	return timeoutOptionFunc(func(cfg *timeoutConfig) {
		cfg.name = name
	})
}
