package loop

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vango-dev/debounce/pkg/clock"
	"github.com/vango-dev/debounce/pkg/vango"
)

// syncBuffer is a bytes.Buffer safe for the logger and the test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func TestDispatchRunsInOrder(t *testing.T) {
	l := New()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.Dispatch(func() { got = append(got, i) })
	}

	if n := l.RunPending(); n != 5 {
		t.Fatalf("RunPending() = %d, want 5", n)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("callbacks ran out of order: %v", got)
		}
	}
}

func TestExecuteSetsContextAndOwner(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(WithClock(clk))

	var ctx vango.Ctx
	var owner *vango.Owner
	l.Dispatch(func() {
		ctx = vango.UseCtx()
		owner = vango.CurrentOwner()
	})
	l.RunPending()

	if ctx != l {
		t.Error("UseCtx() inside a dispatched callback should return the loop")
	}
	if owner != l.Owner() {
		t.Error("dispatched callbacks should run with the root owner")
	}
	if vango.ClockOf(l) != clk {
		t.Error("ClockOf(loop) should return the configured clock")
	}
	if vango.UseCtx() != nil {
		t.Error("context should be restored after the callback")
	}
}

func TestExecuteFlushesPendingEffects(t *testing.T) {
	l := New()

	count := vango.NewSignal(0)
	runs := 0
	l.Dispatch(func() {
		vango.CreateEffect(func() vango.Cleanup {
			_ = count.Get()
			runs++
			return nil
		})
	})
	l.Dispatch(func() { count.Set(1) })
	l.RunPending()

	if runs != 2 {
		t.Errorf("effect runs = %d, want 2", runs)
	}
}

func TestPanicIsRecoveredAndLogged(t *testing.T) {
	logger, buf := newTestLogger()
	l := New(WithLogger(logger))

	ran := false
	l.Dispatch(func() { panic("boom") })
	l.Dispatch(func() { ran = true })
	l.RunPending()

	if !ran {
		t.Error("loop should keep processing after a panic")
	}
	if !strings.Contains(buf.String(), "dispatch panic") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestDispatchQueueFull(t *testing.T) {
	logger, buf := newTestLogger()
	l := New(WithQueueSize(1), WithLogger(logger))

	l.Dispatch(func() {})
	l.Dispatch(func() {})

	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
	if !strings.Contains(buf.String(), "dispatch queue full") {
		t.Errorf("drop not logged: %s", buf.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()

	done := make(chan struct{})
	l.Dispatch(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatched callback never ran")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if !l.Owner().IsDisposed() {
		t.Error("root owner should be disposed when Run exits")
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run on closed loop = %v, want ErrClosed", err)
	}
}

func TestCloseDiscardsDispatch(t *testing.T) {
	l := New()
	l.Close()
	l.Close()

	l.Dispatch(func() { t.Error("callback dispatched after Close ran") })
	if n := l.RunPending(); n != 0 {
		t.Errorf("RunPending() = %d after Close, want 0", n)
	}
}

func TestTimeoutThroughLoop(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(WithClock(clk))

	fired := false
	l.Dispatch(func() {
		vango.Timeout(50*time.Millisecond, func() { fired = true })
	})
	l.RunPending()

	clk.Advance(50 * time.Millisecond)
	if fired {
		t.Fatal("timeout applied before the loop turn")
	}
	l.RunPending()
	if !fired {
		t.Error("timeout did not apply on the loop")
	}
}

func TestPostOverflowsInsteadOfDropping(t *testing.T) {
	l := New(WithQueueSize(1))

	var got []int
	l.Dispatch(func() { got = append(got, 1) })
	l.Post(func() { got = append(got, 2) })
	l.Post(func() { got = append(got, 3) })

	if l.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", l.Dropped())
	}
	if l.Overflowed() != 2 {
		t.Errorf("Overflowed() = %d, want 2", l.Overflowed())
	}
	if n := l.RunPending(); n != 3 {
		t.Fatalf("RunPending() = %d, want 3", n)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("ran %v, want [1 2 3]", got)
	}
	if l.Overflowed() != 0 {
		t.Error("overflow should be empty after RunPending")
	}
}

func TestTimeoutSurvivesFullQueue(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	l := New(WithClock(clk), WithQueueSize(1))

	fired := false
	l.Dispatch(func() {
		vango.Timeout(50*time.Millisecond, func() { fired = true })
	})
	l.RunPending()

	l.Dispatch(func() {})
	clk.Advance(50 * time.Millisecond)
	l.RunPending()

	if !fired {
		t.Fatal("timer callback was lost on a full queue")
	}
	if l.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", l.Dropped())
	}
}

func TestOverflowRunsUnderRun(t *testing.T) {
	l := New(WithQueueSize(1))
	block := make(chan struct{})
	l.Dispatch(func() { <-block })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	done := make(chan struct{})
	// The first callback may still be queued, so these can land in overflow.
	l.Post(func() {})
	l.Post(func() { close(done) })
	close(block)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("overflowed callback never ran under Run")
	}
}

func TestCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var ctxInCall vango.Ctx
	if err := l.Call(func() { ctxInCall = vango.UseCtx() }); err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if ctxInCall != l {
		t.Error("Call should run fn on the loop")
	}
}

func TestCallReportsPanic(t *testing.T) {
	logger, _ := newTestLogger()
	l := New(WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- l.Call(func() { panic("boom") }) }()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrCallPanicked) {
			t.Errorf("Call() = %v, want ErrCallPanicked", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Call did not return after fn panicked")
	}
	if err := l.Call(func() {}); err != nil {
		t.Errorf("Call after a panic = %v, want nil", err)
	}
}

func TestCallWithFullQueue(t *testing.T) {
	l := New(WithQueueSize(1))
	l.Dispatch(func() {})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ran := false
	errCh := make(chan error, 1)
	go func() { errCh <- l.Call(func() { ran = true }) }()
	go l.Run(ctx)

	select {
	case err := <-errCh:
		if err != nil || !ran {
			t.Errorf("Call() = %v, ran = %v", err, ran)
		}
	case <-time.After(time.Second):
		t.Fatal("Call hung on a full queue")
	}
}

func TestCallOnClosedLoop(t *testing.T) {
	l := New()
	l.Close()

	if err := l.Call(func() { t.Error("fn ran on a closed loop") }); !errors.Is(err, ErrClosed) {
		t.Errorf("Call() = %v, want ErrClosed", err)
	}
}
