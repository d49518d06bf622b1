package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFakeFiresAtDeadline(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var fired atomic.Int32
	clk.AfterFunc(300*time.Millisecond, func() { fired.Add(1) })

	clk.Advance(299 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("timer fired before its deadline")
	}

	clk.Advance(time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}

	clk.Advance(time.Second)
	if fired.Load() != 1 {
		t.Error("timer fired twice")
	}
}

func TestFakeStop(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var fired atomic.Bool
	timer := clk.AfterFunc(10*time.Millisecond, func() { fired.Store(true) })

	if !timer.Stop() {
		t.Error("Stop() on pending timer should return true")
	}
	if timer.Stop() {
		t.Error("second Stop() should return false")
	}

	clk.Advance(time.Second)
	if fired.Load() {
		t.Error("stopped timer fired")
	}
	if clk.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", clk.Pending())
	}
}

func TestFakeZeroDelayIsNotSynchronous(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var fired atomic.Bool
	clk.AfterFunc(0, func() { fired.Store(true) })
	if fired.Load() {
		t.Fatal("zero-delay timer fired inside AfterFunc")
	}

	clk.Advance(0)
	if !fired.Load() {
		t.Error("zero-delay timer did not fire on Advance(0)")
	}
}

func TestFakeOrdersByDeadline(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var order []int
	clk.AfterFunc(30*time.Millisecond, func() { order = append(order, 3) })
	clk.AfterFunc(10*time.Millisecond, func() { order = append(order, 1) })
	clk.AfterFunc(20*time.Millisecond, func() { order = append(order, 2) })

	clk.Advance(time.Second)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestFakeNowAdvancesToTimerDeadline(t *testing.T) {
	start := time.Unix(0, 0)
	clk := NewFake(start)

	var seen time.Time
	clk.AfterFunc(40*time.Millisecond, func() { seen = clk.Now() })
	clk.Advance(100 * time.Millisecond)

	if got := seen.Sub(start); got != 40*time.Millisecond {
		t.Errorf("Now() inside callback = +%v, want +40ms", got)
	}
	if got := clk.Now().Sub(start); got != 100*time.Millisecond {
		t.Errorf("Now() after Advance = +%v, want +100ms", got)
	}
}

func TestFakeCallbackCanReschedule(t *testing.T) {
	clk := NewFake(time.Unix(0, 0))

	var count atomic.Int32
	var tick func()
	tick = func() {
		if count.Add(1) < 3 {
			clk.AfterFunc(10*time.Millisecond, tick)
		}
	}
	clk.AfterFunc(10*time.Millisecond, tick)

	clk.Advance(25 * time.Millisecond)
	if count.Load() != 2 {
		t.Errorf("count = %d, want 2", count.Load())
	}
	clk.Advance(5 * time.Millisecond)
	if count.Load() != 3 {
		t.Errorf("count = %d, want 3", count.Load())
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(-time.Second, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer with negative delay never fired")
	}
}
