package vango

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/debounce/pkg/clock"
)

// testListener counts MarkDirty calls.
type testListener struct {
	id    uint64
	dirty atomic.Int32
}

func newTestListener() *testListener {
	return &testListener{id: nextID()}
}

func (l *testListener) MarkDirty() { l.dirty.Add(1) }
func (l *testListener) ID() uint64 { return l.id }

func (l *testListener) getDirtyCount() int {
	return int(l.dirty.Load())
}

// mockCtx queues dispatched callbacks until runDispatched is called, like a
// loop that has not had its turn yet.
type mockCtx struct {
	mu         sync.Mutex
	dispatched []func()
	clk        clock.Clock
	stdCtx     context.Context
}

func newMockCtx(clk clock.Clock) *mockCtx {
	return &mockCtx{
		clk:    clk,
		stdCtx: context.Background(),
	}
}

func (m *mockCtx) Dispatch(fn func()) {
	m.mu.Lock()
	m.dispatched = append(m.dispatched, fn)
	m.mu.Unlock()
}

func (m *mockCtx) StdContext() context.Context {
	return m.stdCtx
}

func (m *mockCtx) Clock() clock.Clock {
	return m.clk
}

// runDispatched runs queued callbacks under WithCtx(m) and returns how many ran.
func (m *mockCtx) runDispatched() int {
	m.mu.Lock()
	fns := m.dispatched
	m.dispatched = nil
	m.mu.Unlock()

	WithCtx(m, func() {
		for _, fn := range fns {
			fn()
		}
	})
	return len(fns)
}

func (m *mockCtx) queued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.dispatched)
}
