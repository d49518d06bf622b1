package vango

import (
	"reflect"
	"sync"
)

// signalBase holds the subscriber list shared by all signal types.
type signalBase struct {
	id uint64

	subs  []Listener
	subMu sync.RWMutex
}

// subscribe adds l unless a listener with the same ID is present.
func (s *signalBase) subscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for _, existing := range s.subs {
		if existing.ID() == lid {
			return
		}
	}
	s.subs = append(s.subs, l)
}

// unsubscribe removes l by ID. Order of the remaining subscribers is not kept.
func (s *signalBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()

	lid := l.ID()
	for i, existing := range s.subs {
		if existing.ID() == lid {
			last := len(s.subs) - 1
			s.subs[i] = s.subs[last]
			s.subs[last] = nil
			s.subs = s.subs[:last]
			return
		}
	}
}

// subscriberCount is used by tests to check that disposal unsubscribes.
func (s *signalBase) subscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subs)
}

// notifySubscribers marks every subscriber dirty, or queues them when a
// batch is open on this goroutine. The list is copied so no lock is held
// while listeners run.
func (s *signalBase) notifySubscribers() {
	s.subMu.RLock()
	subs := make([]Listener, len(s.subs))
	copy(subs, s.subs)
	s.subMu.RUnlock()

	if getBatchDepth() > 0 {
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
		return
	}

	for _, sub := range subs {
		sub.MarkDirty()
	}
}

// Signal is a reactive value container.
// Get inside a tracked context (an effect body, or WithListener)
// subscribes the current listener; Set and Update notify subscribers when
// the value actually changes.
type Signal[T any] struct {
	base signalBase

	value T
	mu    sync.RWMutex

	// version counts changes so Update can detect a concurrent write.
	version uint64

	// equal decides whether a write is a change. nil uses defaultEquals.
	equal func(T, T) bool
}

// NewSignal creates a signal holding initial.
func NewSignal[T any](initial T) *Signal[T] {
	return &Signal[T]{
		base:  signalBase{id: nextID()},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener.
func (s *Signal[T]) Get() T {
	s.mu.RLock()
	value := s.value
	s.mu.RUnlock()

	// Subscribe after releasing the value lock; listeners may read back.
	if listener := getCurrentListener(); listener != nil {
		s.base.subscribe(listener)
		if e, ok := listener.(*Effect); ok {
			e.addSource(&s.base)
		}
	}

	return value
}

// Peek returns the current value without subscribing.
func (s *Signal[T]) Peek() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies subscribers if it changed.
// It reports whether the value changed.
func (s *Signal[T]) Set(value T) bool {
	s.mu.Lock()
	changed := !s.equals(s.value, value)
	if changed {
		s.value = value
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.base.notifySubscribers()
	}
	return changed
}

// Update stores fn applied to the current value and reports whether the
// value changed. fn runs without the lock held, so it may read the signal;
// if another write lands while fn runs, fn is called again with the newer
// value.
func (s *Signal[T]) Update(fn func(T) T) bool {
	for {
		s.mu.RLock()
		old, version := s.value, s.version
		s.mu.RUnlock()

		next := fn(old)

		s.mu.Lock()
		if s.version != version {
			s.mu.Unlock()
			continue
		}
		changed := !s.equals(old, next)
		if changed {
			s.value = next
			s.version++
		}
		s.mu.Unlock()

		if changed {
			s.base.notifySubscribers()
		}
		return changed
	}
}

// WithEquals sets a custom equality function and returns the signal.
func (s *Signal[T]) WithEquals(fn func(T, T) bool) *Signal[T] {
	s.mu.Lock()
	s.equal = fn
	s.mu.Unlock()
	return s
}

// ID returns the unique identifier for this signal.
func (s *Signal[T]) ID() uint64 {
	return s.base.id
}

// equals is called with s.mu held.
func (s *Signal[T]) equals(a, b T) bool {
	if s.equal != nil {
		return s.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals compares comparable dynamic values with == and falls back
// to reflect.DeepEqual for slices, maps and structs holding them.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	if reflect.TypeOf(av).Comparable() && reflect.TypeOf(bv).Comparable() {
		// Interfaces holding uncomparable values still panic on ==.
		if ok, eq := safeCompare(av, bv); ok {
			return eq
		}
	}
	return reflect.DeepEqual(a, b)
}

func safeCompare(a, b any) (ok, eq bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return true, a == b
}
