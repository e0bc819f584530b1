// Package observer provides a generic thread-safe subject with explicit
// subscription handles.
//
// Listener IDs are allocated from a monotonically increasing counter and never
// reused, so a stale Subscription can never remove a listener registered after
// it. Unsubscribe is O(1) and safe to call any number of times.
package observer

import "sync"

// Subject fans a value out to every listener registered at publish time,
// in registration order.
type Subject[T any] struct {
	mu        sync.Mutex
	next      uint64
	order     []uint64
	listeners map[uint64]func(T)
	onPanic   func(recovered any)
}

// Subscription is the handle returned by Subscribe. The zero value is valid
// and unsubscribes nothing.
type Subscription struct {
	id     uint64
	remove func(id uint64)
}

// Unsubscribe removes the listener. Calling it more than once is harmless.
func (s Subscription) Unsubscribe() {
	if s.remove == nil {
		return
	}
	s.remove(s.id)
}

// New creates an empty subject.
func New[T any]() *Subject[T] {
	return &Subject[T]{listeners: make(map[uint64]func(T))}
}

// OnPanic sets the function called when a listener panics. Without one the
// panic is swallowed so later listeners still run.
func (s *Subject[T]) OnPanic(fn func(recovered any)) {
	s.mu.Lock()
	s.onPanic = fn
	s.mu.Unlock()
}

// Subscribe registers fn and returns its handle.
func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listeners == nil {
		s.listeners = make(map[uint64]func(T))
	}

	s.next++
	id := s.next
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.compactLocked()

	return Subscription{id: id, remove: s.remove}
}

// Publish delivers v to a snapshot of the current listeners and returns how
// many were invoked.
func (s *Subject[T]) Publish(v T) int {
	s.mu.Lock()
	s.compactLocked()
	fns := make([]func(T), 0, len(s.listeners))
	for _, id := range s.order {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	onPanic := s.onPanic
	s.mu.Unlock()

	for _, fn := range fns {
		s.invoke(fn, v, onPanic)
	}
	return len(fns)
}

// Len returns the number of registered listeners.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Clear removes every listener. Outstanding handles become no-ops.
func (s *Subject[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[uint64]func(T))
	s.order = nil
}

func (s *Subject[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, id)
}

// compactLocked drops removed IDs from the order slice once they make up
// more than half of it.
func (s *Subject[T]) compactLocked() {
	if len(s.order) < 8 || len(s.listeners)*2 > len(s.order) {
		return
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.listeners[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

func (s *Subject[T]) invoke(fn func(T), v T, onPanic func(any)) {
	defer func() {
		if r := recover(); r != nil && onPanic != nil {
			onPanic(r)
		}
	}()
	fn(v)
}
