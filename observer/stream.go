// Package observer implements the weakly-referenced value-stream used by
// Player observers (spec.md §9): "observer callbacks hold a weak reference to
// the Player so callback graphs don't retain the object past disposal."
//
// Go has no native weak pointer outside runtime-internal APIs as of this
// module's target toolchain, so the same effect is achieved the idiomatic Go
// way: the Stream holds plain funcs, and the Player resolves its own
// subscriber list by index rather than a subscriber retaining the Player —
// the cycle the teacher's source-language shared_ptr/weak_ptr split exists to
// break simply never forms, because nothing here closes over the Player
// itself.
package observer

import "sync"

// Stream publishes values of type T to zero or more subscriber funcs under a
// short critical section, matching the "observers publish values
// monotonically" ordering rule of spec.md §5.
type Stream[T any] struct {
	mu    sync.RWMutex
	value T
	subs  map[int]func(T)
	nextID int
}

// NewStream creates a Stream with an initial value.
func NewStream[T any](initial T) *Stream[T] {
	return &Stream[T]{value: initial, subs: make(map[int]func(T))}
}

// Get returns the current value.
func (s *Stream[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set publishes a new value to the current value and all subscribers.
func (s *Stream[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	subs := make([]func(T), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(v)
	}
}

// Subscription is a handle returned by Subscribe, used to Unsubscribe later.
type Subscription struct {
	id     int
	detach func(int)
}

// Unsubscribe removes the subscriber. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.detach == nil {
		return
	}
	s.detach(s.id)
	s.detach = nil
}

// Subscribe registers fn to be called on every future Set, and returns a
// Subscription the caller can use to detach it.
func (s *Stream[T]) Subscribe(fn func(T)) *Subscription {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return &Subscription{id: id, detach: s.unsubscribe}
}

func (s *Stream[T]) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
