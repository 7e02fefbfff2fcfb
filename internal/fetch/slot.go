package fetch

import (
	"context"
	"sync"
)

// Slot owns the current request for one concern of a session, such as its
// product list or the product shown on the detail page. Starting a new
// request for a different key tears the previous one down.
type Slot[T any] struct {
	base     context.Context
	resource string
	fallback string

	mu     sync.Mutex
	req    *Request[T]
	key    string
	gen    uint64
	closed bool
}

// NewSlot returns an empty slot. base supplies the values (logger, trace)
// inherited by every request; its cancellation is not.
func NewSlot[T any](base context.Context, resource, fallback string) *Slot[T] {
	return &Slot[T]{base: base, resource: resource, fallback: fallback}
}

// Ensure returns the current request for key, starting fn if there is none
// or if the current request belongs to another key. The returned generation
// increases every time a new request starts.
func (s *Slot[T]) Ensure(key string, fn Func[T]) (*Request[T], uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedRequest[T](s.resource), s.gen
	}
	if s.req != nil && s.key == key {
		return s.req, s.gen
	}
	return s.startLocked(key, fn), s.gen
}

// Reload tears down the current request and starts a fresh one.
func (s *Slot[T]) Reload(key string, fn Func[T]) (*Request[T], uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return closedRequest[T](s.resource), s.gen
	}
	return s.startLocked(key, fn), s.gen
}

func (s *Slot[T]) startLocked(key string, fn Func[T]) *Request[T] {
	if s.req != nil {
		s.req.Close()
	}
	s.gen++
	s.key = key
	s.req = Start(s.base, s.resource, s.fallback, fn)
	return s.req
}

// Current returns the active request (nil if none) and its generation.
func (s *Slot[T]) Current() (*Request[T], uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req, s.gen
}

// Close tears down the current request. Later Ensure and Reload calls
// return an already-closed pending request.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.req != nil {
		s.req.Close()
	}
}

func closedRequest[T any](resource string) *Request[T] {
	done := make(chan struct{})
	close(done)
	return &Request[T]{
		resource: resource,
		snap:     Snapshot[T]{State: StatePending},
		closed:   true,
		cancel:   func() {},
		done:     done,
	}
}
