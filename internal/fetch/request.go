// Package fetch models the lifecycle of an asynchronous data request:
// pending, then exactly one of fulfilled or rejected. A request that has
// been torn down discards any result that arrives later.
package fetch

import (
	"context"
	"fmt"
	"sync"
)

// State is the lifecycle state of a request.
type State string

const (
	StatePending   State = "pending"
	StateFulfilled State = "fulfilled"
	StateRejected  State = "rejected"
)

// Snapshot is the observable state of a request. Data is only meaningful
// when State is fulfilled and Error only when it is rejected.
type Snapshot[T any] struct {
	State State  `json:"state"`
	Data  T      `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// Func performs the fetch. It must honour ctx cancellation.
type Func[T any] func(ctx context.Context) (T, error)

// Request is a single in-flight fetch.
type Request[T any] struct {
	resource string
	fallback string

	mu     sync.Mutex
	snap   Snapshot[T]
	closed bool
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches fn on its own goroutine and returns the pending request.
// The fetch runs on a context detached from parent's cancellation (values
// such as the trace span are kept), so it outlives the HTTP request that
// triggered it; only Close cancels it. fallback is the rejection message
// used when the error carries none.
func Start[T any](parent context.Context, resource, fallback string, fn Func[T]) *Request[T] {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	r := &Request[T]{
		resource: resource,
		fallback: fallback,
		snap:     Snapshot[T]{State: StatePending},
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go r.run(ctx, fn)
	return r
}

func (r *Request[T]) run(ctx context.Context, fn Func[T]) {
	defer close(r.done)
	defer r.cancel()

	var (
		data T
		err  error
	)
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("fetch %s panicked: %v", r.resource, rec)
			}
		}()
		data, err = fn(ctx)
	}()

	r.settle(data, err)
}

func (r *Request[T]) settle(data T, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		fetchSettled.WithLabelValues(r.resource, "discarded").Inc()
		return
	}
	if err != nil {
		r.snap = Snapshot[T]{State: StateRejected, Error: Message(err, r.fallback)}
	} else {
		r.snap = Snapshot[T]{State: StateFulfilled, Data: data}
	}
	fetchSettled.WithLabelValues(r.resource, string(r.snap.State)).Inc()
}

// Snapshot returns the current state.
func (r *Request[T]) Snapshot() Snapshot[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Wait blocks until the fetch goroutine finishes or ctx is done, then
// returns the snapshot at that moment, which may still be pending.
func (r *Request[T]) Wait(ctx context.Context) Snapshot[T] {
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	return r.Snapshot()
}

// Done is closed once the fetch goroutine has returned.
func (r *Request[T]) Done() <-chan struct{} {
	return r.done
}

// Close tears the request down: the fetch context is cancelled and any
// result arriving afterwards is discarded. The snapshot is left as it was.
func (r *Request[T]) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
}

// Closed reports whether Close has been called.
func (r *Request[T]) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Message returns the human-readable rejection message for err, falling
// back to fallback when err has no text of its own.
func Message(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
