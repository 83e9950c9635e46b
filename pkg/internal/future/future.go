// Package future provides single assignment completion primitives.
package future

import (
	"sync"
)

// Future holds a value of type T that is set at most once and
// the callbacks waiting for it.
//
// Callbacks run in registration order on the goroutine that completes
// the Future, outside the Future's lock, so a callback may register
// further callbacks. Callbacks registered after completion run immediately
// on the registering goroutine.
type Future[T any] struct {
	mu        sync.Mutex // Mutex for thread safety
	value     T          // The value that completes the Future
	callbacks []func(T)  // Pending callbacks, nil after completion
	completed bool
}

// New returns a new Future.
func New[T any]() *Future[T] {
	return &Future[T]{}
}

// ThenAccept registers a callback to be called when the Future is completed.
func (f *Future[T]) ThenAccept(callback func(T)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, callback)
		f.mu.Unlock()
		return
	}
	value := f.value
	f.mu.Unlock()
	callback(value)
}

// Complete sets the value and calls the registered callbacks.
// Only the first call has an effect, it reports whether this call completed the Future.
func (f *Future[T]) Complete(value T) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.value = value
	f.completed = true
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(value)
	}
	return true
}

// Completed reports whether Complete was called.
func (f *Future[T]) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Signal is a Future without a value.
type Signal struct{ f Future[struct{}] }

// NewSignal returns a pending Signal.
func NewSignal() *Signal { return &Signal{} }

// ThenRun registers fn to run once the Signal is completed,
// or runs it immediately if it already is.
func (s *Signal) ThenRun(fn func()) {
	s.f.ThenAccept(func(struct{}) { fn() })
}

// Complete completes the Signal and runs the pending functions in order.
// It reports whether this call completed the Signal.
func (s *Signal) Complete() bool { return s.f.Complete(struct{}{}) }

// Done reports whether the Signal is completed.
func (s *Signal) Done() bool { return s.f.Completed() }
