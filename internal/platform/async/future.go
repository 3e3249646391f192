// Package async runs blocking operations in the background and hands the
// caller a Future to collect the result.
package async

import (
	"context"
	"fmt"
)

// Future is the deferred result of an operation started with Go.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	val    T
	err    error
}

// Go starts fn in a new goroutine. fn's context is derived from ctx and is
// also cancelled by Future.Cancel. A panic in fn completes the future with an error.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(f.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("async operation panicked: %v", r)
			}
		}()
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Completed returns a future already resolved to v.
func Completed[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}, val: v}
	close(f.done)
	return f
}

// Failed returns a future already resolved to err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}, err: err}
	close(f.done)
	return f
}

// Await blocks until the operation finishes or ctx ends. Giving up on the
// wait does not stop the operation; use Cancel for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get waits without a deadline.
func (f *Future[T]) Get() (T, error) {
	return f.Await(context.Background())
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel asks the operation to stop. Work that already committed stays committed.
func (f *Future[T]) Cancel() {
	f.cancel()
}
