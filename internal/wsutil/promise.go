package wsutil

import (
	"context"
	"fmt"
	"sync"
)

type PromiseErrSource uint8

const (
	FromUnknown PromiseErrSource = iota
	FromServer
	FromContext
	FromCaller
)

func (s PromiseErrSource) String() string {
	switch s {
	case FromServer:
		return "server"
	case FromContext:
		return "context"
	case FromCaller:
		return "caller"
	default:
		return "unknown"
	}
}

type PromiseError struct {
	Source PromiseErrSource
	Err    error
}

func (e *PromiseError) Error() string {
	return fmt.Sprintf("promise failed [%s]: %v", e.Source, e.Err)
}

func (e *PromiseError) Unwrap() error {
	return e.Err
}

// Promise is the result of a conversation settled by a later inbound
// message. The first Resolve or Reject wins; later calls are ignored.
type Promise[T any] interface {
	Resolve(v T)
	Reject(err error)
	// Await blocks until the promise settles or ctx is done.
	Await(ctx context.Context) (T, error)
	// Done is closed once the promise settles.
	Done() <-chan struct{}
}

func NewPromise[T any]() Promise[T] {
	return &promiseImp[T]{
		done: make(chan struct{}),
	}
}

// Rejected returns a promise that already failed with err.
func Rejected[T any](source PromiseErrSource, err error) Promise[T] {
	p := &promiseImp[T]{
		done:   make(chan struct{}),
		source: source,
	}
	p.Reject(err)
	return p
}

type promiseImp[T any] struct {
	once   sync.Once
	done   chan struct{}
	val    T
	err    error
	source PromiseErrSource
}

func (p *promiseImp[T]) Resolve(v T) {
	p.once.Do(func() {
		p.val = v
		close(p.done)
	})
}

func (p *promiseImp[T]) Reject(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

func (p *promiseImp[T]) Done() <-chan struct{} {
	return p.done
}

func (p *promiseImp[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		if p.err != nil {
			var zero T
			source := p.source
			if source == FromUnknown {
				source = FromServer
			}
			return zero, &PromiseError{Source: source, Err: p.err}
		}
		return p.val, nil
	case <-ctx.Done():
		var zero T
		return zero, &PromiseError{Source: FromContext, Err: ctx.Err()}
	}
}
