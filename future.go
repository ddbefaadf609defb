// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambdawrap

import (
	"context"
	"fmt"

	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/internal/try"
)

// Server is the in-process HTTP server a [Handler] injects requests into.
// [*inject.Server] implements it.
type Server interface {
	Inject(context.Context, *inject.Options) (*inject.Response, error)
	Ext(inject.Extension)
	CompressionEnabled() bool
}

var _ Server = (*inject.Server)(nil)

// InitError is reported when the [Server] behind a [Future] failed to initialize.
type InitError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InitError) Error() string {
	return fmt.Sprintf("server initialization failed: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InitError) Unwrap() error {
	return e.Cause
}

// Future is a single-assignment cell holding a [Server] which may still be
// initializing. It moves from pending to either ready or failed exactly once.
type Future struct {
	done chan struct{}
	srv  Server
	err  error
}

// Ready returns a Future which is already resolved to srv.
func Ready(srv Server) *Future {
	f := &Future{done: make(chan struct{})}
	f.resolve(srv, nil)
	return f
}

// Pending starts init on its own goroutine and returns a Future resolved
// with its result. A panic in init fails the Future.
func Pending(ctx context.Context, init func(context.Context) (Server, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		srv, err := initialize(ctx, init)
		f.resolve(srv, err)
	}()
	return f
}

func initialize(ctx context.Context, init func(context.Context) (Server, error)) (srv Server, err error) {
	defer try.Recover(&err)

	srv, err = init(ctx)
	if err == nil && srv == nil {
		err = fmt.Errorf("nil server")
	}
	return
}

func (f *Future) resolve(srv Server, err error) {
	if err != nil {
		f.err = InitError{Cause: err}
	} else {
		f.srv = srv
	}
	close(f.done)
}

// Done is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the Future resolves or ctx is done. A failed
// initialization is reported as an [InitError].
func (f *Future) Wait(ctx context.Context) (Server, error) {
	select {
	case <-f.done:
		return f.srv, f.err
	default:
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.srv, f.err
	}
}
