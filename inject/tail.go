// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"context"
	"sync"

	"github.com/z5labs/lambdawrap/internal/try"
)

// Tail is pending work registered on a [Request] which must finish before
// the invocation that produced the request is considered done.
type Tail struct {
	Name string

	once sync.Once
	done chan struct{}
	err  error
}

func newTail(name string) *Tail {
	return &Tail{
		Name: name,
		done: make(chan struct{}),
	}
}

// Done is closed once the tail settles.
func (t *Tail) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure the tail settled with. It is only meaningful after Done is closed.
func (t *Tail) Err() error {
	<-t.done
	return t.err
}

// Wait blocks until the tail settles or ctx is done.
func (t *Tail) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.err
	}
}

func (t *Tail) settle(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

func (t *Tail) run(ctx context.Context, f func(context.Context) error) {
	var err error
	defer func() { t.settle(err) }()
	defer try.Recover(&err)

	err = f(ctx)
}
