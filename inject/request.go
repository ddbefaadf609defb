// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"context"
	"slices"
	"sync"
)

// Request is the per-request object created for every injection. Route
// handlers retrieve it with [FromContext].
type Request struct {
	// ID is generated by the [Server] and may be overridden by extensions.
	ID string

	Method      string
	Path        string
	RemoteAddr  string
	Credentials any
	Plugins     map[string]any

	// detached from the injection's cancellation so tails outlive it
	tailCtx context.Context

	mu    sync.Mutex
	tails []*Tail
}

// Plugin returns the plugin data stored under name.
func (r *Request) Plugin(name string) (any, bool) {
	v, ok := r.Plugins[name]
	return v, ok
}

// Tail registers a pending operation named name and returns the func
// which marks it complete. Calling done more than once is harmless.
func (r *Request) Tail(name string) (done func()) {
	t := newTail(name)
	r.appendTail(t)
	return func() { t.settle(nil) }
}

// Go registers a pending operation named name backed by f running on its own
// goroutine. The context passed to f is not cancelled when the injection ends.
func (r *Request) Go(name string, f func(context.Context) error) {
	t := newTail(name)
	r.appendTail(t)

	ctx := r.tailCtx
	if ctx == nil {
		ctx = context.Background()
	}
	go t.run(ctx, f)
}

// Tails returns a snapshot of the tail-work registry in registration order.
func (r *Request) Tails() []*Tail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tails)
}

func (r *Request) appendTail(t *Tail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tails = append(r.tails, t)
}

type requestKey struct{}

// NewContext returns a copy of parent carrying r.
func NewContext(parent context.Context, r *Request) context.Context {
	return context.WithValue(parent, requestKey{}, r)
}

// FromContext returns the [Request] of the injection ctx belongs to.
func FromContext(ctx context.Context) (*Request, bool) {
	r, ok := ctx.Value(requestKey{}).(*Request)
	return r, ok
}
