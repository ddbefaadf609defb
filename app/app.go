// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides helpers for wrapping runnable apps, such as the
// Lambda runtime, with common cross-cutting behaviour.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/lambdawrap/internal/try"
	"github.com/z5labs/lambdawrap/lifecycle"
)

// App represents the entry point for user specific code.
type App interface {
	Run(context.Context) error
}

// RunFunc is a func variant of the [App] interface.
type RunFunc func(context.Context) error

// Run implements the [App] interface.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover will wrap the given [App] with panic recovery.
// A recovered panic is returned as a [try.PanicError] which
// unwraps to the panic value if it is an error.
func Recover(app App) App {
	return RunFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app App, signals ...os.Signal) App {
	return RunFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// WithLifecycleHooks wraps a given [App] in an implementation that runs
// the pre run hooks of lc before app.Run and its post run hooks afterwards.
// The lifecycle Context is made available to both the hooks and app through
// [lifecycle.FromContext], so hooks may register further post run hooks.
//
// Post run hooks always run, even if a pre run hook fails or app panics.
func WithLifecycleHooks(app App, lc *lifecycle.Context) App {
	return RunFunc(func(ctx context.Context) (err error) {
		ctx = lifecycle.NewContext(ctx, lc)

		defer runPostRunHook(ctx, lc, &err)

		err = lc.PreRun().Run(ctx)
		if err != nil {
			return err
		}
		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, lc *lifecycle.Context, err *error) {
	// hooks get a chance to flush even if app panicked
	r := recover()

	hookErr := lc.PostRun().Run(context.WithoutCancel(ctx))

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)

	if r != nil {
		panic(r)
	}
}
