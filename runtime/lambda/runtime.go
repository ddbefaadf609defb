// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambda

import (
	"context"
	"log/slog"

	"github.com/z5labs/lambdawrap/pkg/lambdaslog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// Invoker handles a single API Gateway proxy event.
// [*lambdawrap.Handler] implements it.
type Invoker interface {
	Invoke(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// StartFunc starts the Lambda runtime loop for handler.
type StartFunc func(handler any, opts ...lambda.Option)

// RuntimeOption configures a [Runtime].
type RuntimeOption func(*Runtime)

// Start overrides how the runtime loop is started. It defaults to
// [lambda.StartWithOptions], which never returns.
func Start(f StartFunc) RuntimeOption {
	return func(r *Runtime) {
		r.start = f
	}
}

// LogHandler sets the [slog.Handler] used by the [Runtime].
func LogHandler(h slog.Handler) RuntimeOption {
	return func(r *Runtime) {
		r.log = slog.New(lambdaslog.NewHandler(h))
	}
}

// Runtime serves an [Invoker] through the AWS Lambda runtime API.
type Runtime struct {
	invoker Invoker
	start   StartFunc
	log     *slog.Logger
}

// NewRuntime returns a Runtime for invoker.
func NewRuntime(invoker Invoker, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		invoker: invoker,
		start:   lambda.StartWithOptions,
		log:     slog.New(lambdaslog.NewHandler(slog.Default().Handler())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run starts the runtime loop and blocks until ctx is cancelled, e.g. by
// SIGTERM, or the loop returns. Every invocation context derives from ctx.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)

		r.start(
			r.invoker.Invoke,
			lambda.WithContext(ctx),
			lambda.WithEnableSIGTERM(func() {
				r.log.InfoContext(ctx, "received SIGTERM, shutting down")
				cancel()
			}),
		)
	}()

	select {
	case <-ctx.Done():
		return nil
	case <-done:
		return nil
	}
}
