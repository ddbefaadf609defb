// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/z5labs/lambdawrap/internal/try"
	"github.com/z5labs/lambdawrap/pkg/lambdaslog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// InvalidEventError occurs when an event source does not hold a JSON
// encoded API Gateway proxy event.
type InvalidEventError struct {
	Index int
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event #%d: %s", e.Index, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidEventError) Unwrap() error {
	return e.Cause
}

// LocalOption configures a [Local] runtime.
type LocalOption func(*Local)

// Concurrency limits how many events are invoked at once. Zero or less means no limit.
func Concurrency(n int) LocalOption {
	return func(l *Local) {
		l.concurrency = n
	}
}

// FunctionName sets the function name reported through the lambda context.
func FunctionName(name string) LocalOption {
	return func(l *Local) {
		l.functionName = name
	}
}

// LocalLogHandler sets the [slog.Handler] used by the [Local] runtime.
func LocalLogHandler(h slog.Handler) LocalOption {
	return func(l *Local) {
		l.log = slog.New(lambdaslog.NewHandler(h))
	}
}

// Local invokes an [Invoker] with events read from a set of sources, outside
// of AWS. Each invocation gets a lambda context with a random AWS request id.
type Local struct {
	invoker      Invoker
	sources      []io.Reader
	out          io.Writer
	concurrency  int
	functionName string
	log          *slog.Logger
}

// NewLocal returns a Local runtime which reads one JSON event from each source
// and writes the JSON results, one per line and in source order, to out.
func NewLocal(invoker Invoker, out io.Writer, sources []io.Reader, opts ...LocalOption) *Local {
	l := &Local{
		invoker:      invoker,
		sources:      sources,
		out:          out,
		functionName: "lambdawrap-local",
		log:          slog.New(lambdaslog.NewHandler(slog.Default().Handler())),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run implements the app.App interface.
func (l *Local) Run(ctx context.Context) error {
	evts := make([]events.APIGatewayProxyRequest, len(l.sources))
	for i, src := range l.sources {
		err := decodeEvent(src, &evts[i])
		if err != nil {
			return InvalidEventError{Index: i, Cause: err}
		}
	}

	results := make([]events.APIGatewayProxyResponse, len(evts))

	g, gctx := errgroup.WithContext(ctx)
	if l.concurrency > 0 {
		g.SetLimit(l.concurrency)
	}
	for i, evt := range evts {
		g.Go(func() error {
			lc := &lambdacontext.LambdaContext{
				AwsRequestID:       uuid.NewString(),
				InvokedFunctionArn: "arn:aws:lambda:local:000000000000:function:" + l.functionName,
			}
			invokeCtx := lambdacontext.NewContext(gctx, lc)

			l.log.InfoContext(invokeCtx, "invoking", slog.String("method", evt.HTTPMethod), slog.String("path", evt.Path))

			resp, err := l.invoker.Invoke(invokeCtx, evt)
			if err != nil {
				return fmt.Errorf("invoke event #%d: %w", i, err)
			}
			results[i] = resp
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(l.out)
	for _, resp := range results {
		err := enc.Encode(resp)
		if err != nil {
			return err
		}
	}
	return nil
}

func decodeEvent(r io.Reader, evt *events.APIGatewayProxyRequest) (err error) {
	defer try.Close(&err, r)

	return json.NewDecoder(r).Decode(evt)
}
