// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"context"

	"github.com/z5labs/lambdawrap/pkg/otelconfig"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// ManageOTel returns a [Hook] which installs the tracer provider created by
// initializer as the global provider. If the provider can be shut down and the
// context carries a lifecycle [Context], its shutdown is registered as a
// post run hook so buffered spans are flushed.
func ManageOTel(initializer otelconfig.Initializer) Hook {
	return HookFunc(func(ctx context.Context) error {
		tp, err := initializer.Init(ctx)
		if err != nil {
			return err
		}
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		lc, ok := FromContext(ctx)
		if !ok {
			return nil
		}
		if s, ok := tp.(shutdowner); ok {
			lc.OnPostRun(HookFunc(s.Shutdown))
		}
		return nil
	})
}

type shutdowner interface {
	trace.TracerProvider

	Shutdown(context.Context) error
}
