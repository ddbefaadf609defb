// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/z5labs/lambdawrap/pkg/otelconfig"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type initializerFunc func(context.Context) (trace.TracerProvider, error)

func (f initializerFunc) Init(ctx context.Context) (trace.TracerProvider, error) {
	return f(ctx)
}

func TestManageOTel(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the tracer provider fails to initialize", func(t *testing.T) {
			initErr := errors.New("failed")
			hook := ManageOTel(initializerFunc(func(ctx context.Context) (trace.TracerProvider, error) {
				return nil, initErr
			}))

			err := hook.Run(context.Background())
			if !assert.ErrorIs(t, err, initErr) {
				return
			}
		})
	})

	t.Run("will flush spans on post run", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		defer otel.SetTracerProvider(prev)

		var buf bytes.Buffer
		lc := &Context{}
		ctx := NewContext(context.Background(), lc)

		err := ManageOTel(otelconfig.Local(otelconfig.Writer(&buf))).Run(ctx)
		if !assert.Nil(t, err) {
			return
		}

		_, span := otel.Tracer("lifecycle").Start(ctx, "managed-span")
		span.End()

		err = lc.PostRun().Run(ctx)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Contains(t, buf.String(), "managed-span") {
			return
		}
	})
}
