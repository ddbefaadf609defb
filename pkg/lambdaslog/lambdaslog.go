// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lambdaslog provides an invocation aware slog.Handler implementation.
package lambdaslog

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel/trace"
)

// Handler is an slog.Handler which correlates your logs with the Lambda
// invocation and the active span by adding the AWS request id, trace id
// and span id whenever they are present on the context.
//
// The correlation groups are always written at the top level of a record,
// even when the handler was derived with WithGroup.
type Handler struct {
	root slog.Handler
	slog slog.Handler

	// derive replays WithAttrs and WithGroup calls onto a fresh handler
	derive []func(slog.Handler) slog.Handler
}

// NewHandler wraps h. Wrapping a *Handler again returns it unchanged.
func NewHandler(h slog.Handler) *Handler {
	if lh, ok := h.(*Handler); ok {
		return lh
	}
	return &Handler{root: h, slog: h}
}

// New provides a simple wrapper for slog.New(NewHandler(h)).
func New(h slog.Handler) *slog.Logger {
	return slog.New(NewHandler(h))
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.slog.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	var attrs []slog.Attr
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		attrs = append(attrs, slog.Group("lambda", slog.String("aws_request_id", lc.AwsRequestID)))
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		attrs = append(attrs, slog.Group(
			"otel",
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		))
	}
	if len(attrs) == 0 {
		return h.slog.Handle(ctx, record)
	}
	if len(h.derive) == 0 {
		r := record.Clone()
		r.AddAttrs(attrs...)
		return h.slog.Handle(ctx, r)
	}

	sh := h.root.WithAttrs(attrs)
	for _, f := range h.derive {
		sh = f(sh)
	}
	return sh.Handle(ctx, record)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(func(sh slog.Handler) slog.Handler {
		return sh.WithAttrs(attrs)
	})
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(func(sh slog.Handler) slog.Handler {
		return sh.WithGroup(name)
	})
}

func (h *Handler) with(f func(slog.Handler) slog.Handler) *Handler {
	derive := make([]func(slog.Handler) slog.Handler, len(h.derive), len(h.derive)+1)
	copy(derive, h.derive)
	return &Handler{
		root:   h.root,
		slog:   f(h.slog),
		derive: append(derive, f),
	}
}
