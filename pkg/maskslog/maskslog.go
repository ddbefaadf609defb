// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package maskslog provides a [slog.Handler] which masks sensitive
// attributes, such as credential headers, before they are written.
package maskslog

import (
	"context"
	"log/slog"
	"strings"
)

// Masked is the value masked string attributes are replaced with.
const Masked = "****"

type options struct {
	attrs   map[string]func(slog.Attr) slog.Attr
	message func(string) string
}

// Option helps configure the Handler.
type Option func(*options)

// Message registers a function for masking slog.Record messages.
func Message(f func(string) string) Option {
	return func(o *options) {
		o.message = f
	}
}

// Attr registers a function for masking every slog.Attr with the given key,
// at any group depth. Keys are matched case insensitively.
func Attr(key string, f func(slog.Attr) slog.Attr) Option {
	return func(o *options) {
		o.attrs[strings.ToLower(key)] = f
	}
}

// Keys masks every slog.Attr with one of the given keys using [AnonymousStringAttr].
func Keys(keys ...string) Option {
	return func(o *options) {
		for _, k := range keys {
			o.attrs[strings.ToLower(k)] = AnonymousStringAttr
		}
	}
}

// AnonymousStringAttr replaces the value of a with [Masked], whatever its type.
func AnonymousStringAttr(a slog.Attr) slog.Attr {
	return slog.String(a.Key, Masked)
}

// Handler is an slog.Handler.
type Handler struct {
	slog slog.Handler

	attrs   map[string]func(slog.Attr) slog.Attr
	message func(string) string
}

// NewHandler returns a new Handler.
func NewHandler(h slog.Handler, opts ...Option) *Handler {
	o := &options{
		attrs: make(map[string]func(slog.Attr) slog.Attr),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Handler{
		slog:    h,
		attrs:   o.attrs,
		message: o.message,
	}
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.slog.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if h.message == nil && len(h.attrs) == 0 {
		return h.slog.Handle(ctx, record)
	}

	msg := record.Message
	if h.message != nil {
		msg = h.message(msg)
	}

	nr := slog.NewRecord(record.Time, record.Level, msg, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		nr.AddAttrs(h.mask(a))
		return true
	})
	return h.slog.Handle(ctx, nr)
}

func (h *Handler) mask(a slog.Attr) slog.Attr {
	if f, ok := h.attrs[strings.ToLower(a.Key)]; ok {
		return f(a)
	}

	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return a
	}

	group := v.Group()
	masked := make([]any, len(group))
	for i, ga := range group {
		masked[i] = h.mask(ga)
	}
	return slog.Group(a.Key, masked...)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.mask(a)
	}
	return &Handler{
		slog:    h.slog.WithAttrs(masked),
		attrs:   h.attrs,
		message: h.message,
	}
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		slog:    h.slog.WithGroup(name),
		attrs:   h.attrs,
		message: h.message,
	}
}
