// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig initializes OpenTelemetry tracer providers.
package otelconfig

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Common holds the settings shared by every exporting Initializer.
type Common struct {
	ServiceName string `config:"serviceName"`
}

// CommonOption configures any exporting Initializer.
type CommonOption interface {
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// Initializer creates a tracer provider.
type Initializer interface {
	Init(context.Context) (trace.TracerProvider, error)
}

// Noop leaves the globally registered tracer provider in place.
var Noop Initializer = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) Init(context.Context) (trace.TracerProvider, error) {
	return otel.GetTracerProvider(), nil
}

// LocalConfig configures the stdout exporter.
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption configures [Local].
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// Writer sets where [Local] writes spans to. Defaults to stdout.
func Writer(w io.Writer) LocalOption {
	return localOptionFunc(func(cfg *LocalConfig) {
		cfg.Out = w
	})
}

// Local returns an Initializer which pretty prints spans.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements Initializer interface.
func (cfg LocalConfig) Init(ctx context.Context) (trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	// synchronous so spans are flushed before a Lambda environment freezes
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

func newResource(ctx context.Context, c Common) (*resource.Resource, error) {
	attrs := []resource.Option{resource.WithTelemetrySDK()}
	if c.ServiceName != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceName(c.ServiceName)))
	}
	return resource.New(ctx, attrs...)
}

// Config selects and configures an Initializer.
type Config struct {
	Common `config:",squash"`

	// Exporter is one of "none", "stdout" or "otlp". Empty means "none".
	Exporter string `config:"exporter"`

	// Target is the OTLP collector address, e.g. "localhost:4317".
	Target string `config:"target"`
}

// UnknownExporterError is returned for an unsupported [Config.Exporter].
type UnknownExporterError struct {
	Exporter string
}

// Error implements the [builtin.error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown otel exporter: %s", e.Exporter)
}

// FromConfig returns the Initializer selected by cfg.
func FromConfig(cfg Config) (Initializer, error) {
	switch cfg.Exporter {
	case "", "none":
		return Noop, nil
	case "stdout":
		return Local(ServiceName(cfg.ServiceName)), nil
	case "otlp":
		return OTLP(ServiceName(cfg.ServiceName), Target(cfg.Target)), nil
	default:
		return nil, UnknownExporterError{Exporter: cfg.Exporter}
	}
}
