// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package health composes health signals, such as whether a wrapped server
// finished initializing or a downstream circuit is open, and serves them
// over HTTP.
package health

import (
	"context"
	"sync/atomic"
)

// Metric represents anything that can report its health status.
// [*lambdawrap.Handler] is a Metric which is healthy once its
// server initialized successfully.
type Metric interface {
	Healthy(context.Context) bool
}

// MetricFunc is a func variant of the [Metric] interface.
type MetricFunc func(context.Context) bool

// Healthy implements the [Metric] interface.
func (f MetricFunc) Healthy(ctx context.Context) bool {
	return f(ctx)
}

// Binary is a Metric that is either healthy or not.
// The zero value is healthy.
type Binary struct {
	unhealthy atomic.Bool
}

// Set records whether the Binary is healthy.
func (m *Binary) Set(healthy bool) {
	m.unhealthy.Store(!healthy)
}

// Toggle flips the state of the Binary.
func (m *Binary) Toggle() {
	for {
		old := m.unhealthy.Load()
		if m.unhealthy.CompareAndSwap(old, !old) {
			return
		}
	}
}

// Healthy implements the [Metric] interface.
func (m *Binary) Healthy(ctx context.Context) bool {
	return !m.unhealthy.Load()
}

// And returns a Metric which is healthy only if every metric is healthy.
func And(metrics ...Metric) Metric {
	return MetricFunc(func(ctx context.Context) bool {
		for _, metric := range metrics {
			if !metric.Healthy(ctx) {
				return false
			}
		}
		return true
	})
}

// Or returns a Metric which is healthy if any metric is healthy.
func Or(metrics ...Metric) Metric {
	return MetricFunc(func(ctx context.Context) bool {
		for _, metric := range metrics {
			if metric.Healthy(ctx) {
				return true
			}
		}
		return false
	})
}

// Not negates metric.
func Not(metric Metric) Metric {
	return MetricFunc(func(ctx context.Context) bool {
		return !metric.Healthy(ctx)
	})
}
