// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package mux provides the request router applications hand to the adapter.
package mux

import (
	"fmt"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/z5labs/lambdawrap/inject"
)

// Method defines an HTTP method a route may be registered for.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPut    Method = http.MethodPut
	MethodPost   Method = http.MethodPost
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// Option defines a configuration option for [Router].
type Option func(*Router)

// NotFoundHandler will register the given [http.Handler] to handle
// any HTTP requests that do not match any other method-pattern combinations.
func NotFoundHandler(h http.Handler) Option {
	return func(r *Router) {
		r.notFound = h
	}
}

// MethodNotAllowedHandler will register the given [http.Handler] to handle
// any HTTP requests whose method does not match the method registered to a pattern.
func MethodNotAllowedHandler(h http.Handler) Option {
	return func(r *Router) {
		r.methodNotAllowed = h
	}
}

// Router wraps a [http.ServeMux]. Unless overridden, unmatched paths get a
// JSON "HTTP 404 Not Found" response and unregistered methods on a known
// path get a JSON "HTTP 405 Method Not Allowed" response.
type Router struct {
	mux *http.ServeMux

	initFallbacksOnce sync.Once
	notFound          http.Handler
	methodNotAllowed  http.Handler

	mu          sync.Mutex
	pathMethods map[string][]Method
}

// New initializes a Router using the standard [http.ServeMux].
func New(opts ...Option) *Router {
	r := &Router{
		mux:              http.NewServeMux(),
		notFound:         http.HandlerFunc(notFound),
		methodNotAllowed: http.HandlerFunc(methodNotAllowed),
		pathMethods:      make(map[string][]Method),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle will register the [http.Handler] for the given method and pattern
// with the underlying [http.ServeMux]. A pattern not ending in "{$}" matches
// with and without a trailing slash.
func (r *Router) Handle(method Method, pattern string, h http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handle(method, pattern, h)

	// {$} is a special case where we only want to exact match the path pattern.
	if strings.HasSuffix(pattern, "{$}") {
		return
	}

	if strings.HasSuffix(pattern, "/") {
		withoutTrailingSlash := pattern[:len(pattern)-1]
		if len(withoutTrailingSlash) == 0 {
			return
		}
		r.handle(method, withoutTrailingSlash, h)
		return
	}

	// "..." must be the final segment so no slash can follow it
	if strings.Contains(path.Base(pattern), "...") {
		return
	}
	r.handle(method, pattern+"/", h)
}

// HandleFunc is the [http.HandlerFunc] counterpart of [Router.Handle].
func (r *Router) HandleFunc(method Method, pattern string, f func(http.ResponseWriter, *http.Request)) {
	r.Handle(method, pattern, http.HandlerFunc(f))
}

func (r *Router) handle(method Method, pattern string, h http.Handler) {
	r.pathMethods[pattern] = append(r.pathMethods[pattern], method)
	r.mux.Handle(fmt.Sprintf("%s %s", method, pattern), h)
}

// ServeHTTP implements the [http.Handler] interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.initFallbacksOnce.Do(r.registerFallbackHandlers)

	r.mux.ServeHTTP(w, req)
}

func (r *Router) registerFallbackHandlers() {
	r.mu.Lock()
	defer r.mu.Unlock()

	fs := []func(*http.ServeMux){
		registerNotFoundHandler(r.notFound),
		registerMethodNotAllowedHandler(r.methodNotAllowed, r.pathMethods),
	}
	for _, f := range fs {
		f(r.mux)
	}
}

func notFound(w http.ResponseWriter, r *http.Request) {
	inject.WriteError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	inject.WriteError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func registerNotFoundHandler(h http.Handler) func(*http.ServeMux) {
	return func(mux *http.ServeMux) {
		if h == nil {
			return
		}
		mux.Handle("/{path...}", h)
	}
}

func registerMethodNotAllowedHandler(h http.Handler, pathMethods map[string][]Method) func(*http.ServeMux) {
	return func(mux *http.ServeMux) {
		if h == nil {
			return
		}

		supportedMethods := []Method{
			http.MethodGet,
			http.MethodPut,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
			http.MethodPatch,
			http.MethodTrace,
		}

		for path, methods := range pathMethods {
			allowed := allowHeader(methods)
			notAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Allow", allowed)
				h.ServeHTTP(w, r)
			})

			for _, method := range diffSets(supportedMethods, methods) {
				// GET patterns also match HEAD
				if method == http.MethodHead && slices.Contains(methods, MethodGet) {
					continue
				}
				mux.Handle(fmt.Sprintf("%s %s", method, path), notAllowed)
			}
		}
	}
}

func allowHeader(methods []Method) string {
	ss := make([]string, 0, len(methods))
	for _, m := range methods {
		if slices.Contains(ss, string(m)) {
			continue
		}
		ss = append(ss, string(m))
	}
	slices.Sort(ss)
	return strings.Join(ss, ", ")
}

func diffSets[T comparable](xs, ys []T) []T {
	zs := make([]T, 0, len(xs))
	for _, x := range xs {
		if slices.Contains(ys, x) {
			continue
		}
		zs = append(zs, x)
	}
	return zs
}
