// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpvalidate rejects injected requests before they reach a route
// handler. Rejections are written as JSON error bodies.
package httpvalidate

import (
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/z5labs/lambdawrap/inject"
)

// Validator represents an http.Request validator. A Validator which
// returns false must have written the response.
type Validator interface {
	Validate(http.ResponseWriter, *http.Request) bool
}

// ValidatorFunc implements Validator for funcs.
type ValidatorFunc func(http.ResponseWriter, *http.Request) bool

// Validate implements the Validator interface.
func (f ValidatorFunc) Validate(w http.ResponseWriter, r *http.Request) bool {
	return f(w, r)
}

// Handler is an http.Handler which applies request validators
// before passing the request to a wrapped http.Handler.
type Handler struct {
	validators []Validator
	base       http.Handler
}

// Request wraps h with request validators, applied in order.
func Request(h http.Handler, validators ...Validator) *Handler {
	return &Handler{
		validators: validators,
		base:       h,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	for _, validator := range h.validators {
		if !validator.Validate(w, req) {
			return
		}
	}
	h.base.ServeHTTP(w, req)
}

// ContentType validates the media type of the request body is one of the
// given, ignoring parameters such as charset. Anything else gets a 415.
func ContentType(mediaTypes ...string) Validator {
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err == nil {
			for _, want := range mediaTypes {
				if strings.EqualFold(mt, want) {
					return true
				}
			}
		}
		inject.WriteError(
			w,
			http.StatusUnsupportedMediaType,
			fmt.Sprintf("content type must be one of: %s", strings.Join(mediaTypes, ", ")),
		)
		return false
	})
}

// MinimumParams validates that the incoming HTTP request
// has, at minimum, the query parameters given by the argument, names.
func MinimumParams(names ...string) Validator {
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		params := r.URL.Query()
		for _, name := range names {
			if !params.Has(name) {
				inject.WriteError(w, http.StatusBadRequest, fmt.Sprintf("missing query parameter: %s", name))
				return false
			}
		}
		return true
	})
}

// ExactParams validates that the incoming HTTP request
// has the exact query parameters given by the argument, names.
func ExactParams(names ...string) Validator {
	minimum := MinimumParams(names...)
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		if !minimum.Validate(w, r) {
			return false
		}
		if len(r.URL.Query()) != len(names) {
			inject.WriteError(w, http.StatusBadRequest, "unexpected query parameters")
			return false
		}
		return true
	})
}

// MaxBodyBytes rejects requests whose declared body size exceeds n with a 413.
func MaxBodyBytes(n int64) Validator {
	return ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
		if r.ContentLength <= n {
			return true
		}
		inject.WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", n))
		return false
	})
}
