// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"fmt"
	"net/url"
)

// Options describes a request to inject into a [Server].
type Options struct {
	Method string
	URL    string
	Header Header

	// RemoteAddr is the client IP. The server falls back to 127.0.0.1 when unset.
	RemoteAddr string

	Payload []byte

	// Credentials are exposed to route handlers as [Request.Credentials],
	// standing in for an authentication step.
	Credentials any

	// Plugins seeds the per-request plugin data slot, keyed by plugin name.
	Plugins map[string]any
}

// SetPlugin stores v in the plugin data slot for name.
func (o *Options) SetPlugin(name string, v any) {
	if o.Plugins == nil {
		o.Plugins = make(map[string]any)
	}
	o.Plugins[name] = v
}

// InvalidOptionsError is returned when [Options] cannot be turned into a request.
type InvalidOptionsError struct {
	Field string
	Cause error
}

// Error implements the [builtin.error] interface.
func (e InvalidOptionsError) Error() string {
	return fmt.Sprintf("invalid injection option %s: %s", e.Field, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e InvalidOptionsError) Unwrap() error {
	return e.Cause
}

var errEmpty = fmt.Errorf("must not be empty")

func (o *Options) validate() (*url.URL, error) {
	if o.Method == "" {
		return nil, InvalidOptionsError{Field: "method", Cause: errEmpty}
	}
	if o.URL == "" {
		return nil, InvalidOptionsError{Field: "url", Cause: errEmpty}
	}
	u, err := url.ParseRequestURI(o.URL)
	if err != nil {
		return nil, InvalidOptionsError{Field: "url", Cause: err}
	}
	return u, nil
}
