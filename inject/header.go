// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"net/http"
	"slices"
	"sort"
	"strings"
)

// Header maps lower-cased header names to their values. A header holding a
// single value is a scalar; multi-valued headers keep their values in order.
type Header map[string][]string

// Get returns the first value associated with name, matched case-insensitively.
func (h Header) Get(name string) string {
	vs := h.Values(name)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value associated with name, matched case-insensitively.
func (h Header) Values(name string) []string {
	if vs, ok := h[strings.ToLower(name)]; ok {
		return vs
	}
	for k, vs := range h {
		if strings.EqualFold(k, name) {
			return vs
		}
	}
	return nil
}

// Set replaces the values of name with the single value v.
func (h Header) Set(name, v string) {
	h.Del(name)
	h[strings.ToLower(name)] = []string{v}
}

// Add appends v to the values of name.
func (h Header) Add(name, v string) {
	k := strings.ToLower(name)
	h[k] = append(h[k], v)
}

// Del removes name regardless of how its key was cased when it was stored.
func (h Header) Del(name string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	c := make(Header, len(h))
	for k, vs := range h {
		c[k] = slices.Clone(vs)
	}
	return c
}

// HeaderFrom folds an arbitrarily cased header map into a Header. Names which
// only differ by case are merged, visiting source names in sorted order so
// the merged value order is deterministic.
func HeaderFrom(src map[string][]string) Header {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	h := make(Header, len(src))
	for _, name := range names {
		k := strings.ToLower(name)
		h[k] = append(h[k], src[name]...)
	}
	return h
}

func (h Header) toHTTP() http.Header {
	hh := make(http.Header, len(h))
	for k, vs := range h {
		for _, v := range vs {
			hh.Add(k, v)
		}
	}
	return hh
}
