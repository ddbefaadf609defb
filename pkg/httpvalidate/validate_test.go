// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpvalidate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/z5labs/lambdawrap/inject"

	"github.com/stretchr/testify/assert"
)

func okHandler(ran *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ran = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestHandler_ServeHTTP(t *testing.T) {
	t.Run("will not run base handler", func(t *testing.T) {
		t.Run("if any validator fails", func(t *testing.T) {
			ran := false
			h := Request(
				okHandler(&ran),
				ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool { return true }),
				ValidatorFunc(func(w http.ResponseWriter, r *http.Request) bool {
					w.WriteHeader(http.StatusTeapot)
					return false
				}),
			)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			if !assert.False(t, ran) {
				return
			}
			if !assert.Equal(t, http.StatusTeapot, w.Code) {
				return
			}
		})
	})

	t.Run("will run base handler", func(t *testing.T) {
		t.Run("if all validators pass", func(t *testing.T) {
			ran := false
			h := Request(okHandler(&ran), MinimumParams("a"))

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?a=1&b=2", nil))

			if !assert.True(t, ran) {
				return
			}
			if !assert.Equal(t, http.StatusOK, w.Code) {
				return
			}
		})
	})
}

func TestValidators(t *testing.T) {
	testCases := []struct {
		Name        string
		Validator   Validator
		Request     func() *http.Request
		Valid       bool
		StatusCode  int
		MessagePart string
	}{
		{
			Name:      "content type with charset",
			Validator: ContentType("application/json"),
			Request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
				r.Header.Set("Content-Type", "application/json; charset=utf-8")
				return r
			},
			Valid: true,
		},
		{
			Name:      "unsupported content type",
			Validator: ContentType("application/json"),
			Request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			StatusCode:  http.StatusUnsupportedMediaType,
			MessagePart: "application/json",
		},
		{
			Name:      "missing content type",
			Validator: ContentType("application/json"),
			Request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
			},
			StatusCode:  http.StatusUnsupportedMediaType,
			MessagePart: "application/json",
		},
		{
			Name:      "missing query parameter",
			Validator: MinimumParams("a", "b"),
			Request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?a=1", nil)
			},
			StatusCode:  http.StatusBadRequest,
			MessagePart: "missing query parameter: b",
		},
		{
			Name:      "exact query parameters",
			Validator: ExactParams("a"),
			Request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?a=1", nil)
			},
			Valid: true,
		},
		{
			Name:      "extra query parameters",
			Validator: ExactParams("a"),
			Request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?a=1&b=2", nil)
			},
			StatusCode:  http.StatusBadRequest,
			MessagePart: "unexpected query parameters",
		},
		{
			Name:      "body too large",
			Validator: MaxBodyBytes(2),
			Request: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
			},
			StatusCode:  http.StatusRequestEntityTooLarge,
			MessagePart: "exceeds 2 bytes",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Name, func(t *testing.T) {
			w := httptest.NewRecorder()
			valid := testCase.Validator.Validate(w, testCase.Request())
			if !assert.Equal(t, testCase.Valid, valid) {
				return
			}
			if valid {
				return
			}
			if !assert.Equal(t, testCase.StatusCode, w.Code) {
				return
			}

			var body inject.ErrorBody
			err := json.Unmarshal(w.Body.Bytes(), &body)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Contains(t, body.Message, testCase.MessagePart) {
				return
			}
		})
	}
}
