// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambdawrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/mux"
	"github.com/z5labs/lambdawrap/pkg/maskslog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/stretchr/testify/assert"
)

const initFailureBody = `{"statusCode":500,"error":"Internal Server Error","message":"An internal server error occurred (Server initialization error)"}`

type countingServer struct {
	Server

	exts        atomic.Int32
	compression atomic.Int32
	injectErr   error
}

func (s *countingServer) Ext(e inject.Extension) {
	s.exts.Add(1)
	s.Server.Ext(e)
}

func (s *countingServer) CompressionEnabled() bool {
	s.compression.Add(1)
	return s.Server.CompressionEnabled()
}

func (s *countingServer) Inject(ctx context.Context, opts *inject.Options) (*inject.Response, error) {
	if s.injectErr != nil {
		return nil, s.injectErr
	}
	return s.Server.Inject(ctx, opts)
}

func newTestServer(routes func(*mux.Router), opts ...inject.ServerOption) *inject.Server {
	r := mux.New()
	routes(r)
	return inject.NewServer(r, append([]inject.ServerOption{inject.Compression(false)}, opts...)...)
}

func getEvent(path string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       path,
	}
}

func TestHandler_Invoke(t *testing.T) {
	t.Run("will return a generic 500 result", func(t *testing.T) {
		t.Run("if the server fails to initialize", func(t *testing.T) {
			f := Pending(context.Background(), func(ctx context.Context) (Server, error) {
				return nil, errors.New("boom")
			})
			h := NewHandler(f)

			result, err := h.Invoke(context.Background(), getEvent("/health"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusInternalServerError, result.StatusCode) {
				return
			}
			if !assert.JSONEq(t, initFailureBody, result.Body) {
				return
			}
			if !assert.Equal(t, []string{"application/json; charset=utf-8"}, result.MultiValueHeaders["content-type"]) {
				return
			}
		})

		t.Run("if the server initializer panics", func(t *testing.T) {
			f := Pending(context.Background(), func(ctx context.Context) (Server, error) {
				panic("boom")
			})
			h := NewHandler(f)

			result, err := h.Invoke(context.Background(), getEvent("/health"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.JSONEq(t, initFailureBody, result.Body) {
				return
			}
		})
	})

	t.Run("will return the context error", func(t *testing.T) {
		t.Run("if the context is cancelled while the server is pending", func(t *testing.T) {
			release := make(chan struct{})
			defer close(release)

			f := Pending(context.Background(), func(ctx context.Context) (Server, error) {
				<-release
				return newTestServer(func(*mux.Router) {}), nil
			})
			h := NewHandler(f)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := h.Invoke(ctx, getEvent("/health"))
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})
	})

	t.Run("will return the server error", func(t *testing.T) {
		t.Run("if the injection fails", func(t *testing.T) {
			injectErr := errors.New("inject failed")
			srv := &countingServer{
				Server:    newTestServer(func(*mux.Router) {}),
				injectErr: injectErr,
			}
			h := NewHandler(Ready(srv))

			_, err := h.Invoke(context.Background(), getEvent("/health"))
			if !assert.ErrorIs(t, err, injectErr) {
				return
			}
		})
	})

	t.Run("will serve requests", func(t *testing.T) {
		t.Run("once a pending server resolves", func(t *testing.T) {
			release := make(chan struct{})
			f := Pending(context.Background(), func(ctx context.Context) (Server, error) {
				<-release
				return newTestServer(func(r *mux.Router) {
					r.HandleFunc(mux.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(http.StatusOK)
					})
				}), nil
			})
			h := NewHandler(f)

			if !assert.False(t, h.Healthy(context.Background())) {
				return
			}

			go func() {
				time.Sleep(10 * time.Millisecond)
				close(release)
			}()

			result, err := h.Invoke(context.Background(), getEvent("/health"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, result.StatusCode) {
				return
			}
			if !assert.True(t, h.Healthy(context.Background())) {
				return
			}
		})
	})

	t.Run("will route using the stripped path", func(t *testing.T) {
		srv := newTestServer(func(r *mux.Router) {
			r.HandleFunc(mux.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
		})
		h := NewHandler(Ready(srv), BasePath("/mock-base-path"))

		t.Run("if the event path starts with the base path", func(t *testing.T) {
			result, err := h.Invoke(context.Background(), getEvent("/mock-base-path/health"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, result.StatusCode) {
				return
			}
		})

		t.Run("and respond not found if the event path lacks the base path", func(t *testing.T) {
			result, err := h.Invoke(context.Background(), getEvent("/other/health"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusNotFound, result.StatusCode) {
				return
			}
			if !assert.JSONEq(t, `{"statusCode":404,"error":"Not Found","message":"Not Found"}`, result.Body) {
				return
			}
		})
	})

	t.Run("will let the server respond", func(t *testing.T) {
		routes := func(r *mux.Router) {
			r.HandleFunc(mux.MethodGet, "/files/{name}", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(r.PathValue("name")))
			})
		}

		testCases := []struct {
			Name     string
			BasePath string
			Path     string
			Status   int
			Body     string
		}{
			{
				Name:   "if the decoded path contains a percent sign",
				Path:   "/files/50%",
				Status: http.StatusOK,
				Body:   "50%",
			},
			{
				Name:   "if the decoded path contains a question mark",
				Path:   "/files/what?",
				Status: http.StatusOK,
				Body:   "what?",
			},
			{
				Name:     "if the base path only matches part of a segment",
				BasePath: "/dev",
				Path:     "/development/x",
				Status:   http.StatusNotFound,
			},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				h := NewHandler(Ready(newTestServer(routes)), BasePath(testCase.BasePath))

				result, err := h.Invoke(context.Background(), getEvent(testCase.Path))
				if !assert.Nil(t, err) {
					return
				}
				if !assert.Equal(t, testCase.Status, result.StatusCode) {
					return
				}
				if testCase.Body == "" {
					return
				}
				if !assert.Equal(t, testCase.Body, result.Body) {
					return
				}
			})
		}
	})

	t.Run("will wait for all tail work", func(t *testing.T) {
		t.Run("before returning the result", func(t *testing.T) {
			var delayedDone atomic.Bool
			var immediateDone atomic.Bool

			srv := newTestServer(func(r *mux.Router) {
				r.HandleFunc(mux.MethodGet, "/work", func(w http.ResponseWriter, r *http.Request) {
					req, _ := inject.FromContext(r.Context())

					done := req.Tail("immediate")
					immediateDone.Store(true)
					done()

					req.Go("delayed", func(ctx context.Context) error {
						time.Sleep(50 * time.Millisecond)
						delayedDone.Store(true)
						return nil
					})
					w.WriteHeader(http.StatusAccepted)
				})
			})
			h := NewHandler(Ready(srv))

			result, err := h.Invoke(context.Background(), getEvent("/work"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusAccepted, result.StatusCode) {
				return
			}
			if !assert.True(t, immediateDone.Load()) {
				return
			}
			if !assert.True(t, delayedDone.Load()) {
				return
			}
		})

		t.Run("and log failures without changing the result", func(t *testing.T) {
			var delayedDone atomic.Bool
			srv := newTestServer(func(r *mux.Router) {
				r.HandleFunc(mux.MethodGet, "/work", func(w http.ResponseWriter, r *http.Request) {
					req, _ := inject.FromContext(r.Context())
					req.Go("fails", func(ctx context.Context) error {
						return errors.New("queue unavailable")
					})
					req.Go("delayed", func(ctx context.Context) error {
						time.Sleep(20 * time.Millisecond)
						delayedDone.Store(true)
						return nil
					})
					w.WriteHeader(http.StatusOK)
				})
			})

			var buf bytes.Buffer
			h := NewHandler(Ready(srv), LogHandler(slog.NewJSONHandler(&buf, nil)))

			result, err := h.Invoke(context.Background(), getEvent("/work"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, http.StatusOK, result.StatusCode) {
				return
			}
			if !assert.True(t, delayedDone.Load()) {
				return
			}
			if !assert.Contains(t, buf.String(), "queue unavailable") {
				return
			}
		})
	})

	t.Run("will set the request id from the lambda context", func(t *testing.T) {
		var gotID string
		routes := func(r *mux.Router) {
			r.HandleFunc(mux.MethodGet, "/id", func(w http.ResponseWriter, r *http.Request) {
				req, _ := inject.FromContext(r.Context())
				gotID = req.ID
			})
		}
		ctx := lambdacontext.NewContext(context.Background(), &lambdacontext.LambdaContext{
			AwsRequestID: "c6af9ac6-7b61-11e6-9a41-93e812345678",
		})

		t.Run("if set request id is left at its default", func(t *testing.T) {
			srv := newTestServer(routes, inject.RequestIDGenerator(func() string { return "native" }))
			h := NewHandler(Ready(srv))

			_, err := h.Invoke(ctx, getEvent("/id"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "c6af9ac6-7b61-11e6-9a41-93e812345678", gotID) {
				return
			}
		})

		t.Run("unless set request id is disabled", func(t *testing.T) {
			srv := newTestServer(routes, inject.RequestIDGenerator(func() string { return "native" }))
			h := NewHandler(Ready(srv), SetRequestID(false))

			_, err := h.Invoke(ctx, getEvent("/id"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "native", gotID) {
				return
			}
		})
	})

	t.Run("will apply the request modifier", func(t *testing.T) {
		var creds any
		srv := newTestServer(func(r *mux.Router) {
			r.HandleFunc(mux.MethodGet, "/me", func(w http.ResponseWriter, r *http.Request) {
				req, _ := inject.FromContext(r.Context())
				creds = req.Credentials
			})
		})
		h := NewHandler(Ready(srv), ModifyRequest(func(ctx context.Context, event events.APIGatewayProxyRequest, opts *inject.Options) {
			opts.Credentials = event.RequestContext.Authorizer["principalId"]
		}))

		event := getEvent("/me")
		event.RequestContext.Authorizer = map[string]any{"principalId": "user-1"}

		_, err := h.Invoke(context.Background(), event)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, "user-1", creds) {
			return
		}
	})

	t.Run("will never return transfer-encoding", func(t *testing.T) {
		srv := newTestServer(func(r *mux.Router) {
			r.HandleFunc(mux.MethodGet, "/stream", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Transfer-Encoding", "chunked")
				w.Write([]byte("data"))
			})
		})
		h := NewHandler(Ready(srv))

		result, err := h.Invoke(context.Background(), getEvent("/stream"))
		if !assert.Nil(t, err) {
			return
		}
		if !assert.NotContains(t, result.MultiValueHeaders, "transfer-encoding") {
			return
		}
		if !assert.Equal(t, "data", result.Body) {
			return
		}
	})
}

func TestHandler_Invoke_logging(t *testing.T) {
	t.Run("will not log the received event", func(t *testing.T) {
		t.Run("if debug logging is disabled", func(t *testing.T) {
			srv := newTestServer(func(r *mux.Router) {
				r.HandleFunc(mux.MethodGet, "/", func(w http.ResponseWriter, r *http.Request) {})
			})

			var buf bytes.Buffer
			lh := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
			h := NewHandler(Ready(srv), LogHandler(lh))

			event := getEvent("/")
			event.Headers = map[string]string{"Accept": "application/json"}

			_, err := h.Invoke(context.Background(), event)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotContains(t, buf.String(), "received event") {
				return
			}
		})
	})

	t.Run("will mask credential headers in debug logs", func(t *testing.T) {
		t.Run("if the log handler masks them", func(t *testing.T) {
			srv := newTestServer(func(r *mux.Router) {
				r.HandleFunc(mux.MethodGet, "/", func(w http.ResponseWriter, r *http.Request) {})
			})

			var buf bytes.Buffer
			lh := maskslog.NewHandler(
				slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
				maskslog.Keys("authorization"),
			)
			h := NewHandler(Ready(srv), LogHandler(lh))

			event := getEvent("/")
			event.Headers = map[string]string{
				"Authorization": "Bearer secret-token",
				"Accept":        "application/json",
			}

			_, err := h.Invoke(context.Background(), event)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.NotContains(t, buf.String(), "secret-token") {
				return
			}
			if !assert.Contains(t, buf.String(), `"authorization":"****"`) {
				return
			}
			if !assert.Contains(t, buf.String(), `"accept":"application/json"`) {
				return
			}
		})
	})
}

func TestNewHandler(t *testing.T) {
	t.Run("will run setup exactly once", func(t *testing.T) {
		t.Run("if many invocations race a pending server", func(t *testing.T) {
			srv := &countingServer{
				Server: newTestServer(func(r *mux.Router) {
					r.HandleFunc(mux.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {})
				}, inject.Compression(true)),
			}

			release := make(chan struct{})
			f := Pending(context.Background(), func(ctx context.Context) (Server, error) {
				<-release
				return srv, nil
			})

			var buf bytes.Buffer
			h := NewHandler(f, LogHandler(slog.NewJSONHandler(&buf, nil)))

			var wg sync.WaitGroup
			for range 20 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					h.Invoke(context.Background(), getEvent("/health"))
				}()
			}
			close(release)
			wg.Wait()

			if !assert.Equal(t, int32(1), srv.exts.Load()) {
				return
			}
			if !assert.Equal(t, int32(1), srv.compression.Load()) {
				return
			}
			if !assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("response compression is enabled"))) {
				return
			}
		})
	})

	t.Run("will not install the request id extension", func(t *testing.T) {
		t.Run("if set request id is disabled", func(t *testing.T) {
			srv := &countingServer{Server: newTestServer(func(*mux.Router) {})}
			h := NewHandler(Ready(srv), SetRequestID(false))

			_, err := h.Invoke(context.Background(), getEvent("/"))
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, int32(0), srv.exts.Load()) {
				return
			}
		})
	})
}
