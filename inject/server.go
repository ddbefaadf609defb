// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package inject

import (
	"bytes"
	"context"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/z5labs/lambdawrap/internal/try"
	"github.com/z5labs/lambdawrap/pkg/lambdaslog"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultRemoteAddr is used as the client address when [Options.RemoteAddr] is unset.
const DefaultRemoteAddr = "127.0.0.1"

const internalErrorMessage = "An internal server error occurred"

// Extension runs for every injected request before it is routed. Returning
// an error aborts the request with an HTTP 500 response.
type Extension func(context.Context, *Request) error

// ServerOption configures a [Server].
type ServerOption func(*Server)

// Compression toggles response compression. Compression is enabled by default.
func Compression(enabled bool) ServerOption {
	return func(s *Server) {
		s.compression = enabled
	}
}

// CompressionMinBytes sets the smallest payload which will be compressed.
// The default is 1024 bytes.
func CompressionMinBytes(n int) ServerOption {
	return func(s *Server) {
		s.minBytes = n
	}
}

// RequestIDGenerator overrides how native request ids are generated.
// The default generates random UUIDs.
func RequestIDGenerator(f func() string) ServerOption {
	return func(s *Server) {
		s.genID = f
	}
}

// LogHandler sets the [slog.Handler] used by the server.
func LogHandler(h slog.Handler) ServerOption {
	return func(s *Server) {
		s.log = slog.New(lambdaslog.NewHandler(h))
	}
}

// Traced wraps the served handler with OpenTelemetry HTTP instrumentation.
func Traced(operation string) ServerOption {
	return func(s *Server) {
		s.operation = operation
	}
}

// Server serves requests injected in-process into an [http.Handler],
// bypassing any network listener.
type Server struct {
	handler     http.Handler
	log         *slog.Logger
	genID       func() string
	compression bool
	minBytes    int
	operation   string

	mu   sync.RWMutex
	exts []Extension
}

// NewServer returns a Server which injects requests into h.
func NewServer(h http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		handler:     h,
		log:         slog.New(lambdaslog.NewHandler(slog.Default().Handler())),
		genID:       uuid.NewString,
		compression: true,
		minBytes:    1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.operation != "" {
		s.handler = otelhttp.NewHandler(s.handler, s.operation)
	}
	return s
}

// Ext installs a pre-routing extension. Extensions run in installation order.
func (s *Server) Ext(e Extension) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exts = append(s.exts, e)
}

// CompressionEnabled reports whether the server may compress responses.
func (s *Server) CompressionEnabled() bool {
	return s.compression
}

// Response is the result of an injected request.
type Response struct {
	StatusCode int
	Header     Header
	Payload    []byte

	// Request is the per-request object the response was produced for.
	Request *Request
}

// Inject serves the request described by opts and returns the recorded response.
// Handler panics and extension failures become HTTP 500 responses; only
// invalid options are reported as an error.
func (s *Server) Inject(ctx context.Context, opts *Options) (*Response, error) {
	u, err := opts.validate()
	if err != nil {
		return nil, err
	}

	header := opts.Header.Clone()
	if header == nil {
		header = make(Header)
	}
	remoteAddr := opts.RemoteAddr
	if remoteAddr == "" {
		remoteAddr = DefaultRemoteAddr
	}
	plugins := maps.Clone(opts.Plugins)
	if plugins == nil {
		plugins = make(map[string]any)
	}

	req := &Request{
		ID:          s.genID(),
		Method:      strings.ToUpper(opts.Method),
		Path:        u.Path,
		RemoteAddr:  remoteAddr,
		Credentials: opts.Credentials,
		Plugins:     plugins,
		tailCtx:     context.WithoutCancel(ctx),
	}
	ctx = NewContext(ctx, req)

	s.log.DebugContext(
		ctx,
		"injecting request",
		slog.String("request_id", req.ID),
		slog.String("method", req.Method),
		slog.String("url", u.RequestURI()),
	)

	rec := newRecorder()
	err = s.serve(ctx, rec, req, u.RequestURI(), header, opts.Payload)
	if err != nil {
		s.log.ErrorContext(ctx, "injected request failed", slog.String("request_id", req.ID), slog.Any("error", err))
		rec.reset()
		WriteError(rec, http.StatusInternalServerError, internalErrorMessage)
	}

	status, respHeader, payload := rec.result()
	payload = s.compress(ctx, header, respHeader, payload)
	setContentLength(respHeader, len(payload))

	resp := &Response{
		StatusCode: status,
		Header:     respHeader,
		Payload:    payload,
		Request:    req,
	}
	return resp, nil
}

func (s *Server) serve(ctx context.Context, w http.ResponseWriter, req *Request, uri string, header Header, payload []byte) (err error) {
	defer try.Recover(&err)

	s.mu.RLock()
	exts := s.exts
	s.mu.RUnlock()

	for _, ext := range exts {
		err := ext(ctx, req)
		if err != nil {
			return err
		}
	}

	r, err := http.NewRequestWithContext(ctx, req.Method, uri, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	r.RequestURI = uri
	r.Header = header.toHTTP()
	r.Host = header.Get("host")
	if r.Host == "" {
		r.Host = "localhost"
	}
	r.RemoteAddr = net.JoinHostPort(req.RemoteAddr, "0")

	s.handler.ServeHTTP(w, r)
	return nil
}

func (s *Server) compress(ctx context.Context, reqHeader, respHeader Header, payload []byte) []byte {
	if !s.compression {
		return payload
	}
	if !containsFold(respHeader.Values("vary"), "accept-encoding") {
		respHeader.Add("vary", "accept-encoding")
	}
	if len(payload) < s.minBytes || respHeader.Get("content-encoding") != "" {
		return payload
	}

	coding := negotiate(reqHeader.Get("accept-encoding"))
	if coding == "" {
		return payload
	}
	b, err := encoders[coding](payload)
	if err != nil {
		s.log.WarnContext(ctx, "failed to compress response", slog.String("encoding", coding), slog.Any("error", err))
		return payload
	}
	respHeader.Set("content-encoding", coding)
	return b
}

func containsFold(vs []string, s string) bool {
	for _, v := range vs {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), s) {
				return true
			}
		}
	}
	return false
}
