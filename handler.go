// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package lambdawrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/internal/fixedpool"
	"github.com/z5labs/lambdawrap/pkg/lambdaslog"
	"github.com/z5labs/lambdawrap/requestid"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const initErrorMessage = "An internal server error occurred (Server initialization error)"

// ModifyRequestFunc may rewrite the injection options built for event before
// they are submitted, e.g. to attach credentials.
type ModifyRequestFunc func(ctx context.Context, event events.APIGatewayProxyRequest, opts *inject.Options)

// Option configures a [Handler].
type Option func(*Handler)

// BasePath sets the custom domain base path stripped from every event path.
func BasePath(p string) Option {
	return func(h *Handler) {
		h.basePath = p
	}
}

// ModifyRequest registers f to run on every injection before it is submitted.
func ModifyRequest(f ModifyRequestFunc) Option {
	return func(h *Handler) {
		h.modify = f
	}
}

// SetRequestID controls whether the AWS request id of an invocation becomes
// the id of the injected request. It is enabled by default.
func SetRequestID(enabled bool) Option {
	return func(h *Handler) {
		h.setRequestID = enabled
	}
}

// LogHandler sets the [slog.Handler] used by the [Handler].
func LogHandler(lh slog.Handler) Option {
	return func(h *Handler) {
		h.log = slog.New(lambdaslog.NewHandler(lh))
	}
}

// Handler serves API Gateway proxy events with a [Server].
type Handler struct {
	future       *Future
	basePath     string
	modify       ModifyRequestFunc
	setRequestID bool
	log          *slog.Logger
	tracer       trace.Tracer

	setupOnce sync.Once
}

// NewHandler returns a Handler for the Server f resolves to. Requests are
// held until f resolves.
func NewHandler(f *Future, opts ...Option) *Handler {
	h := &Handler{
		future:       f,
		setRequestID: true,
		log:          slog.New(lambdaslog.NewHandler(slog.Default().Handler())),
		tracer:       otel.Tracer("lambdawrap"),
	}
	for _, opt := range opts {
		opt(h)
	}

	go func() {
		<-f.Done()
		srv, err := f.Wait(context.Background())
		if err != nil {
			return
		}
		h.setup(srv)
	}()
	return h
}

func (h *Handler) setup(srv Server) {
	h.setupOnce.Do(func() {
		if h.setRequestID {
			requestid.Register(srv)
		}
		if srv.CompressionEnabled() {
			h.log.Warn("response compression is enabled on the server, API Gateway already compresses responses so disabling it is recommended")
		}
	})
}

// Invoke handles a single API Gateway proxy event.
//
// A Server which failed to initialize yields a generic HTTP 500 result rather
// than an error. Errors returned by the Server itself are returned unchanged.
func (h *Handler) Invoke(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	spanCtx, span := h.tracer.Start(ctx, "lambdawrap.Handler.Invoke", trace.WithAttributes(
		attribute.String("http.request.method", event.HTTPMethod),
		attribute.String("url.path", event.Path),
	))
	defer span.End()

	resp, err := h.invoke(spanCtx, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (h *Handler) invoke(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if h.log.Enabled(ctx, slog.LevelDebug) {
		h.log.DebugContext(
			ctx,
			"received event",
			slog.String("http_method", event.HTTPMethod),
			slog.String("path", event.Path),
			headersAttr(event),
			slog.Bool("base64_encoded", event.IsBase64Encoded),
		)
	}

	srv, err := h.future.Wait(ctx)
	var ierr InitError
	if errors.As(err, &ierr) {
		return initFailureResult(), nil
	}
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	h.setup(srv)

	opts := EventToOptions(event, h.basePath)
	if lc, ok := lambdacontext.FromContext(ctx); ok && h.setRequestID && lc.AwsRequestID != "" {
		requestid.Tag(opts, lc.AwsRequestID)
	}
	if h.modify != nil {
		h.modify(ctx, event, opts)
	}
	h.log.DebugContext(
		ctx,
		"injecting request",
		slog.String("method", opts.Method),
		slog.String("url", opts.URL),
		slog.String("remote_addr", opts.RemoteAddr),
	)

	resp, err := srv.Inject(ctx, opts)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}

	h.awaitTails(ctx, resp.Request)

	result := ResponseToResult(resp)
	h.log.DebugContext(ctx, "returning result", slog.Int("status_code", result.StatusCode))
	return result, nil
}

func (h *Handler) awaitTails(ctx context.Context, req *inject.Request) {
	if req == nil {
		return
	}
	tails := req.Tails()
	if len(tails) == 0 {
		return
	}

	tasks := make([]fixedpool.Task, 0, len(tails))
	for _, tail := range tails {
		tasks = append(tasks, func(ctx context.Context) error {
			err := tail.Wait(ctx)
			if err != nil {
				return fmt.Errorf("tail work %q: %w", tail.Name, err)
			}
			return nil
		})
	}

	// tails always settle, even if the invocation context is cancelled
	err := fixedpool.Wait(context.WithoutCancel(ctx), tasks...)
	if err != nil {
		h.log.ErrorContext(
			ctx,
			"tail work failed",
			slog.String("request_id", req.ID),
			slog.Any("error", err),
		)
	}
}

// Healthy reports whether the Server has been initialized successfully.
// It never blocks on a pending Server.
func (h *Handler) Healthy(ctx context.Context) bool {
	select {
	case <-h.future.Done():
	default:
		return false
	}
	_, err := h.future.Wait(ctx)
	return err == nil
}

// headersAttr groups the event headers so a masking log handler can
// redact credentials by header name.
func headersAttr(event events.APIGatewayProxyRequest) slog.Attr {
	h := eventHeader(event)
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]any, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, slog.String(name, strings.Join(h[name], ", ")))
	}
	return slog.Group("headers", attrs...)
}

func initFailureResult() events.APIGatewayProxyResponse {
	b, _ := json.Marshal(inject.NewErrorBody(http.StatusInternalServerError, initErrorMessage))

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusInternalServerError,
		MultiValueHeaders: map[string][]string{
			"content-type": {"application/json; charset=utf-8"},
		},
		Body: string(b),
	}
}
