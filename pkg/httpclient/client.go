// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpclient builds resilient outbound HTTP clients for tail work
// which must not stall an invocation on a struggling dependency.
package httpclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/lambdawrap/pkg/health"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type circuitOptions struct {
	health       *health.Binary
	name         string
	logger       *zap.Logger
	maxRequests  uint32
	interval     time.Duration
	timeout      time.Duration
	tripCount    uint32
	isSuccessful func(error) bool
	statusCodes  []int
}

// CircuitOption configures [CircuitBreaker].
type CircuitOption func(*circuitOptions)

// CircuitName is the name of the circuit breaker. This will be used to create a named logger
// for logging status changes.
func CircuitName(name string) CircuitOption {
	return func(co *circuitOptions) {
		co.name = name
	}
}

// CircuitLogger sets the logger state changes are reported to.
func CircuitLogger(logger *zap.Logger) CircuitOption {
	return func(co *circuitOptions) {
		co.logger = logger
	}
}

// CircuitHealth marks h unhealthy while the circuit is open.
func CircuitHealth(h *health.Binary) CircuitOption {
	return func(co *circuitOptions) {
		co.health = h
	}
}

// CircuitMaxRequests is the maximum number of requests allowed to pass through
// when the circuit is half-open.
func CircuitMaxRequests(maxRequests uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = maxRequests
	}
}

// CircuitInterval is the cyclic period of the closed state after which the
// failure counts are cleared. Zero never clears them while closed.
func CircuitInterval(interval time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = interval
	}
}

// CircuitTimeout is the period of the open state, after which the circuit
// becomes half-open.
func CircuitTimeout(timeout time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = timeout
	}
}

// CircuitTripCount determines the number of consecutive failures required to trip the circuit.
func CircuitTripCount(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

// CircuitErrorOnStatusCode registers an HTTP response status code which
// should be counted as a failure by the circuit breaker.
//
// Default: 429, 500, 502, 503, 504
func CircuitErrorOnStatusCode(n int) CircuitOption {
	return func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, n)
	}
}

// CountCircuitErrorIf overrides which errors count as failures. f reports
// whether err should be treated as a success.
func CountCircuitErrorIf(f func(error) bool) CircuitOption {
	return func(co *circuitOptions) {
		co.isSuccessful = f
	}
}

// StatusCodeError is returned by the circuit breaker for responses whose
// status code counts as a failure.
type StatusCodeError struct {
	StatusCode int
}

// Error implements the [builtin.error] interface.
func (e StatusCodeError) Error() string {
	return fmt.Sprintf("unexpected http status code: %d", e.StatusCode)
}

// NotConnError reports false for network level failures such as DNS or dial errors.
func NotConnError(err error) bool {
	var addrErr *net.AddrError
	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &addrErr), errors.As(err, &dnsErr), errors.As(err, &opErr):
		return false
	default:
		return true
	}
}

// NotStatusCodeError reports false for [StatusCodeError]s.
func NotStatusCodeError(err error) bool {
	var scErr StatusCodeError
	return !errors.As(err, &scErr)
}

func composeCircuitErrorCheckers(fs ...func(error) bool) func(error) bool {
	return func(err error) bool {
		if err == nil {
			return true
		}
		for _, f := range fs {
			if !f(err) {
				return false
			}
		}
		return true
	}
}

// RoundTripperOption decorates an [http.RoundTripper].
type RoundTripperOption func(http.RoundTripper) http.RoundTripper

// CircuitBreaker returns a [RoundTripperOption] which wraps the transport in a
// circuit breaker. Once open, requests fail fast with [gobreaker.ErrOpenState].
func CircuitBreaker(opts ...CircuitOption) RoundTripperOption {
	return func(rt http.RoundTripper) http.RoundTripper {
		co := &circuitOptions{
			logger:      zap.NewNop(),
			tripCount:   5,
			timeout:     60 * time.Second,
			maxRequests: 1,
			isSuccessful: composeCircuitErrorCheckers(
				NotStatusCodeError,
				NotConnError,
			),
		}
		for _, opt := range opts {
			opt(co)
		}

		if len(co.statusCodes) == 0 {
			co.statusCodes = append(
				co.statusCodes,
				http.StatusTooManyRequests,     // 429
				http.StatusInternalServerError, // 500
				http.StatusBadGateway,          // 502
				http.StatusServiceUnavailable,  // 503
				http.StatusGatewayTimeout,      // 504
			)
		}
		codes := make(map[int]struct{}, len(co.statusCodes))
		for _, code := range co.statusCodes {
			codes[code] = struct{}{}
		}

		log := co.logger.Named(co.name)

		return &circuitRoundTripper{
			RoundTripper: rt,
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        co.name,
				MaxRequests: co.maxRequests,
				Interval:    co.interval,
				Timeout:     co.timeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= co.tripCount
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					if co.health != nil {
						co.health.Set(to != gobreaker.StateOpen)
					}
					switch to {
					case gobreaker.StateOpen:
						log.Error("circuit has been opened")
					case gobreaker.StateHalfOpen:
						log.Warn("circuit is now half open and letting some requests through", zap.Uint32("max_requests_allowed_through", co.maxRequests))
					case gobreaker.StateClosed:
						log.Info("circuit has been closed")
					}
				},
				IsSuccessful: co.isSuccessful,
			}),
			failed: func(n int) bool {
				_, ok := codes[n]
				return ok
			},
		}
	}
}

// RoundTripperWith applies opts to rt in order.
func RoundTripperWith(rt http.RoundTripper, opts ...RoundTripperOption) http.RoundTripper {
	for _, opt := range opts {
		rt = opt(rt)
	}
	return rt
}

type retryOptions struct {
	logger     *zap.Logger
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

// RetryOption configures [RetryRequests].
type RetryOption func(*retryOptions)

// MinWaitDuration is the shortest backoff between attempts.
func MinWaitDuration(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMin = d
	}
}

// MaxWaitDuration is the longest backoff between attempts.
func MaxWaitDuration(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMax = d
	}
}

// MaxRetries is how many times a failed request is retried.
func MaxRetries(n int) RetryOption {
	return func(ro *retryOptions) {
		ro.maxRetries = n
	}
}

// RetryAttemptLogger sets the logger every attempt is reported to.
func RetryAttemptLogger(logger *zap.Logger) RetryOption {
	return func(ro *retryOptions) {
		ro.logger = logger
	}
}

// RetryRequests adds request retry logic to the client.
func RetryRequests(opts ...RetryOption) ClientOption {
	return func(co *clientOptions) {
		ro := &retryOptions{
			logger:     zap.NewNop(),
			waitMin:    100 * time.Millisecond,
			waitMax:    2 * time.Second,
			maxRetries: 2,
		}
		for _, opt := range opts {
			opt(ro)
		}
		co.retryOptions = ro
	}
}

type clientOptions struct {
	timeout      time.Duration
	transport    http.RoundTripper
	retryOptions *retryOptions
}

// ClientOption configures [NewClient].
type ClientOption func(*clientOptions)

// ClientTimeout bounds every request, including retries of it.
func ClientTimeout(timeout time.Duration) ClientOption {
	return func(co *clientOptions) {
		co.timeout = timeout
	}
}

// WithTransport sets the underlying transport.
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(co *clientOptions) {
		co.transport = transport
	}
}

// NewClient returns a standard [http.Client], retrying requests if configured to.
func NewClient(opts ...ClientOption) *http.Client {
	co := &clientOptions{
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(co)
	}
	c := &http.Client{
		Timeout:   co.timeout,
		Transport: co.transport,
	}
	if co.retryOptions == nil {
		return c
	}

	log := co.retryOptions.logger
	rc := retryablehttp.Client{
		HTTPClient:   c,
		Logger:       nil,
		RetryWaitMin: co.retryOptions.waitMin,
		RetryWaitMax: co.retryOptions.waitMax,
		RetryMax:     co.retryOptions.maxRetries,
		RequestLogHook: func(l retryablehttp.Logger, req *http.Request, i int) {
			log.Debug("sending http request", zap.String("url", req.URL.String()), zap.Int("request_attempt_count", i))
		},
		ResponseLogHook: func(l retryablehttp.Logger, resp *http.Response) {
			log.Debug("received http response", zap.String("url", resp.Request.URL.String()), zap.Int("http_status_code", resp.StatusCode))
		},
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb     *gobreaker.CircuitBreaker
	failed func(int) bool
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if rt.failed(resp.StatusCode) {
			resp.Body.Close()
			return nil, StatusCodeError{StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
