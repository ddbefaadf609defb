// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package order implements the order routes of the example service.
package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/pkg/lambdaslog"
)

// Order is created by POST /orders.
type Order struct {
	ID        string    `json:"id"`
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the body of POST /orders.
type CreateRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Publisher records created orders, e.g. on an audit queue.
type Publisher interface {
	Publish(context.Context, Order) error
}

// Notifier tells a downstream system about created orders.
type Notifier interface {
	Notify(context.Context, any) error
}

// Option configures a [Service].
type Option func(*Service)

// LogHandler sets the [slog.Handler] used by the [Service].
func LogHandler(h slog.Handler) Option {
	return func(s *Service) {
		s.log = slog.New(lambdaslog.NewHandler(h))
	}
}

// Audit publishes every created order with p after the response is written.
func Audit(p Publisher) Option {
	return func(s *Service) {
		s.audit = p
	}
}

// Webhook notifies n about every created order after the response is written.
func Webhook(n Notifier) Option {
	return func(s *Service) {
		s.webhook = n
	}
}

// Clock overrides how the creation time of an order is read.
func Clock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service handles order routes.
type Service struct {
	log     *slog.Logger
	audit   Publisher
	webhook Notifier
	now     func() time.Time
}

// NewService returns a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		log: slog.New(lambdaslog.NewHandler(slog.Default().Handler())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create handles POST /orders. The order id is the id of the injected
// request, so it matches the AWS request id of the invocation.
func (s *Service) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := inject.FromContext(ctx)
	if !ok {
		inject.WriteError(w, http.StatusInternalServerError, "request was not injected")
		return
	}

	var body CreateRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		inject.WriteError(w, http.StatusBadRequest, "request body must be a JSON order")
		return
	}
	if body.Item == "" {
		inject.WriteError(w, http.StatusBadRequest, "item is required")
		return
	}
	if body.Quantity <= 0 {
		inject.WriteError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	o := Order{
		ID:        req.ID,
		Item:      body.Item,
		Quantity:  body.Quantity,
		CreatedBy: subject(req.Credentials),
		CreatedAt: s.now().UTC(),
	}
	s.log.InfoContext(ctx, "created order", slog.String("order_id", o.ID), slog.String("item", o.Item))

	if s.audit != nil {
		req.Go("order-audit", func(ctx context.Context) error {
			return s.audit.Publish(ctx, o)
		})
	}
	if s.webhook != nil {
		req.Go("order-webhook", func(ctx context.Context) error {
			return s.webhook.Notify(ctx, o)
		})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

// subject reads the "sub" claim of authorizer credentials.
func subject(creds any) string {
	claims, ok := creds.(map[string]any)
	if !ok {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
