// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package service wires the orders example together.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/z5labs/lambdawrap/cli"
	"github.com/z5labs/lambdawrap/example/orders/order"
	"github.com/z5labs/lambdawrap/inject"
	"github.com/z5labs/lambdawrap/mux"
	"github.com/z5labs/lambdawrap/pkg/health"
	"github.com/z5labs/lambdawrap/pkg/httpclient"
	"github.com/z5labs/lambdawrap/pkg/httpvalidate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Config of the orders service.
type Config struct {
	cli.Config `config:",squash"`

	AWS struct {
		Region   string `config:"region"`
		Endpoint string `config:"endpoint"`
	} `config:"aws"`

	Audit struct {
		QueueURL string `config:"queueUrl"`
	} `config:"audit"`

	Webhook struct {
		URL        string        `config:"url"`
		Timeout    time.Duration `config:"timeout"`
		MaxRetries int           `config:"maxRetries"`
		TripCount  uint32        `config:"tripCount"`
	} `config:"webhook"`
}

// Init builds the routes of the orders service. The audit queue and the
// webhook are optional and only used when configured.
func Init(ctx context.Context, cfg Config) (http.Handler, error) {
	logHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Logging.Level,
	})

	opts := []order.Option{order.LogHandler(logHandler)}
	if cfg.Audit.QueueURL != "" {
		opts = append(opts, order.Audit(order.NewSQSPublisher(newSQSClient(cfg), cfg.Audit.QueueURL)))
	}

	var webhookHealth health.Binary
	if cfg.Webhook.URL != "" {
		n, err := newWebhook(cfg, &webhookHealth)
		if err != nil {
			return nil, err
		}
		opts = append(opts, order.Webhook(n))
	}

	orders := order.NewService(opts...)

	r := mux.New()
	r.Handle(mux.MethodGet, "/health", health.NewHandler(&webhookHealth))
	r.Handle(mux.MethodPost, "/orders", httpvalidate.Request(
		http.HandlerFunc(orders.Create),
		httpvalidate.ContentType("application/json"),
		httpvalidate.MaxBodyBytes(64<<10),
	))
	return r, nil
}

func newSQSClient(cfg Config) *sqs.Client {
	creds := aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			Source:          "Environment",
		}, nil
	})

	region := cfg.AWS.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return sqs.New(sqs.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(creds),
	}, func(o *sqs.Options) {
		if cfg.AWS.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.Endpoint)
		}
	})
}

func newWebhook(cfg Config, h *health.Binary) (*httpclient.Webhook, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	circuit := []httpclient.CircuitOption{
		httpclient.CircuitName("order-webhook"),
		httpclient.CircuitLogger(logger),
		httpclient.CircuitHealth(h),
	}
	if cfg.Webhook.TripCount > 0 {
		circuit = append(circuit, httpclient.CircuitTripCount(cfg.Webhook.TripCount))
	}

	client := httpclient.NewClient(
		httpclient.ClientTimeout(cfg.Webhook.Timeout),
		httpclient.WithTransport(httpclient.RoundTripperWith(
			http.DefaultTransport,
			httpclient.CircuitBreaker(circuit...),
		)),
		httpclient.RetryRequests(
			httpclient.MaxRetries(cfg.Webhook.MaxRetries),
			httpclient.RetryAttemptLogger(logger),
		),
	)
	return httpclient.NewWebhook(cfg.Webhook.URL, client), nil
}

// AuthorizerCredentials attaches the API Gateway authorizer output to the
// injected request, preferring Cognito style claims when present.
func AuthorizerCredentials(ctx context.Context, event events.APIGatewayProxyRequest, opts *inject.Options) {
	authorizer := event.RequestContext.Authorizer
	if claims, ok := authorizer["claims"].(map[string]any); ok {
		opts.Credentials = claims
		return
	}
	if len(authorizer) > 0 {
		opts.Credentials = authorizer
	}
}
