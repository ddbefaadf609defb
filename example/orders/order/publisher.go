// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package order

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventType is the eventType message attribute of published orders.
const EventType = "order.created"

// SendMessageAPI is the subset of [*sqs.Client] used by [SQSPublisher].
type SendMessageAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher publishes orders as JSON messages to an SQS queue.
type SQSPublisher struct {
	sqs      SendMessageAPI
	queueURL string
}

// NewSQSPublisher returns a SQSPublisher for the queue at queueURL.
func NewSQSPublisher(client SendMessageAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{
		sqs:      client,
		queueURL: queueURL,
	}
}

// Publish implements the [Publisher] interface.
func (p *SQSPublisher) Publish(ctx context.Context, o Order) error {
	spanCtx, span := otel.Tracer("order").Start(ctx, "SQSPublisher.Publish")
	defer span.End()

	b, err := json.Marshal(o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	resp, err := p.sqs.SendMessage(spanCtx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(b)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(EventType),
			},
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("messaging.message.id", aws.ToString(resp.MessageId)))
	return nil
}
