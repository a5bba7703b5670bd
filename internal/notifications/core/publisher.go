package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/abhinavuser/reflectometry/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// ReadingPublisher enqueues readings for asynchronous evaluation by the
// reading worker.
type ReadingPublisher struct {
	client   SQSSender
	queueURL string
	logger   types.Logger
}

// NewReadingPublisher creates a publisher targeting the readings queue.
func NewReadingPublisher(client SQSSender, queueURL string, logger types.Logger) *ReadingPublisher {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &ReadingPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// Publish serializes msg to JSON and sends it to the readings queue. The
// reading ID is attached as a message attribute for tracing in the console.
func (p *ReadingPublisher) Publish(ctx context.Context, msg types.ReadingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("reading publisher: failed to marshal message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"reading_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.ReadingID),
			},
		},
	}

	out, err := p.client.SendMessage(ctx, input)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeQueueUnavailable,
			fmt.Sprintf("failed to enqueue reading %s", msg.ReadingID),
			err,
		)
	}

	p.logger.Info("reading enqueued",
		"reading_id", msg.ReadingID,
		"message_id", aws.ToString(out.MessageId),
		"trace_id", msg.TraceID,
	)
	return nil
}
