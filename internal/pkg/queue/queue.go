package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// QueueClient is the consumer side of a queue backend.
type QueueClient interface {
	// GetMessages returns the next batch, possibly empty.
	GetMessages(ctx context.Context) ([]types.Message, error)
	// DeleteMessage acknowledges a processed message.
	DeleteMessage(ctx context.Context, msg types.Message) error
	// ReleaseMessage hands a message back so it is delivered again.
	ReleaseMessage(ctx context.Context, msg types.Message) error
}
