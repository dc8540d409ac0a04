package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
)

// ListPusher is the part of the redis client the publisher uses.
type ListPusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisPublisher pushes messages onto a redis list as JSON encoded SQS
// messages, the format the redis queue backend reads.
type RedisPublisher struct {
	Client ListPusher
	Key    string
}

// Envelope wraps msg into an SQS message with a fresh id.
func Envelope(msg *Message) types.Message {
	return types.Message{
		MessageId:         aws.String(uuid.NewString()),
		Body:              aws.String(msg.Body),
		MessageAttributes: SQSAttributes(msg.Attributes),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, msg *Message) error {
	envelope := Envelope(msg)
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode redis message: %w", err)
	}
	if err := p.Client.LPush(ctx, p.Key, string(data)).Err(); err != nil {
		metrics.BrokerMessagesPublished.WithLabelValues("redis", "failure").Inc()
		logger.ErrorCtx(ctx, "Failed to push redis message", zap.String("key", p.Key), zap.Error(err))
		return fmt.Errorf("push redis message: %w", err)
	}
	metrics.BrokerMessagesPublished.WithLabelValues("redis", "success").Inc()
	logger.InfoCtx(ctx, "Pushed redis message successfully",
		zap.String("key", p.Key), zap.String("message_id", aws.ToString(envelope.MessageId)))
	return nil
}
