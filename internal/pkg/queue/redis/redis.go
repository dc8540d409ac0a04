package redisQueue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
)

// Commands is the part of the redis client the queue uses.
type Commands interface {
	BRPopLPush(ctx context.Context, source, destination string, timeout time.Duration) *redis.StringCmd
	RPopLPush(ctx context.Context, source, destination string) *redis.StringCmd
	LRem(ctx context.Context, key string, count int64, value interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// RedisActions provides methods to interact with a Redis queue.
type RedisActions struct {
	Client Commands // Redis client
	Config *Config  // Configuration for Redis queue
}

type Config struct {
	Key            string        // Redis list key
	WorkerPoolSize int           // Number of workers to process messages
	WaitTime       time.Duration // Blocking wait for the first message of a batch
}

// New creates a new redis client.
func New(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

// ProcessingKey is the list holding messages handed to a worker.
func (q *RedisActions) ProcessingKey() string {
	return q.Config.Key + ":processing"
}

// GetMessages moves up to WorkerPoolSize messages to the processing list.
// Only the first pop blocks. A failure after the first pop ends the batch
// early without an error. Each message carries its raw list entry as the
// receipt handle so it can be removed or released later.
func (q *RedisActions) GetMessages(ctx context.Context) ([]types.Message, error) {
	var messages []types.Message
	processingKey := q.ProcessingKey()

	for i := 0; i < q.Config.WorkerPoolSize; i++ {
		var res string
		var err error
		if i == 0 {
			res, err = q.Client.BRPopLPush(ctx, q.Config.Key, processingKey, q.Config.WaitTime).Result()
		} else {
			res, err = q.Client.RPopLPush(ctx, q.Config.Key, processingKey).Result()
		}

		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			if len(messages) == 0 {
				return nil, err
			}
			// The popped entries already sit in the processing list.
			logger.Warn("Returning partial redis queue batch", zap.Int("received", len(messages)), zap.Error(err))
			return messages, nil
		}

		var msg types.Message
		if err := json.Unmarshal([]byte(res), &msg); err != nil {
			// Not an envelope; drop it from processing so it does not block the list.
			logger.Error("discarding undecodable redis queue entry", zap.Error(err))
			q.Client.LRem(ctx, processingKey, 1, res)
			continue
		}
		raw := res
		msg.ReceiptHandle = &raw
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil, nil
	}
	return messages, nil
}

// DeleteMessage removes a finished message from the processing list.
func (q *RedisActions) DeleteMessage(ctx context.Context, msg types.Message) error {
	raw, err := rawEntry(msg)
	if err != nil {
		return err
	}
	return q.Client.LRem(ctx, q.ProcessingKey(), 1, raw).Err()
}

// ReleaseMessage moves a message from the processing list back to the queue.
func (q *RedisActions) ReleaseMessage(ctx context.Context, msg types.Message) error {
	raw, err := rawEntry(msg)
	if err != nil {
		return err
	}
	if err := q.Client.LRem(ctx, q.ProcessingKey(), 1, raw).Err(); err != nil {
		return err
	}
	return q.Client.LPush(ctx, q.Config.Key, raw).Err()
}

// Recover moves entries left in the processing list by a previous run back
// to the queue and returns how many were moved.
func (q *RedisActions) Recover(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.Client.RPopLPush(ctx, q.ProcessingKey(), q.Config.Key).Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

func rawEntry(msg types.Message) (string, error) {
	if msg.ReceiptHandle != nil {
		return *msg.ReceiptHandle, nil
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
