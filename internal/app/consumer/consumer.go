package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/app/audit"
	"aws-sqs-http-gateway/internal/pkg/cache"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
	"aws-sqs-http-gateway/internal/pkg/queue"
	"aws-sqs-http-gateway/internal/pkg/supplier"
)

// ErrInvalidMessage marks messages that can never be processed.
var ErrInvalidMessage = errors.New("invalid exchange message")

type Config struct {
	WorkerPoolSize  int
	PollingInterval time.Duration
	DedupTTL        time.Duration
}

// Recoverer is implemented by queue backends that can hand back messages a
// previous run left in flight.
type Recoverer interface {
	Recover(ctx context.Context) (int, error)
}

// Consumer moves exchange messages from the queue into the audit store.
type Consumer struct {
	Queue     queue.QueueClient
	Cache     cache.Client
	Store     audit.Store
	Validator *validator.Validate
	Config    Config
}

// Run polls until ctx is done and returns once every worker has stopped.
func (c *Consumer) Run(ctx context.Context) {
	if r, ok := c.Queue.(Recoverer); ok {
		if n, err := r.Recover(ctx); err != nil {
			logger.Error("Failed to recover in-flight messages", zap.Error(err))
		} else if n > 0 {
			logger.Info("Recovered in-flight messages", zap.Int("count", n))
		}
	}

	messages := make(chan types.Message, c.Config.WorkerPoolSize)
	var wg sync.WaitGroup
	for i := 0; i < c.Config.WorkerPoolSize; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-messages:
					c.safeProcess(ctx, msg)
				}
			}
		}()
	}

	c.poll(ctx, messages)
	wg.Wait()
	logger.Info("Message workers stopped")
}

func (c *Consumer) poll(ctx context.Context, messages chan<- types.Message) {
	for {
		if ctx.Err() != nil {
			logger.Info("Stopping message polling loop")
			return
		}

		// A failed receive may still have moved part of a batch; those
		// messages are dispatched so they are not left in flight.
		batch, err := c.Queue.GetMessages(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("Failed to get messages", zap.Error(err), zap.Int("received", len(batch)))
		}
		if err == nil || len(batch) > 0 {
			metrics.QueueLength.Set(float64(len(batch)))
			c.dispatch(ctx, batch, messages)
		}

		select {
		case <-ctx.Done():
		case <-time.After(c.Config.PollingInterval):
		}
	}
}

// dispatch hands the batch to the workers. Messages that find every worker
// busy are released so the queue delivers them again.
func (c *Consumer) dispatch(ctx context.Context, batch []types.Message, messages chan<- types.Message) {
	for _, msg := range batch {
		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		default:
			logger.WarnCtx(ctx, "Worker queue full, releasing message", zap.String("message_id", aws.ToString(msg.MessageId)))
			if err := c.Queue.ReleaseMessage(ctx, msg); err != nil {
				logger.ErrorCtx(ctx, "Failed to release message", zap.Error(err))
			}
		}
	}
}

func (c *Consumer) safeProcess(ctx context.Context, msg types.Message) {
	defer func() {
		if r := recover(); r != nil {
			metrics.MessagesFailed.Inc()
			logger.Error("Worker panic while processing message",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Any("panic", r), zap.String("stack", string(debug.Stack())))
		}
	}()
	c.process(ctx, msg)
}

func (c *Consumer) process(ctx context.Context, msg types.Message) {
	start := time.Now()
	defer func() {
		metrics.MessageProcessingTime.Observe(time.Since(start).Seconds())
	}()

	e, err := c.decode(msg)
	if err != nil {
		logger.ErrorCtx(ctx, "Invalid exchange message", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
		metrics.MessagesFailed.Inc()
		c.delete(ctx, msg)
		return
	}
	if e.TraceID != "" {
		ctx = logger.WithTraceID(ctx, e.TraceID)
	}

	key := c.Cache.Key(e.MessageID)
	if _, err := c.Cache.Get(ctx, key); err == nil {
		logger.WarnCtx(ctx, "Duplicate exchange message", zap.String("message_id", e.MessageID))
		metrics.MessagesDuplicated.Inc()
		c.delete(ctx, msg)
		return
	} else if !errors.Is(err, cache.ErrNotFound) {
		logger.WarnCtx(ctx, "Failed to check dedup cache", zap.Error(err))
	}

	if err := c.Store.Save(ctx, e); err != nil {
		logger.ErrorCtx(ctx, "Failed to store exchange, releasing message", zap.String("message_id", e.MessageID), zap.Error(err))
		metrics.MessagesFailed.Inc()
		if err := c.Queue.ReleaseMessage(ctx, msg); err != nil {
			logger.ErrorCtx(ctx, "Failed to release message", zap.Error(err))
		}
		return
	}

	if err := c.Cache.Set(ctx, key, "1", c.Config.DedupTTL); err != nil {
		logger.WarnCtx(ctx, "Failed to cache exchange id", zap.Error(err))
	}
	c.delete(ctx, msg)

	metrics.MessagesProcessed.Inc()
	logger.InfoCtx(ctx, "Stored exchange",
		zap.String("message_id", e.MessageID),
		zap.String("message_type", e.MessageType),
		zap.String("supplier_code", e.SupplierCode))
}

func (c *Consumer) delete(ctx context.Context, msg types.Message) {
	if err := c.Queue.DeleteMessage(ctx, msg); err != nil {
		logger.ErrorCtx(ctx, "Failed to delete message", zap.String("message_id", aws.ToString(msg.MessageId)), zap.Error(err))
	}
}

func (c *Consumer) decode(msg types.Message) (*audit.Exchange, error) {
	e, err := Decode(msg)
	if err != nil {
		return nil, err
	}
	if err := c.Validator.Struct(e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return e, nil
}

// Decode reads the exchange attributes and body of msg.
func Decode(msg types.Message) (*audit.Exchange, error) {
	attr := func(name string) string {
		return aws.ToString(msg.MessageAttributes[name].StringValue)
	}

	e := &audit.Exchange{
		MessageID:    aws.ToString(msg.MessageId),
		MessageType:  attr(supplier.AttrMessageType),
		SupplierCode: attr(supplier.AttrSupplierCode),
		TraceID:      attr(supplier.AttrTraceID),
		TenantID:     attr(supplier.AttrTenantID),
		TenantName:   attr(supplier.AttrTenantName),
		OrderID:      attr(supplier.AttrOrderID),
		BookingRef:   attr(supplier.AttrBookingRef),
	}

	if ts := attr(supplier.AttrTimeStamp); ts != "" {
		sentAt, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidMessage, err)
		}
		e.SentAt = &sentAt
	}

	var body supplier.Body
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &body); err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrInvalidMessage, err)
	}
	request, response, err := body.Decode()
	if err != nil {
		return nil, fmt.Errorf("%w: body: %v", ErrInvalidMessage, err)
	}
	e.Request, e.Response = request, response

	return e, nil
}
