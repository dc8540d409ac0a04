package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
)

// SQSSender is the part of the SQS client the publisher uses.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends messages to one SQS queue.
type SQSPublisher struct {
	Client        SQSSender
	QueueURL      string
	LogAttributes bool
	LogBody       bool
}

// SQSAttributes converts message attributes to the SQS wire type.
func SQSAttributes(attrs map[string]Attribute) map[string]types.MessageAttributeValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]types.MessageAttributeValue, len(attrs))
	for name, a := range attrs {
		out[name] = types.MessageAttributeValue{
			DataType:         aws.String(a.DataType),
			StringValue:      a.StringValue,
			BinaryValue:      a.BinaryValue,
			StringListValues: a.StringListValues,
			BinaryListValues: a.BinaryListValues,
		}
	}
	return out
}

func (p *SQSPublisher) Publish(ctx context.Context, msg *Message) error {
	out, err := p.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.QueueURL),
		MessageAttributes: SQSAttributes(msg.Attributes),
		MessageBody:       aws.String(msg.Body),
	})
	if err != nil {
		metrics.BrokerMessagesPublished.WithLabelValues("sqs", "failure").Inc()
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			logger.ErrorCtx(ctx, fmt.Sprintf("Failed to send SQS message due to ClientError: %s - %s",
				apiErr.ErrorCode(), apiErr.ErrorMessage()),
				zap.String("error_code", apiErr.ErrorCode()),
				zap.String("error_message", apiErr.ErrorMessage()))
		} else {
			logger.ErrorCtx(ctx, "Failed to send SQS message", zap.Error(err))
		}
		return fmt.Errorf("send sqs message: %w", err)
	}

	metrics.BrokerMessagesPublished.WithLabelValues("sqs", "success").Inc()
	fields := []zap.Field{zap.String("message_id", aws.ToString(out.MessageId))}
	if p.LogAttributes {
		fields = append(fields, zap.Any("attributes", msg.Attributes))
	}
	if p.LogBody {
		fields = append(fields, zap.String("body", msg.Body))
	}
	logger.InfoCtx(ctx, "Sent SQS message successfully", fields...)
	return nil
}
