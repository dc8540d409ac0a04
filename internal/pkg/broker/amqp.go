package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
)

// AMQPChannel is the part of an amqp channel the publisher uses.
type AMQPChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPublisher publishes messages to a RabbitMQ exchange. Attributes are
// carried as headers.
type AMQPPublisher struct {
	Channel    AMQPChannel
	Exchange   string
	RoutingKey string

	conn    *amqp.Connection
	channel *amqp.Channel
}

// DialAMQP connects to RabbitMQ and opens a channel.
func DialAMQP(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	return &AMQPPublisher{
		Channel:    ch,
		Exchange:   exchange,
		RoutingKey: routingKey,
		conn:       conn,
		channel:    ch,
	}, nil
}

// Headers converts message attributes to AMQP headers.
func Headers(attrs map[string]Attribute) amqp.Table {
	if len(attrs) == 0 {
		return nil
	}
	table := amqp.Table{}
	for name, a := range attrs {
		switch {
		case a.StringValue != nil:
			table[name] = *a.StringValue
		case a.BinaryValue != nil:
			table[name] = a.BinaryValue
		case a.StringListValues != nil:
			values := make([]interface{}, len(a.StringListValues))
			for i, v := range a.StringListValues {
				values[i] = v
			}
			table[name] = values
		case a.BinaryListValues != nil:
			values := make([]interface{}, len(a.BinaryListValues))
			for i, v := range a.BinaryListValues {
				values[i] = v
			}
			table[name] = values
		}
	}
	return table
}

func (p *AMQPPublisher) Publish(ctx context.Context, msg *Message) error {
	err := p.Channel.Publish(p.Exchange, p.RoutingKey, false, false, amqp.Publishing{
		Headers:     Headers(msg.Attributes),
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		Body:        []byte(msg.Body),
	})
	if err != nil {
		metrics.BrokerMessagesPublished.WithLabelValues("amqp", "failure").Inc()
		logger.ErrorCtx(ctx, "Failed to publish AMQP message",
			zap.String("exchange", p.Exchange), zap.String("routing_key", p.RoutingKey), zap.Error(err))
		return fmt.Errorf("failed to publish to %s: %w", p.RoutingKey, err)
	}
	metrics.BrokerMessagesPublished.WithLabelValues("amqp", "success").Inc()
	logger.InfoCtx(ctx, "Published AMQP message successfully", zap.String("routing_key", p.RoutingKey))
	return nil
}

// Close cleans up the channel and connection opened by DialAMQP.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			return err
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
