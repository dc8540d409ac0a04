// Package broker defines the message handed to a broker backend and the
// publisher contract the backends implement.
package broker

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
)

const (
	DataTypeString = "String"
	DataTypeNumber = "Number"
	DataTypeBinary = "Binary"
)

// Attribute is a typed message attribute. Its shape follows SQS message
// attributes; other backends map it onto their own header model.
type Attribute struct {
	DataType         string   `json:"DataType"`
	StringValue      *string  `json:"StringValue,omitempty"`
	BinaryValue      []byte   `json:"BinaryValue,omitempty"`
	StringListValues []string `json:"StringListValues,omitempty"`
	BinaryListValues [][]byte `json:"BinaryListValues,omitempty"`
}

// Number returns a Number attribute.
func Number(value int) Attribute {
	s := strconv.Itoa(value)
	return Attribute{DataType: DataTypeNumber, StringValue: &s}
}

// String returns a String attribute holding the default formatting of value.
func String(value any) Attribute {
	s := fmt.Sprint(value)
	return Attribute{DataType: DataTypeString, StringValue: &s}
}

// StringList returns a String attribute holding a list of values.
func StringList[T any](values []T) Attribute {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return Attribute{DataType: DataTypeString, StringListValues: out}
}

// Binary returns a Binary attribute.
func Binary(value []byte) Attribute {
	return Attribute{DataType: DataTypeBinary, BinaryValue: value}
}

// BinaryList returns a Binary attribute holding a list of values.
func BinaryList(values [][]byte) Attribute {
	return Attribute{DataType: DataTypeBinary, BinaryListValues: values}
}

// Text returns the attribute's scalar string value or "".
func (a Attribute) Text() string {
	if a.StringValue == nil {
		return ""
	}
	return *a.StringValue
}

// Message is what a Publisher sends.
type Message struct {
	Attributes map[string]Attribute
	Body       string
}

// NewMessage returns nil when both parts are empty.
func NewMessage(attributes map[string]Attribute, body string) *Message {
	if len(attributes) == 0 && body == "" {
		return nil
	}
	return &Message{Attributes: attributes, Body: body}
}

// Publisher sends messages to a broker.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, msg *Message) error

func (f PublisherFunc) Publish(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// LogPublisher writes messages to the structured log instead of a broker.
type LogPublisher struct {
	LogAttributes bool
	LogBody       bool
}

func (p LogPublisher) Publish(ctx context.Context, msg *Message) error {
	fields := []zap.Field{zap.Int("attribute_count", len(msg.Attributes))}
	if p.LogAttributes {
		fields = append(fields, zap.Any("attributes", msg.Attributes))
	}
	if p.LogBody {
		fields = append(fields, zap.String("body", msg.Body))
	}
	logger.InfoCtx(ctx, "Broker message", fields...)
	metrics.BrokerMessagesPublished.WithLabelValues("log", "success").Inc()
	return nil
}
