package httpclient

import (
	"context"
	"fmt"

	"aws-sqs-http-gateway/internal/pkg/broker"
)

// MessageBuilder turns an exchange into a broker message.
type MessageBuilder interface {
	// Filter reports whether the exchange produces a message at all.
	Filter(req *Request, resp *Response, d Details) bool
	BuildAttributes(ctx context.Context, req *Request, resp *Response, d Details) map[string]broker.Attribute
	BuildBody(ctx context.Context, req *Request, resp *Response, d Details) (string, error)
}

// BuildMessage runs b over the exchange. It returns nil when the exchange is
// filtered out or the message would be empty.
func BuildMessage(ctx context.Context, b MessageBuilder, req *Request, resp *Response, d Details) (*broker.Message, error) {
	if !b.Filter(req, resp, d) {
		return nil, nil
	}
	attrs := b.BuildAttributes(ctx, req, resp, d)
	body, err := b.BuildBody(ctx, req, resp, d)
	if err != nil {
		return nil, fmt.Errorf("build message body: %w", err)
	}
	return broker.NewMessage(attrs, body), nil
}
