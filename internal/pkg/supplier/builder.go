package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"aws-sqs-http-gateway/internal/pkg/broker"
	"aws-sqs-http-gateway/internal/pkg/httpclient"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/textutil"
)

// Exchange message attribute names.
const (
	AttrMessageType  = "MessageType"
	AttrSupplierCode = "SupplierCode"
	AttrTraceID      = "TraceId"
	AttrTenantID     = "TenantId"
	AttrTenantName   = "TenantName"
	AttrOrderID      = "OrderId"
	AttrBookingRef   = "BookingRef"
	AttrTimeStamp    = "TimeStamp"
)

// Details read by the message builder.
const (
	DetailTraceID    = "trace_id"
	DetailTenantID   = "tenant_id"
	DetailTenantName = "tenant_name"
	DetailOrderID    = "order_id"
	DetailBookingRef = "booking_ref"
)

var optionalAttributes = []struct{ detail, attr string }{
	{DetailTenantID, AttrTenantID},
	{DetailTenantName, AttrTenantName},
	{DetailOrderID, AttrOrderID},
	{DetailBookingRef, AttrBookingRef},
}

// DefaultMaskers hide card numbers and series codes before payloads leave
// the process.
var DefaultMaskers = []func(string) string{
	textutil.MaskCardNumber,
	textutil.MaskSeriesCode,
}

// Body is the exchange message body. Both parts hold zlib-compressed,
// base64-encoded text.
type Body struct {
	Request  string `json:"request"`
	Response string `json:"response"`
}

// Encode renders the body as JSON with a space after each separator.
func (b Body) Encode() (string, error) {
	request, err := json.Marshal(b.Request)
	if err != nil {
		return "", err
	}
	response, err := json.Marshal(b.Response)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"request": %s, "response": %s}`, request, response), nil
}

// Decode returns the plain request and response text.
func (b Body) Decode() (request, response string, err error) {
	if request, err = textutil.DecodeAndDecompress(b.Request); err != nil {
		return "", "", fmt.Errorf("request: %w", err)
	}
	if response, err = textutil.DecodeAndDecompress(b.Response); err != nil {
		return "", "", fmt.Errorf("response: %w", err)
	}
	return request, response, nil
}

// SQSMessageBuilder builds exchange messages for supplier requests. Only
// requests whose name is allowed and whose tag is not disallowed produce a
// message; a nil allow list lets nothing through.
type SQSMessageBuilder struct {
	AllowedRequestNames   []string
	DisallowedRequestTags []string
	// Maskers run over the request and response text. Nil means DefaultMaskers.
	Maskers []func(string) string
}

func (b SQSMessageBuilder) Filter(req *httpclient.Request, resp *httpclient.Response, d httpclient.Details) bool {
	if b.AllowedRequestNames == nil {
		return false
	}
	if !slices.Contains(b.AllowedRequestNames, d.String(httpclient.DetailRequestName)) {
		return false
	}
	tag := d.String(httpclient.DetailRequestTag)
	return tag == "" || !slices.Contains(b.DisallowedRequestTags, tag)
}

func (b SQSMessageBuilder) BuildAttributes(ctx context.Context, req *httpclient.Request, resp *httpclient.Response, d httpclient.Details) map[string]broker.Attribute {
	attrs := map[string]broker.Attribute{
		AttrMessageType:  broker.String(d.String(httpclient.DetailRequestLabel)),
		AttrSupplierCode: broker.String(d.String(DetailSupplierLabel)),
		AttrTraceID:      broker.String(traceID(ctx, d)),
	}
	for _, o := range optionalAttributes {
		if v := d.String(o.detail); v != "" {
			attrs[o.attr] = broker.String(v)
		}
	}
	attrs[AttrTimeStamp] = broker.String(time.Now().UTC().Format(time.RFC3339))
	return attrs
}

func (b SQSMessageBuilder) BuildBody(ctx context.Context, req *httpclient.Request, resp *httpclient.Response, d httpclient.Details) (string, error) {
	request, err := textutil.CompressAndEncode(b.mask(req.Text()))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	response, err := textutil.CompressAndEncode(b.mask(resp.Text()))
	if err != nil {
		return "", fmt.Errorf("response: %w", err)
	}
	return Body{Request: request, Response: response}.Encode()
}

func (b SQSMessageBuilder) mask(text string) string {
	maskers := b.Maskers
	if maskers == nil {
		maskers = DefaultMaskers
	}
	for _, m := range maskers {
		text = m(text)
	}
	return text
}

// traceID prefers the trace_id detail, then the context trace, then a new id.
func traceID(ctx context.Context, d httpclient.Details) string {
	if id := d.String(DetailTraceID); id != "" {
		return id
	}
	if id := logger.TraceIDFromContext(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
