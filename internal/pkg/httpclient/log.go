package httpclient

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// RequestLogConfig selects the fields of the request log entry. DetailFields
// names details logged as top-level fields.
type RequestLogConfig struct {
	Name         bool
	Tag          bool
	Method       bool
	URL          bool
	Headers      bool
	Body         bool
	DetailFields []string
}

// ResponseLogConfig selects the fields of the response log entry.
type ResponseLogConfig struct {
	Name         bool
	Tag          bool
	Method       bool
	URL          bool
	StatusCode   bool
	Headers      bool
	Body         bool
	ElapsedTime  bool
	DetailFields []string
}

// DefaultRequestLogConfig logs everything but headers and body.
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{Name: true, Tag: true, Method: true, URL: true}
}

// DefaultResponseLogConfig logs everything but headers and body.
func DefaultResponseLogConfig() ResponseLogConfig {
	return ResponseLogConfig{Name: true, Tag: true, Method: true, URL: true, StatusCode: true, ElapsedTime: true}
}

// LogFormatter renders the request and response log entries.
type LogFormatter interface {
	RequestLog(req *Request, d Details, cfg RequestLogConfig) (string, []zap.Field)
	ResponseLog(resp *Response, d Details, cfg ResponseLogConfig) (string, []zap.Field)
}

// DefaultFormatter groups request fields under "request" and response fields
// under "response". Empty groups are left out.
type DefaultFormatter struct{}

func (DefaultFormatter) RequestLog(req *Request, d Details, cfg RequestLogConfig) (string, []zap.Field) {
	group := map[string]any{}
	if cfg.Name {
		group["name"] = d[DetailRequestName]
	}
	if cfg.Tag {
		group["tag"] = d[DetailRequestTag]
	}
	if cfg.Method {
		group["method"] = req.Method
	}
	if cfg.URL {
		group["url"] = req.URL
	}
	if cfg.Headers {
		group["headers"] = flatten(req.Header)
	}
	if cfg.Body {
		group["body"] = req.Text()
	}

	var fields []zap.Field
	if len(group) > 0 {
		fields = append(fields, zap.Any("request", group))
	}
	fields = append(fields, detailFields(d, cfg.DetailFields)...)

	msg := fmt.Sprintf("Sending HTTP request [%s]: %s %s", d.String(DetailRequestLabel), req.Method, req.URL)
	return msg, fields
}

func (DefaultFormatter) ResponseLog(resp *Response, d Details, cfg ResponseLogConfig) (string, []zap.Field) {
	reqGroup := map[string]any{}
	if cfg.Name {
		reqGroup["name"] = d[DetailRequestName]
	}
	if cfg.Tag {
		reqGroup["tag"] = d[DetailRequestTag]
	}
	if cfg.Method {
		reqGroup["method"] = resp.Request.Method
	}
	if cfg.URL {
		reqGroup["url"] = resp.Request.URL
	}

	respGroup := map[string]any{}
	if cfg.StatusCode {
		respGroup["status_code"] = resp.StatusCode
	}
	if cfg.Headers {
		respGroup["headers"] = flatten(resp.Header)
	}
	if cfg.Body {
		respGroup["body"] = resp.Text()
	}
	if cfg.ElapsedTime {
		respGroup["elapsed_time"] = resp.Elapsed.Seconds()
	}

	var fields []zap.Field
	if len(reqGroup) > 0 {
		fields = append(fields, zap.Any("request", reqGroup))
	}
	if len(respGroup) > 0 {
		fields = append(fields, zap.Any("response", respGroup))
	}
	fields = append(fields, detailFields(d, cfg.DetailFields)...)

	msg := fmt.Sprintf("HTTP response received [%s]: %s %s -> %d",
		d.String(DetailRequestLabel), resp.Request.Method, resp.Request.URL, resp.StatusCode)
	return msg, fields
}

func detailFields(d Details, keys []string) []zap.Field {
	fields := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		fields = append(fields, zap.Any(key, d[key]))
	}
	return fields
}

func flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
