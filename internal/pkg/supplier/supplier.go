// Package supplier provides the HTTP client flavour used for supplier APIs:
// its own profile, supplier-aware logs and the SQS exchange message builder.
package supplier

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/pkg/httpclient"
)

const (
	DetailSupplierCode  = "supplier_code"
	DetailSupplierLabel = "supplier_label"

	// UnknownCode is used when neither the request nor the client names a supplier.
	UnknownCode = "UNKNOWN"

	valueCode  = "supplier_code"
	valueLabel = "supplier_label"
)

// DefaultRequestLogConfig adds the supplier_code field to the HTTP defaults.
func DefaultRequestLogConfig() httpclient.RequestLogConfig {
	cfg := httpclient.DefaultRequestLogConfig()
	cfg.DetailFields = []string{DetailSupplierCode}
	return cfg
}

// DefaultResponseLogConfig adds the supplier_code field to the HTTP defaults.
func DefaultResponseLogConfig() httpclient.ResponseLogConfig {
	cfg := httpclient.DefaultResponseLogConfig()
	cfg.DetailFields = []string{DetailSupplierCode}
	return cfg
}

// completeDetails sets supplier_code from the request or client value and
// defaults supplier_label to the code. Given details are kept.
func completeDetails(d httpclient.Details, values map[string]any) {
	if !d.Has(DetailSupplierCode) {
		code, _ := values[valueCode].(string)
		if code == "" {
			code = UnknownCode
		}
		d[DetailSupplierCode] = code
	}
	if !d.Has(DetailSupplierLabel) {
		label, _ := values[valueLabel].(string)
		if label == "" {
			label = d.String(DetailSupplierCode)
		}
		d[DetailSupplierLabel] = label
	}
}

// Formatter names the supplier in the HTTP client log messages.
type Formatter struct {
	httpclient.DefaultFormatter
}

func (f Formatter) RequestLog(req *httpclient.Request, d httpclient.Details, cfg httpclient.RequestLogConfig) (string, []zap.Field) {
	msg, fields := f.DefaultFormatter.RequestLog(req, d, cfg)
	return withSupplier(msg, "to", d), fields
}

func (f Formatter) ResponseLog(resp *httpclient.Response, d httpclient.Details, cfg httpclient.ResponseLogConfig) (string, []zap.Field) {
	msg, fields := f.DefaultFormatter.ResponseLog(resp, d, cfg)
	return withSupplier(msg, "from", d), fields
}

// withSupplier turns "HEAD: REST" into "HEAD to [LABEL] supplier: REST".
func withSupplier(msg, preposition string, d httpclient.Details) string {
	head, rest, ok := strings.Cut(msg, ":")
	if !ok {
		return msg
	}
	return fmt.Sprintf("%s %s [%s] supplier:%s", head, preposition, d.String(DetailSupplierLabel), rest)
}

// NewProfile returns a profile with supplier defaults. It shares nothing with
// the plain HTTP client profile.
func NewProfile(name string, opts ...httpclient.Option) *httpclient.Profile {
	defaults := append([]httpclient.Option{
		httpclient.WithRequestLog(DefaultRequestLogConfig()),
		httpclient.WithResponseLog(DefaultResponseLogConfig()),
	}, opts...)
	return httpclient.NewProfile(name,
		httpclient.WithFormatter(Formatter{}),
		httpclient.WithDetailsHook(completeDetails),
		httpclient.WithDefaults(defaults...),
	)
}

var defaultProfile = NewProfile("supplier")

func Default() *httpclient.Profile {
	return defaultProfile
}

func Configure(opts ...httpclient.Option) {
	defaultProfile.Configure(opts...)
}

func OpenGlobal() error {
	return defaultProfile.OpenGlobal()
}

func CloseGlobal() {
	defaultProfile.CloseGlobal()
}

func New(opts ...httpclient.Option) *httpclient.Client {
	return defaultProfile.New(opts...)
}

// WithCode sets the client's supplier code.
func WithCode(code string) httpclient.Option {
	return httpclient.WithValue(valueCode, code)
}

// WithLabel sets the label used in logs and messages instead of the code.
func WithLabel(label string) httpclient.Option {
	return httpclient.WithValue(valueLabel, label)
}

// WithSupplierCode overrides the client's supplier code for one request. An
// empty code keeps the client's.
func WithSupplierCode(code string) httpclient.RequestOption {
	if code == "" {
		return func(*httpclient.RequestOptions) {}
	}
	return httpclient.Value(valueCode, code)
}

var statusClasses = map[string]httpclient.StatusClass{
	"info":         httpclient.StatusInfo,
	"redirect":     httpclient.StatusRedirect,
	"client_error": httpclient.StatusClientError,
	"server_error": httpclient.StatusServerError,
}

// Options maps a registry entry onto client options.
func Options(s configs.Supplier) []httpclient.Option {
	opts := []httpclient.Option{
		WithCode(s.Code),
		httpclient.WithBaseURL(s.BaseURL),
	}
	if s.Label != "" {
		opts = append(opts, WithLabel(s.Label))
	}
	if s.Timeout > 0 {
		opts = append(opts, httpclient.WithTimeout(s.Timeout))
	}
	if len(s.Headers) > 0 {
		h := make(http.Header, len(s.Headers))
		for k, v := range s.Headers {
			h.Set(k, v)
		}
		opts = append(opts, httpclient.WithBaseHeaders(h))
	}
	if s.Retry != nil && s.Retry.Attempts > 0 {
		cfg := httpclient.RetryConfig{
			Attempts:         s.Retry.Attempts,
			Delay:            s.Retry.Delay,
			OnTimeouts:       s.Retry.OnTimeouts,
			OnNetworkErrors:  s.Retry.OnNetworkErrors,
			OnProtocolErrors: s.Retry.OnProtocolErrors,
		}
		for _, name := range s.Retry.Statuses {
			if class, ok := statusClasses[name]; ok {
				cfg.OnStatuses = append(cfg.OnStatuses, class)
			}
		}
		opts = append(opts, httpclient.WithRetry(httpclient.NewRetryStrategy(cfg)))
	}

	reqLog := DefaultRequestLogConfig()
	reqLog.Headers, reqLog.Body = s.LogRequestHeaders, s.LogRequestBody
	respLog := DefaultResponseLogConfig()
	respLog.Headers, respLog.Body = s.LogResponseHeaders, s.LogResponseBody
	opts = append(opts, httpclient.WithRequestLog(reqLog), httpclient.WithResponseLog(respLog))

	return opts
}
