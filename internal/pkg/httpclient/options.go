package httpclient

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"aws-sqs-http-gateway/internal/pkg/broker"
	"aws-sqs-http-gateway/internal/pkg/retry"
)

// DefaultTimeout applies when neither the profile nor the client sets one.
const DefaultTimeout = 5 * time.Second

// Settings are the client defaults a profile hands to its clients.
type Settings struct {
	BaseURL     string
	BaseParams  url.Values
	BaseHeaders http.Header
	Cookies     map[string]string
	Auth        Authenticator
	Proxy       string
	Cert        *tls.Certificate
	Timeout     time.Duration // zero disables the timeout

	Retry       *retry.Strategy
	RequestLog  RequestLogConfig
	ResponseLog ResponseLogConfig
	Publisher   broker.Publisher
	Builder     MessageBuilder

	// Values are client-level inputs for a profile's DetailsHook.
	Values map[string]any
}

// DefaultSettings returns the settings of a fresh profile.
func DefaultSettings() Settings {
	return Settings{
		Timeout:     DefaultTimeout,
		RequestLog:  DefaultRequestLogConfig(),
		ResponseLog: DefaultResponseLogConfig(),
	}
}

func (s Settings) clone() Settings {
	out := s
	if s.BaseParams != nil {
		out.BaseParams = cloneValues(s.BaseParams)
	}
	if s.BaseHeaders != nil {
		out.BaseHeaders = s.BaseHeaders.Clone()
	}
	if s.Cookies != nil {
		out.Cookies = make(map[string]string, len(s.Cookies))
		for k, v := range s.Cookies {
			out.Cookies[k] = v
		}
	}
	if s.Values != nil {
		out.Values = make(map[string]any, len(s.Values))
		for k, v := range s.Values {
			out.Values[k] = v
		}
	}
	return out
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// Option overrides a client or profile setting.
type Option func(*Settings)

func WithBaseURL(u string) Option {
	return func(s *Settings) { s.BaseURL = u }
}

func WithBaseParams(params url.Values) Option {
	return func(s *Settings) { s.BaseParams = params }
}

func WithBaseHeaders(h http.Header) Option {
	return func(s *Settings) { s.BaseHeaders = h }
}

func WithCookies(cookies map[string]string) Option {
	return func(s *Settings) { s.Cookies = cookies }
}

func WithAuth(a Authenticator) Option {
	return func(s *Settings) { s.Auth = a }
}

// WithProxy routes requests through the proxy URL.
func WithProxy(proxy string) Option {
	return func(s *Settings) { s.Proxy = proxy }
}

// WithCert presents a client certificate.
func WithCert(cert *tls.Certificate) Option {
	return func(s *Settings) { s.Cert = cert }
}

// WithTimeout sets the per-attempt timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Settings) { s.Timeout = d }
}

func WithRetry(strategy *retry.Strategy) Option {
	return func(s *Settings) { s.Retry = strategy }
}

func WithRequestLog(cfg RequestLogConfig) Option {
	return func(s *Settings) { s.RequestLog = cfg }
}

func WithResponseLog(cfg ResponseLogConfig) Option {
	return func(s *Settings) { s.ResponseLog = cfg }
}

func WithPublisher(p broker.Publisher) Option {
	return func(s *Settings) { s.Publisher = p }
}

func WithMessageBuilder(b MessageBuilder) Option {
	return func(s *Settings) { s.Builder = b }
}

// WithValue stores a client-level value for the profile's DetailsHook.
func WithValue(key string, value any) Option {
	return func(s *Settings) {
		if s.Values == nil {
			s.Values = map[string]any{}
		}
		s.Values[key] = value
	}
}

// RequestOptions are per-request inputs. Unset fields fall back to the client.
type RequestOptions struct {
	Name    string
	Tag     string
	Params  url.Values
	Header  http.Header
	Body    []byte
	JSON    any
	Details Details
	Values  map[string]any

	auth     Authenticator
	authSet  bool
	timeout  *time.Duration
	retry    *retry.Strategy
	retrySet bool
}

type RequestOption func(*RequestOptions)

func Name(name string) RequestOption {
	return func(o *RequestOptions) { o.Name = name }
}

func Tag(tag string) RequestOption {
	return func(o *RequestOptions) { o.Tag = tag }
}

// Params adds query parameters; they win over base params with the same key.
func Params(params url.Values) RequestOption {
	return func(o *RequestOptions) {
		if o.Params == nil {
			o.Params = url.Values{}
		}
		for k, vs := range params {
			o.Params[k] = append([]string(nil), vs...)
		}
	}
}

// Param sets one query parameter.
func Param(key, value string) RequestOption {
	return Params(url.Values{key: {value}})
}

// Headers adds request headers; they win over base headers.
func Headers(h http.Header) RequestOption {
	return func(o *RequestOptions) {
		if o.Header == nil {
			o.Header = http.Header{}
		}
		for k, vs := range h {
			o.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}

// Header sets one request header.
func Header(key, value string) RequestOption {
	return Headers(http.Header{key: {value}})
}

// Content sends body as is.
func Content(body string) RequestOption {
	return func(o *RequestOptions) { o.Body = []byte(body) }
}

// JSON sends v encoded as JSON.
func JSON(v any) RequestOption {
	return func(o *RequestOptions) { o.JSON = v }
}

// Auth overrides the client authenticator; nil sends no credentials.
func Auth(a Authenticator) RequestOption {
	return func(o *RequestOptions) { o.auth, o.authSet = a, true }
}

// Timeout overrides the client timeout; zero disables it.
func Timeout(d time.Duration) RequestOption {
	return func(o *RequestOptions) { o.timeout = &d }
}

// Retry overrides the client retry strategy; nil disables retries.
func Retry(strategy *retry.Strategy) RequestOption {
	return func(o *RequestOptions) { o.retry, o.retrySet = strategy, true }
}

// WithDetails seeds the request details. Keys given here are kept as is.
func WithDetails(d Details) RequestOption {
	return func(o *RequestOptions) {
		if o.Details == nil {
			o.Details = Details{}
		}
		for k, v := range d {
			o.Details[k] = v
		}
	}
}

// Value stores a request-level value for the profile's DetailsHook.
func Value(key string, value any) RequestOption {
	return func(o *RequestOptions) {
		if o.Values == nil {
			o.Values = map[string]any{}
		}
		o.Values[key] = value
	}
}
