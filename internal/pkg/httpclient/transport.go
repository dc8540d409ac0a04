package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	heimdallhttp "github.com/gojek/heimdall/v7/httpclient"

	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
)

// transport owns one connection pool. Proxy and client certificate are fixed
// when it is opened; everything else comes from the sending client.
type transport struct {
	name string
	pool *http.Transport
	doer *heimdallhttp.Client
}

func newTransport(name string, s Settings) (*transport, error) {
	pool := http.DefaultTransport.(*http.Transport).Clone()
	if s.Proxy != "" {
		proxyURL, err := url.Parse(s.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		pool.Proxy = http.ProxyURL(proxyURL)
	}
	if s.Cert != nil {
		pool.TLSClientConfig = &tls.Config{
			Certificates: []tls.Certificate{*s.Cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	// Retries and timeouts are applied per attempt by the client. Redirects
	// are returned as-is so the retry strategy can judge them.
	doer := heimdallhttp.NewClient(
		heimdallhttp.WithHTTPClient(&http.Client{
			Transport: keepAlive{pool},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}),
		heimdallhttp.WithRetryCount(0),
	)
	doer.AddPlugin(&metricsPlugin{client: name})

	return &transport{name: name, pool: pool, doer: doer}, nil
}

// keepAlive undoes the Close flag heimdall sets on every request, so
// connections go back to the pool.
type keepAlive struct {
	next http.RoundTripper
}

func (k keepAlive) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Close {
		req = req.Clone(req.Context())
		req.Close = false
	}
	return k.next.RoundTrip(req)
}

func (t *transport) close() {
	t.pool.CloseIdleConnections()
}

// resolve joins a relative URL with the base URL and merges query params.
func (s Settings) resolve(rawURL string, params url.Values) (string, error) {
	target := rawURL
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !u.IsAbs() && s.BaseURL != "" {
		target = strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(rawURL, "/")
		if u, err = url.Parse(target); err != nil {
			return "", fmt.Errorf("parse url: %w", err)
		}
	}

	if len(s.BaseParams) == 0 && len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range s.BaseParams {
		if !q.Has(k) {
			q[k] = append([]string(nil), vs...)
		}
	}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// header merges base headers with request headers.
func (s Settings) header(h http.Header) http.Header {
	out := http.Header{}
	for k, vs := range s.BaseHeaders {
		out[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (t *transport) do(req *http.Request, cookies map[string]string) (*http.Response, error) {
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	probe := &attemptProbe{}
	req = req.WithContext(context.WithValue(req.Context(), probeKey{}, probe))

	resp, err := t.doer.Do(req)
	if resp != nil {
		// heimdall reports 5xx as an error as well; the status is judged by
		// the retry strategy instead.
		return resp, nil
	}
	if probe.err != nil {
		return nil, probe.err
	}
	return nil, err
}

type probeKey struct{}

// attemptProbe carries what the heimdall plugin saw back to the caller,
// since heimdall flattens transport errors into strings.
type attemptProbe struct {
	start time.Time
	err   error
}

// metricsPlugin is a heimdall plugin recording raw errors and metrics.
type metricsPlugin struct {
	client string
}

func probeFrom(req *http.Request) *attemptProbe {
	if p, ok := req.Context().Value(probeKey{}).(*attemptProbe); ok {
		return p
	}
	return &attemptProbe{}
}

func (o *metricsPlugin) OnRequestStart(req *http.Request) {
	probeFrom(req).start = time.Now()
}

func (o *metricsPlugin) OnRequestEnd(req *http.Request, resp *http.Response) {
	p := probeFrom(req)
	metrics.HTTPClientRequests.WithLabelValues(o.client, req.Method, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
	if !p.start.IsZero() {
		metrics.HTTPClientRequestDuration.WithLabelValues(o.client, req.Method).Observe(time.Since(p.start).Seconds())
	}
}

func (o *metricsPlugin) OnError(req *http.Request, err error) {
	probeFrom(req).err = err
	metrics.HTTPClientRequests.WithLabelValues(o.client, req.Method, "error").Inc()
}
