package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/retry"
)

var supportedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Client sends requests through its local transport when open, else through
// the profile's global transport, else it opens a local transport lazily.
type Client struct {
	profile  *Profile
	settings Settings

	mu    sync.Mutex
	local *transport
}

// Settings returns a copy of the client settings.
func (c *Client) Settings() Settings {
	return c.settings.clone()
}

// Open builds the local transport from the client settings.
func (c *Client) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openLocked()
}

func (c *Client) openLocked() error {
	if c.local != nil {
		return nil
	}
	t, err := newTransport(c.profile.name, c.settings)
	if err != nil {
		return err
	}
	c.local = t
	return nil
}

// Close releases the local transport.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local != nil {
		c.local.close()
		c.local = nil
	}
}

// Scoped opens a local transport, runs fn and closes the transport.
func (c *Client) Scoped(fn func(*Client) error) error {
	if err := c.Open(); err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func (c *Client) currentTransport() (*transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.local != nil {
		return c.local, nil
	}
	if g := c.profile.globalTransport(); g != nil {
		return g, nil
	}
	if err := c.openLocked(); err != nil {
		return nil, err
	}
	return c.local, nil
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, url, opts...)
}

func (c *Client) Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, url, opts...)
}

func (c *Client) Put(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, url, opts...)
}

func (c *Client) Patch(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, url, opts...)
}

func (c *Client) Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, url, opts...)
}

// Request sends one logical request, retried per the effective strategy.
// When retries are exhausted on a status code the last response is returned
// together with a *retry.Error.
func (c *Client) Request(ctx context.Context, method, rawURL string, opts ...RequestOption) (*Response, error) {
	if !supportedMethods[method] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	var ro RequestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	details := requestDetails(ro.Details, ro.Name, ro.Tag)
	if c.profile.hook != nil {
		c.profile.hook(details, mergeValues(c.settings.Values, ro.Values))
	}

	t, err := c.currentTransport()
	if err != nil {
		return nil, err
	}

	req, err := c.buildRequest(method, rawURL, &ro)
	if err != nil {
		return nil, err
	}

	auth := c.settings.Auth
	if ro.authSet {
		auth = ro.auth
	}
	timeout := c.settings.Timeout
	if ro.timeout != nil {
		timeout = *ro.timeout
	}
	strategy := c.settings.Retry
	if ro.retrySet {
		strategy = ro.retry
	}

	ctx = withAttemptInfo(ctx, attemptInfo{
		client: c.profile.name,
		label:  details.String(DetailRequestLabel),
		method: req.Method,
		url:    req.URL,
	})

	resp, err := retry.Do(ctx, strategy, func(ctx context.Context) (*Response, error) {
		return c.send(ctx, t, req, auth, timeout, details)
	})
	if err != nil {
		return resp, err
	}

	c.publish(ctx, req, resp, details)
	return resp, nil
}

func (c *Client) buildRequest(method, rawURL string, ro *RequestOptions) (*Request, error) {
	target, err := c.settings.resolve(rawURL, ro.Params)
	if err != nil {
		return nil, err
	}
	header := c.settings.header(ro.Header)

	body := ro.Body
	if ro.JSON != nil {
		if body, err = json.Marshal(ro.JSON); err != nil {
			return nil, fmt.Errorf("encode json body: %w", err)
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
	}

	return &Request{Method: method, URL: target, Header: header, Body: body}, nil
}

func (c *Client) send(ctx context.Context, t *transport, req *Request, auth Authenticator, timeout time.Duration, d Details) (*Response, error) {
	msg, fields := c.profile.formatter.RequestLog(req, d, c.settings.RequestLog)
	logger.InfoCtx(ctx, msg, fields...)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header = req.Header.Clone()
	if auth != nil {
		if err := auth.Authenticate(httpReq); err != nil {
			return nil, fmt.Errorf("authenticate request: %w", err)
		}
	}

	start := time.Now()
	httpResp, err := t.do(httpReq, c.settings.Cookies)
	if err != nil {
		return nil, c.transportError(ctx, req, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.transportError(ctx, req, err)
	}

	resp := &Response{
		Request:    req,
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
		Elapsed:    time.Since(start),
	}
	msg, fields = c.profile.formatter.ResponseLog(resp, d, c.settings.ResponseLog)
	logger.InfoCtx(ctx, msg, fields...)
	return resp, nil
}

// transportError wraps a failed attempt. Cancellation of the caller's
// context is returned unwrapped.
func (c *Client) transportError(ctx context.Context, req *Request, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &TransportError{Kind: Classify(err), Method: req.Method, URL: req.URL, Err: err}
}

func (c *Client) publish(ctx context.Context, req *Request, resp *Response, d Details) {
	if c.settings.Publisher == nil || c.settings.Builder == nil {
		return
	}
	label := d.String(DetailRequestLabel)

	msg, err := BuildMessage(ctx, c.settings.Builder, req, resp, d)
	if err != nil {
		logger.WarnCtx(ctx, fmt.Sprintf("Failed to build broker message for HTTP request [%s]", label), zap.Error(err))
		return
	}
	if msg == nil {
		return
	}

	logger.InfoCtx(ctx, fmt.Sprintf("Sending HTTP request [%s] message to broker", label))
	if err := c.settings.Publisher.Publish(ctx, msg); err != nil {
		logger.WarnCtx(ctx, fmt.Sprintf("Failed to send HTTP request [%s] message to broker", label), zap.Error(err))
	}
}

func mergeValues(client, request map[string]any) map[string]any {
	out := make(map[string]any, len(client)+len(request))
	for k, v := range client {
		out[k] = v
	}
	for k, v := range request {
		out[k] = v
	}
	return out
}
