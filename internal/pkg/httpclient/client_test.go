//go:build unit

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"aws-sqs-http-gateway/internal/pkg/broker"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/retry"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.InfoLevel)
	t.Cleanup(logger.Replace(zap.New(core)))
	return logs
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"method":%q,"query":%q,"auth":%q,"ctype":%q,"base":%q,"req":%q,"body":%q}`,
			r.Method, r.URL.RawQuery, r.Header.Get("Authorization"), r.Header.Get("Content-Type"),
			r.Header.Get("X-Base"), r.Header.Get("X-Req"), string(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type echo struct {
	Method string `json:"method"`
	Query  string `json:"query"`
	Auth   string `json:"auth"`
	CType  string `json:"ctype"`
	Base   string `json:"base"`
	Req    string `json:"req"`
	Body   string `json:"body"`
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "UNNAMED", Label("", ""))
	assert.Equal(t, "search", Label("search", ""))
	assert.Equal(t, "search-v2", Label("search", "v2"))
	assert.Equal(t, "UNNAMED-v2", Label("", "v2"))
}

func TestRequestDetailsKeepsGivenKeys(t *testing.T) {
	d := requestDetails(Details{DetailRequestLabel: "custom"}, "search", "v1")

	assert.Equal(t, "search", d[DetailRequestName])
	assert.Equal(t, "v1", d[DetailRequestTag])
	assert.Equal(t, "custom", d[DetailRequestLabel])

	d = requestDetails(nil, "", "")
	assert.Nil(t, d[DetailRequestName])
	assert.True(t, d.Has(DetailRequestTag))
	assert.Equal(t, "UNNAMED", d.String(DetailRequestLabel))
}

func TestRequestMergesBaseSettings(t *testing.T) {
	observeLogs(t)
	srv := echoServer(t)

	c := NewProfile("test").New(
		WithBaseURL(srv.URL+"/api/"),
		WithBaseParams(url.Values{"a": {"1"}, "b": {"1"}}),
		WithBaseHeaders(http.Header{"X-Base": {"base"}}),
	)
	defer c.Close()

	resp, err := c.Get(context.Background(), "/items", Param("b", "2"), Header("X-Req", "req"))
	require.NoError(t, err)
	require.True(t, resp.IsSuccess())

	var got echo
	require.NoError(t, resp.JSON(&got))
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "a=1&b=2", got.Query)
	assert.Equal(t, "base", got.Base)
	assert.Equal(t, "req", got.Req)
	assert.Equal(t, srv.URL+"/api/items?a=1&b=2", resp.Request.URL)
}

func TestRequestAuthPrecedence(t *testing.T) {
	observeLogs(t)
	srv := echoServer(t)
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithAuth(BearerAuth{Token: "client"}))
	defer c.Close()

	var got echo
	resp, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	require.NoError(t, resp.JSON(&got))
	assert.Equal(t, "Bearer client", got.Auth)

	resp, err = c.Get(context.Background(), "/", Auth(BearerAuth{Token: "request"}))
	require.NoError(t, err)
	require.NoError(t, resp.JSON(&got))
	assert.Equal(t, "Bearer request", got.Auth)

	resp, err = c.Get(context.Background(), "/", Auth(nil))
	require.NoError(t, err)
	require.NoError(t, resp.JSON(&got))
	assert.Empty(t, got.Auth)
}

func TestRequestJSONBody(t *testing.T) {
	observeLogs(t)
	srv := echoServer(t)
	c := NewProfile("test").New(WithBaseURL(srv.URL))
	defer c.Close()

	resp, err := c.Post(context.Background(), "/", JSON(map[string]int{"id": 7}))
	require.NoError(t, err)

	var got echo
	require.NoError(t, resp.JSON(&got))
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "application/json", got.CType)
	assert.Equal(t, `{"id":7}`, got.Body)
}

func TestRequestRejectsUnsupportedMethod(t *testing.T) {
	c := NewProfile("test").New()
	_, err := c.Request(context.Background(), http.MethodHead, "http://localhost")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestRequestTimeout(t *testing.T) {
	observeLogs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c := NewProfile("test").New(WithBaseURL(srv.URL), WithTimeout(20*time.Millisecond))
	defer c.Close()

	_, err := c.Get(context.Background(), "/slow")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindTimeout, te.Kind)
	assert.Equal(t, http.MethodGet, te.Method)
}

func TestRequestRetriesServerErrors(t *testing.T) {
	logs := observeLogs(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	strategy := NewRetryStrategy(RetryConfig{Attempts: 3, OnStatuses: []StatusClass{StatusServerError}})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithRetry(strategy))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/flaky", Name("flaky"))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.Equal(t, int32(3), hits.Load())

	assert.Equal(t, 2, logs.FilterMessage("Marking HTTP request for retry due to status code: 503").Len())
	assert.Equal(t, 1, logs.FilterMessage(fmt.Sprintf("Retrying HTTP request [flaky] (1/3): GET %s/flaky", srv.URL)).Len())
	assert.Equal(t, 1, logs.FilterMessage(fmt.Sprintf("Retrying HTTP request [flaky] (2/3): GET %s/flaky", srv.URL)).Len())
	assert.Equal(t, 1, logs.FilterMessage(fmt.Sprintf("Retrying HTTP request [flaky] (3/3): GET %s/flaky", srv.URL)).Len())
}

func TestRequestExhaustedReturnsLastResponse(t *testing.T) {
	logs := observeLogs(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	strategy := NewRetryStrategy(RetryConfig{Attempts: 2, OnStatuses: []StatusClass{StatusServerError}})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithRetry(strategy))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/down")
	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Attempts)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, logs.FilterMessage(fmt.Sprintf("All retry attempts (2/2) failed for HTTP request [UNNAMED]: GET %s/down", srv.URL)).Len())
}

func TestRequestRetriesRedirects(t *testing.T) {
	observeLogs(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moved" {
			w.Write([]byte("followed"))
			return
		}
		hits.Add(1)
		http.Redirect(w, r, "/target", http.StatusFound)
	}))
	defer srv.Close()

	strategy := NewRetryStrategy(RetryConfig{Attempts: 3, OnStatuses: []StatusClass{StatusRedirect}})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithRetry(strategy))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/moved")
	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, resp.IsRedirect())
	assert.Equal(t, "/target", resp.Header.Get("Location"))
	assert.Equal(t, int32(3), hits.Load())
}

func TestRequestReusesConnections(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	defer srv.Close()

	c := NewProfile("test").New(WithBaseURL(srv.URL))
	defer c.Close()

	for i := 0; i < 3; i++ {
		resp, err := c.Get(context.Background(), "/")
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Text())
	}
	assert.Equal(t, int32(1), conns.Load())
}

func TestRequestDoesNotRetryUnlistedStatus(t *testing.T) {
	observeLogs(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	strategy := NewRetryStrategy(RetryConfig{Attempts: 3, OnStatuses: []StatusClass{StatusServerError}})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithRetry(strategy))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/missing")
	require.NoError(t, err)
	assert.True(t, resp.IsClientError())
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequestRetriesConnectionErrors(t *testing.T) {
	logs := observeLogs(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	// Retries on connection errors happen even with every toggle off.
	strategy := NewRetryStrategy(RetryConfig{Attempts: 2})
	c := NewProfile("test").New(WithRetry(strategy))
	defer c.Close()

	_, err := c.Get(context.Background(), target)
	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Attempts)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.IsConnection())
	assert.Equal(t, 2, logs.FilterMessageSnippet("Marking HTTP request for retry due to connection error: connect").Len())
}

func TestRequestRetryOverride(t *testing.T) {
	observeLogs(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	strategy := NewRetryStrategy(RetryConfig{Attempts: 3, OnStatuses: []StatusClass{StatusServerError}})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithRetry(strategy))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/", Retry(nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRequestLogEntries(t *testing.T) {
	logs := observeLogs(t)
	srv := echoServer(t)
	c := NewProfile("test").New(WithBaseURL(srv.URL))
	defer c.Close()

	_, err := c.Get(context.Background(), "/search", Name("search"), Tag("v1"))
	require.NoError(t, err)

	sent := logs.FilterMessage(fmt.Sprintf("Sending HTTP request [search-v1]: GET %s/search", srv.URL)).All()
	require.Len(t, sent, 1)
	reqGroup, ok := sent[0].ContextMap()["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "search", reqGroup["name"])
	assert.Equal(t, "v1", reqGroup["tag"])
	assert.NotContains(t, reqGroup, "headers")
	assert.NotContains(t, reqGroup, "body")

	received := logs.FilterMessage(fmt.Sprintf("HTTP response received [search-v1]: GET %s/search -> 200", srv.URL)).All()
	require.Len(t, received, 1)
	respGroup, ok := received[0].ContextMap()["response"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 200, respGroup["status_code"])
	assert.Contains(t, respGroup, "elapsed_time")
}

func TestRequestLogDisabledGroups(t *testing.T) {
	logs := observeLogs(t)
	srv := echoServer(t)
	c := NewProfile("test").New(
		WithBaseURL(srv.URL),
		WithRequestLog(RequestLogConfig{}),
		WithResponseLog(ResponseLogConfig{StatusCode: true}),
	)
	defer c.Close()

	_, err := c.Get(context.Background(), "/")
	require.NoError(t, err)

	sent := logs.FilterMessageSnippet("Sending HTTP request").All()
	require.Len(t, sent, 1)
	assert.NotContains(t, sent[0].ContextMap(), "request")

	received := logs.FilterMessageSnippet("HTTP response received").All()
	require.Len(t, received, 1)
	assert.NotContains(t, received[0].ContextMap(), "request")
	assert.Contains(t, received[0].ContextMap(), "response")
}

type stubBuilder struct {
	allow   bool
	details Details
}

func (b *stubBuilder) Filter(req *Request, resp *Response, d Details) bool {
	b.details = d
	return b.allow
}

func (b *stubBuilder) BuildAttributes(ctx context.Context, req *Request, resp *Response, d Details) map[string]broker.Attribute {
	return map[string]broker.Attribute{"MessageType": broker.String(d.String(DetailRequestLabel))}
}

func (b *stubBuilder) BuildBody(ctx context.Context, req *Request, resp *Response, d Details) (string, error) {
	return resp.Text(), nil
}

func TestRequestHandsMessageToBroker(t *testing.T) {
	logs := observeLogs(t)
	srv := echoServer(t)

	var published []*broker.Message
	pub := broker.PublisherFunc(func(ctx context.Context, msg *broker.Message) error {
		published = append(published, msg)
		return nil
	})
	builder := &stubBuilder{allow: true}
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithPublisher(pub), WithMessageBuilder(builder))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/", Name("search"))
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, "search", published[0].Attributes["MessageType"].Text())
	assert.Equal(t, resp.Text(), published[0].Body)
	assert.Equal(t, 1, logs.FilterMessage("Sending HTTP request [search] message to broker").Len())

	builder.allow = false
	_, err = c.Get(context.Background(), "/", Name("search"))
	require.NoError(t, err)
	assert.Len(t, published, 1)
}

func TestRequestIgnoresPublishFailure(t *testing.T) {
	logs := observeLogs(t)
	srv := echoServer(t)
	pub := broker.PublisherFunc(func(ctx context.Context, msg *broker.Message) error {
		return errors.New("broker down")
	})
	c := NewProfile("test").New(WithBaseURL(srv.URL), WithPublisher(pub), WithMessageBuilder(&stubBuilder{allow: true}))
	defer c.Close()

	resp, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 1, logs.FilterMessage("Failed to send HTTP request [UNNAMED] message to broker").Len())
}

func TestDetailsHookSeesRequestValuesOverClient(t *testing.T) {
	observeLogs(t)
	srv := echoServer(t)
	hook := func(d Details, values map[string]any) {
		d.SetDefault("owner", values["owner"])
	}
	builder := &stubBuilder{}
	p := NewProfile("test", WithDetailsHook(hook), WithDefaults(WithBaseURL(srv.URL)))
	c := p.New(WithValue("owner", "client"), WithMessageBuilder(builder), WithPublisher(broker.LogPublisher{}))
	defer c.Close()

	_, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "client", builder.details["owner"])

	_, err = c.Get(context.Background(), "/", Value("owner", "request"))
	require.NoError(t, err)
	assert.Equal(t, "request", builder.details["owner"])

	_, err = c.Get(context.Background(), "/", WithDetails(Details{"owner": "details"}))
	require.NoError(t, err)
	assert.Equal(t, "details", builder.details["owner"])
}

func TestClientTransportSelection(t *testing.T) {
	p := NewProfile("test")
	c := p.New()

	// lazily opened local transport
	tr, err := c.currentTransport()
	require.NoError(t, err)
	assert.Same(t, c.local, tr)
	c.Close()
	assert.Nil(t, c.local)

	require.NoError(t, p.OpenGlobal())
	defer p.CloseGlobal()
	tr, err = c.currentTransport()
	require.NoError(t, err)
	assert.Same(t, p.global, tr)

	err = c.Scoped(func(sc *Client) error {
		inner, err := sc.currentTransport()
		require.NoError(t, err)
		assert.Same(t, sc.local, inner)
		assert.NotSame(t, p.global, inner)
		return nil
	})
	require.NoError(t, err)
	assert.Nil(t, c.local)
}

func TestProfileConfigureAffectsNewClients(t *testing.T) {
	p := NewProfile("test", WithDefaults(WithTimeout(time.Second)))
	before := p.New()
	p.Configure(WithTimeout(0), WithBaseURL("http://example.test"))
	after := p.New(WithBaseHeaders(http.Header{"X-A": {"1"}}))

	assert.Equal(t, time.Second, before.Settings().Timeout)
	assert.Equal(t, time.Duration(0), after.Settings().Timeout)
	assert.Equal(t, "http://example.test", after.Settings().BaseURL)
	assert.Nil(t, p.Settings().BaseHeaders)
}

func TestProfileOpenGlobalIsIdempotent(t *testing.T) {
	p := NewProfile("test")
	require.NoError(t, p.OpenGlobal())
	first := p.globalTransport()
	require.NoError(t, p.OpenGlobal())
	assert.Same(t, first, p.globalTransport())
	p.CloseGlobal()
	assert.Nil(t, p.globalTransport())
}

func TestOpenRejectsBadProxy(t *testing.T) {
	c := NewProfile("test").New(WithProxy("://bad"))
	assert.Error(t, c.Open())
}
