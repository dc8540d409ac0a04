//go:build unit

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/pkg/httpclient"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/retry"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
	"aws-sqs-http-gateway/internal/pkg/supplier"
)

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) CreateQueue(ctx context.Context, name string, opts sqsQueue.CreateQueueOptions) (string, error) {
	args := m.Called(name, opts)
	return args.String(0), args.Error(1)
}

func (m *mockAdmin) GetQueueURL(ctx context.Context, name string) (string, error) {
	args := m.Called(name)
	return args.String(0), args.Error(1)
}

func (m *mockAdmin) ReceiveMessages(ctx context.Context, url string, opts sqsQueue.ReceiveOptions) ([]types.Message, error) {
	args := m.Called(url, opts)
	msgs, _ := args.Get(0).([]types.Message)
	return msgs, args.Error(1)
}

func (m *mockAdmin) PurgeQueue(ctx context.Context, url string) error {
	return m.Called(url).Error(0)
}

func (m *mockAdmin) QueueStats(ctx context.Context, url string) (sqsQueue.Stats, error) {
	args := m.Called(url)
	return args.Get(0).(sqsQueue.Stats), args.Error(1)
}

// upstream answers /get with the query string and /posts after failing once.
func upstream(t *testing.T) *httptest.Server {
	t.Helper()
	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/get", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"path":%q}`, r.URL.Path)
	})
	mux.HandleFunc("/posts", func(w http.ResponseWriter, r *http.Request) {
		if posts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `[{"id":1}]`)
	})
	mux.HandleFunc("/todos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"limit":%q}`, r.URL.Query().Get("_limit"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAPI(t *testing.T, admin QueueAdmin, secret string) (*API, *httptest.Server) {
	t.Helper()
	t.Cleanup(logger.Replace(zap.NewNop()))
	srv := upstream(t)
	httpclient.Configure(httpclient.WithBaseURL(srv.URL))
	supplier.Configure(httpclient.WithBaseURL(srv.URL), supplier.WithCode("RCL"))

	a := &API{
		Config:    Config{UpstreamURL: srv.URL, ScopedBaseURL: srv.URL, JWTSecret: secret},
		Admin:     admin,
		Validator: validator.New(),
		Registry: &configs.SupplierRegistry{Suppliers: []configs.Supplier{
			{Code: "ACME", BaseURL: srv.URL},
		}},
	}
	return a, srv
}

func serve(h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	a, _ := newTestAPI(t, nil, "")
	rec := serve(a.Router(), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPRoutes(t *testing.T) {
	a, _ := newTestAPI(t, nil, "")
	h := a.Router()

	for _, path := range []string{"/http/global", "/http/local"} {
		rec := serve(h, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"path":"/get"}`, rec.Body.String())
	}

	rec := serve(h, http.MethodGet, "/http/local/scoped", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"limit":"5"}`, rec.Body.String())
}

func TestHTTPRetryRoute(t *testing.T) {
	a, _ := newTestAPI(t, nil, "")

	rec := serve(a.Router(), http.MethodGet, "/http/local/retry", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1}]`, rec.Body.String())
}

func TestSupplierRoutes(t *testing.T) {
	a, _ := newTestAPI(t, nil, "")
	h := a.Router()

	for _, path := range []string{
		"/supplier/global",
		"/supplier/local",
		"/supplier/local/custom_supplier_code?supplier_code=ABC",
		"/supplier/registry/ACME",
	} {
		rec := serve(h, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := serve(h, http.MethodGet, "/supplier/local/custom_supplier_code", "", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(h, http.MethodGet, "/supplier/registry/NOPE", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWriteUpstreamError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"timeout", &httpclient.TransportError{Kind: httpclient.KindTimeout, Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"connect", &httpclient.TransportError{Kind: httpclient.KindConnect, Err: errors.New("refused")}, http.StatusBadGateway},
		{"exhausted", &retry.Error{Attempts: 3}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	defer logger.Replace(zap.NewNop())()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeUpstreamError(context.Background(), rec, tt.err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAdminRoutesDisabledWithoutAdmin(t *testing.T) {
	a, _ := newTestAPI(t, nil, "")
	rec := serve(a.Router(), http.MethodGet, "/admin/queues/stats?queue_url=u", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	admin := new(mockAdmin)
	a, _ := newTestAPI(t, admin, "secret")
	h := a.Router()

	rec := serve(h, http.MethodGet, "/admin/queues/orders/url", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad, err := GenerateToken([]byte("other"), "ops", time.Minute)
	require.NoError(t, err)
	rec = serve(h, http.MethodGet, "/admin/queues/orders/url", "", bad)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := GenerateToken([]byte("secret"), "ops", -time.Minute)
	require.NoError(t, err)
	rec = serve(h, http.MethodGet, "/admin/queues/orders/url", "", expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin.On("GetQueueURL", "orders").Return("http://localhost:4566/000000000000/orders", nil)
	token, err := GenerateToken([]byte("secret"), "ops", time.Minute)
	require.NoError(t, err)
	rec = serve(h, http.MethodGet, "/admin/queues/orders/url", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue_url":"http://localhost:4566/000000000000/orders"}`, rec.Body.String())
}

func TestAdminCreateQueue(t *testing.T) {
	admin := new(mockAdmin)
	a, _ := newTestAPI(t, admin, "")
	h := a.Router()

	admin.On("CreateQueue", "orders", sqsQueue.CreateQueueOptions{
		VisibilityTimeout:   30,
		DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:orders-dlq",
		MaxReceiveCount:     3,
	}).Return("http://localhost:4566/000000000000/orders", nil)

	rec := serve(h, http.MethodPost, "/admin/queues/",
		`{"name":"orders","visibility_timeout":30,"dead_letter_target_arn":"arn:aws:sqs:us-east-1:000000000000:orders-dlq","max_receive_count":3}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"queue_url":"http://localhost:4566/000000000000/orders"}`, rec.Body.String())

	rec = serve(h, http.MethodPost, "/admin/queues/", `{"name":"orders","dead_letter_target_arn":"arn"}`, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = serve(h, http.MethodPost, "/admin/queues/", `{`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	admin.AssertNumberOfCalls(t, "CreateQueue", 1)
}

func TestAdminReceivePurgeStats(t *testing.T) {
	admin := new(mockAdmin)
	a, _ := newTestAPI(t, admin, "")
	h := a.Router()
	url := "http://localhost:4566/000000000000/orders"

	admin.On("ReceiveMessages", url, sqsQueue.ReceiveOptions{
		MaxNumberOfMessages:   10,
		MessageAttributeNames: []string{"All"},
		AttributeNames:        []string{"All"},
	}).Return([]types.Message{{MessageId: aws.String("m-1"), Body: aws.String("hi")}}, nil)
	admin.On("PurgeQueue", url).Return(nil)
	admin.On("QueueStats", url).Return(sqsQueue.Stats{Visible: 2, InFlight: 1}, nil)

	rec := serve(h, http.MethodGet, "/admin/queues/messages?queue_url="+url, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Messages []struct {
			MessageId string
			Body      string
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "m-1", got.Messages[0].MessageId)

	rec = serve(h, http.MethodDelete, "/admin/queues/messages?queue_url="+url, "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodGet, "/admin/queues/stats?queue_url="+url, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"visible":2,"in_flight":1,"delayed":0}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/admin/queues/stats", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	admin.On("ReceiveMessages", url, mock.Anything).Return(nil, fmt.Errorf("receive: %w", sqsQueue.ErrInvalidMaxMessages))
	rec = serve(h, http.MethodGet, "/admin/queues/messages?max_number_of_messages=11&queue_url="+url, "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
