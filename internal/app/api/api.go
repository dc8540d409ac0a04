// Package api serves the HTTP client demo routes and the queue admin routes.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aws-sqs-http-gateway/configs"
	httpserver "aws-sqs-http-gateway/internal/pkg/http"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
)

// QueueAdmin is the part of the SQS admin the admin routes use.
type QueueAdmin interface {
	CreateQueue(ctx context.Context, name string, opts sqsQueue.CreateQueueOptions) (string, error)
	GetQueueURL(ctx context.Context, name string) (string, error)
	ReceiveMessages(ctx context.Context, url string, opts sqsQueue.ReceiveOptions) ([]types.Message, error)
	PurgeQueue(ctx context.Context, url string) error
	QueueStats(ctx context.Context, url string) (sqsQueue.Stats, error)
}

type Config struct {
	// UpstreamURL is the stub API used by the timeout and retry demos.
	UpstreamURL string
	// ScopedBaseURL is the base URL of the scoped client demo.
	ScopedBaseURL string
	// JWTSecret protects the admin routes when set.
	JWTSecret string
}

type API struct {
	Config    Config
	Registry  *configs.SupplierRegistry
	Admin     QueueAdmin
	Validator *validator.Validate
}

// Router builds the route tree. Admin routes are mounted only when Admin is set.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Get("/healthz", httpserver.Healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/http", func(r chi.Router) {
		r.Get("/global", a.httpGlobal)
		r.Get("/local", a.httpLocal)
		r.Get("/local/scoped", a.httpLocalScoped)
		r.Get("/local/timeout", a.httpLocalTimeout)
		r.Get("/local/retry", a.httpLocalRetry)
	})

	r.Route("/supplier", func(r chi.Router) {
		r.Get("/global", a.supplierGlobal)
		r.Get("/local", a.supplierLocal)
		r.Get("/local/custom_supplier_code", a.supplierCustomCode)
		r.Get("/registry/{code}", a.supplierRegistry)
	})

	if a.Admin != nil {
		r.Route("/admin/queues", func(r chi.Router) {
			if a.Config.JWTSecret != "" {
				r.Use(JWTAuth([]byte(a.Config.JWTSecret)))
			}
			r.Post("/", a.createQueue)
			r.Get("/{name}/url", a.queueURL)
			r.Get("/messages", a.receiveMessages)
			r.Delete("/messages", a.purgeQueue)
			r.Get("/stats", a.queueStats)
		})
	}

	return r
}

// countRequests records every request under its route pattern.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
