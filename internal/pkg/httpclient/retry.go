package httpclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
	"aws-sqs-http-gateway/internal/pkg/retry"
)

// StatusClass groups status codes for retry decisions.
type StatusClass string

const (
	StatusInfo        StatusClass = "info"
	StatusSuccess     StatusClass = "success"
	StatusRedirect    StatusClass = "redirect"
	StatusClientError StatusClass = "client_error"
	StatusServerError StatusClass = "server_error"
)

// RetryConfig describes when an HTTP request is attempted again. Connection
// failures always retry; a success status never does.
type RetryConfig struct {
	Attempts         int
	Delay            time.Duration
	OnStatuses       []StatusClass
	OnTimeouts       bool
	OnNetworkErrors  bool
	OnProtocolErrors bool
}

type attemptInfoKey struct{}

// attemptInfo lets retry hooks name the request they run for.
type attemptInfo struct {
	client string
	label  string
	method string
	url    string
}

func withAttemptInfo(ctx context.Context, info attemptInfo) context.Context {
	return context.WithValue(ctx, attemptInfoKey{}, info)
}

func attemptInfoFrom(ctx context.Context) attemptInfo {
	info, _ := ctx.Value(attemptInfoKey{}).(attemptInfo)
	return info
}

// NewRetryStrategy builds a retry strategy for HTTP requests from cfg.
func NewRetryStrategy(cfg RetryConfig) *retry.Strategy {
	statuses := make(map[StatusClass]bool, len(cfg.OnStatuses))
	for _, s := range cfg.OnStatuses {
		statuses[s] = true
	}

	return retry.New(cfg.Attempts, cfg.Delay,
		retry.OnErrorType(func(err *TransportError) bool {
			switch err.Kind {
			case KindConnect, KindConnectTimeout:
				logger.Info(fmt.Sprintf("Marking HTTP request for retry due to connection error: %s - %v", err.Kind, err.Err))
				return true
			case KindTimeout:
				return cfg.OnTimeouts
			case KindNetwork:
				return cfg.OnNetworkErrors
			case KindProtocol:
				return cfg.OnProtocolErrors
			}
			return false
		}),
		retry.OnResult(func(result any) bool {
			resp, ok := result.(*Response)
			if !ok || resp.IsSuccess() || len(statuses) == 0 {
				return false
			}
			if statuses[resp.StatusClass()] {
				logger.Info(fmt.Sprintf("Marking HTTP request for retry due to status code: %d", resp.StatusCode))
				return true
			}
			return false
		}),
		retry.Before(func(ctx context.Context, st retry.State) {
			info := attemptInfoFrom(ctx)
			if st.Attempt > 1 {
				metrics.HTTPClientRetries.WithLabelValues(info.client).Inc()
			}
			logger.InfoCtx(ctx, fmt.Sprintf("Retrying HTTP request [%s] (%d/%d): %s %s",
				info.label, st.Attempt, st.MaxAttempts, info.method, info.url))
		}),
		retry.OnExhausted(func(ctx context.Context, st retry.State) error {
			info := attemptInfoFrom(ctx)
			logger.InfoCtx(ctx, fmt.Sprintf("All retry attempts (%d/%d) failed for HTTP request [%s]: %s %s",
				st.Attempt, st.MaxAttempts, info.label, info.method, info.url),
				zap.Duration("elapsed", st.Elapsed))
			return &retry.Error{Attempts: st.Attempt, Last: st.Err, LastResult: st.Result}
		}),
	)
}
