package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/httpclient"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/retry"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeUpstream relays an upstream response body as JSON.
func writeUpstream(w http.ResponseWriter, resp *httpclient.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Body)
}

// writeUpstreamError maps HTTP client failures onto gateway statuses.
func writeUpstreamError(ctx context.Context, w http.ResponseWriter, err error) {
	logger.ErrorCtx(ctx, "Upstream request failed", zap.Error(err))

	var te *httpclient.TransportError
	var re *retry.Error
	switch {
	case errors.As(err, &te) && te.Kind == httpclient.KindTimeout:
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &te), errors.As(err, &re):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
