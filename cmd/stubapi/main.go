package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/app/stub"
	httpserver "aws-sqs-http-gateway/internal/pkg/http"
	"aws-sqs-http-gateway/internal/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := configs.ParseStubAPI()
	if err != nil {
		panic(err)
	}

	if err := logger.Setup(cfg.LoggerOptions()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Stub API configured", zap.Duration("users_delay", cfg.UsersDelayDuration))
	_, done := httpserver.StartHTTPServer(ctx, cfg.HTTPAddr, stub.Router(cfg.UsersDelayDuration), shutdownTimeout)

	<-ctx.Done()
	if err := <-done; err != nil {
		logger.Error("Stub API shutdown failed", zap.Error(err))
	}
}
