package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/app/api"
	httpserver "aws-sqs-http-gateway/internal/pkg/http"
	"aws-sqs-http-gateway/internal/pkg/httpclient"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
	"aws-sqs-http-gateway/internal/pkg/supplier"
)

func main() {
	cfg, err := configs.ParseApp()
	if err != nil {
		panic(err)
	}

	if err := logger.Setup(cfg.LoggerOptions()); err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pub, closePublisher, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to create broker publisher", zap.Error(err))
	}

	httpOpts := []httpclient.Option{httpclient.WithBaseURL(cfg.HttpClientBaseURL)}
	if cfg.HttpClientTimeoutDuration > 0 {
		httpOpts = append(httpOpts, httpclient.WithTimeout(cfg.HttpClientTimeoutDuration))
	}
	httpclient.Configure(httpOpts...)
	supplier.Configure(
		supplier.WithCode(cfg.SupplierCode),
		httpclient.WithBaseURL(cfg.SupplierBaseURL),
		httpclient.WithTimeout(cfg.SupplierTimeoutDuration),
		httpclient.WithPublisher(pub),
		httpclient.WithMessageBuilder(&supplier.SQSMessageBuilder{
			AllowedRequestNames:   cfg.BrokerAllowedRequestNames,
			DisallowedRequestTags: cfg.BrokerDisallowedRequestTags,
		}),
	)

	if err := httpclient.OpenGlobal(); err != nil {
		logger.Fatal("Failed to open global HTTP transport", zap.Error(err))
	}
	if err := supplier.OpenGlobal(); err != nil {
		logger.Fatal("Failed to open global supplier transport", zap.Error(err))
	}

	var registry *configs.SupplierRegistry
	if cfg.SuppliersFile != "" {
		if registry, err = configs.LoadSuppliers(cfg.SuppliersFile); err != nil {
			logger.Fatal("Failed to load suppliers", zap.Error(err))
		}
		logger.Info("Loaded supplier registry", zap.Int("count", len(registry.Suppliers)))
	}

	var admin api.QueueAdmin
	if cfg.AwsEndpointURL != "" || cfg.BrokerType == "sqs" {
		client, err := sqsClients.Get(func() (sqsQueue.API, error) {
			return sqsQueue.NewClient(ctx, cfg.AwsRegion, cfg.AwsEndpointURL)
		})
		if err != nil {
			logger.Fatal("Failed to create SQS client", zap.Error(err))
		}
		admin = &sqsQueue.Admin{Client: client}
	}

	server := &api.API{
		Config: api.Config{
			UpstreamURL:   cfg.UpstreamAPIURL,
			ScopedBaseURL: cfg.HttpClientBaseURL,
			JWTSecret:     cfg.JWTSecret,
		},
		Registry:  registry,
		Admin:     admin,
		Validator: validator.New(),
	}

	_, done := httpserver.StartHTTPServer(ctx, cfg.HTTPAddr, server.Router(), cfg.HTTPShutdownTimeoutDuration)

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	shutdownErr := <-done
	httpclient.CloseGlobal()
	supplier.CloseGlobal()
	if err := multierr.Append(shutdownErr, closePublisher()); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return
	}
	logger.Info("Shutdown complete")
}
