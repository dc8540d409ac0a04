package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/app/audit"
	"aws-sqs-http-gateway/internal/app/consumer"
	redisCache "aws-sqs-http-gateway/internal/pkg/cache/redis"
	httpserver "aws-sqs-http-gateway/internal/pkg/http"
	"aws-sqs-http-gateway/internal/pkg/k8s"
	"aws-sqs-http-gateway/internal/pkg/logger"
	"aws-sqs-http-gateway/internal/pkg/observability/metrics"
	"aws-sqs-http-gateway/internal/pkg/queue"
	redisQueue "aws-sqs-http-gateway/internal/pkg/queue/redis"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
)

func main() {
	cfg, err := configs.ParseConsumer()
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

	q, closeQueue, err := newQueue(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to set up queue", zap.Error(err))
	}

	cacheClient := redisCache.NewClient(cfg.CacheRedisEndpoint, cfg.CacheRedisDB)
	if err := cacheClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to redis cache", zap.Error(err))
	}

	store, err := audit.NewPostgresStore(ctx, cfg.AuditPostgresDSN)
	if err != nil {
		logger.Fatal("Failed to connect to audit store", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal("Failed to migrate audit store", zap.Error(err))
	}

	c := &consumer.Consumer{
		Queue: q,
		Cache: &redisCache.RedisRepository{
			Client: cacheClient,
			Config: &redisCache.Config{KeyPrefix: cfg.CacheKeyPrefix},
		},
		Store:     store,
		Validator: validator.New(),
		Config: consumer.Config{
			WorkerPoolSize:  cfg.QueueWorkerPoolSize,
			PollingInterval: cfg.PollingIntervalDuration,
			DedupTTL:        cfg.CacheDedupTTLDuration,
		},
	}

	_, done := httpserver.StartHTTPServer(ctx, cfg.HTTPAddr, httpserver.NewProbeMux(), cfg.HTTPShutdownTimeoutDuration)

	if cfg.LeaderElectionEnabled {
		client, err := k8s.NewInCluster()
		if err != nil {
			logger.Fatal("Failed to create kubernetes client", zap.Error(err))
		}
		err = client.RunLeaderElection(ctx, k8s.ElectionConfig{
			Namespace: cfg.PodNamespace,
			LockName:  cfg.LeaderElectionLockName,
			Identity:  cfg.PodName,
		}, c.Run)
		if err != nil {
			logger.Fatal("Leader election failed", zap.Error(err))
		}
	} else {
		c.Run(ctx)
	}

	logger.Info("Consumer stopped")
	err = multierr.Combine(<-done, closeQueue(), cacheClient.Close(), store.Close())
	if err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
	}
}

func newQueue(ctx context.Context, cfg *configs.ConsumerConfig) (queue.QueueClient, func() error, error) {
	switch cfg.QueueType {
	case "redis":
		client := redisQueue.New(cfg.QueueRedisEndpoint, cfg.QueueRedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return &redisQueue.RedisActions{
			Client: client,
			Config: &redisQueue.Config{
				Key:            cfg.QueueRedisKey,
				WorkerPoolSize: cfg.QueueWorkerPoolSize,
				WaitTime:       cfg.QueueAwsSqsWaitTimeDuration,
			},
		}, client.Close, nil
	default:
		client, err := sqsQueue.NewClient(ctx, cfg.AwsRegion, cfg.AwsEndpointURL)
		if err != nil {
			return nil, nil, err
		}
		return &sqsQueue.SqsActions{
			SqsClient: client,
			Config: &sqsQueue.Config{
				WorkerPoolSize:  cfg.QueueWorkerPoolSize,
				QueueUrl:        cfg.QueueAwsSqsUrl,
				WaitTimeSeconds: cfg.QueueAwsSqsWaitTimeSeconds,
			},
		}, func() error { return nil }, nil
	}
}
