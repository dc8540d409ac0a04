package main

import (
	"context"
	"fmt"

	"aws-sqs-http-gateway/configs"
	"aws-sqs-http-gateway/internal/pkg/broker"
	redisQueue "aws-sqs-http-gateway/internal/pkg/queue/redis"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
	"aws-sqs-http-gateway/internal/pkg/singleton"
)

// sqsClients shares one SQS client between the publisher and the admin routes.
var sqsClients singleton.Value[sqsQueue.API]

func noop() error { return nil }

// newPublisher builds the broker publisher named by BROKER_TYPE. The returned
// func releases its connections.
func newPublisher(ctx context.Context, cfg *configs.AppConfig) (broker.Publisher, func() error, error) {
	switch cfg.BrokerType {
	case "none":
		return nil, noop, nil
	case "sqs":
		client, err := sqsClients.Get(func() (sqsQueue.API, error) {
			return sqsQueue.NewClient(ctx, cfg.AwsRegion, cfg.AwsEndpointURL)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create sqs client: %w", err)
		}
		return &broker.SQSPublisher{
			Client:        client,
			QueueURL:      cfg.BrokerSqsQueueURL,
			LogAttributes: cfg.BrokerLogAttributes,
			LogBody:       cfg.BrokerLogBody,
		}, noop, nil
	case "redis":
		client := redisQueue.New(cfg.BrokerRedisEndpoint, cfg.BrokerRedisDB)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return &broker.RedisPublisher{Client: client, Key: cfg.BrokerRedisKey}, client.Close, nil
	case "amqp":
		p, err := broker.DialAMQP(cfg.BrokerAmqpURL, cfg.BrokerAmqpExchange, cfg.BrokerAmqpRoutingKey)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return broker.LogPublisher{
			LogAttributes: cfg.BrokerLogAttributes,
			LogBody:       cfg.BrokerLogBody,
		}, noop, nil
	}
}
