// Command queuectl runs SQS queue administration against AWS or LocalStack.
package main

import (
	"context"
	"fmt"
	"os"

	"aws-sqs-http-gateway/configs"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
)

const defaultEndpoint = "http://localhost:4566"

func main() {
	defaults, err := configs.ParseAWS()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if defaults.AwsEndpointURL == "" {
		defaults.AwsEndpointURL = defaultEndpoint
	}

	root := newRootCmd(*defaults, func(ctx context.Context, region, endpoint string) (*sqsQueue.Admin, error) {
		client, err := sqsQueue.NewClient(ctx, region, endpoint)
		if err != nil {
			return nil, err
		}
		return &sqsQueue.Admin{Client: client}, nil
	})
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
