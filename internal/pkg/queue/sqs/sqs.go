package sqs

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"aws-sqs-http-gateway/internal/pkg/logger"
)

// API is the subset of the SQS client used in this repository.
type API interface {
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	PurgeQueue(ctx context.Context, params *sqs.PurgeQueueInput, optFns ...func(*sqs.Options)) (*sqs.PurgeQueueOutput, error)
}

// AllAttributes selects every message or system attribute.
const AllAttributes = "All"

// SqsActions provides the consumer side of an SQS queue.
type SqsActions struct {
	SqsClient API     // AWS SQS client
	Config    *Config // Configuration for SQS
}

type Config struct {
	WorkerPoolSize  int    // Number of workers to process messages
	QueueUrl        string // SQS queue URL
	WaitTimeSeconds int32  // Wait time for SQS messages
}

// NewClient creates a new sqs client. A non-empty endpoint points the client
// at an emulator such as LocalStack; without credentials in the environment
// static dummy credentials are used there.
func NewClient(ctx context.Context, region string, endpoint string) (*sqs.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if endpoint != "" && os.Getenv("AWS_ACCESS_KEY_ID") == "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	svc := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return svc, nil
}

// APIErrorFields returns log fields for an AWS API error, or the plain error.
func APIErrorFields(err error) []zap.Field {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return []zap.Field{
			zap.String("error_code", apiErr.ErrorCode()),
			zap.String("error_message", apiErr.ErrorMessage()),
		}
	}
	return []zap.Field{zap.Error(err)}
}

// GetMessages receives messages from the SQS queue.
func (a *SqsActions) GetMessages(ctx context.Context) ([]types.Message, error) {
	maxNum := int32(a.Config.WorkerPoolSize)
	if maxNum > 10 {
		maxNum = 10
	}
	result, err := a.SqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    &a.Config.QueueUrl,
		MaxNumberOfMessages:         maxNum,
		WaitTimeSeconds:             a.Config.WaitTimeSeconds,
		MessageAttributeNames:       []string{AllAttributes},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{AllAttributes},
	})
	if err != nil {
		logger.Error("SQS ReceiveMessage error", APIErrorFields(err)...)
		return nil, err
	}
	return result.Messages, nil
}

// DeleteMessage deletes a message from the SQS queue.
func (a *SqsActions) DeleteMessage(ctx context.Context, msg types.Message) error {
	_, err := a.SqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &a.Config.QueueUrl,
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		logger.Error("unable to delete message from queue", APIErrorFields(err)...)
	}
	return err
}

// ReleaseMessage makes a received message visible again right away.
func (a *SqsActions) ReleaseMessage(ctx context.Context, msg types.Message) error {
	_, err := a.SqsClient.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          &a.Config.QueueUrl,
		ReceiptHandle:     msg.ReceiptHandle,
		VisibilityTimeout: 0,
	})
	if err != nil {
		logger.Error("unable to release message visibility", APIErrorFields(err)...)
	}
	return err
}
