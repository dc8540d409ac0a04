//go:build unit

package sqs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	queuesqs "aws-sqs-http-gateway/internal/pkg/queue/sqs"
	"aws-sqs-http-gateway/internal/pkg/queue/sqs/sqstest"
)

const queueURL = "http://localhost:4566/000000000000/orders"

func TestCreateQueueWithRedrivePolicy(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("CreateQueue", mock.Anything, mock.MatchedBy(func(in *awssqs.CreateQueueInput) bool {
		return aws.ToString(in.QueueName) == "orders" &&
			in.Attributes["VisibilityTimeout"] == "30" &&
			in.Attributes["RedrivePolicy"] == `{"deadLetterTargetArn":"arn:aws:sqs:us-east-1:000000000000:orders-dlq","maxReceiveCount":"5"}`
	})).Return(&awssqs.CreateQueueOutput{QueueUrl: aws.String(queueURL)}, nil)

	admin := &queuesqs.Admin{Client: api}
	url, err := admin.CreateQueue(context.Background(), "orders", queuesqs.CreateQueueOptions{
		VisibilityTimeout:   30,
		DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:orders-dlq",
		MaxReceiveCount:     5,
	})

	require.NoError(t, err)
	assert.Equal(t, queueURL, url)
	api.AssertExpectations(t)
}

func TestCreateQueueWithoutAttributes(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("CreateQueue", mock.Anything, mock.MatchedBy(func(in *awssqs.CreateQueueInput) bool {
		return in.Attributes == nil
	})).Return(&awssqs.CreateQueueOutput{QueueUrl: aws.String(queueURL)}, nil)

	admin := &queuesqs.Admin{Client: api}
	_, err := admin.CreateQueue(context.Background(), "orders", queuesqs.CreateQueueOptions{})
	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestCreateQueueRejectsDeadLetterWithoutReceiveCount(t *testing.T) {
	admin := &queuesqs.Admin{Client: new(sqstest.MockAPI)}
	_, err := admin.CreateQueue(context.Background(), "orders", queuesqs.CreateQueueOptions{
		DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:orders-dlq",
	})
	assert.Error(t, err)
}

func TestCreateThenGetQueueURLMatch(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("CreateQueue", mock.Anything, mock.Anything).
		Return(&awssqs.CreateQueueOutput{QueueUrl: aws.String(queueURL)}, nil)
	api.On("GetQueueUrl", mock.Anything, mock.MatchedBy(func(in *awssqs.GetQueueUrlInput) bool {
		return aws.ToString(in.QueueName) == "orders"
	})).Return(&awssqs.GetQueueUrlOutput{QueueUrl: aws.String(queueURL)}, nil)

	admin := &queuesqs.Admin{Client: api}
	created, err := admin.CreateQueue(context.Background(), "orders", queuesqs.CreateQueueOptions{})
	require.NoError(t, err)
	resolved, err := admin.GetQueueURL(context.Background(), "orders")
	require.NoError(t, err)
	assert.Equal(t, created, resolved)
}

func TestReceiveMessagesValidatesBatchSize(t *testing.T) {
	admin := &queuesqs.Admin{Client: new(sqstest.MockAPI)}
	for _, n := range []int32{0, 11, -1} {
		_, err := admin.ReceiveMessages(context.Background(), queueURL, queuesqs.ReceiveOptions{MaxNumberOfMessages: n})
		assert.ErrorIs(t, err, queuesqs.ErrInvalidMaxMessages)
	}
}

func TestReceiveMessagesRequestsAllAttributes(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *awssqs.ReceiveMessageInput) bool {
		return in.MaxNumberOfMessages == 10 &&
			len(in.MessageAttributeNames) == 1 && in.MessageAttributeNames[0] == "All" &&
			len(in.MessageSystemAttributeNames) == 1 && in.MessageSystemAttributeNames[0] == types.MessageSystemAttributeName("All")
	})).Return(&awssqs.ReceiveMessageOutput{Messages: []types.Message{
		{MessageId: aws.String("m-1"), Body: aws.String("hello")},
	}}, nil)

	admin := &queuesqs.Admin{Client: api}
	msgs, err := admin.ReceiveMessages(context.Background(), queueURL, queuesqs.ReceiveOptions{
		MaxNumberOfMessages:   10,
		MessageAttributeNames: []string{"All"},
		AttributeNames:        []string{"All"},
	})

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", aws.ToString(msgs[0].Body))
}

func TestPurgeQueueWrapsError(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("PurgeQueue", mock.Anything, mock.Anything).Return(nil, errors.New("in progress"))

	admin := &queuesqs.Admin{Client: api}
	err := admin.PurgeQueue(context.Background(), queueURL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "purge queue")
}

func TestQueueStats(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("GetQueueAttributes", mock.Anything, mock.Anything).Return(&awssqs.GetQueueAttributesOutput{
		Attributes: map[string]string{
			"QueueArn":                              "arn:aws:sqs:us-east-1:000000000000:orders",
			"ApproximateNumberOfMessages":           "4",
			"ApproximateNumberOfMessagesNotVisible": "2",
			"ApproximateNumberOfMessagesDelayed":    "1",
		},
	}, nil)

	admin := &queuesqs.Admin{Client: api}
	stats, err := admin.QueueStats(context.Background(), queueURL)

	require.NoError(t, err)
	assert.Equal(t, queuesqs.Stats{
		ARN:      "arn:aws:sqs:us-east-1:000000000000:orders",
		Visible:  4,
		InFlight: 2,
		Delayed:  1,
	}, stats)
}

func TestSendMessageWithAttributes(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("SendMessage", mock.Anything, mock.MatchedBy(func(in *awssqs.SendMessageInput) bool {
		attr, ok := in.MessageAttributes["MessageType"]
		return ok && aws.ToString(attr.DataType) == "String" && aws.ToString(attr.StringValue) == "search" &&
			aws.ToString(in.MessageBody) == "{}"
	})).Return(&awssqs.SendMessageOutput{MessageId: aws.String("m-9")}, nil)

	admin := &queuesqs.Admin{Client: api}
	id, err := admin.SendMessage(context.Background(), queueURL, "{}", map[string]string{"MessageType": "search"})

	require.NoError(t, err)
	assert.Equal(t, "m-9", id)
}

func TestSqsActionsReleaseMessage(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("ChangeMessageVisibility", mock.Anything, mock.MatchedBy(func(in *awssqs.ChangeMessageVisibilityInput) bool {
		return in.VisibilityTimeout == 0 && aws.ToString(in.ReceiptHandle) == "rh-1"
	})).Return(&awssqs.ChangeMessageVisibilityOutput{}, nil)

	actions := &queuesqs.SqsActions{SqsClient: api, Config: &queuesqs.Config{QueueUrl: queueURL, WorkerPoolSize: 3}}
	err := actions.ReleaseMessage(context.Background(), types.Message{ReceiptHandle: aws.String("rh-1")})

	require.NoError(t, err)
	api.AssertExpectations(t)
}

func TestSqsActionsGetMessagesCapsBatch(t *testing.T) {
	api := new(sqstest.MockAPI)
	api.On("ReceiveMessage", mock.Anything, mock.MatchedBy(func(in *awssqs.ReceiveMessageInput) bool {
		return in.MaxNumberOfMessages == 10 && in.WaitTimeSeconds == 20
	})).Return(&awssqs.ReceiveMessageOutput{}, nil)

	actions := &queuesqs.SqsActions{SqsClient: api, Config: &queuesqs.Config{
		QueueUrl: queueURL, WorkerPoolSize: 25, WaitTimeSeconds: 20,
	}}
	msgs, err := actions.GetMessages(context.Background())

	require.NoError(t, err)
	assert.Empty(t, msgs)
	api.AssertExpectations(t)
}
