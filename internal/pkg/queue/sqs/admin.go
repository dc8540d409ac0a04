package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// MaxReceiveBatch is the largest batch SQS returns from one receive call.
const MaxReceiveBatch = 10

var ErrInvalidMaxMessages = errors.New("max number of messages must be between 1 and 10")

// Admin runs queue administration calls.
type Admin struct {
	Client API
}

// CreateQueueOptions are optional queue attributes. Zero values are not sent.
type CreateQueueOptions struct {
	VisibilityTimeout      int32
	MessageRetentionPeriod int32
	DeadLetterTargetArn    string
	MaxReceiveCount        int
}

type redrivePolicy struct {
	DeadLetterTargetArn string `json:"deadLetterTargetArn"`
	MaxReceiveCount     string `json:"maxReceiveCount"`
}

func (o CreateQueueOptions) attributes() (map[string]string, error) {
	attrs := map[string]string{}
	if o.VisibilityTimeout > 0 {
		attrs[string(types.QueueAttributeNameVisibilityTimeout)] = strconv.Itoa(int(o.VisibilityTimeout))
	}
	if o.MessageRetentionPeriod > 0 {
		attrs[string(types.QueueAttributeNameMessageRetentionPeriod)] = strconv.Itoa(int(o.MessageRetentionPeriod))
	}
	if o.DeadLetterTargetArn != "" {
		if o.MaxReceiveCount < 1 {
			return nil, errors.New("max receive count must be at least 1 with a dead-letter target")
		}
		policy, err := json.Marshal(redrivePolicy{
			DeadLetterTargetArn: o.DeadLetterTargetArn,
			MaxReceiveCount:     strconv.Itoa(o.MaxReceiveCount),
		})
		if err != nil {
			return nil, err
		}
		attrs[string(types.QueueAttributeNameRedrivePolicy)] = string(policy)
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	return attrs, nil
}

// CreateQueue creates the queue, or returns the URL of an existing queue with
// the same name and attributes.
func (a *Admin) CreateQueue(ctx context.Context, name string, opts CreateQueueOptions) (string, error) {
	attrs, err := opts.attributes()
	if err != nil {
		return "", err
	}
	out, err := a.Client.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName:  aws.String(name),
		Attributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("create queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// GetQueueURL resolves a queue name to its URL.
func (a *Admin) GetQueueURL(ctx context.Context, name string) (string, error) {
	out, err := a.Client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return "", fmt.Errorf("get queue url %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), nil
}

// ReceiveOptions mirror the receive-message flags.
type ReceiveOptions struct {
	MaxNumberOfMessages   int32
	WaitTimeSeconds       int32
	MessageAttributeNames []string
	AttributeNames        []string
	VisibilityTimeout     int32
}

// ReceiveMessages fetches up to MaxNumberOfMessages messages.
func (a *Admin) ReceiveMessages(ctx context.Context, url string, opts ReceiveOptions) ([]types.Message, error) {
	if opts.MaxNumberOfMessages < 1 || opts.MaxNumberOfMessages > MaxReceiveBatch {
		return nil, ErrInvalidMaxMessages
	}

	input := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(url),
		MaxNumberOfMessages:   opts.MaxNumberOfMessages,
		WaitTimeSeconds:       opts.WaitTimeSeconds,
		MessageAttributeNames: opts.MessageAttributeNames,
		VisibilityTimeout:     opts.VisibilityTimeout,
	}
	for _, name := range opts.AttributeNames {
		input.MessageSystemAttributeNames = append(input.MessageSystemAttributeNames,
			types.MessageSystemAttributeName(name))
	}

	out, err := a.Client.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	return out.Messages, nil
}

// PurgeQueue deletes every message in the queue.
func (a *Admin) PurgeQueue(ctx context.Context, url string) error {
	if _, err := a.Client.PurgeQueue(ctx, &sqs.PurgeQueueInput{QueueUrl: aws.String(url)}); err != nil {
		return fmt.Errorf("purge queue: %w", err)
	}
	return nil
}

// Stats holds the approximate message counts of a queue.
type Stats struct {
	ARN      string `json:"arn,omitempty"`
	Visible  int    `json:"visible"`
	InFlight int    `json:"in_flight"`
	Delayed  int    `json:"delayed"`
}

// QueueStats reads the approximate counts of a queue.
func (a *Admin) QueueStats(ctx context.Context, url string) (Stats, error) {
	out, err := a.Client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl: aws.String(url),
		AttributeNames: []types.QueueAttributeName{
			types.QueueAttributeNameQueueArn,
			types.QueueAttributeNameApproximateNumberOfMessages,
			types.QueueAttributeNameApproximateNumberOfMessagesNotVisible,
			types.QueueAttributeNameApproximateNumberOfMessagesDelayed,
		},
	})
	if err != nil {
		return Stats{}, fmt.Errorf("get queue attributes: %w", err)
	}

	count := func(name types.QueueAttributeName) int {
		n, _ := strconv.Atoi(out.Attributes[string(name)])
		return n
	}
	return Stats{
		ARN:      out.Attributes[string(types.QueueAttributeNameQueueArn)],
		Visible:  count(types.QueueAttributeNameApproximateNumberOfMessages),
		InFlight: count(types.QueueAttributeNameApproximateNumberOfMessagesNotVisible),
		Delayed:  count(types.QueueAttributeNameApproximateNumberOfMessagesDelayed),
	}, nil
}

// SendMessage sends body with string attributes and returns the message id.
func (a *Admin) SendMessage(ctx context.Context, url, body string, attributes map[string]string) (string, error) {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String(body),
	}
	if len(attributes) > 0 {
		input.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attributes))
		for k, v := range attributes {
			input.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}
	out, err := a.Client.SendMessage(ctx, input)
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// DeleteMessage deletes a received message.
func (a *Admin) DeleteMessage(ctx context.Context, url, receiptHandle string) error {
	_, err := a.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// ChangeVisibility sets the visibility timeout of a received message.
func (a *Admin) ChangeVisibility(ctx context.Context, url, receiptHandle string, seconds int32) error {
	_, err := a.Client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(url),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: seconds,
	})
	if err != nil {
		return fmt.Errorf("change message visibility: %w", err)
	}
	return nil
}
