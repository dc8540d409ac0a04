//go:build integration

package sqs

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var localstackEndpoint string

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "localstack/localstack",
		Tag:        "3.8",
		Env:        []string{"SERVICES=sqs"},
	})
	if err != nil {
		log.Fatalf("Could not start localstack: %s", err)
	}
	_ = resource.Expire(300)

	localstackEndpoint = fmt.Sprintf("http://localhost:%s", resource.GetPort("4566/tcp"))
	pool.MaxWait = 2 * time.Minute
	err = pool.Retry(func() error {
		client, err := NewClient(context.Background(), "us-east-1", localstackEndpoint)
		if err != nil {
			return err
		}
		_, err = (&Admin{Client: client}).CreateQueue(context.Background(), "ready", CreateQueueOptions{})
		return err
	})
	if err != nil {
		_ = pool.Purge(resource)
		log.Fatalf("Could not reach localstack: %s", err)
	}

	code := m.Run()

	_ = pool.Purge(resource)
	os.Exit(code)
}

func newLocalstackAdmin(t *testing.T) *Admin {
	t.Helper()
	client, err := NewClient(context.Background(), "us-east-1", localstackEndpoint)
	require.NoError(t, err)
	return &Admin{Client: client}
}

func TestQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	admin := newLocalstackAdmin(t)

	created, err := admin.CreateQueue(ctx, "lifecycle", CreateQueueOptions{VisibilityTimeout: 30})
	require.NoError(t, err)

	resolved, err := admin.GetQueueURL(ctx, "lifecycle")
	require.NoError(t, err)
	assert.Equal(t, created, resolved)

	for i := range 3 {
		_, err := admin.SendMessage(ctx, created, fmt.Sprintf(`{"n":%d}`, i), map[string]string{"MessageType": "TEST"})
		require.NoError(t, err)
	}

	messages, err := admin.ReceiveMessages(ctx, created, ReceiveOptions{
		MaxNumberOfMessages:   MaxReceiveBatch,
		WaitTimeSeconds:       1,
		MessageAttributeNames: []string{AllAttributes},
		AttributeNames:        []string{AllAttributes},
		VisibilityTimeout:     1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	assert.Equal(t, "TEST", *messages[0].MessageAttributes["MessageType"].StringValue)
	assert.NotEmpty(t, messages[0].Attributes["ApproximateReceiveCount"])

	require.NoError(t, admin.PurgeQueue(ctx, created))

	messages, err = admin.ReceiveMessages(ctx, created, ReceiveOptions{
		MaxNumberOfMessages: MaxReceiveBatch,
		WaitTimeSeconds:     2,
	})
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRedriveToDeadLetterQueue(t *testing.T) {
	ctx := context.Background()
	admin := newLocalstackAdmin(t)

	dlqURL, err := admin.CreateQueue(ctx, "redrive-dlq", CreateQueueOptions{})
	require.NoError(t, err)
	dlq, err := admin.QueueStats(ctx, dlqURL)
	require.NoError(t, err)
	require.NotEmpty(t, dlq.ARN)

	url, err := admin.CreateQueue(ctx, "redrive", CreateQueueOptions{
		DeadLetterTargetArn: dlq.ARN,
		MaxReceiveCount:     1,
	})
	require.NoError(t, err)

	_, err = admin.SendMessage(ctx, url, "poison", nil)
	require.NoError(t, err)

	actions := &SqsActions{SqsClient: admin.Client, Config: &Config{WorkerPoolSize: 1, QueueUrl: url, WaitTimeSeconds: 1}}
	first, err := actions.GetMessages(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NoError(t, actions.ReleaseMessage(ctx, first[0]))

	assert.Eventually(t, func() bool {
		_, _ = actions.GetMessages(ctx)
		stats, err := admin.QueueStats(ctx, dlqURL)
		return err == nil && stats.Visible == 1
	}, 30*time.Second, time.Second)
}
