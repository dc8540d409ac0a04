package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
	"github.com/spf13/cobra"

	"aws-sqs-http-gateway/configs"
	sqsQueue "aws-sqs-http-gateway/internal/pkg/queue/sqs"
)

type adminFactory func(ctx context.Context, region, endpoint string) (*sqsQueue.Admin, error)

type cli struct {
	region   string
	endpoint string
	newAdmin adminFactory
}

func newRootCmd(defaults configs.AWS, newAdmin adminFactory) *cobra.Command {
	c := &cli{newAdmin: newAdmin}

	root := &cobra.Command{
		Use:          "queuectl",
		Short:        "SQS queue administration",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.endpoint, "endpoint-url", defaults.AwsEndpointURL, "SQS endpoint URL")
	root.PersistentFlags().StringVar(&c.region, "region", defaults.AwsRegion, "AWS region")

	root.AddCommand(
		c.createQueueCmd(),
		c.getQueueURLCmd(),
		c.receiveMessageCmd(),
		c.purgeQueueCmd(),
		c.sendMessageCmd(),
		c.queueStatsCmd(),
	)
	return root
}

func (c *cli) admin(cmd *cobra.Command) (*sqsQueue.Admin, error) {
	return c.newAdmin(cmd.Context(), c.region, c.endpoint)
}

func (c *cli) createQueueCmd() *cobra.Command {
	var (
		name string
		opts sqsQueue.CreateQueueOptions
	)
	cmd := &cobra.Command{
		Use:   "create-queue",
		Short: "Create a queue and print its URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			url, err := admin.CreateQueue(cmd.Context(), name, opts)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, map[string]string{"QueueUrl": url})
		},
	}
	cmd.Flags().StringVar(&name, "queue-name", "", "queue name")
	cmd.Flags().Int32Var(&opts.VisibilityTimeout, "visibility-timeout", 0, "visibility timeout in seconds")
	cmd.Flags().Int32Var(&opts.MessageRetentionPeriod, "message-retention-period", 0, "retention period in seconds")
	cmd.Flags().StringVar(&opts.DeadLetterTargetArn, "dead-letter-target-arn", "", "dead-letter queue ARN")
	cmd.Flags().IntVar(&opts.MaxReceiveCount, "max-receive-count", 0, "receives before a message moves to the dead-letter queue")
	_ = cmd.MarkFlagRequired("queue-name")
	return cmd
}

func (c *cli) getQueueURLCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "get-queue-url",
		Short: "Print the URL of a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			url, err := admin.GetQueueURL(cmd.Context(), name)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, map[string]string{"QueueUrl": url})
		},
	}
	cmd.Flags().StringVar(&name, "queue-name", "", "queue name")
	_ = cmd.MarkFlagRequired("queue-name")
	return cmd
}

func (c *cli) receiveMessageCmd() *cobra.Command {
	var (
		url  string
		opts sqsQueue.ReceiveOptions
	)
	cmd := &cobra.Command{
		Use:   "receive-message",
		Short: "Receive up to 10 messages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			messages, err := admin.ReceiveMessages(cmd.Context(), url, opts)
			if err != nil {
				return describe(err)
			}
			if messages == nil {
				messages = []types.Message{}
			}
			return printJSON(cmd, map[string][]types.Message{"Messages": messages})
		},
	}
	cmd.Flags().StringVar(&url, "queue-url", "", "queue URL")
	cmd.Flags().Int32Var(&opts.MaxNumberOfMessages, "max-number-of-messages", sqsQueue.MaxReceiveBatch, "messages to receive, 1 to 10")
	cmd.Flags().StringSliceVar(&opts.MessageAttributeNames, "message-attribute-names", []string{sqsQueue.AllAttributes}, "message attributes to return")
	cmd.Flags().StringSliceVar(&opts.AttributeNames, "attribute-names", []string{sqsQueue.AllAttributes}, "system attributes to return")
	cmd.Flags().Int32Var(&opts.WaitTimeSeconds, "wait-time-seconds", 0, "long polling wait in seconds")
	cmd.Flags().Int32Var(&opts.VisibilityTimeout, "visibility-timeout", 0, "visibility timeout in seconds")
	_ = cmd.MarkFlagRequired("queue-url")
	return cmd
}

func (c *cli) purgeQueueCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "purge-queue",
		Short: "Delete every message in a queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			return describe(admin.PurgeQueue(cmd.Context(), url))
		},
	}
	cmd.Flags().StringVar(&url, "queue-url", "", "queue URL")
	_ = cmd.MarkFlagRequired("queue-url")
	return cmd
}

func (c *cli) sendMessageCmd() *cobra.Command {
	var (
		url        string
		body       string
		attributes map[string]string
	)
	cmd := &cobra.Command{
		Use:   "send-message",
		Short: "Send a message with string attributes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			id, err := admin.SendMessage(cmd.Context(), url, body, attributes)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, map[string]string{"MessageId": id})
		},
	}
	cmd.Flags().StringVar(&url, "queue-url", "", "queue URL")
	cmd.Flags().StringVar(&body, "message-body", "", "message body")
	cmd.Flags().StringToStringVar(&attributes, "message-attributes", nil, "string attributes as key=value pairs")
	_ = cmd.MarkFlagRequired("queue-url")
	_ = cmd.MarkFlagRequired("message-body")
	return cmd
}

func (c *cli) queueStatsCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "queue-stats",
		Short: "Print approximate message counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, err := c.admin(cmd)
			if err != nil {
				return err
			}
			stats, err := admin.QueueStats(cmd.Context(), url)
			if err != nil {
				return describe(err)
			}
			return printJSON(cmd, stats)
		},
	}
	cmd.Flags().StringVar(&url, "queue-url", "", "queue URL")
	_ = cmd.MarkFlagRequired("queue-url")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

// describe rewrites AWS API errors as "CODE: message".
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err
}
