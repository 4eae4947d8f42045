package querylog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoSink stores entries in a DynamoDB table keyed by id.
type DynamoSink struct {
	client    dynamoAPI
	tableName string
}

func NewDynamoSink(client dynamoAPI, tableName string) *DynamoSink {
	if client == nil {
		panic("querylog: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("querylog: table name cannot be empty")
	}
	return &DynamoSink{client: client, tableName: tableName}
}

func (s *DynamoSink) Write(ctx context.Context, e Entry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("querylog: failed to marshal entry: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("querylog: failed to persist entry: %w", err)
	}
	return nil
}

type sqsAPI interface {
	SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSink publishes entries as JSON messages for downstream analytics.
type SQSSink struct {
	client   sqsAPI
	queueURL string
}

func NewSQSSink(client sqsAPI, queueURL string) *SQSSink {
	if client == nil {
		panic("querylog: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("querylog: SQS queueURL cannot be empty")
	}
	return &SQSSink{client: client, queueURL: queueURL}
}

func (s *SQSSink) Write(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("querylog: failed to encode entry: %w", err)
	}
	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("querylog: failed to send SQS message: %w", err)
	}
	return nil
}

// LogSink writes entries to the structured logger.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, e Entry) error {
	s.logger.Info("ai query",
		"id", e.ID,
		"session_key", e.SessionKey,
		"chat_id", e.ChatID,
		"intent", e.Intent,
		"model", e.Model,
		"success", e.Success,
		"error", e.Error,
		"total_tokens", e.TotalTokens,
		"latency_ms", e.LatencyMs,
	)
	return nil
}
