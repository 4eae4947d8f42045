package querylog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type mockDynamo struct {
	putInput *dynamodb.PutItemInput
	putErr   error
}

func (m *mockDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	m.putInput = in
	return &dynamodb.PutItemOutput{}, m.putErr
}

type mockSQS struct {
	input *sqs.SendMessageInput
}

func (m *mockSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.input = in
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestDynamoSinkWrite(t *testing.T) {
	mock := &mockDynamo{}
	sink := NewDynamoSink(mock, "ai_query_logs")
	entry := Entry{
		ID:          "q-1",
		SessionKey:  "user:9",
		Query:       "when is my next dose",
		Model:       "gpt-4o-mini",
		TotalTokens: 42,
		Success:     true,
		CreatedAt:   time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	}
	if err := sink.Write(context.Background(), entry); err != nil {
		t.Fatalf("write: %v", err)
	}
	if aws.ToString(mock.putInput.TableName) != "ai_query_logs" {
		t.Fatalf("unexpected table %v", mock.putInput.TableName)
	}
	var stored Entry
	if err := attributevalue.UnmarshalMap(mock.putInput.Item, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stored.ID != "q-1" || stored.TotalTokens != 42 || !stored.Success {
		t.Fatalf("unexpected stored entry: %+v", stored)
	}
}

func TestDynamoSinkWrapsError(t *testing.T) {
	sink := NewDynamoSink(&mockDynamo{putErr: errors.New("throttled")}, "t")
	if err := sink.Write(context.Background(), Entry{ID: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSQSSinkWrite(t *testing.T) {
	mock := &mockSQS{}
	sink := NewSQSSink(mock, "https://sqs.local/queue")
	if err := sink.Write(context.Background(), Entry{ID: "q-2", Model: "safety-filter"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var body Entry
	if err := json.Unmarshal([]byte(aws.ToString(mock.input.MessageBody)), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "q-2" || body.Model != "safety-filter" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
