// Package querylog records one entry per assistant turn for usage and quality review.
package querylog

import (
	"context"
	"time"
	"unicode/utf8"
)

const (
	maxResponseRunes = 2000
	entryTTL         = 90 * 24 * time.Hour
)

// Entry is a single logged query.
type Entry struct {
	ID               string    `dynamodbav:"id" json:"id"`
	SessionKey       string    `dynamodbav:"sessionKey" json:"sessionKey"`
	UserID           string    `dynamodbav:"userId,omitempty" json:"userId,omitempty"`
	ChatID           string    `dynamodbav:"chatId,omitempty" json:"chatId,omitempty"`
	Query            string    `dynamodbav:"query" json:"query"`
	Response         string    `dynamodbav:"response,omitempty" json:"response,omitempty"`
	Intent           string    `dynamodbav:"intent,omitempty" json:"intent,omitempty"`
	Model            string    `dynamodbav:"model,omitempty" json:"model,omitempty"`
	PromptTokens     int64     `dynamodbav:"promptTokens" json:"promptTokens"`
	CompletionTokens int64     `dynamodbav:"completionTokens" json:"completionTokens"`
	TotalTokens      int64     `dynamodbav:"totalTokens" json:"totalTokens"`
	Success          bool      `dynamodbav:"success" json:"success"`
	Error            string    `dynamodbav:"error,omitempty" json:"error,omitempty"`
	LatencyMs        int64     `dynamodbav:"latencyMs" json:"latencyMs"`
	CreatedAt        time.Time `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt        int64     `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// Sink persists entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
