// Package chathistory persists chat transcripts shown back to the user.
package chathistory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a chat id does not exist.
var ErrNotFound = errors.New("chathistory: chat not found")

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// Message is one line of a chat transcript.
type Message struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is a chat transcript.
type Record struct {
	ID        string    `json:"chatId"`
	UserID    string    `json:"userId,omitempty"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tail returns at most n of the most recent messages.
func (r *Record) Tail(n int) []Message {
	if r == nil || n <= 0 {
		return nil
	}
	if len(r.Messages) <= n {
		return r.Messages
	}
	return r.Messages[len(r.Messages)-n:]
}

// Store is implemented by the chat history backends.
type Store interface {
	FindByID(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, userID string, msgs []Message) (*Record, error)
	Append(ctx context.Context, id string, msgs ...Message) (*Record, error)
}
