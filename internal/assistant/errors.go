package assistant

import "errors"

var (
	ErrInputRequired  = errors.New("assistant: message or audio required")
	ErrInvalidInput   = errors.New("assistant: invalid input")
	ErrHarmfulContent = errors.New("assistant: harmful content")
	ErrRateLimited    = errors.New("assistant: rate limited")
	ErrChatNotFound   = errors.New("assistant: chat not found")
	ErrInternal       = errors.New("assistant: internal error")
)

// SafetyError is returned for blocked messages and carries the reply shown to the user.
type SafetyError struct {
	Severity string
	Response string
}

func (e *SafetyError) Error() string { return "assistant: harmful content (" + e.Severity + ")" }

func (e *SafetyError) Unwrap() error { return ErrHarmfulContent }
