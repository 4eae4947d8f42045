package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Backend persists per-session state. Implementations expire idle entries.
type Backend interface {
	LoadDraft(ctx context.Context, key string) (*Draft, error)
	SaveDraft(ctx context.Context, key string, draft *Draft) error
	DeleteDraft(ctx context.Context, key string) error

	LoadInterview(ctx context.Context, key string) (*Interview, error)
	SaveInterview(ctx context.Context, key string, interview *Interview) error
	DeleteInterview(ctx context.Context, key string) error

	LoadWindow(ctx context.Context, key string) ([]Turn, error)
	AppendWindow(ctx context.Context, key string, limit int, turns ...Turn) error

	Clear(ctx context.Context, key string) error
}

func decodeDraft(data []byte) (*Draft, error) {
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("session: failed to decode draft: %w", err)
	}
	phase, err := ParsePhase(string(d.Phase))
	if err != nil {
		return nil, err
	}
	d.Phase = phase
	if d.Collected == nil {
		d.Collected = Slots{}
	}
	return &d, nil
}

func decodeInterview(data []byte) (*Interview, error) {
	var iv Interview
	if err := json.Unmarshal(data, &iv); err != nil {
		return nil, fmt.Errorf("session: failed to decode interview: %w", err)
	}
	if iv.Answers == nil {
		iv.Answers = map[string]string{}
	}
	return &iv, nil
}
