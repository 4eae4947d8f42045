package chathistory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps transcripts in process memory. Intended for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*Record),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Create(_ context.Context, userID string, msgs []Message) (*Record, error) {
	now := s.now()
	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Messages:  stamp(msgs, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.records[rec.ID] = rec
	s.mu.Unlock()
	return cloneRecord(rec), nil
}

func (s *MemoryStore) Append(_ context.Context, id string, msgs ...Message) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	rec.Messages = append(rec.Messages, stamp(msgs, now)...)
	rec.UpdatedAt = now
	return cloneRecord(rec), nil
}

func stamp(msgs []Message, now time.Time) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		out[i] = m
	}
	return out
}

func cloneRecord(rec *Record) *Record {
	cp := *rec
	cp.Messages = append([]Message(nil), rec.Messages...)
	return &cp
}
