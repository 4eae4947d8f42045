package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryWindow struct {
	turns     []Turn
	expiresAt time.Time
}

// MemoryBackend keeps session state in process. Values are stored encoded so
// callers never share mutable maps with the store.
type MemoryBackend struct {
	mu         sync.Mutex
	ttl        time.Duration
	now        func() time.Time
	drafts     map[string]memoryEntry
	interviews map[string]memoryEntry
	windows    map[string]memoryWindow

	stop     chan struct{}
	stopOnce sync.Once
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		if now != nil {
			b.now = now
		}
	}
}

// NewMemoryBackend creates a backend whose entries expire after ttl of inactivity.
// A janitor goroutine sweeps expired entries every sweepEvery; zero disables it.
func NewMemoryBackend(ttl, sweepEvery time.Duration, opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		ttl:        ttl,
		now:        time.Now,
		drafts:     make(map[string]memoryEntry),
		interviews: make(map[string]memoryEntry),
		windows:    make(map[string]memoryWindow),
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if sweepEvery > 0 && ttl > 0 {
		go b.janitor(sweepEvery)
	}
	return b
}

func (b *MemoryBackend) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.Sweep()
		case <-b.stop:
			return
		}
	}
}

// Sweep evicts every expired entry and returns how many were removed.
func (b *MemoryBackend) Sweep() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	removed := 0
	for k, e := range b.drafts {
		if b.expired(e.expiresAt, now) {
			delete(b.drafts, k)
			removed++
		}
	}
	for k, e := range b.interviews {
		if b.expired(e.expiresAt, now) {
			delete(b.interviews, k)
			removed++
		}
	}
	for k, w := range b.windows {
		if b.expired(w.expiresAt, now) {
			delete(b.windows, k)
			removed++
		}
	}
	return removed
}

// Close stops the janitor.
func (b *MemoryBackend) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
}

func (b *MemoryBackend) expired(at, now time.Time) bool {
	return b.ttl > 0 && !at.IsZero() && !now.Before(at)
}

func (b *MemoryBackend) deadline() time.Time {
	if b.ttl <= 0 {
		return time.Time{}
	}
	return b.now().Add(b.ttl)
}

func (b *MemoryBackend) LoadDraft(_ context.Context, key string) (*Draft, error) {
	b.mu.Lock()
	e, ok := b.drafts[key]
	if ok && b.expired(e.expiresAt, b.now()) {
		delete(b.drafts, key)
		ok = false
	}
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeDraft(e.data)
}

func (b *MemoryBackend) SaveDraft(_ context.Context, key string, draft *Draft) error {
	if draft == nil {
		return fmt.Errorf("session: draft cannot be nil")
	}
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("session: failed to encode draft: %w", err)
	}
	b.mu.Lock()
	b.drafts[key] = memoryEntry{data: data, expiresAt: b.deadline()}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) DeleteDraft(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.drafts, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) LoadInterview(_ context.Context, key string) (*Interview, error) {
	b.mu.Lock()
	e, ok := b.interviews[key]
	if ok && b.expired(e.expiresAt, b.now()) {
		delete(b.interviews, key)
		ok = false
	}
	b.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeInterview(e.data)
}

func (b *MemoryBackend) SaveInterview(_ context.Context, key string, interview *Interview) error {
	if interview == nil {
		return fmt.Errorf("session: interview cannot be nil")
	}
	data, err := json.Marshal(interview)
	if err != nil {
		return fmt.Errorf("session: failed to encode interview: %w", err)
	}
	b.mu.Lock()
	b.interviews[key] = memoryEntry{data: data, expiresAt: b.deadline()}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) DeleteInterview(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.interviews, key)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) LoadWindow(_ context.Context, key string) ([]Turn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[key]
	if !ok {
		return nil, nil
	}
	if b.expired(w.expiresAt, b.now()) {
		delete(b.windows, key)
		return nil, nil
	}
	out := make([]Turn, len(w.turns))
	copy(out, w.turns)
	return out, nil
}

func (b *MemoryBackend) AppendWindow(_ context.Context, key string, limit int, turns ...Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.windows[key]
	if b.expired(w.expiresAt, b.now()) {
		w.turns = nil
	}
	w.turns = append(w.turns, turns...)
	if limit > 0 && len(w.turns) > limit {
		w.turns = append([]Turn(nil), w.turns[len(w.turns)-limit:]...)
	}
	w.expiresAt = b.deadline()
	b.windows[key] = w
	return nil
}

func (b *MemoryBackend) Clear(_ context.Context, key string) error {
	b.mu.Lock()
	delete(b.drafts, key)
	delete(b.interviews, key)
	delete(b.windows, key)
	b.mu.Unlock()
	return nil
}

var _ Backend = (*MemoryBackend)(nil)
