package session

import (
	"context"
	"time"
)

// DefaultWindowSize is the number of turns kept as classifier context.
const DefaultWindowSize = 40

// Store is the process-wide session state: one draft, one health-score
// interview and one rolling window per key, with per-key serialization.
type Store struct {
	backend Backend
	locks   *keyedMutex
	lease   Lease
	window  int
	now     func() time.Time
}

// NewStore wraps backend. window <= 0 selects DefaultWindowSize.
func NewStore(backend Backend, window int) *Store {
	if backend == nil {
		panic("session: backend cannot be nil")
	}
	if window <= 0 {
		window = DefaultWindowSize
	}
	return &Store{backend: backend, locks: newKeyedMutex(), window: window, now: time.Now}
}

// WithLease adds a cross-replica lease on top of the in-process lock.
func (s *Store) WithLease(lease Lease) *Store {
	s.lease = lease
	return s
}

// Lock serializes every turn for key. Call the returned func to release.
func (s *Store) Lock(ctx context.Context, key string) (func(), error) {
	unlock := s.locks.Lock(key)
	if s.lease == nil {
		return unlock, nil
	}
	release, err := s.lease.Acquire(ctx, key)
	if err != nil {
		unlock()
		return nil, err
	}
	return func() {
		release()
		unlock()
	}, nil
}

// WindowSize returns the configured window bound.
func (s *Store) WindowSize() int {
	return s.window
}

func (s *Store) Draft(ctx context.Context, key string) (*Draft, error) {
	return s.backend.LoadDraft(ctx, key)
}

// SaveDraft replaces whatever draft key held, including one for another phase.
func (s *Store) SaveDraft(ctx context.Context, key string, draft *Draft) error {
	draft.UpdatedAt = s.now().UTC()
	return s.backend.SaveDraft(ctx, key, draft)
}

func (s *Store) DeleteDraft(ctx context.Context, key string) error {
	return s.backend.DeleteDraft(ctx, key)
}

func (s *Store) Interview(ctx context.Context, key string) (*Interview, error) {
	return s.backend.LoadInterview(ctx, key)
}

func (s *Store) SaveInterview(ctx context.Context, key string, interview *Interview) error {
	interview.UpdatedAt = s.now().UTC()
	return s.backend.SaveInterview(ctx, key, interview)
}

func (s *Store) DeleteInterview(ctx context.Context, key string) error {
	return s.backend.DeleteInterview(ctx, key)
}

func (s *Store) Window(ctx context.Context, key string) ([]Turn, error) {
	return s.backend.LoadWindow(ctx, key)
}

// AppendWindow adds turns and evicts the oldest beyond the window bound.
func (s *Store) AppendWindow(ctx context.Context, key string, turns ...Turn) error {
	return s.backend.AppendWindow(ctx, key, s.window, turns...)
}

// Clear drops the draft, interview and window for key.
func (s *Store) Clear(ctx context.Context, key string) error {
	return s.backend.Clear(ctx, key)
}

// Close stops backend background work such as the memory janitor.
func (s *Store) Close() {
	if c, ok := s.backend.(interface{ Close() }); ok {
		c.Close()
	}
}
