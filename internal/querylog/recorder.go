package querylog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const (
	defaultBuffer       = 256
	defaultWriteTimeout = 5 * time.Second
)

// Recorder writes entries to a Sink on a background worker. Record never blocks.
type Recorder struct {
	sink    Sink
	logger  *logging.Logger
	entries chan Entry
	done    chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewRecorder starts the worker. buffer <= 0 uses a default size.
func NewRecorder(sink Sink, buffer int, logger *logging.Logger) *Recorder {
	if sink == nil {
		panic("querylog: sink required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	r := &Recorder{
		sink:    sink,
		logger:  logger,
		entries: make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues e, dropping it when the buffer is full or the recorder is closed.
func (r *Recorder) Record(e Entry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.ExpiresAt == 0 {
		e.ExpiresAt = e.CreatedAt.Add(entryTTL).Unix()
	}
	e.Query = ScrubPII(e.Query)
	e.Response = Truncate(ScrubPII(e.Response), maxResponseRunes)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		return
	}
	select {
	case r.entries <- e:
	default:
		r.dropped.Add(1)
		r.logger.Warn("query log buffer full, dropping entry", "session_key", e.SessionKey)
	}
}

// Dropped returns how many entries were discarded.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops accepting entries and waits for the buffer to drain or ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
		if err := r.sink.Write(ctx, e); err != nil {
			r.logger.Error("failed to write query log", "error", err, "entry_id", e.ID)
		}
		cancel()
	}
}
