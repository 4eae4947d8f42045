package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryBackendDraftRoundTripIsolated(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour, 0)
	defer b.Close()

	d := NewDraft(PhaseCreateSupplement)
	d.Collected["medicineName"] = "Zinc"
	if err := b.SaveDraft(ctx, "k", d); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	d.Collected["dosage"] = "mutated after save"

	got, err := b.LoadDraft(ctx, "k")
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if got.Phase != PhaseCreateSupplement || got.Collected.String("medicineName") != "Zinc" {
		t.Fatalf("unexpected draft %+v", got)
	}
	if got.Collected.Has("dosage") {
		t.Fatal("stored draft must not alias the caller's map")
	}
}

func TestMemoryBackendExpiresIdleEntries(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	b := NewMemoryBackend(30*time.Minute, 0, WithClock(clock.Now))
	defer b.Close()

	_ = b.SaveDraft(ctx, "k", NewDraft(PhaseCreateVaccine))
	_ = b.SaveInterview(ctx, "k", NewInterview())
	_ = b.AppendWindow(ctx, "k", 40, Turn{Role: RoleUser, Content: "hi"})

	clock.Advance(29 * time.Minute)
	if d, _ := b.LoadDraft(ctx, "k"); d == nil {
		t.Fatal("draft should still be live before ttl")
	}

	clock.Advance(31 * time.Minute)
	if removed := b.Sweep(); removed != 3 {
		t.Fatalf("expected draft, interview and window swept, removed %d", removed)
	}
	if d, _ := b.LoadDraft(ctx, "k"); d != nil {
		t.Fatal("draft should have expired")
	}
}

func TestMemoryBackendWindowEvictsOldest(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(0, 0)
	for i := 0; i < 45; i++ {
		_ = b.AppendWindow(ctx, "k", 40, Turn{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	turns, _ := b.LoadWindow(ctx, "k")
	if len(turns) != 40 {
		t.Fatalf("expected 40 turns, got %d", len(turns))
	}
	if turns[0].Content != "m5" || turns[39].Content != "m44" {
		t.Fatalf("unexpected window bounds %q..%q", turns[0].Content, turns[39].Content)
	}
}

func TestMemoryBackendClear(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(time.Hour, 0)
	_ = b.SaveDraft(ctx, "k", NewDraft(PhaseCreateVaccine))
	_ = b.SaveInterview(ctx, "k", NewInterview())
	_ = b.AppendWindow(ctx, "k", 40, Turn{Role: RoleUser, Content: "hi"})

	if err := b.Clear(ctx, "k"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	d, _ := b.LoadDraft(ctx, "k")
	iv, _ := b.LoadInterview(ctx, "k")
	w, _ := b.LoadWindow(ctx, "k")
	if d != nil || iv != nil || len(w) != 0 {
		t.Fatalf("expected everything cleared, got %v %v %v", d, iv, w)
	}
}
