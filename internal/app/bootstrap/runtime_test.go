package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/health-assistant/internal/chathistory"
	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

func TestBuildRedisClientDisabledWithoutAddr(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), false); client != nil {
		t.Fatalf("expected nil client without an address")
	}
	if client := BuildRedisClient(context.Background(), nil, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifyFailureReturnsNil(t *testing.T) {
	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if client := BuildRedisClient(ctx, cfg, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when redis is unreachable")
	}
}

func TestBuildSessionStoreRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		SessionBackend:     "redis",
		SessionTTL:         time.Hour,
		ConversationWindow: 8,
		RedisAddr:          mr.Addr(),
	}
	logger := logging.New("error")
	client := BuildRedisClient(context.Background(), cfg, logger, true)
	if client == nil {
		t.Fatalf("expected redis client")
	}
	defer client.Close()

	store := BuildSessionStore(cfg, client, logger)
	defer store.Close()
	if store.WindowSize() != 8 {
		t.Fatalf("expected window 8, got %d", store.WindowSize())
	}

	if err := store.SaveDraft(context.Background(), "user-1", session.NewDraft(session.PhaseCreateVaccine)); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if !mr.Exists("draft:user-1") {
		t.Fatalf("expected draft to be written to redis, keys=%v", mr.Keys())
	}

	unlock, err := store.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("lock:user-1") {
		t.Fatalf("expected redis lease while the turn is held, keys=%v", mr.Keys())
	}
	unlock()
	if mr.Exists("lock:user-1") {
		t.Fatalf("expected redis lease to be released")
	}
}

func TestBuildSessionStoreRedisUnavailableUsesMemory(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "redis", SessionTTL: time.Hour}

	store := BuildSessionStore(cfg, nil, logging.New("error"))
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveDraft(ctx, "user-1", session.NewDraft(session.PhaseCreateSupplement)); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	draft, err := store.Draft(ctx, "user-1")
	if err != nil {
		t.Fatalf("load draft: %v", err)
	}
	if draft == nil || draft.Phase != session.PhaseCreateSupplement {
		t.Fatalf("expected supplement draft from memory backend, got %#v", draft)
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := ConnectPostgresPool(context.Background(), "   ", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestOpenSQLDBEmptyURL(t *testing.T) {
	db, err := OpenSQLDB(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != nil {
		t.Fatalf("expected nil db for empty URL")
	}
}

func TestBuildHistoryStoreWithoutPoolUsesMemory(t *testing.T) {
	store := BuildHistoryStore(nil, logging.New("error"))
	if _, ok := store.(*chathistory.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
}
