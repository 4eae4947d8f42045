package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/health-assistant/internal/chathistory"
	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const memorySweepInterval = time.Minute

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildSessionStore picks the session backend from config. A redis backend
// that cannot be reached falls back to memory so the bot still answers.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) *session.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		cfg = &appconfig.Config{}
	}

	var backend session.Backend
	var lease session.Lease
	switch cfg.SessionBackend {
	case "redis":
		if redisClient != nil {
			backend = session.NewRedisBackend(redisClient, cfg.SessionTTL, otel.Tracer("health-assistant.session"))
			lease = session.NewRedisLease(redisClient, session.DefaultLeaseTTL)
			logger.Info("session store using redis", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
			break
		}
		logger.Warn("redis session backend requested but unavailable; using memory")
		fallthrough
	default:
		backend = session.NewMemoryBackend(cfg.SessionTTL, memorySweepInterval)
		logger.Info("session store using memory", "ttl", cfg.SessionTTL)
	}
	store := session.NewStore(backend, cfg.ConversationWindow)
	if lease != nil {
		store.WithLease(lease)
	}
	return store
}

// ConnectPostgresPool returns nil when no database is configured or reachable.
func ConnectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(databaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres pool unavailable", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Warn("postgres not reachable", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// OpenSQLDB opens the database/sql handle used by the safety audit trail.
func OpenSQLDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open sql db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: ping sql db: %w", err)
	}
	return db, nil
}

// BuildHistoryStore persists transcripts in Postgres when a pool exists.
func BuildHistoryStore(pool *pgxpool.Pool, logger *logging.Logger) chathistory.Store {
	if logger == nil {
		logger = logging.Default()
	}
	if pool == nil {
		logger.Warn("no database configured; chat history kept in memory")
		return chathistory.NewMemoryStore()
	}
	logger.Info("chat history persistence enabled")
	return chathistory.NewPostgresStore(pool)
}
