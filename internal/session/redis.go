package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisBackend stores session state in Redis with a sliding TTL.
type RedisBackend struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisBackend wraps a Redis client. A nil tracer uses the global provider.
func NewRedisBackend(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisBackend {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("health-assistant.internal.session")
	}
	return &RedisBackend{redis: client, ttl: ttl, tracer: tracer}
}

func draftKey(key string) string     { return "draft:" + key }
func interviewKey(key string) string { return "health_score:" + key }
func windowKey(key string) string    { return "window:" + key }

func (b *RedisBackend) LoadDraft(ctx context.Context, key string) (*Draft, error) {
	ctx, span := b.tracer.Start(ctx, "session.load_draft")
	defer span.End()

	data, err := b.redis.Get(ctx, draftKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load draft: %w", err)
	}
	return decodeDraft(data)
}

func (b *RedisBackend) SaveDraft(ctx context.Context, key string, draft *Draft) error {
	ctx, span := b.tracer.Start(ctx, "session.save_draft")
	defer span.End()

	if draft == nil {
		return fmt.Errorf("session: draft cannot be nil")
	}
	data, err := json.Marshal(draft)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to encode draft: %w", err)
	}
	if err := b.redis.Set(ctx, draftKey(key), data, b.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist draft: %w", err)
	}
	return nil
}

func (b *RedisBackend) DeleteDraft(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, draftKey(key)).Err(); err != nil {
		return fmt.Errorf("session: failed to delete draft: %w", err)
	}
	return nil
}

func (b *RedisBackend) LoadInterview(ctx context.Context, key string) (*Interview, error) {
	ctx, span := b.tracer.Start(ctx, "session.load_interview")
	defer span.End()

	data, err := b.redis.Get(ctx, interviewKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load interview: %w", err)
	}
	return decodeInterview(data)
}

func (b *RedisBackend) SaveInterview(ctx context.Context, key string, interview *Interview) error {
	ctx, span := b.tracer.Start(ctx, "session.save_interview")
	defer span.End()

	if interview == nil {
		return fmt.Errorf("session: interview cannot be nil")
	}
	data, err := json.Marshal(interview)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to encode interview: %w", err)
	}
	if err := b.redis.Set(ctx, interviewKey(key), data, b.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist interview: %w", err)
	}
	return nil
}

func (b *RedisBackend) DeleteInterview(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, interviewKey(key)).Err(); err != nil {
		return fmt.Errorf("session: failed to delete interview: %w", err)
	}
	return nil
}

func (b *RedisBackend) LoadWindow(ctx context.Context, key string) ([]Turn, error) {
	ctx, span := b.tracer.Start(ctx, "session.load_window")
	defer span.End()

	raw, err := b.redis.LRange(ctx, windowKey(key), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load window: %w", err)
	}
	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (b *RedisBackend) AppendWindow(ctx context.Context, key string, limit int, turns ...Turn) error {
	ctx, span := b.tracer.Start(ctx, "session.append_window")
	defer span.End()

	if len(turns) == 0 {
		return nil
	}
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("session: failed to encode turn: %w", err)
		}
		values = append(values, data)
	}

	k := windowKey(key)
	pipe := b.redis.TxPipeline()
	pipe.RPush(ctx, k, values...)
	if limit > 0 {
		pipe.LTrim(ctx, k, int64(-limit), -1)
	}
	if b.ttl > 0 {
		pipe.Expire(ctx, k, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to append window: %w", err)
	}
	return nil
}

func (b *RedisBackend) Clear(ctx context.Context, key string) error {
	if err := b.redis.Del(ctx, draftKey(key), interviewKey(key), windowKey(key)).Err(); err != nil {
		return fmt.Errorf("session: failed to clear session: %w", err)
	}
	return nil
}

var _ Backend = (*RedisBackend)(nil)
