package chathistory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists transcripts in chat_histories and chat_messages.
type PostgresStore struct {
	db  pgxConn
	now func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("chathistory: pgx pool required")
	}
	return newPostgresStore(pool)
}

func newPostgresStore(db pgxConn) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	rec := &Record{ID: id}
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(user_id, ''), created_at, updated_at
		FROM chat_histories
		WHERE id = $1
	`, id).Scan(&rec.UserID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chathistory: load chat: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT role, message, created_at
		FROM chat_messages
		WHERE chat_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("chathistory: load messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chathistory: scan message: %w", err)
		}
		rec.Messages = append(rec.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chathistory: iterate messages: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Create(ctx context.Context, userID string, msgs []Message) (*Record, error) {
	now := s.now()
	rec := &Record{
		ID:        uuid.NewString(),
		UserID:    userID,
		Messages:  stamp(msgs, now),
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("chathistory: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO chat_histories (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, nullString(userID), now, now); err != nil {
		return nil, fmt.Errorf("chathistory: insert chat: %w", err)
	}
	if err := insertMessages(ctx, tx, rec.ID, rec.Messages); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("chathistory: commit: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Append(ctx context.Context, id string, msgs ...Message) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	now := s.now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("chathistory: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE chat_histories SET updated_at = $2 WHERE id = $1`, id, now)
	if err != nil {
		return nil, fmt.Errorf("chathistory: touch chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	if err := insertMessages(ctx, tx, id, stamp(msgs, now)); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("chathistory: commit: %w", err)
	}
	return s.FindByID(ctx, id)
}

func insertMessages(ctx context.Context, tx pgx.Tx, chatID string, msgs []Message) error {
	for _, m := range msgs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_messages (chat_id, role, message, created_at)
			VALUES ($1, $2, $3, $4)
		`, chatID, m.Role, m.Message, m.CreatedAt); err != nil {
			return fmt.Errorf("chathistory: insert message: %w", err)
		}
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
