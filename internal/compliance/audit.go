// Package compliance keeps the audit trail for messages blocked by the safety guard.
package compliance

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// AuditEventType represents the type of safety event.
type AuditEventType string

const (
	// EventHarmfulBlocked is logged when a message is refused for harmful content.
	EventHarmfulBlocked AuditEventType = "safety.harmful_blocked"
	// EventInvalidInput is logged when a message is refused for script or oversized input.
	EventInvalidInput AuditEventType = "safety.invalid_input"
)

// Incident describes one blocked message.
type Incident struct {
	EventType  AuditEventType
	SessionKey string
	UserID     string
	Severity   string
	Categories []string
	Message    string
	OccurredAt time.Time
}

// AuditEvent is an immutable audit row. The message itself is never stored; only its hash.
type AuditEvent struct {
	ID          string          `json:"id"`
	EventType   AuditEventType  `json:"event_type"`
	SessionKey  string          `json:"session_key"`
	UserID      string          `json:"user_id,omitempty"`
	Severity    string          `json:"severity"`
	Categories  []string        `json:"categories"`
	MessageHash string          `json:"message_hash"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type auditDetails struct {
	MessageLength int `json:"message_length"`
}

// AuditService writes safety events to safety_audit_events.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new audit service.
func NewAuditService(db *sql.DB) *AuditService {
	if db == nil {
		panic("compliance: db required")
	}
	return &AuditService{db: db}
}

// RecordBlocked stores an incident.
func (s *AuditService) RecordBlocked(ctx context.Context, in Incident) error {
	eventType := in.EventType
	if eventType == "" {
		eventType = EventHarmfulBlocked
	}
	createdAt := in.OccurredAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	categories := in.Categories
	if categories == nil {
		categories = []string{}
	}
	details, _ := json.Marshal(auditDetails{MessageLength: len([]rune(in.Message))})

	query := `
		INSERT INTO safety_audit_events (
			id, event_type, session_key, user_id, severity,
			categories, message_hash, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(),
		eventType,
		in.SessionKey,
		nullString(in.UserID),
		strings.ToUpper(in.Severity),
		pq.Array(categories),
		HashMessage(in.Message),
		details,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("compliance: failed to log audit event: %w", err)
	}
	return nil
}

// QueryEvents retrieves audit events with filters.
func (s *AuditService) QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `
		SELECT id, event_type, session_key, user_id, severity,
			   categories, message_hash, details, created_at
		FROM safety_audit_events
		WHERE 1 = 1
	`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.SessionKey != "" {
		add(" AND session_key = $%d", filter.SessionKey)
	}
	if filter.Severity != "" {
		add(" AND severity = $%d", strings.ToUpper(filter.Severity))
	}
	if !filter.StartTime.IsZero() {
		add(" AND created_at >= $%d", filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		add(" AND created_at <= $%d", filter.EndTime)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("compliance: failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var e AuditEvent
		var userID sql.NullString
		if err := rows.Scan(
			&e.ID, &e.EventType, &e.SessionKey, &userID, &e.Severity,
			pq.Array(&e.Categories), &e.MessageHash, &e.Details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("compliance: failed to scan audit event: %w", err)
		}
		e.UserID = userID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compliance: failed to iterate audit events: %w", err)
	}
	return events, nil
}

// AuditFilter specifies criteria for querying audit events.
type AuditFilter struct {
	SessionKey string
	Severity   string
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
}

// HashMessage returns the hex sha256 of a normalized message.
func HashMessage(msg string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(msg))))
	return hex.EncodeToString(sum[:])
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
