package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/internal/chathistory"
	"github.com/wolfman30/health-assistant/internal/compliance"
	"github.com/wolfman30/health-assistant/internal/querylog"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const (
	// DefaultHistoryContext is how many stored chat messages seed an empty window.
	DefaultHistoryContext = 40
	safetyFilterModel     = "safety-filter"
	alertTimeout          = 10 * time.Second
)

// ChatRequest is one inbound chat message with its caller attributes.
type ChatRequest struct {
	Message       string
	AudioURL      string
	ChatID        string
	UserID        string
	AnonToken     string
	ForwardedFor  string
	RemoteAddr    string
	Authorization string
}

func (r ChatRequest) keySource() session.KeySource {
	return session.KeySource{
		UserID:       r.UserID,
		ChatID:       r.ChatID,
		AnonToken:    r.AnonToken,
		ForwardedFor: r.ForwardedFor,
		RemoteAddr:   r.RemoteAddr,
	}
}

// ChatResult is the stored transcript after the turn.
type ChatResult struct {
	ChatID   string                `json:"chatId"`
	Messages []chathistory.Message `json:"messages"`
}

// ClearRequest identifies the session whose caches should be dropped.
type ClearRequest struct {
	UserID       string
	ChatID       string
	AnonToken    string
	ForwardedFor string
	RemoteAddr   string
}

// Service is the outer turn handler shared by the HTTP and WebSocket transports.
type Service struct {
	router  *Router
	store   *session.Store
	history ChatHistory
	logger  *logging.Logger
	events  *EventLogger

	transcriber  Transcriber
	normalizer   Normalizer
	queryLog     QueryLogger
	auditor      SafetyAuditor
	alerter      SafetyAlerter
	limiter      Limiter
	metrics      Metrics
	now          Clock
	historyLimit int
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

func WithTranscriber(t Transcriber) ServiceOption {
	return func(s *Service) { s.transcriber = t }
}

func WithNormalizer(n Normalizer) ServiceOption {
	return func(s *Service) { s.normalizer = n }
}

func WithQueryLogger(q QueryLogger) ServiceOption {
	return func(s *Service) { s.queryLog = q }
}

func WithSafetyAuditor(a SafetyAuditor) ServiceOption {
	return func(s *Service) { s.auditor = a }
}

func WithSafetyAlerter(a SafetyAlerter) ServiceOption {
	return func(s *Service) { s.alerter = a }
}

func WithLimiter(l Limiter) ServiceOption {
	return func(s *Service) { s.limiter = l }
}

func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithEvents(e *EventLogger) ServiceOption {
	return func(s *Service) { s.events = e }
}

// WithClock overrides the time source used for dates and timestamps.
func WithClock(c Clock) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.now = c
		}
	}
}

// WithHistoryContext sets how many stored messages seed an empty window.
func WithHistoryContext(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

func NewService(router *Router, store *session.Store, history ChatHistory, logger *logging.Logger, opts ...ServiceOption) *Service {
	if router == nil {
		panic("assistant: router cannot be nil")
	}
	if store == nil {
		panic("assistant: session store cannot be nil")
	}
	if history == nil {
		panic("assistant: chat history cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		router:       router,
		store:        store,
		history:      history,
		logger:       logger,
		metrics:      noopMetrics{},
		now:          time.Now,
		historyLimit: DefaultHistoryContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = router.events
	}
	return s
}

// Chat runs one turn: screen, transcribe, route under the session lock, persist.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	start := s.now()
	message := strings.TrimSpace(req.Message)
	audioURL := strings.TrimSpace(req.AudioURL)
	if message == "" && audioURL == "" {
		return nil, ErrInputRequired
	}
	key := session.DeriveKey(req.keySource())

	if message != "" {
		if err := s.screen(ctx, key, req, message, start); err != nil {
			return nil, err
		}
	}
	if s.limiter != nil && !s.limiter.Allow(key) {
		s.metrics.ObserveTurn("", "", "rate_limited", s.since(start))
		return nil, ErrRateLimited
	}

	if message == "" {
		text, err := s.transcribe(ctx, audioURL)
		if err != nil {
			return nil, err
		}
		if err := s.screen(ctx, key, req, text, start); err != nil {
			return nil, err
		}
		message = text
	}

	message = Sanitize(message)
	if message == "" {
		return nil, ErrInputRequired
	}
	if s.normalizer != nil {
		normalized, err := s.normalizer.Normalize(ctx, message)
		switch {
		case err != nil:
			s.logger.Warn("input normalization failed, using raw text", "session_key", key, "error", err)
		case strings.TrimSpace(normalized) != "":
			message = strings.TrimSpace(normalized)
		}
	}

	unlock, err := s.store.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: lock session: %w", ErrInternal, err)
	}
	defer unlock()

	s.events.TurnReceived(ctx, key, message, req.ChatID != "")

	var record *chathistory.Record
	if chatID := strings.TrimSpace(req.ChatID); chatID != "" {
		found, err := s.history.FindByID(ctx, chatID)
		if errors.Is(err, chathistory.ErrNotFound) {
			return nil, ErrChatNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("%w: load chat: %w", ErrInternal, err)
		}
		record = found
	}

	window, err := s.store.Window(ctx, key)
	if err != nil {
		s.logger.Warn("failed to load conversation window", "session_key", key, "error", err)
	}
	if len(window) == 0 && record != nil {
		window = historyTurns(record.Tail(s.historyLimit))
	}

	turn := &Turn{
		Key:     key,
		UserID:  req.UserID,
		ChatID:  req.ChatID,
		Token:   req.Authorization,
		Message: message,
		History: window,
		Now:     s.now(),
	}
	reply, err := s.router.Route(ctx, turn)
	if err != nil {
		s.events.Error(ctx, key, "route", err)
		s.logger.Error("turn failed", "session_key", key, "query", message, "error", err)
		s.recordQuery(key, req, message, Reply{}, start, err)
		s.metrics.ObserveTurn("", "", "error", s.since(start))
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}

	now := s.now().UTC()
	pair := []chathistory.Message{
		{Role: chathistory.RoleUser, Message: message, CreatedAt: now},
		{Role: chathistory.RoleBot, Message: reply.Text, CreatedAt: now},
	}
	if record == nil {
		record, err = s.history.Create(ctx, req.UserID, pair)
	} else {
		record, err = s.history.Append(ctx, record.ID, pair...)
	}
	if err != nil {
		s.recordQuery(key, req, message, reply, start, err)
		s.metrics.ObserveTurn(string(reply.Intent), string(reply.Phase), "error", s.since(start))
		return nil, fmt.Errorf("%w: save chat: %w", ErrInternal, err)
	}

	if err := s.store.AppendWindow(ctx, key,
		session.Turn{Role: session.RoleUser, Content: message},
		session.Turn{Role: session.RoleAssistant, Content: reply.Text},
	); err != nil {
		s.logger.Warn("failed to append conversation window", "session_key", key, "error", err)
	}

	req.ChatID = record.ID
	s.recordQuery(key, req, message, reply, start, nil)
	s.metrics.ObserveTurn(string(reply.Intent), string(reply.Phase), "ok", s.since(start))
	return &ChatResult{ChatID: record.ID, Messages: record.Messages}, nil
}

// ClearSession drops every cached draft, interview, window and rate bucket for the caller.
func (s *Service) ClearSession(ctx context.Context, req ClearRequest) error {
	key := session.DeriveKey(session.KeySource{
		UserID:       req.UserID,
		ChatID:       req.ChatID,
		AnonToken:    req.AnonToken,
		ForwardedFor: req.ForwardedFor,
		RemoteAddr:   req.RemoteAddr,
	})
	unlock, err := s.store.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: lock session: %w", ErrInternal, err)
	}
	defer unlock()
	if err := s.store.Clear(ctx, key); err != nil {
		return fmt.Errorf("%w: clear session: %w", ErrInternal, err)
	}
	if s.limiter != nil {
		s.limiter.Reset(key)
	}
	return nil
}

func (s *Service) screen(ctx context.Context, key string, req ChatRequest, message string, start time.Time) error {
	if !ValidateInput(message) {
		if s.auditor != nil {
			err := s.auditor.RecordBlocked(ctx, compliance.Incident{
				EventType:  compliance.EventInvalidInput,
				SessionKey: key,
				UserID:     req.UserID,
				Severity:   string(SeverityLow),
				Categories: []string{"invalid_input"},
				Message:    message,
				OccurredAt: s.now().UTC(),
			})
			if err != nil {
				s.logger.Error("failed to record invalid input audit event", "session_key", key, "error", err)
			}
		}
		return fmt.Errorf("%w: message must be at most %d characters and contain no markup", ErrInvalidInput, MaxMessageRunes)
	}
	verdict := ScanHarmful(message)
	if !verdict.Harmful {
		return nil
	}
	response := SafetyResponse(verdict.Severity)
	s.events.SafetyBlocked(ctx, key, verdict.Severity, verdict.Categories)
	s.metrics.ObserveSafetyBlock(string(verdict.Severity))

	incident := compliance.Incident{
		EventType:  compliance.EventHarmfulBlocked,
		SessionKey: key,
		UserID:     req.UserID,
		Severity:   string(verdict.Severity),
		Categories: verdict.Categories,
		Message:    message,
		OccurredAt: s.now().UTC(),
	}
	if s.auditor != nil {
		if err := s.auditor.RecordBlocked(ctx, incident); err != nil {
			s.logger.Error("failed to record safety audit event", "session_key", key, "error", err)
		}
	}
	if s.queryLog != nil {
		s.queryLog.Record(querylog.Entry{
			SessionKey: key,
			UserID:     req.UserID,
			ChatID:     req.ChatID,
			Query:      message,
			Response:   response,
			Model:      safetyFilterModel,
			Success:    false,
			Error:      fmt.Sprintf("safety violation: %s severity", verdict.Severity),
			LatencyMs:  s.now().Sub(start).Milliseconds(),
			CreatedAt:  s.now().UTC(),
		})
	}
	if s.alerter != nil && verdict.Severity == SeverityHigh {
		go func() {
			actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
			defer cancel()
			if err := s.alerter.Alert(actx, incident); err != nil {
				s.logger.Error("safety alert failed", "session_key", key, "error", err)
			}
		}()
	}
	return &SafetyError{Severity: string(verdict.Severity), Response: response}
}

func (s *Service) transcribe(ctx context.Context, audioURL string) (string, error) {
	if s.transcriber == nil {
		return "", ErrInputRequired
	}
	text, err := s.transcriber.Transcribe(ctx, audioURL)
	if err != nil {
		s.logger.Warn("audio transcription failed", "error", err)
		return "", fmt.Errorf("%w: transcribe audio: %w", ErrInputRequired, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrInputRequired
	}
	return strings.TrimSpace(text), nil
}

func (s *Service) recordQuery(key string, req ChatRequest, message string, reply Reply, start time.Time, turnErr error) {
	if s.queryLog == nil {
		return
	}
	e := querylog.Entry{
		SessionKey:       key,
		UserID:           req.UserID,
		ChatID:           req.ChatID,
		Query:            message,
		Response:         reply.Text,
		Intent:           string(reply.Intent),
		Model:            reply.Usage.Model,
		PromptTokens:     reply.Usage.PromptTokens,
		CompletionTokens: reply.Usage.CompletionTokens,
		TotalTokens:      reply.Usage.TotalTokens,
		Success:          turnErr == nil,
		LatencyMs:        s.now().Sub(start).Milliseconds(),
		CreatedAt:        s.now().UTC(),
	}
	if turnErr != nil {
		e.Error = turnErr.Error()
	}
	s.queryLog.Record(e)
}

func (s *Service) since(start time.Time) float64 {
	return s.now().Sub(start).Seconds()
}

func historyTurns(msgs []chathistory.Message) []session.Turn {
	out := make([]session.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := session.RoleUser
		if m.Role == chathistory.RoleBot {
			role = session.RoleAssistant
		}
		out = append(out, session.Turn{Role: role, Content: m.Message})
	}
	return out
}
