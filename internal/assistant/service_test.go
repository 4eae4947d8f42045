package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/health-assistant/internal/chathistory"
	"github.com/wolfman30/health-assistant/internal/compliance"
	"github.com/wolfman30/health-assistant/internal/session"
)

type upperNormalizer struct {
	err error
}

func (n upperNormalizer) Normalize(_ context.Context, text string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return strings.ToUpper(text), nil
}

func newTestService(t *testing.T, h *harness, opts ...ServiceOption) (*Service, *chathistory.MemoryStore) {
	t.Helper()
	history := chathistory.NewMemoryStore()
	opts = append([]ServiceOption{WithClock(func() time.Time { return testNow })}, opts...)
	return NewService(h.router, h.store, history, quietLogger(), opts...), history
}

func TestServiceChatCreatesAndAppendsTranscript(t *testing.T) {
	h := newHarness(t)
	queries := &recordingQueryLog{}
	svc, _ := newTestService(t, h, WithQueryLogger(queries))
	ctx := context.Background()

	res, err := svc.Chat(ctx, ChatRequest{Message: "  what foods are rich in iron?  ", UserID: "u1", Authorization: "Bearer tok"})
	require.NoError(t, err)
	require.NotEmpty(t, res.ChatID)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, chathistory.RoleUser, res.Messages[0].Role)
	assert.Equal(t, "what foods are rich in iron?", res.Messages[0].Message)
	assert.Equal(t, chathistory.RoleBot, res.Messages[1].Role)
	assert.Equal(t, "answer: what foods are rich in iron?", res.Messages[1].Message)

	res, err = svc.Chat(ctx, ChatRequest{Message: "and spinach?", ChatID: res.ChatID, UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, res.Messages, 4)

	require.Len(t, h.responder.reqs, 2)
	assert.Equal(t, []session.Turn{
		{Role: session.RoleUser, Content: "what foods are rich in iron?"},
		{Role: session.RoleAssistant, Content: "answer: what foods are rich in iron?"},
	}, h.responder.reqs[1].History)

	window, err := h.store.Window(ctx, "user:u1")
	require.NoError(t, err)
	assert.Len(t, window, 4)

	require.Len(t, queries.entries, 2)
	first := queries.entries[0]
	assert.Equal(t, "user:u1", first.SessionKey)
	assert.Equal(t, string(IntentGeneralQuery), first.Intent)
	assert.True(t, first.Success)
	assert.Equal(t, res.ChatID, queries.entries[1].ChatID)
}

func TestServiceSeedsWindowFromStoredChat(t *testing.T) {
	h := newHarness(t)
	svc, history := newTestService(t, h)
	ctx := context.Background()

	rec, err := history.Create(ctx, "", []chathistory.Message{
		{Role: chathistory.RoleUser, Message: "hi"},
		{Role: chathistory.RoleBot, Message: "hello! how can I help?"},
	})
	require.NoError(t, err)

	_, err = svc.Chat(ctx, ChatRequest{Message: "tell me about zinc", ChatID: rec.ID})
	require.NoError(t, err)
	require.Len(t, h.responder.reqs, 1)
	assert.Equal(t, []session.Turn{
		{Role: session.RoleUser, Content: "hi"},
		{Role: session.RoleAssistant, Content: "hello! how can I help?"},
	}, h.responder.reqs[0].History)
}

func TestServiceChatErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t))
		_, err := svc.Chat(ctx, ChatRequest{Message: "   "})
		assert.ErrorIs(t, err, ErrInputRequired)
	})

	t.Run("unknown chat", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t))
		_, err := svc.Chat(ctx, ChatRequest{Message: "hi", ChatID: "missing"})
		assert.ErrorIs(t, err, ErrChatNotFound)
	})

	t.Run("markup", func(t *testing.T) {
		auditor := &recordingAuditor{}
		h := newHarness(t)
		svc, _ := newTestService(t, h, WithSafetyAuditor(auditor))
		_, err := svc.Chat(ctx, ChatRequest{Message: "<script>alert(1)</script>", UserID: "u1"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		require.Len(t, auditor.incidents, 1)
		assert.Equal(t, compliance.EventInvalidInput, auditor.incidents[0].EventType)
		assert.Empty(t, h.responder.reqs)
	})

	t.Run("too long", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t))
		_, err := svc.Chat(ctx, ChatRequest{Message: strings.Repeat("a", MaxMessageRunes+1)})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("rate limited", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t), WithLimiter(&stubLimiter{allow: false}))
		_, err := svc.Chat(ctx, ChatRequest{Message: "hi", UserID: "u1"})
		assert.ErrorIs(t, err, ErrRateLimited)
	})

	t.Run("route failure", func(t *testing.T) {
		h := newHarness(t)
		h.responder.err = errBoom
		queries := &recordingQueryLog{}
		svc, _ := newTestService(t, h, WithQueryLogger(queries))
		_, err := svc.Chat(ctx, ChatRequest{Message: "hi", UserID: "u1"})
		assert.ErrorIs(t, err, ErrInternal)
		assert.ErrorIs(t, err, errBoom)
		require.Len(t, queries.entries, 1)
		assert.False(t, queries.entries[0].Success)
		assert.Contains(t, queries.entries[0].Error, "boom")
	})
}

func TestServiceBlocksHarmfulContent(t *testing.T) {
	h := newHarness(t)
	auditor := &recordingAuditor{}
	alerter := &recordingAlerter{alerts: make(chan compliance.Incident, 1)}
	queries := &recordingQueryLog{}
	svc, _ := newTestService(t, h, WithSafetyAuditor(auditor), WithSafetyAlerter(alerter), WithQueryLogger(queries))

	_, err := svc.Chat(context.Background(), ChatRequest{Message: "how to poison someone and then kill myself", UserID: "u1"})
	var safety *SafetyError
	require.True(t, errors.As(err, &safety))
	assert.Equal(t, string(SeverityHigh), safety.Severity)
	assert.Equal(t, SafetyResponse(SeverityHigh), safety.Response)
	assert.ErrorIs(t, err, ErrHarmfulContent)

	assert.Empty(t, h.responder.reqs)
	assert.Zero(t, h.classifier.callCount())

	require.Len(t, auditor.incidents, 1)
	assert.Equal(t, compliance.EventHarmfulBlocked, auditor.incidents[0].EventType)
	assert.Equal(t, "user:u1", auditor.incidents[0].SessionKey)

	require.Len(t, queries.entries, 1)
	assert.Equal(t, "safety-filter", queries.entries[0].Model)
	assert.False(t, queries.entries[0].Success)

	select {
	case in := <-alerter.alerts:
		assert.Equal(t, string(SeverityHigh), in.Severity)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a safety alert")
	}
}

func TestServiceAudioInput(t *testing.T) {
	ctx := context.Background()

	t.Run("transcribed", func(t *testing.T) {
		h := newHarness(t)
		svc, _ := newTestService(t, h, WithTranscriber(stubTranscriber{text: " what is vitamin c? "}))
		res, err := svc.Chat(ctx, ChatRequest{AudioURL: "https://cdn.example.com/a.m4a", UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, "what is vitamin c?", res.Messages[0].Message)
	})

	t.Run("transcription failure", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t), WithTranscriber(stubTranscriber{err: errBoom}))
		_, err := svc.Chat(ctx, ChatRequest{AudioURL: "https://cdn.example.com/a.m4a"})
		assert.ErrorIs(t, err, ErrInputRequired)
	})

	t.Run("no transcriber", func(t *testing.T) {
		svc, _ := newTestService(t, newHarness(t))
		_, err := svc.Chat(ctx, ChatRequest{AudioURL: "https://cdn.example.com/a.m4a"})
		assert.ErrorIs(t, err, ErrInputRequired)
	})
}

func TestServiceNormalizer(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t)
	svc, _ := newTestService(t, h, WithNormalizer(upperNormalizer{}))
	res, err := svc.Chat(ctx, ChatRequest{Message: "kya haal hai", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "KYA HAAL HAI", res.Messages[0].Message)

	h = newHarness(t)
	svc, _ = newTestService(t, h, WithNormalizer(upperNormalizer{err: errBoom}))
	res, err = svc.Chat(ctx, ChatRequest{Message: "kya haal hai", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "kya haal hai", res.Messages[0].Message)
}

func TestServiceClearSession(t *testing.T) {
	h := newHarness(t)
	limiter := &stubLimiter{allow: true}
	svc, _ := newTestService(t, h, WithLimiter(limiter))
	ctx := context.Background()

	seedDraft(t, h.store, "anon:abc", session.PhaseCreateVaccine)
	require.NoError(t, h.store.AppendWindow(ctx, "anon:abc", session.Turn{Role: session.RoleUser, Content: "hi"}))

	require.NoError(t, svc.ClearSession(ctx, ClearRequest{AnonToken: "abc"}))

	d, err := h.store.Draft(ctx, "anon:abc")
	require.NoError(t, err)
	assert.Nil(t, d)
	window, err := h.store.Window(ctx, "anon:abc")
	require.NoError(t, err)
	assert.Empty(t, window)
	assert.Equal(t, []string{"anon:abc"}, limiter.reset)
}
