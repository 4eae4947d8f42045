package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/health-assistant/internal/compliance"
	"github.com/wolfman30/health-assistant/internal/healthapi"
	"github.com/wolfman30/health-assistant/internal/querylog"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

var testNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter(discard{}, "error")
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	store := session.NewStore(session.NewMemoryBackend(time.Hour, 0), 0)
	t.Cleanup(store.Close)
	return store
}

// keywordClassifier labels the last user message by substring.
type keywordClassifier struct {
	mu    sync.Mutex
	calls [][]session.Turn
	err   error
}

func (c *keywordClassifier) Classify(_ context.Context, history []session.Turn) (Intent, error) {
	c.mu.Lock()
	c.calls = append(c.calls, history)
	c.mu.Unlock()
	if c.err != nil {
		return IntentNone, c.err
	}
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			last = strings.ToLower(history[i].Content)
			break
		}
	}
	switch {
	case strings.Contains(last, "schedule") && strings.Contains(last, "vaccin") && strings.Contains(last, "what"):
		return IntentCheckVaccineSchedule, nil
	case strings.Contains(last, "doses") && strings.Contains(last, "what"):
		return IntentCheckMedicineSchedule, nil
	case strings.Contains(last, "schedule") && strings.Contains(last, "vaccine"):
		return IntentCreateVaccineSchedule, nil
	case strings.Contains(last, "schedule"):
		return IntentCreateMedicineSchedule, nil
	case strings.Contains(last, "supplement"):
		return IntentCreateSupplement, nil
	case strings.Contains(last, "vaccine"):
		return IntentCreateVaccine, nil
	case strings.Contains(last, "health score"):
		return IntentGenerateHealthScore, nil
	}
	return IntentGeneralQuery, nil
}

func (c *keywordClassifier) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// scriptedExtractor answers with fn and records every request.
type scriptedExtractor struct {
	mu    sync.Mutex
	fn    func(req ExtractRequest) (Extraction, error)
	calls []ExtractRequest
}

func (e *scriptedExtractor) Extract(_ context.Context, req ExtractRequest) (Extraction, error) {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()
	if e.fn == nil {
		return Extraction{NextStep: StepAsk}, nil
	}
	return e.fn(req)
}

func (e *scriptedExtractor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func lastUser(history []session.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

type echoResponder struct {
	mu    sync.Mutex
	reqs  []ResponderRequest
	err   error
	usage Usage
}

func (r *echoResponder) Answer(_ context.Context, req ResponderRequest) (Answer, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if r.err != nil {
		return Answer{}, r.err
	}
	if req.Prompt != "" {
		return Answer{Text: "summary", Usage: r.usage}, nil
	}
	return Answer{Text: "answer: " + req.Message, Usage: r.usage}, nil
}

type scriptedInterviewer struct {
	fn   func(req InterviewRequest) (InterviewResult, error)
	reqs []InterviewRequest
}

func (i *scriptedInterviewer) Next(_ context.Context, req InterviewRequest) (InterviewResult, error) {
	i.reqs = append(i.reqs, req)
	if i.fn == nil {
		return InterviewResult{Question: "Q"}, nil
	}
	return i.fn(req)
}

type fakeDomain struct {
	mu sync.Mutex

	medicines    []healthapi.Medicine
	vaccines     []healthapi.Vaccine
	listErr      error
	createErr    error
	latestScore  *float64
	doses        []map[string]any
	vaccinations []map[string]any
	lookupErr    error

	medicineSchedules []healthapi.MedicineScheduleRequest
	vaccineSchedules  []healthapi.VaccineScheduleRequest
	createdVaccines   []healthapi.VaccineRequest
	supplements       []healthapi.SupplementRequest
	scores            []float64
	lookupDates       []string
	tokens            []string
}

func (d *fakeDomain) seen(token string) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	d.mu.Unlock()
}

func (d *fakeDomain) ListMedicines(_ context.Context, token string) ([]healthapi.Medicine, error) {
	d.seen(token)
	return d.medicines, d.listErr
}

func (d *fakeDomain) ListVaccines(_ context.Context, token string) ([]healthapi.Vaccine, error) {
	d.seen(token)
	return d.vaccines, d.listErr
}

func (d *fakeDomain) CreateMedicineSchedule(_ context.Context, token string, req healthapi.MedicineScheduleRequest) (healthapi.Result, error) {
	d.seen(token)
	if d.createErr != nil {
		return healthapi.Result{}, d.createErr
	}
	d.medicineSchedules = append(d.medicineSchedules, req)
	return healthapi.Result{Message: "created"}, nil
}

func (d *fakeDomain) CreateVaccineSchedule(_ context.Context, token string, req healthapi.VaccineScheduleRequest) (healthapi.Result, error) {
	d.seen(token)
	if d.createErr != nil {
		return healthapi.Result{}, d.createErr
	}
	d.vaccineSchedules = append(d.vaccineSchedules, req)
	return healthapi.Result{Message: "created"}, nil
}

func (d *fakeDomain) CreateVaccine(_ context.Context, token string, req healthapi.VaccineRequest) (healthapi.Result, error) {
	d.seen(token)
	if d.createErr != nil {
		return healthapi.Result{}, d.createErr
	}
	d.createdVaccines = append(d.createdVaccines, req)
	return healthapi.Result{Message: "created"}, nil
}

func (d *fakeDomain) CreateSupplement(_ context.Context, token string, req healthapi.SupplementRequest) (healthapi.Result, error) {
	d.seen(token)
	if d.createErr != nil {
		return healthapi.Result{}, d.createErr
	}
	d.supplements = append(d.supplements, req)
	return healthapi.Result{Message: "created"}, nil
}

func (d *fakeDomain) LatestHealthScore(_ context.Context, token string) (*float64, error) {
	d.seen(token)
	return d.latestScore, nil
}

func (d *fakeDomain) CreateHealthScore(_ context.Context, token string, score float64) (healthapi.Result, error) {
	d.seen(token)
	if d.createErr != nil {
		return healthapi.Result{}, d.createErr
	}
	d.scores = append(d.scores, score)
	return healthapi.Result{Message: "Health score saved."}, nil
}

func (d *fakeDomain) DosesByDate(_ context.Context, token, date string) ([]map[string]any, error) {
	d.seen(token)
	d.lookupDates = append(d.lookupDates, date)
	return d.doses, d.lookupErr
}

func (d *fakeDomain) VaccinationsByDate(_ context.Context, token, date string) ([]map[string]any, error) {
	d.seen(token)
	d.lookupDates = append(d.lookupDates, date)
	return d.vaccinations, d.lookupErr
}

type recordingQueryLog struct {
	mu      sync.Mutex
	entries []querylog.Entry
}

func (q *recordingQueryLog) Record(e querylog.Entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
}

type recordingAuditor struct {
	mu        sync.Mutex
	incidents []compliance.Incident
}

func (a *recordingAuditor) RecordBlocked(_ context.Context, in compliance.Incident) error {
	a.mu.Lock()
	a.incidents = append(a.incidents, in)
	a.mu.Unlock()
	return nil
}

type recordingAlerter struct {
	alerts chan compliance.Incident
}

func (a *recordingAlerter) Alert(_ context.Context, in compliance.Incident) error {
	a.alerts <- in
	return nil
}

type stubLimiter struct {
	allow bool
	reset []string
}

func (l *stubLimiter) Allow(string) bool { return l.allow }

func (l *stubLimiter) Reset(key string) { l.reset = append(l.reset, key) }

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(context.Context, string) (string, error) { return s.text, s.err }

var errBoom = errors.New("boom")

type harness struct {
	store       *session.Store
	classifier  *keywordClassifier
	extractor   *scriptedExtractor
	responder   *echoResponder
	interviewer *scriptedInterviewer
	domain      *fakeDomain
	router      *Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:       newTestStore(t),
		classifier:  &keywordClassifier{},
		extractor:   &scriptedExtractor{},
		responder:   &echoResponder{},
		interviewer: &scriptedInterviewer{},
		domain:      &fakeDomain{},
	}
	h.router = NewRouter(Deps{
		Store:             h.store,
		Classifier:        h.classifier,
		Extractor:         h.extractor,
		Interviewer:       h.interviewer,
		Responder:         h.responder,
		Domain:            h.domain,
		Logger:            quietLogger(),
		FieldHintOverride: true,
	})
	return h
}

// conversation tracks the window across turns the way Service does.
type conversation struct {
	t       *testing.T
	h       *harness
	key     string
	history []session.Turn
}

func (h *harness) conversation(t *testing.T, key string) *conversation {
	return &conversation{t: t, h: h, key: key}
}

func (c *conversation) say(message string) Reply {
	c.t.Helper()
	turn := &Turn{Key: c.key, Token: "Bearer tok", Message: message, History: append([]session.Turn(nil), c.history...), Now: testNow}
	reply, err := c.h.router.Route(context.Background(), turn)
	if err != nil {
		c.t.Fatalf("Route(%q) error: %v", message, err)
	}
	c.history = append(c.history,
		session.Turn{Role: session.RoleUser, Content: message},
		session.Turn{Role: session.RoleAssistant, Content: reply.Text},
	)
	return reply
}

func (c *conversation) draft() *session.Draft {
	c.t.Helper()
	d, err := c.h.store.Draft(context.Background(), c.key)
	if err != nil {
		c.t.Fatalf("load draft: %v", err)
	}
	return d
}
