package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/internal/chathistory"
	"github.com/wolfman30/health-assistant/internal/compliance"
	"github.com/wolfman30/health-assistant/internal/healthapi"
	"github.com/wolfman30/health-assistant/internal/querylog"
	"github.com/wolfman30/health-assistant/internal/session"
)

// NextStep is the extractor's verdict on the current turn.
type NextStep string

const (
	StepAsk  NextStep = "ask"
	StepDone NextStep = "done"
	StepExit NextStep = "exit"
)

// ParseNextStep maps anything other than done or exit to StepAsk.
func ParseNextStep(s string) NextStep {
	switch NextStep(strings.ToLower(strings.TrimSpace(s))) {
	case StepDone:
		return StepDone
	case StepExit:
		return StepExit
	}
	return StepAsk
}

// Usage is token accounting for one or more model calls.
type Usage struct {
	Model            string
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// Add accumulates o. The latest non-empty model wins.
func (u *Usage) Add(o Usage) {
	if o.Model != "" {
		u.Model = o.Model
	}
	u.PromptTokens += o.PromptTokens
	u.CompletionTokens += o.CompletionTokens
	u.TotalTokens += o.TotalTokens
}

type IntentClassifier interface {
	Classify(ctx context.Context, history []session.Turn) (Intent, error)
}

// Suggestion is a single inferred value awaiting the user's confirmation.
type Suggestion struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

type ExtractRequest struct {
	Phase     session.Phase
	History   []session.Turn
	Collected session.Slots
	Today     time.Time
}

type Extraction struct {
	Collected  session.Slots
	NextStep   NextStep
	Ask        string
	Suggestion *Suggestion
	Usage      Usage
}

type SlotExtractor interface {
	Extract(ctx context.Context, req ExtractRequest) (Extraction, error)
}

type InterviewRequest struct {
	Message       string
	Answers       map[string]string
	PreviousScore *float64
}

// InterviewResult carries either a Question, a terminal Score, or an exit signal.
type InterviewResult struct {
	Question string
	Score    string
	Message  string
	NextStep NextStep
	Ask      string
	Usage    Usage
}

type Interviewer interface {
	Next(ctx context.Context, req InterviewRequest) (InterviewResult, error)
}

type ResponderRequest struct {
	History  []session.Turn
	Message  string
	Guidance []string
	// Prompt replaces Message when the answer is built from fetched data.
	Prompt string
}

type Answer struct {
	Text  string
	Usage Usage
}

type Responder interface {
	Answer(ctx context.Context, req ResponderRequest) (Answer, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, text string) (string, error)
}

type ChatHistory interface {
	FindByID(ctx context.Context, id string) (*chathistory.Record, error)
	Create(ctx context.Context, userID string, msgs []chathistory.Message) (*chathistory.Record, error)
	Append(ctx context.Context, id string, msgs ...chathistory.Message) (*chathistory.Record, error)
}

// DomainAPI is the set of downstream health record calls. Every method takes
// the caller's bearer credential.
type DomainAPI interface {
	ListMedicines(ctx context.Context, token string) ([]healthapi.Medicine, error)
	ListVaccines(ctx context.Context, token string) ([]healthapi.Vaccine, error)
	CreateMedicineSchedule(ctx context.Context, token string, req healthapi.MedicineScheduleRequest) (healthapi.Result, error)
	CreateVaccineSchedule(ctx context.Context, token string, req healthapi.VaccineScheduleRequest) (healthapi.Result, error)
	CreateVaccine(ctx context.Context, token string, req healthapi.VaccineRequest) (healthapi.Result, error)
	CreateSupplement(ctx context.Context, token string, req healthapi.SupplementRequest) (healthapi.Result, error)
	LatestHealthScore(ctx context.Context, token string) (*float64, error)
	CreateHealthScore(ctx context.Context, token string, score float64) (healthapi.Result, error)
	DosesByDate(ctx context.Context, token, date string) ([]map[string]any, error)
	VaccinationsByDate(ctx context.Context, token, date string) ([]map[string]any, error)
}

type QueryLogger interface {
	Record(e querylog.Entry)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioURL string) (string, error)
}

type SafetyAuditor interface {
	RecordBlocked(ctx context.Context, in compliance.Incident) error
}

type SafetyAlerter interface {
	Alert(ctx context.Context, in compliance.Incident) error
}

type Limiter interface {
	Allow(key string) bool
	Reset(key string)
}

// Clock returns the current time.
type Clock func() time.Time

// Metrics receives turn and submission measurements.
type Metrics interface {
	ObserveTurn(intent, phase, outcome string, seconds float64)
	ObserveSubmission(phase, outcome string)
	ObserveSafetyBlock(severity string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTurn(string, string, string, float64) {}

func (noopMetrics) ObserveSubmission(string, string) {}

func (noopMetrics) ObserveSafetyBlock(string) {}
