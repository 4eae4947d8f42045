package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const extractorHistoryTurns = 12

type extractField struct {
	key  string
	desc string
}

type phaseSchema struct {
	goal   string
	fields []extractField
	ask    string
}

var extractSchemas = map[session.Phase]phaseSchema{
	session.PhaseCreateMedicineSchedule: {
		goal: "schedule an existing medicine",
		fields: []extractField{
			{"medicineName", "name of the medicine (required)"},
			{"startDate", "first day of the course, YYYY-MM-DD (required)"},
			{"endDate", "last day of the course, YYYY-MM-DD (required)"},
			{"doseTimes", "array of dose times as the user wrote them, e.g. [\"8 AM\", \"8 PM\"]"},
			{"totalDosesPerDay", "number of doses per day, 1 to 10"},
		},
		ask: "Which medicine would you like to schedule, and for which dates?",
	},
	session.PhaseCreateVaccineSchedule: {
		goal: "book a vaccination",
		fields: []extractField{
			{"vaccineName", "name of the vaccine (required)"},
			{"date", "vaccination date, YYYY-MM-DD (required)"},
			{"doseTime", "time of the dose as the user wrote it (required)"},
		},
		ask: "Which vaccine would you like to schedule, and on what date and time?",
	},
	session.PhaseCreateVaccine: {
		goal: "add a new vaccine",
		fields: []extractField{
			{"vaccineName", "name of the vaccine (required)"},
			{"provider", "manufacturer or provider (required)"},
			{"description", "short description"},
		},
		ask: "What is the name of the vaccine and who provides it?",
	},
	session.PhaseCreateSupplement: {
		goal: "add a new supplement or medicine",
		fields: []extractField{
			{"medicineName", "name of the supplement (required)"},
			{"dosage", "strength per unit, e.g. \"500mg\" (required)"},
			{"quantity", "number of units in stock, a whole number (required)"},
			{"takenForSymptoms", "what it is taken for (required)"},
			{"price", "price as a whole number"},
			{"singlePack", "pack description, e.g. \"strip of 10\""},
			{"mfgDate", "manufacturing date, YYYY-MM-DD"},
			{"expDate", "expiry date, YYYY-MM-DD"},
		},
		ask: "Please tell me the supplement name, dosage, quantity and what it is for.",
	},
	session.PhaseCheckMedicineSchedule: {
		goal: "look up the medicine doses due on a day",
		fields: []extractField{
			{"date", "the day being asked about, YYYY-MM-DD"},
		},
	},
	session.PhaseCheckVaccineSchedule: {
		goal: "look up the vaccinations booked on a day",
		fields: []extractField{
			{"date", "the day being asked about, YYYY-MM-DD"},
		},
	},
}

// SlotExtractor pulls structured fields for an action phase out of the conversation.
type SlotExtractor struct {
	client LLMClient
	logger *logging.Logger
}

func NewSlotExtractor(client LLMClient, logger *logging.Logger) *SlotExtractor {
	if client == nil {
		panic("conversation: extractor llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotExtractor{client: client, logger: logger}
}

type extractReply struct {
	Collected  map[string]any        `json:"collected"`
	NextStep   string                `json:"nextStep"`
	Ask        string                `json:"ask"`
	Suggestion *assistant.Suggestion `json:"suggestion"`
}

// Extract returns only fields known to the phase. A reply that is not JSON
// becomes a generic question for the phase rather than an error.
func (x *SlotExtractor) Extract(ctx context.Context, req assistant.ExtractRequest) (assistant.Extraction, error) {
	schema, ok := extractSchemas[req.Phase]
	if !ok {
		return assistant.Extraction{}, fmt.Errorf("conversation: extract: unsupported phase %q", req.Phase)
	}
	messages := historyMessages(lastTurns(req.History, extractorHistoryTurns))
	if len(messages) == 0 {
		return assistant.Extraction{}, fmt.Errorf("conversation: extract %s: empty conversation", req.Phase)
	}

	collected := "{}"
	if len(req.Collected) > 0 {
		if b, err := json.Marshal(req.Collected); err == nil {
			collected = string(b)
		}
	}
	system := fmt.Sprintf(extractorPrompt,
		schema.goal,
		req.Today.Format("2006-01-02"),
		req.Today.Weekday(),
		schema.describe(),
		collected,
	)

	resp, err := x.client.Complete(ctx, LLMRequest{
		System:      []string{system},
		Messages:    messages,
		MaxTokens:   400,
		Temperature: 0,
	})
	if err != nil {
		return assistant.Extraction{}, fmt.Errorf("conversation: extract %s: %w", req.Phase, err)
	}
	out := assistant.Extraction{Usage: usageOf(resp), Collected: session.Slots{}}

	var parsed extractReply
	if err := decodeJSONReply(resp.Text, &parsed); err != nil {
		x.logger.Warn("unparseable extraction reply", "phase", req.Phase, "error", err)
		out.NextStep = assistant.StepAsk
		out.Ask = schema.ask
		return out, nil
	}

	for k, v := range parsed.Collected {
		if !schema.has(k) || isBlank(v) {
			continue
		}
		out.Collected[k] = v
	}
	out.NextStep = assistant.ParseNextStep(parsed.NextStep)
	out.Ask = strings.TrimSpace(parsed.Ask)
	if s := parsed.Suggestion; s != nil && schema.has(s.Field) && !isBlank(s.Value) {
		out.Suggestion = s
	}
	return out, nil
}

func (s phaseSchema) describe() string {
	var b strings.Builder
	for _, f := range s.fields {
		fmt.Fprintf(&b, "- %s: %s\n", f.key, f.desc)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s phaseSchema) has(key string) bool {
	for _, f := range s.fields {
		if f.key == key {
			return true
		}
	}
	return false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "" || s == "null" || s == "unknown"
	case []any:
		return len(t) == 0
	}
	return false
}
