package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const classifierHistoryTurns = 10

var intentFieldRE = regexp.MustCompile(`"intent"\s*:\s*"([^"]*)"`)

var (
	createVerbRE     = regexp.MustCompile(`\b(create|make|set up|setup|add|new)\b`)
	scheduleWordRE   = regexp.MustCompile(`\b(schedule|reminder|remind|timing|times?|daily|twice|thrice|every|morning|evening|night)\b`)
	medicineWordRE   = regexp.MustCompile(`\b(medicine|medication|tablet|pill|capsule|drug)s?\b`)
	supplementWordRE = regexp.MustCompile(`\b(supplements?|vitamins?|omega|fish oil|multivitamins?|probiotics?|protein powder)\b`)
	vaccineWordRE    = regexp.MustCompile(`\b(vaccines?|vaccinations?|shots?|jabs?|booster)\b`)
	vaccineWhenRE    = regexp.MustCompile(`\b(schedule|appointment|date|time|book)\b`)
	checkWordRE      = regexp.MustCompile(`\b(what|which|show|check|list|any|do i have)\b`)
	healthScoreRE    = regexp.MustCompile(`\bhealth\s*score\b|\bhealth assessment\b`)
)

// KeywordIntent matches unambiguous phrasings without a model call.
// Symptom descriptions always map to general_query.
func KeywordIntent(text string) (assistant.Intent, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return assistant.IntentNone, false
	}
	if assistant.IsSymptomQuery(s) {
		return assistant.IntentGeneralQuery, true
	}
	if !createVerbRE.MatchString(s) {
		return assistant.IntentNone, false
	}
	switch {
	case medicineWordRE.MatchString(s) && scheduleWordRE.MatchString(s):
		return assistant.IntentCreateMedicineSchedule, true
	case medicineWordRE.MatchString(s):
		return assistant.IntentCreateMedicine, true
	case supplementWordRE.MatchString(s):
		return assistant.IntentCreateSupplement, true
	case vaccineWordRE.MatchString(s) && vaccineWhenRE.MatchString(s):
		return assistant.IntentCreateVaccineSchedule, true
	case vaccineWordRE.MatchString(s):
		return assistant.IntentCreateVaccine, true
	}
	return assistant.IntentNone, false
}

// fallbackIntent is the looser keyword pass used when the model is unavailable.
func fallbackIntent(text string) (assistant.Intent, bool) {
	if in, ok := KeywordIntent(text); ok {
		return in, true
	}
	s := strings.ToLower(text)
	switch {
	case healthScoreRE.MatchString(s):
		return assistant.IntentGenerateHealthScore, true
	case checkWordRE.MatchString(s) && scheduleWordRE.MatchString(s) && medicineWordRE.MatchString(s):
		return assistant.IntentCheckMedicineSchedule, true
	case checkWordRE.MatchString(s) && vaccineWordRE.MatchString(s):
		return assistant.IntentCheckVaccineSchedule, true
	case scheduleWordRE.MatchString(s) && medicineWordRE.MatchString(s):
		return assistant.IntentCreateMedicineSchedule, true
	case vaccineWhenRE.MatchString(s) && vaccineWordRE.MatchString(s):
		return assistant.IntentCreateVaccineSchedule, true
	}
	return assistant.IntentNone, false
}

// LLMClassifier labels the latest user message using the recent conversation.
type LLMClassifier struct {
	client LLMClient
	logger *logging.Logger
}

func NewLLMClassifier(client LLMClient, logger *logging.Logger) *LLMClassifier {
	if client == nil {
		panic("conversation: classifier llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMClassifier{client: client, logger: logger}
}

// Classify returns the intent of the last user turn. When the model fails the
// keyword rules are tried before the error is returned.
func (c *LLMClassifier) Classify(ctx context.Context, history []session.Turn) (assistant.Intent, error) {
	latest := lastUserMessage(history)
	if in, ok := KeywordIntent(latest); ok {
		return in, nil
	}

	messages := historyMessages(lastTurns(history, classifierHistoryTurns))
	if len(messages) == 0 {
		return assistant.IntentNone, errors.New("conversation: classify: empty conversation")
	}
	resp, err := c.client.Complete(ctx, LLMRequest{
		System:      []string{classifierPrompt},
		Messages:    messages,
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		if ctx.Err() != nil {
			return assistant.IntentNone, ctx.Err()
		}
		if in, ok := fallbackIntent(latest); ok {
			c.logger.Warn("intent classifier failed, using keyword fallback", "intent", in, "error", err)
			return in, nil
		}
		return assistant.IntentNone, fmt.Errorf("conversation: classify: %w", err)
	}

	intent := parseIntentReply(resp.Text)
	if intent == assistant.IntentNone {
		if in, ok := fallbackIntent(latest); ok {
			return in, nil
		}
		c.logger.Warn("unparseable intent reply", "reply", resp.Text)
		return assistant.IntentGeneralQuery, nil
	}
	return intent, nil
}

func parseIntentReply(text string) assistant.Intent {
	var out struct {
		Intent string `json:"intent"`
	}
	if err := decodeJSONReply(text, &out); err == nil {
		return assistant.ParseIntent(out.Intent)
	}
	if m := intentFieldRE.FindStringSubmatch(text); m != nil {
		return assistant.ParseIntent(m[1])
	}
	return assistant.IntentNone
}

func lastUserMessage(history []session.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
