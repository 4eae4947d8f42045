package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const symptomGuidance = "The user is describing symptoms. Share general wellness information only and never diagnose or prescribe. Advise seeing a doctor, especially if symptoms are severe or persistent."

// Fallback answers free-form questions and the read-only schedule lookups.
type Fallback struct {
	responder Responder
	extractor SlotExtractor
	domain    DomainAPI
	logger    *logging.Logger
}

func NewFallback(responder Responder, extractor SlotExtractor, domain DomainAPI, logger *logging.Logger) *Fallback {
	if responder == nil {
		panic("assistant: responder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Fallback{responder: responder, extractor: extractor, domain: domain, logger: logger}
}

// Answer replies to a general question, adding wellness guidance for symptoms.
func (f *Fallback) Answer(ctx context.Context, t *Turn) (Reply, error) {
	req := ResponderRequest{History: t.History, Message: t.Message}
	if IsSymptomQuery(t.Message) {
		req.Guidance = []string{symptomGuidance}
	}
	ans, err := f.responder.Answer(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: fallback answer: %w", err)
	}
	return Reply{Text: ans.Text, Intent: IntentGeneralQuery, Usage: ans.Usage}, nil
}

type scheduleLookup struct {
	phase   session.Phase
	noun    string
	failure string
	empty   string
	fetch   func(ctx context.Context, api DomainAPI, token, date string) ([]map[string]any, error)
}

var (
	medicineLookup = scheduleLookup{
		phase:   session.PhaseCheckMedicineSchedule,
		noun:    "medicine doses",
		failure: "Unable to fetch medicine schedule.",
		empty:   "You don't have any medicine doses scheduled on %s.",
		fetch: func(ctx context.Context, api DomainAPI, token, date string) ([]map[string]any, error) {
			return api.DosesByDate(ctx, token, date)
		},
	}
	vaccineLookup = scheduleLookup{
		phase:   session.PhaseCheckVaccineSchedule,
		noun:    "vaccinations",
		failure: "Unable to fetch vaccination schedule.",
		empty:   "You don't have any vaccinations scheduled on %s.",
		fetch: func(ctx context.Context, api DomainAPI, token, date string) ([]map[string]any, error) {
			return api.VaccinationsByDate(ctx, token, date)
		},
	}
)

func (f *Fallback) CheckMedicineSchedule(ctx context.Context, t *Turn) (Reply, error) {
	return f.checkSchedule(ctx, t, medicineLookup)
}

func (f *Fallback) CheckVaccineSchedule(ctx context.Context, t *Turn) (Reply, error) {
	return f.checkSchedule(ctx, t, vaccineLookup)
}

func (f *Fallback) checkSchedule(ctx context.Context, t *Turn, lookup scheduleLookup) (Reply, error) {
	reply := Reply{Phase: lookup.phase}
	date := t.Today()
	if f.extractor != nil {
		ext, err := f.extractor.Extract(ctx, ExtractRequest{
			Phase:     lookup.phase,
			History:   t.Conversation(),
			Collected: session.Slots{},
			Today:     t.Today(),
		})
		if err != nil {
			f.logger.Warn("schedule date extraction failed, using today", "phase", lookup.phase, "session_key", t.Key, "error", err)
		} else {
			reply.Usage.Add(ext.Usage)
			if d, err := ParseDate(ext.Collected.String("date"), t.Now.Location()); err == nil {
				date = d
			}
		}
	}

	if f.domain == nil {
		reply.Text = lookup.failure
		return reply, nil
	}
	entries, err := lookup.fetch(ctx, f.domain, t.Token, date.Format(dateLayout))
	if err != nil {
		f.logger.Warn("schedule lookup failed", "phase", lookup.phase, "session_key", t.Key, "error", err)
		reply.Text = lookup.failure
		return reply, nil
	}
	human := FormatHumanDate(date)
	if len(entries) == 0 {
		reply.Text = fmt.Sprintf(lookup.empty, human)
		return reply, nil
	}

	payload, err := json.Marshal(entries)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: encode %s: %w", lookup.noun, err)
	}
	prompt := fmt.Sprintf(
		"These are the user's scheduled %s for %s as JSON:\n%s\n\nThe user asked: %q\nSummarize the schedule in a short friendly list with the time and name of each entry. Refer to the date as %s.",
		lookup.noun, human, payload, t.Message, human,
	)
	ans, err := f.responder.Answer(ctx, ResponderRequest{History: t.History, Message: t.Message, Prompt: prompt})
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: summarize %s: %w", lookup.noun, err)
	}
	reply.Usage.Add(ans.Usage)
	reply.Text = ans.Text
	return reply, nil
}
