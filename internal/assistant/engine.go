package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/wolfman30/health-assistant/internal/healthapi"
	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// Field is one required slot of a flow.
type Field struct {
	Key   string
	Label string
	// Resolved fields also need a catalog entity cached on the draft.
	Resolved bool
}

// FlowTurn is what flow hooks see: the turn, its draft and the domain services.
type FlowTurn struct {
	*Turn
	Draft  *session.Draft
	Domain DomainAPI
	Events *EventLogger
	Logger *logging.Logger
	// FuzzyThreshold is the catalog match threshold for fuzzy flows.
	FuzzyThreshold float64
}

// Flow configures the generic slot-filling engine for one action.
type Flow struct {
	Phase    session.Phase
	Label    string
	Required []Field
	// Enrich resolves entities and normalizes values after each merge. A
	// halting reply is sent as-is and the draft is kept.
	Enrich func(ctx context.Context, ft *FlowTurn) (reply string, halt bool, err error)
	// Validate runs before submission. Each string is one user-facing problem.
	Validate func(ft *FlowTurn) []string
	Submit   func(ctx context.Context, ft *FlowTurn) (string, error)

	ConflictReply string
	RetryReply    string
}

// Engine drives one Flow through collect, enrich, validate and submit.
type Engine struct {
	flow      Flow
	store     *session.Store
	extractor SlotExtractor
	domain    DomainAPI
	confirm   *Confirmation
	events    *EventLogger
	logger    *logging.Logger
	metrics   Metrics
	threshold float64
}

func NewEngine(flow Flow, store *session.Store, extractor SlotExtractor, domain DomainAPI, confirm *Confirmation, events *EventLogger, logger *logging.Logger) *Engine {
	if store == nil {
		panic("assistant: session store cannot be nil")
	}
	if extractor == nil {
		panic("assistant: slot extractor cannot be nil")
	}
	if domain == nil {
		panic("assistant: domain api cannot be nil")
	}
	if flow.Submit == nil {
		panic("assistant: flow " + string(flow.Phase) + " has no submit")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		flow:      flow,
		store:     store,
		extractor: extractor,
		domain:    domain,
		confirm:   confirm,
		events:    events,
		logger:    logger,
		metrics:   noopMetrics{},
		threshold: DefaultMatchThreshold,
	}
}

func (e *Engine) Phase() session.Phase { return e.flow.Phase }

var helpCommandRe = regexp.MustCompile(`^(help|guidance|instructions)( me| please| pls)?$`)

func isHelpCommand(message string) bool {
	return helpCommandRe.MatchString(normalizePhrase(message))
}

// Process handles one turn of the flow.
func (e *Engine) Process(ctx context.Context, t *Turn) (Reply, error) {
	phase := e.flow.Phase
	reply := Reply{Phase: phase}

	draft, err := e.store.Draft(ctx, t.Key)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: load draft: %w", err)
	}
	continuing := draft != nil && draft.Phase == phase
	if !continuing {
		if draft != nil {
			e.events.DraftReset(ctx, t.Key, string(draft.Phase), string(phase))
		}
		draft = session.NewDraft(phase)
		e.events.FlowStarted(ctx, t.Key, string(phase))
	}
	ft := &FlowTurn{Turn: t, Draft: draft, Domain: e.domain, Events: e.events, Logger: e.logger, FuzzyThreshold: e.threshold}

	var ext Extraction
	switch {
	case continuing && draft.SuggestedField != "" && IsAffirmative(t.Message):
		draft.Collected[draft.SuggestedField] = draft.SuggestedValue
		e.events.SlotsMerged(ctx, t.Key, string(phase), []string{draft.SuggestedField}, StepDone)
		draft.ClearSuggestion()
		ext.NextStep = StepDone
	case isHelpCommand(t.Message):
		if err := e.store.SaveDraft(ctx, t.Key, draft); err != nil {
			return Reply{}, fmt.Errorf("assistant: save draft: %w", err)
		}
		reply.Text = e.helpText(draft)
		return reply, nil
	default:
		ext, err = e.extractor.Extract(ctx, ExtractRequest{
			Phase:     phase,
			History:   t.Conversation(),
			Collected: draft.Collected.Clone(),
			Today:     t.Today(),
		})
		if err != nil {
			return Reply{}, fmt.Errorf("assistant: extract %s: %w", phase, err)
		}
		reply.Usage.Add(ext.Usage)
		// A suggestion only survives until the next reply.
		draft.ClearSuggestion()
		if ext.NextStep == StepExit {
			if continuing && e.confirm != nil {
				out, err := e.confirm.Resolve(ctx, ExitRequest{Turn: t, Phase: phase, Label: e.flow.Label, Ask: ext.Ask})
				out.Usage.Add(reply.Usage)
				return out, err
			}
			// Nothing to cancel yet.
			ext.NextStep, ext.Ask = StepAsk, ""
		}
		if len(ext.Collected) > 0 {
			draft.Collected.Merge(ext.Collected)
			e.events.SlotsMerged(ctx, t.Key, string(phase), sortedKeys(ext.Collected), ext.NextStep)
		}
		if ext.Suggestion != nil && ext.Suggestion.Field != "" {
			draft.SuggestedField = ext.Suggestion.Field
			draft.SuggestedValue = ext.Suggestion.Value
		}
	}

	if e.flow.Enrich != nil {
		text, halt, err := e.flow.Enrich(ctx, ft)
		if err != nil {
			return Reply{}, fmt.Errorf("assistant: enrich %s: %w", phase, err)
		}
		if halt {
			if err := e.store.SaveDraft(ctx, t.Key, draft); err != nil {
				return Reply{}, fmt.Errorf("assistant: save draft: %w", err)
			}
			reply.Text = text
			return reply, nil
		}
	}
	if err := e.store.SaveDraft(ctx, t.Key, draft); err != nil {
		return Reply{}, fmt.Errorf("assistant: save draft: %w", err)
	}

	missing := e.missing(draft)
	if len(missing) == 0 && ext.NextStep == StepDone {
		text, err := e.submit(ctx, ft)
		if err != nil {
			return Reply{}, err
		}
		reply.Text = text
		return reply, nil
	}

	switch {
	case len(missing) > 0 && (ext.Ask == "" || ext.NextStep == StepDone):
		reply.Text = e.missingPrompt(missing)
	case ext.Ask != "":
		reply.Text = ext.Ask
	default:
		reply.Text = fmt.Sprintf("I have everything I need for your %s. Shall I go ahead?", e.flow.Label)
	}
	return reply, nil
}

func (e *Engine) submit(ctx context.Context, ft *FlowTurn) (string, error) {
	phase := e.flow.Phase
	if e.flow.Validate != nil {
		if problems := e.flow.Validate(ft); len(problems) > 0 {
			return "Please fix the following:\n- " + strings.Join(problems, "\n- "), nil
		}
	}

	text, err := e.flow.Submit(ctx, ft)
	if err != nil {
		conflict := healthapi.IsConflict(err)
		e.events.Submission(ctx, ft.Key, string(phase), false, conflict)
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("assistant: submit %s: %w", phase, err)
		}
		e.logger.Warn("flow submission failed", "phase", phase, "session_key", ft.Key, "conflict", conflict, "error", err)
		if conflict {
			e.metrics.ObserveSubmission(string(phase), "conflict")
			return e.flow.ConflictReply, nil
		}
		e.metrics.ObserveSubmission(string(phase), "error")
		return e.flow.RetryReply, nil
	}
	e.events.Submission(ctx, ft.Key, string(phase), true, false)
	e.metrics.ObserveSubmission(string(phase), "success")
	if err := e.store.DeleteDraft(ctx, ft.Key); err != nil {
		e.logger.Warn("failed to clear draft after submission", "phase", phase, "session_key", ft.Key, "error", err)
	}
	return text, nil
}

func (e *Engine) missing(draft *session.Draft) []Field {
	var out []Field
	for _, f := range e.flow.Required {
		if !draft.Collected.Has(f.Key) || (f.Resolved && draft.Validated == nil) {
			out = append(out, f)
		}
	}
	return out
}

func (e *Engine) missingPrompt(missing []Field) string {
	labels := make([]string, len(missing))
	for i, f := range missing {
		labels[i] = f.Label
	}
	return fmt.Sprintf("To complete your %s, please provide: %s.", e.flow.Label, strings.Join(labels, ", "))
}

func (e *Engine) helpText(draft *session.Draft) string {
	missing := e.missing(draft)
	if len(missing) == 0 {
		return fmt.Sprintf("I have everything I need for your %s. Reply yes to submit it, or tell me what to change.", e.flow.Label)
	}
	return e.missingPrompt(missing)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
