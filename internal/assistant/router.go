package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// creationFieldHints are phrases from our own supplement prompts. When the
// last bot turn asked one of them, the reply is treated as an answer to it.
var creationFieldHints = []string{
	"what's the name of the medicine",
	"what is the name of the medicine",
	"medicine name",
	"name of the medicine",
	"which medicine would you like to create",
	"which supplement would you like to create",
	"which vaccine would you like to create",
	"please provide the medicine details",
	"please provide the supplement details",
	"please provide the vaccine details",
	"let's create a new medicine",
	"let's create a new supplement",
	"let's create a new vaccine",
	"to complete your medicine creation",
	"to complete your supplement creation",
	"to complete your vaccine creation",
	"medicine creation process",
	"supplement creation process",
	"vaccine creation process",
}

// Deps are the collaborators a Router needs.
type Deps struct {
	Store       *session.Store
	Classifier  IntentClassifier
	Extractor   SlotExtractor
	Interviewer Interviewer
	Responder   Responder
	Domain      DomainAPI
	Events      *EventLogger
	Logger      *logging.Logger
	Metrics     Metrics

	// Flows defaults to DefaultFlows.
	Flows             []Flow
	FuzzyThreshold    float64
	FieldHintOverride bool
}

// Router picks the handler for each turn.
type Router struct {
	store             *session.Store
	classifier        IntentClassifier
	engines           map[session.Phase]*Engine
	health            *HealthScore
	fallback          *Fallback
	confirm           *Confirmation
	events            *EventLogger
	logger            *logging.Logger
	fieldHintOverride bool
}

func NewRouter(d Deps) *Router {
	if d.Store == nil {
		panic("assistant: session store cannot be nil")
	}
	if d.Classifier == nil {
		panic("assistant: intent classifier cannot be nil")
	}
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.Events == nil {
		d.Events = NewEventLogger(d.Logger)
	}
	if d.Metrics == nil {
		d.Metrics = noopMetrics{}
	}
	if d.FuzzyThreshold <= 0 {
		d.FuzzyThreshold = DefaultMatchThreshold
	}
	flows := d.Flows
	if len(flows) == 0 {
		flows = DefaultFlows()
	}

	r := &Router{
		store:             d.Store,
		classifier:        d.Classifier,
		engines:           make(map[session.Phase]*Engine, len(flows)),
		events:            d.Events,
		logger:            d.Logger,
		fieldHintOverride: d.FieldHintOverride,
	}
	r.fallback = NewFallback(d.Responder, d.Extractor, d.Domain, d.Logger)
	r.confirm = NewConfirmation(d.Store, d.Classifier, r.fallback, d.Events, d.Logger)
	r.confirm.reroute = r.Route
	for _, flow := range flows {
		e := NewEngine(flow, d.Store, d.Extractor, d.Domain, r.confirm, d.Events, d.Logger)
		e.threshold = d.FuzzyThreshold
		e.metrics = d.Metrics
		r.engines[flow.Phase] = e
	}
	r.health = NewHealthScore(d.Store, d.Interviewer, d.Domain, r.confirm, r.fallback, d.Events, d.Logger)
	r.health.metrics = d.Metrics
	return r
}

// Route answers one turn. The caller holds the session lock.
func (r *Router) Route(ctx context.Context, t *Turn) (Reply, error) {
	forced := t.forced != IntentNone
	if !forced {
		inProgress, err := r.health.InProgress(ctx, t.Key)
		if err != nil {
			return Reply{}, err
		}
		if inProgress {
			reply, err := r.health.Process(ctx, t)
			if reply.Intent == IntentNone {
				reply.Intent = IntentGenerateHealthScore
			}
			return reply, err
		}
	}

	draft, err := r.store.Draft(ctx, t.Key)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: load draft: %w", err)
	}

	intent := t.forced
	if !forced {
		intent = r.classify(ctx, t)
	}
	r.events.IntentClassified(ctx, t.Key, intent, forced)

	if !forced && r.shouldForceSupplement(t, draft) {
		r.events.RouteForced(ctx, t.Key, string(session.PhaseCreateSupplement), "field_request")
		intent = IntentCreateSupplement
	}

	var reply Reply
	if !forced && draft != nil && draft.Phase.IsAction() {
		if engine, ok := r.engines[draft.Phase]; ok {
			reply, err = engine.Process(ctx, t)
		} else {
			reply, err = r.dispatch(ctx, t, intent)
		}
	} else {
		reply, err = r.dispatch(ctx, t, intent)
	}
	if err != nil {
		return Reply{}, err
	}
	if reply.Intent == IntentNone {
		reply.Intent = intent
	}
	return reply, nil
}

func (r *Router) classify(ctx context.Context, t *Turn) Intent {
	intent, err := r.classifier.Classify(ctx, t.Conversation())
	if err != nil {
		r.logger.Warn("intent classification failed", "session_key", t.Key, "error", err)
		return IntentNone
	}
	return intent
}

// shouldForceSupplement applies the field-request override. It never steals
// a turn from a different in-progress action or from a symptom question.
func (r *Router) shouldForceSupplement(t *Turn, draft *session.Draft) bool {
	if !r.fieldHintOverride {
		return false
	}
	if draft != nil && draft.Phase.IsAction() && draft.Phase != session.PhaseCreateSupplement {
		return false
	}
	if IsSymptomQuery(t.Message) {
		return false
	}
	last := strings.ToLower(t.LastAssistantMessage())
	if last == "" {
		return false
	}
	for _, hint := range creationFieldHints {
		if strings.Contains(last, hint) {
			return true
		}
	}
	return false
}

func (r *Router) dispatch(ctx context.Context, t *Turn, intent Intent) (Reply, error) {
	phase := intent.Phase()
	if engine, ok := r.engines[phase]; ok {
		return engine.Process(ctx, t)
	}
	switch phase {
	case session.PhaseGenerateHealthScore:
		return r.health.Process(ctx, t)
	case session.PhaseCheckMedicineSchedule:
		return r.fallback.CheckMedicineSchedule(ctx, t)
	case session.PhaseCheckVaccineSchedule:
		return r.fallback.CheckVaccineSchedule(ctx, t)
	}
	return r.fallback.Answer(ctx, t)
}
