package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// ExitRequest describes a flow the extractor thinks the user wants to leave.
type ExitRequest struct {
	Turn  *Turn
	Phase session.Phase
	Label string
	// Ask is the extractor's cancellation question, repeated on unclear replies.
	Ask string
	// Answered is the number of health-score answers collected so far.
	Answered int
}

// Confirmation runs the "do you want to cancel?" sub-dialogue.
type Confirmation struct {
	store      *session.Store
	classifier IntentClassifier
	fallback   *Fallback
	phrases    Phrases
	events     *EventLogger
	logger     *logging.Logger

	// reroute re-enters the router with a forced intent after a cancellation.
	reroute func(ctx context.Context, t *Turn) (Reply, error)
}

func NewConfirmation(store *session.Store, classifier IntentClassifier, fallback *Fallback, events *EventLogger, logger *logging.Logger) *Confirmation {
	if store == nil {
		panic("assistant: session store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Confirmation{
		store:      store,
		classifier: classifier,
		fallback:   fallback,
		phrases:    DefaultPhrases,
		events:     events,
		logger:     logger,
	}
}

// Resolve reads the user's reply as cancel, continue or unclear.
func (c *Confirmation) Resolve(ctx context.Context, req ExitRequest) (Reply, error) {
	t := req.Turn
	decision, rest := c.phrases.Classify(t.Message)
	switch decision {
	case DecisionCancel:
		return c.cancel(ctx, req, rest)
	case DecisionContinue:
		c.events.ExitDeclined(ctx, t.Key, string(req.Phase))
		text := fmt.Sprintf("Great! Let's continue with your %s. What would you like to tell me next?", req.Label)
		if req.Phase == session.PhaseGenerateHealthScore && req.Answered == 0 {
			text = "Okay! Let's start with your health score. How many steps do you take daily?"
		}
		return Reply{Text: text, Phase: req.Phase}, nil
	}
	if ask := strings.TrimSpace(req.Ask); ask != "" {
		return Reply{Text: ask, Phase: req.Phase}, nil
	}
	return Reply{Text: fmt.Sprintf("Would you like to cancel the %s? Please reply yes or no.", req.Label), Phase: req.Phase}, nil
}

func (c *Confirmation) cancel(ctx context.Context, req ExitRequest, rest string) (Reply, error) {
	t := req.Turn
	var err error
	if req.Phase == session.PhaseGenerateHealthScore {
		err = c.store.DeleteInterview(ctx, t.Key)
	} else {
		err = c.store.DeleteDraft(ctx, t.Key)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: cancel %s: %w", req.Phase, err)
	}

	utterance := rest
	if utterance == "" {
		utterance = t.PreviousUserMessage()
	}

	if utterance != "" && !t.rerouted && c.classifier != nil && c.reroute != nil {
		intent, err := c.classifier.Classify(ctx, []session.Turn{{Role: session.RoleUser, Content: utterance}})
		if err != nil {
			c.logger.Warn("reclassification after cancel failed", "session_key", t.Key, "error", err)
		} else if intent.Actionable() && intent.Phase() != req.Phase {
			c.events.ExitConfirmed(ctx, t.Key, string(req.Phase), intent)
			return c.reroute(ctx, t.reroute(utterance, intent))
		}
	}
	c.events.ExitConfirmed(ctx, t.Key, string(req.Phase), IntentNone)

	text := fmt.Sprintf("%s cancelled. How else can I assist you today?", capitalize(req.Label))
	reply := Reply{Phase: session.PhaseNone}
	if utterance != "" && c.fallback != nil {
		follow := *t
		follow.Message = utterance
		answer, err := c.fallback.Answer(ctx, &follow)
		if err != nil {
			c.logger.Warn("fallback answer after cancel failed", "session_key", t.Key, "error", err)
		} else if strings.TrimSpace(answer.Text) != "" {
			text += "\n\n" + answer.Text
			reply.Usage.Add(answer.Usage)
		}
	}
	reply.Text = text
	return reply, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
