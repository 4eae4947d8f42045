package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/health-assistant/internal/session"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

// QuestionCount is the number of multiple-choice questions in the interview.
const QuestionCount = 10

var answerTokens = map[string]string{
	"1": "1", "one": "1", "ek": "1", "१": "1", "١": "1", "a": "1",
	"2": "2", "two": "2", "do": "2", "२": "2", "٢": "2", "b": "2",
	"3": "3", "three": "3", "teen": "3", "तीन": "3", "३": "3", "٣": "3", "c": "3",
	"4": "4", "four": "4", "char": "4", "chaar": "4", "चार": "4", "४": "4", "٤": "4", "d": "4",
}

// NormalizeAnswer maps a multiple-choice reply in English, romanized Hindi,
// Devanagari or Arabic-Indic digits to "1" through "4".
func NormalizeAnswer(reply string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(reply))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "."), ")")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "option "), "(")
	a, ok := answerTokens[strings.TrimSpace(s)]
	return a, ok
}

// HealthScore runs the ten-question health assessment.
type HealthScore struct {
	store       *session.Store
	interviewer Interviewer
	domain      DomainAPI
	confirm     *Confirmation
	fallback    *Fallback
	events      *EventLogger
	logger      *logging.Logger
	metrics     Metrics
}

func NewHealthScore(store *session.Store, interviewer Interviewer, domain DomainAPI, confirm *Confirmation, fallback *Fallback, events *EventLogger, logger *logging.Logger) *HealthScore {
	if store == nil {
		panic("assistant: session store cannot be nil")
	}
	if interviewer == nil {
		panic("assistant: interviewer cannot be nil")
	}
	if domain == nil {
		panic("assistant: domain api cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthScore{
		store:       store,
		interviewer: interviewer,
		domain:      domain,
		confirm:     confirm,
		fallback:    fallback,
		events:      events,
		logger:      logger,
		metrics:     noopMetrics{},
	}
}

// InProgress reports whether an unfinished interview exists for key.
func (h *HealthScore) InProgress(ctx context.Context, key string) (bool, error) {
	iv, err := h.store.Interview(ctx, key)
	if err != nil {
		return false, fmt.Errorf("assistant: load interview: %w", err)
	}
	return iv != nil && len(iv.Answers) < QuestionCount, nil
}

func (h *HealthScore) Process(ctx context.Context, t *Turn) (Reply, error) {
	reply := Reply{Phase: session.PhaseGenerateHealthScore}

	iv, err := h.store.Interview(ctx, t.Key)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: load interview: %w", err)
	}
	if iv == nil {
		h.events.FlowStarted(ctx, t.Key, string(session.PhaseGenerateHealthScore))
	}

	var previous *float64
	if p, err := h.domain.LatestHealthScore(ctx, t.Token); err != nil {
		h.logger.Debug("previous health score unavailable", "session_key", t.Key, "error", err)
	} else {
		previous = p
	}

	answers := map[string]string{}
	if iv != nil {
		for k, v := range iv.Answers {
			answers[k] = v
		}
		if len(answers) < QuestionCount {
			if a, ok := NormalizeAnswer(t.Message); ok {
				answers[strconv.Itoa(len(answers)+1)] = a
			}
		}
	}

	res, err := h.interviewer.Next(ctx, InterviewRequest{Message: t.Message, Answers: answers, PreviousScore: previous})
	if err != nil {
		h.logger.Error("health score interviewer failed", "session_key", t.Key, "error", err)
		h.clear(ctx, t.Key)
		reply.Text = "Sorry, I couldn't continue your health assessment right now. Please try again later."
		return reply, nil
	}
	reply.Usage.Add(res.Usage)

	switch {
	case res.NextStep == StepExit:
		if iv != nil && h.confirm != nil {
			out, err := h.confirm.Resolve(ctx, ExitRequest{
				Turn:     t,
				Phase:    session.PhaseGenerateHealthScore,
				Label:    "health score",
				Ask:      res.Ask,
				Answered: len(iv.Answers),
			})
			out.Usage.Add(reply.Usage)
			return out, err
		}
		if h.fallback == nil {
			reply.Text = res.Ask
			return reply, nil
		}
		out, err := h.fallback.Answer(ctx, t)
		out.Usage.Add(reply.Usage)
		return out, err

	case strings.TrimSpace(res.Score) != "":
		h.clear(ctx, t.Key)
		score, err := strconv.ParseFloat(strings.TrimSpace(res.Score), 64)
		if err != nil {
			h.logger.Warn("health score not numeric", "session_key", t.Key, "score", res.Score)
			reply.Text = "I couldn't save your health score. Please try again later."
			return reply, nil
		}
		saved, err := h.domain.CreateHealthScore(ctx, t.Token, score)
		h.events.Submission(ctx, t.Key, string(session.PhaseGenerateHealthScore), err == nil, false)
		if err != nil {
			h.metrics.ObserveSubmission(string(session.PhaseGenerateHealthScore), "error")
			h.logger.Warn("health score save failed", "session_key", t.Key, "error", err)
			reply.Text = "I couldn't save your health score. Please try again later."
			return reply, nil
		}
		h.metrics.ObserveSubmission(string(session.PhaseGenerateHealthScore), "success")
		switch {
		case strings.TrimSpace(res.Message) != "":
			reply.Text = res.Message
		case strings.TrimSpace(saved.Message) != "":
			reply.Text = saved.Message
		default:
			reply.Text = "Your health score has been saved."
		}
		return reply, nil

	case strings.TrimSpace(res.Question) != "":
		if iv == nil {
			iv = session.NewInterview()
		}
		iv.Answers = answers
		if err := h.store.SaveInterview(ctx, t.Key, iv); err != nil {
			return Reply{}, fmt.Errorf("assistant: save interview: %w", err)
		}
		reply.Text = res.Question
		return reply, nil
	}

	h.clear(ctx, t.Key)
	reply.Text = "Sorry, I couldn't continue your health assessment right now. Please try again later."
	return reply, nil
}

func (h *HealthScore) clear(ctx context.Context, key string) {
	if err := h.store.DeleteInterview(ctx, key); err != nil {
		h.logger.Warn("failed to clear health score state", "session_key", key, "error", err)
	}
}
