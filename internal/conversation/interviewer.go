package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

var interviewDomains = [assistant.QuestionCount]string{
	"physical activity",
	"sleep",
	"diet",
	"hydration",
	"mental health",
	"stress",
	"screen time",
	"social life",
	"posture",
	"preventive care",
}

// ScoreStatus buckets a 0-100 score into Low, Medium or High.
func ScoreStatus(score float64) string {
	switch {
	case score >= 75:
		return "High"
	case score >= 50:
		return "Medium"
	}
	return "Low"
}

// ScoreAnswers sums the answers at 2.5 points per option number.
func ScoreAnswers(answers map[string]string) (float64, error) {
	var total float64
	for k, a := range answers {
		n, err := strconv.Atoi(a)
		if err != nil || n < 1 || n > 4 {
			return 0, fmt.Errorf("conversation: invalid answer %q for question %s", a, k)
		}
		total += float64(n) * 2.5
	}
	return total, nil
}

// Interviewer asks the health assessment questions and writes the final summary.
type Interviewer struct {
	client LLMClient
	logger *logging.Logger
}

func NewInterviewer(client LLMClient, logger *logging.Logger) *Interviewer {
	if client == nil {
		panic("conversation: interviewer llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Interviewer{client: client, logger: logger}
}

// Next returns the next question, an exit signal, or the score once every
// question is answered.
func (iv *Interviewer) Next(ctx context.Context, req assistant.InterviewRequest) (assistant.InterviewResult, error) {
	if len(req.Answers) >= assistant.QuestionCount {
		return iv.finish(ctx, req)
	}

	n := len(req.Answers)
	resp, err := iv.client.Complete(ctx, LLMRequest{
		System:      []string{fmt.Sprintf(interviewerPrompt, n+1, interviewDomains[n])},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: req.Message}},
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil {
		return assistant.InterviewResult{}, fmt.Errorf("conversation: interview question: %w", err)
	}
	out := assistant.InterviewResult{Usage: usageOf(resp)}

	var exit struct {
		NextStep string `json:"nextStep"`
		Ask      string `json:"ask"`
	}
	if err := decodeJSONReply(resp.Text, &exit); err == nil && assistant.ParseNextStep(exit.NextStep) == assistant.StepExit {
		out.NextStep = assistant.StepExit
		out.Ask = strings.TrimSpace(exit.Ask)
		return out, nil
	}

	q := strings.TrimSpace(resp.Text)
	if q == "" {
		return assistant.InterviewResult{}, fmt.Errorf("conversation: interview question: empty reply")
	}
	out.NextStep = assistant.StepAsk
	out.Question = q
	return out, nil
}

func (iv *Interviewer) finish(ctx context.Context, req assistant.InterviewRequest) (assistant.InterviewResult, error) {
	score, err := ScoreAnswers(req.Answers)
	if err != nil {
		return assistant.InterviewResult{}, err
	}
	status := ScoreStatus(score)
	out := assistant.InterviewResult{
		Score:    strconv.FormatFloat(score, 'f', -1, 64),
		NextStep: assistant.StepDone,
	}

	previous := ""
	if req.PreviousScore != nil {
		previous = fmt.Sprintf(" Their previous score was %.1f.", *req.PreviousScore)
	}
	resp, err := iv.client.Complete(ctx, LLMRequest{
		System:      []string{fmt.Sprintf(scoreSummaryPrompt, score, status, previous)},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "Summarize my health score."}},
		MaxTokens:   300,
		Temperature: 0.5,
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		iv.logger.Warn("health score summary failed, using local message", "error", err)
		out.Message = localScoreMessage(score, status, req.PreviousScore)
		return out, nil
	}
	out.Usage = usageOf(resp)
	out.Message = strings.TrimSpace(resp.Text)
	return out, nil
}

func localScoreMessage(score float64, status string, previous *float64) string {
	msg := fmt.Sprintf("Your health score is %s out of 100 (%s).", strconv.FormatFloat(score, 'f', -1, 64), status)
	if previous != nil {
		diff := score - *previous
		switch {
		case diff > 0:
			msg += fmt.Sprintf(" That's up %s points from last time.", strconv.FormatFloat(diff, 'f', -1, 64))
		case diff < 0:
			msg += fmt.Sprintf(" That's down %s points from last time.", strconv.FormatFloat(-diff, 'f', -1, 64))
		default:
			msg += " That's the same as last time."
		}
	}
	return msg + " Keep building small healthy habits every day!"
}
