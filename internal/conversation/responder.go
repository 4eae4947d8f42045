package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const responderHistoryTurns = 20

// Responder answers free-form health questions and summarizes fetched schedules.
type Responder struct {
	client LLMClient
	logger *logging.Logger
}

func NewResponder(client LLMClient, logger *logging.Logger) *Responder {
	if client == nil {
		panic("conversation: responder llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Responder{client: client, logger: logger}
}

// Answer screens the model reply before returning it. Blocked replies are
// replaced with a fixed refusal.
func (r *Responder) Answer(ctx context.Context, req assistant.ResponderRequest) (assistant.Answer, error) {
	message := req.Message
	if strings.TrimSpace(req.Prompt) != "" {
		message = req.Prompt
	}
	if strings.TrimSpace(message) == "" {
		return assistant.Answer{}, fmt.Errorf("conversation: respond: empty message")
	}

	system := make([]string, 0, len(req.Guidance)+1)
	system = append(system, responderPrompt)
	for _, g := range req.Guidance {
		if g = strings.TrimSpace(g); g != "" {
			system = append(system, g)
		}
	}
	messages := historyMessages(lastTurns(req.History, responderHistoryTurns))
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: message})

	resp, err := r.client.Complete(ctx, LLMRequest{
		System:      system,
		Messages:    messages,
		MaxTokens:   900,
		Temperature: 0.4,
	})
	if err != nil {
		return assistant.Answer{}, fmt.Errorf("conversation: respond: %w", err)
	}
	out := assistant.Answer{Text: strings.TrimSpace(resp.Text), Usage: usageOf(resp)}
	if out.Text == "" {
		return assistant.Answer{}, fmt.Errorf("conversation: respond: empty reply")
	}

	screen := ScanOutput(out.Text)
	if screen.Flagged {
		r.logger.Warn("responder output flagged", "reasons", screen.Reasons)
		out.Text = screen.Sanitized
		if out.Text == "" {
			out.Text = blockedReply
		}
	}
	return out, nil
}
