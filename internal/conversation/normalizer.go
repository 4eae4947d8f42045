package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/health-assistant/pkg/logging"
)

// passThroughInputs are commands and menu answers that must reach the router verbatim.
var passThroughInputs = map[string]struct{}{
	"yes": {}, "no": {}, "ok": {}, "okay": {}, "cancel": {}, "stop": {}, "exit": {},
	"continue": {}, "start": {}, "restart": {}, "help": {},
	"1": {}, "2": {}, "3": {}, "4": {},
	"one": {}, "two": {}, "three": {}, "four": {},
	"create a vaccine": {}, "health score": {},
}

// Normalizer rewrites terse or mixed-language input into clear English.
type Normalizer struct {
	client LLMClient
	logger *logging.Logger
}

func NewNormalizer(client LLMClient, logger *logging.Logger) *Normalizer {
	if client == nil {
		panic("conversation: normalizer llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Normalizer{client: client, logger: logger}
}

// Normalize returns text unchanged for commands, menu answers and blank input.
func (n *Normalizer) Normalize(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text, nil
	}
	if _, ok := passThroughInputs[strings.ToLower(trimmed)]; ok {
		return text, nil
	}

	resp, err := n.client.Complete(ctx, LLMRequest{
		System:      []string{normalizerPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: trimmed}},
		MaxTokens:   100,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("conversation: normalize: %w", err)
	}
	out := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if out == "" {
		return text, nil
	}
	return out, nil
}
