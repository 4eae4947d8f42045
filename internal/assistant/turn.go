package assistant

import (
	"strings"
	"time"

	"github.com/wolfman30/health-assistant/internal/session"
)

// Turn is one inbound message with its request-scoped context.
type Turn struct {
	Key     string
	UserID  string
	ChatID  string
	Token   string
	Message string
	// History is the prior conversation, oldest first, excluding Message.
	History []session.Turn
	Now     time.Time

	forced   Intent
	rerouted bool
}

// Conversation returns History followed by the current user message.
func (t *Turn) Conversation() []session.Turn {
	out := make([]session.Turn, 0, len(t.History)+1)
	out = append(out, t.History...)
	return append(out, session.Turn{Role: session.RoleUser, Content: t.Message})
}

// PreviousUserMessage is the most recent earlier user utterance that differs from Message.
func (t *Turn) PreviousUserMessage() string {
	current := strings.TrimSpace(t.Message)
	for i := len(t.History) - 1; i >= 0; i-- {
		h := t.History[i]
		if h.Role != session.RoleUser {
			continue
		}
		if c := strings.TrimSpace(h.Content); c != "" && c != current {
			return c
		}
	}
	return ""
}

// LastAssistantMessage is the bot's most recent reply.
func (t *Turn) LastAssistantMessage() string {
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Role == session.RoleAssistant {
			return t.History[i].Content
		}
	}
	return ""
}

// reroute builds the one-hop follow-up turn used after a confirmed cancellation.
func (t *Turn) reroute(message string, intent Intent) *Turn {
	next := *t
	next.Message = message
	next.History = t.Conversation()
	next.forced = intent
	next.rerouted = true
	return &next
}

// Today is Now truncated to the local calendar day.
func (t *Turn) Today() time.Time {
	y, m, d := t.Now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Now.Location())
}

// Reply is the router's answer to a Turn.
type Reply struct {
	Text   string
	Intent Intent
	Phase  session.Phase
	Usage  Usage
}
