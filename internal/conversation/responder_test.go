package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/health-assistant/internal/assistant"
	"github.com/wolfman30/health-assistant/internal/session"
)

func TestResponder_Answer(t *testing.T) {
	client := &scriptedLLMClient{replies: []string{"  Drink plenty of fluids and rest.  "}}
	r := NewResponder(client, nil)

	history := make([]session.Turn, 0, 30)
	for i := 0; i < 30; i++ {
		role := session.RoleUser
		if i%2 == 1 {
			role = session.RoleAssistant
		}
		history = append(history, session.Turn{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}

	got, err := r.Answer(context.Background(), assistant.ResponderRequest{
		History:  history,
		Message:  "I have a cold",
		Guidance: []string{"Share general wellness information only.", "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Drink plenty of fluids and rest.", got.Text)
	assert.Equal(t, "test-model", got.Usage.Model)

	req := client.lastRequest(t)
	assert.Equal(t, []string{responderPrompt, "Share general wellness information only."}, req.System)
	assert.EqualValues(t, 900, req.MaxTokens)
	assert.InDelta(t, 0.4, req.Temperature, 0.0001)
	require.Len(t, req.Messages, responderHistoryTurns+1)
	assert.Equal(t, "turn 10", req.Messages[0].Content)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "I have a cold"}, req.Messages[len(req.Messages)-1])
}

func TestResponder_PromptReplacesMessage(t *testing.T) {
	client := &scriptedLLMClient{replies: []string{"You have Metformin at 8:00 AM."}}
	_, err := NewResponder(client, nil).Answer(context.Background(), assistant.ResponderRequest{
		Message: "what do I take today",
		Prompt:  `Summarize these doses: [{"medicineName":"Metformin"}]`,
	})
	require.NoError(t, err)

	req := client.lastRequest(t)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, `Summarize these doses: [{"medicineName":"Metformin"}]`, req.Messages[0].Content)
}

func TestResponder_ScreensOutput(t *testing.T) {
	t.Run("blocked reply is replaced", func(t *testing.T) {
		r := NewResponder(&scriptedLLMClient{replies: []string{"The lethal dose of paracetamol is about 10 grams."}}, nil)
		got, err := r.Answer(context.Background(), assistant.ResponderRequest{Message: "how much paracetamol is too much"})
		require.NoError(t, err)
		assert.Equal(t, blockedReply, got.Text)
	})

	t.Run("markup is stripped", func(t *testing.T) {
		r := NewResponder(&scriptedLLMClient{replies: []string{"Stay hydrated <script>alert(1)</script>"}}, nil)
		got, err := r.Answer(context.Background(), assistant.ResponderRequest{Message: "tips for summer"})
		require.NoError(t, err)
		assert.Equal(t, "Stay hydrated alert(1)", got.Text)
	})
}

func TestResponder_Errors(t *testing.T) {
	client := &scriptedLLMClient{replies: []string{"ok"}}
	_, err := NewResponder(client, nil).Answer(context.Background(), assistant.ResponderRequest{Message: "  "})
	assert.Error(t, err)
	assert.Equal(t, 0, client.calls())

	_, err = NewResponder(&scriptedLLMClient{err: errBoom}, nil).Answer(context.Background(), assistant.ResponderRequest{Message: "hi"})
	assert.ErrorIs(t, err, errBoom)

	_, err = NewResponder(&scriptedLLMClient{replies: []string{" "}}, nil).Answer(context.Background(), assistant.ResponderRequest{Message: "hi"})
	assert.Error(t, err)
}
