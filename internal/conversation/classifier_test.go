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

func userTurns(msgs ...string) []session.Turn {
	out := make([]session.Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, session.Turn{Role: session.RoleUser, Content: m})
	}
	return out
}

func TestKeywordIntent(t *testing.T) {
	tests := []struct {
		text   string
		want   assistant.Intent
		wantOK bool
	}{
		{"I have a headache since morning", assistant.IntentGeneralQuery, true},
		{"create a medicine schedule for metformin", assistant.IntentCreateMedicineSchedule, true},
		{"add a new medicine called dolo", assistant.IntentCreateMedicine, true},
		{"add vitamin d supplement", assistant.IntentCreateSupplement, true},
		{"set up my covid vaccine appointment", assistant.IntentCreateVaccineSchedule, true},
		{"add a new vaccine covaxin", assistant.IntentCreateVaccine, true},
		{"what is the weather", assistant.IntentNone, false},
		{"", assistant.IntentNone, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := KeywordIntent(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMClassifier_KeywordMatchSkipsModel(t *testing.T) {
	client := &scriptedLLMClient{replies: []string{`{"intent":"general_query"}`}}
	c := NewLLMClassifier(client, nil)

	got, err := c.Classify(context.Background(), userTurns("add a new vaccine covaxin"))
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentCreateVaccine, got)
	assert.Equal(t, 0, client.calls())
}

func TestLLMClassifier_UsesModelReply(t *testing.T) {
	client := &scriptedLLMClient{replies: []string{"```json\n{\"intent\": \"check_vaccine_schedule\"}\n```"}}
	c := NewLLMClassifier(client, nil)

	history := make([]session.Turn, 0, 15)
	for i := 0; i < 14; i++ {
		history = append(history, session.Turn{Role: session.RoleAssistant, Content: fmt.Sprintf("turn %d", i)})
	}
	history = append(history, session.Turn{Role: session.RoleUser, Content: "which vaccines are due on friday"})

	got, err := c.Classify(context.Background(), history)
	require.NoError(t, err)
	assert.Equal(t, assistant.IntentCheckVaccineSchedule, got)

	req := client.lastRequest(t)
	assert.Equal(t, []string{classifierPrompt}, req.System)
	assert.EqualValues(t, 100, req.MaxTokens)
	assert.Zero(t, req.Temperature)
	require.Len(t, req.Messages, classifierHistoryTurns)
	assert.Equal(t, "which vaccines are due on friday", req.Messages[len(req.Messages)-1].Content)
}

func TestLLMClassifier_ReplyParsing(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  assistant.Intent
	}{
		{"unknown label", `{"intent": "book_flight"}`, assistant.IntentGeneralQuery},
		{"malformed json", `{"intent": "create_vaccine", }`, assistant.IntentCreateVaccine},
		{"prose", "I think this is small talk", assistant.IntentGeneralQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLLMClassifier(&scriptedLLMClient{replies: []string{tt.reply}}, nil)
			got, err := c.Classify(context.Background(), userTurns("tell me a joke"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMClassifier_ModelFailure(t *testing.T) {
	t.Run("keyword fallback", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLMClient{err: errBoom}, nil)
		got, err := c.Classify(context.Background(), userTurns("what is my health score"))
		require.NoError(t, err)
		assert.Equal(t, assistant.IntentGenerateHealthScore, got)
	})

	t.Run("no fallback match", func(t *testing.T) {
		c := NewLLMClassifier(&scriptedLLMClient{err: errBoom}, nil)
		_, err := c.Classify(context.Background(), userTurns("tell me a joke"))
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := NewLLMClassifier(&scriptedLLMClient{err: context.Canceled}, nil)
		_, err := c.Classify(ctx, userTurns("what is my health score"))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty conversation", func(t *testing.T) {
		client := &scriptedLLMClient{replies: []string{`{"intent":"general_query"}`}}
		_, err := NewLLMClassifier(client, nil).Classify(context.Background(), nil)
		assert.Error(t, err)
		assert.Equal(t, 0, client.calls())
	})
}
