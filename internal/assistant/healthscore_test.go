package assistant

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1", "1", true},
		{" Two ", "2", true},
		{"teen", "3", true},
		{"चार", "4", true},
		{"٢", "2", true},
		{"३", "3", true},
		{"c)", "3", true},
		{"(d", "4", true},
		{"Option 1", "1", true},
		{"b.", "2", true},
		{"5", "", false},
		{"maybe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeAnswer(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHealthScoreInterviewToCompletion(t *testing.T) {
	h := newHarness(t)
	previous := 61.0
	h.domain.latestScore = &previous
	h.interviewer.fn = func(req InterviewRequest) (InterviewResult, error) {
		if len(req.Answers) == QuestionCount {
			return InterviewResult{Score: "72.5", Message: "Your health score is 72.5, up from 61."}, nil
		}
		return InterviewResult{Question: fmt.Sprintf("Question %d", len(req.Answers)+1)}, nil
	}
	c := h.conversation(t, "user:1")

	reply := c.say("generate my health score")
	assert.Equal(t, "Question 1", reply.Text)
	assert.Equal(t, IntentGenerateHealthScore, reply.Intent)

	answers := []string{"1", "two", "3", "d", "ek", "2", "3", "4", "1", "2"}
	for i, a := range answers[:QuestionCount-1] {
		reply = c.say(a)
		assert.Equal(t, fmt.Sprintf("Question %d", i+2), reply.Text)
	}
	reply = c.say(answers[QuestionCount-1])
	assert.Equal(t, "Your health score is 72.5, up from 61.", reply.Text)
	assert.Equal(t, []float64{72.5}, h.domain.scores)

	last := h.interviewer.reqs[len(h.interviewer.reqs)-1]
	assert.Equal(t, "4", last.Answers["4"])
	assert.Equal(t, "1", last.Answers["5"])
	require.NotNil(t, last.PreviousScore)
	assert.Equal(t, 61.0, *last.PreviousScore)

	iv, err := h.store.Interview(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Nil(t, iv)
	assert.Equal(t, 1, h.classifier.callCount(), "in-progress interview turns skip classification")
}

func TestHealthScoreUnreadableAnswerIsNotRecorded(t *testing.T) {
	h := newHarness(t)
	h.interviewer.fn = func(req InterviewRequest) (InterviewResult, error) {
		return InterviewResult{Question: fmt.Sprintf("Question %d", len(req.Answers)+1)}, nil
	}
	c := h.conversation(t, "user:1")
	c.say("health score please")
	reply := c.say("not sure")
	assert.Equal(t, "Question 1", reply.Text)
}

func TestHealthScoreExitFlow(t *testing.T) {
	exitOn := map[string]bool{"I want to quit": true, "no": true, "yes": true}
	newExitHarness := func(t *testing.T) *harness {
		h := newHarness(t)
		h.interviewer.fn = func(req InterviewRequest) (InterviewResult, error) {
			if exitOn[req.Message] {
				return InterviewResult{NextStep: StepExit, Ask: "Do you want to stop the health assessment?"}, nil
			}
			return InterviewResult{Question: fmt.Sprintf("Question %d", len(req.Answers)+1)}, nil
		}
		return h
	}

	t.Run("continue with no answers", func(t *testing.T) {
		h := newExitHarness(t)
		c := h.conversation(t, "user:1")
		c.say("health score please")
		assert.Equal(t, "Do you want to stop the health assessment?", c.say("I want to quit").Text)
		assert.Equal(t, "Okay! Let's start with your health score. How many steps do you take daily?", c.say("no").Text)
		inProgress, err := h.router.health.InProgress(context.Background(), "user:1")
		require.NoError(t, err)
		assert.True(t, inProgress)
	})

	t.Run("continue after answers", func(t *testing.T) {
		h := newExitHarness(t)
		c := h.conversation(t, "user:1")
		c.say("health score please")
		c.say("2")
		c.say("I want to quit")
		assert.Equal(t, "Great! Let's continue with your health score. What would you like to tell me next?", c.say("no").Text)
	})

	t.Run("cancel", func(t *testing.T) {
		h := newExitHarness(t)
		c := h.conversation(t, "user:1")
		c.say("health score please")
		c.say("I want to quit")
		reply := c.say("yes")
		assert.Equal(t, "Health score cancelled. How else can I assist you today?\n\nanswer: I want to quit", reply.Text)
		iv, err := h.store.Interview(context.Background(), "user:1")
		require.NoError(t, err)
		assert.Nil(t, iv)
	})

	t.Run("exit before starting goes to fallback", func(t *testing.T) {
		h := newExitHarness(t)
		reply, err := h.router.health.Process(context.Background(), &Turn{Key: "user:2", Message: "no", Now: testNow})
		require.NoError(t, err)
		assert.Equal(t, "answer: no", reply.Text)
	})
}

func TestHealthScoreInterviewerFailureClearsState(t *testing.T) {
	h := newHarness(t)
	calls := 0
	h.interviewer.fn = func(InterviewRequest) (InterviewResult, error) {
		calls++
		if calls > 1 {
			return InterviewResult{}, errBoom
		}
		return InterviewResult{Question: "Question 1"}, nil
	}
	c := h.conversation(t, "user:1")
	c.say("health score please")
	reply := c.say("1")
	assert.Equal(t, "Sorry, I couldn't continue your health assessment right now. Please try again later.", reply.Text)
	iv, err := h.store.Interview(context.Background(), "user:1")
	require.NoError(t, err)
	assert.Nil(t, iv)
}

func TestHealthScoreSaveFailures(t *testing.T) {
	t.Run("non numeric score", func(t *testing.T) {
		h := newHarness(t)
		h.interviewer.fn = func(InterviewRequest) (InterviewResult, error) {
			return InterviewResult{Score: "excellent"}, nil
		}
		reply, err := h.router.health.Process(context.Background(), &Turn{Key: "user:1", Message: "health score", Now: testNow})
		require.NoError(t, err)
		assert.Equal(t, "I couldn't save your health score. Please try again later.", reply.Text)
		assert.Empty(t, h.domain.scores)
	})

	t.Run("api error", func(t *testing.T) {
		h := newHarness(t)
		h.domain.createErr = errBoom
		h.interviewer.fn = func(InterviewRequest) (InterviewResult, error) {
			return InterviewResult{Score: "80"}, nil
		}
		reply, err := h.router.health.Process(context.Background(), &Turn{Key: "user:1", Message: "health score", Now: testNow})
		require.NoError(t, err)
		assert.Equal(t, "I couldn't save your health score. Please try again later.", reply.Text)
	})

	t.Run("falls back to api message", func(t *testing.T) {
		h := newHarness(t)
		h.interviewer.fn = func(InterviewRequest) (InterviewResult, error) {
			return InterviewResult{Score: "80"}, nil
		}
		reply, err := h.router.health.Process(context.Background(), &Turn{Key: "user:1", Message: "health score", Now: testNow})
		require.NoError(t, err)
		assert.Equal(t, "Health score saved.", reply.Text)
		assert.Equal(t, []float64{80}, h.domain.scores)
	})
}
