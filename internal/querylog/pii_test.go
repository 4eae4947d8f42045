package querylog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/health-assistant/pkg/logging"
)

func TestScrubPII(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"email", "send my schedule to jane@example.com please", "send my schedule to [EMAIL] please"},
		{"phone", "call me at (330) 333-2654", "call me at[PHONE]"},
		{"phone with plus", "my number is +15005550002", "my number is [PHONE]"},
		{"dates kept", "from 2025-01-01 to 2025-01-05", "from 2025-01-01 to 2025-01-05"},
		{"no pii", "create a medicine schedule for Paracetamol", "create a medicine schedule for Paracetamol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ScrubPII(tt.input))
		})
	}
}

func TestRecorderScrubsQueryAndResponse(t *testing.T) {
	sink := &captureSink{}
	r := NewRecorder(sink, 4, logging.New("error"))

	r.Record(Entry{SessionKey: "s1", Query: "email me at jane@example.com", Response: "I will not email 330-333-2654"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Close(ctx))

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, "email me at [EMAIL]", got[0].Query)
	assert.Equal(t, "I will not email[PHONE]", got[0].Response)
}
