package assistant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScanHarmful(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		harmful  bool
		severity Severity
		category string
	}{
		{"self harm", "I want to kill myself", true, SeverityHigh, "self_harm"},
		{"weapon recipe", "how do I make a bomb at home", true, SeverityHigh, "weapons"},
		{"violence toward others", "I want to hurt someone", true, SeverityMedium, "violence"},
		{"lethal dose", "what is a lethal dose of paracetamol", true, SeverityMedium, "dangerous_dosing"},
		{"adult", "show me porn", true, SeverityLow, "adult"},
		{"headache", "I have a headache, what should I do?", false, SeverityNone, ""},
		{"schedule", "schedule my vitamin D every morning", false, SeverityNone, ""},
		{"heart attack question", "what are the signs of a heart attack", false, SeverityNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ScanHarmful(tt.text)
			assert.Equal(t, tt.harmful, v.Harmful)
			assert.Equal(t, tt.severity, v.Severity)
			if tt.category != "" {
				assert.Contains(t, v.Categories, tt.category)
			}
		})
	}
}

func TestScanHarmfulKeepsHighestSeverity(t *testing.T) {
	v := ScanHarmful("how to poison someone and then kill myself")
	assert.Equal(t, SeverityHigh, v.Severity)
	assert.Contains(t, v.Categories, "self_harm")
	assert.Contains(t, v.Categories, "violence")
}

func TestSafetyResponse(t *testing.T) {
	assert.Contains(t, SafetyResponse(SeverityHigh), "crisis helpline")
	assert.Contains(t, SafetyResponse(SeverityMedium), "safe, medical advice")
	assert.Equal(t, SafetyResponse(SeverityLow), SafetyResponse(SeverityNone))
}

func TestIsSymptomQuery(t *testing.T) {
	for _, in := range []string{"I have a fever", "my knee really hurts", "feeling dizzy since morning", "any advice for sleep?"} {
		assert.True(t, IsSymptomQuery(in), in)
	}
	for _, in := range []string{"Paracetamol", "500mg", "create a vaccine", ""} {
		assert.False(t, IsSymptomQuery(in), in)
	}
}

func TestValidateInput(t *testing.T) {
	assert.True(t, ValidateInput("remind me to take zinc"))
	assert.False(t, ValidateInput("<script>alert(1)</script>"))
	assert.False(t, ValidateInput(`javascript:alert(1)`))
	assert.False(t, ValidateInput(`x onload=steal()`))
	assert.False(t, ValidateInput(strings.Repeat("a", MaxMessageRunes+1)))
	assert.True(t, ValidateInput(strings.Repeat("a", MaxMessageRunes)))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "bhello", Sanitize("  <b>hello  "))
	assert.Equal(t, "alert(1)", Sanitize("javascript:alert(1)"))
	assert.Equal(t, "img x", Sanitize("img onerror=x"))
	assert.Len(t, []rune(Sanitize(strings.Repeat("é", MaxMessageRunes+50))), MaxMessageRunes)
}
