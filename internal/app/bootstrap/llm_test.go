package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

func TestBuildCollaboratorsRequiresConfig(t *testing.T) {
	if _, err := BuildCollaborators(context.Background(), nil, nil, nil, logging.New("error")); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildCollaboratorsPrimaryErrors(t *testing.T) {
	cases := []struct {
		name    string
		cfg     *appconfig.Config
		awsCfg  *aws.Config
		wantErr string
	}{
		{
			name:    "openai without key",
			cfg:     &appconfig.Config{LLMProvider: ProviderOpenAI},
			wantErr: "openai api key is required",
		},
		{
			name:    "bedrock without model",
			cfg:     &appconfig.Config{LLMProvider: ProviderBedrock},
			awsCfg:  &aws.Config{Region: "us-east-1"},
			wantErr: "bedrock model id is required",
		},
		{
			name:    "bedrock without aws config",
			cfg:     &appconfig.Config{LLMProvider: ProviderBedrock, BedrockModelID: "anthropic.claude"},
			wantErr: "aws config is required",
		},
		{
			name:    "gemini without key",
			cfg:     &appconfig.Config{LLMProvider: ProviderGemini},
			wantErr: "gemini api key is required",
		},
		{
			name:    "unknown provider",
			cfg:     &appconfig.Config{LLMProvider: "mystery"},
			wantErr: `unknown llm provider "mystery"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildCollaborators(context.Background(), tc.cfg, tc.awsCfg, nil, logging.New("error"))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestBuildCollaboratorsOpenAIWithBadFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         ProviderOpenAI,
		LLMFallbackProvider: ProviderGemini,
		OpenAIAPIKey:        "sk-test",
		OpenAIModel:         "gpt-4o-mini",
	}

	collab, err := BuildCollaborators(context.Background(), cfg, nil, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab.Classifier == nil || collab.Extractor == nil || collab.Interviewer == nil || collab.Responder == nil || collab.Normalizer == nil {
		t.Fatalf("expected every collaborator to be wired: %#v", collab)
	}
	if err := collab.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuildCollaboratorsBedrockWithOpenAIFallback(t *testing.T) {
	cfg := &appconfig.Config{
		LLMProvider:         ProviderBedrock,
		LLMFallbackProvider: ProviderOpenAI,
		BedrockModelID:      "anthropic.claude-3-haiku",
		OpenAIAPIKey:        "sk-test",
	}
	awsCfg := &aws.Config{Region: "us-east-1"}

	collab, err := BuildCollaborators(context.Background(), cfg, awsCfg, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if collab.Responder == nil {
		t.Fatalf("expected responder")
	}
}

func TestCollaboratorsCloseNil(t *testing.T) {
	var c *Collaborators
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
