package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/health-assistant/internal/config"
	"github.com/wolfman30/health-assistant/internal/conversation"
	"github.com/wolfman30/health-assistant/pkg/logging"
)

const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

// Collaborators are the model-backed pieces the assistant router consumes.
type Collaborators struct {
	Classifier  *conversation.LLMClassifier
	Extractor   *conversation.SlotExtractor
	Interviewer *conversation.Interviewer
	Responder   *conversation.Responder
	Normalizer  *conversation.Normalizer

	closers []func() error
}

// Close releases provider connections.
func (c *Collaborators) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type providerClient struct {
	name   string
	client conversation.LLMClient
}

// BuildCollaborators wires the configured primary and optional fallback
// providers. Every collaborator gets its own instrumented client so latency
// is labelled by operation.
func BuildCollaborators(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, observer conversation.CallObserver, logger *logging.Logger) (*Collaborators, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	out := &Collaborators{}
	primary, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg, out)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: primary llm: %w", err)
	}

	var fallback *providerClient
	if name := strings.TrimSpace(cfg.LLMFallbackProvider); name != "" && name != primary.name {
		fallback, err = buildProvider(ctx, name, cfg, awsCfg, out)
		if err != nil {
			logger.Warn("fallback llm unavailable; continuing without it", "provider", name, "error", err)
			fallback = nil
		}
	}

	wrap := func(operation string) conversation.LLMClient {
		p := conversation.NewInstrumentedClient(primary.client, primary.name, operation, observer)
		if fallback == nil {
			return p
		}
		f := conversation.NewInstrumentedClient(fallback.client, fallback.name, operation, observer)
		return conversation.NewFallbackLLMClient(p, f, logger)
	}

	out.Classifier = conversation.NewLLMClassifier(wrap("classify"), logger)
	out.Extractor = conversation.NewSlotExtractor(wrap("extract"), logger)
	out.Interviewer = conversation.NewInterviewer(wrap("interview"), logger)
	out.Responder = conversation.NewResponder(wrap("respond"), logger)
	out.Normalizer = conversation.NewNormalizer(wrap("normalize"), logger)

	fallbackName := ""
	if fallback != nil {
		fallbackName = fallback.name
	}
	logger.Info("llm collaborators ready", "provider", primary.name, "fallback", fallbackName)
	return out, nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config, out *Collaborators) (*providerClient, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case ProviderOpenAI, "":
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		return &providerClient{name: ProviderOpenAI, client: client}, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, errors.New("bedrock model id is required")
		}
		if awsCfg == nil {
			return nil, errors.New("aws config is required for bedrock")
		}
		client := conversation.NewBedrockLLMClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID)
		return &providerClient{name: ProviderBedrock, client: client}, nil
	case ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		out.closers = append(out.closers, client.Close)
		return &providerClient{name: ProviderGemini, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
}
