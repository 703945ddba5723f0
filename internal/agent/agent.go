// Package agent talks to generative-AI providers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when the selected provider has no API key.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider is returned for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown agent provider")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("empty model response")
)

// Provider names.
const (
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAnthropic  = "anthropic"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Processor generates text for a prompt.
type Processor interface {
	// Generate returns the complete model response.
	Generate(ctx context.Context, prompt string) (string, error)

	// Stream returns the model response as it is produced.
	Stream(ctx context.Context, prompt string) iter.Seq2[string, error]

	// Name identifies the provider and model.
	Name() string

	// Close releases resources.
	Close()
}

// Config holds agent configuration.
type Config struct {
	Provider         string
	ModelName        string
	GoogleAPIKey     string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	AnthropicAPIKey  string
	MaxTokens        int
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderGemini,
		MaxTokens: 1024,
	}
}

// NewProcessor creates the processor selected by cfg.Provider.
func NewProcessor(ctx context.Context, cfg Config, logger *slog.Logger) (Processor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}

	var (
		p   Processor
		err error
	)
	switch provider {
	case ProviderGemini:
		p, err = newGemini(ctx, cfg)
	case ProviderOpenAI:
		p, err = newOpenAI(cfg.OpenAIAPIKey, cfg.ModelName, "")
	case ProviderOpenRouter:
		p, err = newOpenAI(cfg.OpenRouterAPIKey, cfg.ModelName, openRouterBaseURL)
	case ProviderAnthropic:
		p, err = newAnthropic(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s processor: %w", provider, err)
	}

	logger.Info("Agent processor ready", "processor", p.Name())
	return p, nil
}
