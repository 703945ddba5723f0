package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenRouterModel = "openai/gpt-4o-mini"
)

var errStreamStopped = errors.New("stream consumer stopped")

// openAIProcessor serves both OpenAI and OpenAI-compatible endpoints such as OpenRouter.
type openAIProcessor struct {
	llm      *openai.LLM
	model    string
	provider string
}

func newOpenAI(apiKey, model, baseURL string) (*openAIProcessor, error) {
	provider, keyName := ProviderOpenAI, "OPENAI_API_KEY"
	if baseURL != "" {
		provider, keyName = ProviderOpenRouter, "OPENROUTER_API_KEY"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", keyName, ErrMissingAPIKey)
	}
	if model == "" {
		model = defaultOpenAIModel
		if baseURL != "" {
			model = defaultOpenRouterModel
		}
	}

	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &openAIProcessor{llm: llm, model: model, provider: provider}, nil
}

func (o *openAIProcessor) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", o.provider, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (o *openAIProcessor) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		stopped := false
		_, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt,
			llms.WithTemperature(0.7),
			llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
				if len(chunk) == 0 {
					return nil
				}
				if !yield(string(chunk), nil) {
					stopped = true
					return errStreamStopped
				}
				return nil
			}),
		)
		if err != nil && !stopped {
			yield("", fmt.Errorf("%s stream: %w", o.provider, err))
		}
	}
}

func (o *openAIProcessor) Name() string { return o.provider + ":" + o.model }

func (o *openAIProcessor) Close() {}
