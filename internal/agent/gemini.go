package agent

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiProcessor struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

func newGemini(ctx context.Context, cfg Config) (*geminiProcessor, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY: %w", ErrMissingAPIKey)
	}
	model := cfg.ModelName
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiProcessor{client: client, model: model, maxTokens: int32(cfg.MaxTokens)}, nil
}

func (g *geminiProcessor) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{MaxOutputTokens: g.maxTokens}
}

func (g *geminiProcessor) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config())
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *geminiProcessor) Stream(ctx context.Context, prompt string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.config()) {
			if err != nil {
				yield("", fmt.Errorf("gemini stream: %w", err))
				return
			}
			if text := resp.Text(); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

func (g *geminiProcessor) Name() string { return ProviderGemini + ":" + g.model }

func (g *geminiProcessor) Close() {}
