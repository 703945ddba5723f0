package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/ashureev/leetmentor/internal/prompt"
)

// ErrEmptyInput is returned when there is nothing to send to the model.
var ErrEmptyInput = errors.New("empty input")

// Service runs the mentor's single-shot model tasks on a Processor.
type Service struct {
	processor Processor
}

// NewService creates a Service on top of processor.
func NewService(processor Processor) *Service {
	return &Service{processor: processor}
}

// Stream streams the response to an already built prompt.
func (s *Service) Stream(ctx context.Context, text string) iter.Seq2[string, error] {
	return s.processor.Stream(ctx, text)
}

// Summarize returns a short summary of problem page text.
func (s *Service) Summarize(ctx context.Context, pageText string) (string, error) {
	if strings.TrimSpace(pageText) == "" {
		return "", fmt.Errorf("summarize: %w", ErrEmptyInput)
	}
	out, err := s.processor.Generate(ctx, prompt.SummarizePrompt(pageText))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// AnalyzeCode reviews candidate code, optionally answering a question about it.
func (s *Service) AnalyzeCode(ctx context.Context, code, question string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("analyze code: %w", ErrEmptyInput)
	}
	out, err := s.processor.Generate(ctx, prompt.AnalyzeCodePrompt(code, question))
	if err != nil {
		return "", fmt.Errorf("analyze code: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Name reports the underlying processor.
func (s *Service) Name() string {
	return s.processor.Name()
}

// Close releases resources.
func (s *Service) Close() {
	if s.processor != nil {
		s.processor.Close()
	}
}
