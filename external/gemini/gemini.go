package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	"github.com/foxseedlab/kiosko/internal/provider"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 2048
)

// Generator implements provider.TextGenerator on top of a langchaingo model.
type Generator struct {
	llm llms.Model
}

func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
		googleai.WithDefaultMaxTokens(defaultMaxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	slog.Info("gemini text generation enabled", "model", model)
	return &Generator{llm: llm}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w: %w", provider.ErrUnavailable, err)
	}
	return text, nil
}
