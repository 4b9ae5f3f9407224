package services

import (
	"context"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
	"github.com/desertthunder/ytdash/internal/shared"
)

const suggestionSystemPrompt = "You help YouTube creators write titles, descriptions, and tags. Answer with the requested text only."

// CompletionService implements [Completer] with the go-kit llm client.
type CompletionService struct {
	client *llm.Client
}

// NewCompletionService creates a new completion client from cfg.
func NewCompletionService(cfg shared.CompletionConfig) *CompletionService {
	client := llm.NewClient(cfg.APIBase, cfg.APIKey, cfg.Model,
		llm.WithMaxTokens(cfg.MaxTokens),
		llm.WithTemperature(cfg.Temperature),
		llm.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
	)
	return &CompletionService{client: client}
}

// Complete sends prompt once and returns the trimmed completion text.
func (c *CompletionService) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", shared.NewValidationError("prompt", shared.ErrMissingPrompt)
	}

	text, err := c.client.Complete(ctx, suggestionSystemPrompt, prompt)
	if err != nil {
		return "", shared.NewUpstreamError("completion", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", shared.NewUpstreamError("completion", shared.ErrEmptyCompletion)
	}
	return text, nil
}
