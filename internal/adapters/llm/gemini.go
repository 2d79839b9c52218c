package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiContentClient is the subset of *genai.Models used for generation.
type GeminiContentClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAdapter implements ports.LLMService using the Gemini API.
type GeminiAdapter struct {
	client      GeminiContentClient
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewGeminiAdapter creates a Gemini LLM adapter. Pass client.Models.
func NewGeminiAdapter(client GeminiContentClient, model string, temperature float32, logger *zap.Logger) *GeminiAdapter {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiAdapter{
		client:      client,
		model:       model,
		temperature: temperature,
		logger:      logger.Named("llm.gemini"),
	}
}

// Generate sends the prompt as a single user turn and returns the text of the first candidate.
func (a *GeminiAdapter) Generate(ctx context.Context, prompt string, context []string) (string, error) {
	temperature := a.temperature
	start := time.Now()
	resp, err := a.client.GenerateContent(ctx, a.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("calling Gemini: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked the prompt: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	a.logger.Debug("generated answer",
		zap.String("model", a.model),
		zap.Int("context_chunks", len(context)),
		zap.String("finish_reason", string(resp.Candidates[0].FinishReason)),
		zap.Duration("took", time.Since(start)))
	return sb.String(), nil
}
