package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "text-embedding-004"

	// Gemini accepts at most this many contents per embed request.
	geminiMaxBatch = 100

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedClient is the subset of *genai.Models used for embeddings.
type GeminiEmbedClient interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiAdapter implements ports.EmbeddingService using the Gemini API.
type GeminiAdapter struct {
	client GeminiEmbedClient
	model  string
	logger *zap.Logger
}

// NewGeminiAdapter creates a Gemini embedding adapter. Pass client.Models.
func NewGeminiAdapter(client GeminiEmbedClient, model string, logger *zap.Logger) *GeminiAdapter {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiAdapter{
		client: client,
		model:  model,
		logger: logger.Named("embedding.gemini"),
	}
}

// Embed generates a query embedding.
func (a *GeminiAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := a.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates document embeddings, splitting into API-sized requests.
func (a *GeminiAdapter) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatch {
		end := min(start+geminiMaxBatch, len(texts))
		vectors, err := a.embed(ctx, texts[start:end], taskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (a *GeminiAdapter) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	start := time.Now()
	resp, err := a.client.EmbedContent(ctx, a.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("calling Gemini: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini returned %d embeddings for %d texts", got, len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini returned an empty embedding at %d", i)
		}
		vectors[i] = e.Values
	}

	a.logger.Debug("embedded texts",
		zap.String("model", a.model),
		zap.String("task", task),
		zap.Int("count", len(texts)),
		zap.Duration("took", time.Since(start)))
	return vectors, nil
}
