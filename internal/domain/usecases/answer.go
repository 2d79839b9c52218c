// Package usecases - answer.go handles retrieval and response generation.
package usecases

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

const defaultTopK = 4

// NotInContextReply is what the model is told to say when the context lacks the answer.
const NotInContextReply = "answer is not available in the context"

// AnswerUseCase handles search and response generation.
// It implements ports.QueryHandler.
type AnswerUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	llm         ports.LLMService
	cache       ports.AnswerCache
	version     ports.IndexVersion
	topK        int
	logger      *zap.Logger
}

// NewAnswerUseCase creates an AnswerUseCase with injected dependencies.
// cache and version may be nil; without a version, cached answers are only
// dropped by the builder's purge.
func NewAnswerUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	llm ports.LLMService,
	cache ports.AnswerCache,
	version ports.IndexVersion,
	topK int,
	logger *zap.Logger,
) *AnswerUseCase {
	if topK <= 0 {
		topK = defaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		llm:         llm,
		cache:       cache,
		version:     version,
		topK:        topK,
		logger:      logger.Named("answer"),
	}
}

// Answer searches for relevant context and generates a response.
func (uc *AnswerUseCase) Answer(ctx context.Context, question string) (*entities.Answer, error) {
	// read once: a rebuild during generation must not publish an answer for the new index
	key := uc.cacheKey(question)
	if uc.cache != nil {
		cached, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.logger.Warn("answer cache lookup failed", zap.Error(err))
		} else if ok {
			return &entities.Answer{Text: cached, Cached: true}, nil
		}
	}

	// 1. Retrieve context
	results, err := uc.Search(ctx, question)
	if err != nil {
		return nil, err
	}

	// 2. Build context from results
	contextParts := make([]string, len(results))
	for i, r := range results {
		contextParts[i] = r.Chunk.Content
	}

	// 3. Generate response via LLM
	prompt := uc.buildPrompt(question, contextParts)
	text, err := uc.llm.Generate(ctx, prompt, contextParts)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}
	text = strings.TrimSpace(text)

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, text); err != nil {
			uc.logger.Warn("answer cache store failed", zap.Error(err))
		}
	}

	uc.logger.Debug("question answered",
		zap.Int("sources", len(results)),
		zap.Int("answer_chars", len(text)))

	return &entities.Answer{
		Text:    text,
		Sources: results,
	}, nil
}

// Search only retrieves relevant chunks without LLM generation.
func (uc *AnswerUseCase) Search(ctx context.Context, question string) ([]entities.QueryResult, error) {
	embedding, err := uc.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	results, err := uc.vectorStore.Search(ctx, embedding, uc.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	return results, nil
}

// cacheKey scopes question to the current index generation.
func (uc *AnswerUseCase) cacheKey(question string) string {
	if uc.version == nil {
		return question
	}
	return fmt.Sprintf("%d|%s", uc.version.Generation(), question)
}

// buildPrompt creates the LLM prompt with context.
func (uc *AnswerUseCase) buildPrompt(question string, context []string) string {
	var sb strings.Builder
	sb.WriteString("Answer the question as detailed as possible from the provided context. ")
	sb.WriteString("Make sure to provide all the details. If the answer is not in the provided context, just say \"")
	sb.WriteString(NotInContextReply)
	sb.WriteString("\" and do not make up an answer.\n\n")
	sb.WriteString("Context:\n")
	sb.WriteString(strings.Join(context, "\n\n"))
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
