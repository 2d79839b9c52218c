// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code - just business logic and structured logging.
package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

const defaultEmbedBatchSize = 100

// IndexUseCase embeds chunks and persists them as the retrievable index.
// It implements ports.IndexBuilder, ports.IndexInspector and ports.IndexVersion.
type IndexUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	cache       ports.AnswerCache
	batchSize   int
	logger      *zap.Logger

	// seeded from the clock so a restarted process never reuses a generation
	generation atomic.Uint64
}

// NewIndexUseCase creates an IndexUseCase with injected dependencies.
// Dependency Injection: Adapters are passed in, not created here. cache may be nil.
func NewIndexUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	cache ports.AnswerCache,
	batchSize int,
	logger *zap.Logger,
) *IndexUseCase {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	uc := &IndexUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		cache:       cache,
		batchSize:   batchSize,
		logger:      logger.Named("index"),
	}
	uc.generation.Store(uint64(time.Now().UnixNano()))
	return uc
}

// Build embeds every chunk and replaces the stored index with the result.
// A rebuild always replaces; chunks from earlier uploads are not kept.
func (uc *IndexUseCase) Build(ctx context.Context, chunks []entities.Chunk) error {
	if len(chunks) == 0 {
		return entities.ErrNoText
	}

	// 1. Embed in batches via port (adapter)
	for start := 0; start < len(chunks); start += uc.batchSize {
		end := start + uc.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		embeddings, err := uc.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embedding chunks %d-%d: got %d vectors for %d texts", start, end-1, len(embeddings), len(texts))
		}

		for i := range embeddings {
			chunks[start+i].Embedding = embeddings[i]
			if chunks[start+i].ID == "" {
				chunks[start+i].ID = generateChunkID(chunks[start+i].DocumentID, chunks[start+i].Index)
			}
		}
	}

	// 2. Swap the stored index via port
	if err := uc.vectorStore.Replace(ctx, chunks); err != nil {
		return fmt.Errorf("storing index: %w", err)
	}
	uc.generation.Add(1)

	// 3. Cached answers belong to the previous index
	if uc.cache != nil {
		if err := uc.cache.Purge(ctx); err != nil {
			uc.logger.Warn("purging answer cache failed", zap.Error(err))
		}
	}

	uc.logger.Info("index built", zap.Int("chunks", len(chunks)))
	return nil
}

// Generation returns the current index generation. Answers cached under an
// older generation are never served again.
func (uc *IndexUseCase) Generation() uint64 {
	return uc.generation.Load()
}

// Status reports whether the store holds any chunks.
func (uc *IndexUseCase) Status(ctx context.Context) (entities.IndexStatus, error) {
	n, err := uc.vectorStore.Count(ctx)
	if err != nil {
		return entities.IndexStatus{}, fmt.Errorf("counting chunks: %w", err)
	}
	return entities.IndexStatus{Ready: n > 0, Chunks: n}, nil
}

// generateChunkID creates a deterministic ID for a chunk.
func generateChunkID(docID string, index int) string {
	if docID == "" {
		docID = "corpus"
	}
	return fmt.Sprintf("%s-%05d", docID, index)
}
