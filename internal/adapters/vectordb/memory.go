package vectordb

import (
	"context"
	"fmt"
	"sync"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// InMemoryStore keeps the index in process memory. It does not survive a restart.
type InMemoryStore struct {
	mu     sync.RWMutex
	chunks []entities.Chunk
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Replace swaps the stored chunks for the given set.
func (s *InMemoryStore) Replace(ctx context.Context, chunks []entities.Chunk) error {
	next := make([]entities.Chunk, len(chunks))
	copy(next, chunks)

	s.mu.Lock()
	s.chunks = next
	s.mu.Unlock()
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]entities.QueryResult, 0, len(s.chunks))
	for _, chunk := range s.chunks {
		if len(chunk.Embedding) != len(embedding) {
			continue
		}
		results = append(results, entities.QueryResult{
			Chunk:     chunk,
			Score:     cosineSimilarity(embedding, chunk.Embedding),
			SourceDoc: chunk.DocumentID,
		})
	}
	if len(results) == 0 && len(s.chunks) > 0 {
		return nil, fmt.Errorf("%w (index %d, query %d)", ErrDimensionMismatch, len(s.chunks[0].Embedding), len(embedding))
	}
	return rankTopK(results, topK), nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.chunks = nil
	s.mu.Unlock()
	return nil
}
