// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// TextExtractor converts staged documents to raw text.
type TextExtractor interface {
	// ExtractText returns the concatenated text of every document, in order.
	ExtractText(ctx context.Context, docs []entities.UploadedDocument) (string, error)
}

// TextChunker splits raw text into ordered retrieval chunks.
type TextChunker interface {
	SplitText(ctx context.Context, text string) ([]entities.Chunk, error)
}

// IndexBuilder turns chunks into a persisted retrievable index.
type IndexBuilder interface {
	Build(ctx context.Context, chunks []entities.Chunk) error
}

// IndexInspector reports whether an index is available for questions.
type IndexInspector interface {
	Status(ctx context.Context) (entities.IndexStatus, error)
}

// IndexVersion identifies the current index build.
type IndexVersion interface {
	// Generation changes every time the stored index is replaced.
	Generation() uint64
}

// QueryHandler answers a question from the persisted index.
type QueryHandler interface {
	Answer(ctx context.Context, question string) (*entities.Answer, error)
}

// DocumentProcessor runs the whole process action over a set of documents.
type DocumentProcessor interface {
	ProcessDocuments(ctx context.Context, docs []entities.UploadedDocument) (*entities.ProcessReport, error)
}

// EmbeddingService generates vector embeddings for text.
// Interface Segregation: Only embedding responsibility, nothing else.
type EmbeddingService interface {
	// Embed generates a vector embedding for a query.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for document chunks.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMService generates text responses from a language model.
// Single Responsibility: Only LLM inference, no embedding logic.
type LLMService interface {
	// Generate produces a response given a prompt and the retrieved context.
	Generate(ctx context.Context, prompt string, context []string) (string, error)
}

// VectorStore persists and queries chunk embeddings.
// Dependency Inversion: Usecases depend on this abstraction, not SQLite directly.
type VectorStore interface {
	// Replace atomically swaps the stored chunks for the given set.
	Replace(ctx context.Context, chunks []entities.Chunk) error

	// Search finds the most similar chunks to a query embedding.
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Clear removes all data from the store.
	Clear(ctx context.Context) error
}

// AnswerCache memoizes answers between index builds.
type AnswerCache interface {
	Get(ctx context.Context, question string) (string, bool, error)
	Set(ctx context.Context, question, answer string) error
	// Purge drops every cached answer; called after each build.
	Purge(ctx context.Context) error
}

// DocumentLoader reads documents from disk into uploads.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*entities.UploadedDocument, error)

	// LoadDir loads every supported document in dir.
	LoadDir(ctx context.Context, dir string) ([]entities.UploadedDocument, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
