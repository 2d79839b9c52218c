// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// UploadedDocument is a file staged for one process action.
// It is owned by the caller for the duration of that action and discarded afterwards.
type UploadedDocument struct {
	ID   string
	Name string
	Data []byte
}

// Size returns the document size in bytes.
func (d UploadedDocument) Size() int64 {
	return int64(len(d.Data))
}

// Chunk represents a piece of extracted text for embedding.
// Clean Architecture: Entity knows nothing about how it's stored or embedded.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Index      int       // Position in the chunk sequence
	Embedding  []float32 // Vector representation (populated by adapter)
}

// QueryResult represents a search result with relevance.
type QueryResult struct {
	Chunk     Chunk
	Score     float64 // Similarity score
	SourceDoc string  // Document name for citation
}

// Answer is the Query Handler's reply to a single question.
type Answer struct {
	Text    string
	Sources []QueryResult
	Cached  bool
}

// ProcessReport summarises one successful process action.
type ProcessReport struct {
	Documents  int
	Characters int
	Chunks     int
	Duration   time.Duration
}

// IndexStatus reports whether a retrievable index exists.
type IndexStatus struct {
	Ready  bool
	Chunks int
}
