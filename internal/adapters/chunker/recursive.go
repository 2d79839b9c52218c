// Package chunker splits extracted text into retrieval chunks.
package chunker

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

const (
	DefaultChunkSize    = 10000
	DefaultChunkOverlap = 1000
)

// RecursiveChunker implements ports.TextChunker with langchaingo's recursive
// character splitter (paragraphs, then lines, then words).
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
	size     int
	overlap  int
}

// NewRecursiveChunker creates a chunker. Non-positive values fall back to the defaults.
func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
		size:    size,
		overlap: overlap,
	}, nil
}

// SplitText returns the chunks of text in order. Blank text yields no chunks.
func (c *RecursiveChunker) SplitText(ctx context.Context, text string) ([]entities.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	chunks := make([]entities.Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, entities.Chunk{
			Content: part,
			Index:   len(chunks),
		})
	}
	return chunks, nil
}

// Size returns the configured chunk size in characters.
func (c *RecursiveChunker) Size() int { return c.size }

// Overlap returns the configured overlap in characters.
func (c *RecursiveChunker) Overlap() int { return c.overlap }
