package entities

import (
	"errors"
	"fmt"
	"testing"
)

func TestUploadedDocument_Size(t *testing.T) {
	doc := UploadedDocument{
		ID:   "doc-123",
		Name: "test.pdf",
		Data: []byte("%PDF-1.4"),
	}

	if doc.Size() != 8 {
		t.Errorf("expected size 8, got %d", doc.Size())
	}
}

func TestChunk_WithEmbedding(t *testing.T) {
	chunk := Chunk{
		ID:         "chunk-1",
		DocumentID: "doc-123",
		Content:    "some text",
		Index:      0,
		Embedding:  []float32{0.1, 0.2, 0.3},
	}

	if len(chunk.Embedding) != 3 {
		t.Errorf("expected 3 embedding dims, got %d", len(chunk.Embedding))
	}
}

func TestAnswer_WithSources(t *testing.T) {
	answer := Answer{
		Text: "The answer is 42",
		Sources: []QueryResult{
			{Score: 0.9, SourceDoc: "guide.pdf"},
		},
	}

	if answer.Text == "" {
		t.Error("answer should not be empty")
	}
	if len(answer.Sources) == 0 {
		t.Error("sources should not be empty")
	}
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("index not found")
	err := fmt.Errorf("asking: %w", &StageError{Stage: StageAnswer, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("stage error should unwrap to its cause")
	}
	if err.Error() != "asking: answer: index not found" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestStageOf(t *testing.T) {
	stage, ok := StageOf(&StageError{Stage: StageChunk, Err: errors.New("boom")})
	if !ok || stage != StageChunk {
		t.Errorf("expected chunk stage, got %q (ok=%v)", stage, ok)
	}

	if _, ok := StageOf(ErrNoDocuments); ok {
		t.Error("sentinel errors carry no stage")
	}
}
