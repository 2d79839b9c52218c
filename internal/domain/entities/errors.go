package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocuments is returned when processing is requested with nothing staged.
	ErrNoDocuments = errors.New("no documents uploaded")

	// ErrEmptyQuestion is returned for a blank question; callers treat it as "no question asked".
	ErrEmptyQuestion = errors.New("empty question")

	// ErrIndexNotReady is returned when a question arrives before any index was built.
	ErrIndexNotReady = errors.New("no index yet: upload and process PDFs first")

	// ErrNoText is returned when the uploaded documents yield no extractable text.
	ErrNoText = errors.New("no extractable text found in the uploaded documents")
)

// Stage names a collaborator call inside a process or ask action.
type Stage string

const (
	StageExtract Stage = "extract"
	StageChunk   Stage = "chunk"
	StageIndex   Stage = "index"
	StageAnswer  Stage = "answer"
)

// StageError wraps a failure raised by a collaborator.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StageOf returns the failing stage if err carries one.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
