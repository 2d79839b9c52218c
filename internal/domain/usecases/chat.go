// Package usecases - chat.go drives the two user actions: process uploads and ask a question.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

// ChatUseCase wires the collaborators behind the upload form and the question box.
// Every collaborator call goes through the same error boundary, so a failing
// stage is reported as a *entities.StageError instead of escaping the request.
type ChatUseCase struct {
	extractor ports.TextExtractor
	chunker   ports.TextChunker
	builder   ports.IndexBuilder
	inspector ports.IndexInspector
	handler   ports.QueryHandler
	logger    *zap.Logger

	// builds are serialized; questions only read the index
	buildMu sync.Mutex
}

// NewChatUseCase creates a ChatUseCase. inspector may be nil, in which case
// questions are forwarded without checking for an index first.
func NewChatUseCase(
	extractor ports.TextExtractor,
	chunker ports.TextChunker,
	builder ports.IndexBuilder,
	inspector ports.IndexInspector,
	handler ports.QueryHandler,
	logger *zap.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatUseCase{
		extractor: extractor,
		chunker:   chunker,
		builder:   builder,
		inspector: inspector,
		handler:   handler,
		logger:    logger.Named("chat"),
	}
}

// ProcessDocuments runs extraction, chunking and index build over the staged documents.
func (uc *ChatUseCase) ProcessDocuments(ctx context.Context, docs []entities.UploadedDocument) (*entities.ProcessReport, error) {
	if len(docs) == 0 {
		return nil, entities.ErrNoDocuments
	}

	uc.buildMu.Lock()
	defer uc.buildMu.Unlock()

	start := time.Now()
	log := uc.logger.With(zap.Int("documents", len(docs)))

	// 1. Extract
	var text string
	err := guard(entities.StageExtract, func() error {
		var err error
		text, err = uc.extractor.ExtractText(ctx, docs)
		return err
	})
	if err != nil {
		log.Error("processing failed", zap.Error(err))
		return nil, err
	}

	// 2. Chunk
	var chunks []entities.Chunk
	err = guard(entities.StageChunk, func() error {
		var err error
		chunks, err = uc.chunker.SplitText(ctx, text)
		return err
	})
	if err != nil {
		log.Error("processing failed", zap.Error(err))
		return nil, err
	}
	if len(chunks) == 0 {
		// nothing readable came out of the documents themselves
		err = &entities.StageError{Stage: entities.StageExtract, Err: entities.ErrNoText}
		log.Warn("processing failed", zap.Error(err))
		return nil, err
	}

	// 3. Build
	err = guard(entities.StageIndex, func() error {
		return uc.builder.Build(ctx, chunks)
	})
	if err != nil {
		log.Error("processing failed", zap.Error(err))
		return nil, err
	}

	report := &entities.ProcessReport{
		Documents:  len(docs),
		Characters: len(text),
		Chunks:     len(chunks),
		Duration:   time.Since(start),
	}
	log.Info("documents processed",
		zap.Int("characters", report.Characters),
		zap.Int("chunks", report.Chunks),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// AskQuestion forwards a non-empty question to the query handler.
func (uc *ChatUseCase) AskQuestion(ctx context.Context, question string) (*entities.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, entities.ErrEmptyQuestion
	}

	if uc.inspector != nil {
		status, err := uc.IndexStatus(ctx)
		if err != nil {
			return nil, err
		}
		if !status.Ready {
			return nil, entities.ErrIndexNotReady
		}
	}

	var answer *entities.Answer
	err := guard(entities.StageAnswer, func() error {
		a, err := uc.handler.Answer(ctx, question)
		if err != nil {
			return err
		}
		if a == nil {
			return errors.New("query handler returned no answer")
		}
		answer = a
		return nil
	})
	if err != nil {
		uc.logger.Warn("question failed", zap.Error(err))
		return nil, err
	}
	return answer, nil
}

// IndexStatus reports whether questions can be answered yet.
func (uc *ChatUseCase) IndexStatus(ctx context.Context) (entities.IndexStatus, error) {
	if uc.inspector == nil {
		return entities.IndexStatus{Ready: true}, nil
	}
	var status entities.IndexStatus
	err := guard(entities.StageAnswer, func() error {
		var err error
		status, err = uc.inspector.Status(ctx)
		return err
	})
	return status, err
}

// guard runs fn and turns a returned error or a panic into a *entities.StageError.
func guard(stage entities.Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &entities.StageError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &entities.StageError{Stage: stage, Err: ferr}
	}
	return nil
}
