package usecases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

// InboxUseCase treats a watched folder as the staged document set: whenever
// a PDF in it is added, changed or removed, the whole folder is reprocessed.
type InboxUseCase struct {
	watcher   ports.FileWatcher
	loader    ports.DocumentLoader
	processor ports.DocumentProcessor
	dir       string
	logger    *zap.Logger
	onResult  func(*entities.ProcessReport, error)
}

// NewInboxUseCase creates an InboxUseCase. onResult may be nil.
func NewInboxUseCase(
	watcher ports.FileWatcher,
	loader ports.DocumentLoader,
	processor ports.DocumentProcessor,
	dir string,
	onResult func(*entities.ProcessReport, error),
	logger *zap.Logger,
) *InboxUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxUseCase{
		watcher:   watcher,
		loader:    loader,
		processor: processor,
		dir:       dir,
		logger:    logger.Named("inbox").With(zap.String("dir", dir)),
		onResult:  onResult,
	}
}

// Run processes the folder once, then again after every settled change,
// until ctx is cancelled or the watcher stops.
func (uc *InboxUseCase) Run(ctx context.Context) error {
	events, err := uc.watcher.Watch(ctx, uc.dir)
	if err != nil {
		return err
	}

	uc.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			uc.logger.Info("inbox changed", zap.String("file", ev.Path), zap.Int("op", int(ev.Operation)))
			uc.Sync(ctx)
		}
	}
}

// Sync loads every PDF in the folder and processes them as one upload.
// An empty folder leaves the current index untouched.
func (uc *InboxUseCase) Sync(ctx context.Context) {
	start := time.Now()
	docs, err := uc.loader.LoadDir(ctx, uc.dir)
	if err != nil {
		uc.logger.Error("loading inbox failed", zap.Error(err))
		uc.report(nil, err)
		return
	}
	if len(docs) == 0 {
		uc.logger.Debug("inbox empty, index unchanged")
		return
	}

	report, err := uc.processor.ProcessDocuments(ctx, docs)
	if err != nil {
		uc.logger.Error("processing inbox failed", zap.Error(err))
		uc.report(nil, err)
		return
	}
	uc.logger.Info("inbox processed",
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Duration("took", time.Since(start)))
	uc.report(report, nil)
}

func (uc *InboxUseCase) report(r *entities.ProcessReport, err error) {
	if uc.onResult != nil {
		uc.onResult(r, err)
	}
}
