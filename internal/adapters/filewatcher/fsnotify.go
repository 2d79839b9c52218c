// Package filewatcher provides file system monitoring adapters.
// Clean Architecture: Adapter implementing ports.FileWatcher.
package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

// DefaultSettle is how long a file must stay quiet before its event is emitted.
// Copying a large PDF produces a create followed by many writes.
const DefaultSettle = 500 * time.Millisecond

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	settle     time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingEvent
}

type pendingEvent struct {
	op    ports.FileOperation
	timer *time.Timer
}

// NewFSNotifyWatcher creates a new file watcher. Extensions are matched
// case-insensitively and default to ".pdf".
func NewFSNotifyWatcher(extensions []string, settle time.Duration, logger *zap.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	for i, e := range extensions {
		extensions[i] = strings.ToLower(e)
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		settle:     settle,
		logger:     logger.Named("filewatcher"),
		pending:    make(map[string]*pendingEvent),
	}, nil
}

// Watch starts monitoring the directory, creating it if needed, and emits one
// event per file once it has settled.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}
	w.logger.Info("watching inbox", zap.String("dir", dir), zap.Strings("extensions", w.extensions))

	events := make(chan ports.FileEvent, 100)
	settled := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		defer w.cancelPending()
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-settled:
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Op&fsnotify.Create == fsnotify.Create:
					op = ports.FileCreated
				case event.Op&fsnotify.Write == fsnotify.Write:
					op = ports.FileModified
				case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					op = ports.FileDeleted
				default:
					continue
				}
				w.schedule(ctx, event.Name, op, settled)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}()

	return events, nil
}

// schedule (re)arms the settle timer for path. A create followed by writes is
// still reported as a create.
func (w *FSNotifyWatcher) schedule(ctx context.Context, path string, op ports.FileOperation, out chan<- ports.FileEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok && p.timer.Stop() {
		if !(p.op == ports.FileCreated && op == ports.FileModified) {
			p.op = op
		}
		p.timer.Reset(w.settle)
		return
	}

	p := &pendingEvent{op: op}
	p.timer = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		final := p.op
		if w.pending[path] == p {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		select {
		case out <- ports.FileEvent{Path: path, Operation: final}:
		case <-ctx.Done():
		}
	})
	w.pending[path] = p
}

func (w *FSNotifyWatcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}
