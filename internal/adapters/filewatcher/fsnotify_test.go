package filewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

const testSettle = 50 * time.Millisecond

func TestFSNotifyWatcher_DefaultExtensions(t *testing.T) {
	watcher, err := NewFSNotifyWatcher(nil, 0, nil)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	defer watcher.Stop()

	if len(watcher.extensions) != 1 || watcher.extensions[0] != ".pdf" {
		t.Errorf("expected .pdf default, got %v", watcher.extensions)
	}
	if watcher.settle != DefaultSettle {
		t.Errorf("expected default settle, got %v", watcher.settle)
	}
}

func TestFSNotifyWatcher_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")

	watcher, _ := NewFSNotifyWatcher(nil, testSettle, nil)
	defer watcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := watcher.Watch(ctx, dir); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("inbox directory should exist: %v", err)
	}
}

func TestFSNotifyWatcher_CoalescesWrites(t *testing.T) {
	dir := t.TempDir()

	watcher, _ := NewFSNotifyWatcher([]string{".PDF"}, testSettle, nil)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	path := filepath.Join(dir, "report.pdf")
	go func() {
		time.Sleep(100 * time.Millisecond)
		f, _ := os.Create(path)
		for i := 0; i < 5; i++ {
			f.Write([]byte("%PDF-1.4\n"))
			f.Sync()
		}
		f.Close()
	}()

	select {
	case event := <-events:
		if event.Operation != ports.FileCreated {
			t.Errorf("expected create event, got %v", event.Operation)
		}
		if event.Path != path {
			t.Errorf("unexpected path: %s", event.Path)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for event")
	}

	select {
	case extra := <-events:
		t.Errorf("writes should be coalesced, got extra %+v", extra)
	case <-time.After(4 * testSettle):
	}
}

func TestFSNotifyWatcher_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()

	watcher, _ := NewFSNotifyWatcher(nil, testSettle, nil)
	defer watcher.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	events, _ := watcher.Watch(ctx, dir)

	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644)

	select {
	case <-events:
		t.Error("should not receive event for .txt")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestFSNotifyWatcher_Stop(t *testing.T) {
	watcher, _ := NewFSNotifyWatcher(nil, 0, nil)
	if err := watcher.Stop(); err != nil {
		t.Errorf("stop failed: %v", err)
	}
}
