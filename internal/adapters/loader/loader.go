// Package loader reads PDFs from disk into uploads.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// FileLoader implements ports.DocumentLoader for files with the given extensions.
type FileLoader struct {
	extensions []string
	maxBytes   int64
}

// NewFileLoader creates a loader. Extensions default to ".pdf"; maxBytes <= 0 means no limit.
func NewFileLoader(extensions []string, maxBytes int64) *FileLoader {
	if len(extensions) == 0 {
		extensions = []string{".pdf"}
	}
	lower := make([]string, len(extensions))
	for i, e := range extensions {
		lower[i] = strings.ToLower(e)
	}
	return &FileLoader{extensions: lower, maxBytes: maxBytes}
}

// Load reads a single document from the given path.
func (l *FileLoader) Load(ctx context.Context, path string) (*entities.UploadedDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var r io.Reader = file
	if l.maxBytes > 0 {
		r = io.LimitReader(file, l.maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if l.maxBytes > 0 && int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%s exceeds the %d byte limit", filepath.Base(path), l.maxBytes)
	}

	return &entities.UploadedDocument{
		ID:   uuid.NewString(),
		Name: filepath.Base(path),
		Data: data,
	}, nil
}

// LoadDir loads every supported file directly inside dir, sorted by name.
func (l *FileLoader) LoadDir(ctx context.Context, dir string) ([]entities.UploadedDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && l.Supports(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([]entities.UploadedDocument, 0, len(names))
	for _, name := range names {
		doc, err := l.Load(ctx, filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// Supports reports whether the file name has a handled extension.
func (l *FileLoader) Supports(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range l.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// SupportedExtensions returns file extensions this loader handles.
func (l *FileLoader) SupportedExtensions() []string {
	return l.extensions
}
