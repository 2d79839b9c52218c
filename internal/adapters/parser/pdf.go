// Package parser provides document parsing adapters.
// Clean Architecture: Adapter implementing ports.TextExtractor.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// PDFExtractor implements ports.TextExtractor on top of ledongthuc/pdf.
// Extraction happens in-process; no external service is required.
type PDFExtractor struct {
	logger *zap.Logger
}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor(logger *zap.Logger) *PDFExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFExtractor{logger: logger.Named("parser")}
}

// ExtractText concatenates the text of every page of every document, in upload order.
func (p *PDFExtractor) ExtractText(ctx context.Context, docs []entities.UploadedDocument) (string, error) {
	var sb strings.Builder
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := p.Parse(ctx, doc.Data, doc.Name)
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// Parse extracts the plain text of a single PDF. Pages that fail to decode
// or carry no text are skipped.
func (p *PDFExtractor) Parse(ctx context.Context, data []byte, filename string) (text string, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading %s: malformed PDF: %v", filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", filename, err)
	}

	var sb strings.Builder
	skipped := 0
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			skipped++
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Debug("skipping page", zap.String("file", filename), zap.Int("page", i), zap.Error(err))
			skipped++
			continue
		}
		if strings.TrimSpace(content) == "" {
			skipped++
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	p.logger.Debug("pdf parsed",
		zap.String("file", filename),
		zap.Int("pages", total),
		zap.Int("skipped", skipped),
		zap.Int("characters", sb.Len()))
	return sb.String(), nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFExtractor) SupportedFormats() []string {
	return []string{"pdf"}
}
