package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// uploadField is the multipart field the page's file input posts.
const uploadField = "pdf_docs"

// multipartMemory is how much of an upload is buffered in memory before spilling to temp files.
const multipartMemory = 32 << 20

var errUploadTooLarge = errors.New("upload too large")

// readUploads stages every file posted under uploadField. Empty parts, which
// browsers send when no file was picked, are ignored. No type validation is done.
func readUploads(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]entities.UploadedDocument, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: limit is %d MB", errUploadTooLarge, maxBytes>>20)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	docs := make([]entities.UploadedDocument, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", fh.Filename, err)
		}
		docs = append(docs, entities.UploadedDocument{
			ID:   uuid.NewString(),
			Name: fh.Filename,
			Data: data,
		})
	}
	return docs, nil
}
