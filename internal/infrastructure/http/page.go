package http

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// Page texts.
const (
	msgProcessed   = "PDF content indexed successfully!"
	msgNoDocuments = "Please upload at least one file."
	msgNoIndex     = "No index yet: upload and process PDFs first."
	msgAnswer      = "Answer:"
	msgErrorPrefix = "Something went wrong: "
)

type bannerKind string

const (
	bannerSuccess bannerKind = "success"
	bannerWarning bannerKind = "warning"
	bannerInfo    bannerKind = "info"
	bannerError   bannerKind = "error"
)

type banner struct {
	Kind    bannerKind
	Message string
}

// pageData is everything index.html renders.
type pageData struct {
	Question     string
	QuestionNote *banner
	Answer       *entities.Answer
	UploadNote   *banner
	Report       *entities.ProcessReport
	Status       entities.IndexStatus
	MaxUploadMB  int64
}

var templateFuncs = template.FuncMap{
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
	"excerpt": excerpt,
	"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"ms":      func(d time.Duration) int64 { return d.Milliseconds() },
}

// excerpt collapses whitespace and cuts s to at most n runes.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// bannerFor maps an action error to what the page shows. A nil banner means nothing is shown.
func bannerFor(err error) *banner {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, entities.ErrEmptyQuestion):
		return nil
	case errors.Is(err, entities.ErrNoDocuments):
		return &banner{Kind: bannerWarning, Message: msgNoDocuments}
	case errors.Is(err, entities.ErrIndexNotReady):
		return &banner{Kind: bannerInfo, Message: msgNoIndex}
	default:
		return &banner{Kind: bannerError, Message: msgErrorPrefix + err.Error()}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, &pageData{})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	data := &pageData{}

	docs, err := readUploads(w, r, s.cfg.MaxUploadBytes)
	if err == nil {
		start := time.Now()
		data.Report, err = s.chat.ProcessDocuments(r.Context(), docs)
		s.metrics.ObserveProcess(err, time.Since(start))
	}

	if err != nil {
		data.UploadNote = bannerFor(err)
		s.logActionError(r, "process", err)
	} else {
		data.UploadNote = &banner{Kind: bannerSuccess, Message: msgProcessed}
	}
	s.render(w, r, data)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Question: r.FormValue("question")}

	start := time.Now()
	answer, err := s.chat.AskQuestion(r.Context(), data.Question)
	if !errors.Is(err, entities.ErrEmptyQuestion) {
		s.metrics.ObserveQuestion(answer, err, time.Since(start))
	}

	if err != nil {
		data.QuestionNote = bannerFor(err)
		s.logActionError(r, "ask", err)
	} else {
		data.Answer = answer
		data.QuestionNote = &banner{Kind: bannerSuccess, Message: msgAnswer}
	}
	s.render(w, r, data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, data *pageData) {
	status, err := s.chat.IndexStatus(r.Context())
	if err != nil {
		s.logger.Warn("index status unavailable", zap.Error(err))
	}
	data.Status = status
	data.MaxUploadMB = s.cfg.MaxUploadBytes >> 20

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.Error("rendering page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (s *Server) logActionError(r *http.Request, action string, err error) {
	if errors.Is(err, entities.ErrEmptyQuestion) {
		return
	}
	fields := []zap.Field{
		zap.String("action", action),
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.Error(err),
	}
	if stage, ok := entities.StageOf(err); ok {
		fields = append(fields, zap.String("stage", string(stage)))
		s.logger.Error("action failed", fields...)
		return
	}
	s.logger.Info("action rejected", fields...)
}
