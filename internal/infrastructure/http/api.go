package http

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

type processResponse struct {
	Documents  int   `json:"documents"`
	Characters int   `json:"characters"`
	Chunks     int   `json:"chunks"`
	DurationMS int64 `json:"duration_ms"`
}

type askRequest struct {
	Question string `json:"question"`
}

// sourceResponse locates a retrieved chunk. Uploads are indexed as one
// concatenated text, so chunks carry no per-file attribution.
type sourceResponse struct {
	Chunk   int     `json:"chunk"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

type askResponse struct {
	Answer  string           `json:"answer"`
	Cached  bool             `json:"cached"`
	Sources []sourceResponse `json:"sources"`
}

type statusResponse struct {
	Ready  bool `json:"ready"`
	Chunks int  `json:"chunks"`
}

// statusFor maps an action error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, entities.ErrNoDocuments), errors.Is(err, entities.ErrEmptyQuestion):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrIndexNotReady):
		return http.StatusConflict
	case errors.Is(err, entities.ErrNoText):
		return http.StatusUnprocessableEntity
	default:
		if _, ok := entities.StageOf(err); ok {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	}
}

func (s *Server) handleAPIProcess(w http.ResponseWriter, r *http.Request) {
	docs, err := readUploads(w, r, s.cfg.MaxUploadBytes)
	if err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	report, err := s.chat.ProcessDocuments(r.Context(), docs)
	s.metrics.ObserveProcess(err, time.Since(start))
	if err != nil {
		s.logActionError(r, "process", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Documents:  report.Documents,
		Characters: report.Characters,
		Chunks:     report.Chunks,
		DurationMS: report.Duration.Milliseconds(),
	})
}

func (s *Server) handleAPIAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt == "application/json" {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
	} else {
		req.Question = r.FormValue("question")
	}

	start := time.Now()
	answer, err := s.chat.AskQuestion(r.Context(), req.Question)
	s.metrics.ObserveQuestion(answer, err, time.Since(start))
	if err != nil {
		s.logActionError(r, "ask", err)
		s.writeError(w, err)
		return
	}

	resp := askResponse{
		Answer:  answer.Text,
		Cached:  answer.Cached,
		Sources: make([]sourceResponse, 0, len(answer.Sources)),
	}
	for _, src := range answer.Sources {
		resp.Sources = append(resp.Sources, sourceResponse{
			Chunk:   src.Chunk.Index,
			Score:   src.Score,
			Excerpt: excerpt(src.Chunk.Content, 200),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.chat.IndexStatus(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Ready: status.Ready, Chunks: status.Chunks})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	if stage, ok := entities.StageOf(err); ok {
		resp.Stage = string(stage)
	}
	writeJSON(w, statusFor(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
