// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// ChatService is what the server needs from the orchestration layer.
type ChatService interface {
	ProcessDocuments(ctx context.Context, docs []entities.UploadedDocument) (*entities.ProcessReport, error)
	AskQuestion(ctx context.Context, question string) (*entities.Answer, error)
	IndexStatus(ctx context.Context) (entities.IndexStatus, error)
}

// Config holds listener settings.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// Server is the HTTP server for the chat page and JSON API.
type Server struct {
	chat      ChatService
	metrics   *Metrics
	templates *template.Template
	cfg       Config
	logger    *zap.Logger
	router    *mux.Router
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(chat ChatService, metrics *Metrics, cfg Config, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 << 20
	}

	s := &Server{
		chat:      chat,
		metrics:   metrics,
		templates: tmpl,
		cfg:       cfg,
		logger:    logger.Named("http"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, s.recoveryMiddleware, s.loggingMiddleware, corsMiddleware)

	// Static files
	staticContent, _ := fs.Sub(staticFS, "static")
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	// UI
	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	router.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)

	// API
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/process", s.handleAPIProcess).Methods(http.MethodPost)
	api.HandleFunc("/ask", s.handleAPIAsk).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleAPIStatus).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	// CORS preflight
	router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return router
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled, then drains for up to 5s.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	s.logger.Info("pdfchat server starting", zap.String("addr", s.cfg.Addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("pdfchat server stopped")
	return nil
}
