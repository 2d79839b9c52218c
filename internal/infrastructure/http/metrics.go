package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// Metrics holds the Prometheus collectors for the two user actions.
// Each Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry       *prometheus.Registry
	processTotal   *prometheus.CounterVec
	questionsTotal *prometheus.CounterVec
	duration       *prometheus.HistogramVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		processTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdfchat_process_total",
			Help: "Process actions by outcome.",
		}, []string{"outcome"}),
		questionsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "pdfchat_questions_total",
			Help: "Questions by outcome.",
		}, []string{"outcome"}),
		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdfchat_request_duration_seconds",
			Help:    "Duration of process and ask actions.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"action"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveProcess records one process action.
func (m *Metrics) ObserveProcess(err error, took time.Duration) {
	m.processTotal.WithLabelValues(outcome(err)).Inc()
	m.duration.WithLabelValues("process").Observe(took.Seconds())
}

// ObserveQuestion records one question. Cache hits are counted separately.
func (m *Metrics) ObserveQuestion(answer *entities.Answer, err error, took time.Duration) {
	label := outcome(err)
	if err == nil && answer != nil && answer.Cached {
		label = "cached"
	}
	m.questionsTotal.WithLabelValues(label).Inc()
	m.duration.WithLabelValues("ask").Observe(took.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, entities.ErrNoDocuments):
		return "no_documents"
	case errors.Is(err, entities.ErrEmptyQuestion):
		return "empty"
	case errors.Is(err, entities.ErrIndexNotReady):
		return "no_index"
	default:
		if stage, ok := entities.StageOf(err); ok {
			return string(stage) + "_error"
		}
		return "error"
	}
}
