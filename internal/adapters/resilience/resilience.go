// Package resilience wraps the hosted model providers with a circuit breaker
// and an optional request rate limit.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/pdfchat/internal/domain/ports"
)

// Settings configures a Guard. Zero values pick the defaults below.
type Settings struct {
	// RequestsPerSecond limits calls to the provider; zero means unlimited.
	RequestsPerSecond float64
	Burst             int

	// MaxFailures consecutive failures open the breaker for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration
}

const (
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

// Guard runs provider calls through a rate limiter and a circuit breaker.
type Guard struct {
	name    string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewGuard creates a Guard named after the provider it protects.
func NewGuard(name string, s Settings, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = defaultMaxFailures
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = defaultOpenTimeout
	}

	limit := rate.Inf
	if s.RequestsPerSecond > 0 {
		limit = rate.Limit(s.RequestsPerSecond)
		if s.Burst <= 0 {
			s.Burst = 1
		}
	}

	log := logger.Named("resilience").With(zap.String("provider", name))
	maxFailures := s.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the provider
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Guard{
		name:    name,
		breaker: breaker,
		limiter: rate.NewLimiter(limit, s.Burst),
	}
}

// Do waits for a rate-limit slot and runs fn unless the breaker is open.
func (g *Guard) Do(ctx context.Context, fn func() error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", g.name, err)
	}
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s unavailable: %w", g.name, err)
	}
	return err
}

// State reports the breaker state, e.g. "closed" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Embedder guards a ports.EmbeddingService.
type Embedder struct {
	next  ports.EmbeddingService
	guard *Guard
}

// NewEmbedder wraps next with guard.
func NewEmbedder(next ports.EmbeddingService, guard *Guard) *Embedder {
	return &Embedder{next: next, guard: guard}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.guard.Do(ctx, func() error {
		var err error
		out, err = e.next.Embed(ctx, text)
		return err
	})
	return out, err
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := e.guard.Do(ctx, func() error {
		var err error
		out, err = e.next.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// LLM guards a ports.LLMService.
type LLM struct {
	next  ports.LLMService
	guard *Guard
}

// NewLLM wraps next with guard.
func NewLLM(next ports.LLMService, guard *Guard) *LLM {
	return &LLM{next: next, guard: guard}
}

func (l *LLM) Generate(ctx context.Context, prompt string, contextParts []string) (string, error) {
	var out string
	err := l.guard.Do(ctx, func() error {
		var err error
		out, err = l.next.Generate(ctx, prompt, contextParts)
		return err
	})
	return out, err
}
