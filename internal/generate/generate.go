// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate sends prompts to a language-model backend with request
// spacing and retries. Backends exist for Gemini, OpenAI-compatible
// servers, and Claude.
package generate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/chronos/pkg/types"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// backoffBase is the first backoff wait for errors that are not rate
// limits. Tests override it to avoid real sleeps.
var backoffBase = 2 * time.Second

// Image is inline binary content sent alongside a prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is one generation call.
type Request struct {
	// Step names the call for logs and errors (e.g. "phase1.brainstorm").
	Step string

	System      string
	Prompt      string
	Images      []Image
	Temperature float32

	// MaxTokens bounds the response; 0 uses the configured default.
	MaxTokens int
}

// Backend abstracts the model API so tests can supply a mock.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Stats counts calls made through a Generator.
type Stats struct {
	Requests    int `json:"requests" yaml:"requests"`
	Retries     int `json:"retries" yaml:"retries"`
	RateLimited int `json:"rate_limited" yaml:"rate_limited"`
	Failures    int `json:"failures" yaml:"failures"`
}

// Generator wraps a Backend with request spacing and retries.
type Generator struct {
	backend Backend
	limiter *rate.Limiter
	cfg     types.AIConfig
	logger  *zap.Logger

	mu    sync.Mutex
	stats Stats
}

// NewGenerator returns a Generator. Requests are spaced at least
// cfg.BaseDelay apart; failures are retried cfg.MaxRetries times.
func NewGenerator(backend Backend, cfg types.AIConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Minute
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 8192
	}

	limit := rate.Inf
	if cfg.BaseDelay > 0 {
		limit = rate.Every(cfg.BaseDelay)
	}

	return &Generator{
		backend: backend,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		logger:  logger,
	}
}

// Generate sends req and returns the response text. Rate-limit errors wait
// for the server-suggested delay when one is given; other errors back off
// exponentially with jitter. The whole call is bounded by cfg.TotalTimeout.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if g.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.TotalTimeout)
		defer cancel()
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = g.cfg.MaxOutputTokens
	}

	log := g.logger.With(zap.String("step", req.Step))
	start := time.Now()

	var text string
	err := retry.Do(
		func() error {
			if err := g.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			g.update(func(s *Stats) { s.Requests++ })

			out, err := g.backend.Generate(ctx, req)
			if err != nil {
				return err
			}
			if strings.TrimSpace(out) == "" {
				return ErrEmptyResponse
			}
			text = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(g.cfg.MaxRetries)+1),
		retry.DelayType(g.delay),
		retry.RetryIf(Retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			limited := IsRateLimit(err)
			g.update(func(s *Stats) {
				s.Retries++
				if limited {
					s.RateLimited++
				}
			})
			log.Warn("generation failed, retrying",
				zap.Uint("attempt", n+1),
				zap.Int("max_retries", g.cfg.MaxRetries),
				zap.Bool("rate_limited", limited),
				zap.Error(err))
		}),
	)
	if err != nil {
		g.update(func(s *Stats) { s.Failures++ })
		return "", fmt.Errorf("%s: %w", req.Step, err)
	}

	log.Debug("generation complete",
		zap.Int("prompt_chars", len(req.Prompt)),
		zap.Int("response_chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

// delay picks the wait before retry n+1.
func (g *Generator) delay(n uint, err error, _ *retry.Config) time.Duration {
	var d time.Duration
	if IsRateLimit(err) {
		d = SuggestedDelay(err)
		if d < g.cfg.BaseDelay {
			d = g.cfg.BaseDelay
		}
	}
	if d == 0 {
		d = backoffBase << min(n, 16)
		if half := int64(d / 2); half > 0 {
			d += time.Duration(rand.Int64N(half))
		}
	}
	return min(d, g.cfg.MaxDelay)
}

// Stats returns a copy of the call counters.
func (g *Generator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

func (g *Generator) update(fn func(*Stats)) {
	g.mu.Lock()
	fn(&g.stats)
	g.mu.Unlock()
}
