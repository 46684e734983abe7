// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over HTTP: document upload, run
// status, run results, and a parse endpoint for raw model output.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/pkg/types"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
var shutdownTimeout = 10 * time.Second

// Runner runs one document through the pipeline. *pipeline.Pipeline
// satisfies it.
type Runner interface {
	Run(ctx context.Context, rc *pipeline.RunContext) (types.RunResult, error)
}

// Server handles HTTP requests and runs uploaded documents in the
// background, at most cfg.Serve.MaxConcurrentRuns at a time.
type Server struct {
	cfg    types.PipelineConfig
	runner Runner
	status *pipeline.StatusStore
	logger *zap.Logger
	now    func() time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// runCtx is cancelled on shutdown to stop background runs.
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// New returns a Server. Missing serve settings take their defaults.
func New(cfg types.PipelineConfig, runner Runner, status *pipeline.StatusStore, logger *zap.Logger) *Server {
	def := types.DefaultPipelineConfig().Serve
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = def.Addr
	}
	if cfg.Serve.UploadDir == "" {
		cfg.Serve.UploadDir = def.UploadDir
	}
	if cfg.Serve.MaxUploadBytes <= 0 {
		cfg.Serve.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.Serve.MaxConcurrentRuns <= 0 {
		cfg.Serve.MaxConcurrentRuns = def.MaxConcurrentRuns
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		runner:    runner,
		status:    status,
		logger:    logger,
		now:       time.Now,
		sem:       semaphore.NewWeighted(int64(cfg.Serve.MaxConcurrentRuns)),
		runCtx:    ctx,
		cancelRun: cancel,
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /status/{id}", s.handleStatus)
	mux.HandleFunc("GET /results/{id}", s.handleResults)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("POST /parse", s.handleParse)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.logRequests(mux)
}

// ListenAndServe listens on cfg.Serve.Addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Serve.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Serve.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down:
// in-flight requests get shutdownTimeout to finish, background runs are
// cancelled, and Serve returns once they have stopped.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("shutting down HTTP server: %w", err)
	}
	<-errCh

	s.Close()
	if serveErr != nil {
		return fmt.Errorf("HTTP server error: %w", serveErr)
	}
	return nil
}

// Close cancels background runs and waits for them to stop.
func (s *Server) Close() {
	s.cancelRun()
	s.wg.Wait()
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// start runs rc in the background once a run slot is free.
func (s *Server) start(rc *pipeline.RunContext) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(s.runCtx, 1); err != nil {
			_ = s.status.Fail(rc.ID, fmt.Errorf("run not started: %w", err))
			return
		}
		defer s.sem.Release(1)

		if _, err := s.runner.Run(s.runCtx, rc); err != nil {
			s.logger.Warn("background run failed", zap.String("run", rc.ID), zap.Error(err))
		}
	}()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}
