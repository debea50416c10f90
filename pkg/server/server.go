// Package server exposes the query engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/japaniel/primeword/pkg/anagram"
	"github.com/japaniel/primeword/pkg/config"
	"github.com/japaniel/primeword/pkg/metrics"
)

// Querier answers anagram queries. *anagram.Engine implements it.
type Querier interface {
	Query(ctx context.Context, raw string) (*anagram.Result, error)
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// Metrics, when set, is served on /metrics and fed by the request middleware.
	Metrics *metrics.Metrics
	// Ready reports whether the word data is usable. nil means always ready.
	Ready  func() bool
	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg     config.ServerConfig
	router  *gin.Engine
	querier Querier
	opts    Options
	logger  *slog.Logger
}

// New builds the router for q.
func New(q Querier, cfg config.ServerConfig, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		querier: q,
		opts:    opts,
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(gin.Recovery(), requestID(), s.observe())

	r.GET("/api/check", s.handleCheck)
	r.GET("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.opts.Metrics.Handler()))
	}
	if s.cfg.StaticDir != "" {
		r.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.cfg.StaticDir))))
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
