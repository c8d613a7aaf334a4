// Package server exposes scoring and profile compilation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/prospectiq/internal/profile"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/scoring"
	"github.com/spigell/prospectiq/internal/summary"
)

const (
	DefaultListen = ":8787"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Config holds the transport settings.
type Config struct {
	Listen string `mapstructure:"listen"`
}

// Deps are the collaborators behind the handlers.
type Deps struct {
	Compiler   *profile.Compiler
	Assessor   *scoring.Assessor
	Summarizer *summary.Summarizer
	// Quota guards the rule and blended scoring routes. Nil disables the guard.
	Quota *scoring.Quota
	Now   func() time.Time
}

type Server struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger

	blender *scoring.Blender
	quotaMu sync.Mutex
}

func New(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if deps.Compiler == nil {
		deps.Compiler = profile.NewCompiler(nil, logger)
	}
	if deps.Assessor == nil {
		deps.Assessor = scoring.NewAssessor(nil, logger)
	}
	if deps.Summarizer == nil {
		deps.Summarizer = summary.New(nil, logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		blender: scoring.NewBlender(deps.Assessor, logger),
	}
}

// Routes returns the router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Post("/score", s.handleScore)
	r.Post("/summarize", s.handleSummarize)

	r.Route("/api", func(r chi.Router) {
		r.Post("/compile_profile", s.handleCompileProfile)
		r.Post("/score", s.handleAIScore)
		r.Post("/score/blended", s.handleBlendedScore)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// allow consumes one unit of the quota.
func (s *Server) allow() bool {
	if s.deps.Quota == nil {
		return true
	}
	s.quotaMu.Lock()
	defer s.quotaMu.Unlock()
	return s.deps.Quota.Allow(s.deps.Now())
}

func rateLimited() prospect.ScoreResult {
	return prospect.ScoreResult{Score: 0, Reasons: []string{scoring.RateLimitReason}}
}
