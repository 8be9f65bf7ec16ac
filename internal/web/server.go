// Package web serves the autolinking HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notelink/internal/autolink"
	"notelink/internal/config"
	"notelink/internal/index"
	"notelink/internal/mdtree"
	"notelink/internal/storage/fs"
)

type Options struct {
	Config config.Config
	// Index backs /api/names and is refreshed after note rewrites. When
	// Dictionary is nil the index also supplies the entity names.
	Index      *index.Index
	Dictionary autolink.Dictionary
	Logger     *slog.Logger
}

type Server struct {
	cfg    config.Config
	idx    *index.Index
	dict   autolink.Dictionary
	logger *slog.Logger
	locker *fs.Locker
	html   *mdtree.HTMLRenderer
	auth   *Auth
	router chi.Router

	// one preprocessor per case mode, keyed by CaseInsensitive
	linkers map[bool]*autolink.Preprocessor
}

func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dict := opts.Dictionary
	if dict == nil && opts.Index != nil {
		dict = opts.Index
	}
	if dict == nil {
		return nil, autolink.ErrNoDictionary
	}
	dict = autolink.FilterDictionary{Source: dict, Stop: cfg.StopNames, MinRunes: cfg.MinNameLength}

	a, err := newAuth(cfg.APIKeysFile)
	if err != nil {
		return nil, fmt.Errorf("load api keys: %w", err)
	}
	if a == nil {
		logger.Warn("api key auth disabled", "api_keys_file", cfg.APIKeysFile)
	}

	s := &Server{
		cfg:     cfg,
		idx:     opts.Index,
		dict:    dict,
		logger:  logger,
		locker:  fs.NewLocker(),
		html:    mdtree.NewHTMLRenderer(cfg.HighlightStyle),
		auth:    a,
		linkers: make(map[bool]*autolink.Preprocessor, 2),
	}
	model := mdtree.New()
	for _, ci := range []bool{false, true} {
		s.linkers[ci] = autolink.New(dict, autolink.Options{
			LinkScheme:      cfg.LinkScheme,
			CaseInsensitive: ci,
			Budget:          cfg.Budget,
			Workers:         cfg.Workers,
			Logger:          logger,
			TreeModel:       model,
		})
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(requestID, accessLog(s.logger))
	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Post("/autolink", s.handleAutolink)
		r.Post("/preview", s.handlePreview)
		r.Get("/names", s.handleNames)
		r.Post("/notes/*", s.handleNoteAutolink)
	})
	s.router = r
}

func (s *Server) linker(caseInsensitive *bool) *autolink.Preprocessor {
	ci := s.cfg.CaseInsensitive
	if caseInsensitive != nil {
		ci = *caseInsensitive
	}
	return s.linkers[ci]
}

// ListenAndServe serves until ctx is cancelled, then drains connections.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
