// Package api exposes capture sessions over HTTP so a browser or another
// process can drive the same dialog the terminal uses.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/spice-capture/internal/capture"
	"github.com/Veraticus/spice-capture/internal/media"
	"github.com/Veraticus/spice-capture/internal/metrics"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/Veraticus/spice-capture/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultSessionTTL        = 30 * time.Minute
	DefaultMaxRecordingBytes = 25 << 20
	DefaultMaxImageBytes     = 10 << 20
	shutdownTimeout          = 10 * time.Second
)

// TransactionStore is the part of the record store the API reads.
type TransactionStore interface {
	Get(ctx context.Context, id string) (model.StoredTransaction, error)
	List(ctx context.Context, ownerID string, filter storage.Filter) ([]model.StoredTransaction, error)
	Delete(ctx context.Context, id string) error
	Totals(ctx context.Context, ownerID string, filter storage.Filter) (income, expense decimal.Decimal, err error)
}

// Config controls the server.
type Config struct {
	Addr              string
	OwnerID           string
	SessionTTL        time.Duration
	RateLimit         float64
	RateBurst         int
	MaxRecordingBytes int64
	MaxImageBytes     int64
}

// Deps are the collaborators shared by every session. Metrics may be nil.
type Deps struct {
	Classifier capture.Classifier
	Finalizer  capture.Finalizer
	Store      TransactionStore
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Server serves the capture API.
type Server struct {
	deps     Deps
	router   chi.Router
	sessions *sessionRegistry
	metrics  *metrics.Metrics
	logger   *slog.Logger
	cfg      Config
}

// NewServer builds the router. Call Close to release open sessions.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.MaxRecordingBytes <= 0 {
		cfg.MaxRecordingBytes = DefaultMaxRecordingBytes
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		deps:     deps,
		cfg:      cfg,
		metrics:  deps.Metrics,
		logger:   deps.Logger.With("component", "api"),
		sessions: newSessionRegistry(cfg.SessionTTL, deps.Metrics, deps.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	if s.metrics != nil {
		r.Use(s.instrument)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			burst := s.cfg.RateBurst
			if burst <= 0 {
				burst = 1
			}
			r.Use(rateLimit(rate.NewLimiter(rate.Limit(s.cfg.RateLimit), burst)))
		}

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleCloseSession)
			r.Put("/mode", s.handleSelectMode)
			r.Post("/text", s.handleText)
			r.Post("/audio", s.handleAudio)
			r.Post("/photo", s.handlePhoto)
			r.Patch("/manual", s.handleManual)
			r.Post("/confirm", s.handleConfirm)
			r.Post("/reset", s.handleReset)
		})

		r.Get("/transactions", s.handleListTransactions)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully and closes every open session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("capture API listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down capture API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close closes every open session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

// OpenSessions reports how many sessions are open.
func (s *Server) OpenSessions() int {
	return s.sessions.count()
}

func (s *Server) newSession() *sessionEntry {
	mic := &uploadMicrophone{}
	var observer capture.Observer
	if s.metrics != nil {
		observer = s.metrics
	}
	session := capture.New(capture.Deps{
		Classifier: s.deps.Classifier,
		Recorder:   media.NewAudioRecorder(mic, media.WithMaxRecordingBytes(s.cfg.MaxRecordingBytes)),
		Finalizer:  s.deps.Finalizer,
		Observer:   observer,
		Logger:     s.deps.Logger,
	})
	return &sessionEntry{session: session, mic: mic}
}
