// Package server exposes dataset sessions over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KaramelBytes/csvscope-cli/internal/analysis"
	"github.com/KaramelBytes/csvscope-cli/internal/history"
	"github.com/KaramelBytes/csvscope-cli/internal/ingest"
	"github.com/KaramelBytes/csvscope-cli/internal/logging"
	"github.com/KaramelBytes/csvscope-cli/internal/quality"
)

const (
	shutdownWait = 5 * time.Second
	// multipartOverhead is allowed on top of the file size limit for form framing.
	multipartOverhead = 1 << 20
)

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	Ingest         ingest.Options
	Clean          analysis.CleanOptions
	// History, when set, records runs of the one-shot scoring endpoint.
	History *history.Store
}

// Server handles the HTTP API. All per-upload state lives in sessions.
type Server struct {
	store  *SessionStore
	scorer *quality.CachedScorer
	opt    Options
	log    *slog.Logger
}

func New(store *SessionStore, scorer *quality.CachedScorer, opt Options) *Server {
	if opt.MaxUploadBytes <= 0 {
		opt.MaxUploadBytes = ingest.DefaultMaxFileSize
	}
	return &Server{store: store, scorer: scorer, opt: opt, log: logging.New("server")}
}

// Routes returns the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Get("/history", s.handleHistory)
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Get("/summary", s.handleSummary)
				r.Get("/quality", s.handleQuality)
				r.Get("/insights", s.handleInsights)
				r.Get("/correlations", s.handleCorrelations)
				r.Get("/charts", s.handleListCharts)
				r.Post("/charts", s.handleAddChart)
				r.Delete("/charts/{chartID}", s.handleDeleteChart)
				r.Get("/report.pdf", s.handleReport)
			})
		})
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

// SweepEvery drops expired sessions on each tick until ctx is cancelled.
func (s *Server) SweepEvery(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := s.store.Sweep(); n > 0 {
				s.log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// writeJSON encodes v before writing the status so an encoding failure can
// still be reported as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response could not be encoded"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
