// Package web serves the price dashboard and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"AssetDash/internal/model"
	"AssetDash/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Service is what the handlers need from the cache orchestrator.
type Service interface {
	GetSeries(ctx context.Context, symbol string, rng model.DateRange, refresh bool) (*model.SeriesResult, error)
	Cached(ctx context.Context, symbol string, rng model.DateRange) (*model.SeriesResult, error)
	Recent(ctx context.Context, symbol string, n int, refresh bool) (*model.SeriesResult, error)
	CachedRecent(ctx context.Context, symbol string, n int) (*model.SeriesResult, error)
	Stats(ctx context.Context) ([]store.SymbolStats, error)
	Today() time.Time
}

// Server holds the router and its dependencies.
type Server struct {
	svc    Service
	assets []model.Asset
	router *mux.Router
	tmpl   *template.Template
}

// New builds a Server for the configured assets.
func New(svc Service, assets []model.Asset) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{svc: svc, assets: assets, router: mux.NewRouter(), tmpl: tmpl}
	s.setupMiddlewares()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddlewares() {
	s.router.Use(Recovery)
	s.router.Use(RequestID)
	s.router.Use(Logging("/api/health", "/favicon.ico"))
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/api/prices", s.handlePrices).Methods(http.MethodGet)
	s.router.HandleFunc("/api/prices.csv", s.handlePricesCSV).Methods(http.MethodGet)
	s.router.HandleFunc("/api/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "no such route")
	})
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute, // a cold 1y load fetches every asset
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("web server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutdown signal received, stopping web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
