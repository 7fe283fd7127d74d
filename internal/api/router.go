package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mythic3011/AED-Api/internal/api/handlers/http/aeds"
	"github.com/mythic3011/AED-Api/internal/api/handlers/http/reports"
	"github.com/mythic3011/AED-Api/internal/api/handlers/http/system"
	"github.com/mythic3011/AED-Api/internal/config"
	"github.com/mythic3011/AED-Api/internal/middleware"
	"github.com/mythic3011/AED-Api/internal/service"
)

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	svc *service.Service,
	registry *prometheus.Registry,
	checks map[string]system.Check,
) *Server {
	aedsHandler := aeds.NewHandler(logger, svc.Aeds, svc.Reports)
	reportsHandler := reports.NewHandler(logger, svc.Reports)
	systemHandler := system.NewHandler(logger, svc.Stats, svc.Refresh, checks)

	r := InitRouter(cfg, aedsHandler, reportsHandler, systemHandler, registry, logger)

	return &Server{
		logger: logger,
		router: r,
		cfg:    *cfg,
	}
}

func InitRouter(
	cfg *config.Config,
	aedsHandler *aeds.Handler,
	reportsHandler *reports.Handler,
	systemHandler *system.Handler,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)

	r.Route("/api/v1", func(api chi.Router) {
		// PUBLIC locator queries
		api.Route("/aeds", func(ar chi.Router) {
			ar.Use(middleware.Limit(20, 40, 5*time.Minute, logger))

			ar.Get("/nearby", aedsHandler.Nearby)
			ar.Get("/sorted-by-location", aedsHandler.SortedByLocation)
			ar.Get("/", aedsHandler.List)

			ar.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", aedsHandler.Get)
				ir.Post("/report", aedsHandler.CreateReport)
				ir.Get("/reports", aedsHandler.ListReports)
			})
		})

		// REPORT review
		api.Route("/reports", func(rr chi.Router) {
			rr.Get("/", reportsHandler.List)
			rr.Get("/{id}", reportsHandler.Get)

			rr.With(
				middleware.APIKey(cfg.APIKey),
				middleware.Limit(5, 10, 10*time.Minute, logger),
			).Patch("/{id}/status", reportsHandler.UpdateStatus)
		})

		// ADMIN
		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.APIKey(cfg.APIKey))
			ar.Use(middleware.Limit(2, 5, 10*time.Minute, logger))

			ar.Post("/refresh", systemHandler.AdminRefresh)
		})

		// SYSTEM
		api.Get("/stats", systemHandler.SystemStats)
		api.Get("/health", systemHandler.Health)
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
