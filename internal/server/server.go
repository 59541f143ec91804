// Пакет server — HTTP-сервер API-ETL с graceful shutdown.
// Без TLS: TLS termination на балансировщике.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/F-Elotlan-M/API-ETL/internal/api/handlers"
	"github.com/F-Elotlan-M/API-ETL/internal/api/middleware"
	"github.com/F-Elotlan-M/API-ETL/internal/config"
	"github.com/F-Elotlan-M/API-ETL/internal/domain/rbac"
)

// Server — HTTP-сервер API-ETL.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, tokenAuth *middleware.TokenAuth) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(logger, handler, tokenAuth),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты API-ETL.
//
// Публичные: health, metrics, вход и приём отчётов от ETL.
// Остальные требуют Bearer-токен, часть из них ограничена ролью.
func NewRouter(logger *slog.Logger, h *handlers.APIHandler, tokenAuth *middleware.TokenAuth) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Health и metrics проверяются Kubernetes напрямую
	router.Get("/health/live", h.HealthLive)
	router.Get("/health/ready", h.HealthReady)
	router.Get("/metrics", h.GetMetrics)

	router.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Post("/reportes/procesamiento", h.IngestProcessing)
		r.Post("/reportes/archivo", h.IngestFile)
		r.Post("/reportes/alerta", h.IngestAlert)

		r.Group(func(r chi.Router) {
			r.Use(tokenAuth.Middleware())

			r.Get("/auth/me", h.Me)
			r.Post("/reportes/{id}/acuse", h.AcknowledgeReport)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(rbac.RoleAdministrator, rbac.RoleConsultant))
				r.Get("/reportes/hoy", h.ListReportsToday)
				r.Get("/reportes/por-fecha", h.ListReportsByDate)
				r.Get("/reportes/criticos/pendientes", h.ListPendingCritical)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(rbac.RoleAdministrator))
				r.Get("/etls", h.ListETLs)
				r.Post("/usuarios", h.CreateUser)
				r.Get("/usuarios", h.ListUsers)
				r.Get("/usuarios/{id}/permisos", h.GetUserPermissions)
				r.Put("/usuarios/{id}/permisos", h.ReplaceUserPermissions)
			})
		})
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
