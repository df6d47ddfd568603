// Пакет server — HTTP-сервер Contract Review с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/contractflow/internal/api/handlers"
	"github.com/bigkaa/contractflow/internal/api/middleware"
	"github.com/bigkaa/contractflow/internal/config"
)

// Server — HTTP-сервер Contract Review.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// identity — middleware определения идентичности запроса.
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, identity *middleware.IdentityResolver) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Идентичность с исключениями для публичных endpoints.
	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	router.Use(identityWithExclusions(identity, "/health/", "/metrics"))

	// Health и метрики
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// Workflow
	router.Route("/api/workflows", func(r chi.Router) {
		r.Get("/", handler.ListWorkflows)
		r.Post("/", handler.CreateWorkflow)
		r.Get("/{id}", handler.GetWorkflow)
		r.Post("/{id}/documents", handler.AddWorkflowDocument)
		r.Put("/{id}/status", handler.UpdateWorkflowStatus)
		r.Put("/{id}/hold", handler.SetWorkflowHold)
	})

	// Решения по шагам согласования
	router.Post("/api/approvals/{id}/decide", handler.DecideStep)

	// Дашборд
	router.Route("/api/dashboard", func(r chi.Router) {
		r.Get("/summary", handler.GetDashboardSummary)
		r.Get("/pending", handler.GetDashboardPending)
		r.Get("/aging", handler.GetDashboardAging)
		r.Get("/correction-queue", handler.GetDashboardCorrectionQueue)
	})

	// Уведомления
	router.Get("/api/notifications", handler.ListNotifications)

	// Администрирование
	router.Route("/api/admin", func(r chi.Router) {
		r.Get("/settings", handler.GetSettings)
		r.Put("/settings", handler.UpdateSettings)
		r.Get("/roles", handler.ListRoles)
		r.Post("/roles", handler.CreateRole)
		r.Get("/user-roles", handler.ListUserRoles)
		r.Put("/user-roles", handler.UpdateUserRoles)
	})

	// Системные операции
	router.Post("/api/system/run-reminders", handler.RunReminders)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
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

// identityWithExclusions оборачивает IdentityResolver.Middleware(),
// пропуская указанные пути. Запросы к путям, начинающимся с любого
// из excludePrefixes, проходят без определения идентичности.
func identityWithExclusions(identity *middleware.IdentityResolver, excludePrefixes ...string) func(http.Handler) http.Handler {
	identityMiddleware := identity.Middleware()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Проверяем, начинается ли путь с исключённого префикса
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			identityMiddleware(next).ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
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

	// Ожидание сигнала завершения
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

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
