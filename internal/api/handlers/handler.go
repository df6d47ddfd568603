// handler.go — основной обработчик API Contract Review.
// Объединяет сервисы и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/contractflow/internal/api/errors"
	"github.com/bigkaa/contractflow/internal/service"
)

// APIHandler — основной обработчик API Contract Review.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health        *HealthHandler
	workflows     *service.WorkflowService
	dashboard     *service.DashboardService
	notifications *service.NotificationService
	settings      *service.SettingsService
	roles         *service.RoleService
	reminders     *service.ReminderService
	logger        *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	workflows *service.WorkflowService,
	dashboard *service.DashboardService,
	notifications *service.NotificationService,
	settings *service.SettingsService,
	roles *service.RoleService,
	reminders *service.ReminderService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:        health,
		workflows:     workflows,
		dashboard:     dashboard,
		notifications: notifications,
		settings:      settings,
		roles:         roles,
		reminders:     reminders,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// handleError преобразует ошибку сервисного слоя в HTTP-ответ:
// ErrValidation — 400, ErrNotFound — 404, ErrPermissionDenied — 403,
// остальное — 500 с записью в лог.
func (h *APIHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Ресурс не найден")
	case errors.Is(err, service.ErrPermissionDenied):
		apierrors.Forbidden(w, "Недостаточно прав для выполнения операции")
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
