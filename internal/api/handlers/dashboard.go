// dashboard.go — обработчики /api/dashboard endpoints.
// Сводка, ожидающие решения, старение, очередь исправлений.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/contractflow/internal/api/middleware"
)

// dashboardSummaryResponse — счётчики дашборда.
type dashboardSummaryResponse struct {
	WorkflowsInProcess int `json:"workflows_in_process"`
	PendingApprovals   int `json:"pending_approvals"`
	CorrectionQueue    int `json:"correction_queue"`
}

// pendingStepResponse — ожидающий решения шаг.
type pendingStepResponse struct {
	StepID       string     `json:"step_id"`
	WorkflowID   string     `json:"workflow_id"`
	Title        string     `json:"title"`
	RequiredRole string     `json:"required_role"`
	AssignedTo   *string    `json:"assigned_to,omitempty"`
	AssignedDate *time.Time `json:"assigned_date,omitempty"`
}

// agingItemResponse — workflow, пересёкший порог старения.
type agingItemResponse struct {
	WorkflowID    string `json:"workflow_id"`
	Title         string `json:"title"`
	Status        string `json:"status"`
	DaysOpen      int    `json:"days_open"`
	ReminderLevel int    `json:"reminder_level"`
}

// correctionItemResponse — элемент очереди исправлений.
type correctionItemResponse struct {
	WorkflowID  string    `json:"workflow_id"`
	Title       string    `json:"title"`
	UpdatedDate time.Time `json:"updated_date"`
}

// GetDashboardSummary — GET /api/dashboard/summary.
func (h *APIHandler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	summary, err := h.dashboard.Summary(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardSummaryResponse{
		WorkflowsInProcess: summary.WorkflowsInProcess,
		PendingApprovals:   summary.PendingApprovals,
		CorrectionQueue:    summary.CorrectionQueue,
	})
}

// GetDashboardPending — GET /api/dashboard/pending.
func (h *APIHandler) GetDashboardPending(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	pending, err := h.dashboard.Pending(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]pendingStepResponse, len(pending))
	for i, p := range pending {
		items[i] = pendingStepResponse{
			StepID:       p.StepID,
			WorkflowID:   p.WorkflowID,
			Title:        p.Title,
			RequiredRole: p.RequiredRole,
			AssignedTo:   p.AssignedTo,
			AssignedDate: p.AssignedDate,
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDashboardAging — GET /api/dashboard/aging.
func (h *APIHandler) GetDashboardAging(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	aging, err := h.dashboard.Aging(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]agingItemResponse, len(aging))
	for i, a := range aging {
		items[i] = agingItemResponse{
			WorkflowID:    a.WorkflowID,
			Title:         a.Title,
			Status:        a.Status,
			DaysOpen:      a.DaysOpen,
			ReminderLevel: a.ReminderLevel,
		}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDashboardCorrectionQueue — GET /api/dashboard/correction-queue.
func (h *APIHandler) GetDashboardCorrectionQueue(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	queue, err := h.dashboard.CorrectionQueue(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]correctionItemResponse, len(queue))
	for i, c := range queue {
		items[i] = correctionItemResponse{
			WorkflowID:  c.WorkflowID,
			Title:       c.Title,
			UpdatedDate: c.UpdatedDate,
		}
	}
	writeJSON(w, http.StatusOK, items)
}
