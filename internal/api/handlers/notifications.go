// notifications.go — обработчик /api/notifications endpoint.
package handlers

import (
	"net/http"

	"github.com/bigkaa/contractflow/internal/api/middleware"
)

// ListNotifications — GET /api/notifications?workflow_id=<uuid>.
// Возвращает уведомления в обратном хронологическом порядке.
// Без фильтра — только при workflow:view_all; с фильтром по workflow —
// также участникам этого workflow.
func (h *APIHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var workflowID *string
	if id := r.URL.Query().Get("workflow_id"); id != "" {
		workflowID = &id
	}

	notifications, err := h.notifications.List(r.Context(), identity, workflowID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		items[i] = mapNotification(n)
	}
	writeJSON(w, http.StatusOK, items)
}
