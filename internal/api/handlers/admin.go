// admin.go — обработчики /api/admin и /api/system endpoints.
// Настройки, роли, привязки ролей, ручной запуск напоминаний.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/contractflow/internal/api/errors"
	"github.com/bigkaa/contractflow/internal/api/middleware"
)

// GetSettings — GET /api/admin/settings.
// Возвращает системные настройки. Доступ: admin:settings.
func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	settings, err := h.settings.Get(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings — PUT /api/admin/settings.
// Изменяет пороги старения. Доступ: admin:settings.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	settings, err := h.settings.Update(r.Context(), identity, req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// rolesResponse — список ролей.
type rolesResponse struct {
	Roles []string `json:"roles"`
}

// ListRoles — GET /api/admin/roles.
// Возвращает все роли. Доступ: admin:roles.
func (h *APIHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	roles, err := h.roles.List(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rolesResponse{Roles: roles})
}

// createRoleRequest — запрос создания роли.
type createRoleRequest struct {
	Name string `json:"name"`
}

// CreateRole — POST /api/admin/roles.
// Создаёт роль. Повторное создание — no-op. Доступ: admin:roles.
func (h *APIHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.roles.Create(r.Context(), identity, req.Name); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// userRoleResponse — привязка роли к пользователю.
type userRoleResponse struct {
	UserName string `json:"user_name"`
	RoleName string `json:"role_name"`
}

// ListUserRoles — GET /api/admin/user-roles?user=<name>.
// Возвращает привязки ролей. Без параметра user — по всем пользователям.
// Доступ: admin:roles.
func (h *APIHandler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	user := r.URL.Query().Get("user")

	bindings, err := h.roles.UserRoles(r.Context(), identity, user)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]userRoleResponse, len(bindings))
	for i, b := range bindings {
		items[i] = userRoleResponse{UserName: b.UserName, RoleName: b.RoleName}
	}
	writeJSON(w, http.StatusOK, items)
}

// updateUserRolesRequest — запрос замены набора ролей пользователя.
type updateUserRolesRequest struct {
	User  string   `json:"user"`
	Roles []string `json:"roles"`
}

// UpdateUserRoles — PUT /api/admin/user-roles.
// Заменяет набор ролей пользователя. Доступ: admin:roles.
func (h *APIHandler) UpdateUserRoles(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var req updateUserRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	if err := h.roles.UpdateUserRoles(r.Context(), identity, req.User, req.Roles); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// runRemindersResponse — результат ручного прохода напоминаний.
type runRemindersResponse struct {
	Sent int `json:"sent"`
}

// RunReminders — POST /api/system/run-reminders.
// Ручной запуск прохода напоминаний о старении. Доступ: system:reminders.
func (h *APIHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	sent, err := h.reminders.RunAs(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, runRemindersResponse{Sent: sent})
}
