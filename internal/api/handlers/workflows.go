// workflows.go — обработчики /api/workflows и /api/approvals endpoints.
// Создание, просмотр, переходы статуса, hold, документы, решения по шагам.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/contractflow/internal/api/errors"
	"github.com/bigkaa/contractflow/internal/api/middleware"
	"github.com/bigkaa/contractflow/internal/service"
)

// stepRequest — шаг согласования в запросе создания workflow.
type stepRequest struct {
	RequiredRole  string  `json:"required_role"`
	SequenceOrder int     `json:"sequence_order"`
	ParallelGroup int     `json:"parallel_group"`
	AssignedTo    *string `json:"assigned_to,omitempty"`
}

// documentRequest — загружаемый документ.
// Content — содержимое файла в base64 (стандартная кодировка JSON для []byte).
// Resubmission — переподача: workflow принудительно переводится в In Review;
// при создании workflow флаг игнорируется.
type documentRequest struct {
	Filename     string  `json:"filename"`
	Content      []byte  `json:"content"`
	IsGolden     bool    `json:"is_golden"`
	Note         *string `json:"note,omitempty"`
	Resubmission bool    `json:"resubmission,omitempty"`
}

// createWorkflowRequest — запрос создания workflow.
type createWorkflowRequest struct {
	Title         string           `json:"title"`
	DocType       string           `json:"doc_type"`
	InitialStatus string           `json:"initial_status,omitempty"`
	Steps         []stepRequest    `json:"steps"`
	Document      *documentRequest `json:"document,omitempty"`
}

// CreateWorkflow — POST /api/workflows.
// Создаёт workflow с шагами согласования и опциональным первым документом.
func (h *APIHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var req createWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	input := service.CreateWorkflowInput{
		Title:         req.Title,
		DocType:       req.DocType,
		InitialStatus: req.InitialStatus,
	}
	for _, s := range req.Steps {
		input.Steps = append(input.Steps, service.StepInput{
			RequiredRole:  s.RequiredRole,
			SequenceOrder: s.SequenceOrder,
			ParallelGroup: s.ParallelGroup,
			AssignedTo:    s.AssignedTo,
		})
	}
	if req.Document != nil {
		input.Document = &service.DocumentInput{
			Filename: req.Document.Filename,
			Content:  req.Document.Content,
			IsGolden: req.Document.IsGolden,
			Note:     req.Document.Note,
		}
	}

	details, err := h.workflows.Create(r.Context(), identity, input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapWorkflowDetails(details))
}

// ListWorkflows — GET /api/workflows.
// Возвращает workflow в области видимости пользователя.
func (h *APIHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	workflows, err := h.workflows.List(r.Context(), identity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]workflowResponse, len(workflows))
	for i, wf := range workflows {
		items[i] = mapWorkflow(wf)
	}
	writeJSON(w, http.StatusOK, items)
}

// GetWorkflow — GET /api/workflows/{id}.
// Возвращает workflow с шагами, документами и историей.
func (h *APIHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")

	details, err := h.workflows.Get(r.Context(), identity, id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapWorkflowDetails(details))
}

// updateStatusRequest — запрос перехода статуса.
type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateWorkflowStatus — PUT /api/workflows/{id}/status.
// Выполняет переход статуса workflow.
func (h *APIHandler) UpdateWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	details, err := h.workflows.UpdateStatus(r.Context(), identity, id, req.Status, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapWorkflowDetails(details))
}

// holdRequest — запрос установки/снятия приостановки.
type holdRequest struct {
	Hold   bool   `json:"hold"`
	Reason string `json:"reason,omitempty"`
}

// SetWorkflowHold — PUT /api/workflows/{id}/hold.
// Устанавливает или снимает приостановку workflow.
func (h *APIHandler) SetWorkflowHold(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	details, err := h.workflows.SetHold(r.Context(), identity, id, req.Hold, req.Reason)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapWorkflowDetails(details))
}

// AddWorkflowDocument — POST /api/workflows/{id}/documents.
// Добавляет версию документа; с флагом resubmission — переподача.
func (h *APIHandler) AddWorkflowDocument(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	input := service.DocumentInput{
		Filename:     req.Filename,
		Content:      req.Content,
		IsGolden:     req.IsGolden,
		Note:         req.Note,
		Resubmission: req.Resubmission,
	}
	details, err := h.workflows.AddDocument(r.Context(), identity, id, input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapWorkflowDetails(details))
}

// decideRequest — запрос решения по шагу согласования.
type decideRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment,omitempty"`
}

// DecideStep — POST /api/approvals/{id}/decide.
// Принимает решение по шагу согласования.
func (h *APIHandler) DecideStep(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	stepID := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	details, err := h.workflows.DecideStep(r.Context(), identity, stepID, req.Decision, req.Comment)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapWorkflowDetails(details))
}
