// dto.go — JSON-представления доменных моделей для ответов API.
package handlers

import (
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// workflowResponse — workflow в ответе API.
type workflowResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	DocType       string    `json:"doc_type"`
	CurrentStatus string    `json:"current_status"`
	IsHold        bool      `json:"is_hold"`
	Resubmitted   bool      `json:"resubmitted"`
	CreatedDate   time.Time `json:"created_date"`
	UpdatedDate   time.Time `json:"updated_date"`
	CreatedBy     string    `json:"created_by"`
}

// stepResponse — шаг согласования в ответе API.
type stepResponse struct {
	ID              string     `json:"id"`
	WorkflowID      string     `json:"workflow_id"`
	RequiredRole    string     `json:"required_role"`
	SequenceOrder   int        `json:"sequence_order"`
	ParallelGroup   int        `json:"parallel_group"`
	Status          string     `json:"status"`
	AssignedTo      *string    `json:"assigned_to,omitempty"`
	AssignedDate    *time.Time `json:"assigned_date,omitempty"`
	DecisionBy      *string    `json:"decision_by,omitempty"`
	DecisionDate    *time.Time `json:"decision_date,omitempty"`
	Decision        *string    `json:"decision,omitempty"`
	DecisionComment *string    `json:"decision_comment,omitempty"`
}

// documentResponse — версия документа в ответе API.
type documentResponse struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	FilePath   string    `json:"file_path"`
	IsGolden   bool      `json:"is_golden"`
	Version    int       `json:"version"`
	Note       *string   `json:"note,omitempty"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// historyResponse — запись истории статусов в ответе API.
type historyResponse struct {
	ID        int64     `json:"id"`
	OldStatus *string   `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Reason    string    `json:"reason"`
}

// workflowDetailsResponse — workflow с дочерними сущностями.
type workflowDetailsResponse struct {
	workflowResponse
	Steps     []stepResponse     `json:"steps"`
	Documents []documentResponse `json:"documents"`
	History   []historyResponse  `json:"history"`
}

// notificationResponse — сохранённое уведомление в ответе API.
type notificationResponse struct {
	ID         int64          `json:"id"`
	WorkflowID *string        `json:"workflow_id,omitempty"`
	Event      string         `json:"event"`
	Recipient  string         `json:"recipient"`
	CreatedAt  time.Time      `json:"created_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// --- Маппинг domain → API ---

func mapWorkflow(w model.Workflow) workflowResponse {
	return workflowResponse{
		ID:            w.ID,
		Title:         w.Title,
		DocType:       w.DocType,
		CurrentStatus: w.CurrentStatus,
		IsHold:        w.IsHold,
		Resubmitted:   w.Resubmitted,
		CreatedDate:   w.CreatedDate,
		UpdatedDate:   w.UpdatedDate,
		CreatedBy:     w.CreatedBy,
	}
}

func mapWorkflowDetails(d *model.WorkflowDetails) workflowDetailsResponse {
	resp := workflowDetailsResponse{
		workflowResponse: mapWorkflow(d.Workflow),
		Steps:            make([]stepResponse, len(d.Steps)),
		Documents:        make([]documentResponse, len(d.Documents)),
		History:          make([]historyResponse, len(d.History)),
	}
	for i, s := range d.Steps {
		resp.Steps[i] = stepResponse{
			ID:              s.ID,
			WorkflowID:      s.WorkflowID,
			RequiredRole:    s.RequiredRole,
			SequenceOrder:   s.SequenceOrder,
			ParallelGroup:   s.ParallelGroup,
			Status:          s.Status,
			AssignedTo:      s.AssignedTo,
			AssignedDate:    s.AssignedDate,
			DecisionBy:      s.DecisionBy,
			DecisionDate:    s.DecisionDate,
			Decision:        s.Decision,
			DecisionComment: s.DecisionComment,
		}
	}
	for i, doc := range d.Documents {
		resp.Documents[i] = documentResponse{
			ID:         doc.ID,
			WorkflowID: doc.WorkflowID,
			FilePath:   doc.FilePath,
			IsGolden:   doc.IsGolden,
			Version:    doc.Version,
			Note:       doc.Note,
			UploadedBy: doc.UploadedBy,
			UploadedAt: doc.UploadedAt,
		}
	}
	for i, entry := range d.History {
		resp.History[i] = historyResponse{
			ID:        entry.ID,
			OldStatus: entry.OldStatus,
			NewStatus: entry.NewStatus,
			ChangedBy: entry.ChangedBy,
			ChangedAt: entry.ChangedAt,
			Reason:    entry.Reason,
		}
	}
	return resp
}

func mapNotification(n model.Notification) notificationResponse {
	return notificationResponse{
		ID:         n.ID,
		WorkflowID: n.WorkflowID,
		Event:      n.Event,
		Recipient:  n.Recipient,
		CreatedAt:  n.CreatedAt,
		Payload:    n.Payload,
	}
}
