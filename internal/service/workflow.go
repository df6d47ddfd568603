package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// Причины переходов статуса, записываемые в историю.
const (
	reasonCreated      = "Workflow created"
	reasonResubmission = "Resubmission"
	reasonRejected     = "Rejected by approver"
	reasonCompleted    = "All approvals complete"
)

// StepInput — шаг согласования при создании workflow.
type StepInput struct {
	// RequiredRole — роль, необходимая для решения
	RequiredRole string
	// SequenceOrder — порядковый номер
	SequenceOrder int
	// ParallelGroup — метка параллельной группы
	ParallelGroup int
	// AssignedTo — назначенный согласующий (опционально)
	AssignedTo *string
}

// DocumentInput — загружаемый документ.
type DocumentInput struct {
	// Filename — имя файла без пути
	Filename string
	// Content — содержимое файла
	Content []byte
	// IsGolden — является ли эталонной версией
	IsGolden bool
	// Note — примечание (опционально)
	Note *string
	// Resubmission — загрузка является переподачей: workflow
	// принудительно переводится в In Review из любого статуса
	Resubmission bool
}

// CreateWorkflowInput — параметры создания workflow.
type CreateWorkflowInput struct {
	// Title — название (1-255 символов после trim)
	Title string
	// DocType — тип документа (PO, Contract; по умолчанию PO)
	DocType string
	// InitialStatus — начальный статус (по умолчанию Reviewing)
	InitialStatus string
	// Steps — шаги согласования (может быть пусто)
	Steps []StepInput
	// Document — первый документ (опционально)
	Document *DocumentInput
}

// WorkflowService — операции жизненного цикла workflow.
type WorkflowService struct {
	store    Store
	ledger   *DocumentLedger
	notifier *Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewWorkflowService создаёт сервис workflow.
func NewWorkflowService(store Store, ledger *DocumentLedger, notifier *Notifier, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{
		store:    store,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger.With("component", "workflow"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create создаёт workflow с шагами, историей и первым документом.
// Вся операция выполняется в одной транзакции.
func (s *WorkflowService) Create(ctx context.Context, identity model.Identity, input CreateWorkflowInput) (*model.WorkflowDetails, error) {
	if !rbac.HasPermission(identity, rbac.PermWorkflowCreate) {
		return nil, ErrPermissionDenied
	}

	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > 255 {
		return nil, validationf("название должно содержать от 1 до 255 символов")
	}
	docType := input.DocType
	if docType == "" {
		docType = model.DocTypePO
	}
	if !model.AllowedDocTypes[docType] {
		return nil, validationf("недопустимый тип документа %q", docType)
	}
	status := input.InitialStatus
	if status == "" {
		status = model.StatusReviewing
	}
	if !model.AllowedStatuses[status] {
		return nil, validationf("недопустимый статус %q", status)
	}
	// Workflow без шагов допустим — решения по нему не принимаются
	for _, step := range input.Steps {
		if strings.TrimSpace(step.RequiredRole) == "" {
			return nil, validationf("у шага не указана требуемая роль")
		}
	}

	now := s.now()
	w := &model.Workflow{
		ID:            uuid.New().String(),
		Title:         title,
		DocType:       docType,
		CurrentStatus: status,
		CreatedDate:   now,
		UpdatedDate:   now,
		CreatedBy:     identity.User,
	}

	var details *model.WorkflowDetails
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		if err := r.Workflows.Create(ctx, w); err != nil {
			return err
		}

		steps := make([]model.Step, 0, len(input.Steps))
		for _, in := range input.Steps {
			assignedDate := now
			steps = append(steps, model.Step{
				ID:            uuid.New().String(),
				WorkflowID:    w.ID,
				RequiredRole:  in.RequiredRole,
				SequenceOrder: in.SequenceOrder,
				ParallelGroup: in.ParallelGroup,
				Status:        model.StepPending,
				AssignedTo:    in.AssignedTo,
				AssignedDate:  &assignedDate,
			})
		}
		if err := r.Steps.CreateBatch(ctx, steps); err != nil {
			return err
		}

		entry := &model.StatusHistoryEntry{
			WorkflowID: w.ID,
			NewStatus:  status,
			ChangedBy:  identity.User,
			ChangedAt:  now,
			Reason:     reasonCreated,
		}
		if err := r.History.Append(ctx, entry); err != nil {
			return err
		}

		auditDetails := map[string]any{"title": title, "docType": docType, "status": status}
		if err := audit(ctx, r, "workflow", w.ID, "created", identity.User, auditDetails, now); err != nil {
			return err
		}

		if input.Document != nil {
			d := input.Document
			if _, err := s.ledger.Add(ctx, r, w, d.Filename, d.Content, d.IsGolden, d.Note, identity.User, now); err != nil {
				return err
			}
		}

		payload := map[string]any{"workflowId": w.ID, "title": title, "status": status}
		recipients := distinctAssignees(steps)
		if err := s.notifier.Notify(ctx, r, &w.ID, EventWorkflowLaunched, recipients, payload, now); err != nil {
			return err
		}

		var err error
		details, err = buildDetails(ctx, r, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Workflow создан", "workflow_id", w.ID, "title", title, "created_by", identity.User)
	return details, nil
}

// Get возвращает workflow с шагами, документами и историей.
// Доступ: workflow:view_all либо участие в workflow.
func (s *WorkflowService) Get(ctx context.Context, identity model.Identity, id string) (*model.WorkflowDetails, error) {
	r := s.store.Repos()

	if err := s.checkAccessTx(ctx, r, identity, id); err != nil {
		return nil, err
	}

	w, err := r.Workflows.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return buildDetails(ctx, r, w)
}

// List возвращает workflow, доступные пользователю:
// все при workflow:view_all, иначе — по правилам видимости.
func (s *WorkflowService) List(ctx context.Context, identity model.Identity) ([]model.Workflow, error) {
	r := s.store.Repos()

	if rbac.HasPermission(identity, rbac.PermWorkflowViewAll) {
		return r.Workflows.List(ctx)
	}
	return r.Workflows.ListVisible(ctx, identity.User, identity.RoleList())
}

// UpdateStatus выполняет переход статуса workflow.
// Доступ: workflow:manage_all либо создатель workflow.
func (s *WorkflowService) UpdateStatus(ctx context.Context, identity model.Identity, id, newStatus, reason string) (*model.WorkflowDetails, error) {
	if !model.AllowedStatuses[newStatus] {
		return nil, validationf("недопустимый статус %q", newStatus)
	}
	if len(reason) > 1000 {
		return nil, validationf("причина не должна превышать 1000 символов")
	}

	now := s.now()
	var details *model.WorkflowDetails
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		w, err := r.Workflows.GetByID(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}
		if !rbac.HasPermission(identity, rbac.PermWorkflowManageAll) && w.CreatedBy != identity.User {
			return ErrPermissionDenied
		}

		oldStatus := w.CurrentStatus
		if err := r.Workflows.SetStatus(ctx, id, newStatus, now); err != nil {
			return mapRepoErr(err)
		}

		entry := &model.StatusHistoryEntry{
			WorkflowID: id,
			OldStatus:  &oldStatus,
			NewStatus:  newStatus,
			ChangedBy:  identity.User,
			ChangedAt:  now,
			Reason:     reason,
		}
		if err := r.History.Append(ctx, entry); err != nil {
			return err
		}

		auditDetails := map[string]any{"oldStatus": oldStatus, "newStatus": newStatus, "reason": reason}
		if err := audit(ctx, r, "workflow", id, "status_changed", identity.User, auditDetails, now); err != nil {
			return err
		}

		// Создатель уведомляется о терминальных переходах
		switch newStatus {
		case model.StatusRejected, model.StatusCancelled, model.StatusArchived:
			payload := map[string]any{"workflowId": id, "oldStatus": oldStatus, "newStatus": newStatus, "reason": reason}
			if err := s.notifier.Notify(ctx, r, &id, EventWorkflowStatusChanged, []string{w.CreatedBy}, payload, now); err != nil {
				return err
			}
		}

		w.CurrentStatus = newStatus
		w.UpdatedDate = now
		details, err = buildDetails(ctx, r, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Статус workflow изменён", "workflow_id", id, "new_status", newStatus, "changed_by", identity.User)
	return details, nil
}

// SetHold устанавливает или снимает приостановку workflow.
// Доступ: только workflow:manage_all. Hold ортогонален статусу.
func (s *WorkflowService) SetHold(ctx context.Context, identity model.Identity, id string, hold bool, reason string) (*model.WorkflowDetails, error) {
	if !rbac.HasPermission(identity, rbac.PermWorkflowManageAll) {
		return nil, ErrPermissionDenied
	}

	now := s.now()
	var details *model.WorkflowDetails
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		w, err := r.Workflows.GetByID(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}

		if err := r.Workflows.SetHold(ctx, id, hold, now); err != nil {
			return mapRepoErr(err)
		}

		auditDetails := map[string]any{"hold": hold, "reason": reason}
		if err := audit(ctx, r, "workflow", id, "hold_changed", identity.User, auditDetails, now); err != nil {
			return err
		}

		// Уведомление — только при установке приостановки
		if hold {
			payload := map[string]any{"workflowId": id, "title": w.Title, "reason": reason}
			if err := s.notifier.Notify(ctx, r, &id, EventWorkflowHold, []string{w.CreatedBy}, payload, now); err != nil {
				return err
			}
		}

		w.IsHold = hold
		w.UpdatedDate = now
		details, err = buildDetails(ctx, r, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Hold workflow изменён", "workflow_id", id, "hold", hold, "changed_by", identity.User)
	return details, nil
}

// AddDocument добавляет версию документа к workflow.
// Флаг Resubmission помечает загрузку как переподачу: статус становится
// In Review из любого текущего статуса, включая терминальные, и workflow
// уходит из очереди исправлений. Без флага статус не меняется.
func (s *WorkflowService) AddDocument(ctx context.Context, identity model.Identity, id string, input DocumentInput) (*model.WorkflowDetails, error) {
	now := s.now()
	var details *model.WorkflowDetails
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		if err := s.checkAccessTx(ctx, r, identity, id); err != nil {
			return err
		}

		w, err := r.Workflows.GetByID(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}

		if _, err := s.ledger.Add(ctx, r, w, input.Filename, input.Content, input.IsGolden, input.Note, identity.User, now); err != nil {
			return err
		}

		if input.Resubmission {
			oldStatus := w.CurrentStatus
			if err := r.Workflows.SetStatusResubmitted(ctx, id, model.StatusInReview, true, now); err != nil {
				return mapRepoErr(err)
			}
			entry := &model.StatusHistoryEntry{
				WorkflowID: id,
				OldStatus:  &oldStatus,
				NewStatus:  model.StatusInReview,
				ChangedBy:  identity.User,
				ChangedAt:  now,
				Reason:     reasonResubmission,
			}
			if err := r.History.Append(ctx, entry); err != nil {
				return err
			}
			w.CurrentStatus = model.StatusInReview
			w.Resubmitted = true
			w.UpdatedDate = now
		}

		details, err = buildDetails(ctx, r, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Документ добавлен", "workflow_id", id, "uploaded_by", identity.User)
	return details, nil
}

// DecideStep принимает решение по шагу согласования.
// Доступ: роль шага либо Admin. Решение принимается один раз.
func (s *WorkflowService) DecideStep(ctx context.Context, identity model.Identity, stepID, decision, comment string) (*model.WorkflowDetails, error) {
	if decision != model.DecisionApprove && decision != model.DecisionReject {
		return nil, validationf("недопустимое решение %q", decision)
	}
	if len(comment) > 2000 {
		return nil, validationf("комментарий не должен превышать 2000 символов")
	}

	now := s.now()
	var details *model.WorkflowDetails
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		step, err := r.Steps.GetByID(ctx, stepID)
		if err != nil {
			return mapRepoErr(err)
		}
		if !identity.HasRole(step.RequiredRole) && !identity.HasRole(rbac.RoleAdmin) {
			return ErrPermissionDenied
		}
		if step.Status == model.StepCompleted {
			return validationf("решение по шагу уже принято")
		}

		w, err := r.Workflows.GetByID(ctx, step.WorkflowID)
		if err != nil {
			return mapRepoErr(err)
		}

		if err := r.Steps.Complete(ctx, stepID, decision, comment, identity.User, now); err != nil {
			return mapRepoErr(err)
		}

		record := &model.ApprovalDecision{
			ID:         uuid.New().String(),
			WorkflowID: w.ID,
			StepID:     stepID,
			Decision:   decision,
			Comment:    comment,
			DecidedBy:  identity.User,
			DecidedAt:  now,
		}
		if err := r.Decisions.Create(ctx, record); err != nil {
			return err
		}

		auditDetails := map[string]any{"stepId": stepID, "decision": decision, "comment": comment}
		if err := audit(ctx, r, "approval", w.ID, "decided", identity.User, auditDetails, now); err != nil {
			return err
		}

		switch decision {
		case model.DecisionReject:
			oldStatus := w.CurrentStatus
			if err := r.Workflows.SetStatusResubmitted(ctx, w.ID, model.StatusRejected, false, now); err != nil {
				return mapRepoErr(err)
			}
			entry := &model.StatusHistoryEntry{
				WorkflowID: w.ID,
				OldStatus:  &oldStatus,
				NewStatus:  model.StatusRejected,
				ChangedBy:  identity.User,
				ChangedAt:  now,
				Reason:     reasonRejected,
			}
			if err := r.History.Append(ctx, entry); err != nil {
				return err
			}
			payload := map[string]any{"workflowId": w.ID, "title": w.Title, "comment": comment, "rejectedBy": identity.User}
			if err := s.notifier.Notify(ctx, r, &w.ID, EventWorkflowRejected, []string{w.CreatedBy}, payload, now); err != nil {
				return err
			}
			w.CurrentStatus = model.StatusRejected
			w.Resubmitted = false
			w.UpdatedDate = now

		case model.DecisionApprove:
			pending, err := r.Steps.CountPending(ctx, w.ID)
			if err != nil {
				return err
			}
			// Последнее одобрение завершает workflow
			if pending == 0 {
				oldStatus := w.CurrentStatus
				if err := r.Workflows.SetStatus(ctx, w.ID, model.StatusArchived, now); err != nil {
					return mapRepoErr(err)
				}
				entry := &model.StatusHistoryEntry{
					WorkflowID: w.ID,
					OldStatus:  &oldStatus,
					NewStatus:  model.StatusArchived,
					ChangedBy:  identity.User,
					ChangedAt:  now,
					Reason:     reasonCompleted,
				}
				if err := r.History.Append(ctx, entry); err != nil {
					return err
				}
				payload := map[string]any{"workflowId": w.ID, "title": w.Title}
				if err := s.notifier.Notify(ctx, r, &w.ID, EventWorkflowCompleted, []string{w.CreatedBy}, payload, now); err != nil {
					return err
				}
				w.CurrentStatus = model.StatusArchived
				w.UpdatedDate = now
			}
		}

		details, err = buildDetails(ctx, r, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Решение по шагу принято", "step_id", stepID, "decision", decision, "decided_by", identity.User)
	return details, nil
}

// checkAccessTx проверяет доступ к workflow: workflow:view_all,
// workflow:manage_all либо участие (создатель, назначенный, роль шага).
func (s *WorkflowService) checkAccessTx(ctx context.Context, r *repository.Repos, identity model.Identity, id string) error {
	if rbac.HasPermission(identity, rbac.PermWorkflowViewAll) || rbac.HasPermission(identity, rbac.PermWorkflowManageAll) {
		return nil
	}
	ok, err := r.Workflows.IsParticipant(ctx, id, identity.User, identity.RoleList())
	if err != nil {
		return err
	}
	if !ok {
		// Не раскрываем существование workflow посторонним
		if _, err := r.Workflows.GetByID(ctx, id); err != nil {
			return mapRepoErr(err)
		}
		return ErrPermissionDenied
	}
	return nil
}

// buildDetails собирает workflow с дочерними сущностями.
func buildDetails(ctx context.Context, r *repository.Repos, w *model.Workflow) (*model.WorkflowDetails, error) {
	steps, err := r.Steps.ListByWorkflow(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	docs, err := r.Documents.ListByWorkflow(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	history, err := r.History.ListByWorkflow(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	return &model.WorkflowDetails{
		Workflow:  *w,
		Steps:     steps,
		Documents: docs,
		History:   history,
	}, nil
}

// distinctAssignees возвращает уникальных назначенных согласующих.
func distinctAssignees(steps []model.Step) []string {
	seen := make(map[string]bool)
	var assignees []string
	for _, s := range steps {
		if s.AssignedTo == nil || *s.AssignedTo == "" || seen[*s.AssignedTo] {
			continue
		}
		seen[*s.AssignedTo] = true
		assignees = append(assignees, *s.AssignedTo)
	}
	return assignees
}
