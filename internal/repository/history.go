package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// HistoryRepository — интерфейс для таблицы status_history. Append-only.
type HistoryRepository interface {
	// Append добавляет запись перехода статуса.
	Append(ctx context.Context, e *model.StatusHistoryEntry) error
	// ListByWorkflow возвращает историю workflow в порядке вставки.
	ListByWorkflow(ctx context.Context, workflowID string) ([]model.StatusHistoryEntry, error)
}

// historyRepo — реализация HistoryRepository.
type historyRepo struct {
	db DBTX
}

// NewHistoryRepository создаёт репозиторий истории статусов.
func NewHistoryRepository(db DBTX) HistoryRepository {
	return &historyRepo{db: db}
}

// Append добавляет запись перехода статуса.
func (r *historyRepo) Append(ctx context.Context, e *model.StatusHistoryEntry) error {
	query := `
		INSERT INTO status_history (workflow_id, old_status, new_status, changed_by, changed_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING history_id`

	err := r.db.QueryRow(ctx, query,
		e.WorkflowID, e.OldStatus, e.NewStatus, e.ChangedBy, e.ChangedAt, e.Reason,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи истории статусов: %w", err)
	}
	return nil
}

// ListByWorkflow возвращает историю workflow в порядке вставки.
func (r *historyRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]model.StatusHistoryEntry, error) {
	query := `
		SELECT history_id, workflow_id, old_status, new_status, changed_by, changed_at, reason
		FROM status_history
		WHERE workflow_id = $1
		ORDER BY history_id`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории workflow %s: %w", workflowID, err)
	}
	defer rows.Close()

	var entries []model.StatusHistoryEntry
	for rows.Next() {
		var e model.StatusHistoryEntry
		err := rows.Scan(&e.ID, &e.WorkflowID, &e.OldStatus, &e.NewStatus, &e.ChangedBy, &e.ChangedAt, &e.Reason)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DecisionRepository — интерфейс для таблицы approval_decisions. Append-only.
type DecisionRepository interface {
	// Create добавляет запись решения.
	Create(ctx context.Context, d *model.ApprovalDecision) error
	// ListByWorkflow возвращает решения workflow в порядке принятия.
	ListByWorkflow(ctx context.Context, workflowID string) ([]model.ApprovalDecision, error)
}

// decisionRepo — реализация DecisionRepository.
type decisionRepo struct {
	db DBTX
}

// NewDecisionRepository создаёт репозиторий решений.
func NewDecisionRepository(db DBTX) DecisionRepository {
	return &decisionRepo{db: db}
}

// Create добавляет запись решения.
func (r *decisionRepo) Create(ctx context.Context, d *model.ApprovalDecision) error {
	query := `
		INSERT INTO approval_decisions (decision_id, workflow_id, step_id, decision, comment, decided_by, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.WorkflowID, d.StepID, d.Decision, d.Comment, d.DecidedBy, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи решения: %w", err)
	}
	return nil
}

// ListByWorkflow возвращает решения workflow в порядке принятия.
func (r *decisionRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]model.ApprovalDecision, error) {
	query := `
		SELECT decision_id, workflow_id, step_id, decision, comment, decided_by, decided_at
		FROM approval_decisions
		WHERE workflow_id = $1
		ORDER BY decided_at, decision_id`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения решений workflow %s: %w", workflowID, err)
	}
	defer rows.Close()

	var decisions []model.ApprovalDecision
	for rows.Next() {
		var d model.ApprovalDecision
		err := rows.Scan(&d.ID, &d.WorkflowID, &d.StepID, &d.Decision, &d.Comment, &d.DecidedBy, &d.DecidedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования решения: %w", err)
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
