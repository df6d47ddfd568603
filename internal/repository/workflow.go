package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// WorkflowRepository — интерфейс для таблицы workflows.
type WorkflowRepository interface {
	// Create вставляет новый workflow.
	Create(ctx context.Context, w *model.Workflow) error
	// GetByID возвращает workflow по идентификатору. Если не найден — ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Workflow, error)
	// List возвращает все workflow в порядке убывания даты создания.
	List(ctx context.Context) ([]model.Workflow, error)
	// ListVisible возвращает workflow, видимые пользователю:
	// он создатель, назначен на шаг или имеет роль, требуемую шагом.
	ListVisible(ctx context.Context, user string, roles []string) ([]model.Workflow, error)
	// ListByIDs возвращает workflow с указанными идентификаторами.
	ListByIDs(ctx context.Context, ids []string) ([]model.Workflow, error)
	// VisibleIDs возвращает идентификаторы видимых workflow одним запросом.
	VisibleIDs(ctx context.Context, user string, roles []string) ([]string, error)
	// IsParticipant проверяет, является ли пользователь участником workflow.
	IsParticipant(ctx context.Context, id, user string, roles []string) (bool, error)
	// SetStatus обновляет текущий статус.
	SetStatus(ctx context.Context, id, status string, updatedAt time.Time) error
	// SetStatusResubmitted обновляет статус и флаг resubmitted одной операцией.
	SetStatusResubmitted(ctx context.Context, id, status string, resubmitted bool, updatedAt time.Time) error
	// SetHold обновляет флаг приостановки.
	SetHold(ctx context.Context, id string, hold bool, updatedAt time.Time) error
	// CountInStatuses считает workflow в указанных статусах.
	// ids == nil — по всем workflow.
	CountInStatuses(ctx context.Context, ids []string, statuses []string) (int, error)
	// CountCorrection считает отклонённые и не переподанные workflow.
	// ids == nil — по всем workflow.
	CountCorrection(ctx context.Context, ids []string) (int, error)
	// ListCorrection возвращает очередь исправлений: все (all=true)
	// или только созданные пользователем.
	ListCorrection(ctx context.Context, all bool, user string) ([]model.CorrectionItem, error)
}

// workflowRepo — реализация WorkflowRepository.
type workflowRepo struct {
	db DBTX
}

// NewWorkflowRepository создаёт репозиторий workflow.
func NewWorkflowRepository(db DBTX) WorkflowRepository {
	return &workflowRepo{db: db}
}

const workflowColumns = `workflow_id, title, doc_type, current_status, is_hold, resubmitted, created_date, updated_date, created_by`

// scanWorkflow сканирует одну строку таблицы workflows.
func scanWorkflow(row pgx.Row) (*model.Workflow, error) {
	w := &model.Workflow{}
	err := row.Scan(
		&w.ID, &w.Title, &w.DocType, &w.CurrentStatus,
		&w.IsHold, &w.Resubmitted, &w.CreatedDate, &w.UpdatedDate, &w.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Create вставляет новый workflow.
func (r *workflowRepo) Create(ctx context.Context, w *model.Workflow) error {
	query := `
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		w.ID, w.Title, w.DocType, w.CurrentStatus,
		w.IsHold, w.Resubmitted, w.CreatedDate, w.UpdatedDate, w.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка вставки workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по идентификатору.
func (r *workflowRepo) GetByID(ctx context.Context, id string) (*model.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE workflow_id = $1`

	w, err := scanWorkflow(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения workflow %s: %w", id, err)
	}
	return w, nil
}

// List возвращает все workflow.
func (r *workflowRepo) List(ctx context.Context) ([]model.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_date DESC, workflow_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка workflow: %w", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

// ListVisible возвращает workflow, видимые пользователю.
// Один запрос с DISTINCT вместо цикла по workflow — корректно
// при параллельных изменениях шагов.
func (r *workflowRepo) ListVisible(ctx context.Context, user string, roles []string) ([]model.Workflow, error) {
	query := `
		SELECT DISTINCT w.workflow_id, w.title, w.doc_type, w.current_status,
			w.is_hold, w.resubmitted, w.created_date, w.updated_date, w.created_by
		FROM workflows w
		LEFT JOIN workflow_steps s ON s.workflow_id = w.workflow_id
		WHERE w.created_by = $1 OR s.assigned_to = $1 OR s.required_role = ANY($2)
		ORDER BY w.created_date DESC, w.workflow_id`

	rows, err := r.db.Query(ctx, query, user, roles)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения видимых workflow: %w", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

// ListByIDs возвращает workflow с указанными идентификаторами.
func (r *workflowRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE workflow_id = ANY($1) ORDER BY created_date DESC, workflow_id`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения workflow по идентификаторам: %w", err)
	}
	defer rows.Close()
	return collectWorkflows(rows)
}

// VisibleIDs возвращает идентификаторы видимых workflow.
func (r *workflowRepo) VisibleIDs(ctx context.Context, user string, roles []string) ([]string, error) {
	query := `
		SELECT DISTINCT w.workflow_id
		FROM workflows w
		LEFT JOIN workflow_steps s ON s.workflow_id = w.workflow_id
		WHERE w.created_by = $1 OR s.assigned_to = $1 OR s.required_role = ANY($2)`

	rows, err := r.db.Query(ctx, query, user, roles)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения видимых идентификаторов: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования идентификатора: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsParticipant проверяет участие пользователя в workflow одним EXISTS-запросом.
func (r *workflowRepo) IsParticipant(ctx context.Context, id, user string, roles []string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM workflows w
			LEFT JOIN workflow_steps s ON s.workflow_id = w.workflow_id
			WHERE w.workflow_id = $1
			  AND (w.created_by = $2 OR s.assigned_to = $2 OR s.required_role = ANY($3))
		)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, id, user, roles).Scan(&ok); err != nil {
		return false, fmt.Errorf("ошибка проверки участия в workflow %s: %w", id, err)
	}
	return ok, nil
}

// SetStatus обновляет текущий статус workflow.
func (r *workflowRepo) SetStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	query := `UPDATE workflows SET current_status = $1, updated_date = $2 WHERE workflow_id = $3`

	tag, err := r.db.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatusResubmitted обновляет статус и флаг resubmitted одной операцией.
func (r *workflowRepo) SetStatusResubmitted(ctx context.Context, id, status string, resubmitted bool, updatedAt time.Time) error {
	query := `UPDATE workflows SET current_status = $1, resubmitted = $2, updated_date = $3 WHERE workflow_id = $4`

	tag, err := r.db.Exec(ctx, query, status, resubmitted, updatedAt, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetHold обновляет флаг приостановки.
func (r *workflowRepo) SetHold(ctx context.Context, id string, hold bool, updatedAt time.Time) error {
	query := `UPDATE workflows SET is_hold = $1, updated_date = $2 WHERE workflow_id = $3`

	tag, err := r.db.Exec(ctx, query, hold, updatedAt, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления hold workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountInStatuses считает workflow в указанных статусах.
func (r *workflowRepo) CountInStatuses(ctx context.Context, ids []string, statuses []string) (int, error) {
	query := `SELECT COUNT(*) FROM workflows WHERE current_status = ANY($1) AND ($2::uuid[] IS NULL OR workflow_id = ANY($2))`

	var count int
	if err := r.db.QueryRow(ctx, query, statuses, ids).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта workflow по статусам: %w", err)
	}
	return count, nil
}

// CountCorrection считает отклонённые и не переподанные workflow.
func (r *workflowRepo) CountCorrection(ctx context.Context, ids []string) (int, error) {
	query := `
		SELECT COUNT(*) FROM workflows
		WHERE current_status = 'Rejected' AND NOT resubmitted
		  AND ($1::uuid[] IS NULL OR workflow_id = ANY($1))`

	var count int
	if err := r.db.QueryRow(ctx, query, ids).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта очереди исправлений: %w", err)
	}
	return count, nil
}

// ListCorrection возвращает очередь исправлений.
func (r *workflowRepo) ListCorrection(ctx context.Context, all bool, user string) ([]model.CorrectionItem, error) {
	query := `
		SELECT workflow_id, title, updated_date FROM workflows
		WHERE current_status = 'Rejected' AND NOT resubmitted
		  AND ($1 OR created_by = $2)
		ORDER BY updated_date DESC`

	rows, err := r.db.Query(ctx, query, all, user)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения очереди исправлений: %w", err)
	}
	defer rows.Close()

	var items []model.CorrectionItem
	for rows.Next() {
		var it model.CorrectionItem
		if err := rows.Scan(&it.WorkflowID, &it.Title, &it.UpdatedDate); err != nil {
			return nil, fmt.Errorf("ошибка сканирования очереди исправлений: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// collectWorkflows собирает строки результата в срез workflow.
func collectWorkflows(rows pgx.Rows) ([]model.Workflow, error) {
	var workflows []model.Workflow
	for rows.Next() {
		var w model.Workflow
		err := rows.Scan(
			&w.ID, &w.Title, &w.DocType, &w.CurrentStatus,
			&w.IsHold, &w.Resubmitted, &w.CreatedDate, &w.UpdatedDate, &w.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	return workflows, rows.Err()
}
