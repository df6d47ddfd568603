package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// StepRepository — интерфейс для таблицы workflow_steps.
type StepRepository interface {
	// CreateBatch вставляет шаги workflow.
	CreateBatch(ctx context.Context, steps []model.Step) error
	// GetByID возвращает шаг по идентификатору. Если не найден — ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.Step, error)
	// ListByWorkflow возвращает шаги workflow в порядке sequence_order.
	ListByWorkflow(ctx context.Context, workflowID string) ([]model.Step, error)
	// Complete записывает решение по шагу и переводит его в Completed.
	Complete(ctx context.Context, stepID, decision, comment, decidedBy string, decidedAt time.Time) error
	// CountPending считает шаги workflow в статусе Pending.
	CountPending(ctx context.Context, workflowID string) (int, error)
	// CountPendingAll считает шаги Pending по workflow в рабочих статусах.
	// workflowIDs == nil — по всем workflow.
	CountPendingAll(ctx context.Context, workflowIDs []string) (int, error)
	// ListPending возвращает ожидающие шаги (с данными workflow)
	// по workflow в рабочих статусах. workflowIDs == nil — по всем.
	ListPending(ctx context.Context, workflowIDs []string) ([]model.PendingStep, error)
	// FirstPending возвращает самый ранний ожидающий шаг workflow
	// или nil, если таких нет.
	FirstPending(ctx context.Context, workflowID string) (*model.Step, error)
}

// stepRepo — реализация StepRepository.
type stepRepo struct {
	db DBTX
}

// NewStepRepository создаёт репозиторий шагов.
func NewStepRepository(db DBTX) StepRepository {
	return &stepRepo{db: db}
}

const stepColumns = `step_id, workflow_id, required_role, sequence_order, parallel_group, step_status, assigned_to, assigned_date, decision_by, decision_date, decision, decision_comment`

// scanStep сканирует одну строку таблицы workflow_steps.
func scanStep(row pgx.Row) (*model.Step, error) {
	s := &model.Step{}
	err := row.Scan(
		&s.ID, &s.WorkflowID, &s.RequiredRole, &s.SequenceOrder, &s.ParallelGroup,
		&s.Status, &s.AssignedTo, &s.AssignedDate,
		&s.DecisionBy, &s.DecisionDate, &s.Decision, &s.DecisionComment,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateBatch вставляет шаги workflow.
func (r *stepRepo) CreateBatch(ctx context.Context, steps []model.Step) error {
	query := `
		INSERT INTO workflow_steps (` + stepColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, s := range steps {
		_, err := r.db.Exec(ctx, query,
			s.ID, s.WorkflowID, s.RequiredRole, s.SequenceOrder, s.ParallelGroup,
			s.Status, s.AssignedTo, s.AssignedDate,
			s.DecisionBy, s.DecisionDate, s.Decision, s.DecisionComment,
		)
		if err != nil {
			return fmt.Errorf("ошибка вставки шага %s: %w", s.ID, err)
		}
	}
	return nil
}

// GetByID возвращает шаг по идентификатору.
func (r *stepRepo) GetByID(ctx context.Context, id string) (*model.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM workflow_steps WHERE step_id = $1`

	s, err := scanStep(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения шага %s: %w", id, err)
	}
	return s, nil
}

// ListByWorkflow возвращает шаги workflow в порядке sequence_order.
func (r *stepRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]model.Step, error) {
	query := `SELECT ` + stepColumns + ` FROM workflow_steps WHERE workflow_id = $1 ORDER BY sequence_order, step_id`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения шагов workflow %s: %w", workflowID, err)
	}
	defer rows.Close()

	var steps []model.Step
	for rows.Next() {
		var s model.Step
		err := rows.Scan(
			&s.ID, &s.WorkflowID, &s.RequiredRole, &s.SequenceOrder, &s.ParallelGroup,
			&s.Status, &s.AssignedTo, &s.AssignedDate,
			&s.DecisionBy, &s.DecisionDate, &s.Decision, &s.DecisionComment,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования шага: %w", err)
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// Complete записывает решение по шагу и переводит его в Completed.
func (r *stepRepo) Complete(ctx context.Context, stepID, decision, comment, decidedBy string, decidedAt time.Time) error {
	query := `
		UPDATE workflow_steps
		SET step_status = 'Completed', decision = $1, decision_comment = $2,
			decision_by = $3, decision_date = $4
		WHERE step_id = $5`

	tag, err := r.db.Exec(ctx, query, decision, comment, decidedBy, decidedAt, stepID)
	if err != nil {
		return fmt.Errorf("ошибка завершения шага %s: %w", stepID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountPending считает шаги workflow в статусе Pending.
func (r *stepRepo) CountPending(ctx context.Context, workflowID string) (int, error) {
	query := `SELECT COUNT(*) FROM workflow_steps WHERE workflow_id = $1 AND step_status = 'Pending'`

	var count int
	if err := r.db.QueryRow(ctx, query, workflowID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ожидающих шагов workflow %s: %w", workflowID, err)
	}
	return count, nil
}

// CountPendingAll считает шаги Pending по workflow в рабочих статусах.
func (r *stepRepo) CountPendingAll(ctx context.Context, workflowIDs []string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM workflow_steps s
		JOIN workflows w ON w.workflow_id = s.workflow_id
		WHERE s.step_status = 'Pending'
		  AND w.current_status = ANY($1)
		  AND ($2::uuid[] IS NULL OR s.workflow_id = ANY($2))`

	var count int
	if err := r.db.QueryRow(ctx, query, model.InProcessStatuses, workflowIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта ожидающих шагов: %w", err)
	}
	return count, nil
}

// ListPending возвращает ожидающие шаги с данными workflow.
func (r *stepRepo) ListPending(ctx context.Context, workflowIDs []string) ([]model.PendingStep, error) {
	query := `
		SELECT s.step_id, s.workflow_id, w.title, s.required_role, s.assigned_to, s.assigned_date
		FROM workflow_steps s
		JOIN workflows w ON w.workflow_id = s.workflow_id
		WHERE s.step_status = 'Pending'
		  AND w.current_status = ANY($1)
		  AND ($2::uuid[] IS NULL OR s.workflow_id = ANY($2))
		ORDER BY s.assigned_date, s.step_id`

	rows, err := r.db.Query(ctx, query, model.InProcessStatuses, workflowIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ожидающих шагов: %w", err)
	}
	defer rows.Close()

	var steps []model.PendingStep
	for rows.Next() {
		var p model.PendingStep
		if err := rows.Scan(&p.StepID, &p.WorkflowID, &p.Title, &p.RequiredRole, &p.AssignedTo, &p.AssignedDate); err != nil {
			return nil, fmt.Errorf("ошибка сканирования ожидающего шага: %w", err)
		}
		steps = append(steps, p)
	}
	return steps, rows.Err()
}

// FirstPending возвращает самый ранний ожидающий шаг workflow.
func (r *stepRepo) FirstPending(ctx context.Context, workflowID string) (*model.Step, error) {
	query := `
		SELECT ` + stepColumns + ` FROM workflow_steps
		WHERE workflow_id = $1 AND step_status = 'Pending'
		ORDER BY sequence_order, step_id
		LIMIT 1`

	s, err := scanStep(r.db.QueryRow(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка получения ожидающего шага workflow %s: %w", workflowID, err)
	}
	return s, nil
}
