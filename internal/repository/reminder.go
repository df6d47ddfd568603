package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// ReminderRepository — интерфейс для таблицы reminder_log.
// Уникальность (workflow_id, threshold_days) дедуплицирует напоминания.
type ReminderRepository interface {
	// Exists проверяет, отправлялось ли напоминание по паре (workflow, порог).
	Exists(ctx context.Context, workflowID string, thresholdDays int) (bool, error)
	// Create записывает отправленное напоминание.
	// Повторная вставка той же пары — ErrConflict.
	Create(ctx context.Context, e *model.ReminderLogEntry) error
}

// reminderRepo — реализация ReminderRepository.
type reminderRepo struct {
	db DBTX
}

// NewReminderRepository создаёт репозиторий журнала напоминаний.
func NewReminderRepository(db DBTX) ReminderRepository {
	return &reminderRepo{db: db}
}

// Exists проверяет, отправлялось ли напоминание по паре (workflow, порог).
func (r *reminderRepo) Exists(ctx context.Context, workflowID string, thresholdDays int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM reminder_log WHERE workflow_id = $1 AND threshold_days = $2)`

	var ok bool
	if err := r.db.QueryRow(ctx, query, workflowID, thresholdDays).Scan(&ok); err != nil {
		return false, fmt.Errorf("ошибка проверки напоминания workflow %s: %w", workflowID, err)
	}
	return ok, nil
}

// Create записывает отправленное напоминание.
func (r *reminderRepo) Create(ctx context.Context, e *model.ReminderLogEntry) error {
	query := `
		INSERT INTO reminder_log (workflow_id, step_id, threshold_days, reminded_at)
		VALUES ($1, $2, $3, $4)
		RETURNING reminder_id`

	err := r.db.QueryRow(ctx, query,
		e.WorkflowID, e.StepID, e.ThresholdDays, e.RemindedAt,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка записи напоминания workflow %s: %w", e.WorkflowID, err)
	}
	return nil
}
