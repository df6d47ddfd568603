package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// AuditRepository — интерфейс для таблицы audit_log. Append-only.
type AuditRepository interface {
	// Append добавляет запись аудита.
	Append(ctx context.Context, e *model.AuditEntry) error
	// ListByEntity возвращает записи аудита сущности в порядке вставки.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]model.AuditEntry, error)
}

// auditRepo — реализация AuditRepository.
type auditRepo struct {
	db DBTX
}

// NewAuditRepository создаёт репозиторий аудита.
func NewAuditRepository(db DBTX) AuditRepository {
	return &auditRepo{db: db}
}

// Append добавляет запись аудита.
func (r *auditRepo) Append(ctx context.Context, e *model.AuditEntry) error {
	query := `
		INSERT INTO audit_log (entity_type, entity_id, action, actor, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING audit_id`

	err := r.db.QueryRow(ctx, query,
		e.EntityType, e.EntityID, e.Action, e.Actor, e.Details, e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("ошибка записи аудита: %w", err)
	}
	return nil
}

// ListByEntity возвращает записи аудита сущности в порядке вставки.
func (r *auditRepo) ListByEntity(ctx context.Context, entityType, entityID string) ([]model.AuditEntry, error) {
	query := `
		SELECT audit_id, entity_type, entity_id, action, actor, details, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY audit_id`

	rows, err := r.db.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения аудита %s/%s: %w", entityType, entityID, err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action, &e.Actor, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования аудита: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
