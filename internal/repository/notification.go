package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// NotificationRepository — интерфейс для таблицы notifications.
type NotificationRepository interface {
	// Create сохраняет уведомление.
	Create(ctx context.Context, n *model.Notification) error
	// List возвращает уведомления в обратном хронологическом порядке.
	// workflowID != nil — только по указанному workflow.
	List(ctx context.Context, workflowID *string) ([]model.Notification, error)
}

// notificationRepo — реализация NotificationRepository.
type notificationRepo struct {
	db DBTX
}

// NewNotificationRepository создаёт репозиторий уведомлений.
func NewNotificationRepository(db DBTX) NotificationRepository {
	return &notificationRepo{db: db}
}

// Create сохраняет уведомление.
func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (workflow_id, event, recipient, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING notification_id`

	err := r.db.QueryRow(ctx, query,
		n.WorkflowID, n.Event, n.Recipient, n.CreatedAt, n.Payload,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения уведомления: %w", err)
	}
	return nil
}

// List возвращает уведомления в обратном хронологическом порядке.
func (r *notificationRepo) List(ctx context.Context, workflowID *string) ([]model.Notification, error) {
	query := `
		SELECT notification_id, workflow_id, event, recipient, created_at, payload
		FROM notifications
		WHERE $1::uuid IS NULL OR workflow_id = $1
		ORDER BY notification_id DESC`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения уведомлений: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.WorkflowID, &n.Event, &n.Recipient, &n.CreatedAt, &n.Payload); err != nil {
			return nil, fmt.Errorf("ошибка сканирования уведомления: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
