package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// События уведомлений.
const (
	EventWorkflowLaunched      = "WorkflowLaunched"
	EventWorkflowStatusChanged = "WorkflowStatusChanged"
	EventWorkflowHold          = "WorkflowHold"
	EventWorkflowRejected      = "WorkflowRejected"
	EventWorkflowCompleted     = "WorkflowCompleted"
	EventAgingReminder         = "AgingReminder"
)

// EventMailer — отправка почты о событии. Реализуется mailer.Mailer.
type EventMailer interface {
	// Enabled сообщает, настроена ли отправка почты.
	Enabled() bool
	// SendEvent отправляет письмо о событии.
	SendEvent(recipient, event string, payload map[string]any) error
}

// Notifier сохраняет уведомления в базе и best-effort отправляет почту.
// Запись уведомления создаётся всегда; результат почтовой доставки
// фиксируется отдельной записью аудита smtp_dispatch и никогда
// не прерывает бизнес-операцию.
type Notifier struct {
	mailer EventMailer
	logger *slog.Logger
}

// NewNotifier создаёт Notifier.
func NewNotifier(mailer EventMailer, logger *slog.Logger) *Notifier {
	return &Notifier{
		mailer: mailer,
		logger: logger.With("component", "notifier"),
	}
}

// Notify сохраняет уведомление для каждого получателя и пытается
// отправить почту. Вызывается внутри транзакции бизнес-операции.
func (n *Notifier) Notify(ctx context.Context, r *repository.Repos, workflowID *string, event string, recipients []string, payload map[string]any, now time.Time) error {
	for _, recipient := range recipients {
		notification := &model.Notification{
			WorkflowID: workflowID,
			Event:      event,
			Recipient:  recipient,
			CreatedAt:  now,
			Payload:    payload,
		}
		if err := r.Notifications.Create(ctx, notification); err != nil {
			return err
		}

		if !n.mailer.Enabled() {
			continue
		}

		details := map[string]any{"event": event, "recipient": recipient}
		if err := n.mailer.SendEvent(recipient, event, payload); err != nil {
			details["emailSent"] = false
			details["error"] = err.Error()
			n.logger.Warn("Не удалось отправить письмо", "event", event, "recipient", recipient, "error", err)
		} else {
			details["emailSent"] = true
		}

		entityID := ""
		if workflowID != nil {
			entityID = *workflowID
		}
		entry := &model.AuditEntry{
			EntityType: "notification",
			EntityID:   entityID,
			Action:     "smtp_dispatch",
			Actor:      "system",
			Details:    details,
			CreatedAt:  now,
		}
		if err := r.Audit.Append(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// NotificationService — чтение сохранённых уведомлений.
type NotificationService struct {
	store Store
}

// NewNotificationService создаёт сервис чтения уведомлений.
func NewNotificationService(store Store) *NotificationService {
	return &NotificationService{store: store}
}

// List возвращает уведомления в обратном хронологическом порядке.
// Без фильтра доступен только при workflow:view_all; с фильтром
// по workflow — также участникам этого workflow.
func (s *NotificationService) List(ctx context.Context, identity model.Identity, workflowID *string) ([]model.Notification, error) {
	r := s.store.Repos()

	if !rbac.HasPermission(identity, rbac.PermWorkflowViewAll) {
		if workflowID == nil {
			return nil, ErrPermissionDenied
		}
		ok, err := r.Workflows.IsParticipant(ctx, *workflowID, identity.User, identity.RoleList())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPermissionDenied
		}
	}
	return r.Notifications.List(ctx, workflowID)
}

// audit добавляет запись аудита от имени пользователя.
func audit(ctx context.Context, r *repository.Repos, entityType, entityID, action, actor string, details map[string]any, now time.Time) error {
	return r.Audit.Append(ctx, &model.AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		Details:    details,
		CreatedAt:  now,
	})
}
