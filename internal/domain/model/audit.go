package model

import "time"

// Notification — сохранённое уведомление о бизнес-событии.
// Запись создаётся всегда; доставка по почте — best-effort.
type Notification struct {
	// ID — последовательный идентификатор
	ID int64
	// WorkflowID — UUID workflow (опционально)
	WorkflowID *string
	// Event — имя события (WorkflowLaunched, WorkflowRejected и т.д.)
	Event string
	// Recipient — получатель
	Recipient string
	// CreatedAt — время создания
	CreatedAt time.Time
	// Payload — произвольные данные события (JSON)
	Payload map[string]any
}

// AuditEntry — запись журнала аудита. Append-only.
type AuditEntry struct {
	// ID — последовательный идентификатор
	ID int64
	// EntityType — тип сущности (workflow, approval, role и т.д.)
	EntityType string
	// EntityID — идентификатор сущности
	EntityID string
	// Action — выполненное действие
	Action string
	// Actor — кто выполнил
	Actor string
	// Details — структурированные детали (JSON)
	Details map[string]any
	// CreatedAt — время записи
	CreatedAt time.Time
}

// ReminderLogEntry — запись о разосланном напоминании.
// Уникальность пары (workflow, порог) гарантирует,
// что порог срабатывает не более одного раза.
type ReminderLogEntry struct {
	// ID — последовательный идентификатор
	ID int64
	// WorkflowID — UUID workflow
	WorkflowID string
	// StepID — UUID шага, по которому отправлено напоминание
	StepID *string
	// ThresholdDays — пересечённый порог в днях
	ThresholdDays int
	// RemindedAt — время отправки
	RemindedAt time.Time
}

// UserRole — привязка роли к пользователю (таблица user_roles).
type UserRole struct {
	// UserName — имя пользователя
	UserName string
	// RoleName — имя роли
	RoleName string
}
