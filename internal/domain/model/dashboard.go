package model

import "time"

// DashboardSummary — агрегированные счётчики дашборда.
type DashboardSummary struct {
	// WorkflowsInProcess — количество workflow в рабочих статусах
	WorkflowsInProcess int
	// PendingApprovals — количество шагов в статусе Pending
	PendingApprovals int
	// CorrectionQueue — количество отклонённых и не переподанных workflow
	CorrectionQueue int
}

// PendingStep — ожидающий решения шаг вместе с данными workflow.
type PendingStep struct {
	// StepID — UUID шага
	StepID string
	// WorkflowID — UUID workflow
	WorkflowID string
	// Title — название workflow
	Title string
	// RequiredRole — требуемая роль
	RequiredRole string
	// AssignedTo — назначенный согласующий (опционально)
	AssignedTo *string
	// AssignedDate — время назначения
	AssignedDate *time.Time
}

// AgingItem — workflow, пересёкший порог старения.
type AgingItem struct {
	// WorkflowID — UUID workflow
	WorkflowID string
	// Title — название workflow
	Title string
	// Status — текущий статус
	Status string
	// DaysOpen — полных дней с момента создания
	DaysOpen int
	// ReminderLevel — максимальный пересечённый порог (в днях)
	ReminderLevel int
}

// CorrectionItem — элемент очереди исправлений
// (отклонённый и не переподанный workflow).
type CorrectionItem struct {
	// WorkflowID — UUID workflow
	WorkflowID string
	// Title — название workflow
	Title string
	// UpdatedDate — время последнего изменения
	UpdatedDate time.Time
}
