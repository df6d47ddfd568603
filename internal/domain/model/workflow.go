// Пакет model — доменные модели Contract Review.
package model

import "time"

// Статусы workflow.
const (
	StatusActive      = "Active"
	StatusReviewing   = "Reviewing"
	StatusNegotiating = "Negotiating"
	StatusInReview    = "In Review"
	StatusRejected    = "Rejected"
	StatusCancelled   = "Cancelled"
	StatusArchived    = "Archived"
)

// AllowedStatuses — допустимые статусы workflow.
var AllowedStatuses = map[string]bool{
	StatusActive:      true,
	StatusReviewing:   true,
	StatusNegotiating: true,
	StatusInReview:    true,
	StatusRejected:    true,
	StatusCancelled:   true,
	StatusArchived:    true,
}

// InProcessStatuses — статусы, считающиеся «в работе» для дашборда.
var InProcessStatuses = []string{StatusActive, StatusReviewing, StatusNegotiating, StatusInReview}

// Типы документов.
const (
	DocTypePO       = "PO"
	DocTypeContract = "Contract"
)

// AllowedDocTypes — допустимые типы документов.
var AllowedDocTypes = map[string]bool{
	DocTypePO:       true,
	DocTypeContract: true,
}

// Статусы шага согласования.
const (
	StepPending   = "Pending"
	StepCompleted = "Completed"
)

// Решения по шагу.
const (
	DecisionApprove = "Approve"
	DecisionReject  = "Reject"
)

// Workflow — процесс согласования документа.
// Хранится в таблице workflows. Никогда не удаляется —
// жизненный цикл завершается терминальным статусом.
type Workflow struct {
	// ID — UUID workflow
	ID string
	// Title — название (1-255 символов после trim)
	Title string
	// DocType — тип документа (PO, Contract)
	DocType string
	// CurrentStatus — текущий статус
	CurrentStatus string
	// IsHold — флаг приостановки (ортогонален статусу)
	IsHold bool
	// Resubmitted — был ли workflow повторно подан после отклонения
	Resubmitted bool
	// CreatedDate — время создания (UTC)
	CreatedDate time.Time
	// UpdatedDate — время последнего изменения (UTC)
	UpdatedDate time.Time
	// CreatedBy — имя создателя
	CreatedBy string
}

// Step — шаг согласования внутри workflow.
// Создаётся только при создании workflow; решение принимается один раз.
type Step struct {
	// ID — UUID шага
	ID string
	// WorkflowID — UUID родительского workflow
	WorkflowID string
	// RequiredRole — роль, необходимая для принятия решения
	RequiredRole string
	// SequenceOrder — порядковый номер шага
	SequenceOrder int
	// ParallelGroup — метка параллельной группы
	ParallelGroup int
	// Status — статус шага (Pending, Completed)
	Status string
	// AssignedTo — назначенный согласующий (опционально)
	AssignedTo *string
	// AssignedDate — время назначения
	AssignedDate *time.Time
	// DecisionBy — кто принял решение
	DecisionBy *string
	// DecisionDate — время решения
	DecisionDate *time.Time
	// Decision — решение (Approve, Reject)
	Decision *string
	// DecisionComment — комментарий к решению (до 2000 символов)
	DecisionComment *string
}

// Document — версия документа workflow.
// Не более одного golden-документа на workflow.
type Document struct {
	// ID — UUID документа
	ID string
	// WorkflowID — UUID родительского workflow
	WorkflowID string
	// FilePath — синтезированный UNC-путь к файлу
	FilePath string
	// IsGolden — является ли эталонной версией
	IsGolden bool
	// Version — номер версии (положительный)
	Version int
	// Note — примечание (опционально)
	Note *string
	// UploadedBy — кто загрузил
	UploadedBy string
	// UploadedAt — время загрузки
	UploadedAt time.Time
}

// StatusHistoryEntry — неизменяемая запись перехода статуса.
// Для перехода создания OldStatus == nil.
type StatusHistoryEntry struct {
	// ID — последовательный идентификатор записи
	ID int64
	// WorkflowID — UUID workflow
	WorkflowID string
	// OldStatus — предыдущий статус (nil для создания)
	OldStatus *string
	// NewStatus — новый статус
	NewStatus string
	// ChangedBy — кто выполнил переход
	ChangedBy string
	// ChangedAt — время перехода
	ChangedAt time.Time
	// Reason — причина перехода (до 1000 символов)
	Reason string
}

// ApprovalDecision — неизменяемая запись принятого решения.
// Дублирует поля решения шага, сохраняя полную историю.
type ApprovalDecision struct {
	// ID — UUID записи
	ID string
	// WorkflowID — UUID workflow
	WorkflowID string
	// StepID — UUID шага
	StepID string
	// Decision — решение (Approve, Reject)
	Decision string
	// Comment — комментарий
	Comment string
	// DecidedBy — кто принял решение
	DecidedBy string
	// DecidedAt — время решения
	DecidedAt time.Time
}

// WorkflowDetails — workflow вместе с дочерними сущностями.
// Формируется сервисным слоем для ответов API.
type WorkflowDetails struct {
	Workflow
	// Steps — шаги в порядке sequence_order
	Steps []Step
	// Documents — документы в порядке версий
	Documents []Document
	// History — история статусов в порядке вставки
	History []StatusHistoryEntry
}
