// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующаяся запись).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos — набор всех репозиториев, связанных с одним DBTX
// (пулом или транзакцией).
type Repos struct {
	Workflows     WorkflowRepository
	Steps         StepRepository
	Documents     DocumentRepository
	History       HistoryRepository
	Decisions     DecisionRepository
	Notifications NotificationRepository
	Audit         AuditRepository
	Reminders     ReminderRepository
	Settings      SettingsRepository
	Roles         RoleRepository
}

// NewRepos создаёт набор репозиториев поверх DBTX.
func NewRepos(db DBTX) *Repos {
	return &Repos{
		Workflows:     NewWorkflowRepository(db),
		Steps:         NewStepRepository(db),
		Documents:     NewDocumentRepository(db),
		History:       NewHistoryRepository(db),
		Decisions:     NewDecisionRepository(db),
		Notifications: NewNotificationRepository(db),
		Audit:         NewAuditRepository(db),
		Reminders:     NewReminderRepository(db),
		Settings:      NewSettingsRepository(db),
		Roles:         NewRoleRepository(db),
	}
}

// Store — фабрика репозиториев и транзакций поверх pgxpool.
// Реализует service.Store.
type Store struct {
	pool  *pgxpool.Pool
	repos *Repos
}

// NewStore создаёт Store поверх пула подключений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		repos: NewRepos(pool),
	}
}

// Repos возвращает репозитории, привязанные к пулу (вне транзакции).
func (s *Store) Repos() *Repos {
	return s.repos
}

// WithinTx выполняет fn с репозиториями, привязанными к одной транзакции.
// При ошибке fn — транзакция откатывается, при успехе — коммитится.
func (s *Store) WithinTx(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
