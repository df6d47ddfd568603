// Пакет service — бизнес-логика Contract Review Workflow Engine:
// создание и согласование workflow, реестр документов, дашборды,
// настройки и напоминания о старении.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bigkaa/contractflow/internal/repository"
)

// Ошибки сервисного слоя. API-слой отображает их в HTTP-статусы.
var (
	// ErrNotFound — сущность не найдена.
	ErrNotFound = errors.New("не найдено")
	// ErrPermissionDenied — у пользователя нет прав на операцию.
	ErrPermissionDenied = errors.New("доступ запрещён")
	// ErrValidation — входные данные не прошли проверку.
	ErrValidation = errors.New("ошибка валидации")
	// ErrGoldenConflict — попытка добавить второй golden-документ.
	ErrGoldenConflict = fmt.Errorf("%w: у workflow уже есть golden-документ", ErrValidation)
)

// validationf оборачивает ErrValidation с форматированным сообщением.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Store — фабрика репозиториев и транзакций.
// Реализуется repository.Store; в тестах подменяется in-memory реализацией.
type Store interface {
	// Repos возвращает репозитории вне транзакции.
	Repos() *repository.Repos
	// WithinTx выполняет fn в одной транзакции.
	WithinTx(ctx context.Context, fn func(r *repository.Repos) error) error
}

// mapRepoErr переводит ошибки репозитория в ошибки сервисного слоя.
func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
