package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/repository"
)

// Папки реестра документов по статусу workflow.
const (
	folderInProcess = "InProcess"
	folderApproved  = "Approved"
	folderRejected  = "Rejected"
	folderCancelled = "Cancelled"
)

// DocumentLedger — реестр документов: локальное хранилище файлов
// плюс синтез UNC-пути, записываемого в базу.
type DocumentLedger struct {
	storageRoot string
	uncBase     string
	logger      *slog.Logger
}

// NewDocumentLedger создаёт реестр документов.
func NewDocumentLedger(storageRoot, uncBase string, logger *slog.Logger) *DocumentLedger {
	return &DocumentLedger{
		storageRoot: storageRoot,
		uncBase:     uncBase,
		logger:      logger.With("component", "documents"),
	}
}

// Add сохраняет файл в локальном хранилище и регистрирует документ.
// Вызывается внутри транзакции workflow-операции: при откате транзакции
// файл остаётся на диске, но запись в реестре не появляется.
func (l *DocumentLedger) Add(ctx context.Context, r *repository.Repos, w *model.Workflow, filename string, content []byte, isGolden bool, note *string, uploadedBy string, now time.Time) (*model.Document, error) {
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	if isGolden {
		golden, err := r.Documents.CountGolden(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		if golden > 0 {
			return nil, ErrGoldenConflict
		}
	}

	version, err := r.Documents.MaxVersion(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	folder := statusFolder(w.CurrentStatus)
	if err := l.writeFile(folder, w.ID, filename, content); err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:         uuid.New().String(),
		WorkflowID: w.ID,
		FilePath:   l.uncPath(folder, filename),
		IsGolden:   isGolden,
		Version:    version + 1,
		Note:       note,
		UploadedBy: uploadedBy,
		UploadedAt: now,
	}
	if err := r.Documents.Create(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrGoldenConflict
		}
		return nil, err
	}

	details := map[string]any{"filePath": doc.FilePath, "version": doc.Version, "isGolden": doc.IsGolden}
	if err := audit(ctx, r, "document", doc.ID, "uploaded", uploadedBy, details, now); err != nil {
		return nil, err
	}

	l.logger.Debug("Документ зарегистрирован", "workflow_id", w.ID, "version", doc.Version, "path", doc.FilePath)
	return doc, nil
}

// writeFile сохраняет содержимое в локальном хранилище.
// Файлы разложены по папкам статуса и workflow, чтобы версии
// разных workflow с одинаковым именем не затирали друг друга.
func (l *DocumentLedger) writeFile(folder, workflowID, filename string, content []byte) error {
	dir := filepath.Join(l.storageRoot, folder, workflowID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ошибка создания каталога %s: %w", dir, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("ошибка записи файла %s: %w", path, err)
	}
	return nil
}

// uncPath синтезирует UNC-путь документа для реестра.
// Разделитель — обратный слэш независимо от ОС сервера.
func (l *DocumentLedger) uncPath(folder, filename string) string {
	return l.uncBase + `\` + folder + `\` + filename
}

// statusFolder возвращает папку реестра для статуса workflow.
func statusFolder(status string) string {
	switch status {
	case model.StatusArchived:
		return folderApproved
	case model.StatusRejected:
		return folderRejected
	case model.StatusCancelled:
		return folderCancelled
	default:
		return folderInProcess
	}
}

// validateFilename проверяет имя файла: только имя без пути,
// без NUL-байтов и служебных имён.
func validateFilename(filename string) error {
	if filename == "" || filename == "." || filename == ".." {
		return validationf("недопустимое имя файла %q", filename)
	}
	if strings.ContainsRune(filename, 0) {
		return validationf("имя файла содержит NUL-байт")
	}
	if filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return validationf("имя файла %q содержит элементы пути", filename)
	}
	return nil
}
