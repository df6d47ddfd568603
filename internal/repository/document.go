package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// DocumentRepository — интерфейс для таблицы workflow_documents.
type DocumentRepository interface {
	// Create вставляет документ. Нарушение уникальности golden — ErrConflict.
	Create(ctx context.Context, d *model.Document) error
	// ListByWorkflow возвращает документы workflow в порядке версий.
	ListByWorkflow(ctx context.Context, workflowID string) ([]model.Document, error)
	// CountGolden считает golden-документы workflow.
	CountGolden(ctx context.Context, workflowID string) (int, error)
	// MaxVersion возвращает максимальный номер версии документа workflow
	// (0, если документов ещё нет).
	MaxVersion(ctx context.Context, workflowID string) (int, error)
}

// documentRepo — реализация DocumentRepository.
type documentRepo struct {
	db DBTX
}

// NewDocumentRepository создаёт репозиторий документов.
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepo{db: db}
}

// Create вставляет документ.
func (r *documentRepo) Create(ctx context.Context, d *model.Document) error {
	query := `
		INSERT INTO workflow_documents (doc_id, workflow_id, file_path, is_golden, version, note, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.WorkflowID, d.FilePath, d.IsGolden, d.Version, d.Note, d.UploadedBy, d.UploadedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка вставки документа: %w", err)
	}
	return nil
}

// ListByWorkflow возвращает документы workflow в порядке версий.
func (r *documentRepo) ListByWorkflow(ctx context.Context, workflowID string) ([]model.Document, error) {
	query := `
		SELECT doc_id, workflow_id, file_path, is_golden, version, note, uploaded_by, uploaded_at
		FROM workflow_documents
		WHERE workflow_id = $1
		ORDER BY version, uploaded_at`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения документов workflow %s: %w", workflowID, err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		err := rows.Scan(&d.ID, &d.WorkflowID, &d.FilePath, &d.IsGolden, &d.Version, &d.Note, &d.UploadedBy, &d.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования документа: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// CountGolden считает golden-документы workflow.
func (r *documentRepo) CountGolden(ctx context.Context, workflowID string) (int, error) {
	query := `SELECT COUNT(*) FROM workflow_documents WHERE workflow_id = $1 AND is_golden`

	var count int
	if err := r.db.QueryRow(ctx, query, workflowID).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта golden-документов workflow %s: %w", workflowID, err)
	}
	return count, nil
}

// MaxVersion возвращает максимальный номер версии документа workflow.
func (r *documentRepo) MaxVersion(ctx context.Context, workflowID string) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM workflow_documents WHERE workflow_id = $1`

	var version int
	if err := r.db.QueryRow(ctx, query, workflowID).Scan(&version); err != nil {
		return 0, fmt.Errorf("ошибка получения версии документа workflow %s: %w", workflowID, err)
	}
	return version, nil
}
