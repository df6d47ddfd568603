package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository — интерфейс для таблицы system_settings (ключ-значение).
type SettingsRepository interface {
	// GetAll возвращает все настройки.
	GetAll(ctx context.Context) (map[string]string, error)
	// Get возвращает значение настройки. Если не найдена — ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Upsert сохраняет настройку (вставка или обновление).
	Upsert(ctx context.Context, key, value string) error
}

// settingsRepo — реализация SettingsRepository.
type settingsRepo struct {
	db DBTX
}

// NewSettingsRepository создаёт репозиторий настроек.
func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepo{db: db}
}

// GetAll возвращает все настройки.
func (r *settingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	query := `SELECT key, value FROM system_settings ORDER BY key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения настроек: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("ошибка сканирования настройки: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// Get возвращает значение настройки.
func (r *settingsRepo) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM system_settings WHERE key = $1`

	var value string
	if err := r.db.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка получения настройки %s: %w", key, err)
	}
	return value, nil
}

// Upsert сохраняет настройку.
func (r *settingsRepo) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO system_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("ошибка сохранения настройки %s: %w", key, err)
	}
	return nil
}
