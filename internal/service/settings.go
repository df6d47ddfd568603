package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// allowedSettingKeys — единственные настройки, доступные для изменения.
var allowedSettingKeys = map[string]bool{
	"aging_threshold_1": true,
	"aging_threshold_2": true,
	"aging_threshold_3": true,
	"aging_threshold_4": true,
	"aging_threshold_5": true,
}

// SettingsService — чтение и изменение системных настроек.
type SettingsService struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(store Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		logger: logger.With("component", "settings"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает все настройки. Требует admin:settings.
func (s *SettingsService) Get(ctx context.Context, identity model.Identity) (map[string]string, error) {
	if !rbac.HasPermission(identity, rbac.PermAdminSettings) {
		return nil, ErrPermissionDenied
	}
	return s.store.Repos().Settings.GetAll(ctx)
}

// Update изменяет настройки. Требует admin:settings.
// Допускаются только ключи порогов старения с положительными целыми
// значениями; одна недопустимая пара отклоняет весь запрос.
func (s *SettingsService) Update(ctx context.Context, identity model.Identity, updates map[string]string) (map[string]string, error) {
	if !rbac.HasPermission(identity, rbac.PermAdminSettings) {
		return nil, ErrPermissionDenied
	}
	if len(updates) == 0 {
		return nil, validationf("нет настроек для изменения")
	}
	for key, value := range updates {
		if !allowedSettingKeys[key] {
			return nil, validationf("недопустимый ключ настройки %q", key)
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 {
			return nil, validationf("значение %q ключа %s должно быть положительным целым числом", value, key)
		}
	}

	now := s.now()
	var result map[string]string
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		for key, value := range updates {
			if err := r.Settings.Upsert(ctx, key, strings.TrimSpace(value)); err != nil {
				return err
			}
		}

		details := map[string]any{"updated": updates}
		if err := audit(ctx, r, "settings", "system", "updated", identity.User, details, now); err != nil {
			return err
		}

		var err error
		result, err = r.Settings.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Настройки изменены", "updated_by", identity.User, "count", len(updates))
	return result, nil
}
