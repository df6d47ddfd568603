package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/bigkaa/contractflow/internal/domain/model"
	"github.com/bigkaa/contractflow/internal/domain/rbac"
	"github.com/bigkaa/contractflow/internal/repository"
)

// roleNameRe — допустимые имена ролей: латиница, цифры и пробелы.
var roleNameRe = regexp.MustCompile(`^[A-Za-z0-9 ]+$`)

// RoleService — управление ролями и их привязками к пользователям.
type RoleService struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewRoleService создаёт сервис ролей.
func NewRoleService(store Store, logger *slog.Logger) *RoleService {
	return &RoleService{
		store:  store,
		logger: logger.With("component", "roles"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List возвращает все роли. Требует admin:roles.
func (s *RoleService) List(ctx context.Context, identity model.Identity) ([]string, error) {
	if !rbac.HasPermission(identity, rbac.PermAdminRoles) {
		return nil, ErrPermissionDenied
	}
	return s.store.Repos().Roles.List(ctx)
}

// Create создаёт роль. Требует admin:roles. Повторное создание — no-op.
func (s *RoleService) Create(ctx context.Context, identity model.Identity, name string) error {
	if !rbac.HasPermission(identity, rbac.PermAdminRoles) {
		return ErrPermissionDenied
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return validationf("имя роли должно содержать от 1 до 100 символов")
	}
	if !roleNameRe.MatchString(name) {
		return validationf("имя роли %q содержит недопустимые символы", name)
	}

	now := s.now()
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		if err := r.Roles.Create(ctx, name); err != nil {
			return err
		}
		return audit(ctx, r, "role", name, "created", identity.User, nil, now)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Роль создана", "role", name, "created_by", identity.User)
	return nil
}

// UserRoles возвращает привязки ролей. Требует admin:roles.
// user == "" — по всем пользователям.
func (s *RoleService) UserRoles(ctx context.Context, identity model.Identity, user string) ([]model.UserRole, error) {
	if !rbac.HasPermission(identity, rbac.PermAdminRoles) {
		return nil, ErrPermissionDenied
	}
	return s.store.Repos().Roles.ListUserRoles(ctx, user)
}

// UpdateUserRoles заменяет набор ролей пользователя. Требует admin:roles.
// Все назначаемые роли должны существовать.
func (s *RoleService) UpdateUserRoles(ctx context.Context, identity model.Identity, user string, roles []string) error {
	if !rbac.HasPermission(identity, rbac.PermAdminRoles) {
		return ErrPermissionDenied
	}
	user = strings.TrimSpace(user)
	if user == "" {
		return validationf("не указано имя пользователя")
	}

	now := s.now()
	err := s.store.WithinTx(ctx, func(r *repository.Repos) error {
		known, err := r.Roles.List(ctx)
		if err != nil {
			return err
		}
		knownSet := make(map[string]bool, len(known))
		for _, name := range known {
			knownSet[name] = true
		}
		for _, name := range roles {
			if !knownSet[name] {
				return validationf("неизвестная роль %q", name)
			}
		}

		if err := r.Roles.ReplaceUserRoles(ctx, user, roles); err != nil {
			return err
		}

		details := map[string]any{"roles": roles}
		return audit(ctx, r, "user_roles", user, "updated", identity.User, details, now)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Роли пользователя изменены", "user", user, "roles", roles, "changed_by", identity.User)
	return nil
}
