package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

// RoleRepository — интерфейс для таблиц roles и user_roles.
type RoleRepository interface {
	// List возвращает имена всех ролей в алфавитном порядке.
	List(ctx context.Context) ([]string, error)
	// Create создаёт роль. Повторное создание — no-op.
	Create(ctx context.Context, name string) error
	// ListUserRoles возвращает привязки ролей.
	// user == "" — по всем пользователям.
	ListUserRoles(ctx context.Context, user string) ([]model.UserRole, error)
	// RolesForUser возвращает имена ролей пользователя.
	RolesForUser(ctx context.Context, user string) ([]string, error)
	// ReplaceUserRoles заменяет набор ролей пользователя.
	ReplaceUserRoles(ctx context.Context, user string, roles []string) error
}

// roleRepo — реализация RoleRepository.
type roleRepo struct {
	db DBTX
}

// NewRoleRepository создаёт репозиторий ролей.
func NewRoleRepository(db DBTX) RoleRepository {
	return &roleRepo{db: db}
}

// List возвращает имена всех ролей.
func (r *roleRepo) List(ctx context.Context) ([]string, error) {
	query := `SELECT role_name FROM roles ORDER BY role_name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ролей: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования роли: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// Create создаёт роль. Повторное создание — no-op.
func (r *roleRepo) Create(ctx context.Context, name string) error {
	query := `INSERT INTO roles (role_name) VALUES ($1) ON CONFLICT (role_name) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("ошибка создания роли %s: %w", name, err)
	}
	return nil
}

// ListUserRoles возвращает привязки ролей.
func (r *roleRepo) ListUserRoles(ctx context.Context, user string) ([]model.UserRole, error) {
	query := `
		SELECT user_name, role_name FROM user_roles
		WHERE $1 = '' OR user_name = $1
		ORDER BY user_name, role_name`

	rows, err := r.db.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения привязок ролей: %w", err)
	}
	defer rows.Close()

	var bindings []model.UserRole
	for rows.Next() {
		var b model.UserRole
		if err := rows.Scan(&b.UserName, &b.RoleName); err != nil {
			return nil, fmt.Errorf("ошибка сканирования привязки роли: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// RolesForUser возвращает имена ролей пользователя.
func (r *roleRepo) RolesForUser(ctx context.Context, user string) ([]string, error) {
	query := `SELECT role_name FROM user_roles WHERE user_name = $1 ORDER BY role_name`

	rows, err := r.db.Query(ctx, query, user)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ролей пользователя %s: %w", user, err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("ошибка сканирования роли пользователя: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// ReplaceUserRoles заменяет набор ролей пользователя.
// Вызывается внутри транзакции сервисным слоем.
func (r *roleRepo) ReplaceUserRoles(ctx context.Context, user string, roles []string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_name = $1`, user); err != nil {
		return fmt.Errorf("ошибка удаления ролей пользователя %s: %w", user, err)
	}
	for _, role := range roles {
		_, err := r.db.Exec(ctx,
			`INSERT INTO user_roles (user_name, role_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			user, role,
		)
		if err != nil {
			return fmt.Errorf("ошибка назначения роли %s пользователю %s: %w", role, user, err)
		}
	}
	return nil
}
