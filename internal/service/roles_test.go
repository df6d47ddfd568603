package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bigkaa/contractflow/internal/domain/model"
)

func TestRolesPermission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := model.NewIdentity("alice", "Customer Service")

	if _, err := env.roles.List(ctx, user); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("List без admin:roles: ожидали ErrPermissionDenied, получили %v", err)
	}
	if err := env.roles.Create(ctx, user, "Finance"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Create без admin:roles: ожидали ErrPermissionDenied, получили %v", err)
	}
	if err := env.roles.UpdateUserRoles(ctx, user, "bob", nil); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("UpdateUserRoles без admin:roles: ожидали ErrPermissionDenied, получили %v", err)
	}
}

func TestRoleCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := model.NewIdentity("root", "Admin")

	if err := env.roles.Create(ctx, admin, "Finance"); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	// Повторное создание — no-op
	if err := env.roles.Create(ctx, admin, "Finance"); err != nil {
		t.Fatalf("повторный Create() ошибка: %v", err)
	}

	roles, err := env.roles.List(ctx, admin)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(roles) != 6 {
		t.Errorf("List вернул %d ролей, хотели 6", len(roles))
	}
}

func TestRoleCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := model.NewIdentity("root", "Admin")

	tests := []struct {
		name string
		role string
	}{
		{"пустое имя", ""},
		{"только пробелы", "   "},
		{"слишком длинное", strings.Repeat("a", 101)},
		{"кириллица", "Финансы"},
		{"спецсимволы", "Fin@nce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := env.roles.Create(ctx, admin, tt.role); !errors.Is(err, ErrValidation) {
				t.Errorf("Create(%q): ожидали ErrValidation, получили %v", tt.role, err)
			}
		})
	}
}

func TestUpdateUserRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := model.NewIdentity("root", "Admin")

	if err := env.roles.UpdateUserRoles(ctx, admin, "bob", []string{"Technical", "Legal"}); err != nil {
		t.Fatalf("UpdateUserRoles() ошибка: %v", err)
	}

	bindings, err := env.roles.UserRoles(ctx, admin, "bob")
	if err != nil {
		t.Fatalf("UserRoles() ошибка: %v", err)
	}
	if len(bindings) != 2 {
		t.Errorf("UserRoles вернул %d привязок, хотели 2", len(bindings))
	}

	// Неизвестная роль отклоняется
	err = env.roles.UpdateUserRoles(ctx, admin, "bob", []string{"Nonexistent"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("неизвестная роль: ожидали ErrValidation, получили %v", err)
	}

	// Замена набора
	if err := env.roles.UpdateUserRoles(ctx, admin, "bob", []string{"Commercial"}); err != nil {
		t.Fatalf("UpdateUserRoles() замена ошибка: %v", err)
	}
	bindings2, _ := env.roles.UserRoles(ctx, admin, "bob")
	if len(bindings2) != 1 || bindings2[0].RoleName != "Commercial" {
		t.Errorf("после замены привязки = %+v", bindings2)
	}
}
