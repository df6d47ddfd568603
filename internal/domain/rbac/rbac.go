// Пакет rbac — статическая таблица роль → набор разрешений.
// Эффективный набор разрешений пользователя — объединение по всем его ролям.
// Неизвестные роли не дают разрешений и не являются ошибкой.
package rbac

import "github.com/bigkaa/contractflow/internal/domain/model"

// Permission — токен разрешения.
type Permission string

// Разрешения, используемые ядром.
const (
	PermWorkflowCreate    Permission = "workflow:create"
	PermWorkflowViewAll   Permission = "workflow:view_all"
	PermWorkflowManageAll Permission = "workflow:manage_all"
	PermDashboardFull     Permission = "dashboard:full"
	PermAdminSettings     Permission = "admin:settings"
	PermAdminRoles        Permission = "admin:roles"
	PermSystemReminders   Permission = "system:reminders"
)

// RoleAdmin — административная роль с полным набором разрешений.
const RoleAdmin = "Admin"

// rolePermissions — неизменяемая таблица роль → разрешения.
// Конструируется один раз при старте процесса. Динамические таблицы
// roles/user_roles в БД хранят назначения ролей, а не эту таблицу.
var rolePermissions = map[string][]Permission{
	RoleAdmin: {
		PermWorkflowCreate,
		PermWorkflowViewAll,
		PermWorkflowManageAll,
		PermDashboardFull,
		PermAdminSettings,
		PermAdminRoles,
		PermSystemReminders,
	},
	"Customer Service": {
		PermWorkflowCreate,
	},
}

// PermissionsOf вычисляет эффективный набор разрешений
// как объединение разрешений всех ролей идентичности.
func PermissionsOf(identity model.Identity) map[Permission]bool {
	perms := make(map[Permission]bool)
	for role := range identity.Roles {
		for _, p := range rolePermissions[role] {
			perms[p] = true
		}
	}
	return perms
}

// HasPermission проверяет наличие разрешения у идентичности.
func HasPermission(identity model.Identity, perm Permission) bool {
	for role := range identity.Roles {
		for _, p := range rolePermissions[role] {
			if p == perm {
				return true
			}
		}
	}
	return false
}
