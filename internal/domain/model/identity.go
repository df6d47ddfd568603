package model

// Identity — разрешённая идентичность вызывающего: имя пользователя
// и набор ролей. Формируется middleware аутентификации или
// планировщиком (синтетический системный пользователь).
type Identity struct {
	// User — имя пользователя
	User string
	// Roles — набор ролей
	Roles map[string]bool
}

// NewIdentity создаёт Identity из имени и списка ролей.
func NewIdentity(user string, roles ...string) Identity {
	set := make(map[string]bool, len(roles))
	for _, r := range roles {
		if r != "" {
			set[r] = true
		}
	}
	return Identity{User: user, Roles: set}
}

// HasRole проверяет наличие роли.
func (id Identity) HasRole(role string) bool {
	return id.Roles[role]
}

// RoleList возвращает роли как срез (порядок не определён).
func (id Identity) RoleList() []string {
	roles := make([]string, 0, len(id.Roles))
	for r := range id.Roles {
		roles = append(roles, r)
	}
	return roles
}
