package guard

import (
	"errors"
	"slices"

	"blog_auth/internal/models"
)

var ErrForbidden = errors.New("access denied: insufficient role")

type Operation string

const (
	OpGetProfile Operation = "auth.profile"
	OpLogout     Operation = "auth.logout"
	OpListUsers  Operation = "users.list"
	OpDeleteUser Operation = "users.delete"
)

// * Policies статическая таблица: операция -> роли, которым она разрешена.
// Операции без записи доступны любому аутентифицированному пользователю.
var Policies = map[Operation][]models.Role{
	OpListUsers:  {models.RoleAdmin},
	OpDeleteUser: {models.RoleAdmin},
}

// * Authorize чистый предикат без состояния
func Authorize(role models.Role, required []models.Role) error {
	if len(required) == 0 {
		return nil
	}

	if role == "" || !slices.Contains(required, role) {
		return ErrForbidden
	}

	return nil
}

func RequiredRoles(op Operation) []models.Role {
	return Policies[op]
}

func AuthorizeOp(role models.Role, op Operation) error {
	return Authorize(role, RequiredRoles(op))
}
