package guard

import (
	"testing"

	"blog_auth/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	admin := []models.Role{models.RoleAdmin}

	tests := []struct {
		name     string
		role     models.Role
		required []models.Role
		wantErr  error
	}{
		{"no requirement, no role", "", nil, nil},
		{"no requirement, user", models.RoleUser, []models.Role{}, nil},
		{"admin only, admin", models.RoleAdmin, admin, nil},
		{"admin only, user", models.RoleUser, admin, ErrForbidden},
		{"admin only, missing role", "", admin, ErrForbidden},
		{"admin only, unknown role", models.Role("ROOT"), admin, ErrForbidden},
		{"either role, user", models.RoleUser, []models.Role{models.RoleUser, models.RoleAdmin}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantErr, Authorize(tt.role, tt.required))
		})
	}
}

func TestAuthorizeOp_PolicyTable(t *testing.T) {
	assert.ErrorIs(t, AuthorizeOp(models.RoleUser, OpDeleteUser), ErrForbidden)
	assert.ErrorIs(t, AuthorizeOp(models.RoleUser, OpListUsers), ErrForbidden)
	assert.NoError(t, AuthorizeOp(models.RoleAdmin, OpDeleteUser))
	assert.NoError(t, AuthorizeOp(models.RoleAdmin, OpListUsers))

	assert.NoError(t, AuthorizeOp(models.RoleUser, OpGetProfile))
	assert.NoError(t, AuthorizeOp(models.RoleUser, OpLogout))
}
