package models

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

var ErrInvalidRole = errors.New("invalid role")

// * ParseRole принимает только USER и ADMIN (регистр не важен)
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}

	return "", ErrInvalidRole
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                 int64
	Email              string
	Name               string
	PassHash           string
	Role               Role
	HashedRefreshToken *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// * Public возвращает пользователя без хешей
func (u User) Public() PublicUser {
	return PublicUser{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
	}
}

type PublicUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// * Principal личность, извлеченная из проверенного access токена
type Principal struct {
	UserID int64
	Email  string
	Role   Role
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

const (
	EventUserRegistered = "user.registered"
	EventUserDeleted    = "user.deleted"
)

type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
