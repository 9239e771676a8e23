package auth

import (
	"errors"
	"strings"
)

// Ошибки проверки сессии.
var (
	ErrMissingUser  = errors.New("session has no user id")
	ErrInvalidRole  = errors.New("invalid role")
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

// Роль пользователя в системе.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRestaurant:
		return true
	default:
		return false
	}
}

// Session: явный контекст вызывающего, который транспорт передаёт в ядро
// вместо глобального состояния.
type Session struct {
	UserID string
	Role   Role
}

// NewSession:
//   - обрезает пробелы в идентификаторе;
//   - проверяет, что он не пустой;
//   - проверяет роль.
func NewSession(userID string, role Role) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, ErrMissingUser
	}
	if !role.Valid() {
		return Session{}, ErrInvalidRole
	}
	return Session{UserID: userID, Role: role}, nil
}

func (s Session) Is(role Role) bool {
	return s.Role == role
}
