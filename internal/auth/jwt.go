package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const issuer = "table-booking"

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken подписывает HS256-токен для сессии. Используется CLI и тестами;
// в проде токены выпускает внешний сервис авторизации с тем же секретом.
func IssueToken(secret []byte, s Session, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrNoSecret
	}
	if _, err := NewSession(s.UserID, s.Role); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		Role: string(s.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken проверяет подпись и срок действия и собирает Session.
func ParseToken(secret []byte, token string) (Session, error) {
	if len(secret) == 0 {
		return Session{}, ErrNoSecret
	}
	if token == "" {
		return Session{}, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Session{}, ErrInvalidToken
	}

	s, err := NewSession(claims.Subject, Role(claims.Role))
	if err != nil {
		return Session{}, errors.Join(ErrInvalidToken, err)
	}
	return s, nil
}
