package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestNewSession(t *testing.T) {
	s, err := NewSession("  user-1 ", RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.True(t, s.Is(RoleCustomer))
	assert.False(t, s.Is(RoleRestaurant))

	_, err = NewSession(" ", RoleCustomer)
	assert.ErrorIs(t, err, ErrMissingUser)

	_, err = NewSession("user-1", Role("admin"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(secret, Session{UserID: "owner-1", Role: RoleRestaurant}, time.Hour)
	require.NoError(t, err)

	s, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: "owner-1", Role: RoleRestaurant}, s)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := IssueToken(secret, Session{UserID: "u", Role: RoleCustomer}, time.Hour)
	require.NoError(t, err)

	expired, err := IssueToken(secret, Session{UserID: "u", Role: RoleCustomer}, -time.Minute)
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Issuer: issuer},
	}).SignedString(secret)
	require.NoError(t, err)

	cases := []struct {
		name   string
		secret []byte
		token  string
		want   error
	}{
		{"empty token", secret, "", ErrMissingToken},
		{"garbage", secret, "not-a-jwt", ErrInvalidToken},
		{"wrong secret", []byte("other"), good, ErrInvalidToken},
		{"expired", secret, expired, ErrInvalidToken},
		{"unknown role", secret, badRole, ErrInvalidToken},
		{"no secret", nil, good, ErrNoSecret},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseToken(tc.secret, tc.token)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestIssueToken_Validates(t *testing.T) {
	_, err := IssueToken(nil, Session{UserID: "u", Role: RoleCustomer}, time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)

	_, err = IssueToken(secret, Session{UserID: "", Role: RoleCustomer}, time.Hour)
	assert.ErrorIs(t, err, ErrMissingUser)
}
