package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/paywall/internal/config"
	"github.com/jmehdipour/paywall/internal/model"
)

type fakeAdmins struct {
	users map[string]*model.AdminUser
	err   error
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*model.AdminUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[email], nil
}

func (f *fakeAdmins) Upsert(context.Context, string, string) error { return nil }

func newService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	admins := &fakeAdmins{users: map[string]*model.AdminUser{
		"admin@paywall.test": {ID: 1, Email: "admin@paywall.test", PasswordHash: hash},
	}}
	return NewService(admins, config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour, Issuer: "paywall"})
}

func TestLogin(t *testing.T) {
	s := newService(t)

	tok, err := s.Login(context.Background(), " Admin@Paywall.test ", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, 5*time.Second)

	claims, err := s.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.AdminID)
	assert.Equal(t, "admin@paywall.test", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestLogin_Rejects(t *testing.T) {
	s := newService(t)

	_, err := s.Login(context.Background(), "admin@paywall.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(context.Background(), "nobody@paywall.test", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_RepoError(t *testing.T) {
	s := NewService(&fakeAdmins{err: errors.New("db down")}, config.AuthConfig{JWTSecret: "x"})
	_, err := s.Login(context.Background(), "a@b.c", "p")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestParse_Rejects(t *testing.T) {
	s := newService(t)
	other := NewService(&fakeAdmins{}, config.AuthConfig{JWTSecret: "other-secret", Issuer: "paywall"})
	foreign, err := other.Issue(1, "admin@paywall.test")
	require.NoError(t, err)

	past := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "paywall",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	stale, err := past.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": foreign.AccessToken,
		"expired":      stale,
		"alg none":     unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPassword("pw", h))
	assert.False(t, CheckPassword("pw2", h))
	assert.False(t, CheckPassword("pw", "not-a-hash"))
}
