package service

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n1k0r/librenotes-server/internal/auth"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
)

func newTestAuthService(t *testing.T, env *testEnv, openRegistration bool) *AuthService {
	t.Helper()
	key, err := auth.LoadOrGenerateKey(filepath.Join(t.TempDir()))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	sessions := NewSessionService(env.store, tokens, logger)
	return NewAuthService(env.store, tokens, sessions, logger, openRegistration)
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, true)

	reg, err := svc.Register(env.ctx, RegisterRequest{
		Username:   "Alice",
		Password:   "correct horse",
		DeviceInfo: auth.DeviceInfo{DeviceType: "cli", Platform: "Linux"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.NotEmpty(t, reg.AccessToken)
	assert.NotEmpty(t, reg.RefreshToken)

	user, claims, err := svc.VerifyAccessToken(env.ctx, reg.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
	assert.Equal(t, "Alice", claims.Username)

	_, err = svc.Register(env.ctx, RegisterRequest{Username: "alice", Password: "another password"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	login, err := svc.Login(env.ctx, LoginRequest{Username: "ALICE", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.NotEqual(t, reg.SessionID, login.SessionID)

	_, err = svc.Login(env.ctx, LoginRequest{Username: "alice", Password: "wrong horse"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
	_, err = svc.Login(env.ctx, LoginRequest{Username: "nobody", Password: "wrong horse"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, true)

	_, err := svc.Register(env.ctx, RegisterRequest{Username: "al", Password: "long enough"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = svc.Register(env.ctx, RegisterRequest{Username: "alice", Password: "short"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	_, err = svc.Register(env.ctx, RegisterRequest{
		Username:   "alice",
		Password:   "long enough",
		DeviceInfo: auth.DeviceInfo{DeviceType: "toaster"},
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_ClosedRegistration(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, false)

	_, err := svc.Register(env.ctx, RegisterRequest{Username: "alice", Password: "long enough"})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, true)

	reg, err := svc.Register(env.ctx, RegisterRequest{Username: "alice", Password: "long enough"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshTokens(env.ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	require.NoError(t, err)
	assert.Equal(t, reg.SessionID, refreshed.SessionID)
	assert.NotEqual(t, reg.RefreshToken, refreshed.RefreshToken)

	_, err = svc.RefreshTokens(env.ctx, RefreshRequest{RefreshToken: reg.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired, "old refresh token is spent")

	_, err = svc.RefreshTokens(env.ctx, RefreshRequest{RefreshToken: refreshed.RefreshToken})
	assert.NoError(t, err)
}

func TestAuthService_Logout(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, true)

	alice, err := svc.Register(env.ctx, RegisterRequest{Username: "alice", Password: "long enough"})
	require.NoError(t, err)
	bob, err := svc.Register(env.ctx, RegisterRequest{Username: "bob", Password: "long enough"})
	require.NoError(t, err)

	err = svc.Logout(env.ctx, alice.User.ID, bob.SessionID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, svc.Logout(env.ctx, alice.User.ID, alice.SessionID))
	_, err = svc.RefreshTokens(env.ctx, RefreshRequest{RefreshToken: alice.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	_, err = svc.RefreshTokens(env.ctx, RefreshRequest{RefreshToken: bob.RefreshToken})
	assert.NoError(t, err)
}

func TestAuthService_VerifyRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	svc := newTestAuthService(t, env, true)

	_, _, err := svc.VerifyAccessToken(env.ctx, "v4.local.garbage")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}
