package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_Flow(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username":    "Alice",
		"password":    "correct horse battery",
		"device_info": map[string]any{"device_type": "cli", "platform": "Linux"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var reg AuthResponse
	decode(t, resp, &reg)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.Equal(t, 900, reg.ExpiresIn)
	assert.Equal(t, "Alice", reg.User.Username)
	assert.True(t, strings.HasPrefix(reg.User.ID, "user-"))

	// Usernames are case-insensitive.
	resp = ts.api.Post("/api/v1/auth/login", map[string]any{
		"username": "alice",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var login AuthResponse
	decode(t, resp, &login)
	assert.NotEqual(t, reg.SessionID, login.SessionID)

	bearer := "Authorization: Bearer " + login.AccessToken
	resp = ts.api.Get("/api/v1/users/me", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	var me UserResponse
	decode(t, resp, &me)
	assert.Equal(t, reg.User.ID, me.ID)
	assert.NotEmpty(t, me.LastLoginAt)

	// Refresh rotates the token; the old one is spent.
	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": login.RefreshToken})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var refreshed AuthResponse
	decode(t, resp, &refreshed)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/auth/logout", bearer, map[string]any{"session_id": refreshed.SessionID})
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Post("/api/v1/auth/refresh", map[string]any{"refresh_token": refreshed.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuth_Errors(t *testing.T) {
	ts := newTestServer(t)
	bearer := ts.register(t, "alice")

	tests := []struct {
		name   string
		path   string
		args   []any
		status int
		code   string
	}{
		{
			name:   "duplicate username",
			path:   "/api/v1/auth/register",
			args:   []any{map[string]any{"username": "ALICE", "password": "another password"}},
			status: http.StatusConflict,
			code:   "ALREADY_EXISTS",
		},
		{
			name:   "short password",
			path:   "/api/v1/auth/register",
			args:   []any{map[string]any{"username": "bob", "password": "short"}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "missing password",
			path:   "/api/v1/auth/register",
			args:   []any{map[string]any{"username": "bob"}},
			status: http.StatusBadRequest,
			code:   "VALIDATION_ERROR",
		},
		{
			name:   "wrong password",
			path:   "/api/v1/auth/login",
			args:   []any{map[string]any{"username": "alice", "password": "wrong password"}},
			status: http.StatusUnauthorized,
			code:   "INVALID_CREDENTIALS",
		},
		{
			name:   "logout someone else's session",
			path:   "/api/v1/auth/logout",
			args:   []any{bearer, map[string]any{"session_id": "session-unknown"}},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "logout without token",
			path:   "/api/v1/auth/logout",
			args:   []any{map[string]any{"session_id": "session-unknown"}},
			status: http.StatusUnauthorized,
			code:   "UNAUTHORIZED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post(tt.path, tt.args...)
			assert.Equal(t, tt.status, resp.Code, resp.Body.String())
			assert.Equal(t, tt.code, decodeError(t, resp).Code)
		})
	}
}
