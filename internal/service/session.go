package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/n1k0r/librenotes-server/internal/auth"
	"github.com/n1k0r/librenotes-server/internal/domain"
	domainerrors "github.com/n1k0r/librenotes-server/internal/errors"
	"github.com/n1k0r/librenotes-server/internal/id"
	"github.com/n1k0r/librenotes-server/internal/store"
)

// SessionService tracks signed-in devices. Each session holds the hash of
// its current refresh token.
type SessionService struct {
	store        store.Store
	tokenService *auth.TokenService
	logger       *slog.Logger
	now          store.Clock
}

// NewSessionService creates a new session management service.
func NewSessionService(st store.Store, tokenService *auth.TokenService, logger *slog.Logger) *SessionService {
	return &SessionService{
		store:        st,
		tokenService: tokenService,
		logger:       orDiscard(logger),
		now:          store.SystemClock,
	}
}

// CreateSession signs a device in and stores its session.
func (s *SessionService) CreateSession(
	ctx context.Context,
	user *domain.User,
	deviceInfo auth.DeviceInfo,
	ipAddress string,
) (*SessionResponse, error) {
	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	sessionID, err := id.Generate(id.Session)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		RefreshTokenHash: auth.HashRefreshToken(pair.refresh),
		ExpiresAt:        now.Add(s.tokenService.RefreshTokenDuration()),
		CreatedAt:        now,
		LastSeenAt:       now,
		IPAddress:        ipAddress,
	}
	applyDeviceInfo(session, deviceInfo)

	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return s.response(pair, sessionID), nil
}

// RefreshSession trades a refresh token for a fresh token pair on the same
// session.
func (s *SessionService) RefreshSession(
	ctx context.Context,
	refreshToken string,
	deviceInfo auth.DeviceInfo,
	ipAddress string,
) (*SessionResponse, *domain.User, error) {
	session, err := s.store.GetSessionByRefreshToken(ctx, auth.HashRefreshToken(refreshToken))
	if err != nil {
		return nil, nil, domainerrors.TokenExpired("invalid or expired refresh token").WithCause(err)
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if err != nil {
		_ = s.store.DeleteSession(ctx, session.ID)
		return nil, nil, domainerrors.Unauthorized("user not found").WithCause(err)
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	// The previous refresh token stops matching here.
	session.RefreshTokenHash = auth.HashRefreshToken(pair.refresh)
	session.LastSeenAt = s.now()
	if !deviceInfo.IsEmpty() {
		applyDeviceInfo(session, deviceInfo)
	}
	if ipAddress != "" {
		session.IPAddress = ipAddress
	}

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("update session: %w", err)
	}

	return s.response(pair, session.ID), user, nil
}

// DeleteSession ends a session (logout).
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("session deleted", "session_id", sessionID)
	return nil
}

// ListUserSessions returns all sessions of a user, most recently seen first.
func (s *SessionService) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := s.store.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return sessions, nil
}

// DeleteExpiredSessions removes all expired sessions.
// The DI container runs it hourly.
func (s *SessionService) DeleteExpiredSessions(ctx context.Context) (int, error) {
	count, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if count > 0 {
		s.logger.Info("deleted expired sessions", "count", count)
	}
	return count, nil
}

type tokenPair struct {
	access, refresh string
}

func (s *SessionService) issue(user *domain.User) (tokenPair, error) {
	access, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return tokenPair{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := s.tokenService.GenerateRefreshToken()
	if err != nil {
		return tokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return tokenPair{access: access, refresh: refresh}, nil
}

func (s *SessionService) response(pair tokenPair, sessionID string) *SessionResponse {
	return &SessionResponse{
		AccessToken:  pair.access,
		RefreshToken: pair.refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenService.AccessTokenDuration().Seconds()),
		SessionID:    sessionID,
	}
}

// SessionResponse contains session tokens and metadata.
type SessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // seconds until the access token expires
	SessionID    string `json:"session_id"`
}

func applyDeviceInfo(session *domain.Session, info auth.DeviceInfo) {
	session.DeviceType = info.DeviceType
	session.Platform = info.Platform
	session.ClientName = info.ClientName
	session.ClientVersion = info.ClientVersion
	session.DeviceName = info.DeviceName
}
