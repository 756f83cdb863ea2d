package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/n1k0r/librenotes-server/internal/auth"
	"github.com/n1k0r/librenotes-server/internal/domain"
	"github.com/n1k0r/librenotes-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register new user",
		Description:   "Creates an account when open registration is enabled and signs it in",
		Tags:          []string{"Authentication"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens. The old refresh token stops working.",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/logout",
		Summary:       "Logout",
		Description:   "Revokes one of the caller's sessions",
		Tags:          []string{"Authentication"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleLogout)
}

// === DTOs ===

// DeviceInfo contains device metadata for session tracking.
type DeviceInfo struct {
	DeviceType    string `json:"device_type,omitempty" doc:"Device type (mobile, tablet, desktop, web, cli)"`
	Platform      string `json:"platform,omitempty" maxLength:"64" doc:"Platform (iOS, Android, Linux, ...)"`
	ClientName    string `json:"client_name,omitempty" maxLength:"64" doc:"Client application name"`
	ClientVersion string `json:"client_version,omitempty" maxLength:"32" doc:"Client version"`
	DeviceName    string `json:"device_name,omitempty" maxLength:"128" doc:"Human-readable device name"`
}

func (d DeviceInfo) toAuth() auth.DeviceInfo {
	return auth.DeviceInfo(d)
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username   string     `json:"username" doc:"Username, 3 to 150 characters, case-insensitive"`
	Password   string     `json:"password" doc:"Password, at least 8 characters"`
	DeviceInfo DeviceInfo `json:"device_info,omitempty" doc:"Client device info"`
}

// CredentialsInput wraps register and login requests with proxy headers.
type CredentialsInput struct {
	Body          CredentialsRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string     `json:"refresh_token" doc:"Refresh token"`
	DeviceInfo   DeviceInfo `json:"device_info,omitempty" doc:"Updated device info"`
}

// RefreshInput wraps the refresh request with headers for Huma.
type RefreshInput struct {
	Body          RefreshRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// LogoutRequest is the request body for logout.
type LogoutRequest struct {
	SessionID string `json:"session_id" maxLength:"100" doc:"Session ID to revoke"`
}

// LogoutInput wraps the logout request for Huma.
type LogoutInput struct {
	Authorization string `header:"Authorization"`
	Body          LogoutRequest
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string `json:"id" doc:"User ID"`
	Username    string `json:"username" doc:"Username"`
	CreatedAt   string `json:"created_at" doc:"Account creation time"`
	LastLoginAt string `json:"last_login_at,omitempty" doc:"Last successful login"`
}

// AuthResponse carries a freshly issued token pair.
type AuthResponse struct {
	AccessToken  string       `json:"access_token" doc:"PASETO access token"`
	RefreshToken string       `json:"refresh_token" doc:"Opaque refresh token"`
	TokenType    string       `json:"token_type" doc:"Always Bearer"`
	ExpiresIn    int          `json:"expires_in" doc:"Access token lifetime in seconds"`
	SessionID    string       `json:"session_id" doc:"Session ID"`
	User         UserResponse `json:"user" doc:"Signed-in user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, service.RegisterRequest{
		Username:   input.Body.Username,
		Password:   input.Body.Password,
		DeviceInfo: input.Body.DeviceInfo.toAuth(),
		IPAddress:  clientIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: newAuthResponse(resp)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *CredentialsInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Username:   input.Body.Username,
		Password:   input.Body.Password,
		DeviceInfo: input.Body.DeviceInfo.toAuth(),
		IPAddress:  clientIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: newAuthResponse(resp)}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.RefreshTokens(ctx, service.RefreshRequest{
		RefreshToken: input.Body.RefreshToken,
		DeviceInfo:   input.Body.DeviceInfo.toAuth(),
		IPAddress:    clientIP(input.XForwardedFor, input.XRealIP),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: newAuthResponse(resp)}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *LogoutInput) (*struct{}, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.Logout(ctx, userID, input.Body.SessionID); err != nil {
		return nil, err
	}
	return nil, nil
}

func newAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		SessionID:    resp.SessionID,
		User:         newUserResponse(resp.User),
	}
}

func newUserResponse(u *domain.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: domain.FormatTimestamp(u.CreatedAt),
	}
	if !u.LastLoginAt.IsZero() {
		resp.LastLoginAt = domain.FormatTimestamp(u.LastLoginAt)
	}
	return resp
}
