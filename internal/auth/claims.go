package auth

import (
	"time"
)

// AccessClaims are the claims inside a v4.local access token.
type AccessClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// DeviceInfo describes the client a session belongs to. All fields are
// optional; they only label sessions for the user.
type DeviceInfo struct {
	DeviceType    string `json:"device_type,omitempty" validate:"omitempty,oneof=mobile tablet desktop web cli"`
	Platform      string `json:"platform,omitempty" validate:"max=64"`
	ClientName    string `json:"client_name,omitempty" validate:"max=64"`
	ClientVersion string `json:"client_version,omitempty" validate:"max=32"`
	DeviceName    string `json:"device_name,omitempty" validate:"max=128"`
}

// IsEmpty reports whether the client sent no device details at all.
func (d DeviceInfo) IsEmpty() bool {
	return d == DeviceInfo{}
}
