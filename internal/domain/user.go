package domain

import "time"

// User is an account that owns tags and notes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastLoginAt  time.Time `json:"last_login_at,omitzero"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (u *User) InitTimestamps(now time.Time) {
	u.CreatedAt = now
	u.UpdatedAt = now
}

// Session is one signed-in device. The refresh token itself is never stored,
// only its hash.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`

	DeviceType    string `json:"device_type,omitempty"` // mobile, tablet, desktop, web
	Platform      string `json:"platform,omitempty"`
	ClientName    string `json:"client_name,omitempty"`
	ClientVersion string `json:"client_version,omitempty"`
	DeviceName    string `json:"device_name,omitempty"`
}

// IsExpired reports whether the session has reached its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// DisplayName returns a human-readable label for the device.
func (s *Session) DisplayName() string {
	switch {
	case s.DeviceName != "":
		return s.DeviceName
	case s.ClientName != "" && s.Platform != "":
		return s.ClientName + " on " + s.Platform
	case s.Platform != "":
		return s.Platform
	default:
		return "Unknown device"
	}
}
