package models

import (
	"time"
)

// UserSession defines a device session based on the 'user_sessions' table.
// At most one row per user is active at a time; a new login flips every
// previously active row to inactive before inserting its own.
type UserSession struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	RoleType     RoleType  `json:"roleType" db:"role_type"`
	SessionToken string    `json:"sessionToken" db:"session_token"`
	DeviceInfo   *string   `json:"deviceInfo,omitempty" db:"device_info"`
	IPAddress    *string   `json:"ipAddress,omitempty" db:"ip_address"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	LastActivity time.Time `json:"lastActivity" db:"last_activity"`
	IsActive     bool      `json:"isActive" db:"is_active"`
}

// RefreshToken defines a persisted refresh token based on the 'refresh_tokens'
// table. Each refresh token is tied to the device session that issued it.
type RefreshToken struct {
	Token        string    `json:"-" db:"token"`
	UserID       int64     `json:"userId" db:"user_id"`
	SessionToken string    `json:"-" db:"session_token"`
	ExpiryDate   time.Time `json:"expiryDate" db:"expiry_date"`
	IsRevoked    bool      `json:"isRevoked" db:"is_revoked"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
