package dto

import (
	"time"

	"github.com/deniz/learnstack/internal/app/models"
)

// SessionResponse represents a device session for admin listings
type SessionResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	RoleType     string    `json:"roleType"`
	DeviceInfo   string    `json:"deviceInfo,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewSessionResponse maps a session model to its response representation.
// The session token itself is never exposed.
func NewSessionResponse(s *models.UserSession) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		RoleType:     string(s.RoleType),
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
	if s.DeviceInfo != nil {
		resp.DeviceInfo = *s.DeviceInfo
	}
	if s.IPAddress != nil {
		resp.IPAddress = *s.IPAddress
	}
	return resp
}

// SessionListResponse wraps a user's active device sessions
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}

// RevokeSessionsResponse reports how many sessions were invalidated
type RevokeSessionsResponse struct {
	RevokedCount int64 `json:"revokedCount"`
}
