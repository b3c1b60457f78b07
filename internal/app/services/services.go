package services

import (
	"context"

	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
)

// AuthService handles authentication and device session issuance
type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, deviceInfo, ipAddress string) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, deviceInfo, ipAddress string) (*dto.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID int64, sessionToken string) error
	ValidatePassword(password string) error
}

// SessionService manages single-device sessions
type SessionService interface {
	IssueSession(ctx context.Context, user *models.User, deviceInfo, ipAddress string) (string, error)
	ValidateSession(ctx context.Context, sessionToken string, userID int64, role models.RoleType) error
	InvalidateSession(ctx context.Context, sessionToken string) error
	InvalidateUserSessions(ctx context.Context, userID int64) (int64, error)
	GetActiveSessions(ctx context.Context, userID int64) ([]models.UserSession, error)
	CleanupExpiredSessions(ctx context.Context) (int64, error)
}

// UserService handles user profile and admin user management
type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error)
	GetUserByID(ctx context.Context, id int64) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, page, pageSize int) (*dto.UserListResponse, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
}
