package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/repositories"
)

// sessionService implements SessionService on top of the session repository
type sessionService struct {
	sessionRepo repositories.ISessionRepository
	idleTimeout time.Duration
	logger      zerolog.Logger
}

// NewSessionService creates a new SessionService. idleTimeout is how long a
// session may stay inactive before cleanup deactivates it.
func NewSessionService(sessionRepo repositories.ISessionRepository, idleTimeout time.Duration, logger zerolog.Logger) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		idleTimeout: idleTimeout,
		logger:      logger,
	}
}

// IssueSession creates a new device session for the user, invalidating every
// previously active one. Returns the fresh session token that the caller
// embeds in the access token.
func (s *sessionService) IssueSession(ctx context.Context, user *models.User, deviceInfo, ipAddress string) (string, error) {
	session := &models.UserSession{
		UserID:       user.ID,
		RoleType:     user.RoleType,
		SessionToken: uuid.New().String(),
	}
	if deviceInfo != "" {
		session.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		session.IPAddress = &ipAddress
	}

	if err := s.sessionRepo.Replace(ctx, session); err != nil {
		return "", fmt.Errorf("failed to issue device session: %w", err)
	}

	s.logger.Info().
		Int64("userID", user.ID).
		Str("roleType", string(user.RoleType)).
		Str("ip", ipAddress).
		Msg("New device session issued")

	return session.SessionToken, nil
}

// ValidateSession checks that the session token is still the active session
// for the user and role
func (s *sessionService) ValidateSession(ctx context.Context, sessionToken string, userID int64, role models.RoleType) error {
	return s.sessionRepo.Validate(ctx, sessionToken, userID, role)
}

// InvalidateSession invalidates a single device session
func (s *sessionService) InvalidateSession(ctx context.Context, sessionToken string) error {
	return s.sessionRepo.Deactivate(ctx, sessionToken)
}

// InvalidateUserSessions invalidates every active session of a user
func (s *sessionService) InvalidateUserSessions(ctx context.Context, userID int64) (int64, error) {
	count, err := s.sessionRepo.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info().Int64("userID", userID).Int64("count", count).Msg("Invalidated user device sessions")
	}
	return count, nil
}

// GetActiveSessions returns the active device sessions of a user
func (s *sessionService) GetActiveSessions(ctx context.Context, userID int64) ([]models.UserSession, error) {
	return s.sessionRepo.ListActiveByUser(ctx, userID)
}

// CleanupExpiredSessions deactivates idle sessions and removes long-dead
// rows. Inactive rows are kept for seven days past the idle cutoff before
// deletion so recent "logged in elsewhere" events remain inspectable.
func (s *sessionService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	idleCutoff := time.Now().Add(-s.idleTimeout)

	deactivated, err := s.sessionRepo.DeactivateIdleBefore(ctx, idleCutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate idle sessions: %w", err)
	}

	deleteCutoff := idleCutoff.Add(-7 * 24 * time.Hour)
	deleted, err := s.sessionRepo.DeleteInactiveBefore(ctx, deleteCutoff)
	if err != nil {
		return deactivated, fmt.Errorf("failed to delete stale sessions: %w", err)
	}

	if deactivated > 0 || deleted > 0 {
		s.logger.Info().
			Int64("deactivated", deactivated).
			Int64("deleted", deleted).
			Msg("Session cleanup completed")
	}

	return deactivated, nil
}
