package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/pkg/apperrors"
)

// fakeSessionRepo is an in-memory stand-in for the session repository
type fakeSessionRepo struct {
	sessions []*models.UserSession

	replaceErr  error
	validateErr error

	deactivateIdleCutoff time.Time
	deleteCutoff         time.Time
	deactivatedIdle      int64
	deletedStale         int64
}

func (f *fakeSessionRepo) Replace(_ context.Context, session *models.UserSession) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	for _, s := range f.sessions {
		if s.UserID == session.UserID {
			s.IsActive = false
		}
	}
	session.IsActive = true
	session.CreatedAt = time.Now()
	session.LastActivity = time.Now()
	f.sessions = append(f.sessions, session)
	return nil
}

func (f *fakeSessionRepo) Validate(_ context.Context, sessionToken string, userID int64, role models.RoleType) error {
	if f.validateErr != nil {
		return f.validateErr
	}
	for _, s := range f.sessions {
		if s.SessionToken == sessionToken && s.UserID == userID && s.RoleType == role && s.IsActive {
			s.LastActivity = time.Now()
			return nil
		}
	}
	return apperrors.ErrSessionInvalid
}

func (f *fakeSessionRepo) Deactivate(_ context.Context, sessionToken string) error {
	for _, s := range f.sessions {
		if s.SessionToken == sessionToken && s.IsActive {
			s.IsActive = false
			return nil
		}
	}
	return apperrors.ErrSessionNotFound
}

func (f *fakeSessionRepo) DeactivateAllForUser(_ context.Context, userID int64) (int64, error) {
	var count int64
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			s.IsActive = false
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionRepo) ListActiveByUser(_ context.Context, userID int64) ([]models.UserSession, error) {
	var out []models.UserSession
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) DeactivateIdleBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deactivateIdleCutoff = cutoff
	return f.deactivatedIdle, nil
}

func (f *fakeSessionRepo) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.deleteCutoff = cutoff
	return f.deletedStale, nil
}

func newTestSessionService(repo *fakeSessionRepo) SessionService {
	return NewSessionService(repo, 24*time.Hour, zerolog.Nop())
}

func TestIssueSession_ReplacesPreviousSession(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)
	user := &models.User{ID: 1, RoleType: models.RoleStudent}

	first, err := svc.IssueSession(context.Background(), user, "Safari on iPhone", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.IssueSession(context.Background(), user, "Chrome on Windows", "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Old session is gone, only the new device remains valid
	assert.ErrorIs(t, svc.ValidateSession(context.Background(), first, 1, models.RoleStudent), apperrors.ErrSessionInvalid)
	assert.NoError(t, svc.ValidateSession(context.Background(), second, 1, models.RoleStudent))

	active, err := svc.GetActiveSessions(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestIssueSession_TokenIsUUID(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)

	token, err := svc.IssueSession(context.Background(), &models.User{ID: 1, RoleType: models.RoleStudent}, "", "")
	require.NoError(t, err)

	_, err = uuid.Parse(token)
	assert.NoError(t, err)

	// Empty device info and IP stay NULL rather than empty strings
	require.Len(t, repo.sessions, 1)
	assert.Nil(t, repo.sessions[0].DeviceInfo)
	assert.Nil(t, repo.sessions[0].IPAddress)
}

func TestIssueSession_DoesNotTouchOtherUsers(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)

	tokenA, err := svc.IssueSession(context.Background(), &models.User{ID: 1, RoleType: models.RoleStudent}, "", "")
	require.NoError(t, err)
	_, err = svc.IssueSession(context.Background(), &models.User{ID: 2, RoleType: models.RoleStudent}, "", "")
	require.NoError(t, err)

	assert.NoError(t, svc.ValidateSession(context.Background(), tokenA, 1, models.RoleStudent))
}

func TestValidateSession_RoleMismatch(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)

	token, err := svc.IssueSession(context.Background(), &models.User{ID: 1, RoleType: models.RoleStudent}, "", "")
	require.NoError(t, err)

	err = svc.ValidateSession(context.Background(), token, 1, models.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrSessionInvalid)
}

func TestInvalidateSession_Idempotent(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)

	token, err := svc.IssueSession(context.Background(), &models.User{ID: 1, RoleType: models.RoleStudent}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateSession(context.Background(), token))
	assert.ErrorIs(t, svc.InvalidateSession(context.Background(), token), apperrors.ErrSessionNotFound)
}

func TestInvalidateUserSessions(t *testing.T) {
	repo := &fakeSessionRepo{}
	svc := newTestSessionService(repo)
	user := &models.User{ID: 7, RoleType: models.RoleStudent}

	_, err := svc.IssueSession(context.Background(), user, "", "")
	require.NoError(t, err)

	count, err := svc.InvalidateUserSessions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	active, err := svc.GetActiveSessions(context.Background(), 7)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCleanupExpiredSessions_Cutoffs(t *testing.T) {
	repo := &fakeSessionRepo{deactivatedIdle: 3, deletedStale: 2}
	svc := NewSessionService(repo, 24*time.Hour, zerolog.Nop())

	before := time.Now()
	count, err := svc.CleanupExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Idle cutoff sits one idle-timeout in the past
	wantIdle := before.Add(-24 * time.Hour)
	assert.WithinDuration(t, wantIdle, repo.deactivateIdleCutoff, 5*time.Second)

	// Delete cutoff trails the idle cutoff by the seven day retention window
	assert.WithinDuration(t, wantIdle.Add(-7*24*time.Hour), repo.deleteCutoff, 5*time.Second)
}
