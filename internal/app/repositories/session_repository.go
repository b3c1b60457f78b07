package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/pkg/apperrors"
	"github.com/deniz/learnstack/internal/pkg/logger"
)

// ISessionRepository defines device session persistence operations
type ISessionRepository interface {
	Replace(ctx context.Context, session *models.UserSession) error
	Validate(ctx context.Context, sessionToken string, userID int64, role models.RoleType) error
	Deactivate(ctx context.Context, sessionToken string) error
	DeactivateAllForUser(ctx context.Context, userID int64) (int64, error)
	ListActiveByUser(ctx context.Context, userID int64) ([]models.UserSession, error)
	DeactivateIdleBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionRepository handles user_sessions database operations
type SessionRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Replace atomically deactivates every active session of the user and inserts
// the new one. The single-device invariant (at most one active row per user)
// holds exactly because both statements share one transaction.
func (r *SessionRepository) Replace(ctx context.Context, session *models.UserSession) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin session replace transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deactivateSQL, deactivateArgs, err := r.sb.Update("user_sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": session.UserID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build deactivate sessions query: %w", err)
	}

	cmdTag, err := tx.Exec(ctx, deactivateSQL, deactivateArgs...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", session.UserID).Msg("Error deactivating previous sessions")
		return fmt.Errorf("error deactivating previous sessions: %w", err)
	}
	if cmdTag.RowsAffected() > 0 {
		logger.Info().Int64("userID", session.UserID).Int64("invalidated", cmdTag.RowsAffected()).Msg("Invalidated previous device sessions on new login")
	}

	insertSQL, insertArgs, err := r.sb.Insert("user_sessions").
		Columns("user_id", "role_type", "session_token", "device_info", "ip_address", "created_at", "last_activity", "is_active").
		Values(session.UserID, session.RoleType, session.SessionToken, session.DeviceInfo, session.IPAddress, time.Now(), time.Now(), true).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert session query: %w", err)
	}

	if err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&session.ID); err != nil {
		logger.Error().Err(err).Int64("userID", session.UserID).Msg("Error inserting device session")
		return fmt.Errorf("error inserting device session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit session replace transaction: %w", err)
	}

	return nil
}

// Validate checks that the session token is the active session for the user
// and role, and touches last_activity on success. A single UPDATE keeps the
// check and the touch atomic.
func (r *SessionRepository) Validate(ctx context.Context, sessionToken string, userID int64, role models.RoleType) error {
	sql, args, err := r.sb.Update("user_sessions").
		Set("last_activity", time.Now()).
		Where(squirrel.Eq{
			"session_token": sessionToken,
			"user_id":       userID,
			"role_type":     role,
			"is_active":     true,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build validate session query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error executing validate session query")
		return fmt.Errorf("error validating session: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSessionInvalid
	}

	return nil
}

// Deactivate invalidates a specific session by its token
func (r *SessionRepository) Deactivate(ctx context.Context, sessionToken string) error {
	sql, args, err := r.sb.Update("user_sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"session_token": sessionToken, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build deactivate session query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing deactivate session query")
		return fmt.Errorf("error deactivating session: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrSessionNotFound
	}

	return nil
}

// DeactivateAllForUser invalidates every active session of a user
func (r *SessionRepository) DeactivateAllForUser(ctx context.Context, userID int64) (int64, error) {
	sql, args, err := r.sb.Update("user_sessions").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build deactivate user sessions query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("userID", userID).Msg("Error executing deactivate user sessions query")
		return 0, fmt.Errorf("error deactivating user sessions: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

// ListActiveByUser returns the active sessions of a user, newest first
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID int64) ([]models.UserSession, error) {
	sql, args, err := r.sb.Select("id", "user_id", "role_type", "session_token", "device_info", "ip_address", "created_at", "last_activity", "is_active").
		From("user_sessions").
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list sessions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.UserSession{}, nil
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error querying active sessions")
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.UserSession
	for rows.Next() {
		var s models.UserSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.RoleType, &s.SessionToken, &s.DeviceInfo, &s.IPAddress, &s.CreatedAt, &s.LastActivity, &s.IsActive); err != nil {
			return nil, fmt.Errorf("error scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}

	return sessions, nil
}

// DeactivateIdleBefore invalidates active sessions whose last activity is
// older than the cutoff
func (r *SessionRepository) DeactivateIdleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	sql, args, err := r.sb.Update("user_sessions").
		Set("is_active", false).
		Where(squirrel.And{
			squirrel.Eq{"is_active": true},
			squirrel.Lt{"last_activity": cutoff},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build deactivate idle sessions query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing deactivate idle sessions query")
		return 0, fmt.Errorf("error deactivating idle sessions: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}

// DeleteInactiveBefore removes inactive session rows older than the cutoff
func (r *SessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	sql, args, err := r.sb.Delete("user_sessions").
		Where(squirrel.And{
			squirrel.Eq{"is_active": false},
			squirrel.Lt{"last_activity": cutoff},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete inactive sessions query: %w", err)
	}

	cmdTag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing delete inactive sessions query")
		return 0, fmt.Errorf("error deleting inactive sessions: %w", err)
	}

	return cmdTag.RowsAffected(), nil
}
