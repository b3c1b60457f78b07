package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/services"
)

// TokenCleaner removes expired refresh tokens
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// SessionCleanup periodically deactivates idle device sessions and deletes
// stale rows. The original behavior: run once an hour, expire sessions idle
// for more than a day.
type SessionCleanup struct {
	sessionService services.SessionService
	tokenCleaner   TokenCleaner
	interval       time.Duration
	logger         zerolog.Logger
}

// NewSessionCleanup creates the cleanup worker
func NewSessionCleanup(sessionService services.SessionService, tokenCleaner TokenCleaner, interval time.Duration, logger zerolog.Logger) *SessionCleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionCleanup{
		sessionService: sessionService,
		tokenCleaner:   tokenCleaner,
		interval:       interval,
		logger:         logger,
	}
}

// Run blocks until the context is cancelled, triggering a cleanup pass every
// interval. Intended to be started as a goroutine at server startup.
func (w *SessionCleanup) Run(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("Session cleanup worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Session cleanup worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce executes a single cleanup pass. Errors are logged, never fatal:
// the next tick retries.
func (w *SessionCleanup) runOnce(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	if _, err := w.sessionService.CleanupExpiredSessions(passCtx); err != nil {
		w.logger.Error().Err(err).Msg("Session cleanup pass failed")
	}

	if w.tokenCleaner != nil {
		if _, err := w.tokenCleaner.CleanupExpiredTokens(passCtx); err != nil {
			w.logger.Error().Err(err).Msg("Refresh token cleanup pass failed")
		}
	}
}
