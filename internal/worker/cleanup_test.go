package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/deniz/learnstack/internal/app/models"
)

// countingSessionService counts cleanup passes
type countingSessionService struct {
	cleanups atomic.Int64
}

func (c *countingSessionService) IssueSession(context.Context, *models.User, string, string) (string, error) {
	return "", nil
}

func (c *countingSessionService) ValidateSession(context.Context, string, int64, models.RoleType) error {
	return nil
}

func (c *countingSessionService) InvalidateSession(context.Context, string) error { return nil }

func (c *countingSessionService) InvalidateUserSessions(context.Context, int64) (int64, error) {
	return 0, nil
}

func (c *countingSessionService) GetActiveSessions(context.Context, int64) ([]models.UserSession, error) {
	return nil, nil
}

func (c *countingSessionService) CleanupExpiredSessions(context.Context) (int64, error) {
	c.cleanups.Add(1)
	return 0, nil
}

// countingTokenCleaner counts token cleanup passes
type countingTokenCleaner struct {
	cleanups atomic.Int64
}

func (c *countingTokenCleaner) CleanupExpiredTokens(context.Context) (int64, error) {
	c.cleanups.Add(1)
	return 0, nil
}

func TestSessionCleanup_RunsOnInterval(t *testing.T) {
	sessions := &countingSessionService{}
	tokens := &countingTokenCleaner{}
	w := NewSessionCleanup(sessions, tokens, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	// Let a few ticks fire
	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	assert.GreaterOrEqual(t, sessions.cleanups.Load(), int64(2))
	assert.GreaterOrEqual(t, tokens.cleanups.Load(), int64(2))
}

func TestSessionCleanup_StopsOnCancel(t *testing.T) {
	sessions := &countingSessionService{}
	w := NewSessionCleanup(sessions, nil, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestNewSessionCleanup_DefaultInterval(t *testing.T) {
	w := NewSessionCleanup(&countingSessionService{}, nil, 0, zerolog.Nop())
	assert.Equal(t, time.Hour, w.interval)
}
