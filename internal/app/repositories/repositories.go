package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories is a container for all repository instances
type Repositories struct {
	UserRepository    *UserRepository
	SessionRepository *SessionRepository
	TokenRepository   *TokenRepository
}

// NewRepositories creates all repositories sharing the same connection pool
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:    NewUserRepository(db),
		SessionRepository: NewSessionRepository(db),
		TokenRepository:   NewTokenRepository(db),
	}
}
