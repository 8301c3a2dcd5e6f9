package services

import (
	"context"
	"errors"
	"time"

	"mine-game-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// SessionStore persists player records and their current round.
type SessionStore interface {
	SavePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	SaveGameSession(ctx context.Context, session *models.PlayerSession) error
	GetGameSession(ctx context.Context, playerID string) (*models.PlayerSession, error)
	DeleteGameSession(ctx context.Context, playerID string) error
	Close() error
}

// RateLimiter counts actions in fixed windows.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error)
}

type Store interface {
	SessionStore
	RateLimiter
}
