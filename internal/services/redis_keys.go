package services

import "time"

const (
	KeyPlayerInfo  = "player:%s:info"
	KeyGameSession = "game:session:%s"
	KeyRateLimit   = "ratelimit:%s:%s"

	TTLPlayerInfo  = 30 * 24 * time.Hour // 30 days
	TTLGameSession = 24 * time.Hour

	ActionReveal = "reveal"

	DefaultRateLimitReveals = 120 // Max 120 reveals per minute
)
