package models

import "time"

// Player is an anonymous guest identified by the id in its token.
type Player struct {
	ID        string    `json:"id" redis:"id"`
	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	LastSeen  time.Time `json:"last_seen" redis:"last_seen"`
}
