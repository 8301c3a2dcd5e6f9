package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GeneratePlayerID() string {
	return uuid.New().String()
}

func GenerateRoundID() string {
	return fmt.Sprintf("round_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func NewPlayer() *Player {
	now := time.Now()
	return &Player{
		ID:        GeneratePlayerID(),
		CreatedAt: now,
		LastSeen:  now,
	}
}
