package services

import (
	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/models"
)

type Broadcaster interface {
	BroadcastState(playerID string, view *models.GameView)
	BroadcastCue(playerID string, cue audio.CueKind, round int)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastState(string, *models.GameView) {}
func (nopBroadcaster) BroadcastCue(string, audio.CueKind, int) {}
