package models

import (
	"time"

	"mine-game-backend/internal/game"
)

// PlayerSession is the persisted state of one player's current round.
type PlayerSession struct {
	ID       string        `json:"id" redis:"id"`
	PlayerID string        `json:"player_id" redis:"player_id"`
	Snapshot game.Snapshot `json:"snapshot" redis:"-"`
	Muted    bool          `json:"muted" redis:"muted"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
	UpdatedAt time.Time `json:"updated_at" redis:"updated_at"`
}

// TileHidden is how an unrevealed tile appears in a view. Empty and mine
// tiles look the same until revealed, so the layout never leaves the server.
const TileHidden = "hidden"

// GameView is what the browser renders.
type GameView struct {
	RoundID       string                  `json:"round_id"`
	Round         int                     `json:"round"`
	Tiles         [game.TotalTiles]string `json:"tiles"`
	MineCount     int                     `json:"mine_count"`
	MineCounts    []int                   `json:"mine_counts"`
	GameOver      bool                    `json:"game_over"`
	DialogVisible bool                    `json:"dialog_visible"`
	Muted         bool                    `json:"muted"`
	SafeRemaining int                     `json:"safe_remaining"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func NewGameView(ps *PlayerSession) *GameView {
	snap := ps.Snapshot
	view := &GameView{
		RoundID:       ps.ID,
		Round:         snap.Round,
		MineCount:     snap.MineCount,
		MineCounts:    game.MineCounts,
		GameOver:      snap.GameOver,
		DialogVisible: snap.DialogVisible,
		Muted:         ps.Muted,
		SafeRemaining: snap.Board.Count(game.TileEmpty),
		UpdatedAt:     ps.UpdatedAt,
	}
	for i, t := range snap.Board {
		if t.IsRevealed() {
			view.Tiles[i] = string(t)
		} else {
			view.Tiles[i] = TileHidden
		}
	}
	return view
}
