package game

import "fmt"

// Snapshot is the persistable state of a Session.
type Snapshot struct {
	Board         Board `json:"board"`
	MineCount     int   `json:"mine_count"`
	GameOver      bool  `json:"game_over"`
	DialogVisible bool  `json:"dialog_visible"`
	Round         int   `json:"round"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Board:         s.board,
		MineCount:     s.mineCount,
		GameOver:      s.gameOver,
		DialogVisible: s.dialogVisible,
		Round:         s.round,
	}
}

// Validate checks the board invariants: known tile states, exactly MineCount
// mines, and revealed mines only on a finished round.
func (snap Snapshot) Validate() error {
	if !ValidMineCount(snap.MineCount) {
		return fmt.Errorf("%w: mine count %d", ErrCorruptSnapshot, snap.MineCount)
	}
	for i, t := range snap.Board {
		if !t.Valid() {
			return fmt.Errorf("%w: tile %d has state %q", ErrCorruptSnapshot, i, t)
		}
	}
	if n := snap.Board.Mines(); n != snap.MineCount {
		return fmt.Errorf("%w: %d mines on board, want %d", ErrCorruptSnapshot, n, snap.MineCount)
	}
	if !snap.GameOver {
		if snap.Board.Count(TileRevealedMine) > 0 {
			return fmt.Errorf("%w: revealed mine on a live round", ErrCorruptSnapshot)
		}
		if snap.DialogVisible {
			return fmt.Errorf("%w: dialog visible on a live round", ErrCorruptSnapshot)
		}
	} else if snap.Board.Count(TileEmpty) > 0 || snap.Board.Count(TileMine) > 0 {
		return fmt.Errorf("%w: finished round not fully disclosed", ErrCorruptSnapshot)
	}
	return nil
}

// RestoreSession rebuilds a session from a snapshot. No cue is replayed.
func RestoreSession(snap Snapshot, opts ...Option) (*Session, error) {
	s := newSession(opts...)
	if err := s.Restore(snap); err != nil {
		return nil, err
	}
	return s, nil
}

// Restore puts the session back to snap and cancels any pending loss cue.
// An invalid snapshot leaves the session untouched.
func (s *Session) Restore(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}

	s.cancelLossCue()
	s.board = snap.Board
	s.mineCount = snap.MineCount
	s.gameOver = snap.GameOver
	s.dialogVisible = snap.DialogVisible
	s.round = snap.Round
	return nil
}
