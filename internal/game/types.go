package game

import (
	"errors"
	"time"
)

// TotalTiles is the fixed board size.
const TotalTiles = 20

// DefaultLossCueDelay keeps the loss tone from overlapping the full-board reveal.
const DefaultLossCueDelay = 500 * time.Millisecond

type TileState string

const (
	TileEmpty        TileState = "empty"
	TileMine         TileState = "mine"
	TileRevealedSafe TileState = "revealed-safe"
	TileRevealedMine TileState = "revealed-mine"
)

func (t TileState) IsRevealed() bool {
	return t == TileRevealedSafe || t == TileRevealedMine
}

func (t TileState) IsMine() bool {
	return t == TileMine || t == TileRevealedMine
}

func (t TileState) Valid() bool {
	switch t {
	case TileEmpty, TileMine, TileRevealedSafe, TileRevealedMine:
		return true
	}
	return false
}

// MineCounts is the closed set of selectable mine counts.
var MineCounts = []int{3, 5, 10}

func ValidMineCount(n int) bool {
	for _, c := range MineCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Outcome describes what a Reveal did.
type Outcome int

const (
	OutcomeNoop Outcome = iota
	OutcomeSafe
	OutcomeMine
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSafe:
		return "safe"
	case OutcomeMine:
		return "mine"
	default:
		return "noop"
	}
}

var (
	ErrInvalidMineCount = errors.New("mine count must be one of 3, 5 or 10")
	ErrIndexOutOfRange  = errors.New("tile index out of range")
	ErrCorruptSnapshot  = errors.New("corrupt session snapshot")
)

// Rand is the randomness the board draws mine positions from.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

// Feedback receives the cosmetic cues. Calls are fire-and-forget.
type Feedback interface {
	PlaySuccessCue()
	PlayLossCue()
}

type NopFeedback struct{}

func (NopFeedback) PlaySuccessCue() {}
func (NopFeedback) PlayLossCue()    {}

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler runs f after d. The default is time.AfterFunc.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
