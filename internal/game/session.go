package game

import (
	crand "crypto/rand"
	"math/rand/v2"
	"time"
)

// Session is one player's game: the current board, its mine count and the
// game-over and dialog flags. It has a single writer and is not safe for
// concurrent use; the loss cue timer only ever touches the Feedback.
type Session struct {
	board         Board
	mineCount     int
	gameOver      bool
	dialogVisible bool
	round         int

	rng       Rand
	feedback  Feedback
	schedule  Scheduler
	lossDelay time.Duration
	lossTimer Timer
}

type Option func(*Session)

func WithRand(r Rand) Option {
	return func(s *Session) { s.rng = r }
}

func WithFeedback(f Feedback) Option {
	return func(s *Session) {
		if f != nil {
			s.feedback = f
		}
	}
}

func WithScheduler(sched Scheduler) Option {
	return func(s *Session) {
		if sched != nil {
			s.schedule = sched
		}
	}
}

func WithLossCueDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.lossDelay = d
		}
	}
}

// NewSession creates a session and deals its first board.
func NewSession(mineCount int, opts ...Option) (*Session, error) {
	s := newSession(opts...)
	if err := s.Initialize(mineCount); err != nil {
		return nil, err
	}
	return s, nil
}

func newSession(opts ...Option) *Session {
	s := &Session{
		feedback:  NopFeedback{},
		schedule:  afterFunc,
		lossDelay: DefaultLossCueDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand()
	}
	return s
}

// NewRand returns a ChaCha8 generator seeded from crypto/rand.
func NewRand() *rand.Rand {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // never fails since Go 1.24
	return rand.New(rand.NewChaCha8(seed))
}

// Initialize deals a fresh board with mineCount mines and clears both flags.
func (s *Session) Initialize(mineCount int) error {
	board, err := NewBoard(mineCount, s.rng)
	if err != nil {
		return err
	}

	s.cancelLossCue()
	s.board = board
	s.mineCount = mineCount
	s.gameOver = false
	s.dialogVisible = false
	s.round++
	return nil
}

// Reset deals a new board with the current mine count.
func (s *Session) Reset() {
	// mineCount was validated when it was recorded
	_ = s.Initialize(s.mineCount)
}

// SetMineCount records a new configuration and starts a new round with it.
func (s *Session) SetMineCount(n int) error {
	return s.Initialize(n)
}

// Reveal uncovers one tile. Revealing a mine ends the round and discloses the
// whole board; revealing a safe tile never ends it.
func (s *Session) Reveal(index int) (Outcome, error) {
	if index < 0 || index >= TotalTiles {
		return OutcomeNoop, ErrIndexOutOfRange
	}
	if s.gameOver || s.board[index].IsRevealed() {
		return OutcomeNoop, nil
	}

	if s.board[index] == TileMine {
		s.board[index] = TileRevealedMine
		s.gameOver = true
		s.dialogVisible = true
		s.scheduleLossCue()
		s.board.discloseAll()
		return OutcomeMine, nil
	}

	s.board[index] = TileRevealedSafe
	s.feedback.PlaySuccessCue()
	return OutcomeSafe, nil
}

// DismissDialog hides the game-over dialog; the round stays over.
func (s *Session) DismissDialog() {
	s.dialogVisible = false
}

func (s *Session) scheduleLossCue() {
	s.cancelLossCue()
	fb := s.feedback
	s.lossTimer = s.schedule(s.lossDelay, fb.PlayLossCue)
}

func (s *Session) cancelLossCue() {
	if s.lossTimer != nil {
		s.lossTimer.Stop()
		s.lossTimer = nil
	}
}

// Close cancels any pending cue.
func (s *Session) Close() {
	s.cancelLossCue()
}

func (s *Session) Board() Board        { return s.board }
func (s *Session) MineCount() int      { return s.mineCount }
func (s *Session) GameOver() bool      { return s.gameOver }
func (s *Session) DialogVisible() bool { return s.dialogVisible }
func (s *Session) Round() int          { return s.round }

// SafeRemaining counts safe tiles not yet revealed.
func (s *Session) SafeRemaining() int {
	return s.board.Count(TileEmpty)
}
