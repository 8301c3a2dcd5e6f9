package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/game"
	"mine-game-backend/internal/models"
)

type EngineOptions struct {
	DefaultMineCount int
	LossCueDelay     time.Duration
	RevealRateLimit  int
	RateLimitWindow  time.Duration

	// NewRand and Scheduler are overridden in tests.
	NewRand   func() game.Rand
	Scheduler game.Scheduler
}

// GameEngine hosts one live game.Session per player. Sessions are loaded
// from the store on first use and written back after every change.
type GameEngine struct {
	store       Store
	broadcaster Broadcaster
	log         *logrus.Logger
	opts        EngineOptions
	now         func() time.Time

	mu     sync.Mutex
	tables map[string]*table
}

// table holds one player's live session. mu serialises every call into the
// session so it keeps a single writer.
type table struct {
	mu        sync.Mutex
	playerID  string
	roundID   string
	session   *game.Session
	createdAt time.Time
	// set once the table leaves the engine; holders must reload
	closed bool

	// read by the loss cue timer goroutine
	muted      atomic.Bool
	round      atomic.Int64
	lastUpdate atomic.Int64

	// cues raised while a change is not yet saved wait here
	cueMu   sync.Mutex
	holding bool
	held    []audio.CueKind
}

func (t *table) holdCues() {
	t.cueMu.Lock()
	t.holding = true
	t.held = t.held[:0]
	t.cueMu.Unlock()
}

// releaseCues stops holding and returns the held cues, or nil when they
// are to be dropped.
func (t *table) releaseCues(keep bool) []audio.CueKind {
	t.cueMu.Lock()
	defer t.cueMu.Unlock()
	t.holding = false
	if !keep {
		t.held = t.held[:0]
		return nil
	}
	cues := append([]audio.CueKind(nil), t.held...)
	t.held = t.held[:0]
	return cues
}

func NewGameEngine(store Store, broadcaster Broadcaster, log *logrus.Logger, opts EngineOptions) *GameEngine {
	if broadcaster == nil {
		broadcaster = nopBroadcaster{}
	}
	if !game.ValidMineCount(opts.DefaultMineCount) {
		opts.DefaultMineCount = game.MineCounts[0]
	}
	if opts.LossCueDelay < 0 {
		opts.LossCueDelay = game.DefaultLossCueDelay
	}
	if opts.RevealRateLimit <= 0 {
		opts.RevealRateLimit = DefaultRateLimitReveals
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}
	if opts.NewRand == nil {
		opts.NewRand = func() game.Rand { return game.NewRand() }
	}

	return &GameEngine{
		store:       store,
		broadcaster: broadcaster,
		log:         log,
		opts:        opts,
		now:         time.Now,
		tables:      make(map[string]*table),
	}
}

// tableFeedback forwards cues to the player's clients unless muted.
type tableFeedback struct {
	engine *GameEngine
	table  *table
}

func (f tableFeedback) PlaySuccessCue() { f.play(audio.CueSuccess) }
func (f tableFeedback) PlayLossCue()    { f.play(audio.CueLoss) }

func (f tableFeedback) play(cue audio.CueKind) {
	if f.table.muted.Load() {
		return
	}
	f.table.cueMu.Lock()
	if f.table.holding {
		f.table.held = append(f.table.held, cue)
		f.table.cueMu.Unlock()
		return
	}
	f.table.cueMu.Unlock()
	f.engine.broadcaster.BroadcastCue(f.table.playerID, cue, int(f.table.round.Load()))
}

// schedule wraps the engine scheduler so a loss cue whose timer outlived
// its round stays silent.
func (ge *GameEngine) schedule(t *table) game.Scheduler {
	sched := ge.opts.Scheduler
	if sched == nil {
		sched = func(d time.Duration, f func()) game.Timer { return time.AfterFunc(d, f) }
	}
	return func(d time.Duration, f func()) game.Timer {
		round := t.round.Load()
		return sched(d, func() {
			if t.round.Load() != round {
				return
			}
			f()
		})
	}
}

func (ge *GameEngine) sessionOptions(t *table) []game.Option {
	return []game.Option{
		game.WithRand(ge.opts.NewRand()),
		game.WithFeedback(tableFeedback{engine: ge, table: t}),
		game.WithScheduler(ge.schedule(t)),
		game.WithLossCueDelay(ge.opts.LossCueDelay),
	}
}

// loadTable returns the live table for a player, restoring it from the
// store or dealing a fresh session when there is none.
func (ge *GameEngine) loadTable(ctx context.Context, playerID string) (*table, error) {
	ge.mu.Lock()
	t, ok := ge.tables[playerID]
	ge.mu.Unlock()
	if ok {
		return t, nil
	}

	t = &table{playerID: playerID, createdAt: ge.now()}

	stored, err := ge.store.GetGameSession(ctx, playerID)
	switch {
	case err == nil:
		t.session, err = game.RestoreSession(stored.Snapshot, ge.sessionOptions(t)...)
		if err != nil {
			ge.log.WithFields(logrus.Fields{
				"player_id": playerID,
				"error":     err,
			}).Warn("discarding corrupt stored session")
			break
		}
		t.roundID = stored.ID
		t.createdAt = stored.CreatedAt
		t.muted.Store(stored.Muted)
	case errors.Is(err, ErrSessionNotFound):
	default:
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	fresh := t.session == nil
	if fresh {
		t.session, err = game.NewSession(ge.opts.DefaultMineCount, ge.sessionOptions(t)...)
		if err != nil {
			return nil, err
		}
		t.roundID = models.GenerateRoundID()
	}
	t.round.Store(int64(t.session.Round()))
	t.lastUpdate.Store(ge.now().UnixNano())

	ge.mu.Lock()
	if existing, ok := ge.tables[playerID]; ok {
		ge.mu.Unlock()
		t.session.Close()
		return existing, nil
	}
	ge.tables[playerID] = t
	ge.mu.Unlock()

	if fresh {
		t.mu.Lock()
		err := ge.persist(ctx, t)
		t.mu.Unlock()
		if err != nil {
			return nil, err
		}
		ge.log.WithFields(logrus.Fields{
			"player_id":  playerID,
			"round_id":   t.roundID,
			"mine_count": t.session.MineCount(),
		}).Info("session started")
	}

	return t, nil
}

func (ge *GameEngine) playerSession(t *table) *models.PlayerSession {
	return &models.PlayerSession{
		ID:        t.roundID,
		PlayerID:  t.playerID,
		Snapshot:  t.session.Snapshot(),
		Muted:     t.muted.Load(),
		CreatedAt: t.createdAt,
		UpdatedAt: time.Unix(0, t.lastUpdate.Load()),
	}
}

func (ge *GameEngine) persist(ctx context.Context, t *table) error {
	if err := ge.store.SaveGameSession(ctx, ge.playerSession(t)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// lockTable returns the player's live table with its lock held. A table
// closed while we waited for its lock is reloaded.
func (ge *GameEngine) lockTable(ctx context.Context, playerID string) (*table, error) {
	for {
		t, err := ge.loadTable(ctx, playerID)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		if !t.closed {
			return t, nil
		}
		t.mu.Unlock()
	}
}

// mutate runs fn against the player's session under the table lock, then
// persists and broadcasts the result. When the save fails the session is
// rolled back and cues raised by fn are dropped.
func (ge *GameEngine) mutate(ctx context.Context, playerID string, fn func(t *table) error) (*models.GameView, error) {
	t, err := ge.lockTable(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()

	prev := t.session.Snapshot()
	prevRoundID, prevCreatedAt := t.roundID, t.createdAt
	prevMuted, prevUpdate := t.muted.Load(), t.lastUpdate.Load()

	t.holdCues()
	if err := fn(t); err != nil {
		t.releaseCues(false)
		return nil, err
	}
	if t.session.Round() != prev.Round {
		t.roundID = models.GenerateRoundID()
		t.createdAt = ge.now()
		t.round.Store(int64(t.session.Round()))
	}
	t.lastUpdate.Store(ge.now().UnixNano())

	if err := ge.persist(ctx, t); err != nil {
		t.releaseCues(false)
		// prev came from this session, so it always validates
		_ = t.session.Restore(prev)
		t.roundID, t.createdAt = prevRoundID, prevCreatedAt
		t.round.Store(int64(prev.Round))
		t.muted.Store(prevMuted)
		t.lastUpdate.Store(prevUpdate)
		return nil, err
	}

	view := models.NewGameView(ge.playerSession(t))
	ge.broadcaster.BroadcastState(playerID, view)
	for _, cue := range t.releaseCues(true) {
		ge.broadcaster.BroadcastCue(playerID, cue, view.Round)
	}
	return view, nil
}

// State returns the player's current view, starting a session if needed.
func (ge *GameEngine) State(ctx context.Context, playerID string) (*models.GameView, error) {
	t, err := ge.lockTable(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer t.mu.Unlock()
	return models.NewGameView(ge.playerSession(t)), nil
}

func (ge *GameEngine) Reveal(ctx context.Context, playerID string, index int) (*models.RevealResponse, error) {
	allowed, err := ge.store.CheckRateLimit(ctx, playerID, ActionReveal, ge.opts.RevealRateLimit, ge.opts.RateLimitWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		return nil, ErrRateLimited
	}

	var outcome game.Outcome
	view, err := ge.mutate(ctx, playerID, func(t *table) error {
		var err error
		outcome, err = t.session.Reveal(index)
		return err
	})
	if err != nil {
		return nil, err
	}

	entry := ge.log.WithFields(logrus.Fields{
		"player_id": playerID,
		"round":     view.Round,
		"position":  index,
		"outcome":   outcome.String(),
	})
	if outcome == game.OutcomeMine {
		entry.Info("mine hit, round over")
	} else {
		entry.Debug("tile revealed")
	}

	return &models.RevealResponse{
		Position: index,
		Outcome:  outcome.String(),
		Game:     view,
	}, nil
}

func (ge *GameEngine) SetMineCount(ctx context.Context, playerID string, n int) (*models.GameView, error) {
	return ge.mutate(ctx, playerID, func(t *table) error {
		return t.session.SetMineCount(n)
	})
}

// NewGame starts a new round. A zero mine count keeps the current one.
func (ge *GameEngine) NewGame(ctx context.Context, playerID string, n int) (*models.GameView, error) {
	return ge.mutate(ctx, playerID, func(t *table) error {
		if n == 0 {
			t.session.Reset()
			return nil
		}
		return t.session.SetMineCount(n)
	})
}

func (ge *GameEngine) DismissDialog(ctx context.Context, playerID string) (*models.GameView, error) {
	return ge.mutate(ctx, playerID, func(t *table) error {
		t.session.DismissDialog()
		return nil
	})
}

func (ge *GameEngine) SetMuted(ctx context.Context, playerID string, muted bool) (*models.GameView, error) {
	return ge.mutate(ctx, playerID, func(t *table) error {
		t.muted.Store(muted)
		return nil
	})
}

// EndSession drops the player's live and stored session.
func (ge *GameEngine) EndSession(ctx context.Context, playerID string) error {
	ge.mu.Lock()
	t, ok := ge.tables[playerID]
	delete(ge.tables, playerID)
	ge.mu.Unlock()

	if ok {
		// delete under the table lock so a waiting mutate reloads after it
		t.mu.Lock()
		defer t.mu.Unlock()
		t.close()
	}

	if err := ge.store.DeleteGameSession(ctx, playerID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// close must be called with t.mu held.
func (t *table) close() {
	t.closed = true
	t.session.Close()
}

// CleanupStaleGames evicts sessions idle for longer than maxAge from memory.
// Their stored snapshot stays until it expires.
func (ge *GameEngine) CleanupStaleGames(maxAge time.Duration) int {
	cutoff := ge.now().Add(-maxAge).UnixNano()

	ge.mu.Lock()
	var stale []*table
	for id, t := range ge.tables {
		if t.lastUpdate.Load() < cutoff {
			stale = append(stale, t)
			delete(ge.tables, id)
		}
	}
	ge.mu.Unlock()

	for _, t := range stale {
		t.mu.Lock()
		t.close()
		t.mu.Unlock()
	}

	if len(stale) > 0 {
		ge.log.WithField("evicted", len(stale)).Info("cleaned up stale sessions")
	}
	return len(stale)
}

func (ge *GameEngine) ActiveSessions() int {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	return len(ge.tables)
}

// Shutdown cancels every pending cue.
func (ge *GameEngine) Shutdown() {
	ge.mu.Lock()
	tables := ge.tables
	ge.tables = make(map[string]*table)
	ge.mu.Unlock()

	for _, t := range tables {
		t.mu.Lock()
		t.close()
		t.mu.Unlock()
	}
}
