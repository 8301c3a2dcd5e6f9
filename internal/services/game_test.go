package services_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/game"
	"mine-game-backend/internal/logging"
	"mine-game-backend/internal/models"
	"mine-game-backend/internal/services"
)

// sequentialRand deals mines on tiles 0, 1, 2, ... in order.
type sequentialRand struct{ next int }

func (r *sequentialRand) IntN(n int) int {
	v := r.next % n
	r.next++
	return v
}

type immediateTimer struct{}

func (immediateTimer) Stop() bool { return false }

func immediate(d time.Duration, f func()) game.Timer {
	f()
	return immediateTimer{}
}

type cueEvent struct {
	playerID string
	cue      audio.CueKind
	round    int
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	states []*models.GameView
	cues   []cueEvent
}

func (b *recordingBroadcaster) BroadcastState(playerID string, view *models.GameView) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, view)
}

func (b *recordingBroadcaster) BroadcastCue(playerID string, cue audio.CueKind, round int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cues = append(b.cues, cueEvent{playerID, cue, round})
}

func (b *recordingBroadcaster) cueKinds() []audio.CueKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	var kinds []audio.CueKind
	for _, c := range b.cues {
		kinds = append(kinds, c.cue)
	}
	return kinds
}

func newTestEngine(t *testing.T, store services.Store, opts services.EngineOptions) (*services.GameEngine, *recordingBroadcaster) {
	t.Helper()
	if opts.NewRand == nil {
		opts.NewRand = func() game.Rand { return &sequentialRand{} }
	}
	if opts.Scheduler == nil {
		opts.Scheduler = immediate
	}
	b := &recordingBroadcaster{}
	engine := services.NewGameEngine(store, b, logging.Discard(), opts)
	t.Cleanup(engine.Shutdown)
	return engine, b
}

func TestGameEngineStartsSession(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)
	engine, _ := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 5})

	view, err := engine.State(ctx, "player-1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if view.MineCount != 5 || view.GameOver || view.DialogVisible {
		t.Errorf("unexpected fresh view: %+v", view)
	}
	if view.SafeRemaining != 15 {
		t.Errorf("expected 15 safe tiles, got %d", view.SafeRemaining)
	}

	stored, err := store.GetGameSession(ctx, "player-1")
	if err != nil {
		t.Fatalf("session was not persisted: %v", err)
	}
	if stored.ID != view.RoundID {
		t.Errorf("stored round %s, view round %s", stored.ID, view.RoundID)
	}
	if engine.ActiveSessions() != 1 {
		t.Errorf("expected 1 active session, got %d", engine.ActiveSessions())
	}
}

func TestGameEngineReveal(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)
	engine, b := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 3})

	// mines sit on 0, 1 and 2
	res, err := engine.Reveal(ctx, "p", 7)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if res.Outcome != "safe" || res.Game.Tiles[7] != string(game.TileRevealedSafe) {
		t.Errorf("unexpected safe reveal: %+v", res)
	}
	if res.Game.GameOver {
		t.Error("safe reveal must not end the round")
	}

	res, err = engine.Reveal(ctx, "p", 7)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if res.Outcome != "noop" {
		t.Errorf("expected noop on repeat reveal, got %s", res.Outcome)
	}

	res, err = engine.Reveal(ctx, "p", 1)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if res.Outcome != "mine" || !res.Game.GameOver || !res.Game.DialogVisible {
		t.Errorf("unexpected mine reveal: %+v", res)
	}
	for i, tile := range res.Game.Tiles {
		if tile == models.TileHidden {
			t.Errorf("tile %d still hidden after loss", i)
		}
	}

	kinds := b.cueKinds()
	if len(kinds) != 2 || kinds[0] != audio.CueSuccess || kinds[1] != audio.CueLoss {
		t.Errorf("expected success then loss cue, got %v", kinds)
	}
	if len(b.states) != 3 {
		t.Errorf("expected 3 state pushes, got %d", len(b.states))
	}

	stored, err := store.GetGameSession(ctx, "p")
	if err != nil {
		t.Fatalf("GetGameSession: %v", err)
	}
	if !stored.Snapshot.GameOver {
		t.Error("stored snapshot should be game over")
	}

	if _, err := engine.Reveal(ctx, "p", 20); !errors.Is(err, game.ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestGameEngineMuted(t *testing.T) {
	ctx := context.Background()
	engine, b := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{})

	view, err := engine.SetMuted(ctx, "p", true)
	if err != nil {
		t.Fatalf("SetMuted: %v", err)
	}
	if !view.Muted {
		t.Error("expected muted view")
	}

	if _, err := engine.Reveal(ctx, "p", 10); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if _, err := engine.Reveal(ctx, "p", 0); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if kinds := b.cueKinds(); len(kinds) != 0 {
		t.Errorf("muted player received cues: %v", kinds)
	}
}

func TestGameEngineNewRounds(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{DefaultMineCount: 5})

	first, err := engine.State(ctx, "p")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if _, err := engine.Reveal(ctx, "p", 0); err != nil {
		t.Fatalf("Reveal: %v", err)
	}

	view, err := engine.SetMineCount(ctx, "p", 10)
	if err != nil {
		t.Fatalf("SetMineCount: %v", err)
	}
	if view.GameOver || view.DialogVisible || view.MineCount != 10 || view.SafeRemaining != 10 {
		t.Errorf("expected a clean 10-mine round: %+v", view)
	}
	if view.RoundID == first.RoundID || view.Round != first.Round+1 {
		t.Errorf("expected a new round, got %s/%d after %s/%d", view.RoundID, view.Round, first.RoundID, first.Round)
	}

	view, err = engine.NewGame(ctx, "p", 0)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if view.MineCount != 10 {
		t.Errorf("NewGame without count should keep 10 mines, got %d", view.MineCount)
	}

	view, err = engine.NewGame(ctx, "p", 3)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if view.MineCount != 3 {
		t.Errorf("expected 3 mines, got %d", view.MineCount)
	}

	if _, err := engine.SetMineCount(ctx, "p", 4); !errors.Is(err, game.ErrInvalidMineCount) {
		t.Errorf("expected ErrInvalidMineCount, got %v", err)
	}
}

func TestGameEngineDismissDialog(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{})

	if _, err := engine.Reveal(ctx, "p", 2); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	view, err := engine.DismissDialog(ctx, "p")
	if err != nil {
		t.Fatalf("DismissDialog: %v", err)
	}
	if view.DialogVisible || !view.GameOver {
		t.Errorf("expected hidden dialog on a finished round: %+v", view)
	}
}

func TestGameEngineRateLimit(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{RevealRateLimit: 2})

	for i := 10; i < 12; i++ {
		if _, err := engine.Reveal(ctx, "p", i); err != nil {
			t.Fatalf("Reveal(%d): %v", i, err)
		}
	}
	if _, err := engine.Reveal(ctx, "p", 12); !errors.Is(err, services.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestGameEngineRestoresFromStore(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)

	first, _ := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 5})
	if _, err := first.Reveal(ctx, "p", 12); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if _, err := first.SetMuted(ctx, "p", true); err != nil {
		t.Fatalf("SetMuted: %v", err)
	}
	before, _ := first.State(ctx, "p")

	second, _ := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 3})
	after, err := second.State(ctx, "p")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if after.RoundID != before.RoundID || after.Tiles != before.Tiles || after.MineCount != 5 || !after.Muted {
		t.Errorf("restored view differs:\n got %+v\nwant %+v", after, before)
	}
}

func TestGameEngineDiscardsCorruptSession(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)

	corrupt := &models.PlayerSession{ID: "round_bad", PlayerID: "p"}
	corrupt.Snapshot.MineCount = 5
	if err := store.SaveGameSession(ctx, corrupt); err != nil {
		t.Fatalf("SaveGameSession: %v", err)
	}

	engine, _ := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 3})
	view, err := engine.State(ctx, "p")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if view.RoundID == "round_bad" || view.MineCount != 3 {
		t.Errorf("expected a fresh session, got %+v", view)
	}
}

func TestGameEngineCleanupAndEnd(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)
	engine, _ := newTestEngine(t, store, services.EngineOptions{})

	for _, id := range []string{"a", "b"} {
		if _, err := engine.State(ctx, id); err != nil {
			t.Fatalf("State(%s): %v", id, err)
		}
	}

	if n := engine.CleanupStaleGames(time.Hour); n != 0 {
		t.Errorf("expected nothing stale, evicted %d", n)
	}
	if n := engine.CleanupStaleGames(-time.Second); n != 2 {
		t.Errorf("expected 2 evictions, got %d", n)
	}
	if _, err := store.GetGameSession(ctx, "a"); err != nil {
		t.Errorf("eviction must keep the stored session: %v", err)
	}

	if err := engine.EndSession(ctx, "a"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := store.GetGameSession(ctx, "a"); !errors.Is(err, services.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGameEngineDelayedLossCue(t *testing.T) {
	ctx := context.Background()
	engine, b := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{
		LossCueDelay: 20 * time.Millisecond,
		Scheduler: func(d time.Duration, f func()) game.Timer {
			return time.AfterFunc(d, f)
		},
	})

	if _, err := engine.Reveal(ctx, "p", 0); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if len(b.cueKinds()) != 0 {
		t.Fatal("loss cue should wait for its delay")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if kinds := b.cueKinds(); len(kinds) == 1 && kinds[0] == audio.CueLoss {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected a delayed loss cue, got %v", b.cueKinds())
}

// flakyStore fails every session save while down is set.
type flakyStore struct {
	*services.MemoryStore
	down atomic.Bool
}

func (s *flakyStore) SaveGameSession(ctx context.Context, session *models.PlayerSession) error {
	if s.down.Load() {
		return errors.New("redis down")
	}
	return s.MemoryStore.SaveGameSession(ctx, session)
}

type manualTimer struct {
	fire    func()
	stopped atomic.Bool
}

func (m *manualTimer) Stop() bool { return !m.stopped.Swap(true) }

// manualScheduler hands every scheduled callback back to the test.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (s *manualScheduler) schedule(d time.Duration, f func()) game.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{fire: f}
	s.timers = append(s.timers, timer)
	return timer
}

func (s *manualScheduler) last() *manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

func TestGameEngineFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: services.NewMemoryStore(time.Hour)}
	engine, b := newTestEngine(t, store, services.EngineOptions{DefaultMineCount: 3})

	before, err := engine.State(ctx, "p")
	if err != nil {
		t.Fatalf("State: %v", err)
	}

	store.down.Store(true)
	if _, err := engine.Reveal(ctx, "p", 5); err == nil {
		t.Fatal("expected the save error")
	}
	// mines sit on 0, 1 and 2; the loss cue fires at once in tests
	if _, err := engine.Reveal(ctx, "p", 0); err == nil {
		t.Fatal("expected the save error")
	}
	if _, err := engine.NewGame(ctx, "p", 10); err == nil {
		t.Fatal("expected the save error")
	}
	if _, err := engine.SetMuted(ctx, "p", true); err == nil {
		t.Fatal("expected the save error")
	}

	if kinds := b.cueKinds(); len(kinds) != 0 {
		t.Errorf("failed moves must not cue, got %v", kinds)
	}
	if len(b.states) != 0 {
		t.Errorf("failed moves must not push state, got %d", len(b.states))
	}

	after, err := engine.State(ctx, "p")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if after.Tiles != before.Tiles || after.GameOver || after.Muted ||
		after.MineCount != 3 || after.Round != before.Round || after.RoundID != before.RoundID {
		t.Errorf("failed moves changed the session:\n got %+v\nwant %+v", after, before)
	}

	store.down.Store(false)
	res, err := engine.Reveal(ctx, "p", 5)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	if res.Outcome != "safe" {
		t.Errorf("expected the retried reveal to succeed, got %s", res.Outcome)
	}
	if kinds := b.cueKinds(); len(kinds) != 1 || kinds[0] != audio.CueSuccess {
		t.Errorf("expected one success cue, got %v", kinds)
	}
}

func TestGameEngineFailedSaveCancelsLossCue(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: services.NewMemoryStore(time.Hour)}
	sched := &manualScheduler{}
	engine, b := newTestEngine(t, store, services.EngineOptions{Scheduler: sched.schedule})

	if _, err := engine.State(ctx, "p"); err != nil {
		t.Fatalf("State: %v", err)
	}
	store.down.Store(true)
	if _, err := engine.Reveal(ctx, "p", 0); err == nil {
		t.Fatal("expected the save error")
	}
	if !sched.last().stopped.Load() {
		t.Error("rolled back loss should stop its cue timer")
	}
	if len(b.cueKinds()) != 0 {
		t.Errorf("unexpected cues: %v", b.cueKinds())
	}
}

func TestGameEngineStaleLossCue(t *testing.T) {
	ctx := context.Background()
	sched := &manualScheduler{}
	engine, b := newTestEngine(t, services.NewMemoryStore(time.Hour), services.EngineOptions{Scheduler: sched.schedule})

	lost, err := engine.Reveal(ctx, "p", 0)
	if err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	timer := sched.last()

	if _, err := engine.NewGame(ctx, "p", 0); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	// the timer had already fired when the new round stopped it
	timer.fire()
	if kinds := b.cueKinds(); len(kinds) != 0 {
		t.Errorf("loss cue from round %d played in the next round: %v", lost.Game.Round, kinds)
	}

	// the new round dealt its mines on 3, 4 and 5
	if _, err := engine.Reveal(ctx, "p", 3); err != nil {
		t.Fatalf("Reveal: %v", err)
	}
	sched.last().fire()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cues) != 1 || b.cues[0].cue != audio.CueLoss || b.cues[0].round != lost.Game.Round+1 {
		t.Errorf("expected one loss cue for round %d, got %+v", lost.Game.Round+1, b.cues)
	}
}
