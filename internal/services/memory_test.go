package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"mine-game-backend/internal/game"
	"mine-game-backend/internal/models"
	"mine-game-backend/internal/services"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)

	player := models.NewPlayer()
	if err := store.SavePlayer(ctx, player); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	got, err := store.GetPlayer(ctx, player.ID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got.ID != player.ID {
		t.Errorf("player ID mismatch: expected %s, got %s", player.ID, got.ID)
	}
	if _, err := store.GetPlayer(ctx, "missing"); !errors.Is(err, services.ErrPlayerNotFound) {
		t.Errorf("expected ErrPlayerNotFound, got %v", err)
	}

	sess, err := game.NewSession(10)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ps := &models.PlayerSession{
		ID:        models.GenerateRoundID(),
		PlayerID:  player.ID,
		Snapshot:  sess.Snapshot(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.SaveGameSession(ctx, ps); err != nil {
		t.Fatalf("SaveGameSession: %v", err)
	}

	// the store hands out copies
	ps.Snapshot.Round = 99
	loaded, err := store.GetGameSession(ctx, player.ID)
	if err != nil {
		t.Fatalf("GetGameSession: %v", err)
	}
	if loaded.Snapshot != sess.Snapshot() {
		t.Errorf("snapshot mismatch:\n got %+v\nwant %+v", loaded.Snapshot, sess.Snapshot())
	}

	if err := store.DeleteGameSession(ctx, player.ID); err != nil {
		t.Fatalf("DeleteGameSession: %v", err)
	}
	if _, err := store.GetGameSession(ctx, player.ID); !errors.Is(err, services.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStoreRateLimit(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore(time.Hour)

	for i := 0; i < 3; i++ {
		allowed, err := store.CheckRateLimit(ctx, "p", "reveal", 3, time.Minute)
		if err != nil || !allowed {
			t.Fatalf("call %d: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, _ := store.CheckRateLimit(ctx, "p", "reveal", 3, time.Minute)
	if allowed {
		t.Error("fourth call should be limited")
	}

	allowed, _ = store.CheckRateLimit(ctx, "other", "reveal", 3, time.Minute)
	if !allowed {
		t.Error("limits are per player")
	}

	allowed, _ = store.CheckRateLimit(ctx, "q", "reveal", 1, time.Millisecond)
	if !allowed {
		t.Fatal("first call should pass")
	}
	time.Sleep(5 * time.Millisecond)
	allowed, _ = store.CheckRateLimit(ctx, "q", "reveal", 1, time.Millisecond)
	if !allowed {
		t.Error("window should have reset")
	}
}
