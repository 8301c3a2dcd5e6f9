package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"mine-game-backend/internal/models"
)

// MemoryStore keeps everything in process. Used when no Redis is configured
// and in tests. Values are stored JSON-encoded, as in Redis, so callers never
// share pointers with the store.
type MemoryStore struct {
	mu       sync.Mutex
	players  map[string]entry
	sessions map[string]entry
	counters map[string]*counter
	ttl      time.Duration
	now      func() time.Time

	lastSweep time.Time
}

// sweepInterval bounds how often CheckRateLimit scans for expired keys.
const sweepInterval = time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

type counter struct {
	count     int
	expiresAt time.Time
}

func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	if sessionTTL <= 0 {
		sessionTTL = TTLGameSession
	}
	return &MemoryStore{
		players:  make(map[string]entry),
		sessions: make(map[string]entry),
		counters: make(map[string]*counter),
		ttl:      sessionTTL,
		now:      time.Now,
	}
}

func (s *MemoryStore) put(m map[string]entry, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	s.mu.Lock()
	m[key] = entry{data: data, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) get(m map[string]entry, key string, v any) (bool, error) {
	s.mu.Lock()
	e, ok := m[key]
	if ok && s.now().After(e.expiresAt) {
		delete(m, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) SavePlayer(ctx context.Context, player *models.Player) error {
	return s.put(s.players, player.ID, player, TTLPlayerInfo)
}

func (s *MemoryStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var player models.Player
	ok, err := s.get(s.players, playerID, &player)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
	}
	return &player, nil
}

func (s *MemoryStore) SaveGameSession(ctx context.Context, session *models.PlayerSession) error {
	return s.put(s.sessions, session.PlayerID, session, s.ttl)
}

func (s *MemoryStore) GetGameSession(ctx context.Context, playerID string) (*models.PlayerSession, error) {
	var session models.PlayerSession
	ok, err := s.get(s.sessions, playerID, &session)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, playerID)
	}
	return &session, nil
}

func (s *MemoryStore) DeleteGameSession(ctx context.Context, playerID string) error {
	s.mu.Lock()
	delete(s.sessions, playerID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}

	c, ok := s.counters[key]
	if !ok || now.After(c.expiresAt) {
		c = &counter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++

	return c.count <= limit, nil
}

// sweepLocked drops every expired entry and counter. Callers hold s.mu.
func (s *MemoryStore) sweepLocked(now time.Time) {
	s.lastSweep = now
	for key, c := range s.counters {
		if now.After(c.expiresAt) {
			delete(s.counters, key)
		}
	}
	for _, m := range []map[string]entry{s.players, s.sessions} {
		for key, e := range m {
			if now.After(e.expiresAt) {
				delete(m, key)
			}
		}
	}
}

func (s *MemoryStore) Close() error { return nil }
