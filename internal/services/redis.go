package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mine-game-backend/internal/config"
	"mine-game-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	client     *redis.Client
	sessionTTL time.Duration
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = TTLGameSession
	}

	return &RedisService{
		client:     client,
		sessionTTL: ttl,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) SavePlayer(ctx context.Context, player *models.Player) error {
	key := fmt.Sprintf(KeyPlayerInfo, player.ID)

	data, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	return s.client.Set(ctx, key, data, TTLPlayerInfo).Err()
}

func (s *RedisService) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	key := fmt.Sprintf(KeyPlayerInfo, playerID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var player models.Player
	if err := json.Unmarshal([]byte(data), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func (s *RedisService) SaveGameSession(ctx context.Context, session *models.PlayerSession) error {
	key := fmt.Sprintf(KeyGameSession, session.PlayerID)

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal game session: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save game session: %w", err)
	}

	return nil
}

func (s *RedisService) GetGameSession(ctx context.Context, playerID string) (*models.PlayerSession, error) {
	key := fmt.Sprintf(KeyGameSession, playerID)

	data, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, playerID)
		}
		return nil, fmt.Errorf("failed to get game session: %w", err)
	}

	var session models.PlayerSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game session: %w", err)
	}

	return &session, nil
}

func (s *RedisService) DeleteGameSession(ctx context.Context, playerID string) error {
	key := fmt.Sprintf(KeyGameSession, playerID)
	return s.client.Del(ctx, key).Err()
}

func (s *RedisService) DeletePlayer(ctx context.Context, playerID string) error {
	key := fmt.Sprintf(KeyPlayerInfo, playerID)
	return s.client.Del(ctx, key).Err()
}

func (s *RedisService) CheckRateLimit(ctx context.Context, playerID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, playerID, action string) error {
	key := fmt.Sprintf(KeyRateLimit, playerID, action)
	return s.client.Del(ctx, key).Err()
}
