package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/config"
	"mine-game-backend/internal/handlers"
	"mine-game-backend/internal/logging"
	"mine-game-backend/internal/services"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logging.New(cfg.LogLevel, cfg.Env)
	if envErr != nil {
		log.Info("No .env file found, using environment variables")
	}

	var store services.Store
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Redis")
		}
		store = redisService
	} else {
		log.Warn("REDIS_URL not set, keeping sessions in memory")
		store = services.NewMemoryStore(cfg.SessionTTL)
	}
	defer store.Close()

	synth := audio.NewSynthesizer(audio.Config{
		SampleRate: cfg.CueSampleRate,
		Volume:     cfg.CueVolume,
	})
	if err := synth.Preload(); err != nil {
		log.WithError(err).Fatal("Failed to render cues")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := handlers.NewWebSocketHub(log)
	go hub.Run(ctx)

	gameEngine := services.NewGameEngine(store, hub, log, services.EngineOptions{
		DefaultMineCount: cfg.DefaultMineCount,
		LossCueDelay:     cfg.LossCueDelay,
		RevealRateLimit:  cfg.RevealRateLimit,
	})
	defer gameEngine.Shutdown()

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				gameEngine.CleanupStaleGames(cfg.StaleSessionAge)
			}
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:     cfg,
		Log:        log,
		Store:      store,
		JWTService: services.NewJWTService(cfg),
		GameEngine: gameEngine,
		Hub:        hub,
		Synth:      synth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}
}
