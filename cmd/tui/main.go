package main

import (
	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/audio/speaker"
	"mine-game-backend/internal/config"
	"mine-game-backend/internal/game"
	"mine-game-backend/internal/logging"
	"mine-game-backend/internal/tui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "development").WithError(err).Fatal("Failed to load config")
	}
	log := logging.New(cfg.LogLevel, cfg.Env)

	screen, err := tcell.NewScreen()
	if err != nil {
		log.WithError(err).Fatal("Failed to create screen")
	}

	synth := audio.NewSynthesizer(audio.Config{
		SampleRate: cfg.CueSampleRate,
		Volume:     cfg.CueVolume,
	})
	feedback, err := speaker.New(synth, func() { _ = screen.Beep() })
	if err != nil {
		log.WithError(err).Warn("Audio initialization failed, falling back to the terminal bell")
	}
	defer feedback.Close()

	session, err := game.NewSession(cfg.DefaultMineCount,
		game.WithRand(game.NewRand()),
		game.WithFeedback(feedback),
		game.WithLossCueDelay(cfg.LossCueDelay),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to start game")
	}
	defer session.Close()

	if err := screen.Init(); err != nil {
		log.WithError(err).Fatal("Failed to initialize screen")
	}
	defer screen.Fini()

	tui.New(screen, session, feedback).Run()
}
