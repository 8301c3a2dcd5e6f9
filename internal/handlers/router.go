package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/config"
	"mine-game-backend/internal/middleware"
	"mine-game-backend/internal/services"
)

const (
	actionGuest     = "guest"
	guestRateLimit  = 30
	guestRateWindow = time.Minute
)

type RouterDeps struct {
	Config     *config.Config
	Log        *logrus.Logger
	Store      services.Store
	JWTService *services.JWTService
	GameEngine *services.GameEngine
	Hub        *WebSocketHub
	Synth      *audio.Synthesizer
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if d.Config.IsProduction() {
		router.Use(middleware.RequestLogger(d.Log))
	} else {
		router.Use(gin.Logger())
	}
	router.Use(middleware.CORS())

	playerHandler := NewPlayerHandler(d.Store, d.JWTService, d.GameEngine, d.Log, d.Config.IsProduction())
	gameHandler := NewGameHandler(d.GameEngine, d.Log)
	wsHandler := NewWebSocketHandler(d.GameEngine, d.Hub, d.Log)
	cueHandler := NewCueHandler(d.Synth, d.Log)

	router.GET("/", Index)
	router.GET("/cues/:name", cueHandler.GetCue)
	router.GET("/auth/guest",
		middleware.RateLimitMiddleware(d.Store, d.Log, actionGuest, guestRateLimit, guestRateWindow),
		playerHandler.Guest)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(d.JWTService))
	{
		protected.GET("/me", playerHandler.Me)
		protected.POST("/logout", playerHandler.Logout)

		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/game")
		{
			games.GET("", gameHandler.GetState)
			games.POST("/new", gameHandler.NewGame)
			games.POST("/mines", gameHandler.SetMineCount)
			games.POST("/reveal", gameHandler.Reveal)
			games.POST("/dialog/dismiss", gameHandler.DismissDialog)
			games.POST("/mute", gameHandler.SetMuted)
		}
	}

	return router
}
