package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/middleware"
	"mine-game-backend/internal/models"
	"mine-game-backend/internal/services"
)

type PlayerHandler struct {
	store        services.SessionStore
	jwtService   *services.JWTService
	gameEngine   *services.GameEngine
	log          *logrus.Logger
	secureCookie bool
}

func NewPlayerHandler(store services.SessionStore, jwtService *services.JWTService, gameEngine *services.GameEngine, log *logrus.Logger, secureCookie bool) *PlayerHandler {
	return &PlayerHandler{
		store:        store,
		jwtService:   jwtService,
		gameEngine:   gameEngine,
		log:          log,
		secureCookie: secureCookie,
	}
}

// Guest registers an anonymous player and hands back its token.
func (h *PlayerHandler) Guest(c *gin.Context) {
	player := models.NewPlayer()
	if err := h.store.SavePlayer(c.Request.Context(), player); err != nil {
		h.log.WithError(err).Error("failed to save guest player")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create player"})
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(player.ID)
	if err != nil {
		h.log.WithError(err).Error("failed to issue token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookie, true)

	h.log.WithField("player_id", player.ID).Info("guest player created")

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"player":     player,
	})
}

func (h *PlayerHandler) Me(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)
	ctx := c.Request.Context()

	player, err := h.store.GetPlayer(ctx, playerID)
	if errors.Is(err, services.ErrPlayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("player_id", playerID).Error("failed to load player")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load player"})
		return
	}

	player.LastSeen = time.Now()
	if err := h.store.SavePlayer(ctx, player); err != nil {
		h.log.WithError(err).WithField("player_id", playerID).Warn("failed to update last seen")
	}

	view, err := h.gameEngine.State(ctx, playerID)
	if err != nil {
		h.log.WithError(err).WithField("player_id", playerID).Error("failed to load game")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player": player,
		"game":   view,
	})
}

func (h *PlayerHandler) Logout(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	if err := h.gameEngine.EndSession(c.Request.Context(), playerID); err != nil {
		h.log.WithError(err).WithField("player_id", playerID).Error("failed to end session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
