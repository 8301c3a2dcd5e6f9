package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/game"
	"mine-game-backend/internal/middleware"
	"mine-game-backend/internal/models"
	"mine-game-backend/internal/services"
)

type GameHandler struct {
	gameEngine *services.GameEngine
	log        *logrus.Logger
}

func NewGameHandler(gameEngine *services.GameEngine, log *logrus.Logger) *GameHandler {
	return &GameHandler{
		gameEngine: gameEngine,
		log:        log,
	}
}

func (h *GameHandler) GetState(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	view, err := h.gameEngine.State(c.Request.Context(), playerID)
	if err != nil {
		h.respondError(c, "Failed to load game", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (h *GameHandler) NewGame(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	var req models.NewGameRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request",
				"details": err.Error(),
			})
			return
		}
	}

	view, err := h.gameEngine.NewGame(c.Request.Context(), playerID, req.MineCount)
	if err != nil {
		h.respondError(c, "Failed to start game", err)
		return
	}

	h.log.WithFields(logrus.Fields{
		"player_id":  playerID,
		"round":      view.Round,
		"mine_count": view.MineCount,
	}).Info("new round started")

	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (h *GameHandler) SetMineCount(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	var req models.MineCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	view, err := h.gameEngine.SetMineCount(c.Request.Context(), playerID, req.MineCount)
	if err != nil {
		h.respondError(c, "Failed to change mine count", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (h *GameHandler) Reveal(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	var req models.RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.gameEngine.Reveal(c.Request.Context(), playerID, *req.Position)
	if err != nil {
		h.respondError(c, "Failed to reveal tile", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GameHandler) DismissDialog(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	view, err := h.gameEngine.DismissDialog(c.Request.Context(), playerID)
	if err != nil {
		h.respondError(c, "Failed to dismiss dialog", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": view})
}

func (h *GameHandler) SetMuted(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)

	var req models.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	view, err := h.gameEngine.SetMuted(c.Request.Context(), playerID, *req.Muted)
	if err != nil {
		h.respondError(c, "Failed to update mute", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"game": view})
}

// respondError maps engine errors onto status codes.
func (h *GameHandler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidMineCount), errors.Is(err, game.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": msg, "details": err.Error()})
	case errors.Is(err, services.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many reveals. Please wait."})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msg, "details": err.Error()})
	default:
		h.log.WithError(err).WithField("player_id", c.GetString(middleware.PlayerIDKey)).Error(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
