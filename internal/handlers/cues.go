package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/web"
)

type CueHandler struct {
	synth *audio.Synthesizer
	log   *logrus.Logger
}

func NewCueHandler(synth *audio.Synthesizer, log *logrus.Logger) *CueHandler {
	return &CueHandler{synth: synth, log: log}
}

// GetCue serves a rendered cue, e.g. /cues/success.wav.
func (h *CueHandler) GetCue(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("name"), ".wav")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown cue"})
		return
	}
	kind, err := audio.ParseCueKind(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown cue", "details": err.Error()})
		return
	}

	data, err := h.synth.WAV(kind)
	if err != nil {
		h.log.WithError(err).WithField("cue", name).Error("failed to render cue")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render cue"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "audio/wav", data)
}

// Index serves the browser client.
func Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}
