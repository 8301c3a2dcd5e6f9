package models

import "fmt"

type RevealRequest struct {
	// pointer so that position 0 passes the required check
	Position *int `json:"position" binding:"required,min=0,max=19"`
}

type MineCountRequest struct {
	MineCount int `json:"mine_count" binding:"required,oneof=3 5 10"`
}

type NewGameRequest struct {
	MineCount int `json:"mine_count" binding:"omitempty,oneof=3 5 10"`
}

type MuteRequest struct {
	Muted *bool `json:"muted" binding:"required"`
}

type RevealResponse struct {
	Position int       `json:"position"`
	Outcome  string    `json:"outcome"`
	Game     *GameView `json:"game"`
}

// Push message types sent over the websocket.
const (
	MessageState = "STATE"
	MessageCue   = "CUE"
	MessagePing  = "PING"
	MessagePong  = "PONG"
)

type CueEvent struct {
	Cue   string `json:"cue"`
	URL   string `json:"url"`
	Round int    `json:"round"`
}

func CueURL(cue string) string {
	return fmt.Sprintf("/cues/%s.wav", cue)
}
