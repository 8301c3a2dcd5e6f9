package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"mine-game-backend/internal/audio"
	"mine-game-backend/internal/middleware"
	"mine-game-backend/internal/models"
	"mine-game-backend/internal/services"
)

const (
	writeWait      = 10 * time.Second
	clientSendSize = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type     string `json:"type"`
	PlayerID string `json:"-"`
	Data     any    `json:"data,omitempty"`
}

type Client struct {
	PlayerID string
	conn     *websocket.Conn
	send     chan []byte
}

// WebSocketHub fans state and cue pushes out to every connection a player
// has open. The map of clients is owned by the Run goroutine.
type WebSocketHub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	log        *logrus.Logger
}

func NewWebSocketHub(log *logrus.Logger) *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
		log:        log,
	}
}

func (hub *WebSocketHub) Run(ctx context.Context) {
	defer close(hub.done)
	for {
		select {
		case <-ctx.Done():
			for _, set := range hub.clients {
				for client := range set {
					client.conn.Close()
				}
			}
			return

		case client := <-hub.register:
			set, ok := hub.clients[client.PlayerID]
			if !ok {
				set = make(map[*Client]struct{})
				hub.clients[client.PlayerID] = set
			}
			set[client] = struct{}{}
			hub.log.WithField("player_id", client.PlayerID).Debug("websocket client registered")

		case client := <-hub.unregister:
			hub.remove(client)

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) remove(client *Client) {
	set, ok := hub.clients[client.PlayerID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(hub.clients, client.PlayerID)
	}
	hub.log.WithField("player_id", client.PlayerID).Debug("websocket client unregistered")
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		hub.log.WithError(err).Error("failed to encode websocket message")
		return
	}

	for client := range hub.clients[message.PlayerID] {
		select {
		case client.send <- data:
		default:
			// slow reader; closing the conn ends its read loop
			hub.remove(client)
			client.conn.Close()
		}
	}
}

func (hub *WebSocketHub) publish(message *Message) {
	select {
	case hub.broadcast <- message:
	case <-hub.done:
	default:
		hub.log.WithField("type", message.Type).Warn("websocket broadcast queue full, dropping message")
	}
}

// join hands the client to the hub, failing once Run has returned.
func (hub *WebSocketHub) join(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) leave(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) BroadcastState(playerID string, view *models.GameView) {
	hub.publish(&Message{Type: models.MessageState, PlayerID: playerID, Data: view})
}

func (hub *WebSocketHub) BroadcastCue(playerID string, cue audio.CueKind, round int) {
	hub.publish(&Message{
		Type:     models.MessageCue,
		PlayerID: playerID,
		Data: models.CueEvent{
			Cue:   string(cue),
			URL:   models.CueURL(string(cue)),
			Round: round,
		},
	})
}

var _ services.Broadcaster = (*WebSocketHub)(nil)

type WebSocketHandler struct {
	gameEngine *services.GameEngine
	hub        *WebSocketHub
	log        *logrus.Logger
}

func NewWebSocketHandler(gameEngine *services.GameEngine, hub *WebSocketHub, log *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		gameEngine: gameEngine,
		hub:        hub,
		log:        log,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	playerID := c.GetString(middleware.PlayerIDKey)
	log := h.log.WithField("player_id", playerID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}

	client := &Client{
		PlayerID: playerID,
		conn:     conn,
		send:     make(chan []byte, clientSendSize),
	}

	if !h.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()

	defer func() {
		h.hub.leave(client)
		close(client.send)
	}()

	if view, err := h.gameEngine.State(c.Request.Context(), playerID); err != nil {
		log.WithError(err).Error("failed to load state for websocket")
	} else {
		client.queue(&Message{Type: models.MessageState, Data: view})
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket closed")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case models.MessagePing:
		client.queue(&Message{
			Type: models.MessagePong,
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	}
}

// queue is only called from the connection's read loop, which also owns
// closing send.
func (c *Client) queue(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
