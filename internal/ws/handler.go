package ws

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/carom/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects how a client receives messages.
type Encoding string

const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding maps the enc query parameter; empty means JSON.
func ParseEncoding(s string) (Encoding, bool) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, true
	case EncodingMsgpack:
		return EncodingMsgpack, true
	}
	return "", false
}

type outbound struct {
	kind int
	data []byte
}

// encode renders message for enc. Msgpack reuses the json tags so both
// encodings carry the same field names.
func encode(enc Encoding, message interface{}) (outbound, error) {
	if enc == EncodingMsgpack {
		var buf bytes.Buffer
		e := msgpack.NewEncoder(&buf)
		e.SetCustomStructTag("json")
		if err := e.Encode(message); err != nil {
			return outbound{}, err
		}
		return outbound{kind: websocket.BinaryMessage, data: buf.Bytes()}, nil
	}
	data, err := json.Marshal(message)
	if err != nil {
		return outbound{}, err
	}
	return outbound{kind: websocket.TextMessage, data: data}, nil
}

// Client represents a connected WebSocket client
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	playerID   string
	matchToken string
	enc        Encoding
	send       chan outbound
}

// Hub maintains the set of active clients
type Hub struct {
	manager    *game.GameManager
	upgrader   websocket.Upgrader
	clients    map[string]*Client            // playerID -> Client
	rooms      map[string]map[string]*Client // match token -> playerID -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
}

// NewHub creates a hub serving the matches of gm and subscribes it to their
// frames and endings. checkOrigin may be nil to accept any origin.
func NewHub(gm *game.GameManager, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	h := &Hub{
		manager: gm,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	gm.SetFrameSink(h.OnFrame)
	gm.SetFinishHook(h.OnFinish)
	return h
}

// BroadcastToMatch sends a message to every player connected to a match.
// Each encoding is rendered at most once.
func (h *Hub) BroadcastToMatch(matchToken string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[matchToken]
	if !exists {
		return
	}
	rendered := make(map[Encoding]outbound, 2)
	for _, client := range room {
		out, ok := rendered[client.enc]
		if !ok {
			var err error
			if out, err = encode(client.enc, message); err != nil {
				log.Printf("[WS] Error encoding message for match %s: %v", matchToken, err)
				return
			}
			rendered[client.enc] = out
		}
		client.queue(out)
	}
}

// SendToPlayer sends a message to a specific player
func (h *Hub) SendToPlayer(playerID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[playerID]
	if !exists {
		return
	}
	out, err := encode(client.enc, message)
	if err != nil {
		log.Printf("[WS] Error encoding message for player %s: %v", playerID, err)
		return
	}
	client.queue(out)
}

// sendToClient delivers only while c is still the player's registered connection.
func (h *Hub) sendToClient(c *Client, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if cur, ok := h.clients[c.playerID]; !ok || cur != c {
		return
	}
	out, err := encode(c.enc, message)
	if err != nil {
		log.Printf("[WS] Error encoding message for player %s: %v", c.playerID, err)
		return
	}
	c.queue(out)
}

// ConnectedPlayers lists the players connected to a match.
func (h *Hub) ConnectedPlayers(matchToken string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []string
	for id := range h.rooms[matchToken] {
		ids = append(ids, id)
	}
	return ids
}

// queue must be called with the hub lock held so send is never closed underneath.
func (c *Client) queue(out outbound) {
	select {
	case c.send <- out:
	default:
		log.Printf("[WS] Send buffer full for player %s in match %s, dropping message", c.playerID, c.matchToken)
	}
}

// Message types
type WSMessage struct {
	Type string   `json:"type" msgpack:"type"`
	Data *AimData `json:"data,omitempty" msgpack:"data,omitempty"`
}

// AimData places the aiming marker on the table plane.
type AimData struct {
	X float64 `json:"x" msgpack:"x"`
	Z float64 `json:"z" msgpack:"z"`
}

// decodeMessage accepts JSON text frames and msgpack binary frames.
func decodeMessage(kind int, raw []byte) (WSMessage, error) {
	var msg WSMessage
	if kind == websocket.BinaryMessage {
		err := msgpack.Unmarshal(raw, &msg)
		return msg, err
	}
	err := json.Unmarshal(raw, &msg)
	return msg, err
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Replaced or unregistered; the connection may already be closed.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.kind, message.data); err != nil {
				log.Printf("[WS] Write error for player %s: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for player %s: %v", c.playerID, err)
				return
			}
		}
	}
}

// readPump reads commands until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		kind, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Unexpected close for player %s: %v", c.playerID, err)
			}
			break
		}

		msg, err := decodeMessage(kind, message)
		if err != nil {
			c.sendError("Invalid message")
			continue
		}
		c.hub.handleMessage(c, msg)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.hub.sendToClient(c, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
