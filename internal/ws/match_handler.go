package ws

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/carom/internal/auth"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/game"
)

// FrameMessage is sent for every frame with movement or events.
type FrameMessage struct {
	Type     string           `json:"type"`
	Status   game.MatchStatus `json:"status"`
	Snapshot carom.Snapshot   `json:"snapshot"`
	Events   []carom.Event    `json:"events,omitempty"`
}

// RallyMessage announces a resolved rally.
type RallyMessage struct {
	Type   string           `json:"type"`
	Rally  game.RallyRecord `json:"rally"`
	Score1 int              `json:"score1"`
	Score2 int              `json:"score2"`
}

// StateMessage is the full match state as one player sees it.
type StateMessage struct {
	Type  string         `json:"type"`
	State game.MatchView `json:"state"`
}

// GameOverMessage closes a match for its players.
type GameOverMessage struct {
	Type       string           `json:"type"`
	Status     game.MatchStatus `json:"status"`
	Winner     string           `json:"winner,omitempty"`
	WinType    string           `json:"win_type,omitempty"`
	Score1     int              `json:"score1"`
	Score2     int              `json:"score2"`
	RallyCount int              `json:"rally_count"`
}

// HandleWebSocket upgrades a player holding a token for this match.
func (h *Hub) HandleWebSocket(c *gin.Context) {
	matchToken := c.Param("token")
	playerToken := c.Query("pt")
	if playerToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pt required"})
		return
	}
	enc, ok := ParseEncoding(c.Query("enc"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "enc must be json or msgpack"})
		return
	}

	claims, err := auth.ParsePlayerToken(h.manager.GetConfig().JWTSecret, playerToken)
	if err != nil || claims.MatchToken != matchToken {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid player token"})
		return
	}

	m, err := h.manager.GetMatch(matchToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	if m.GetPlayerByID(claims.PlayerID) == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "player not in match"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		playerID:   claims.PlayerID,
		matchToken: matchToken,
		enc:        enc,
		send:       make(chan outbound, 256),
	}

	if !h.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// Run serves register and unregister requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

// join hands a new client to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave hands a finished client to Run, or drops it if the hub has stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	isReconnect := false
	if old, exists := h.clients[client.playerID]; exists {
		log.Printf("[WS] Player %s reconnecting - closing old connection", client.playerID)
		old.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
			time.Now().Add(5*time.Second))
		old.conn.Close()
		h.dropLocked(old)
		isReconnect = true
	}
	h.clients[client.playerID] = client
	if _, exists := h.rooms[client.matchToken]; !exists {
		h.rooms[client.matchToken] = make(map[string]*Client)
	}
	h.rooms[client.matchToken][client.playerID] = client
	h.mu.Unlock()

	log.Printf("[WS] Player %s connected to match %s (%s)", client.playerID, client.matchToken, client.enc)

	m, err := h.manager.GetMatch(client.matchToken)
	if err != nil {
		log.Printf("[WS] Match not found for token %s: %v", client.matchToken, err)
		return
	}
	wasAway := false
	if p := m.GetPlayerByID(client.playerID); p != nil {
		wasAway = p.ShowedUp && !p.Connected
	}
	m.SetPlayerConnected(client.playerID, true)

	h.sendToClient(client, StateMessage{Type: "game_state", State: m.View(client.playerID)})

	switch m.CurrentStatus() {
	case game.StatusWaiting:
		h.sendToClient(client, map[string]interface{}{
			"type":    "waiting_for_opponent",
			"message": "Waiting for opponent...",
		})
	case game.StatusInProgress:
		if isReconnect || wasAway {
			h.BroadcastToMatch(client.matchToken, map[string]interface{}{
				"type":    "player_connected",
				"player":  client.playerID,
				"message": "Opponent connected",
			})
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	cur, ok := h.clients[client.playerID]
	if !ok || cur != client {
		h.mu.Unlock()
		return
	}
	h.dropLocked(client)
	h.mu.Unlock()

	log.Printf("[WS] Player %s disconnected from match %s", client.playerID, client.matchToken)

	m, err := h.manager.GetMatch(client.matchToken)
	if err != nil {
		return
	}
	m.SetPlayerConnected(client.playerID, false)
	if m.CurrentStatus() != game.StatusInProgress {
		return
	}

	grace := h.manager.GetConfig().DisconnectGraceSeconds
	h.BroadcastToMatch(client.matchToken, map[string]interface{}{
		"type":          "player_disconnected",
		"player":        client.playerID,
		"grace_seconds": grace,
		"message":       fmt.Sprintf("Opponent disconnected. Waiting %d seconds...", grace),
	})
	if grace <= 0 {
		return
	}
	playerID := client.playerID
	time.AfterFunc(time.Duration(grace)*time.Second, func() {
		h.forfeitIfAway(m, playerID)
	})
}

// forfeitIfAway ends the match if playerID has not come back.
func (h *Hub) forfeitIfAway(m *game.Match, playerID string) {
	p := m.GetPlayerByID(playerID)
	if p == nil || p.Connected || m.CurrentStatus() != game.StatusInProgress {
		return
	}
	if err := h.manager.ForfeitByDisconnect(m, playerID); err != nil {
		log.Printf("[WS] Disconnect forfeit failed for %s in %s: %v", playerID, m.Token, err)
	}
}

// dropLocked removes client from the maps and closes its send channel.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients, client.playerID)
	if room, exists := h.rooms[client.matchToken]; exists {
		delete(room, client.playerID)
		if len(room) == 0 {
			delete(h.rooms, client.matchToken)
		}
	}
	close(client.send)
}

// handleMessage applies one command from a player.
func (h *Hub) handleMessage(c *Client, msg WSMessage) {
	m, err := h.manager.GetMatch(c.matchToken)
	if err != nil {
		c.sendError("Match not found")
		return
	}

	switch msg.Type {
	case "aim":
		if msg.Data == nil {
			c.sendError("Invalid aim data")
			return
		}
		if _, err := m.Aim(c.playerID, msg.Data.X, msg.Data.Z); err != nil {
			c.sendError(err.Error())
			return
		}
		h.manager.MarkActive(m)

	case "cancel_aim":
		if err := m.CancelAim(c.playerID); err != nil {
			c.sendError(err.Error())
			return
		}
		h.manager.MarkActive(m)

	case "shoot":
		if err := m.Shoot(c.playerID); err != nil {
			c.sendError(err.Error())
			return
		}
		h.manager.MarkActive(m)

	case "get_state":
		h.sendToClient(c, StateMessage{Type: "game_state", State: m.View(c.playerID)})

	case "concede":
		if err := h.manager.Concede(m, c.playerID); err != nil {
			if errors.Is(err, game.ErrMatchNotInProgress) {
				c.sendError("Match is not in progress")
				return
			}
			c.sendError(err.Error())
		}

	default:
		c.sendError("Unknown message type")
	}
}

// BroadcastState sends each connected player their own view of m.
func (h *Hub) BroadcastState(m *game.Match) {
	for _, playerID := range h.ConnectedPlayers(m.Token) {
		h.SendToPlayer(playerID, StateMessage{Type: "game_state", State: m.View(playerID)})
	}
}

// OnFrame relays a frame and any rallies it resolved.
func (h *Hub) OnFrame(m *game.Match, u game.FrameUpdate) {
	h.BroadcastToMatch(m.Token, FrameMessage{
		Type:     "frame",
		Status:   u.Status,
		Snapshot: u.Snapshot,
		Events:   u.Events,
	})
	for _, r := range u.Rallies {
		h.BroadcastToMatch(m.Token, RallyMessage{
			Type:   "rally_result",
			Rally:  r,
			Score1: u.Snapshot.Score1,
			Score2: u.Snapshot.Score2,
		})
	}
	if len(u.Rallies) > 0 && !u.GameOver {
		h.BroadcastState(m)
	}
}

// OnFinish announces the end of a match and sends the final state.
func (h *Hub) OnFinish(m *game.Match) {
	winner, winType, s1, s2, rallies := m.Result()
	h.BroadcastToMatch(m.Token, GameOverMessage{
		Type:       "game_over",
		Status:     m.CurrentStatus(),
		Winner:     winner,
		WinType:    winType,
		Score1:     s1,
		Score2:     s2,
		RallyCount: rallies,
	})
	h.BroadcastState(m)
}
