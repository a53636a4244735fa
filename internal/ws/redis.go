package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/playmatatu/carom/internal/game"
	"github.com/redis/go-redis/v9"
)

// StartEventSubscriber relays match_events published by the workers to the
// players connected to this instance.
func (h *Hub) StartEventSubscriber(ctx context.Context, rdb *redis.Client) {
	if rdb == nil {
		log.Println("[WS] Redis client not set; event subscriber not started")
		return
	}

	pubsub := rdb.Subscribe(ctx, game.EventsChannel)
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		log.Printf("[WS] %s subscriber started", game.EventsChannel)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.relayEvent(msg.Payload)
			}
		}
	}()
}

// relayEvent forwards one published payload to the room it names.
func (h *Hub) relayEvent(raw string) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Printf("[WS] invalid event payload: %v", err)
		return
	}

	typeStr, _ := payload["type"].(string)
	matchToken, _ := payload["match_token"].(string)

	switch typeStr {
	case "idle_warning":
		h.BroadcastToMatch(matchToken, map[string]interface{}{
			"type":              "idle_warning",
			"player":            payload["player"],
			"forfeit_at":        payload["forfeit_at"],
			"remaining_seconds": payload["remaining_seconds"],
			"message":           payload["message"],
		})

	case "idle_forfeit":
		// The instance that ran the forfeit already sent game_over to its own
		// clients; this reaches players connected elsewhere.
		h.BroadcastToMatch(matchToken, map[string]interface{}{
			"type":    "idle_forfeit",
			"player":  payload["player"],
			"winner":  payload["winner"],
			"message": payload["message"],
		})

	case "match_found":
		// Queued players poll their tickets; nobody is connected yet.
		log.Printf("[WS] match_found for %s", matchToken)

	default:
		log.Printf("[WS] unknown event type: %s", typeStr)
	}
}
