package game

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/playmatatu/carom/internal/auth"
	"github.com/playmatatu/carom/internal/config"
	"github.com/redis/go-redis/v9"
)

const queueKey = "carom:queue"

var ErrTicketNotFound = errors.New("queue ticket not found or expired")

// Ticket is a player's place in the matchmaking queue. Once matched it
// carries everything the client needs to connect.
type Ticket struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"` // queued or matched
	MatchToken  string `json:"match_token,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	PlayerToken string `json:"player_token,omitempty"`
	Slot        int    `json:"slot,omitempty"`
	QueuedAt    int64  `json:"queued_at"`
}

func ticketKey(id string) string {
	return "carom:ticket:" + id
}

// Enqueue adds a named player to the queue and returns their ticket.
func Enqueue(ctx context.Context, rdb *redis.Client, cfg *config.Config, name string) (*Ticket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("display name required")
	}
	t := &Ticket{ID: "t_" + generateToken(8), DisplayName: name, Status: "queued", QueuedAt: time.Now().Unix()}
	if err := saveTicket(ctx, rdb, cfg, t); err != nil {
		return nil, err
	}
	if err := rdb.RPush(ctx, queueKey, t.ID).Err(); err != nil {
		return nil, err
	}
	log.Printf("[MATCHMAKER] %s queued as %s", name, t.ID)
	return t, nil
}

// GetTicket loads a ticket by ID.
func GetTicket(ctx context.Context, rdb *redis.Client, id string) (*Ticket, error) {
	data, err := rdb.Get(ctx, ticketKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	var t Ticket
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func saveTicket(ctx context.Context, rdb *redis.Client, cfg *config.Config, t *Ticket) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	ttl := time.Duration(cfg.QueueTicketTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return rdb.Set(ctx, ticketKey(t.ID), data, ttl).Err()
}

// StartMatchmakerWorker pairs queued tickets into matches until ctx is done.
func StartMatchmakerWorker(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config) {
	if rdb == nil || gm == nil {
		log.Println("[MATCHMAKER] Redis missing; matchmaker not started")
		return
	}

	interval := time.Duration(cfg.MatchmakerPollSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("[MATCHMAKER] Starting matchmaker worker (poll every %v)", interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[MATCHMAKER] Worker stopped")
			return
		case <-ticker.C:
			for tryMatchPair(ctx, gm, rdb, cfg) {
			}
		}
	}
}

// tryMatchPair pops two live tickets and starts a match for them. It reports
// whether a pair was matched.
func tryMatchPair(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config) bool {
	first, ok := popLiveTicket(ctx, rdb)
	if !ok {
		return false
	}
	second, ok := popLiveTicket(ctx, rdb)
	if !ok {
		// Put the lone ticket back at the head so it keeps its place.
		if err := rdb.LPush(ctx, queueKey, first.ID).Err(); err != nil {
			log.Printf("[MATCHMAKER] Failed to requeue %s: %v", first.ID, err)
		}
		return false
	}

	m, p1, p2, err := gm.CreatePairedMatch(ctx, first.DisplayName, second.DisplayName)
	if err != nil {
		log.Printf("[MATCHMAKER] Failed to create match: %v", err)
		rdb.LPush(ctx, queueKey, second.ID, first.ID)
		return false
	}

	ttl := time.Duration(cfg.TokenTTLMinutes) * time.Minute
	for _, seat := range []struct {
		t *Ticket
		p *MatchPlayer
	}{{first, p1}, {second, p2}} {
		token, err := auth.IssuePlayerToken(cfg.JWTSecret, ttl, m.Token, seat.p.ID, int(seat.p.Slot))
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to sign token for %s: %v", seat.t.ID, err)
			continue
		}
		seat.t.Status = "matched"
		seat.t.MatchToken = m.Token
		seat.t.PlayerID = seat.p.ID
		seat.t.PlayerToken = token
		seat.t.Slot = int(seat.p.Slot)
		if err := saveTicket(ctx, rdb, cfg, seat.t); err != nil {
			log.Printf("[MATCHMAKER] Failed to save ticket %s: %v", seat.t.ID, err)
		}
	}

	log.Printf("[MATCHMAKER] Match created: %s token=%s tickets=[%s,%s]", m.ID, m.Token, first.ID, second.ID)
	gm.publishEvent(ctx, map[string]interface{}{
		"type":        "match_found",
		"match_token": m.Token,
		"tickets":     []string{first.ID, second.ID},
	})
	return true
}

// popLiveTicket pops queue entries until one still has a queued ticket.
func popLiveTicket(ctx context.Context, rdb *redis.Client) (*Ticket, bool) {
	for {
		id, err := rdb.LPop(ctx, queueKey).Result()
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		if err != nil {
			log.Printf("[MATCHMAKER] Failed to pop queue: %v", err)
			return nil, false
		}
		t, err := GetTicket(ctx, rdb, id)
		if err != nil || t.Status != "queued" {
			continue
		}
		return t, true
	}
}
