package game

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/playmatatu/carom/internal/config"
	"github.com/redis/go-redis/v9"
)

// StartIdleWorker polls the idle sorted sets and warns, then forfeits, the
// player who sits on their turn.
func StartIdleWorker(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config) {
	if rdb == nil || cfg == nil || gm == nil {
		log.Println("[IDLE] Redis or config missing; idle worker not started")
		return
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		poll := time.Duration(cfg.IdleWorkerPollSeconds) * time.Second
		if poll <= 0 {
			poll = time.Second
		}
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				processIdle(ctx, gm, rdb, cfg, now)
			}
		}
	}()
}

// processIdle handles every warning and forfeit due at now.
func processIdle(ctx context.Context, gm *GameManager, rdb *redis.Client, cfg *config.Config, now time.Time) {
	for _, member := range dueMembers(ctx, rdb, idleWarningKey, now) {
		m, playerID, lastTs, ok := resolveIdle(ctx, gm, rdb, member, now, cfg.IdleWarningSeconds)
		if !ok {
			continue
		}
		forfeitAt := time.Unix(lastTs, 0).Add(time.Duration(cfg.IdleForfeitSeconds) * time.Second)
		gm.publishEvent(ctx, map[string]interface{}{
			"type":              "idle_warning",
			"match_token":       m.Token,
			"player":            playerID,
			"forfeit_at":        forfeitAt.Format(time.RFC3339),
			"remaining_seconds": int(forfeitAt.Sub(now).Seconds()),
			"message":           "Player idle; will forfeit soon.",
		})
	}

	for _, member := range dueMembers(ctx, rdb, idleForfeitKey, now) {
		m, playerID, _, ok := resolveIdle(ctx, gm, rdb, member, now, cfg.IdleForfeitSeconds)
		if !ok {
			continue
		}
		log.Printf("[IDLE] Forfeiting player %s in match %s due to inactivity", playerID, m.Token)
		if err := gm.ForfeitByIdle(m, playerID); err != nil {
			log.Printf("[IDLE] forfeit failed: match=%s player=%s err=%v", m.Token, playerID, err)
			continue
		}
		winner, _, _, _, _ := m.Result()
		gm.publishEvent(ctx, map[string]interface{}{
			"type":        "idle_forfeit",
			"match_token": m.Token,
			"player":      playerID,
			"winner":      winner,
			"message":     "Player forfeited due to inactivity",
		})
	}
}

// dueMembers atomically claims the members of key whose score is at or before now.
func dueMembers(ctx context.Context, rdb *redis.Client, key string, now time.Time) []string {
	members, err := rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch %s: %v", key, err)
		return nil
	}

	claimed := members[:0]
	for _, m := range members {
		// Only the instance whose ZREM succeeds handles the member.
		if removed, _ := rdb.ZRem(ctx, key, m).Result(); removed > 0 {
			claimed = append(claimed, m)
		}
	}
	return claimed
}

// resolveIdle checks that member is still idle for at least threshold seconds
// and still holds the turn of a running match.
func resolveIdle(ctx context.Context, gm *GameManager, rdb *redis.Client, member string, now time.Time, threshold int) (*Match, string, int64, bool) {
	token, playerID := parseMember(member)
	if token == "" || playerID == "" {
		return nil, "", 0, false
	}

	last, _ := rdb.Get(ctx, "last_active:"+member).Result()
	lastTs, _ := strconv.ParseInt(last, 10, 64)
	if now.Unix()-lastTs < int64(threshold) {
		return nil, "", 0, false
	}

	m, err := gm.GetMatch(token)
	if err != nil {
		return nil, "", 0, false
	}
	if m.CurrentStatus() != StatusInProgress || m.CurrentPlayerID() != playerID {
		log.Printf("[IDLE] skipping %s: match no longer waiting on this player", member)
		return nil, "", 0, false
	}
	return m, playerID, lastTs, true
}

// parseMember expects member format m:<matchToken>:p:<playerID>
func parseMember(member string) (string, string) {
	parts := strings.Split(member, ":")
	if len(parts) == 4 && parts[0] == "m" && parts[2] == "p" {
		return parts[1], parts[3]
	}
	return "", ""
}
