package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/playmatatu/carom/internal/auth"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	idleWarningKey = "idle_warning"
	idleForfeitKey = "idle_forfeit"
)

// EventsChannel carries idle and matchmaking events between server instances.
const EventsChannel = "match_events"

// FrameSink receives every frame a running match publishes.
type FrameSink func(m *Match, u FrameUpdate)

// FinishHook runs once when a match ends, however it ended.
type FinishHook func(m *Match)

// GameManager owns the live matches, their frame loops and persistence.
type GameManager struct {
	matches map[string]*Match             // keyed by match token
	runners map[string]context.CancelFunc // frame loops keyed by match token
	store   *Store                        // nil when no database is configured
	rdb     *redis.Client                 // nil when Redis is disabled
	config  *config.Config
	sink    FrameSink
	finish  FinishHook
	ctx     context.Context
	mu      sync.RWMutex
}

var (
	// Global match manager instance
	Manager *GameManager
)

// InitializeManager initializes the global manager and its expiry checker.
func InitializeManager(ctx context.Context, store *Store, rdb *redis.Client, cfg *config.Config) *GameManager {
	Manager = NewGameManager(ctx, store, rdb, cfg)
	go Manager.StartExpiryChecker(ctx)
	return Manager
}

func NewGameManager(ctx context.Context, store *Store, rdb *redis.Client, cfg *config.Config) *GameManager {
	return &GameManager{
		matches: make(map[string]*Match),
		runners: make(map[string]context.CancelFunc),
		store:   store,
		rdb:     rdb,
		config:  cfg,
		ctx:     ctx,
	}
}

// SetFrameSink installs the receiver for frames of matches started afterwards.
func (gm *GameManager) SetFrameSink(sink FrameSink) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.sink = sink
}

// SetFinishHook installs the receiver for ended matches.
func (gm *GameManager) SetFinishHook(hook FinishHook) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	gm.finish = hook
}

func (gm *GameManager) GetConfig() *config.Config { return gm.config }
func (gm *GameManager) Store() *Store             { return gm.store }

// generateToken generates a secure random token
func generateToken(length int) string {
	bytes := make([]byte, length)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// newPlayer creates a seat, persisting the player row when a store is configured.
func (gm *GameManager) newPlayer(ctx context.Context, prefix, name string) (*MatchPlayer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Player " + generateToken(2)
	}
	p := &MatchPlayer{ID: prefix + generateToken(4), DisplayName: name}
	if gm.store != nil {
		row, err := gm.store.CreatePlayer(ctx, name)
		if err != nil {
			return nil, err
		}
		p.DBPlayerID = row.ID
	}
	return p, nil
}

// CreateMatch opens a match for player 1. A non-empty pin makes it private.
func (gm *GameManager) CreateMatch(ctx context.Context, name, pin string) (*Match, *MatchPlayer, error) {
	var pinHash string
	if pin != "" {
		h, err := auth.HashPIN(pin)
		if err != nil {
			return nil, nil, err
		}
		pinHash = h
	}

	p1, err := gm.newPlayer(ctx, "p1_", name)
	if err != nil {
		return nil, nil, err
	}

	expiry := time.Duration(gm.config.MatchExpiryMinutes) * time.Minute
	m := NewMatch("match_"+generateToken(8), generateToken(16), p1, gm.config.WinningScore, expiry)
	m.PINHash = pinHash

	if gm.store != nil {
		id, err := gm.store.CreateSession(ctx, m.Token, p1.DBPlayerID, pinHash != "", m.ExpiresAt)
		if err != nil {
			return nil, nil, err
		}
		m.SessionID = id
	}

	gm.mu.Lock()
	gm.matches[m.Token] = m
	gm.mu.Unlock()

	log.Printf("[MATCH] Created %s (token=%s) for %s", m.ID, m.Token, p1.DisplayName)
	gm.saveMatchToRedis(m)
	return m, p1, nil
}

// JoinMatch seats player 2 and starts the frame loop.
func (gm *GameManager) JoinMatch(ctx context.Context, token, name, pin string) (*Match, *MatchPlayer, error) {
	m, err := gm.GetMatch(token)
	if err != nil {
		return nil, nil, err
	}
	if !auth.CheckPIN(m.PINHash, pin) {
		return nil, nil, ErrInvalidPIN
	}
	if m.CurrentStatus() != StatusWaiting {
		return nil, nil, ErrMatchFull
	}

	p2, err := gm.newPlayer(ctx, "p2_", name)
	if err != nil {
		return nil, nil, err
	}
	if err := m.Join(p2); err != nil {
		return nil, nil, err
	}

	if gm.store != nil && m.SessionID > 0 {
		if err := gm.store.StartSession(ctx, m.SessionID, p2.DBPlayerID); err != nil {
			log.Printf("[DB] StartSession failed for session %d: %v", m.SessionID, err)
		}
	}

	log.Printf("[MATCH] %s joined %s", p2.DisplayName, m.ID)
	gm.startMatch(m)
	return m, p2, nil
}

// CreatePairedMatch creates and starts a public match for two queued players.
func (gm *GameManager) CreatePairedMatch(ctx context.Context, name1, name2 string) (*Match, *MatchPlayer, *MatchPlayer, error) {
	m, p1, err := gm.CreateMatch(ctx, name1, "")
	if err != nil {
		return nil, nil, nil, err
	}
	_, p2, err := gm.JoinMatch(ctx, m.Token, name2, "")
	if err != nil {
		return nil, nil, nil, err
	}
	return m, p1, p2, nil
}

func (gm *GameManager) GetMatch(token string) (*Match, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	if m, ok := gm.matches[token]; ok {
		return m, nil
	}
	return nil, ErrMatchNotFound
}

// ActiveMatches counts matches that are waiting or in progress.
func (gm *GameManager) ActiveMatches() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	n := 0
	for _, m := range gm.matches {
		if st := m.CurrentStatus(); st == StatusWaiting || st == StatusInProgress {
			n++
		}
	}
	return n
}

// Concede ends the match for playerID and persists the result.
func (gm *GameManager) Concede(m *Match, playerID string) error {
	if err := m.Concede(playerID); err != nil {
		return err
	}
	log.Printf("[MATCH] %s conceded %s", playerID, m.ID)
	gm.finishMatch(m)
	return nil
}

// ForfeitByIdle ends the match for a player who timed out.
func (gm *GameManager) ForfeitByIdle(m *Match, playerID string) error {
	if err := m.ForfeitByIdle(playerID); err != nil {
		return err
	}
	log.Printf("[MATCH] %s forfeited %s by inactivity", playerID, m.ID)
	gm.finishMatch(m)
	return nil
}

// ForfeitByDisconnect ends the match for a player who left and stayed away.
func (gm *GameManager) ForfeitByDisconnect(m *Match, playerID string) error {
	if err := m.ForfeitByDisconnect(playerID); err != nil {
		return err
	}
	log.Printf("[MATCH] %s forfeited %s by disconnecting", playerID, m.ID)
	gm.finishMatch(m)
	return nil
}

// MarkActive restarts the idle clock of the player on turn.
func (gm *GameManager) MarkActive(m *Match) {
	playerID := m.CurrentPlayerID()
	if playerID == "" {
		return
	}
	gm.scheduleIdle(m, playerID)
}

func (gm *GameManager) startMatch(m *Match) {
	ctx, cancel := context.WithCancel(gm.ctx)

	gm.mu.Lock()
	gm.runners[m.Token] = cancel
	sink := gm.sink
	gm.mu.Unlock()

	gm.saveMatchToRedis(m)
	gm.MarkActive(m)

	go func() {
		defer cancel()
		hz := gm.config.TickRateHz
		maxDelta := time.Duration(gm.config.MaxFrameDeltaMs) * time.Millisecond
		m.Run(ctx, hz, maxDelta, func(u FrameUpdate) {
			gm.onFrame(m, u, sink)
		})
	}()
}

// onFrame persists what a frame resolved, hands the frame on and closes the
// match when the frame ended it.
func (gm *GameManager) onFrame(m *Match, u FrameUpdate, sink FrameSink) {
	for _, r := range u.Rallies {
		log.Printf("[MATCH] %s rally %d: player %d %s (%+d) -> %d/%d",
			m.ID, r.Number, r.Shooter, r.Kind, r.Delta, u.Snapshot.Score1, u.Snapshot.Score2)
		if gm.store != nil && m.SessionID > 0 {
			shooter := m.GetPlayerByID(r.ShooterID)
			shooterDBID := 0
			if shooter != nil {
				shooterDBID = shooter.DBPlayerID
			}
			if err := gm.store.RecordRally(gm.ctx, m.SessionID, shooterDBID, r, u.Snapshot.Score1, u.Snapshot.Score2); err != nil {
				log.Printf("[DB] RecordRally failed for session %d: %v", m.SessionID, err)
			}
		}
	}

	if len(u.Rallies) > 0 && !u.GameOver {
		gm.MarkActive(m)
		gm.saveMatchToRedis(m)
	}
	if sink != nil {
		sink(m, u)
	}
	if u.GameOver {
		gm.finishMatch(m)
	}
}

// finishMatch writes the final result once and stops the frame loop.
func (gm *GameManager) finishMatch(m *Match) {
	gm.mu.Lock()
	cancel, running := gm.runners[m.Token]
	delete(gm.runners, m.Token)
	gm.mu.Unlock()
	if running {
		cancel()
	}
	if !m.claimFinal() {
		return
	}

	winner, winType, s1, s2, rallies := m.Result()
	status := m.CurrentStatus()

	if gm.store != nil && m.SessionID > 0 {
		res := SessionResult{Status: status, WinType: winType, Score1: s1, Score2: s2, RallyCount: rallies}
		if w := m.GetPlayerByID(winner); w != nil {
			res.WinnerID = w.DBPlayerID
			if l := m.GetPlayerByID(m.GetOpponentID(winner)); l != nil {
				res.LoserID = l.DBPlayerID
			}
		}
		if err := gm.store.FinishSession(gm.ctx, m.SessionID, res); err != nil {
			log.Printf("[DB] FinishSession failed for session %d: %v", m.SessionID, err)
		}
	}

	gm.clearIdle(m)
	gm.saveMatchToRedis(m)
	if winner != "" {
		log.Printf("[MATCH] %s finished: status=%s winner=%s (%s) score=%d/%d rallies=%d", m.ID, status, winner, winType, s1, s2, rallies)
	}

	gm.mu.RLock()
	hook := gm.finish
	gm.mu.RUnlock()
	if hook != nil {
		hook(m)
	}
}

// StartExpiryChecker cancels matches nobody joined in time and drops ended
// matches from memory after an hour.
func (gm *GameManager) StartExpiryChecker(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			gm.expireMatches(now)
		}
	}
}

func (gm *GameManager) expireMatches(now time.Time) {
	gm.mu.RLock()
	var candidates []*Match
	for _, m := range gm.matches {
		candidates = append(candidates, m)
	}
	gm.mu.RUnlock()

	for _, m := range candidates {
		switch m.CurrentStatus() {
		case StatusWaiting:
			if now.After(m.ExpiresAt) && m.Cancel() {
				log.Printf("[MATCH] %s expired without an opponent", m.ID)
				gm.finishMatch(m)
			}
		case StatusCompleted, StatusCancelled:
			m.mu.RLock()
			done := m.CompletedAt != nil && now.Sub(*m.CompletedAt) > time.Hour
			m.mu.RUnlock()
			if done {
				gm.mu.Lock()
				delete(gm.matches, m.Token)
				gm.mu.Unlock()
			}
		}
	}
}

// Shutdown stops every frame loop.
func (gm *GameManager) Shutdown() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	for token, cancel := range gm.runners {
		cancel()
		delete(gm.runners, token)
	}
}

// === Redis ===

func matchStateKey(token string) string {
	return "match:" + token + ":state"
}

func idleMember(token, playerID string) string {
	return fmt.Sprintf("m:%s:p:%s", token, playerID)
}

// saveMatchToRedis caches the spectator view of a match for an hour.
func (gm *GameManager) saveMatchToRedis(m *Match) {
	if gm.rdb == nil {
		return
	}
	data, err := json.Marshal(m.View(""))
	if err != nil {
		log.Printf("[REDIS] Failed to marshal match %s: %v", m.ID, err)
		return
	}
	if err := gm.rdb.SetEx(gm.ctx, matchStateKey(m.Token), data, time.Hour).Err(); err != nil {
		log.Printf("[REDIS] Failed to cache match %s: %v", m.ID, err)
	}
}

// CachedView reads the last cached view of a match, which survives the
// in-memory copy being dropped.
func (gm *GameManager) CachedView(ctx context.Context, token string) (*MatchView, error) {
	if gm.rdb == nil {
		return nil, ErrMatchNotFound
	}
	data, err := gm.rdb.Get(ctx, matchStateKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	var v MatchView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// scheduleIdle clears both seats' timers and arms them for playerID.
func (gm *GameManager) scheduleIdle(m *Match, playerID string) {
	if gm.rdb == nil || gm.config == nil {
		return
	}
	gm.clearIdle(m)

	now := time.Now().Unix()
	member := idleMember(m.Token, playerID)
	pipe := gm.rdb.TxPipeline()
	pipe.Set(gm.ctx, "last_active:"+member, now, time.Hour)
	pipe.ZAdd(gm.ctx, idleWarningKey, redis.Z{Score: float64(now + int64(gm.config.IdleWarningSeconds)), Member: member})
	pipe.ZAdd(gm.ctx, idleForfeitKey, redis.Z{Score: float64(now + int64(gm.config.IdleForfeitSeconds)), Member: member})
	if _, err := pipe.Exec(gm.ctx); err != nil {
		log.Printf("[REDIS] Failed to schedule idle timers for %s: %v", member, err)
	}
}

func (gm *GameManager) clearIdle(m *Match) {
	if gm.rdb == nil {
		return
	}
	var members []interface{}
	for _, slot := range []carom.Player{carom.Player1, carom.Player2} {
		m.mu.RLock()
		p := m.playerBySlotLocked(slot)
		m.mu.RUnlock()
		if p != nil {
			members = append(members, idleMember(m.Token, p.ID))
		}
	}
	if len(members) == 0 {
		return
	}
	pipe := gm.rdb.TxPipeline()
	pipe.ZRem(gm.ctx, idleWarningKey, members...)
	pipe.ZRem(gm.ctx, idleForfeitKey, members...)
	if _, err := pipe.Exec(gm.ctx); err != nil {
		log.Printf("[REDIS] Failed to clear idle timers for %s: %v", m.Token, err)
	}
}

// publishEvent sends a match event to every server instance.
func (gm *GameManager) publishEvent(ctx context.Context, payload map[string]interface{}) {
	if gm.rdb == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if n, err := gm.rdb.Publish(ctx, EventsChannel, b).Result(); err != nil {
		log.Printf("[REDIS] publish %v failed: %v", payload["type"], err)
	} else {
		log.Printf("[REDIS] published %v for %v (subscribers=%d)", payload["type"], payload["match_token"], n)
	}
}
