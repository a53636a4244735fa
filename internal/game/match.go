package game

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/playmatatu/carom/internal/carom"
)

// MatchPlayer is one seat of a match.
type MatchPlayer struct {
	ID             string       `json:"id"`
	Slot           carom.Player `json:"slot"`
	DisplayName    string       `json:"display_name"`
	DBPlayerID     int          `json:"db_player_id,omitempty"`
	Connected      bool         `json:"connected"`
	ShowedUp       bool         `json:"showed_up"`
	DisconnectedAt *time.Time   `json:"-"`
}

// RallyRecord is a resolved rally with the seat that played it.
type RallyRecord struct {
	Number    int    `json:"number"`
	ShooterID string `json:"shooter_id"`
	carom.RallyOutcome
}

// FrameUpdate is what one simulation tick produced.
type FrameUpdate struct {
	Snapshot carom.Snapshot `json:"snapshot"`
	Events   []carom.Event  `json:"events,omitempty"`
	Rallies  []RallyRecord  `json:"-"`
	Status   MatchStatus    `json:"status"`
	GameOver bool           `json:"game_over"` // this tick ended the match
	Changed  bool           `json:"-"`
}

// Match is a single game of carom between two seats. All fields are guarded
// by mu; use the accessor methods from other goroutines.
type Match struct {
	ID           string       `json:"id"`
	Token        string       `json:"token"`
	Player1      *MatchPlayer `json:"player1"`
	Player2      *MatchPlayer `json:"player2,omitempty"`
	Status       MatchStatus  `json:"status"`
	Winner       string       `json:"winner,omitempty"`
	WinType      string       `json:"win_type,omitempty"`
	RallyCount   int          `json:"rally_count"`
	SessionID    int          `json:"session_id,omitempty"`
	PINHash      string       `json:"-"`
	WinningScore int          `json:"winning_score"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	LastActivity time.Time    `json:"last_activity"`

	game      *carom.Game
	dirty     bool
	finalized bool
	mu        sync.RWMutex
}

// NewMatch opens a match waiting for its second player.
func NewMatch(id, token string, p1 *MatchPlayer, winningScore int, expiry time.Duration) *Match {
	now := time.Now()
	p1.Slot = carom.Player1
	return &Match{
		ID:           id,
		Token:        token,
		Player1:      p1,
		Status:       StatusWaiting,
		WinningScore: winningScore,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiry),
		LastActivity: now,
		game:         carom.NewStandardGame(),
	}
}

// Join seats the second player and starts the match.
func (m *Match) Join(p2 *MatchPlayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Player2 != nil {
		return ErrMatchFull
	}
	if m.Status != StatusWaiting {
		return ErrMatchNotInProgress
	}

	p2.Slot = carom.Player2
	m.Player2 = p2

	now := time.Now()
	m.Status = StatusInProgress
	m.StartedAt = &now
	m.LastActivity = now
	return nil
}

// Aim moves the marker for the player on turn. The bool reports whether the
// stick is aiming; it stays false while the active ball is still rolling.
func (m *Match) Aim(playerID string, x, z float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkTurnLocked(playerID); err != nil {
		return false, err
	}
	m.touchLocked()
	return m.game.Aim(carom.NewVec3(x, carom.BallRadius, z)), nil
}

func (m *Match) CancelAim(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkTurnLocked(playerID); err != nil {
		return err
	}
	m.touchLocked()
	m.game.CancelAim()
	return nil
}

// Shoot launches the stick for the player on turn.
func (m *Match) Shoot(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkTurnLocked(playerID); err != nil {
		return err
	}
	if !m.game.Shoot() {
		return ErrShotRejected
	}
	m.touchLocked()
	return nil
}

// Concede ends the match in the opponent's favour.
func (m *Match) Concede(playerID string) error {
	return m.forfeit(playerID, WinByConcede)
}

// ForfeitByIdle ends the match because playerID let their turn time out.
func (m *Match) ForfeitByIdle(playerID string) error {
	return m.forfeit(playerID, WinByIdle)
}

// ForfeitByDisconnect ends the match because playerID left and did not return.
func (m *Match) ForfeitByDisconnect(playerID string) error {
	return m.forfeit(playerID, WinByForfeit)
}

func (m *Match) forfeit(playerID, winType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusInProgress {
		return ErrMatchNotInProgress
	}
	p := m.playerLocked(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	m.finishLocked(m.playerBySlotLocked(p.Slot.Opponent()).ID, winType)
	return nil
}

// Cancel closes a match that never started.
func (m *Match) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusWaiting {
		return false
	}
	now := time.Now()
	m.Status = StatusCancelled
	m.CompletedAt = &now
	return true
}

// Tick advances the table by dt seconds. Resolved rallies are numbered and
// end the match once a shooter reaches the winning score. A match that is not
// in progress is left untouched.
func (m *Match) Tick(dt float64) FrameUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Status != StatusInProgress {
		return FrameUpdate{Snapshot: m.game.Snapshot(), Status: m.Status}
	}

	u := FrameUpdate{Events: m.game.Advance(dt), Changed: m.dirty}
	m.dirty = false

	for _, ev := range u.Events {
		if ev.Type != carom.EventRallyEnd || ev.Rally == nil {
			continue
		}
		m.RallyCount++
		shooter := m.playerBySlotLocked(ev.Rally.Shooter)
		u.Rallies = append(u.Rallies, RallyRecord{Number: m.RallyCount, ShooterID: shooter.ID, RallyOutcome: *ev.Rally})

		if m.WinningScore > 0 && ev.Rally.Score >= m.WinningScore && m.Status == StatusInProgress {
			m.finishLocked(shooter.ID, WinByScore)
		}
	}

	u.Snapshot = m.game.Snapshot()
	u.Status = m.Status
	u.GameOver = m.Status == StatusCompleted
	return u
}

// Run drives the match at hz frames per second until ctx is cancelled or the
// match ends. Frames are handed to sink only when something changed, plus one
// final frame after the table settles.
func (m *Match) Run(ctx context.Context, hz int, maxDelta time.Duration, sink func(FrameUpdate)) {
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	last := time.Now()
	settled := true
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if maxDelta > 0 && dt > maxDelta {
				dt = maxDelta
			}

			u := m.Tick(dt.Seconds())
			if u.Changed || len(u.Events) > 0 || !u.Snapshot.Settled || !settled || u.Status != StatusInProgress {
				sink(u)
			}
			settled = u.Snapshot.Settled

			if u.Status != StatusInProgress {
				return
			}
		}
	}
}

// MatchView is the state of a match as one seat sees it.
type MatchView struct {
	ID            string         `json:"id"`
	Token         string         `json:"token"`
	Status        MatchStatus    `json:"status"`
	You           carom.Player   `json:"you"`
	YourTurn      bool           `json:"your_turn"`
	CurrentPlayer carom.Player   `json:"current_player"`
	Player1       MatchPlayer    `json:"player1"`
	Player2       *MatchPlayer   `json:"player2,omitempty"`
	Winner        string         `json:"winner,omitempty"`
	WinType       string         `json:"win_type,omitempty"`
	RallyCount    int            `json:"rally_count"`
	WinningScore  int            `json:"winning_score"`
	Private       bool           `json:"private"`
	ExpiresAt     time.Time      `json:"expires_at"`
	Table         carom.Snapshot `json:"table"`
}

// View builds the state for playerID; unknown IDs get a spectator view.
func (m *Match) View(playerID string) MatchView {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := MatchView{
		ID:            m.ID,
		Token:         m.Token,
		Status:        m.Status,
		CurrentPlayer: m.game.CurrentPlayer(),
		Player1:       *m.Player1,
		Winner:        m.Winner,
		WinType:       m.WinType,
		RallyCount:    m.RallyCount,
		WinningScore:  m.WinningScore,
		Private:       m.PINHash != "",
		ExpiresAt:     m.ExpiresAt,
		Table:         m.game.Snapshot(),
	}
	if m.Player2 != nil {
		p2 := *m.Player2
		v.Player2 = &p2
	}
	if p := m.playerLocked(playerID); p != nil {
		v.You = p.Slot
		v.YourTurn = m.Status == StatusInProgress && p.Slot == v.CurrentPlayer
	}
	return v
}

func (m *Match) Snapshot() carom.Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.game.Snapshot()
}

// AimPath returns the preview dots for the active ball.
func (m *Match) AimPath() []carom.Vec3 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Collect(m.game.AimPath())
}

func (m *Match) CurrentStatus() MatchStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Status
}

// CurrentPlayerID is the ID of the seat on turn, empty before the match starts.
func (m *Match) CurrentPlayerID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Status != StatusInProgress {
		return ""
	}
	return m.playerBySlotLocked(m.game.CurrentPlayer()).ID
}

// Result returns the outcome fields once the match has ended.
func (m *Match) Result() (winner, winType string, score1, score2, rallies int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := m.game.State()
	return m.Winner, m.WinType, st.Score1, st.Score2, m.RallyCount
}

func (m *Match) GetPlayerByID(playerID string) *MatchPlayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := m.playerLocked(playerID); p != nil {
		cp := *p
		return &cp
	}
	return nil
}

func (m *Match) GetOpponentID(playerID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p := m.playerLocked(playerID)
	if p == nil {
		return ""
	}
	if opp := m.playerBySlotLocked(p.Slot.Opponent()); opp != nil {
		return opp.ID
	}
	return ""
}

func (m *Match) SetPlayerConnected(playerID string, connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.playerLocked(playerID)
	if p == nil {
		return
	}
	p.Connected = connected
	if connected {
		p.ShowedUp = true
		p.DisconnectedAt = nil
		return
	}
	now := time.Now()
	p.DisconnectedAt = &now
}

// === Internal helpers ===

// claimFinal reports true exactly once, after the match has ended.
func (m *Match) claimFinal() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized || (m.Status != StatusCompleted && m.Status != StatusCancelled) {
		return false
	}
	m.finalized = true
	return true
}

func (m *Match) checkTurnLocked(playerID string) error {
	if m.Status != StatusInProgress {
		return ErrMatchNotInProgress
	}
	p := m.playerLocked(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Slot != m.game.CurrentPlayer() {
		return ErrNotYourTurn
	}
	return nil
}

func (m *Match) touchLocked() {
	m.dirty = true
	m.LastActivity = time.Now()
}

func (m *Match) finishLocked(winnerID, winType string) {
	now := time.Now()
	m.Status = StatusCompleted
	m.Winner = winnerID
	m.WinType = winType
	m.CompletedAt = &now
}

func (m *Match) playerLocked(playerID string) *MatchPlayer {
	if m.Player1 != nil && m.Player1.ID == playerID {
		return m.Player1
	}
	if m.Player2 != nil && m.Player2.ID == playerID {
		return m.Player2
	}
	return nil
}

func (m *Match) playerBySlotLocked(slot carom.Player) *MatchPlayer {
	if slot == carom.Player2 {
		return m.Player2
	}
	return m.Player1
}
