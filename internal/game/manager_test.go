package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/playmatatu/carom/internal/config"
	"github.com/redis/go-redis/v9"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:            "test",
		TickRateHz:             60,
		MaxFrameDeltaMs:        100,
		WinningScore:           100,
		MatchExpiryMinutes:     10,
		IdleWarningSeconds:     45,
		IdleForfeitSeconds:     90,
		DisconnectGraceSeconds: 30,
		IdleWorkerPollSeconds:  1,
		MatchmakerPollSeconds:  1,
		QueueTicketTTLMinutes:  10,
		JWTSecret:              "test-secret",
		TokenTTLMinutes:        60,
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func newTestManager(t *testing.T, store *Store, rdb *redis.Client) *GameManager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	gm := NewGameManager(ctx, store, rdb, testConfig())
	t.Cleanup(func() {
		gm.Shutdown()
		cancel()
	})
	return gm
}

func TestCreateAndJoinPrivateMatch(t *testing.T) {
	store := newTestStore(t)
	mr, rdb := newTestRedis(t)
	gm := newTestManager(t, store, rdb)
	ctx := context.Background()

	m, p1, err := gm.CreateMatch(ctx, "Ana", "1234")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	if p1.DBPlayerID == 0 || m.SessionID == 0 {
		t.Fatalf("Expected persisted player and session, got %d/%d", p1.DBPlayerID, m.SessionID)
	}
	if !mr.Exists(matchStateKey(m.Token)) {
		t.Error("Expected the match to be cached in Redis")
	}

	if _, _, err := gm.JoinMatch(ctx, m.Token, "Ben", "9999"); !errors.Is(err, ErrInvalidPIN) {
		t.Errorf("Expected ErrInvalidPIN, got %v", err)
	}
	if _, _, err := gm.JoinMatch(ctx, "nope", "Ben", ""); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Expected ErrMatchNotFound, got %v", err)
	}

	_, p2, err := gm.JoinMatch(ctx, m.Token, "Ben", "1234")
	if err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}
	if _, _, err := gm.JoinMatch(ctx, m.Token, "Cid", "1234"); !errors.Is(err, ErrMatchFull) {
		t.Errorf("Expected ErrMatchFull, got %v", err)
	}

	ms, err := store.GetSession(ctx, m.Token)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if ms.Status != string(StatusInProgress) || int(ms.Player2ID.Int64) != p2.DBPlayerID {
		t.Errorf("Unexpected session after join: %+v", ms)
	}

	members, err := mr.ZMembers(idleForfeitKey)
	if err != nil || len(members) != 1 || members[0] != idleMember(m.Token, p1.ID) {
		t.Errorf("Expected an idle timer for player 1, got %v (%v)", members, err)
	}

	if err := gm.Concede(m, p1.ID); err != nil {
		t.Fatalf("Concede: %v", err)
	}
	ms, _ = store.GetSession(ctx, m.Token)
	if ms.Status != string(StatusCompleted) || int(ms.WinnerID.Int64) != p2.DBPlayerID || ms.WinType.String != WinByConcede {
		t.Errorf("Unexpected session after concede: %+v", ms)
	}
	if members, _ := mr.ZMembers(idleForfeitKey); len(members) != 0 {
		t.Errorf("Expected idle timers cleared, got %v", members)
	}

	v, err := gm.CachedView(ctx, m.Token)
	if err != nil {
		t.Fatalf("CachedView: %v", err)
	}
	if v.Status != StatusCompleted || v.Winner != p2.ID {
		t.Errorf("Unexpected cached view: %+v", v)
	}
}

func TestSameNameSeatsKeepSeparateStats(t *testing.T) {
	store := newTestStore(t)
	gm := newTestManager(t, store, nil)
	ctx := context.Background()

	m, p1, err := gm.CreateMatch(ctx, "Alex", "")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}
	_, p2, err := gm.JoinMatch(ctx, m.Token, "Alex", "")
	if err != nil {
		t.Fatalf("JoinMatch: %v", err)
	}
	if p1.DBPlayerID == p2.DBPlayerID {
		t.Fatalf("Both seats share player row %d", p1.DBPlayerID)
	}

	if err := gm.Concede(m, p1.ID); err != nil {
		t.Fatalf("Concede: %v", err)
	}

	loser, err := store.GetPlayer(ctx, p1.DBPlayerID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if loser.MatchesPlayed != 1 || loser.MatchesWon != 0 {
		t.Errorf("Conceding seat: played=%d won=%d, want 1/0", loser.MatchesPlayed, loser.MatchesWon)
	}
	winner, err := store.GetPlayer(ctx, p2.DBPlayerID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if winner.MatchesPlayed != 1 || winner.MatchesWon != 1 {
		t.Errorf("Winning seat: played=%d won=%d, want 1/1", winner.MatchesPlayed, winner.MatchesWon)
	}
}

func TestManagerWithoutBackends(t *testing.T) {
	gm := newTestManager(t, nil, nil)
	ctx := context.Background()

	m, p1, p2, err := gm.CreatePairedMatch(ctx, "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	if m.CurrentStatus() != StatusInProgress || m.CurrentPlayerID() != p1.ID {
		t.Errorf("Expected a running match with %s on turn", p1.ID)
	}
	if m.GetOpponentID(p1.ID) != p2.ID {
		t.Errorf("Expected %s to face %s", p1.ID, p2.ID)
	}
	if _, err := gm.CachedView(ctx, m.Token); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Expected no cache without Redis, got %v", err)
	}
	if got := gm.ActiveMatches(); got != 1 {
		t.Errorf("ActiveMatches = %d, want 1", got)
	}
}

func TestExpireMatches(t *testing.T) {
	store := newTestStore(t)
	gm := newTestManager(t, store, nil)
	ctx := context.Background()

	m, _, err := gm.CreateMatch(ctx, "Ana", "")
	if err != nil {
		t.Fatalf("CreateMatch: %v", err)
	}

	gm.expireMatches(time.Now())
	if m.CurrentStatus() != StatusWaiting {
		t.Fatalf("Match expired early: %s", m.CurrentStatus())
	}

	gm.expireMatches(time.Now().Add(time.Hour))
	if m.CurrentStatus() != StatusCancelled {
		t.Fatalf("Expected CANCELLED, got %s", m.CurrentStatus())
	}
	ms, _ := store.GetSession(ctx, m.Token)
	if ms.Status != string(StatusCancelled) {
		t.Errorf("Expected the session cancelled, got %s", ms.Status)
	}

	gm.expireMatches(time.Now().Add(3 * time.Hour))
	if _, err := gm.GetMatch(m.Token); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Expected the ended match dropped from memory, got %v", err)
	}
}

func TestFrameSinkReceivesRally(t *testing.T) {
	if testing.Short() {
		t.Skip("plays a rally in real time")
	}
	store := newTestStore(t)
	gm := newTestManager(t, store, nil)
	ctx := context.Background()

	rallies := make(chan RallyRecord, 4)
	gm.SetFrameSink(func(m *Match, u FrameUpdate) {
		for _, r := range u.Rallies {
			rallies <- r
		}
	})

	m, p1, _, err := gm.CreatePairedMatch(ctx, "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	if _, err := m.Aim(p1.ID, -3.0, -1.2); err != nil {
		t.Fatalf("Aim: %v", err)
	}
	if err := m.Shoot(p1.ID); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	select {
	case r := <-rallies:
		if r.Number != 1 || r.ShooterID != p1.ID {
			t.Errorf("Unexpected rally: %+v", r)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("No rally reached the sink")
	}

	list, err := store.ListRallies(ctx, m.SessionID)
	if err != nil || len(list) != 1 {
		t.Errorf("Expected one stored rally, got %d (%v)", len(list), err)
	}
}

func TestFinishHookRunsOnce(t *testing.T) {
	gm := newTestManager(t, nil, nil)
	ctx := context.Background()

	finished := make(chan string, 4)
	gm.SetFinishHook(func(m *Match) {
		finished <- m.Token
	})

	m, p1, p2, err := gm.CreatePairedMatch(ctx, "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	if err := gm.ForfeitByDisconnect(m, p2.ID); err != nil {
		t.Fatalf("ForfeitByDisconnect: %v", err)
	}
	if err := gm.Concede(m, p1.ID); !errors.Is(err, ErrMatchNotInProgress) {
		t.Errorf("Expected a second ending to fail, got %v", err)
	}
	gm.finishMatch(m)

	select {
	case tok := <-finished:
		if tok != m.Token {
			t.Errorf("Hook got %s, want %s", tok, m.Token)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Finish hook never ran")
	}
	select {
	case tok := <-finished:
		t.Errorf("Finish hook ran twice (%s)", tok)
	case <-time.After(200 * time.Millisecond):
	}

	winner, winType, _, _, _ := m.Result()
	if winner != p1.ID || winType != WinByForfeit {
		t.Errorf("Result = %s %s", winner, winType)
	}
}
