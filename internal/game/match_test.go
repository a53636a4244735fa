package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playmatatu/carom/internal/carom"
)

func newStartedMatch(t *testing.T, winningScore int) *Match {
	t.Helper()
	m := NewMatch("match_test", "tok", &MatchPlayer{ID: "p1_a", DisplayName: "Ana"}, winningScore, time.Minute)
	if err := m.Join(&MatchPlayer{ID: "p2_b", DisplayName: "Ben"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	return m
}

// tickUntilRally advances at 60 Hz until a rally resolves.
func tickUntilRally(t *testing.T, m *Match) FrameUpdate {
	t.Helper()
	for i := 0; i < 3000; i++ {
		u := m.Tick(1.0 / 60)
		if len(u.Rallies) > 0 {
			return u
		}
	}
	t.Fatal("No rally resolved")
	return FrameUpdate{}
}

func TestJoinSeatsSecondPlayer(t *testing.T) {
	m := NewMatch("match_test", "tok", &MatchPlayer{ID: "p1_a"}, 0, time.Minute)
	if m.CurrentStatus() != StatusWaiting {
		t.Fatalf("Expected WAITING, got %s", m.CurrentStatus())
	}
	if err := m.Join(&MatchPlayer{ID: "p2_b"}); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if m.CurrentStatus() != StatusInProgress || m.Player2.Slot != carom.Player2 {
		t.Errorf("Expected match in progress with p2 in slot 2, got %s slot %d", m.CurrentStatus(), m.Player2.Slot)
	}
	if err := m.Join(&MatchPlayer{ID: "p2_c"}); !errors.Is(err, ErrMatchFull) {
		t.Errorf("Expected ErrMatchFull, got %v", err)
	}
	if m.CurrentPlayerID() != "p1_a" {
		t.Errorf("Expected player 1 to open, got %q", m.CurrentPlayerID())
	}
}

func TestCommandsCheckTurn(t *testing.T) {
	waiting := NewMatch("match_test", "tok", &MatchPlayer{ID: "p1_a"}, 0, time.Minute)
	if _, err := waiting.Aim("p1_a", 0, 0); !errors.Is(err, ErrMatchNotInProgress) {
		t.Errorf("Expected ErrMatchNotInProgress before start, got %v", err)
	}

	m := newStartedMatch(t, 0)
	if _, err := m.Aim("p2_b", 0, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}
	if err := m.Shoot("nobody"); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
	if err := m.Shoot("p1_a"); !errors.Is(err, ErrShotRejected) {
		t.Errorf("Expected ErrShotRejected without aiming, got %v", err)
	}

	aiming, err := m.Aim("p1_a", -3.0, -1.2)
	if err != nil || !aiming {
		t.Fatalf("Aim = %v, %v", aiming, err)
	}
	if err := m.CancelAim("p1_a"); err != nil {
		t.Fatalf("CancelAim: %v", err)
	}
	if err := m.Shoot("p1_a"); !errors.Is(err, ErrShotRejected) {
		t.Errorf("Expected ErrShotRejected after cancelling, got %v", err)
	}
}

func TestTickResolvesRallyAndPassesTurn(t *testing.T) {
	m := newStartedMatch(t, 0)
	if _, err := m.Aim("p1_a", -3.0, -1.2); err != nil {
		t.Fatalf("Aim: %v", err)
	}
	if err := m.Shoot("p1_a"); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	u := tickUntilRally(t, m)
	r := u.Rallies[0]
	if r.Number != 1 || r.ShooterID != "p1_a" || r.Kind != carom.RallyMiss {
		t.Errorf("Unexpected rally: %+v", r)
	}
	if u.Snapshot.Score1 != 40 || u.Snapshot.Score2 != 50 {
		t.Errorf("Expected 40/50, got %d/%d", u.Snapshot.Score1, u.Snapshot.Score2)
	}
	if m.CurrentPlayerID() != "p2_b" {
		t.Errorf("Expected p2 on turn, got %q", m.CurrentPlayerID())
	}

	v := m.View("p2_b")
	if v.You != carom.Player2 || !v.YourTurn || v.RallyCount != 1 {
		t.Errorf("Unexpected view for p2: %+v", v)
	}
}

func TestWinningScoreEndsMatch(t *testing.T) {
	m := newStartedMatch(t, 60)
	tbl, err := carom.NewTable(carom.Layout{Balls: [carom.NumBalls]carom.Vec2{
		carom.Red0:   {X: 0.5, Z: 0.3},
		carom.Red1:   {X: 0.5, Z: -0.3},
		carom.Yellow: {X: -3.8, Z: -2.5},
		carom.White:  {X: -1, Z: 0},
	}})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	m.game = carom.NewGame(tbl)

	if _, err := m.Aim("p1_a", -0.4, 0.02); err != nil {
		t.Fatalf("Aim: %v", err)
	}
	if err := m.Shoot("p1_a"); err != nil {
		t.Fatalf("Shoot: %v", err)
	}

	u := tickUntilRally(t, m)
	if !u.GameOver || u.Status != StatusCompleted {
		t.Fatalf("Expected the match to end, got %s", u.Status)
	}
	winner, winType, s1, _, _ := m.Result()
	if winner != "p1_a" || winType != WinByScore || s1 != 60 {
		t.Errorf("Result = %s %s %d, want p1_a score 60", winner, winType, s1)
	}
	if _, err := m.Aim("p2_b", 0, 0); !errors.Is(err, ErrMatchNotInProgress) {
		t.Errorf("Expected commands to fail after the end, got %v", err)
	}
}

func TestConcedeAndForfeit(t *testing.T) {
	m := newStartedMatch(t, 0)
	if err := m.Concede("p2_b"); err != nil {
		t.Fatalf("Concede: %v", err)
	}
	winner, winType, _, _, _ := m.Result()
	if winner != "p1_a" || winType != WinByConcede {
		t.Errorf("Result = %s %s", winner, winType)
	}
	if err := m.ForfeitByIdle("p1_a"); !errors.Is(err, ErrMatchNotInProgress) {
		t.Errorf("Expected a finished match to reject forfeits, got %v", err)
	}
	if !m.claimFinal() || m.claimFinal() {
		t.Error("claimFinal should succeed exactly once")
	}
}

func TestRunStopsWhenMatchEnds(t *testing.T) {
	m := newStartedMatch(t, 0)
	frames := make(chan FrameUpdate, 64)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 120, 100*time.Millisecond, func(u FrameUpdate) {
			select {
			case frames <- u:
			default:
			}
		})
		close(done)
	}()

	if _, err := m.Aim("p1_a", -3.0, -1.2); err != nil {
		t.Fatalf("Aim: %v", err)
	}
	select {
	case u := <-frames:
		if !u.Changed {
			t.Errorf("Expected the aim to mark the frame changed")
		}
	case <-ctx.Done():
		t.Fatal("No frame after aiming")
	}

	m.Concede("p1_a")
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("Run did not stop after the match ended")
	}
}

func TestAimPathCollects(t *testing.T) {
	m := newStartedMatch(t, 0)
	m.Aim("p1_a", -2.7, 0.9)
	if pts := m.AimPath(); len(pts) == 0 {
		t.Error("Expected aim path points")
	}
}
