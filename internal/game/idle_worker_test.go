package game

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestParseMember(t *testing.T) {
	tok, pid := parseMember(idleMember("abc", "p1_ff"))
	if tok != "abc" || pid != "p1_ff" {
		t.Errorf("parseMember = %q, %q", tok, pid)
	}
	if tok, pid := parseMember("garbage"); tok != "" || pid != "" {
		t.Errorf("Expected empty parts, got %q, %q", tok, pid)
	}
}

func TestProcessIdleWarnsThenForfeits(t *testing.T) {
	_, rdb := newTestRedis(t)
	gm := newTestManager(t, nil, rdb)
	cfg := gm.GetConfig()
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, EventsChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	events := sub.Channel()

	m, p1, p2, err := gm.CreatePairedMatch(ctx, "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}

	// Nothing is due yet.
	processIdle(ctx, gm, rdb, cfg, time.Now())
	if m.CurrentStatus() != StatusInProgress {
		t.Fatalf("Match ended early: %s", m.CurrentStatus())
	}

	processIdle(ctx, gm, rdb, cfg, time.Now().Add(100*time.Second))
	if m.CurrentStatus() != StatusCompleted {
		t.Fatalf("Expected the idle player to forfeit, got %s", m.CurrentStatus())
	}
	winner, winType, _, _, _ := m.Result()
	if winner != p2.ID || winType != WinByIdle {
		t.Errorf("Result = %s %s, want %s idle", winner, winType, p2.ID)
	}

	var got []string
	timeout := time.After(3 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-events:
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				t.Fatalf("bad payload %q: %v", msg.Payload, err)
			}
			if payload["player"] != p1.ID {
				t.Errorf("Event for wrong player: %v", payload)
			}
			got = append(got, payload["type"].(string))
		case <-timeout:
			t.Fatalf("Only received %v", got)
		}
	}
	if got[0] != "idle_warning" || got[1] != "idle_forfeit" {
		t.Errorf("Events = %v", got)
	}
}

func TestProcessIdleSkipsPlayerOffTurn(t *testing.T) {
	_, rdb := newTestRedis(t)
	gm := newTestManager(t, nil, rdb)
	cfg := gm.GetConfig()
	ctx := context.Background()

	m, _, p2, err := gm.CreatePairedMatch(ctx, "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	// A stale timer for the seat that is not on turn.
	gm.scheduleIdle(m, p2.ID)

	processIdle(ctx, gm, rdb, cfg, time.Now().Add(100*time.Second))
	if m.CurrentStatus() != StatusInProgress {
		t.Errorf("Expected the match to keep running, got %s", m.CurrentStatus())
	}
}
