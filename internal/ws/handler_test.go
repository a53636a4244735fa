package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/carom/internal/auth"
	"github.com/playmatatu/carom/internal/carom"
	"github.com/playmatatu/carom/internal/config"
	"github.com/playmatatu/carom/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

const testSecret = "ws-test-secret"

type testServer struct {
	gm  *game.GameManager
	hub *Hub
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := &config.Config{TickRateHz: 60, MaxFrameDeltaMs: 100, WinningScore: 100, MatchExpiryMinutes: 10, JWTSecret: testSecret}
	gm := game.NewGameManager(ctx, nil, nil, cfg)
	hub := NewHub(gm, nil)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/matches/:token/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		srv.Close()
		gm.Shutdown()
		cancel()
	})
	return &testServer{gm: gm, hub: hub, srv: srv}
}

func (ts *testServer) dial(t *testing.T, m *game.Match, p *game.MatchPlayer, enc string) *websocket.Conn {
	t.Helper()
	pt, err := auth.IssuePlayerToken(testSecret, time.Hour, m.Token, p.ID, int(p.Slot))
	if err != nil {
		t.Fatalf("IssuePlayerToken: %v", err)
	}
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/matches/" + m.Token + "/ws?pt=" + pt
	if enc != "" {
		url += "&enc=" + enc
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads JSON messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad message %q: %v", data, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"": EncodingJSON, "json": EncodingJSON, "msgpack": EncodingMsgpack} {
		if got, ok := ParseEncoding(in); !ok || got != want {
			t.Errorf("ParseEncoding(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseEncoding("xml"); ok {
		t.Error("Expected xml to be rejected")
	}
}

func TestEncodeMsgpackUsesJSONNames(t *testing.T) {
	g := carom.NewStandardGame()
	out, err := encode(EncodingMsgpack, FrameMessage{Type: "frame", Status: game.StatusInProgress, Snapshot: g.Snapshot()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if out.kind != websocket.BinaryMessage {
		t.Errorf("Expected a binary frame, got %d", out.kind)
	}
	var decoded map[string]interface{}
	if err := msgpack.Unmarshal(out.data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["type"] != "frame" || decoded["status"] != string(game.StatusInProgress) {
		t.Errorf("Unexpected msgpack frame: %v", decoded)
	}
	if _, ok := decoded["snapshot"]; !ok {
		t.Error("Expected a snapshot field")
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := decodeMessage(websocket.TextMessage, []byte(`{"type":"aim","data":{"x":1.5,"z":-2}}`))
	if err != nil || msg.Type != "aim" || msg.Data == nil || msg.Data.X != 1.5 || msg.Data.Z != -2 {
		t.Errorf("JSON decode = %+v, %v", msg, err)
	}

	raw, _ := msgpack.Marshal(map[string]interface{}{"type": "aim", "data": map[string]interface{}{"x": 3, "z": 0.25}})
	msg, err = decodeMessage(websocket.BinaryMessage, raw)
	if err != nil || msg.Type != "aim" || msg.Data == nil || msg.Data.X != 3 || msg.Data.Z != 0.25 {
		t.Errorf("msgpack decode = %+v, %v", msg, err)
	}

	if _, err := decodeMessage(websocket.TextMessage, []byte("{")); err == nil {
		t.Error("Expected malformed JSON to fail")
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	m, _, _, err := ts.gm.CreatePairedMatch(context.Background(), "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}

	other, _ := auth.IssuePlayerToken(testSecret, time.Hour, "another-match", "p1_x", 1)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/matches/" + m.Token + "/ws?pt=" + other
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected the dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestWebSocketCommandsAndGameOver(t *testing.T) {
	ts := newTestServer(t)
	m, p1, p2, err := ts.gm.CreatePairedMatch(context.Background(), "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}

	c1 := ts.dial(t, m, p1, "")
	c2 := ts.dial(t, m, p2, "json")

	state := readUntil(t, c1, "game_state")["state"].(map[string]interface{})
	if state["you"].(float64) != 1 || state["your_turn"] != true {
		t.Errorf("Unexpected state for player 1: %v", state)
	}
	readUntil(t, c2, "game_state")

	send(t, c2, `{"type":"aim","data":{"x":0,"z":0}}`)
	if msg := readUntil(t, c2, "error"); msg["message"] != game.ErrNotYourTurn.Error() {
		t.Errorf("Expected not-your-turn, got %v", msg)
	}

	send(t, c1, `{"type":"aim","data":{"x":-3.0,"z":-1.2}}`)
	frame := readUntil(t, c2, "frame")
	snap := frame["snapshot"].(map[string]interface{})
	stick := snap["stick"].(map[string]interface{})
	if stick["state"] != "aiming" {
		t.Errorf("Expected the stick aiming, got %v", stick["state"])
	}

	send(t, c1, `{"type":"bogus"}`)
	readUntil(t, c1, "error")

	send(t, c1, `{"type":"concede"}`)
	over := readUntil(t, c2, "game_over")
	if over["winner"] != p2.ID || over["win_type"] != game.WinByConcede {
		t.Errorf("Unexpected game_over: %v", over)
	}
}

func TestWebSocketMsgpackClient(t *testing.T) {
	ts := newTestServer(t)
	m, p1, _, err := ts.gm.CreatePairedMatch(context.Background(), "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	conn := ts.dial(t, m, p1, "msgpack")

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("Expected a binary message, got %d", kind)
	}
	var msg map[string]interface{}
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if msg["type"] != "game_state" {
		t.Errorf("Expected game_state first, got %v", msg["type"])
	}

	raw, _ := msgpack.Marshal(map[string]interface{}{"type": "get_state"})
	if err := conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	msg = nil
	if err := msgpack.Unmarshal(data, &msg); err != nil || msg["type"] != "game_state" {
		t.Errorf("Expected game_state reply, got %v (%v)", msg, err)
	}
}

func TestRelayEventReachesRoom(t *testing.T) {
	ts := newTestServer(t)
	m, p1, _, err := ts.gm.CreatePairedMatch(context.Background(), "Ana", "Ben")
	if err != nil {
		t.Fatalf("CreatePairedMatch: %v", err)
	}
	conn := ts.dial(t, m, p1, "")
	readUntil(t, conn, "game_state")

	ts.hub.relayEvent(`{"type":"idle_warning","match_token":"` + m.Token + `","player":"` + p1.ID + `","remaining_seconds":45}`)
	msg := readUntil(t, conn, "idle_warning")
	if msg["player"] != p1.ID || msg["remaining_seconds"].(float64) != 45 {
		t.Errorf("Unexpected relay: %v", msg)
	}
}

func TestHubStopsAcceptingAfterRunReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &config.Config{TickRateHz: 60, JWTSecret: testSecret}
	hub := NewHub(game.NewGameManager(ctx, nil, nil, cfg), nil)

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	returned := make(chan bool)
	go func() {
		c := &Client{hub: hub, playerID: "p1_gone", matchToken: "tok"}
		hub.leave(c)
		returned <- hub.join(c)
	}()
	select {
	case joined := <-returned:
		if joined {
			t.Error("Expected join to be refused by a stopped hub")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("leave or join blocked on a stopped hub")
	}
}
