package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"color-snake/internal/config"
	"color-snake/internal/game"
	"color-snake/internal/input"
)

type jsonFrame struct {
	Event string        `json:"event"`
	Data  game.Snapshot `json:"data"`
}

type msgpackFrame struct {
	Event string        `msgpack:"event"`
	Data  game.Snapshot `msgpack:"data"`
}

// wsFixture is a real engine behind a real server; the tick driver is
// effectively off so only commands change the state
type wsFixture struct {
	engine *game.Engine
	server *Server
	queue  *input.CommandQueue
	ts     *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	cfg := config.DefaultGame()
	cfg.Seed = 42
	cfg.TickInterval = time.Hour

	engine, err := game.NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	h := input.NewHandler(engine, input.RateLimitConfig{})
	queue := input.NewCommandQueue(h, 16)
	queue.Start()

	server := NewServer(ServerDeps{Engine: engine, Input: h, Queue: queue})
	go server.Hub().Run()
	ts := httptest.NewServer(server.Router())

	t.Cleanup(func() {
		ts.Close()
		server.Hub().Stop()
		server.rateLimiter.Stop()
		queue.Stop()
		h.Close()
		engine.Close()
	})
	return &wsFixture{engine: engine, server: server, queue: queue, ts: ts}
}

func (f *wsFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("Expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readJSONUntil reads text frames until one satisfies match or the deadline passes
func readJSONUntil(t *testing.T, conn *websocket.Conn, match func(game.Snapshot) bool) game.Snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Read failed before a matching snapshot: %v", err)
		}
		if msgType != websocket.TextMessage {
			t.Fatalf("Expected text frame, got type %d", msgType)
		}
		var frame jsonFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatalf("Bad frame: %v", err)
		}
		if frame.Event != EventSnapshot {
			t.Fatalf("Expected %s event, got %s", EventSnapshot, frame.Event)
		}
		if match(frame.Data) {
			return frame.Data
		}
	}
}

func TestWebSocketInitialSnapshot(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")

	snap := readJSONUntil(t, conn, func(game.Snapshot) bool { return true })
	if snap.Status != game.StatusIdle {
		t.Errorf("Expected IDLE, got %s", snap.Status)
	}
	if snap.Width != 20 || snap.Height != 20 {
		t.Errorf("Expected 20x20 grid, got %dx%d", snap.Width, snap.Height)
	}
	if len(snap.Snake) != 2 {
		t.Errorf("Expected initial snake of 2, got %d", len(snap.Snake))
	}
	if f.server.Hub().ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", f.server.Hub().ClientCount())
	}
}

func TestWebSocketCommandsDriveEngine(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")
	readJSONUntil(t, conn, func(game.Snapshot) bool { return true })

	if err := conn.WriteJSON(map[string]string{"type": "key", "key": "Enter"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readJSONUntil(t, conn, func(s game.Snapshot) bool { return s.Status == game.StatusPlaying })

	if err := conn.WriteJSON(map[string]string{"type": "direction", "direction": "UP"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readJSONUntil(t, conn, func(s game.Snapshot) bool { return s.Direction == game.DirUp })
	f.engine.Tick()
	snap := readJSONUntil(t, conn, func(s game.Snapshot) bool { return s.Tick >= 1 })
	if snap.Snake[0].Y != 9 {
		t.Errorf("Expected head to move up to y=9, got %+v", snap.Snake[0])
	}

	if err := conn.WriteJSON(map[string]string{"type": "pause"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readJSONUntil(t, conn, func(s game.Snapshot) bool { return s.Status == game.StatusPaused })
}

func TestWebSocketIgnoresInvalidFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")
	readJSONUntil(t, conn, func(game.Snapshot) bool { return true })

	for _, msg := range []string{`not json`, `{"type":"key","key":"F13"}`, `{"type":"teleport"}`} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	// The connection survives and still accepts commands
	if err := conn.WriteJSON(map[string]string{"type": "start"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	readJSONUntil(t, conn, func(s game.Snapshot) bool { return s.Status == game.StatusPlaying })

	if got := f.queue.Stats().Enqueued; got != 1 {
		t.Errorf("Expected only the valid command queued, got %d", got)
	}
}

func TestWebSocketMsgpackCodec(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "?codec=msgpack")

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("Expected binary frame, got type %d", msgType)
	}

	var frame msgpackFrame
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatalf("Bad msgpack frame: %v", err)
	}
	if frame.Event != EventSnapshot {
		t.Errorf("Expected %s, got %s", EventSnapshot, frame.Event)
	}
	if frame.Data.Status != game.StatusIdle || frame.Data.Width != 20 {
		t.Errorf("Unexpected snapshot %+v", frame.Data)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	f := newWSFixture(t)
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestParseInbound(t *testing.T) {
	tests := []struct {
		msg  string
		ok   bool
		kind input.CommandKind
		dir  game.Direction
	}{
		{`{"type":"key","key":"ArrowLeft"}`, true, input.CmdDirection, game.DirLeft},
		{`{"type":"key","key":"space"}`, true, input.CmdPause, ""},
		{`{"type":"direction","direction":"down"}`, true, input.CmdDirection, game.DirDown},
		{`{"type":"direction","direction":"sideways"}`, false, 0, ""},
		{`{"type":"restart"}`, true, input.CmdRestart, ""},
		{`{"type":"key","key":"F13"}`, false, 0, ""},
		{`[]`, false, 0, ""},
	}

	for _, tt := range tests {
		cmd, ok := parseInbound([]byte(tt.msg), "ws:test")
		if ok != tt.ok {
			t.Errorf("%s: expected ok=%v, got %v", tt.msg, tt.ok, ok)
			continue
		}
		if !ok {
			continue
		}
		if cmd.Kind != tt.kind || cmd.Direction != tt.dir {
			t.Errorf("%s: expected %s/%s, got %s/%s", tt.msg, tt.kind, tt.dir, cmd.Kind, cmd.Direction)
		}
		if cmd.Source != "ws:test" {
			t.Errorf("%s: expected source to be kept, got %q", tt.msg, cmd.Source)
		}
	}
}

func TestParseCodec(t *testing.T) {
	if ParseCodec("msgpack") != CodecMsgpack {
		t.Error("Expected msgpack codec")
	}
	if ParseCodec("") != CodecJSON || ParseCodec("cbor") != CodecJSON {
		t.Error("Unknown codecs should fall back to JSON")
	}
}
