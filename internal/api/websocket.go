package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"

	"color-snake/internal/game"
	"color-snake/internal/input"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// Inbound frames are tiny key presses
	maxInboundMessageSize = 512

	// A client that cannot take a frame within this time is dropped
	writeWait = 2 * time.Second

	// EventSnapshot is the envelope event name of a snapshot frame
	EventSnapshot = "game:snapshot"
)

// Codec selects the frame encoding of a client
type Codec uint8

const (
	CodecJSON    Codec = iota // Text frames
	CodecMsgpack              // Binary frames
)

// ParseCodec reads the ?codec= query value; anything unknown is JSON
func ParseCodec(s string) Codec {
	if s == "msgpack" {
		return CodecMsgpack
	}
	return CodecJSON
}

// wsEnvelope is the outbound frame body
type wsEnvelope struct {
	Event string      `json:"event" msgpack:"event"`
	Data  interface{} `json:"data" msgpack:"data"`
}

// wsInbound is a command sent by a client, e.g.
//
//	{"type":"key","key":"ArrowUp"}
//	{"type":"direction","direction":"LEFT"}
//	{"type":"pause"}
type wsInbound struct {
	Type      string `json:"type"`
	Key       string `json:"key,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// CommandSink accepts commands without blocking the reader
type CommandSink interface {
	Enqueue(cmd input.Command) bool
}

// HubConfig wires a hub to the rest of the server
type HubConfig struct {
	// AllowedOrigins for the upgrade check; nil uses DefaultAllowedOrigins
	AllowedOrigins []string
	// Commands receives inbound client commands; nil makes the socket read-only
	Commands CommandSink
	// Latest, if set, provides the snapshot sent to a client on connect
	Latest func() *game.Snapshot
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn  *websocket.Conn
	ip    string
	codec Codec
}

// WebSocketHub fans snapshots out to all connected clients with DoS
// protection. Run is the only goroutine that writes to connections.
type WebSocketHub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan *game.Snapshot
	register   chan *wsClient
	unregister chan *websocket.Conn
	stop       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	commands CommandSink
	latest   func() *game.Snapshot

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(cfg HubConfig) *WebSocketHub {
	origins := cfg.AllowedOrigins
	if origins == nil {
		origins = DefaultAllowedOrigins
	}

	h := &WebSocketHub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan *game.Snapshot, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		stop:       make(chan struct{}),
		commands:   cfg.Commands,
		latest:     cfg.Latest,
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin and are not a CSRF vector
			if origin == "" || IsAllowedOrigin(origin, origins) {
				return true
			}
			log.Warnf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run services registrations and broadcasts until Stop
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

			if h.latest != nil {
				if snap := h.latest(); snap != nil {
					h.send(client, newFrameCache(snap))
				}
			}

		case conn := <-h.unregister:
			h.remove(conn)

		case snap := <-h.broadcast:
			frames := newFrameCache(snap)
			h.mu.RLock()
			clients := make([]*wsClient, 0, len(h.clients))
			for _, c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.send(c, frames)
			}

		case <-h.stop:
			h.mu.Lock()
			for conn, c := range h.clients {
				h.wsLimiter.Release(c.ip)
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// Stop closes every connection and ends Run
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// send writes one snapshot frame; a failed write drops the client
func (h *WebSocketHub) send(c *wsClient, frames *frameCache) {
	msgType, data, err := frames.get(c.codec)
	if err != nil {
		log.WithError(err).Warn("⚠️ Snapshot encode failed")
		return
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(msgType, data); err != nil {
		h.remove(c.conn)
		return
	}
	IncrementWSMessages()
}

// remove releases a client's slot and closes its connection
func (h *WebSocketHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		conn.Close()
		log.Printf("📱 Client disconnected (%d remaining)", count)
		UpdateWSConnections(count)
	}
}

// Broadcast queues a snapshot for every client. It never blocks, so it is
// safe to call from Engine.OnPublish.
func (h *WebSocketHub) Broadcast(snap *game.Snapshot) {
	if snap == nil {
		return
	}
	select {
	case h.broadcast <- snap:
	default:
		// Channel full, skip (backpressure). The next snapshot supersedes it.
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if total := h.ClientCount(); total >= MaxWSConnectionsTotal {
		log.Warnf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Warnf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}
	conn.SetReadLimit(maxInboundMessageSize)

	client := &wsClient{conn: conn, ip: ip, codec: ParseCodec(r.URL.Query().Get("codec"))}
	select {
	case h.register <- client:
	case <-h.stop:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(client)
}

// readLoop turns inbound frames into queued commands until the client leaves
func (h *WebSocketHub) readLoop(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c.conn:
		case <-h.stop:
		}
	}()

	source := "ws:" + c.ip
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		cmd, ok := parseInbound(message, source)
		if !ok {
			RecordWSCommand("invalid")
			continue
		}
		if h.commands == nil || !h.commands.Enqueue(cmd) {
			RecordWSCommand("dropped")
			continue
		}
		RecordWSCommand("queued")
	}
}

// parseInbound decodes a client frame into a command
func parseInbound(message []byte, source string) (input.Command, bool) {
	var msg wsInbound
	if err := json.Unmarshal(message, &msg); err != nil {
		return input.Command{}, false
	}

	var cmd input.Command
	switch msg.Type {
	case "key":
		cmd = input.ParseKey(msg.Key, source)
	case "direction":
		var err error
		if cmd, err = input.DirectionCommand(msg.Direction, source); err != nil {
			return input.Command{}, false
		}
	case "pause":
		cmd = input.Command{Kind: input.CmdPause, Source: source}
	case "start":
		cmd = input.Command{Kind: input.CmdStart, Source: source}
	case "restart":
		cmd = input.Command{Kind: input.CmdRestart, Source: source}
	default:
		return input.Command{}, false
	}
	return cmd, cmd.Kind != input.CmdUnknown
}

// frameCache encodes a snapshot at most once per codec
type frameCache struct {
	env  wsEnvelope
	data [2][]byte
	err  [2]error
	done [2]bool
}

func newFrameCache(snap *game.Snapshot) *frameCache {
	return &frameCache{env: wsEnvelope{Event: EventSnapshot, Data: snap}}
}

func (f *frameCache) get(codec Codec) (int, []byte, error) {
	if !f.done[codec] {
		if codec == CodecMsgpack {
			f.data[codec], f.err[codec] = msgpack.Marshal(&f.env)
		} else {
			f.data[codec], f.err[codec] = json.Marshal(f.env)
		}
		f.done[codec] = true
	}
	if codec == CodecMsgpack {
		return websocket.BinaryMessage, f.data[codec], f.err[codec]
	}
	return websocket.TextMessage, f.data[codec], f.err[codec]
}
