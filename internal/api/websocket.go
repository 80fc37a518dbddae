package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"brawler/internal/game"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// hookBatch is how many hook events are drained per broadcast
	hookBatch = 1024

	wsWriteTimeout = 2 * time.Second
	wsMaxMessage   = 4096
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// wsCommand is a command sent by a client, e.g.
// {"character":"abc","kind":"dash","x":1,"z":0}
type wsCommand struct {
	Character string  `json:"character"`
	Kind      string  `json:"kind"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Target    string  `json:"target"`
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	engine   EngineInterface
	upgrader websocket.Upgrader

	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting. origins extends
// AllowedOrigins for the upgrade origin check.
func NewWebSocketHub(engine EngineInterface, origins []string) *WebSocketHub {
	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(origin, origins) {
				return true
			}

			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub. It returns after Stop, closing every connection.
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

		case conn := <-h.unregister:
			h.mu.Lock()
			h.drop(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.drop(conn)
				}
			}
			count := len(h.clients)
			h.mu.Unlock()
			UpdateWSConnections(count)
			IncrementWSMessages()

		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				h.drop(conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// drop closes conn and releases its IP slot. Caller holds h.mu.
func (h *WebSocketHub) drop(conn *websocket.Conn) {
	client, ok := h.clients[conn]
	if !ok {
		return
	}
	h.wsLimiter.Release(client.ip)
	delete(h.clients, conn)
	conn.Close()
}

// Stop ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop publishes the arena state every interval and forwards
// queued hook events as they are drained. Hooks may be nil.
func (h *WebSocketHub) StartBroadcastLoop(hooks *game.HookQueue, interval time.Duration) {
	ticker := time.NewTicker(interval)
	buf := make([]game.HookEvent, hookBatch)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
			}

			// Drain even with no clients so the queue never backs up
			var events []game.HookEvent
			if hooks != nil {
				n := hooks.Drain(buf)
				events = buf[:n]
				UpdateHookDrops(hooks.Dropped())
			}
			stats := h.engine.Stats()
			total, _ := stats.EventLog["total"].(uint64)
			dropped, _ := stats.EventLog["dropped"].(uint64)
			UpdateEventLogStats(total, dropped)

			if h.ClientCount() == 0 {
				continue
			}
			if len(events) > 0 {
				h.Broadcast("combat:events", events)
			}
			h.Broadcast("game:state", h.engine.GetSnapshot().Clone())
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	// Check total connection limit
	h.mu.RLock()
	totalConnections := len(h.clients)
	h.mu.RUnlock()

	if totalConnections >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", totalConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	// Upgrade to WebSocket
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}
	conn.SetReadLimit(wsMaxMessage)

	client := &wsClient{conn: conn, ip: ip}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	// Read commands from the client
	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
			}
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			var msg wsCommand
			if err := json.Unmarshal(message, &msg); err != nil {
				continue
			}
			h.handleCommand(ip, msg)
		}
	}()
}

// handleCommand queues a client command. Unknown kinds are logged and ignored.
func (h *WebSocketHub) handleCommand(ip string, msg wsCommand) {
	kind, ok := game.ParseCommandKind(msg.Kind)
	if !ok || msg.Character == "" {
		log.Printf("📨 Ignoring WebSocket message from %s: kind=%q", ip, msg.Kind)
		return
	}
	if !finite(msg.X, msg.Y, msg.Z) {
		return
	}
	h.engine.Submit(game.Command{
		Kind:      kind,
		Character: game.CharacterID(msg.Character),
		Vector:    game.Vec3{X: msg.X, Y: msg.Y, Z: msg.Z},
		Target:    game.CharacterID(msg.Target),
	})
}
