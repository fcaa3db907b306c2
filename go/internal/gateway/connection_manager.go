package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections and the per-room
// broadcast pools. A single dispatcher goroutine drains broadcastCh, so
// messages enqueued for one room reach every recipient in enqueue order.
type ConnectionManager struct {
	// Connection pools organized by room code; connections join a pool
	// only after a successful JOIN_ROOM.
	roomConnections map[string]map[*Connection]bool
	connections     map[*Connection]bool
	mu              sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Outbound message dispatching
	broadcastCh chan BroadcastMessage

	// Inbound protocol hooks, wired by the service before Start.
	onMessage    func(*Connection, []byte)
	onDisconnect func(*Connection)
}

// Connection represents a WebSocket connection to one client.
type Connection struct {
	ID      string
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents one outbound delivery: either a fanout to
// a room pool, or a direct reply when Target is set.
type BroadcastMessage struct {
	RoomCode string
	Event    *Envelope
	Target   *Connection
}

// DefaultConnectionConfig returns default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		roomConnections: make(map[string]map[*Connection]bool),
		connections:     make(map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing outbound messages. It blocks until ctx is
// cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and starts
// its pumps. The connection stays outside every room pool until it joins
// one through the protocol.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to the manager.
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// JoinRoom adds a connection to a room's broadcast pool.
func (cm *ConnectionManager) JoinRoom(conn *Connection, roomCode string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConnections[roomCode] == nil {
		cm.roomConnections[roomCode] = make(map[*Connection]bool)
	}
	cm.roomConnections[roomCode][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_code", roomCode).
		Int("room_connections", len(cm.roomConnections[roomCode])).
		Msg("connection joined room pool")
}

// unregisterConnection removes a connection from the manager and any
// room pool it joined, then notifies the disconnect hook.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	if _, exists := cm.connections[conn]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(cm.connections, conn)
	close(conn.Send)

	for roomCode, pool := range cm.roomConnections {
		if pool[conn] {
			delete(pool, conn)
			// Clean up empty room pools
			if len(pool) == 0 {
				delete(cm.roomConnections, roomCode)
			}
		}
	}
	cm.mu.Unlock()

	if cm.onDisconnect != nil {
		cm.onDisconnect(conn)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Msg("connection unregistered")
}

// BroadcastToRoom queues an event for every connection in the room's
// pool whose channel is open.
func (cm *ConnectionManager) BroadcastToRoom(roomCode string, event *Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomCode: roomCode, Event: event}:
	default:
		log.Warn().Str("room_code", roomCode).Msg("broadcast channel full, dropping message")
	}
}

// SendTo queues an event for a single connection. Replies share the
// dispatcher with broadcasts so per-room ordering holds across both.
func (cm *ConnectionManager) SendTo(conn *Connection, event *Envelope) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Event: event, Target: conn}:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("broadcast channel full, dropping reply")
	}
}

// handleBroadcast delivers one queued message.
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	if message.Target != nil {
		cm.trySend(message.Target, data)
		return
	}

	cm.mu.RLock()
	pool, exists := cm.roomConnections[message.RoomCode]
	if !exists {
		cm.mu.RUnlock()
		return
	}
	// Snapshot the pool to avoid holding the lock during delivery.
	targets := make([]*Connection, 0, len(pool))
	for conn := range pool {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targets {
		cm.trySend(conn, data)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("room_code", message.RoomCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// trySend pushes data to a connection's send buffer; a full buffer means
// the connection is slow or dead, so it gets dropped rather than retried.
// The send happens under the manager lock, which excludes the close of
// Send in unregisterConnection.
func (cm *ConnectionManager) trySend(conn *Connection, data []byte) {
	cm.mu.RLock()
	if !cm.connections[conn] {
		cm.mu.RUnlock()
		return
	}

	select {
	case conn.Send <- data:
		cm.mu.RUnlock()
	default:
		cm.mu.RUnlock()
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("connection send buffer full, closing connection")
		cm.closeConnection(conn)
	}
}

// closeConnection tears down a connection from the server side.
func (cm *ConnectionManager) closeConnection(conn *Connection) {
	cm.unregisterConnection(conn)
	if conn.Conn != nil {
		conn.Conn.Close()
	}
}

// CloseAll tears down every live connection; used at shutdown.
func (cm *ConnectionManager) CloseAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.connections))
	for conn := range cm.connections {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		cm.closeConnection(conn)
	}
}

// GetConnectionStats returns statistics about active connections.
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int)
	for roomCode, pool := range cm.roomConnections {
		roomCounts[roomCode] = len(pool)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connections),
		"active_rooms":      len(cm.roomConnections),
		"room_connections":  roomCounts,
	}
}

// writePump handles sending messages to the WebSocket connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection and
// feeds them to the protocol handler one at a time, so each connection's
// messages are processed in arrival order.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		if c.Manager.onMessage != nil {
			c.Manager.onMessage(c, message)
		}
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
