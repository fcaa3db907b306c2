package gateway

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/voteroom/go/internal/room"
	"github.com/mcdev12/voteroom/go/internal/timer"
)

// Handler is the protocol layer: it decodes inbound messages, validates
// them against the registry, store and ledger, applies the mutation, and
// emits the reply or broadcast. Validation failures answer the requester
// with ERROR and leave all state untouched; a fault never escapes the
// connection that triggered it.
type Handler struct {
	store    *room.Store
	registry *Registry
	timers   *timer.Scheduler
	cm       *ConnectionManager

	timerDuration time.Duration
}

// HandleMessage processes one raw inbound frame from a connection.
func (h *Handler) HandleMessage(conn *Connection, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.sendError(conn, "invalid message format")
		return
	}

	switch env.Type {
	case TypeCreateRoom:
		h.handleCreateRoom(conn)
	case TypeJoinRoom:
		h.handleJoinRoom(conn, env.Payload)
	case TypeCastVote:
		h.handleCastVote(conn, env.Payload)
	case TypeStartTimer:
		h.handleStartTimer(conn, env.Payload)
	default:
		h.sendError(conn, "unknown message type")
	}
}

// HandleDisconnect releases the connection's room association. Membership
// goes away; votes the user already cast stay counted.
func (h *Handler) HandleDisconnect(conn *Connection) {
	roomCode, username, ok := h.registry.Release(conn.ID)
	if !ok {
		return
	}
	h.store.RemoveMember(roomCode, username, conn.ID)

	log.Info().
		Str("room_code", roomCode).
		Str("username", username).
		Str("connection_id", conn.ID).
		Msg("member left room")
}

func (h *Handler) handleCreateRoom(conn *Connection) {
	r := h.store.Create()

	log.Info().
		Str("room_code", r.Code()).
		Str("connection_id", conn.ID).
		Msg("room created")

	h.cm.SendTo(conn, NewEvent(TypeRoomCreated, RoomCreatedPayload{RoomCode: r.Code()}))
}

func (h *Handler) handleJoinRoom(conn *Connection, raw json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomCode == "" || p.Username == "" {
		h.sendError(conn, "invalid message format")
		return
	}

	if _, _, err := h.registry.Resolve(conn.ID); err == nil {
		h.sendError(conn, ErrAlreadyJoined.Error())
		return
	}

	votes, closed, err := h.store.Join(p.RoomCode, p.Username, conn.ID)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if err := h.registry.Associate(conn.ID, p.RoomCode, p.Username); err != nil {
		// Lost a race with another join on this connection; undo the
		// membership we just took.
		h.store.RemoveMember(p.RoomCode, p.Username, conn.ID)
		h.sendError(conn, err.Error())
		return
	}
	h.cm.JoinRoom(conn, p.RoomCode)

	log.Info().
		Str("room_code", p.RoomCode).
		Str("username", p.Username).
		Str("connection_id", conn.ID).
		Msg("member joined room")

	h.cm.SendTo(conn, NewEvent(TypeJoinedRoom, JoinedRoomPayload{
		RoomCode: p.RoomCode,
		Votes:    votes,
		Closed:   closed,
	}))
}

func (h *Handler) handleCastVote(conn *Connection, raw json.RawMessage) {
	var p CastVotePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.sendError(conn, "invalid message format")
		return
	}

	roomCode, username, err := h.registry.Resolve(conn.ID)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	r, err := h.store.Get(roomCode)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	tally, err := r.CastVote(username, room.Option(p.Vote), func(t room.Tally) {
		h.cm.BroadcastToRoom(roomCode, NewEvent(TypeVoteUpdate, t))
	})
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}

	log.Info().
		Str("room_code", roomCode).
		Str("username", username).
		Str("vote", p.Vote).
		Int("total_votes", tally.Total()).
		Msg("vote cast")
}

func (h *Handler) handleStartTimer(conn *Connection, raw json.RawMessage) {
	var p StartTimerPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomCode == "" {
		h.sendError(conn, "invalid message format")
		return
	}

	r, err := h.store.Get(p.RoomCode)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	if _, closed := r.Snapshot(); closed {
		h.sendError(conn, room.ErrRoomClosed.Error())
		return
	}
	if err := h.timers.Start(p.RoomCode, h.timerDuration); err != nil {
		h.sendError(conn, err.Error())
		return
	}

	log.Info().
		Str("room_code", p.RoomCode).
		Dur("duration", h.timerDuration).
		Msg("countdown started")

	h.cm.BroadcastToRoom(p.RoomCode, NewEvent(TypeTimerStart, TimerStartPayload{
		Duration: int(h.timerDuration.Seconds()),
	}))
}

// handleTimerElapsed closes the room when its countdown fires. The
// TIMER_END broadcast is enqueued under the room lock on the closed
// transition, so it goes out exactly once.
func (h *Handler) handleTimerElapsed(roomCode string) {
	r, err := h.store.Get(roomCode)
	if err != nil {
		return
	}

	if r.Close(func() {
		h.cm.BroadcastToRoom(roomCode, NewEvent(TypeTimerEnd, nil))
	}) {
		log.Info().Str("room_code", roomCode).Msg("voting closed")
	}
}

func (h *Handler) sendError(conn *Connection, message string) {
	h.cm.SendTo(conn, NewEvent(TypeError, ErrorPayload{Message: message}))
}
