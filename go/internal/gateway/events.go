package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/voteroom/go/internal/room"
)

// Envelope is the wire shape of every protocol message in both
// directions: a type tag plus a type-specific JSON payload.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType identifies a protocol message.
type MessageType string

// Client → server messages.
const (
	TypeCreateRoom MessageType = "CREATE_ROOM"
	TypeJoinRoom   MessageType = "JOIN_ROOM"
	TypeCastVote   MessageType = "CAST_VOTE"
	TypeStartTimer MessageType = "START_TIMER"
)

// Server → client messages.
const (
	TypeRoomCreated MessageType = "ROOM_CREATED"
	TypeJoinedRoom  MessageType = "JOINED_ROOM"
	TypeVoteUpdate  MessageType = "VOTE_UPDATE"
	TypeTimerStart  MessageType = "TIMER_START"
	TypeTimerEnd    MessageType = "TIMER_END"
	TypeError       MessageType = "ERROR"
)

// JoinRoomPayload carries a JOIN_ROOM request.
type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
}

// CastVotePayload carries a CAST_VOTE request. Vote must be "A" or "B".
type CastVotePayload struct {
	Vote string `json:"vote"`
}

// StartTimerPayload carries a START_TIMER request. The room is addressed
// by code, not by the caller's joined room.
type StartTimerPayload struct {
	RoomCode string `json:"roomCode"`
}

// RoomCreatedPayload answers CREATE_ROOM.
type RoomCreatedPayload struct {
	RoomCode string `json:"roomCode"`
}

// JoinedRoomPayload answers a successful JOIN_ROOM with the state the new
// member should render.
type JoinedRoomPayload struct {
	RoomCode string     `json:"roomCode"`
	Votes    room.Tally `json:"votes"`
	Closed   bool       `json:"closed"`
}

// TimerStartPayload is broadcast when a room's countdown begins.
type TimerStartPayload struct {
	Duration int `json:"duration"`
}

// ErrorPayload is sent to the requester only; errors are never broadcast.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewEvent wraps payload in a ready-to-send envelope. A nil payload
// yields a bare type tag (TIMER_END).
func NewEvent(t MessageType, payload any) *Envelope {
	if payload == nil {
		return &Envelope{Type: t}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are our own structs; this cannot fail for valid ones.
		log.Error().Err(err).Str("type", string(t)).Msg("failed to marshal event payload")
		return &Envelope{Type: t}
	}
	return &Envelope{Type: t, Payload: data}
}
