package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/voteroom/go/internal/room"
)

// StateProvider defines what the read-only REST layer needs from the
// room domain.
type StateProvider interface {
	RoomState(code string) (*RoomStateResponse, error)
	ActiveRooms() []RoomSummary
}

// RoomStateResponse represents the complete observable state of a room.
type RoomStateResponse struct {
	RoomCode     string     `json:"room_code"`
	Votes        room.Tally `json:"votes"`
	Closed       bool       `json:"closed"`
	Members      int        `json:"members"`
	TimerRunning bool       `json:"timer_running"`
}

// RoomSummary represents one live room in the active-rooms listing.
type RoomSummary struct {
	RoomCode string     `json:"room_code"`
	Members  int        `json:"members"`
	Votes    room.Tally `json:"votes"`
	Closed   bool       `json:"closed"`
}

// StateHandler handles HTTP requests for room state.
type StateHandler struct {
	provider StateProvider
}

// NewStateHandler creates a new state handler.
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{provider: provider}
}

// HandleGetRoomState handles GET /api/rooms/{code}/state.
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code := extractRoomCodeFromPath(r.URL.Path)
	if code == "" {
		http.Error(w, "Room code is required", http.StatusBadRequest)
		return
	}

	state, err := h.provider.RoomState(code)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			http.Error(w, "Room not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room_code", code).Msg("failed to get room state")
		http.Error(w, "Failed to get room state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode room state response")
	}
}

// HandleGetActiveRooms handles GET /api/rooms/active.
func (h *StateHandler) HandleGetActiveRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rooms := h.provider.ActiveRooms()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rooms); err != nil {
		log.Error().Err(err).Msg("failed to encode active rooms response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes.
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rooms/active", h.HandleGetActiveRooms)

	// Pattern route for room state - note the trailing slash
	mux.HandleFunc("/api/rooms/", func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > len("/api/rooms/") && r.URL.Path[len(r.URL.Path)-6:] == "/state" {
			h.HandleGetRoomState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractRoomCodeFromPath extracts the code from /api/rooms/{code}/state.
func extractRoomCodeFromPath(path string) string {
	const prefix = "/api/rooms/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
