package room

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultCodeLength is the number of characters in a generated room code.
const DefaultCodeLength = 6

// Store owns every live room, keyed by share code. An instance is
// created at server startup and torn down with the process; rooms live
// until the process exits.
type Store struct {
	codeLen int

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewStore creates an empty room store generating codes of codeLen
// characters.
func NewStore(codeLen int) *Store {
	if codeLen <= 0 {
		codeLen = DefaultCodeLength
	}
	return &Store{
		codeLen: codeLen,
		rooms:   make(map[string]*Room),
	}
}

// Create registers a new room under a fresh code, regenerating on
// collision with any currently live room.
func (s *Store) Create() *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	for {
		code = s.newCode()
		if _, exists := s.rooms[code]; !exists {
			break
		}
		log.Debug().Str("room_code", code).Msg("room code collision, regenerating")
	}

	r := newRoom(code)
	s.rooms[code] = r
	return r
}

// newCode derives a short shareable code from a random UUID.
func (s *Store) newCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return raw[:s.codeLen]
}

// Get looks up a live room by exact, case-sensitive code.
func (s *Store) Get(code string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join adds username to the room's membership and returns the tally and
// closed flag the new member should see. The username must not already
// be a member; a departed member's name is free again once released.
func (s *Store) Join(code, username, connID string) (Tally, bool, error) {
	r, err := s.Get(code)
	if err != nil {
		return Tally{}, false, err
	}
	return r.join(username, connID)
}

// RemoveMember drops username from the room's membership if connID still
// owns it. Votes the member already cast stay counted.
func (s *Store) RemoveMember(code, username, connID string) {
	r, err := s.Get(code)
	if err != nil {
		return
	}
	r.removeMember(username, connID)
}

// Codes returns the codes of all live rooms.
func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

// Len returns the number of live rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
