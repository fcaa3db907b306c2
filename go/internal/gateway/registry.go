package gateway

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyJoined is returned when a connection that already joined
	// a room tries to join again. The Unjoined → Joined transition is
	// one-way; there is no leave operation.
	ErrAlreadyJoined = errors.New("already joined a room")

	// ErrNotJoined is returned when a connection acts on a room before
	// joining one.
	ErrNotJoined = errors.New("join a room first")
)

// binding ties a connection to the room and identity it joined as.
type binding struct {
	roomCode string
	username string
}

// Registry owns the connection → (room, username) association. It is
// keyed by opaque connection IDs so nothing here depends on the
// transport handle type.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]binding)}
}

// Associate binds a connection to a room/identity pair exactly once.
func (r *Registry) Associate(connID, roomCode, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, bound := r.bindings[connID]; bound {
		return ErrAlreadyJoined
	}
	r.bindings[connID] = binding{roomCode: roomCode, username: username}
	return nil
}

// Resolve returns the room and username a connection joined as.
func (r *Registry) Resolve(connID string) (roomCode, username string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, bound := r.bindings[connID]
	if !bound {
		return "", "", ErrNotJoined
	}
	return b.roomCode, b.username, nil
}

// Release drops the association and reports what it was bound to so the
// caller can clean up room membership. Votes the departed user already
// cast remain counted.
func (r *Registry) Release(connID string) (roomCode, username string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, bound := r.bindings[connID]
	if !bound {
		return "", "", false
	}
	delete(r.bindings, connID)
	return b.roomCode, b.username, true
}
