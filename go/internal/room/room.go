package room

import "sync"

// Option is one of the two recognized vote choices.
type Option string

const (
	OptionA Option = "A"
	OptionB Option = "B"
)

// Tally is the running vote count for a room.
type Tally struct {
	A int `json:"A"`
	B int `json:"B"`
}

// Total returns the number of votes recorded across both options.
func (t Tally) Total() int {
	return t.A + t.B
}

// Member tracks one joined user inside a room. ConnID records which
// connection currently owns the name; Voted flips once and never back.
type Member struct {
	ConnID string
	Voted  bool
}

// Room is an isolated voting session identified by a short share code.
// All mutable state is guarded by mu. Rooms are independent units of
// concurrency; nothing here takes more than one room lock at a time.
type Room struct {
	code string

	mu      sync.Mutex
	members map[string]*Member
	tally   Tally
	closed  bool
}

func newRoom(code string) *Room {
	return &Room{
		code:    code,
		members: make(map[string]*Member),
	}
}

// Code returns the room's share code.
func (r *Room) Code() string { return r.code }

// Snapshot returns the current tally and closed flag.
func (r *Room) Snapshot() (Tally, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tally, r.closed
}

// MemberCount returns the number of currently joined users.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Room) join(username, connID string) (Tally, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.members[username]; taken {
		return Tally{}, false, ErrUsernameTaken
	}
	r.members[username] = &Member{ConnID: connID}
	return r.tally, r.closed, nil
}

// removeMember drops username only if connID still owns the name, so a
// late cleanup from a dead connection cannot evict a member who rejoined
// under a fresh connection.
func (r *Room) removeMember(username, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[username]
	if !ok || m.ConnID != connID {
		return
	}
	delete(r.members, username)
}
