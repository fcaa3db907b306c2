package room

// CastVote records a single vote for username. It validates that the
// room is open, the user is a member who has not voted yet, and the
// option is recognized; validation failures leave the room untouched.
// On success the tally increment and the member's voted flag are applied
// atomically, and publish (if non-nil) runs before the room lock is
// released so tally updates reach the broadcast dispatcher in the order
// they were applied.
//
// A second vote by the same user is an error, never a no-op: the ledger
// must distinguish a duplicate request from a benign retry, and no vote
// may be retracted or changed.
func (r *Room) CastVote(username string, option Option, publish func(Tally)) (Tally, error) {
	if option != OptionA && option != OptionB {
		return Tally{}, ErrInvalidOption
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Tally{}, ErrRoomClosed
	}
	m, ok := r.members[username]
	if !ok {
		return Tally{}, ErrNotMember
	}
	if m.Voted {
		return Tally{}, ErrAlreadyVoted
	}

	switch option {
	case OptionA:
		r.tally.A++
	case OptionB:
		r.tally.B++
	}
	m.Voted = true

	if publish != nil {
		publish(r.tally)
	}
	return r.tally, nil
}

// Close flips the room to its terminal closed state and returns whether
// this call made the transition. publish runs under the room lock and
// only on the transition, which keeps the closure broadcast to exactly
// one even if two closure paths race.
func (r *Room) Close(publish func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.closed = true

	if publish != nil {
		publish()
	}
	return true
}
