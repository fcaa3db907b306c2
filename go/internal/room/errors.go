package room

import "errors"

var (
	// ErrRoomNotFound is returned when no live room exists for a code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrUsernameTaken is returned when the username is already a member
	// of the room.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrNotMember is returned when a vote arrives for a user who is not
	// a member of the room.
	ErrNotMember = errors.New("not a member of this room")

	// ErrAlreadyVoted is returned on a second vote attempt by the same
	// user. The ledger never treats a duplicate as a no-op.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrInvalidOption is returned when the vote is not one of the two
	// recognized options.
	ErrInvalidOption = errors.New("invalid vote option")

	// ErrRoomClosed is returned when the room's voting has ended.
	ErrRoomClosed = errors.New("voting is closed")
)
