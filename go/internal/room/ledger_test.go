package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T, usernames ...string) *Room {
	t.Helper()
	r := newRoom("test01")
	for i, name := range usernames {
		_, _, err := r.join(name, fmt.Sprintf("conn-%d", i))
		require.NoError(t, err)
	}
	return r
}

func TestCastVoteTallies(t *testing.T) {
	r := newTestRoom(t, "alice", "bob")

	tally, err := r.CastVote("alice", OptionA, nil)
	require.NoError(t, err)
	assert.Equal(t, Tally{A: 1}, tally)

	tally, err = r.CastVote("bob", OptionB, nil)
	require.NoError(t, err)
	assert.Equal(t, Tally{A: 1, B: 1}, tally)
	assert.Equal(t, 2, tally.Total())
}

func TestCastVoteTwice(t *testing.T) {
	r := newTestRoom(t, "alice")

	_, err := r.CastVote("alice", OptionA, nil)
	require.NoError(t, err)

	_, err = r.CastVote("alice", OptionB, nil)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	votes, _ := r.Snapshot()
	assert.Equal(t, Tally{A: 1}, votes, "rejected vote must not move the tally")
}

func TestCastVoteInvalidOption(t *testing.T) {
	r := newTestRoom(t, "alice")

	_, err := r.CastVote("alice", Option("C"), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = r.CastVote("alice", Option(""), nil)
	assert.ErrorIs(t, err, ErrInvalidOption)

	votes, _ := r.Snapshot()
	assert.Equal(t, Tally{}, votes)
}

func TestCastVoteNonMember(t *testing.T) {
	r := newTestRoom(t)

	_, err := r.CastVote("ghost", OptionA, nil)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestCastVoteAfterClose(t *testing.T) {
	r := newTestRoom(t, "alice")
	r.Close(nil)

	_, err := r.CastVote("alice", OptionA, nil)
	assert.ErrorIs(t, err, ErrRoomClosed)

	votes, closed := r.Snapshot()
	assert.True(t, closed)
	assert.Equal(t, Tally{}, votes)
}

func TestCloseIsIdempotent(t *testing.T) {
	r := newTestRoom(t)

	published := 0
	assert.True(t, r.Close(func() { published++ }))
	assert.False(t, r.Close(func() { published++ }))
	assert.Equal(t, 1, published, "closure must publish exactly once")
}

func TestCastVotePublishesInApplyOrder(t *testing.T) {
	const voters = 32

	usernames := make([]string, voters)
	for i := range usernames {
		usernames[i] = fmt.Sprintf("user-%d", i)
	}
	r := newTestRoom(t, usernames...)

	var mu sync.Mutex
	var totals []int

	var wg sync.WaitGroup
	for i, name := range usernames {
		wg.Add(1)
		opt := OptionA
		if i%2 == 1 {
			opt = OptionB
		}
		go func(name string, opt Option) {
			defer wg.Done()
			_, err := r.CastVote(name, opt, func(tally Tally) {
				mu.Lock()
				totals = append(totals, tally.Total())
				mu.Unlock()
			})
			assert.NoError(t, err)
		}(name, opt)
	}
	wg.Wait()

	require.Len(t, totals, voters)
	for i, total := range totals {
		assert.Equal(t, i+1, total, "published tallies must be in apply order")
	}

	votes, _ := r.Snapshot()
	assert.Equal(t, voters, votes.Total())
	assert.Equal(t, voters/2, votes.A)
	assert.Equal(t, voters/2, votes.B)
}
