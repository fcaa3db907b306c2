package timer

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *clockwork.FakeClock, chan string) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	elapsed := make(chan string, 8)
	s := NewScheduler(clock, func(roomCode string) {
		elapsed <- roomCode
	})
	t.Cleanup(s.Shutdown)

	return s, clock, elapsed
}

func waitElapsed(t *testing.T, elapsed chan string) string {
	t.Helper()
	select {
	case code := <-elapsed:
		return code
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for countdown to fire")
		return ""
	}
}

func assertNotElapsed(t *testing.T, elapsed chan string) {
	t.Helper()
	select {
	case code := <-elapsed:
		t.Fatalf("countdown fired unexpectedly for %q", code)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStartFiresOnceAfterDuration(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", 60*time.Second))
	clock.BlockUntil(1)

	clock.Advance(59 * time.Second)
	assertNotElapsed(t, elapsed)

	clock.Advance(time.Second)
	assert.Equal(t, "room-1", waitElapsed(t, elapsed))
	assertNotElapsed(t, elapsed)
}

func TestSecondStartRejected(t *testing.T) {
	s, clock, _ := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", 60*time.Second))
	clock.BlockUntil(1)

	err := s.Start("room-1", 60*time.Second)
	assert.ErrorIs(t, err, ErrTimerRunning)
}

func TestRoomsCountDownIndependently(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", 30*time.Second))
	require.NoError(t, s.Start("room-2", 60*time.Second))
	clock.BlockUntil(2)

	clock.Advance(30 * time.Second)
	assert.Equal(t, "room-1", waitElapsed(t, elapsed))
	assert.True(t, s.Running("room-2"))

	clock.Advance(30 * time.Second)
	assert.Equal(t, "room-2", waitElapsed(t, elapsed))
}

func TestRunning(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	assert.False(t, s.Running("room-1"))

	require.NoError(t, s.Start("room-1", time.Second))
	assert.True(t, s.Running("room-1"))
	clock.BlockUntil(1)

	clock.Advance(time.Second)
	waitElapsed(t, elapsed)
	assert.False(t, s.Running("room-1"))
}

func TestStartAgainAfterElapse(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", time.Second))
	clock.BlockUntil(1)
	clock.Advance(time.Second)
	waitElapsed(t, elapsed)

	assert.NoError(t, s.Start("room-1", time.Second))
}

func TestCancelStopsCountdown(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", time.Second))
	clock.BlockUntil(1)

	s.Cancel("room-1")
	assert.False(t, s.Running("room-1"))

	clock.Advance(time.Second)
	assertNotElapsed(t, elapsed)
}

func TestShutdownStopsAllCountdowns(t *testing.T) {
	s, clock, elapsed := newTestScheduler(t)

	require.NoError(t, s.Start("room-1", time.Second))
	require.NoError(t, s.Start("room-2", time.Second))
	clock.BlockUntil(2)

	s.Shutdown()
	clock.Advance(time.Second)
	assertNotElapsed(t, elapsed)
}
