// Package timer runs the per-room closing countdowns. Each room gets at
// most one outstanding one-shot timer; when it elapses the scheduler
// invokes the configured callback, which is where the room gets closed
// and the closure broadcast.
package timer

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrTimerRunning is returned when a countdown is started on a room that
// already has one running. First start wins; there is no idempotent
// restart and no client-facing cancel.
var ErrTimerRunning = errors.New("timer already running")

// Scheduler owns the active countdown timers, keyed by room code. The
// clock is injected so tests can drive timers with clockwork's fake
// clock instead of real delays.
type Scheduler struct {
	clock     clockwork.Clock
	onElapsed func(roomCode string)

	mu     sync.Mutex
	active map[string]clockwork.Timer

	done     chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a scheduler that calls onElapsed from a
// background goroutine each time a room's countdown fires.
func NewScheduler(clock clockwork.Clock, onElapsed func(roomCode string)) *Scheduler {
	return &Scheduler{
		clock:     clock,
		onElapsed: onElapsed,
		active:    make(map[string]clockwork.Timer),
		done:      make(chan struct{}),
	}
}

// Start schedules a one-shot countdown of d for roomCode and returns
// ErrTimerRunning if one is already outstanding.
func (s *Scheduler) Start(roomCode string, d time.Duration) error {
	s.mu.Lock()
	if _, running := s.active[roomCode]; running {
		s.mu.Unlock()
		return ErrTimerRunning
	}
	t := s.clock.NewTimer(d)
	s.active[roomCode] = t
	s.mu.Unlock()

	go func() {
		select {
		case <-t.Chan():
			s.remove(roomCode)
			log.Debug().Str("room_code", roomCode).Msg("countdown elapsed")
			s.onElapsed(roomCode)
		case <-s.done:
			stopAndDrainTimer(t)
			s.remove(roomCode)
			log.Debug().Str("room_code", roomCode).Msg("countdown cancelled on shutdown")
		}
	}()

	log.Debug().
		Str("room_code", roomCode).
		Dur("duration", d).
		Msg("scheduled one-shot countdown")
	return nil
}

// Running reports whether roomCode has an outstanding countdown.
func (s *Scheduler) Running(roomCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, running := s.active[roomCode]
	return running
}

// Cancel stops and forgets the room's countdown, if any. Not exposed to
// clients; the only client-visible way a timer resolves is by elapsing.
func (s *Scheduler) Cancel(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.active[roomCode]; ok {
		stopAndDrainTimer(t)
		delete(s.active, roomCode)
		log.Debug().Str("room_code", roomCode).Msg("cancelled countdown")
	}
}

// Shutdown cancels every outstanding countdown and releases their
// goroutines. The scheduler must not be reused afterwards.
func (s *Scheduler) Shutdown() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		for code, t := range s.active {
			stopAndDrainTimer(t)
			delete(s.active, code)
		}
		s.mu.Unlock()
	})
}

// remove forgets a timer once it has fired.
func (s *Scheduler) remove(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, roomCode)
}

// stopAndDrainTimer stops a timer and drains its channel so a stale tick
// cannot leak, per the time.Timer.Stop contract.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
