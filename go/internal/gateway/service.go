package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/voteroom/go/internal/room"
	"github.com/mcdev12/voteroom/go/internal/timer"
)

// Config holds configuration for the voting gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	TimerDuration    time.Duration
	RoomCodeLength   int
}

// DefaultConfig returns default configuration: 60-second countdowns and
// 6-character room codes.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		TimerDuration:    60 * time.Second,
		RoomCodeLength:   room.DefaultCodeLength,
	}
}

// Service wires the room store, connection registry, timer scheduler and
// connection manager behind the WebSocket and REST surfaces. The store
// is owned by the service instance; there is no process-global room
// state, so tests run isolated instances.
type Service struct {
	store    *room.Store
	registry *Registry
	timers   *timer.Scheduler
	cm       *ConnectionManager
	handler  *Handler

	wsHandler    *WebSocketHandler
	stateHandler *StateHandler
}

// NewService creates a fully wired gateway service. The clock drives the
// room countdowns; production passes clockwork.NewRealClock().
func NewService(config Config, clock clockwork.Clock) *Service {
	store := room.NewStore(config.RoomCodeLength)
	registry := NewRegistry()
	cm := NewConnectionManager(config.ConnectionConfig)

	handler := &Handler{
		store:         store,
		registry:      registry,
		cm:            cm,
		timerDuration: config.TimerDuration,
	}
	handler.timers = timer.NewScheduler(clock, handler.handleTimerElapsed)

	cm.onMessage = handler.HandleMessage
	cm.onDisconnect = handler.HandleDisconnect

	return &Service{
		store:        store,
		registry:     registry,
		timers:       handler.timers,
		cm:           cm,
		handler:      handler,
		wsHandler:    NewWebSocketHandler(cm),
		stateHandler: NewStateHandler(&roomStateProvider{store: store, timers: handler.timers}),
	}
}

// Start runs the gateway service until ctx is cancelled, then tears it
// down.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting voteroom gateway service")

	go s.cm.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("voteroom gateway service shutting down")
	return s.Stop()
}

// Stop cancels all countdowns and closes every live connection.
func (s *Service) Stop() error {
	s.timers.Shutdown()
	s.cm.CloseAll()
	return nil
}

// RegisterRoutes registers the WebSocket and REST routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
}

// GetStats returns connection statistics for the info endpoint.
func (s *Service) GetStats() map[string]interface{} {
	return s.cm.GetConnectionStats()
}

// roomStateProvider implements StateProvider over the live store and
// scheduler.
type roomStateProvider struct {
	store  *room.Store
	timers *timer.Scheduler
}

func (p *roomStateProvider) RoomState(code string) (*RoomStateResponse, error) {
	r, err := p.store.Get(code)
	if err != nil {
		return nil, err
	}

	votes, closed := r.Snapshot()
	return &RoomStateResponse{
		RoomCode:     r.Code(),
		Votes:        votes,
		Closed:       closed,
		Members:      r.MemberCount(),
		TimerRunning: p.timers.Running(code),
	}, nil
}

func (p *roomStateProvider) ActiveRooms() []RoomSummary {
	codes := p.store.Codes()

	rooms := make([]RoomSummary, 0, len(codes))
	for _, code := range codes {
		r, err := p.store.Get(code)
		if err != nil {
			continue
		}
		votes, closed := r.Snapshot()
		rooms = append(rooms, RoomSummary{
			RoomCode: code,
			Members:  r.MemberCount(),
			Votes:    votes,
			Closed:   closed,
		})
	}
	return rooms
}
