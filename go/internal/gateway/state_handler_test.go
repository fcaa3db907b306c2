package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/voteroom/go/internal/room"
)

func TestRoomStateEndpoint(t *testing.T) {
	svc := NewService(DefaultConfig(), clockwork.NewFakeClock())
	t.Cleanup(svc.timers.Shutdown)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	r := svc.store.Create()
	_, _, err := svc.store.Join(r.Code(), "alice", "conn-1")
	require.NoError(t, err)
	_, err = r.CastVote("alice", room.OptionA, nil)
	require.NoError(t, err)
	require.NoError(t, svc.timers.Start(r.Code(), DefaultConfig().TimerDuration))

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/"+r.Code()+"/state", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var state RoomStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, r.Code(), state.RoomCode)
	assert.Equal(t, room.Tally{A: 1}, state.Votes)
	assert.False(t, state.Closed)
	assert.Equal(t, 1, state.Members)
	assert.True(t, state.TimerRunning)
}

func TestRoomStateEndpointNotFound(t *testing.T) {
	svc := NewService(DefaultConfig(), clockwork.NewFakeClock())
	t.Cleanup(svc.timers.Shutdown)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/nosuch/state", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActiveRoomsEndpoint(t *testing.T) {
	svc := NewService(DefaultConfig(), clockwork.NewFakeClock())
	t.Cleanup(svc.timers.Shutdown)

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	a := svc.store.Create()
	b := svc.store.Create()
	b.Close(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms/active", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []RoomSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	require.Len(t, rooms, 2)

	byCode := make(map[string]RoomSummary)
	for _, summary := range rooms {
		byCode[summary.RoomCode] = summary
	}
	assert.False(t, byCode[a.Code()].Closed)
	assert.True(t, byCode[b.Code()].Closed)
}

func TestExtractRoomCodeFromPath(t *testing.T) {
	assert.Equal(t, "abc123", extractRoomCodeFromPath("/api/rooms/abc123/state"))
	assert.Equal(t, "", extractRoomCodeFromPath("/api/rooms//state"))
	assert.Equal(t, "", extractRoomCodeFromPath("/api/rooms/abc123"))
	assert.Equal(t, "", extractRoomCodeFromPath("/other/abc123/state"))
}
