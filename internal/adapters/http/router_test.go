package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Poker/internal/adapters/signal"
	"github.com/dkeye/Poker/internal/app"
	"github.com/dkeye/Poker/internal/app/orch"
	"github.com/dkeye/Poker/internal/config"
	"github.com/dkeye/Poker/internal/domain"
)

func newRouter(t *testing.T, maxRooms int) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bus := app.NewBus(0, nil)
	presence := app.NewPresenceSet()
	rooms := app.NewRoomManager(context.Background(), app.ManagerOptions{MaxRooms: maxRooms, Bus: bus, Presence: presence})
	t.Cleanup(rooms.Shutdown)

	o := orch.New(rooms)
	ctl := signal.NewSignalWSController(o, bus, presence, signal.Options{})
	cfg := &config.Config{Mode: "test", StaticPath: t.TempDir(), Secret: "test-secret"}
	return SetupRouter(context.Background(), cfg, o, ctl), o
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateRoomByID(t *testing.T) {
	r, o := newRouter(t, 10)

	w := do(r, http.MethodPost, "/api/rooms", `{"id":"sprint-42"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", decode(t, w)["result"])
	assert.True(t, o.RoomExists("sprint-42"))

	w = do(r, http.MethodPost, "/api/rooms", `{"id":"sprint-42"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "already_exists", decode(t, w)["result"])

	w = do(r, http.MethodPost, "/api/rooms", `{"id":"no spaces!"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRoomGeneratesID(t *testing.T) {
	r, o := newRouter(t, 10)

	w := do(r, http.MethodPost, "/api/rooms", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["id"].(string)
	assert.Len(t, id, 8)
	assert.True(t, o.RoomExists(domain.RoomID(id)))
}

func TestCreateRoomCap(t *testing.T) {
	r, _ := newRouter(t, 1)

	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/rooms", `{"id":"a"}`).Code)
	w := do(r, http.MethodPost, "/api/rooms", `{"id":"b"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "too_many_rooms", decode(t, w)["error"])
}

func TestListAndState(t *testing.T) {
	r, o := newRouter(t, 10)
	ctx := context.Background()

	_, err := o.Join(ctx, "r1", "a", "Ann", domain.Participant, nil)
	require.NoError(t, err)
	_, err = o.Vote(ctx, "r1", "a", "8")
	require.NoError(t, err)

	w := do(r, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["count"])
	rooms := body["rooms"].([]any)
	require.Len(t, rooms, 1)
	assert.EqualValues(t, 1, rooms[0].(map[string]any)["player_count"])

	w = do(r, http.MethodGet, "/api/rooms/r1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var view signal.RoomView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Players, 1)
	assert.True(t, view.Players[0].Voted)
	assert.Equal(t, domain.NoVote, view.Players[0].Vote, "hidden from a stranger")

	w = do(r, http.MethodGet, "/api/rooms/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "room_not_found", decode(t, w)["error"])
}

func TestPresets(t *testing.T) {
	r, _ := newRouter(t, 10)

	w := do(r, http.MethodGet, "/api/presets", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, domain.DefaultPreset, body["default"])
	presets := body["presets"].(map[string]any)
	for _, name := range domain.Presets() {
		assert.Contains(t, presets, name)
	}
}

func TestSessionCookieIssued(t *testing.T) {
	r, _ := newRouter(t, 10)

	w := do(r, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), sessionName+"=")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newRouter(t, 10)
	require.Equal(t, http.StatusCreated, do(r, http.MethodPost, "/api/rooms", `{"id":"m"}`).Code)

	w := do(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "poker_rooms_created_total")
}
