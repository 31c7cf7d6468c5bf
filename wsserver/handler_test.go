package wsserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pongd/report"
	"pongd/room"
)

func newTestServer(t *testing.T) (*httptest.Server, *room.Registry) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := room.NewRegistry(report.Nop{}, logger)
	srv := httptest.NewServer(New(registry, logger).Routes())
	t.Cleanup(srv.Close)
	return srv, registry
}

func createMatch(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/match", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateMatch(t *testing.T) {
	srv, registry := newTestServer(t)

	resp := createMatch(t, srv, `{
		"roomId": "room-1",
		"player1": {"id": "p1", "name": "Alice", "skill": "smash"},
		"player2": {"id": "p2", "name": "Bob", "skill": "dash"}
	}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "room-1", out["roomId"])
	assert.Equal(t, 1, registry.Len())
}

func TestCreateMatchGeneratesRoomID(t *testing.T) {
	srv, registry := newTestServer(t)

	resp := createMatch(t, srv, `{
		"player1": {"id": "p1"},
		"player2": {"id": "p2"}
	}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out["roomId"])

	_, err := registry.Get(out["roomId"])
	assert.NoError(t, err)
}

func TestCreateMatchRequiresBothPlayers(t *testing.T) {
	srv, registry := newTestServer(t)

	resp := createMatch(t, srv, `{"player1": {"id": "p1"}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, registry.Len())
}

func TestCreateMatchRejectsMalformedBody(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := createMatch(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateMatchConflictsOnDuplicateRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"roomId": "room-1", "player1": {"id": "p1"}, "player2": {"id": "p2"}}`

	resp := createMatch(t, srv, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = createMatch(t, srv, body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeleteMatch(t *testing.T) {
	srv, registry := newTestServer(t)
	createMatch(t, srv, `{"roomId": "room-1", "player1": {"id": "p1"}, "player2": {"id": "p2"}}`)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/match/room-1", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, registry.Len())
}

func TestDeleteUnknownMatch(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/match/ghost", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketRejectsUnknownRoom(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/ghost"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketIdentifyReceivesWelcome(t *testing.T) {
	srv, _ := newTestServer(t)
	createMatch(t, srv, `{"roomId": "room-1", "player1": {"id": "p1", "name": "Alice"}, "player2": {"id": "p2", "name": "Bob"}}`)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/room-1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "identify", "playerId": "p1"}))

	// State frames stream continuously; scan until the welcome arrives.
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] != "welcome" {
			continue
		}
		assert.Equal(t, "left", msg["side"])
		return
	}
}
