package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icefire/protocol"
)

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := startServer(t, testConfig())
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAdminConfigTickRate(t *testing.T) {
	srv := startServer(t, testConfig())
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/admin/config", `{"tickRate":60}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/admin/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.EqualValues(t, 60, got["tickRate"])
	assert.EqualValues(t, 5, got["levels"])

	rec = doRequest(t, h, http.MethodPost, "/admin/config", `{"tickRate":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, h, http.MethodPost, "/admin/config", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(t, h, http.MethodDelete, "/admin/config", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminState(t *testing.T) {
	srv := startServer(t, testConfig())
	pair(t, srv)

	rec := doRequest(t, srv.Handler(), http.MethodGet, "/admin/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "idle", snap.Phase)
	require.Len(t, snap.Lobby, 2)
	assert.Equal(t, "alice", snap.Lobby[0].Name)
	assert.Nil(t, snap.State)
}

func TestAdminCheatDisabled(t *testing.T) {
	srv := startServer(t, testConfig())
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/admin/cheat", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCheatForcesVictory(t *testing.T) {
	cfg := testConfig()
	cfg.Debug.EnableCheats = true
	srv := startServer(t, cfg)
	h := srv.Handler()

	rec := doRequest(t, h, http.MethodPost, "/admin/cheat", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "no match running")

	a, b := pair(t, srv)
	startMatch(t, a, b, 1)
	rec = doRequest(t, h, http.MethodPost, "/admin/cheat", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"outcome":"victory"}`, rec.Body.String())
	waitFor(t, b, func(u *protocol.StateUpdate) bool { return u.State.Victory })

	rec = doRequest(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Phase   string             `json:"phase"`
		Level   int                `json:"level"`
		Metrics map[string]float64 `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ended", got.Phase)
	assert.Equal(t, 1, got.Level)
	assert.EqualValues(t, 2, got.Metrics["sessions_accepted"])
}
