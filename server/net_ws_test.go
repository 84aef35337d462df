package server

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"icefire/game"
	"icefire/protocol"
)

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readWS 读取下一条消息中的帧（服务端每条消息恰好一帧）
func readWS(t *testing.T, ws *websocket.Conn) protocol.Message {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	typ, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, typ)
	m, err := protocol.ReadFrame(bytes.NewReader(data))
	require.NoError(t, err)
	return m
}

func TestWebSocketHandshake(t *testing.T) {
	srv := startServer(t, testConfig())
	ws := dialWS(t, srv)

	frame, err := protocol.Frame(&protocol.Connect{PlayerName: "web", PreferredRole: protocol.Prefer(game.Hot)})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame))

	resp, ok := readWS(t, ws).(*protocol.ConnectResponse)
	require.True(t, ok)
	assert.True(t, resp.Success)
	assert.Equal(t, game.Hot, resp.AssignedRole)
}

func TestWebSocketFrameSplitAcrossMessages(t *testing.T) {
	srv := startServer(t, testConfig())
	ws := dialWS(t, srv)

	frame, err := protocol.Frame(&protocol.Connect{})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("ignored")))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame[:3]))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame[3:10]))
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame[10:]))

	resp, ok := readWS(t, ws).(*protocol.ConnectResponse)
	require.True(t, ok)
	assert.True(t, resp.Success)
	notice, ok := readWS(t, ws).(*protocol.ServerNotice)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(notice.Content, "Player1 "), notice.Content)
}

func TestWebSocketAndTCPShareRoom(t *testing.T) {
	srv := startServer(t, testConfig())
	tcp := dial(t, srv)
	require.True(t, tcp.connect("alice", game.Cold).Success)

	ws := dialWS(t, srv)
	frame, err := protocol.Frame(&protocol.Connect{PlayerName: "web", PreferredRole: protocol.Prefer(game.Cold)})
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, frame))
	resp := readWS(t, ws).(*protocol.ConnectResponse)
	assert.Equal(t, game.Hot, resp.AssignedRole)

	waitFor(t, tcp, func(l *protocol.LobbyState) bool { return l.PlayerCount == 2 })

	require.NoError(t, ws.Close())
	waitFor(t, tcp, noticeContaining("web left"))
}
