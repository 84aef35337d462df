package server

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"icefire/game"
	"icefire/levels"
	"icefire/protocol"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TickRate = 100
	cfg.HeartbeatInterval = time.Hour
	cfg.ConnectionTimeout = 5 * time.Second
	cfg.WriteTimeout = time.Second
	cfg.SendQueue = 256
	cfg.AdminAddr = ""
	return cfg
}

func testCatalog(t *testing.T) *levels.Catalog {
	t.Helper()
	catalog, err := levels.Builtin()
	require.NoError(t, err)
	return catalog
}

// startServer 启动房间协程（不监听端口），测试结束时关闭
func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv := New(cfg, testCatalog(t))
	ctx, cancel := context.WithCancel(context.Background())
	go srv.room.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-srv.room.Done()
	})
	return srv
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	msgs chan protocol.Message
}

// dial 通过 net.Pipe 接入服务端，后台持续读取所有下行消息
func dial(t *testing.T, srv *Server) *testClient {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	go srv.Accept(context.Background(), serverSide)
	c := &testClient{t: t, conn: clientSide, msgs: make(chan protocol.Message, 4096)}
	go c.readAll()
	t.Cleanup(func() { _ = clientSide.Close() })
	return c
}

func (c *testClient) readAll() {
	defer close(c.msgs)
	for {
		m, err := protocol.ReadFrame(c.conn)
		if err != nil {
			if protocol.Fatal(err) {
				return
			}
			continue
		}
		c.msgs <- m
	}
}

func (c *testClient) send(m protocol.Message) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	require.NoError(c.t, protocol.WriteFrame(c.conn, m))
}

func (c *testClient) sendRaw(b []byte) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	_, err := c.conn.Write(b)
	require.NoError(c.t, err)
}

func (c *testClient) connect(name string, role game.Role) *protocol.ConnectResponse {
	c.t.Helper()
	c.send(&protocol.Connect{PlayerName: name, PreferredRole: protocol.Prefer(role)})
	return waitFor[*protocol.ConnectResponse](c.t, c, nil)
}

// waitFor 跳过其他消息，直到收到满足条件的 T
func waitFor[T protocol.Message](t *testing.T, c *testClient, match func(T) bool) T {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m, ok := <-c.msgs:
			if !ok {
				var zero T
				t.Fatalf("connection closed while waiting for %T", zero)
				return zero
			}
			if v, ok := m.(T); ok && (match == nil || match(v)) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

// waitClosed 等待服务端关闭连接
func waitClosed(t *testing.T, c *testClient) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-c.msgs:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("connection was not closed")
		}
	}
}

func noticeContaining(sub string) func(*protocol.ServerNotice) bool {
	return func(n *protocol.ServerNotice) bool { return strings.Contains(n.Content, sub) }
}

// rawFrame 手工拼装一帧，便于构造非法内容
func rawFrame(tag, body string) []byte {
	rec := binary.LittleEndian.AppendUint32(nil, uint32(len(tag)))
	rec = append(rec, tag...)
	rec = binary.LittleEndian.AppendUint32(rec, uint32(len(body)))
	rec = append(rec, body...)
	frame := binary.LittleEndian.AppendUint32(nil, uint32(len(rec)))
	return append(frame, rec...)
}

// pair 两名玩家完成握手并都看到满员的大厅
func pair(t *testing.T, srv *Server) (cold, hot *testClient) {
	t.Helper()
	cold = dial(t, srv)
	require.True(t, cold.connect("alice", game.Cold).Success)
	hot = dial(t, srv)
	require.True(t, hot.connect("bob", game.Hot).Success)
	waitFor(t, cold, func(l *protocol.LobbyState) bool { return l.PlayerCount == 2 })
	waitFor(t, hot, func(l *protocol.LobbyState) bool { return l.PlayerCount == 2 })
	return cold, hot
}

// startMatch 双方准备后选择关卡，返回双方收到的 game-start
func startMatch(t *testing.T, cold, hot *testClient, level int) (*protocol.GameStart, *protocol.GameStart) {
	t.Helper()
	cold.send(&protocol.Ready{IsReady: true})
	hot.send(&protocol.Ready{IsReady: true})
	bothReady := func(l *protocol.LobbyState) bool {
		return len(l.Players) == 2 && l.Players[0].Ready && l.Players[1].Ready
	}
	waitFor(t, cold, bothReady)
	waitFor(t, hot, bothReady)
	cold.send(&protocol.LevelSelect{Level: level})
	return waitFor[*protocol.GameStart](t, cold, nil), waitFor[*protocol.GameStart](t, hot, nil)
}

// stubConn 内存连接：记录写入，可注入写错误
type stubConn struct {
	mu       sync.Mutex
	writes   [][]byte
	closed   bool
	writeErr error
}

func (c *stubConn) Read([]byte) (int, error) { return 0, errors.New("stub: no reads") }

func (c *stubConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

func (c *stubConn) SetReadDeadline(time.Time) error  { return nil }
func (c *stubConn) SetWriteDeadline(time.Time) error { return nil }
func (c *stubConn) RemoteAddr() net.Addr             { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1} }
