package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"icefire/protocol"
)

// Conn 会话所需的最小连接能力；*net.TCPConn 与 wsConn 均满足
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

// wsConn 将 WebSocket 二进制消息拼接为连续字节流，
// 上层照常使用 protocol.ReadFrame / WriteFrame
type wsConn struct {
	ws  *websocket.Conn
	cur io.Reader // 当前二进制消息的剩余部分

	wmu sync.Mutex
}

func newWSConn(ws *websocket.Conn) *wsConn {
	// 单条消息不会超过一帧 + 长度前缀
	ws.SetReadLimit(protocol.MaxFrameSize + 4)
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.cur == nil {
			typ, r, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if typ != websocket.BinaryMessage {
				continue // 文本消息不属于帧流，忽略
			}
			c.cur = r
		}
		n, err := c.cur.Read(p)
		if errors.Is(err, io.EOF) {
			c.cur = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

// Write 每次调用写出一条二进制消息；会话写协程每次写一整帧
func (c *wsConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error                       { return c.ws.Close() }
func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
func (c *wsConn) RemoteAddr() net.Addr               { return c.ws.RemoteAddr() }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 浏览器客户端可能来自任意来源
		return true
	},
}

// HandleWS WebSocket 接入：升级后与 TCP 连接走同一握手与读循环
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}
	// 升级后 r.Context() 不再反映连接生命周期，由房间关闭负责回收
	s.Accept(s.baseContext(), newWSConn(ws))
}
