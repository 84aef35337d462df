package server

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"icefire/game"
)

// Session 一个已完成握手的客户端连接
// ID/Name/Role 创建后不变；Ready 只由房间协程读写
type Session struct {
	ID   string
	Name string
	Role game.Role

	Ready bool

	conn         Conn
	send         chan []byte
	done         chan struct{}
	writeTimeout time.Duration

	alive         atomic.Bool
	lastHeartbeat atomic.Int64 // unix 毫秒
	closeOnce     sync.Once

	// onDead 写失败时回调（通知房间移除），只调用一次
	onDead   func(*Session)
	deadOnce sync.Once
}

// newSessionID 生成不带连字符的 UUID
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newSession(conn Conn, name string, role game.Role, cfg Config) *Session {
	s := &Session{
		ID:           newSessionID(),
		Name:         name,
		Role:         role,
		conn:         conn,
		send:         make(chan []byte, cfg.SendQueue),
		done:         make(chan struct{}),
		writeTimeout: cfg.WriteTimeout,
	}
	s.alive.Store(true)
	s.touch()
	return s
}

// Alive 会话是否仍可发送
func (s *Session) Alive() bool { return s.alive.Load() }

// LastHeartbeat 最近一次收到心跳的时间
func (s *Session) LastHeartbeat() time.Time {
	return time.UnixMilli(s.lastHeartbeat.Load())
}

func (s *Session) touch() { s.lastHeartbeat.Store(time.Now().UnixMilli()) }

// Enqueue 将已编码的帧压入发送队列（非阻塞，满则丢弃）
func (s *Session) Enqueue(frame []byte) bool {
	if !s.alive.Load() {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		// 为了实时性，丢弃该帧（防止阻塞 Tick）
		return false
	}
}

// Close 停止发送并关闭连接；队列中剩余的帧会先尽量写出
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
	})
}

// writePump 独立协程，负责从 send 队列写出到连接
func (s *Session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case frame := <-s.send:
			if !s.write(frame) {
				return
			}
		case <-s.done:
			s.flush()
			return
		}
	}
}

// flush 关闭前写出队列中剩余的帧（例如关服通知）
func (s *Session) flush() {
	for {
		select {
		case frame := <-s.send:
			if !s.write(frame) {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) write(frame []byte) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	if _, err := s.conn.Write(frame); err != nil {
		Log.Warnf("write to session %s (%s) failed: %v", s.ID, s.Role, err)
		s.alive.Store(false)
		s.deadOnce.Do(func() {
			if s.onDead != nil {
				s.onDead(s)
			}
		})
		return false
	}
	return true
}
