package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"icefire/levels"
	"icefire/protocol"
)

// Server 管理监听、握手与每连接的读协程；世界状态交给 Room
type Server struct {
	cfg     Config
	catalog *levels.Catalog
	metrics *RoomMetrics
	room    *Room

	ctx atomic.Pointer[context.Context]
	wg  sync.WaitGroup
}

func New(cfg Config, catalog *levels.Catalog) *Server {
	metrics := &RoomMetrics{}
	return &Server{
		cfg:     cfg,
		catalog: catalog,
		metrics: metrics,
		room:    NewRoom(cfg, catalog, metrics),
	}
}

func (s *Server) Room() *Room            { return s.room }
func (s *Server) Metrics() *RoomMetrics { return s.metrics }

func (s *Server) baseContext() context.Context {
	if ctx := s.ctx.Load(); ctx != nil {
		return *ctx
	}
	return context.Background()
}

// ListenAndServe 启动 TCP 监听与管理 HTTP 服务，阻塞直到 ctx 取消
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	var admin *http.Server
	if s.cfg.AdminAddr != "" {
		admin = &http.Server{Addr: s.cfg.AdminAddr, Handler: s.Handler()}
		go func() {
			Log.Infof("admin listening on %s", s.cfg.AdminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Log.Errorf("admin listen: %v", err)
			}
		}()
	}

	err = s.Serve(ctx, ln)

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, admin.Shutdown(shutdownCtx))
	}
	return err
}

// Serve 启动房间并在 ln 上接受连接，直到 ctx 取消；返回前等待所有连接协程退出
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.ctx.Store(&ctx)
	go s.room.Run(ctx)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	Log.Infof("icefire listening on %s", ln.Addr())
	var err error
	for {
		conn, aerr := ln.Accept()
		if aerr != nil {
			if ctx.Err() == nil {
				var ne net.Error
				if errors.As(aerr, &ne) && ne.Timeout() {
					continue
				}
				err = fmt.Errorf("accept: %w", aerr)
			}
			break
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Accept(ctx, conn)
		}()
	}

	if err != nil {
		return err
	}
	<-s.room.Done()
	s.wg.Wait()
	return closeListener(ln)
}

func closeListener(ln net.Listener) error {
	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Accept 处理一个新连接：限时读取握手，交给房间分配角色，然后进入读循环
// 返回时连接已关闭（或已交给会话写协程关闭）
func (s *Server) Accept(ctx context.Context, conn Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ConnectionTimeout))
	msg, err := protocol.ReadFrame(conn)
	if err != nil {
		Log.Infof("handshake from %s failed: %v", conn.RemoteAddr(), err)
		if errors.Is(err, protocol.ErrMalformedFrame) {
			s.reject(conn, &protocol.ConnectResponse{Message: msgBadHandshake})
			return
		}
		_ = conn.Close()
		return
	}
	hello, ok := msg.(*protocol.Connect)
	if !ok {
		Log.Infof("handshake from %s: unexpected %s", conn.RemoteAddr(), msg.Tag())
		s.reject(conn, &protocol.ConnectResponse{Message: msgBadHandshake})
		return
	}

	sess, rejection, err := s.room.Join(ctx, conn, hello)
	if err != nil {
		_ = conn.Close()
		return
	}
	if rejection != nil {
		s.reject(conn, rejection)
		return
	}
	s.readLoop(ctx, sess)
}

// reject 先写出拒绝响应再关闭连接
func (s *Server) reject(conn Conn, resp *protocol.ConnectResponse) {
	s.metrics.IncSessionsRejected()
	resp.Success = false
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := protocol.WriteFrame(conn, resp); err != nil {
		Log.Debugf("write rejection to %s: %v", conn.RemoteAddr(), err)
	}
	_ = conn.Close()
}

// readLoop 读取会话消息并投递给房间；格式错误的帧丢弃后继续读
// 超过 ConnectionTimeout 没有任何数据（包括心跳）视为断开
func (s *Server) readLoop(ctx context.Context, sess *Session) {
	reason := "disconnected"
	defer func() { s.room.Remove(sess.ID, reason) }()
	for {
		_ = sess.conn.SetReadDeadline(time.Now().Add(s.cfg.ConnectionTimeout))
		msg, err := protocol.ReadFrame(sess.conn)
		if err != nil {
			if !protocol.Fatal(err) {
				s.metrics.IncFramesRejected()
				Log.Debugf("drop frame from session %s: %v", sess.ID, err)
				continue
			}
			// 非传输故障时先告知原因，关闭会话时发送队列会被冲刷
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				reason = "timed out"
				s.notify(sess, msgTimedOut)
			case errors.Is(err, protocol.ErrFrameLength):
				s.metrics.IncFramesRejected()
				reason = "protocol violation"
				s.notify(sess, msgBadFrame)
			}
			Log.Infof("session %s read ended: %v", sess.ID, err)
			return
		}
		if !s.room.Deliver(ctx, sess.ID, msg) {
			return
		}
	}
}

// notify 绕过房间直接压入单个会话的发送队列
func (s *Server) notify(sess *Session, text string) {
	frame, err := protocol.Frame(&protocol.ServerNotice{
		Header:  protocol.Header{SenderID: ServerSenderID},
		Content: text,
	})
	if err != nil {
		Log.Errorf("encode notice: %v", err)
		return
	}
	if !sess.Enqueue(frame) {
		s.metrics.IncSendsDropped()
	}
}
