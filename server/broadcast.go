package server

import (
	"icefire/protocol"
)

// broadcast 编码一次，压入每个在线会话的发送队列（非阻塞）
func (r *Room) broadcast(m protocol.Message) {
	if m.Head().SenderID == "" {
		m.Head().SenderID = ServerSenderID
	}
	frame, err := protocol.Frame(m)
	if err != nil {
		Log.Errorf("encode %s: %v", m.Tag(), err)
		return
	}
	for _, s := range r.sessions {
		if !s.Enqueue(frame) {
			r.metrics.IncSendsDropped()
		}
	}
}

// sendTo 只发给单个会话
func (r *Room) sendTo(s *Session, m protocol.Message) {
	if m.Head().SenderID == "" {
		m.Head().SenderID = ServerSenderID
	}
	frame, err := protocol.Frame(m)
	if err != nil {
		Log.Errorf("encode %s: %v", m.Tag(), err)
		return
	}
	if !s.Enqueue(frame) {
		r.metrics.IncSendsDropped()
	}
}

// notice 广播一条服务端通知
func (r *Room) notice(text string) {
	r.broadcast(&protocol.ServerNotice{Content: text})
}

func (r *Room) sendNotice(s *Session, text string) {
	r.sendTo(s, &protocol.ServerNotice{Content: text})
}
