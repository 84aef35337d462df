package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount        int64 // 统计的 Tick 次数
	TotalTickNs      int64 // Tick 累计耗时（纳秒）
	InputsAccepted   int64 // 被接受的输入数
	InputsDropped    int64 // 非对局中或角色不符而丢弃的输入数
	FramesRejected   int64 // 格式错误或超长的帧
	SessionsAccepted int64
	SessionsRejected int64 // 房间已满或握手非法
	SendsDropped     int64 // 发送队列满或会话已失效
	Disconnects      int64
}

func (m *RoomMetrics) IncInputsAccepted()   { atomic.AddInt64(&m.InputsAccepted, 1) }
func (m *RoomMetrics) IncInputsDropped()    { atomic.AddInt64(&m.InputsDropped, 1) }
func (m *RoomMetrics) IncFramesRejected()   { atomic.AddInt64(&m.FramesRejected, 1) }
func (m *RoomMetrics) IncSessionsAccepted() { atomic.AddInt64(&m.SessionsAccepted, 1) }
func (m *RoomMetrics) IncSessionsRejected() { atomic.AddInt64(&m.SessionsRejected, 1) }
func (m *RoomMetrics) IncSendsDropped()     { atomic.AddInt64(&m.SendsDropped, 1) }
func (m *RoomMetrics) IncDisconnects()      { atomic.AddInt64(&m.Disconnects, 1) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":        tick,
		"avg_tick_ms":       avgMs,
		"inputs_accepted":   atomic.LoadInt64(&m.InputsAccepted),
		"inputs_dropped":    atomic.LoadInt64(&m.InputsDropped),
		"frames_rejected":   atomic.LoadInt64(&m.FramesRejected),
		"sessions_accepted": atomic.LoadInt64(&m.SessionsAccepted),
		"sessions_rejected": atomic.LoadInt64(&m.SessionsRejected),
		"sends_dropped":     atomic.LoadInt64(&m.SendsDropped),
		"disconnects":       atomic.LoadInt64(&m.Disconnects),
	}
}
