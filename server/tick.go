package server

import (
	"context"
	"runtime/debug"
	"time"

	"icefire/game"
	"icefire/protocol"
)

// Run 房间主循环：处理命令、按 Tick 推进世界、定时发送心跳
// ctx 取消后通知并关闭所有会话，然后返回
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)

	r.ticker = time.NewTicker(tickInterval(r.tickRate))
	defer r.ticker.Stop()
	heartbeat := time.NewTicker(r.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	Log.Infof("room running at %d TPS", r.tickRate)
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return
		case cmd := <-r.inbox:
			r.handle(cmd)
		case <-r.ticker.C:
			r.safeTick()
		case <-heartbeat.C:
			r.broadcast(&protocol.Heartbeat{})
		}
	}
}

// safeTick 单个 Tick 的 panic 不应终止房间
func (r *Room) safeTick() {
	defer func() {
		if rec := recover(); rec != nil {
			Log.Errorf("tick panic: %v\n%s", rec, debug.Stack())
		}
	}()
	r.tick()
}

// tick 核心循环：取输入 → 推进世界 → 广播结果
func (r *Room) tick() {
	switch r.phase {
	case PhaseRunning:
		start := time.Now()
		out := game.Advance(r.state, r.inputs.Take())
		r.state.Tick++
		r.broadcast(&protocol.StateUpdate{State: r.state})
		r.metrics.AddTick(time.Since(start).Nanoseconds())
		if out != game.Ongoing {
			r.endMatch(out)
		}
	case PhaseEnded:
		// 终局后冻结，持续广播直到重新开始
		r.broadcast(&protocol.StateUpdate{State: r.state})
	}
}

func (r *Room) shutdown() {
	Log.Infof("room shutting down, closing %d sessions", len(r.sessions))
	r.notice("Server is shutting down.")
	for id, s := range r.sessions {
		s.Close()
		delete(r.sessions, id)
	}
	r.seats = [len(game.Roles)]*Session{}
}
