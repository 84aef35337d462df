package server

import "icefire/game"

// inputBuffer 每个角色只保留最近一次输入（后到覆盖先到），
// 每个 Tick 消费一次后清零；只由房间协程访问
type inputBuffer struct {
	latest game.Inputs
}

func (b *inputBuffer) Set(r game.Role, a game.Action) { b.latest[r] = a }

// Take 取出本 Tick 的输入并清空缓冲
func (b *inputBuffer) Take() game.Inputs {
	in := b.latest
	b.latest = game.Inputs{}
	return in
}

func (b *inputBuffer) Reset() { b.latest = game.Inputs{} }
