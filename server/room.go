package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"icefire/game"
	"icefire/levels"
	"icefire/protocol"
)

// Phase 对局阶段
type Phase int

const (
	PhaseIdle    Phase = iota // 尚未开始过对局
	PhaseRunning              // 正在推进
	PhaseEnded                // 胜利或失败，冻结状态持续广播
	PhasePaused               // 对局中有玩家断开，停止 Tick
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseEnded:
		return "ended"
	case PhasePaused:
		return "paused"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ServerSenderID 服务端发出的消息所用的 senderId
const ServerSenderID = "server"

var (
	ErrRoomClosed  = errors.New("room closed")
	ErrNoMatch     = errors.New("no match running")
	ErrBadTickRate = fmt.Errorf("tick rate must be in 1..%d", maxTickRate)
)

const (
	msgServerFull   = "Server is full, please try again later."
	msgBadHandshake = "Expected a connect message."
	msgTimedOut     = "Connection timed out."
	msgBadFrame     = "Protocol violation: invalid frame length."
)

// Room 房间世界：会话表、输入缓冲与权威 GameState 只由 Run 协程持有，
// 其他协程通过 inbox 投递命令
type Room struct {
	cfg     Config
	catalog *levels.Catalog
	metrics *RoomMetrics

	inbox chan any
	done  chan struct{}

	sessions map[string]*Session
	seats    [len(game.Roles)]*Session // 按角色索引

	state  *game.State
	phase  Phase
	inputs inputBuffer

	tickRate int
	ticker   *time.Ticker
}

// NewRoom 创建房间，初始化数据结构；调用方需启动 Run
func NewRoom(cfg Config, catalog *levels.Catalog, metrics *RoomMetrics) *Room {
	if metrics == nil {
		metrics = &RoomMetrics{}
	}
	return &Room{
		cfg:      cfg,
		catalog:  catalog,
		metrics:  metrics,
		inbox:    make(chan any, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		done:     make(chan struct{}),
		sessions: make(map[string]*Session),
		tickRate: cfg.TickRate,
	}
}

// Done Run 退出后关闭
func (r *Room) Done() <-chan struct{} { return r.done }

// 房间命令
type (
	joinCmd struct {
		conn  Conn
		hello *protocol.Connect
		reply chan joinResult
	}
	joinResult struct {
		session *Session
		reject  *protocol.ConnectResponse
	}
	leaveCmd struct {
		id     string
		reason string
	}
	inboundCmd struct {
		id  string
		msg protocol.Message
	}
	broadcastCmd struct {
		msg protocol.Message
	}
	forceExitCmd struct {
		reply chan forceExitResult
	}
	forceExitResult struct {
		outcome game.Outcome
		err     error
	}
	tickRateCmd struct {
		rate  int
		reply chan error
	}
	snapshotCmd struct {
		reply chan RoomSnapshot
	}
)

// RoomSnapshot 房间只读快照，用于管理接口与测试
type RoomSnapshot struct {
	Phase    string                 `json:"phase"`
	TickRate int                    `json:"tickRate"`
	Lobby    []protocol.LobbyPlayer `json:"players"`
	Sessions []SessionInfo          `json:"sessions"`
	State    *game.State            `json:"state,omitempty"`
}

// SessionInfo 管理接口中的会话信息
type SessionInfo struct {
	ID            string    `json:"id"`
	Role          game.Role `json:"role"`
	Remote        string    `json:"remote"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
}

func (r *Room) post(ctx context.Context, cmd any) bool {
	select {
	case r.inbox <- cmd:
		return true
	case <-r.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Join 提交握手；返回注册好的会话，或需要回给客户端的拒绝响应
func (r *Room) Join(ctx context.Context, conn Conn, hello *protocol.Connect) (*Session, *protocol.ConnectResponse, error) {
	reply := make(chan joinResult, 1)
	if !r.post(ctx, joinCmd{conn: conn, hello: hello, reply: reply}) {
		return nil, nil, ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res.session, res.reject, nil
	case <-r.done:
		return nil, nil, ErrRoomClosed
	}
}

// Remove 请求在房间协程中移除会话（幂等）
func (r *Room) Remove(id, reason string) {
	r.post(context.Background(), leaveCmd{id: id, reason: reason})
}

// Deliver 投递会话发来的消息；房间已关闭时返回 false
func (r *Room) Deliver(ctx context.Context, id string, msg protocol.Message) bool {
	return r.post(ctx, inboundCmd{id: id, msg: msg})
}

// SetReady 修改会话的准备状态，并广播大厅快照
func (r *Room) SetReady(ctx context.Context, id string, ready bool) bool {
	return r.Deliver(ctx, id, &protocol.Ready{IsReady: ready})
}

// Broadcast 将消息发送给所有在线会话
func (r *Room) Broadcast(ctx context.Context, msg protocol.Message) bool {
	return r.post(ctx, broadcastCmd{msg: msg})
}

// ForceExit 调试钩子：让双方直接到达出口
func (r *Room) ForceExit(ctx context.Context) (game.Outcome, error) {
	reply := make(chan forceExitResult, 1)
	if !r.post(ctx, forceExitCmd{reply: reply}) {
		return game.Ongoing, ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res.outcome, res.err
	case <-r.done:
		return game.Ongoing, ErrRoomClosed
	}
}

// SetTickRate 热更新 Tick 频率
func (r *Room) SetTickRate(ctx context.Context, rate int) error {
	reply := make(chan error, 1)
	if !r.post(ctx, tickRateCmd{rate: rate, reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

func (r *Room) Snapshot(ctx context.Context) (RoomSnapshot, error) {
	reply := make(chan RoomSnapshot, 1)
	if !r.post(ctx, snapshotCmd{reply: reply}) {
		return RoomSnapshot{}, ErrRoomClosed
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-r.done:
		return RoomSnapshot{}, ErrRoomClosed
	}
}

// handle 分发命令，只在 Run 协程中调用
func (r *Room) handle(cmd any) {
	switch c := cmd.(type) {
	case joinCmd:
		c.reply <- r.join(c.conn, c.hello)
	case leaveCmd:
		r.leave(c.id, c.reason)
	case inboundCmd:
		r.inbound(c.id, c.msg)
	case broadcastCmd:
		r.broadcast(c.msg)
	case forceExitCmd:
		out, err := r.forceExit()
		c.reply <- forceExitResult{outcome: out, err: err}
	case tickRateCmd:
		c.reply <- r.setTickRate(c.rate)
	case snapshotCmd:
		c.reply <- r.snapshot()
	default:
		Log.Warnf("room: unknown command %T", cmd)
	}
}

// join 分配角色并注册会话：优先请求的角色，否则另一个空位，否则拒绝
func (r *Room) join(conn Conn, hello *protocol.Connect) joinResult {
	if len(r.sessions) >= MaxSessions {
		Log.Infof("reject %s: server full", conn.RemoteAddr())
		return joinResult{reject: &protocol.ConnectResponse{
			Message:          msgServerFull,
			PlayersConnected: len(r.sessions),
		}}
	}

	role, ok := hello.PreferredRole.Role()
	if !ok {
		role = r.freeSeat()
	}
	if r.seats[role] != nil {
		role = role.Other()
	}
	name := strings.TrimSpace(hello.PlayerName)
	if name == "" {
		name = fmt.Sprintf("Player%d", len(r.sessions)+1)
	}

	s := newSession(conn, name, role, r.cfg)
	s.onDead = func(dead *Session) { r.Remove(dead.ID, "write failed") }
	r.sessions[s.ID] = s
	r.seats[role] = s
	if r.state != nil {
		r.state.Player(role).ConnectionID = s.ID
	}
	go s.writePump()

	r.metrics.IncSessionsAccepted()
	Log.Infof("player [%s] connected from %s as %s (session %s)", name, conn.RemoteAddr(), role, s.ID)

	r.sendTo(s, &protocol.ConnectResponse{
		Success:          true,
		AssignedRole:     role,
		PlayerID:         s.ID,
		Message:          fmt.Sprintf("Welcome %s! You are the %s player.", name, role),
		PlayersConnected: len(r.sessions),
	})
	r.notice(fmt.Sprintf("%s (%s) joined the game.", name, role))
	if r.phase == PhasePaused && len(r.sessions) == MaxSessions {
		r.notice("Both players are back. Send restart to resume.")
	}
	r.broadcastLobby()
	return joinResult{session: s}
}

// freeSeat 按角色顺序返回第一个空位
func (r *Room) freeSeat() game.Role {
	for _, role := range game.Roles {
		if r.seats[role] == nil {
			return role
		}
	}
	return game.Cold
}

// leave 移除会话；对局进行中则暂停
func (r *Room) leave(id, reason string) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	delete(r.sessions, id)
	r.seats[s.Role] = nil
	r.metrics.IncDisconnects()
	s.Close()
	if r.state != nil {
		r.state.Player(s.Role).ConnectionID = ""
	}
	Log.Infof("player [%s] (%s) disconnected: %s", s.Name, s.Role, reason)

	r.notice(fmt.Sprintf("%s left the game.", s.Name))
	if r.phase == PhaseRunning {
		r.phase = PhasePaused
		r.inputs.Reset()
		r.notice("Game paused: waiting for a player to reconnect.")
	}
	r.broadcastLobby()
}

// inbound 处理会话发来的消息
func (r *Room) inbound(id string, msg protocol.Message) {
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	switch m := msg.(type) {
	case *protocol.PlayerInput:
		if r.phase != PhaseRunning || m.Role != s.Role {
			r.metrics.IncInputsDropped()
			return
		}
		r.inputs.Set(s.Role, m.Actions)
		r.metrics.IncInputsAccepted()
	case *protocol.Chat:
		if strings.TrimSpace(m.Content) == "" {
			return
		}
		// 发送者信息以服务端为准
		r.broadcast(&protocol.Chat{
			Header:     protocol.Header{SenderID: s.ID},
			Content:    m.Content,
			SenderName: s.Name,
		})
	case *protocol.Ready:
		s.Ready = m.IsReady
		r.broadcastLobby()
	case *protocol.LevelSelect:
		r.selectLevel(s, m.Level)
	case *protocol.Restart:
		r.restart(s)
	case *protocol.Heartbeat:
		s.touch()
	default:
		// 未知或仅由服务端发送的消息：忽略
		Log.Debugf("ignore %s from session %s", msg.Tag(), s.ID)
	}
}

func (r *Room) bothReady() bool {
	for _, s := range r.seats {
		if s == nil || !s.Ready {
			return false
		}
	}
	return true
}

func (r *Room) selectLevel(s *Session, level int) {
	switch {
	case len(r.sessions) < MaxSessions:
		r.sendNotice(s, "Waiting for a second player.")
	case !r.bothReady():
		r.sendNotice(s, "Both players must be ready before choosing a level.")
	case !r.catalog.Has(level):
		r.sendNotice(s, fmt.Sprintf("Level %d does not exist (1-%d).", level, r.catalog.Len()))
	default:
		r.startMatch(level)
	}
}

// restart 通关后进入下一关（超过最大关卡回到第1关），否则重玩当前关
func (r *Room) restart(s *Session) {
	if len(r.sessions) < MaxSessions {
		r.sendNotice(s, "Two players are needed to start the game!")
		return
	}
	level := 1
	if r.state != nil {
		level = r.state.Level
		if r.state.Victory {
			level = r.catalog.Next(level)
		}
	}
	Log.Infof("restart requested by [%s], level %d", s.Name, level)
	r.notice("Game restarting!")
	r.startMatch(level)
}

// startMatch 生成关卡、绑定连接、清空输入并广播 game-start
func (r *Room) startMatch(level int) {
	st, err := r.catalog.GenerateLevel(level)
	if err != nil {
		Log.Errorf("generate level %d: %v", level, err)
		r.notice("Failed to load the level.")
		return
	}
	// 准备状态只对下一次选关有效，开局即清除
	for _, role := range game.Roles {
		if s := r.seats[role]; s != nil {
			st.Player(role).ConnectionID = s.ID
			s.Ready = false
		}
	}
	r.state = st
	r.inputs.Reset()
	r.phase = PhaseRunning
	Log.Infof("match started: level %d (%s)", st.Level, st.Map.Name)

	r.broadcast(&protocol.GameStart{State: st})
	r.broadcastLobby()
}

// endMatch 进入终局：记录日志并通知双方
func (r *Room) endMatch(out game.Outcome) {
	r.phase = PhaseEnded
	if out == game.Victory {
		Log.Infof("level %d cleared at tick %d", r.state.Level, r.state.Tick)
		r.notice("Congratulations! Both players reached their exits. Send restart for the next level.")
	} else {
		Log.Infof("level %d lost at tick %d: %s", r.state.Level, r.state.Tick, r.state.Message)
		r.notice("A player died! Send restart to try again.")
	}
	r.broadcastLobby()
}

// forceExit 只修改状态，终局由下一个 Tick 带着新的 Tick 编号广播并结算
func (r *Room) forceExit() (game.Outcome, error) {
	if r.phase != PhaseRunning {
		return game.Ongoing, ErrNoMatch
	}
	out := game.ForceExit(r.state)
	Log.Warnf("force exit triggered at tick %d", r.state.Tick)
	return out, nil
}

func (r *Room) setTickRate(rate int) error {
	if rate <= 0 || rate > maxTickRate {
		return ErrBadTickRate
	}
	r.tickRate = rate
	if r.ticker != nil {
		r.ticker.Reset(tickInterval(rate))
	}
	Log.Infof("tick rate updated: %d", rate)
	return nil
}

func (r *Room) lobby() []protocol.LobbyPlayer {
	players := make([]protocol.LobbyPlayer, 0, len(r.sessions))
	for _, s := range r.seats {
		if s == nil {
			continue
		}
		players = append(players, protocol.LobbyPlayer{ID: s.ID, Name: s.Name, Role: s.Role, Ready: s.Ready})
	}
	return players
}

func (r *Room) broadcastLobby() {
	r.broadcast(&protocol.LobbyState{
		PlayerCount: len(r.sessions),
		Phase:       r.phase.String(),
		Players:     r.lobby(),
	})
}

func (r *Room) snapshot() RoomSnapshot {
	snap := RoomSnapshot{
		Phase:    r.phase.String(),
		TickRate: r.tickRate,
		Lobby:    r.lobby(),
	}
	for _, s := range r.seats {
		if s == nil {
			continue
		}
		snap.Sessions = append(snap.Sessions, SessionInfo{
			ID:            s.ID,
			Role:          s.Role,
			Remote:        s.conn.RemoteAddr().String(),
			LastHeartbeat: s.LastHeartbeat(),
		})
	}
	if r.state != nil {
		snap.State = r.state.Clone()
	}
	return snap
}
