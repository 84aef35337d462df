// Package protocol 服务端与客户端共用的长度前缀帧协议
// 每帧携带一条 Message，由类型标签决定 JSON 负载解析到哪个结构体
package protocol

import (
	"encoding/json"

	"icefire/game"
)

// Tag 消息类型标签
type Tag string

const (
	TagConnect         Tag = "connect"
	TagConnectResponse Tag = "connect-response"
	TagPlayerInput     Tag = "player-input"
	TagStateUpdate     Tag = "state-update"
	TagGameStart       Tag = "game-start"
	TagChat            Tag = "chat"
	TagServerNotice    Tag = "server-notice"
	TagRestart         Tag = "restart"
	TagReady           Tag = "ready"
	TagLevelSelect     Tag = "level-select"
	TagHeartbeat       Tag = "heartbeat"
	TagLobbyState      Tag = "lobby-state"
)

// Header 所有消息都内嵌的公共头
type Header struct {
	Timestamp int64  `json:"timestamp"` // unix 毫秒
	SenderID  string `json:"senderId,omitempty"`
}

func (h *Header) Head() *Header { return h }

// Message 下列负载结构体之一
type Message interface {
	Tag() Tag
	Head() *Header
}

type Connect struct {
	Header
	PlayerName    string    `json:"playerName"`
	PreferredRole RolePreference `json:"preferredRole"`
}

// RolePreference 握手时请求的角色；空串、未知名称或其他取值都表示“任意空位”
type RolePreference string

// Prefer 请求指定角色
func Prefer(r game.Role) RolePreference { return RolePreference(r.String()) }

// UnmarshalJSON 接受任意 JSON 值：字符串原样保留，数字 0/1 按枚举值解释，其余视为任意
func (p *RolePreference) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = RolePreference(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*p = RolePreference(n.String())
		return nil
	}
	*p = ""
	return nil
}

// Role 解析偏好；ok 为 false 时由服务端分配空位
func (p RolePreference) Role() (game.Role, bool) {
	switch p {
	case "0":
		return game.Cold, true
	case "1":
		return game.Hot, true
	}
	r, err := game.ParseRole(string(p))
	return r, err == nil
}

type ConnectResponse struct {
	Header
	Success          bool      `json:"success"`
	AssignedRole     game.Role `json:"assignedRole"`
	PlayerID         string    `json:"playerId"`
	Message          string    `json:"message"`
	PlayersConnected int       `json:"playersConnected"`
}

type PlayerInput struct {
	Header
	Role    game.Role   `json:"role"`
	Actions game.Action `json:"actionBits"`
}

type StateUpdate struct {
	Header
	State *game.State `json:"state"`
}

type GameStart struct {
	Header
	State *game.State `json:"state"`
}

type Chat struct {
	Header
	Content    string `json:"content"`
	SenderName string `json:"senderName"`
}

type ServerNotice struct {
	Header
	Content string `json:"content"`
}

type Restart struct{ Header }

type Ready struct {
	Header
	IsReady bool `json:"isReady"`
}

type LevelSelect struct {
	Header
	Level int `json:"level"`
}

type Heartbeat struct{ Header }

// LobbyPlayer 大厅中的一个座位
type LobbyPlayer struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Role  game.Role `json:"role"`
	Ready bool      `json:"ready"`
}

// LobbyState 会话加入、离开或准备状态变化时推送
type LobbyState struct {
	Header
	PlayerCount int           `json:"playerCount"`
	Phase       string        `json:"phase"`
	Players     []LobbyPlayer `json:"players"`
}

// Unknown 未识别标签的帧解码结果，接收方忽略
type Unknown struct {
	Header
	Name string `json:"-"`
}

func (*Connect) Tag() Tag         { return TagConnect }
func (*ConnectResponse) Tag() Tag { return TagConnectResponse }
func (*PlayerInput) Tag() Tag     { return TagPlayerInput }
func (*StateUpdate) Tag() Tag     { return TagStateUpdate }
func (*GameStart) Tag() Tag       { return TagGameStart }
func (*Chat) Tag() Tag            { return TagChat }
func (*ServerNotice) Tag() Tag    { return TagServerNotice }
func (*Restart) Tag() Tag         { return TagRestart }
func (*Ready) Tag() Tag           { return TagReady }
func (*LevelSelect) Tag() Tag     { return TagLevelSelect }
func (*Heartbeat) Tag() Tag       { return TagHeartbeat }
func (*LobbyState) Tag() Tag      { return TagLobbyState }
func (u *Unknown) Tag() Tag       { return Tag(u.Name) }

var registry = map[Tag]func() Message{
	TagConnect:         func() Message { return &Connect{} },
	TagConnectResponse: func() Message { return &ConnectResponse{} },
	TagPlayerInput:     func() Message { return &PlayerInput{} },
	TagStateUpdate:     func() Message { return &StateUpdate{} },
	TagGameStart:       func() Message { return &GameStart{} },
	TagChat:            func() Message { return &Chat{} },
	TagServerNotice:    func() Message { return &ServerNotice{} },
	TagRestart:         func() Message { return &Restart{} },
	TagReady:           func() Message { return &Ready{} },
	TagLevelSelect:     func() Message { return &LevelSelect{} },
	TagHeartbeat:       func() Message { return &Heartbeat{} },
	TagLobbyState:      func() Message { return &LobbyState{} },
}

// Tags 返回所有已知标签（供 schema 生成器使用）
func Tags() []Tag {
	out := make([]Tag, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}

// New 按标签创建空消息；未知标签返回 false
func New(t Tag) (Message, bool) {
	f, ok := registry[t]
	if !ok {
		return nil, false
	}
	return f(), true
}
