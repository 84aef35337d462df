package game

import (
	"fmt"
	"strings"
)

// Role 两种固定的玩家身份
type Role uint8

const (
	Cold Role = iota // 冰人
	Hot              // 火人
)

// Roles 按 Tick 处理顺序列出所有角色
var Roles = [...]Role{Cold, Hot}

func (r Role) String() string {
	switch r {
	case Cold:
		return "cold"
	case Hot:
		return "hot"
	}
	return fmt.Sprintf("role(%d)", uint8(r))
}

func (r Role) Valid() bool { return r == Cold || r == Hot }

// Other 返回另一个角色
func (r Role) Other() Role {
	if r == Cold {
		return Hot
	}
	return Cold
}

// Gem 该角色可收集的宝石瓦片
func (r Role) Gem() Tile {
	if r == Cold {
		return TileColdGem
	}
	return TileHotGem
}

// Exit 该角色需要到达的出口瓦片
func (r Role) Exit() Tile {
	if r == Cold {
		return TileColdExit
	}
	return TileHotExit
}

// ParseRole 接受协议中的名称，以及 ice/fire 别名
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cold", "ice":
		return Cold, nil
	case "hot", "fire":
		return Hot, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
