package game

import "math"

// Outcome 对局结果
type Outcome int

const (
	Ongoing Outcome = iota
	Victory
	Defeat
)

func (o Outcome) String() string {
	switch o {
	case Victory:
		return "victory"
	case Defeat:
		return "defeat"
	}
	return "ongoing"
}

const VictoryMessage = "Both players reached their exits!"

func centerCell(p *Player) (int, int) {
	cx, cy := p.Center()
	return int(math.Floor(cx)), int(math.Floor(cy))
}

func roleTitle(r Role) string {
	if r == Hot {
		return "Hot"
	}
	return "Cold"
}

// hazardDeath 瓦片 t 对角色 r 致命时返回提示信息
func hazardDeath(r Role, t Tile) (string, bool) {
	switch {
	case t == TileWater:
		return roleTitle(r) + " fell into the water!", true
	case r == Cold && t == TileFire:
		return "Cold melted in the fire!", true
	case r == Hot && t == TileIce:
		return "Hot froze on the ice!", true
	}
	return "", false
}

// ApplyHazards 中心所在格子对其致命的玩家死亡
func ApplyHazards(s *State) {
	for _, r := range Roles {
		p := s.Player(r)
		if !p.Active() {
			continue
		}
		if msg, dead := hazardDeath(r, s.Map.At(centerCell(p))); dead {
			p.Alive = false
			s.Message = msg
		}
	}
}

// ApplyExits 站在自己出口上的玩家标记为已到达
func ApplyExits(s *State) {
	for _, r := range Roles {
		p := s.Player(r)
		if !p.Active() {
			continue
		}
		if s.Map.At(centerCell(p)) == r.Exit() {
			p.ExitReached = true
		}
	}
}

// ApplyPickups 玩家中心与宝石格中心在两个轴上的距离都小于 PickupRange 时收集
func ApplyPickups(s *State) {
	for i := range s.Map.Gems {
		g := &s.Map.Gems[i]
		if g.Collected {
			continue
		}
		p := s.Player(g.Role)
		px, py := p.Center()
		gx, gy := float64(g.X)+0.5, float64(g.Y)+0.5
		if math.Abs(px-gx) < PickupRange && math.Abs(py-gy) < PickupRange {
			g.Collected = true
			p.Gems++
			s.Map.Set(g.X, g.Y, TileEmpty)
		}
	}
}

// CheckTerminal 判定 GameOver/Victory：先判胜利，死亡覆盖胜利
func CheckTerminal(s *State) Outcome {
	if !s.GameOver {
		if s.BothExited() {
			s.GameOver = true
			s.Victory = true
			s.Message = VictoryMessage
		}
		if s.AnyDead() {
			s.GameOver = true
			s.Victory = false
		}
	}
	return outcome(s)
}

func outcome(s *State) Outcome {
	switch {
	case !s.GameOver:
		return Ongoing
	case s.Victory:
		return Victory
	}
	return Defeat
}

// ForceExit 调试钩子：双方直接到达出口并重新判定终局
func ForceExit(s *State) Outcome {
	if s.GameOver {
		return outcome(s)
	}
	s.Cold.ExitReached = true
	s.Hot.ExitReached = true
	return CheckTerminal(s)
}

// Advance 推进一步：双方物理 → 危险区 → 出口 → 宝石 → 终局判定
// 终局状态不再变化；Tick 计数由调用方维护
func Advance(s *State, in Inputs) Outcome {
	if s.GameOver {
		return outcome(s)
	}
	for _, r := range Roles {
		p := s.Player(r)
		*p = Step(*p, in[r], s.Map)
	}
	ApplyHazards(s)
	ApplyExits(s)
	ApplyPickups(s)
	return CheckTerminal(s)
}
