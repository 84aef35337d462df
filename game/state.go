package game

// Player 单个角色的权威状态，对局中只由本包的物理与规则函数修改
type Player struct {
	Role         Role    `json:"role"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	VX           float64 `json:"vx"`
	VY           float64 `json:"vy"`
	Grounded     bool    `json:"grounded"`
	Alive        bool    `json:"alive"`
	ExitReached  bool    `json:"exitReached"`
	Gems         int     `json:"gemsCollected"`
	ConnectionID string  `json:"connectionId,omitempty"`
}

func NewPlayer(r Role, x, y float64) Player {
	return Player{Role: r, X: x, Y: y, Alive: true}
}

// Active 玩家是否仍可移动、可受伤
func (p Player) Active() bool { return p.Alive && !p.ExitReached }

// Center 碰撞盒中心点
func (p Player) Center() (float64, float64) {
	return p.X + PlayerWidth/2, p.Y + PlayerHeight/2
}

// State 对局唯一的权威状态
type State struct {
	Cold     Player `json:"coldPlayer"`
	Hot      Player `json:"hotPlayer"`
	Map      *Map   `json:"map"`
	GameOver bool   `json:"gameOver"`
	Victory  bool   `json:"victory"`
	Message  string `json:"message"`
	Level    int    `json:"currentLevel"`
	Tick     uint64 `json:"gameTick"`
}

// Player 返回角色 r 的状态
func (s *State) Player(r Role) *Player {
	if r == Hot {
		return &s.Hot
	}
	return &s.Cold
}

func (s *State) BothExited() bool { return s.Cold.ExitReached && s.Hot.ExitReached }

func (s *State) AnyDead() bool { return !s.Cold.Alive || !s.Hot.Alive }

// Clone 深拷贝，可交给其他协程
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Map = s.Map.Clone()
	return &c
}
