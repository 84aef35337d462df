package game

// Action 客户端每帧发送的输入位掩码
type Action uint8

const (
	MoveLeft  Action = 1 << iota // 1
	MoveRight                    // 2
	Jump                         // 4
	Use                          // 8，预留给按钮
)

func (a Action) Has(b Action) bool { return a&b != 0 }

// Inputs 一个 Tick 的输入，按 Role 索引
type Inputs [len(Roles)]Action
