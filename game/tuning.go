package game

// 物理参数，单位为格、格/Tick
const (
	Gravity         = 0.25
	MoveSpeed       = 0.35
	JumpImpulse     = -0.9 // 负数向上
	MaxFallSpeed    = 1.0
	Friction        = 0.7
	VelocityEpsilon = 0.1

	PlayerWidth  = 1.0
	PlayerHeight = 1.0
	EdgeInset    = 0.1 // 右/下边缘内缩，贴着格子边界时不算碰到下一格
	LandingStep  = 0.1
	GroundProbe  = 0.1

	PickupRange = 1.0 // 中心到中心，两个轴都严格小于
)
