package game

import "math"

// Blocked 左上角位于 (x, y) 的玩家碰撞盒是否与实心瓦片重叠
func Blocked(m *Map, x, y float64) bool {
	left := int(math.Floor(x))
	right := int(math.Floor(x + PlayerWidth - EdgeInset))
	top := int(math.Floor(y))
	bottom := int(math.Floor(y + PlayerHeight - EdgeInset))
	for cy := top; cy <= bottom; cy++ {
		for cx := left; cx <= right; cx++ {
			if m.At(cx, cy).Solid() {
				return true
			}
		}
	}
	return false
}

// Step 将单个玩家推进一个 Tick（纯函数）
// 危险区、宝石与出口由规则处理，这里只管移动与碰撞
func Step(p Player, in Action, m *Map) Player {
	if !p.Active() {
		return p
	}

	switch {
	case in.Has(MoveLeft):
		p.VX = -MoveSpeed
	case in.Has(MoveRight):
		p.VX = MoveSpeed
	default:
		p.VX *= Friction
		if math.Abs(p.VX) < VelocityEpsilon {
			p.VX = 0
		}
	}

	if in.Has(Jump) && p.Grounded {
		p.VY = JumpImpulse
		p.Grounded = false
	}
	p.VY += Gravity
	if p.VY > MaxFallSpeed {
		p.VY = MaxFallSpeed
	}

	nx := p.X + p.VX
	ny := p.Y + p.VY

	if Blocked(m, nx, p.Y) {
		nx = p.X
		p.VX = 0
	}

	if Blocked(m, nx, ny) {
		if p.VY > 0 {
			p.Grounded = true
			ny = landing(m, nx, p.Y, ny)
		} else {
			ny = ceiling(m, nx, p.Y, ny)
		}
		p.VY = 0
	} else {
		p.Grounded = p.VY >= 0 && Blocked(m, nx, ny+GroundProbe)
	}

	p.X, p.Y = nx, ny
	return p
}

// landing 下落着地：从重叠格子行的顶部开始，按 LandingStep 向上找到空位
// (x, from) 一定是空位，找不到时退回该位置
func landing(m *Map, x, from, to float64) float64 {
	y := math.Floor(to)
	for Blocked(m, x, y) && y > from-1 {
		y -= LandingStep
	}
	if Blocked(m, x, y) {
		return from
	}
	return y
}

// ceiling 上升撞头：贴到所撞格子的下沿
func ceiling(m *Map, x, from, to float64) float64 {
	y := math.Floor(to) + 1
	if y > from || Blocked(m, x, y) {
		return from
	}
	return y
}
