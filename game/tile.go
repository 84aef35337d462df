package game

// Tile 地图格子类型，数值即 tilesData 中发送的编号
type Tile int

const (
	TileEmpty Tile = iota
	TileWall
	TileIce   // 危险：火人触碰即死
	TileFire  // 危险：冰人触碰即死
	TileWater // 危险：双方触碰即死
	TileColdGem
	TileHotGem
	TileColdExit
	TileHotExit
	TilePlatform
	TileButton
	TileMovingPlatform
)

var tileNames = [...]string{
	TileEmpty:          "empty",
	TileWall:           "wall",
	TileIce:            "ice",
	TileFire:           "fire",
	TileWater:          "water",
	TileColdGem:        "cold-gem",
	TileHotGem:         "hot-gem",
	TileColdExit:       "cold-exit",
	TileHotExit:        "hot-exit",
	TilePlatform:       "platform",
	TileButton:         "button",
	TileMovingPlatform: "moving-platform",
}

func (t Tile) String() string {
	if t < 0 || int(t) >= len(tileNames) {
		return "unknown"
	}
	return tileNames[t]
}

// Solid 玩家是否与该瓦片发生碰撞
func (t Tile) Solid() bool {
	return t == TileWall || t == TilePlatform
}
