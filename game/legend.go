package game

import "fmt"

// Legend 关卡文件中 ASCII 字符到瓦片的映射
var Legend = map[rune]Tile{
	'.': TileEmpty,
	' ': TileEmpty,
	'#': TileWall,
	'~': TileIce,
	'^': TileFire,
	'w': TileWater,
	'c': TileColdGem,
	'h': TileHotGem,
	'C': TileColdExit,
	'H': TileHotExit,
	'=': TilePlatform,
	'b': TileButton,
	'-': TileMovingPlatform,
}

// ParseRows 由等长的 ASCII 行构建地图；宝石格同时生成对应角色的 Gem 记录
func ParseRows(name string, rows []string) (*Map, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("map %q: no rows", name)
	}
	width := len([]rune(rows[0]))
	m := NewMap(name, width, len(rows))
	for y, row := range rows {
		cells := []rune(row)
		if len(cells) != width {
			return nil, fmt.Errorf("map %q: row %d has %d cells, want %d", name, y, len(cells), width)
		}
		for x, ch := range cells {
			t, ok := Legend[ch]
			if !ok {
				return nil, fmt.Errorf("map %q: unknown cell %q at %d,%d", name, ch, x, y)
			}
			m.Set(x, y, t)
			switch t {
			case TileColdGem:
				m.Gems = append(m.Gems, Gem{X: x, Y: y, Role: Cold})
			case TileHotGem:
				m.Gems = append(m.Gems, Gem{X: x, Y: y, Role: Hot})
			}
		}
	}
	return m, nil
}
