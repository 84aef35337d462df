package game

import (
	"encoding/json"
	"fmt"
)

// Gem 属于某个角色的宝石；Collected 一旦置位不再恢复
type Gem struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	Role      Role `json:"role"`
	Collected bool `json:"collected"`
}

// Map 固定尺寸的瓦片网格（按行存储），越界读取返回 TileWall，地图边缘即墙
type Map struct {
	Name  string
	Gems  []Gem
	w, h  int
	cells []Tile
}

func NewMap(name string, width, height int) *Map {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Map{Name: name, w: width, h: height, cells: make([]Tile, width*height)}
}

func (m *Map) Width() int  { return m.w }
func (m *Map) Height() int { return m.h }

func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && x < m.w && y >= 0 && y < m.h
}

// At 返回 (x, y) 处的瓦片，越界时为 TileWall
func (m *Map) At(x, y int) Tile {
	if m == nil || !m.InBounds(x, y) {
		return TileWall
	}
	return m.cells[y*m.w+x]
}

// Set 写入瓦片，返回 (x, y) 是否在网格内
func (m *Map) Set(x, y int, t Tile) bool {
	if !m.InBounds(x, y) {
		return false
	}
	m.cells[y*m.w+x] = t
	return true
}

func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	c := &Map{Name: m.Name, w: m.w, h: m.h}
	c.cells = append([]Tile(nil), m.cells...)
	c.Gems = append([]Gem(nil), m.Gems...)
	return c
}

type wireMap struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Tiles  []Tile `json:"tilesData"`
	Gems   []Gem  `json:"gems"`
}

func (m *Map) MarshalJSON() ([]byte, error) {
	gems := m.Gems
	if gems == nil {
		gems = []Gem{}
	}
	return json.Marshal(wireMap{Name: m.Name, Width: m.w, Height: m.h, Tiles: m.cells, Gems: gems})
}

func (m *Map) UnmarshalJSON(b []byte) error {
	var w wireMap
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	if w.Width < 0 || w.Height < 0 || len(w.Tiles) != w.Width*w.Height {
		return fmt.Errorf("map %q: %d tiles for %dx%d grid", w.Name, len(w.Tiles), w.Width, w.Height)
	}
	m.Name, m.w, m.h, m.cells, m.Gems = w.Name, w.Width, w.Height, w.Tiles, w.Gems
	return nil
}
