// Package levels 手工编排的关卡目录，按关卡号生成新的 GameState
package levels

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"icefire/game"
)

//go:embed data/*.yaml
var builtin embed.FS

type levelFile struct {
	Number  int    `yaml:"number"`
	Name    string `yaml:"name"`
	Message string `yaml:"message"`
	Spawn   struct {
		Cold [2]float64 `yaml:"cold"`
		Hot  [2]float64 `yaml:"hot"`
	} `yaml:"spawn"`
	Grid string `yaml:"grid"`
}

// Level 一个已解析的关卡；地图只以拷贝形式交出
type Level struct {
	Number  int
	Name    string
	Message string
	Spawn   [2][2]float64 // 按 game.Role 索引
	m       *game.Map
}

// Catalog 编号为 1..Len() 的有序关卡集合
type Catalog struct {
	levels []Level
}

// Builtin 加载编译进二进制的内置关卡
func Builtin() (*Catalog, error) {
	return Load(builtin, "data/*.yaml")
}

// Load 解析 fsys 中所有匹配 pattern 的文件
func Load(fsys fs.FS, pattern string) (*Catalog, error) {
	names, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("levels: no files match %q", pattern)
	}
	c := &Catalog{}
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		lvl, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("levels: %s: %w", name, err)
		}
		c.levels = append(c.levels, lvl)
	}
	sort.Slice(c.levels, func(i, j int) bool { return c.levels[i].Number < c.levels[j].Number })
	for i, l := range c.levels {
		if l.Number != i+1 {
			return nil, fmt.Errorf("levels: expected level %d, found %d", i+1, l.Number)
		}
	}
	return c, nil
}

func parse(data []byte) (Level, error) {
	var f levelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Level{}, err
	}
	if f.Number < 1 {
		return Level{}, fmt.Errorf("bad level number %d", f.Number)
	}
	rows := strings.Split(strings.TrimRight(f.Grid, "\n"), "\n")
	m, err := game.ParseRows(f.Name, rows)
	if err != nil {
		return Level{}, err
	}
	lvl := Level{Number: f.Number, Name: f.Name, Message: f.Message, m: m}
	lvl.Spawn[game.Cold] = f.Spawn.Cold
	lvl.Spawn[game.Hot] = f.Spawn.Hot
	for _, r := range game.Roles {
		s := lvl.Spawn[r]
		if game.Blocked(m, s[0], s[1]) {
			return Level{}, fmt.Errorf("%s spawn %v is inside a solid tile", r, s)
		}
	}
	return lvl, nil
}

func (c *Catalog) Len() int { return len(c.levels) }

func (c *Catalog) Has(n int) bool { return n >= 1 && n <= len(c.levels) }

// Level 返回第 n 关
func (c *Catalog) Level(n int) (Level, bool) {
	if !c.Has(n) {
		return Level{}, false
	}
	return c.levels[n-1], true
}

// GenerateLevel 生成第 n 关的初始状态，超出范围时回到第1关
func (c *Catalog) GenerateLevel(n int) (*game.State, error) {
	if len(c.levels) == 0 {
		return nil, fmt.Errorf("levels: empty catalog")
	}
	if !c.Has(n) {
		n = 1
	}
	l := c.levels[n-1]
	cs, hs := l.Spawn[game.Cold], l.Spawn[game.Hot]
	return &game.State{
		Cold:    game.NewPlayer(game.Cold, cs[0], cs[1]),
		Hot:     game.NewPlayer(game.Hot, hs[0], hs[1]),
		Map:     l.m.Clone(),
		Message: l.Message,
		Level:   l.Number,
	}, nil
}

// Next 下一关，超过最后一关回到第1关
func (c *Catalog) Next(n int) int {
	if n+1 > len(c.levels) || n < 1 {
		return 1
	}
	return n + 1
}
