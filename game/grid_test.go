package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRows(t *testing.T, rows ...string) *Map {
	t.Helper()
	m, err := ParseRows("test", rows)
	require.NoError(t, err)
	return m
}

func TestMapOutOfBoundsIsWall(t *testing.T) {
	m := NewMap("empty", 3, 2)
	assert.Equal(t, TileEmpty, m.At(0, 0))
	for _, c := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 2}, {100, 100}} {
		assert.Equal(t, TileWall, m.At(c[0], c[1]), "cell %v", c)
	}
	assert.False(t, m.Set(3, 0, TileFire))
	assert.True(t, m.Set(2, 1, TileFire))
	assert.Equal(t, TileFire, m.At(2, 1))

	var nilMap *Map
	assert.Equal(t, TileWall, nilMap.At(0, 0))
}

func TestParseRowsBuildsGems(t *testing.T) {
	m := mustRows(t,
		"#####",
		"#c.h#",
		"#=CH#",
	)
	assert.Equal(t, 5, m.Width())
	assert.Equal(t, 3, m.Height())
	assert.Equal(t, TileColdExit, m.At(2, 2))
	assert.Equal(t, TilePlatform, m.At(1, 2))
	require.Len(t, m.Gems, 2)
	assert.Equal(t, Gem{X: 1, Y: 1, Role: Cold}, m.Gems[0])
	assert.Equal(t, Gem{X: 3, Y: 1, Role: Hot}, m.Gems[1])
}

func TestParseRowsRejectsBadInput(t *testing.T) {
	_, err := ParseRows("ragged", []string{"###", "##"})
	assert.Error(t, err)
	_, err = ParseRows("legend", []string{"#?#"})
	assert.Error(t, err)
	_, err = ParseRows("empty", nil)
	assert.Error(t, err)
}

func TestMapCloneIsIndependent(t *testing.T) {
	m := mustRows(t, "#c#")
	c := m.Clone()
	c.Set(1, 0, TileEmpty)
	c.Gems[0].Collected = true
	assert.Equal(t, TileColdGem, m.At(1, 0))
	assert.False(t, m.Gems[0].Collected)
}

func TestMapJSONShape(t *testing.T) {
	m := mustRows(t, "#h=")
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"test","width":3,"height":1,"tilesData":[1,6,9],
		"gems":[{"x":1,"y":0,"role":"hot","collected":false}]}`, string(b))

	var back Map
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m, &back)

	assert.Error(t, json.Unmarshal([]byte(`{"width":2,"height":2,"tilesData":[0]}`), &back))
}

func TestRoleText(t *testing.T) {
	for in, want := range map[string]Role{"cold": Cold, "ICE": Cold, "hot": Hot, "fire": Hot} {
		got, err := ParseRole(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseRole("water")
	assert.Error(t, err)

	b, err := json.Marshal(struct{ R Role }{Hot})
	require.NoError(t, err)
	assert.JSONEq(t, `{"R":"hot"}`, string(b))
	_, err = json.Marshal(Role(7))
	assert.Error(t, err)

	assert.Equal(t, Hot, Cold.Other())
	assert.Equal(t, TileHotExit, Hot.Exit())
	assert.Equal(t, TileColdGem, Cold.Gem())
}
