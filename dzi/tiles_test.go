package dzi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nebulaLevels() (*Descriptor, []Level) {
	desc := &Descriptor{Format: "jpg", TileSize: 256, Overlap: 1, Width: 4096, Height: 2048}
	return desc, Levels(desc)
}

func TestTilePath(t *testing.T) {
	id := TileID{Level: 12, Column: 3, Row: 7}
	assert.Equal(t, "dzi-images/nebula_files/12/3_7.jpg", id.Path("dzi-images/nebula", "jpg"))
	assert.Equal(t, "12/3_7", id.String())
}

func TestSelectLevel(t *testing.T) {
	_, levels := nebulaLevels()

	var tests = []struct {
		scale float64
		level int
	}{
		{-1, 0},
		{0, 0},
		{0.25, 10},
		{0.26, 11},
		{0.24, 10},
		{0.5, 11},
		{1, 12},
		{3, 12},
	}

	for _, test := range tests {
		assert.Equal(t, test.level, SelectLevel(levels, test.scale).Index, "scale %v", test.scale)
	}
}

func TestTilesForWholeImage(t *testing.T) {
	desc, levels := nebulaLevels()

	view := View{Scale: 0.25, Rect: Rect{X: 0, Y: 0, W: 1, H: 1}}
	tiles := TilesFor(levels, desc.TileSize, desc.Overlap, view)

	// level 10 is 1024x512, 4 columns and 2 rows.
	require.Len(t, tiles, 8)
	for _, p := range tiles {
		assert.Equal(t, 10, p.Level)
	}
	assert.Equal(t, TileID{10, 0, 0}, tiles[0].TileID)
	assert.Equal(t, TileID{10, 3, 0}, tiles[3].TileID)
	assert.Equal(t, TileID{10, 0, 1}, tiles[4].TileID)

	first := tiles[0].Bounds
	assert.Equal(t, 0., first.X)
	assert.Equal(t, 0., first.Y)
	assert.InDelta(t, 257./1024, first.W, 1e-12)
	assert.InDelta(t, 257./512, first.H, 1e-12)

	inner := tiles[1].Bounds
	assert.InDelta(t, 255./1024, inner.X, 1e-12)
	assert.InDelta(t, 258./1024, inner.W, 1e-12)
}

func TestTilesForMargin(t *testing.T) {
	desc, levels := nebulaLevels()

	// at full resolution, a view covering column 5 and row 3 only
	view := View{Scale: 1, Rect: Rect{X: 5 * 256 / 4096., Y: 3 * 256 / 2048., W: 255 / 4096., H: 255 / 2048.}}
	tiles := TilesFor(levels, desc.TileSize, desc.Overlap, view)

	require.Len(t, tiles, 9)
	assert.Equal(t, TileID{12, 4, 2}, tiles[0].TileID)
	assert.Equal(t, TileID{12, 6, 4}, tiles[8].TileID)
}

func TestTilesForClipping(t *testing.T) {
	desc, levels := nebulaLevels()

	var tests = []struct {
		name  string
		rect  Rect
		count int
	}{
		{"top left corner", Rect{X: -0.5, Y: -0.5, W: 0.51, H: 0.51}, 0},
		{"outside left", Rect{X: -3, Y: 0, W: 1, H: 1}, 0},
		{"outside right", Rect{X: 5, Y: 5, W: 1, H: 1}, 0},
		{"huge", Rect{X: -1e300, Y: -1e300, W: 1e301, H: 1e301}, 16 * 8},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tiles := TilesFor(levels, desc.TileSize, desc.Overlap, View{Scale: 1, Rect: test.rect})
			if test.count > 0 {
				assert.Len(t, tiles, test.count)
			}
			for _, p := range tiles {
				assert.True(t, levels[p.Level].Contains(p.TileID), "%s outside the pyramid", p.TileID)
			}
		})
	}

	corner := TilesFor(levels, desc.TileSize, desc.Overlap, View{Scale: 1, Rect: Rect{X: -0.5, Y: -0.5, W: 0.51, H: 0.51}})
	require.NotEmpty(t, corner)
	assert.Equal(t, TileID{12, 0, 0}, corner[0].TileID)

	assert.Empty(t, TilesFor(levels, desc.TileSize, desc.Overlap, View{Scale: 1, Rect: Rect{X: -3, Y: 0, W: 1, H: 1}}))
	assert.Empty(t, TilesFor(levels, desc.TileSize, desc.Overlap, View{Scale: 1, Rect: Rect{X: 5, Y: 5, W: 1, H: 1}}))
}

func TestTilesForIdempotent(t *testing.T) {
	desc, levels := nebulaLevels()
	view := View{Scale: 0.3, Rect: Rect{X: 0.2, Y: 0.1, W: 0.33, H: 0.4}}

	first := TilesFor(levels, desc.TileSize, desc.Overlap, view)
	second := TilesFor(levels, desc.TileSize, desc.Overlap, view)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestTilesForEmptyPyramid(t *testing.T) {
	view := View{Scale: 1, Rect: Rect{W: 1, H: 1}}
	assert.Nil(t, TilesFor(nil, 256, 0, view))
	assert.Equal(t, 0, CountTiles(nil, 256, view))
	assert.Equal(t, Level{}, SelectLevel(nil, 1))
	assert.Equal(t, Level{}, SelectLevel([]Level{}, 0.5))
}

func TestCountTiles(t *testing.T) {
	desc := &Descriptor{Format: "jpg", TileSize: 256, Overlap: 1, Width: 4096, Height: 2048}
	levels := desc.Levels()

	var tests = []View{
		{Scale: 1, Rect: Rect{W: 1, H: 1}},
		{Scale: 0.25, Rect: Rect{X: 0.3, Y: 0.2, W: 0.1, H: 0.1}},
		{Scale: 0.01, Rect: Rect{W: 1, H: 1}},
		{Scale: 1, Rect: Rect{X: 5, Y: 5, W: 1, H: 1}},
	}
	for _, view := range tests {
		assert.Equal(t, len(TilesFor(levels, desc.TileSize, desc.Overlap, view)), CountTiles(levels, desc.TileSize, view), "view %+v", view)
	}
	assert.Equal(t, 128, CountTiles(levels, desc.TileSize, tests[0]))
}
