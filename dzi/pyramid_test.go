package dzi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelsNebula(t *testing.T) {
	desc := &Descriptor{Format: "jpg", TileSize: 256, Overlap: 1, Width: 4096, Height: 2048}

	levels := Levels(desc)
	require.Len(t, levels, 13)
	assert.Equal(t, 12, desc.MaxLevel())

	top := levels[12]
	assert.Equal(t, Level{Index: 12, Scale: 1, Width: 4096, Height: 2048, Columns: 16, Rows: 8}, top)

	bottom := levels[0]
	assert.Equal(t, 1, bottom.Width)
	assert.Equal(t, 1, bottom.Height)
	assert.Equal(t, 1, bottom.Tiles())
	assert.Equal(t, math.Ldexp(1, -12), bottom.Scale)

	assert.Equal(t, Level{Index: 10, Scale: 0.25, Width: 1024, Height: 512, Columns: 4, Rows: 2}, levels[10])
}

func TestLevelsProperties(t *testing.T) {
	var tests = []struct {
		width, height, tileSize int
		maxLevel                int
	}{
		{1, 1, 256, 0},
		{2, 1, 256, 1},
		{300, 200, 256, 9},
		{513, 17, 254, 10},
		{1000, 4001, 510, 12},
		{65536, 3, 1, 16},
	}

	for _, test := range tests {
		desc := &Descriptor{Format: "png", TileSize: test.tileSize, Width: test.width, Height: test.height}
		levels := desc.Levels()

		require.Len(t, levels, test.maxLevel+1, "%dx%d", test.width, test.height)

		last := levels[len(levels)-1]
		assert.Equal(t, test.width, last.Width)
		assert.Equal(t, test.height, last.Height)
		assert.Equal(t, 1., last.Scale)

		for i, l := range levels {
			assert.Equal(t, i, l.Index)
			assert.GreaterOrEqual(t, l.Width, 1)
			assert.GreaterOrEqual(t, l.Height, 1)
			assert.Equal(t, int(math.Ceil(float64(l.Width)/float64(test.tileSize))), l.Columns)
			assert.Equal(t, int(math.Ceil(float64(l.Height)/float64(test.tileSize))), l.Rows)
			assert.GreaterOrEqual(t, l.Tiles(), 1)
			if i > 0 {
				assert.Equal(t, levels[i-1].Scale*2, l.Scale)
			}
		}
	}
}

func TestLevelContains(t *testing.T) {
	l := Level{Index: 3, Columns: 2, Rows: 1}

	assert.True(t, l.Contains(TileID{3, 1, 0}))
	assert.False(t, l.Contains(TileID{3, 2, 0}))
	assert.False(t, l.Contains(TileID{3, 0, 1}))
	assert.False(t, l.Contains(TileID{3, -1, 0}))
	assert.False(t, l.Contains(TileID{2, 0, 0}))
}
