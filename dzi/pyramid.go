package dzi

import (
	"math"
	"math/bits"
)

// Level is one resolution of the pyramid. Level 0 is the smallest, the last
// level is the full resolution image.
type Level struct {
	Index   int     `json:"level"`
	Scale   float64 `json:"scale"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Columns int     `json:"columns"`
	Rows    int     `json:"rows"`
}

// MaxLevel is ceil(log2(max(width, height))).
func (desc *Descriptor) MaxLevel() int {
	size := desc.Width
	if desc.Height > size {
		size = desc.Height
	}
	if size <= 1 {
		return 0
	}
	return bits.Len(uint(size - 1))
}

// Levels computes the pyramid, lowest resolution first.
func (desc *Descriptor) Levels() []Level {
	return Levels(desc)
}

// Levels computes the pyramid of the descriptor, lowest resolution first.
// Sizes are computed with integer arithmetic so the last level is exactly
// the descriptor size.
func Levels(desc *Descriptor) []Level {
	max := desc.MaxLevel()
	levels := make([]Level, max+1)
	for i := range levels {
		shift := uint(max - i)
		width := ceilShift(desc.Width, shift)
		height := ceilShift(desc.Height, shift)
		levels[i] = Level{
			Index:   i,
			Scale:   math.Ldexp(1, -int(shift)),
			Width:   width,
			Height:  height,
			Columns: ceilDiv(width, desc.TileSize),
			Rows:    ceilDiv(height, desc.TileSize),
		}
	}
	return levels
}

// Tiles is the number of tiles in the level.
func (l Level) Tiles() int {
	return l.Columns * l.Rows
}

// Contains tells whether the tile belongs to this level.
func (l Level) Contains(id TileID) bool {
	return id.Level == l.Index &&
		id.Column >= 0 && id.Column < l.Columns &&
		id.Row >= 0 && id.Row < l.Rows
}

func ceilShift(n int, shift uint) int {
	return (n + (1 << shift) - 1) >> shift
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
