package dzi

import (
	"fmt"
	"math"
)

// TileID identifies one tile image of the pyramid.
type TileID struct {
	Level  int `json:"level"`
	Column int `json:"column"`
	Row    int `json:"row"`
}

// Path resolves the tile to <baseName>_files/<level>/<column>_<row>.<format>.
func (id TileID) Path(baseName, format string) string {
	return fmt.Sprintf("%s_files/%d/%d_%d.%s", baseName, id.Level, id.Column, id.Row, format)
}

func (id TileID) String() string {
	return fmt.Sprintf("%d/%d_%d", id.Level, id.Column, id.Row)
}

// Rect is a rectangle in normalized image coordinates, where (0, 0) is the
// top left corner of the image and (1, 1) its bottom right one.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// View is what the tile selector needs to know about the viewer: the
// fraction of the full resolution being displayed and the visible part of
// the image.
type View struct {
	Scale float64 `json:"scale"`
	Rect  Rect    `json:"rect"`
}

// Placement pairs a tile with where it goes, in normalized coordinates. The
// bounds include the overlap pixels carried by the tile image.
type Placement struct {
	TileID
	Bounds Rect `json:"bounds"`
}

// SelectLevel picks the lowest resolution level that is at least as sharp as
// the requested scale. Scales above 1 stay on the full resolution level.
// Without levels, the zero Level is returned.
func SelectLevel(levels []Level, scale float64) Level {
	if len(levels) == 0 {
		return Level{}
	}
	for _, l := range levels {
		if l.Scale >= scale {
			return l
		}
	}
	return levels[len(levels)-1]
}

// TilesFor lists the tiles covering the view, with one extra tile of margin
// on every side, in row-major order.
func TilesFor(levels []Level, tileSize, overlap int, view View) []Placement {
	level, c0, c1, r0, r1 := selection(levels, tileSize, view)
	if c0 > c1 || r0 > r1 {
		return nil
	}

	placements := make([]Placement, 0, (c1-c0+1)*(r1-r0+1))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			id := TileID{Level: level.Index, Column: col, Row: row}
			placements = append(placements, Placement{
				TileID: id,
				Bounds: bounds(level, id, tileSize, overlap),
			})
		}
	}
	return placements
}

// CountTiles is the number of tiles TilesFor would list, without listing
// them.
func CountTiles(levels []Level, tileSize int, view View) int {
	_, c0, c1, r0, r1 := selection(levels, tileSize, view)
	if c0 > c1 || r0 > r1 {
		return 0
	}
	return (c1 - c0 + 1) * (r1 - r0 + 1)
}

// selection returns the level of the view and its inclusive column and row
// ranges, empty when nothing is visible.
func selection(levels []Level, tileSize int, view View) (level Level, c0, c1, r0, r1 int) {
	if len(levels) == 0 || tileSize < 1 {
		return Level{}, 0, -1, 0, -1
	}
	level = SelectLevel(levels, view.Scale)

	x0 := view.Rect.X * float64(level.Width)
	y0 := view.Rect.Y * float64(level.Height)
	x1 := (view.Rect.X + view.Rect.W) * float64(level.Width)
	y1 := (view.Rect.Y + view.Rect.H) * float64(level.Height)

	c0, c1 = span(x0, x1, tileSize, level.Columns)
	r0, r1 = span(y0, y1, tileSize, level.Rows)
	return level, c0, c1, r0, r1
}

// span returns the inclusive tile range overlapping [lo, hi], grown by one
// tile each way and clipped to [0, count).
func span(lo, hi float64, tileSize, count int) (int, int) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return 0, -1
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	size := float64(tileSize)
	edge := float64(count+2) * size
	lo = math.Min(math.Max(lo, -2*size), edge)
	hi = math.Min(math.Max(hi, -2*size), edge)

	first := int(math.Floor(lo / size))
	last := int(math.Ceil(hi/size)) - 1
	if last < first {
		last = first
	}

	first--
	last++
	if first < 0 {
		first = 0
	}
	if last > count-1 {
		last = count - 1
	}
	return first, last
}

func bounds(level Level, id TileID, tileSize, overlap int) Rect {
	x := id.Column*tileSize - overlap
	y := id.Row*tileSize - overlap
	right := (id.Column+1)*tileSize + overlap
	bottom := (id.Row+1)*tileSize + overlap

	x = clamp(x, 0, level.Width)
	y = clamp(y, 0, level.Height)
	right = clamp(right, 0, level.Width)
	bottom = clamp(bottom, 0, level.Height)

	w := float64(level.Width)
	h := float64(level.Height)
	return Rect{
		X: float64(x) / w,
		Y: float64(y) / h,
		W: float64(right-x) / w,
		H: float64(bottom-y) / h,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
