package dzi

import (
	"fmt"
	"path"
	"strings"
)

// Report summarises a descriptor loaded for inspection rather than display.
type Report struct {
	Name        string `json:"name"`
	BaseName    string `json:"baseName"`
	TilesFolder string `json:"tilesFolder"`
	Format      string `json:"format"`
	TileSize    int    `json:"tileSize"`
	Overlap     int    `json:"overlap"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Levels      int    `json:"levels"`
}

// BaseName strips the directory and the extension of a descriptor file name,
// "images/nebula.dzi" gives "nebula".
func BaseName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(name, path.Ext(name))
}

// TilesFolder is the directory holding the tiles of the named descriptor.
func TilesFolder(name string) string {
	return BaseName(name) + "_files/"
}

// Inspect parses the payload of the named descriptor file and reports its
// tiling parameters. Nothing is rendered.
func Inspect(name string, payload []byte) (Report, error) {
	desc, err := Parse(payload)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Name:        path.Base(name),
		BaseName:    BaseName(name),
		TilesFolder: TilesFolder(name),
		Format:      desc.Format,
		TileSize:    desc.TileSize,
		Overlap:     desc.Overlap,
		Width:       desc.Width,
		Height:      desc.Height,
		Levels:      desc.MaxLevel() + 1,
	}, nil
}

// String renders the human readable summary.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Format: %s\n", r.Format)
	fmt.Fprintf(&b, "Tile Size: %dpx\n", r.TileSize)
	fmt.Fprintf(&b, "Overlap: %dpx\n", r.Overlap)
	fmt.Fprintf(&b, "Size: %dx%d\n", r.Width, r.Height)
	fmt.Fprintf(&b, "Levels: %d\n", r.Levels)
	fmt.Fprintf(&b, "Tiles folder: %s\n", r.TilesFolder)
	return b.String()
}
