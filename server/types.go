package server

import (
	"github.com/greut/dzi/dzi"
)

// Config stores the gallery server configuration.
type Config struct {
	Host      string       `toml:"host"`
	Port      int          `toml:"port"`
	Templates string       `toml:"templates"`
	Images    string       `toml:"images"`
	Viewer    dzi.Options  `toml:"viewer"`
	Cache     CacheConfig  `toml:"cache"`
	Gallery   []dzi.Record `toml:"gallery"`
}

// CacheConfig represents the configuration information regarding the cache.
type CacheConfig struct {
	HTTP            int64    `toml:"http"`
	Descriptors     string   `toml:"descriptors"`
	Tiles           string   `toml:"tiles"`
	Peers           []string `toml:"peers"`
	DescriptorsSize int64
	TilesSize       int64
}

// Info describes one gallery image to a viewer.
type Info struct {
	ID          string          `json:"id"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Descriptor  string          `json:"descriptor"`
	TilesURL    string          `json:"tilesUrl"`
	Image       *dzi.Descriptor `json:"image"`
	Levels      []dzi.Level     `json:"levels"`
	Viewer      dzi.Options     `json:"viewer"`
}

// TilePlacement is a placement with the URL of its tile image.
type TilePlacement struct {
	dzi.Placement
	URL string `json:"url"`
}

// Container is the box the viewer draws into.
type Container struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
}

// ViewportRequest carries one gesture from a viewer. A missing state is the
// home view.
type ViewportRequest struct {
	State     *dzi.State `json:"state"`
	Action    dzi.Action `json:"action"`
	Container Container  `json:"container"`
}

// ViewportResponse is the state after the gesture and what to draw.
type ViewportResponse struct {
	State dzi.State       `json:"state"`
	View  dzi.View        `json:"view"`
	Tiles []TilePlacement `json:"tiles"`
}

// TilesResponse lists the tiles covering a view.
type TilesResponse struct {
	View  dzi.View        `json:"view"`
	Tiles []TilePlacement `json:"tiles"`
}
