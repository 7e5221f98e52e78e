package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/greut/dzi/dzi"
	"gopkg.in/h2non/bimg.v1"
)

// error messages
var tileError = "tile %v is outside of the pyramid of %#v"
var formatError = "%#v tiles are %#v, not %#v"
var formatReadMissing = "libvips cannot read this format %#v as of yet"
var paramError = "`%s` must be a number: %#v"
var actionError = "unknown action %#v"
var tooManyTiles = "the view of %#v needs %d tiles, at most %d are listed"

// maxTiles bounds the placements returned by the tiles and viewport
// endpoints.
const maxTiles = 4096

// fitWidth is the width of the default view of tiles.json.
const fitWidth = 1024

// TileHandler serves one tile image of a record.
func TileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	record, desc, modTime, err := openRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	format := vars["format"]
	if format != desc.Format {
		message := fmt.Sprintf(formatError, record.ID, desc.Format, format)
		http.Error(w, HTTPError{http.StatusNotFound, message}.Error(), http.StatusNotFound)
		return
	}

	id, ok := tileID(vars)
	levels := desc.Levels()
	if !ok || id.Level >= len(levels) || !levels[id.Level].Contains(id) {
		message := fmt.Sprintf(tileError, id, record.ID)
		http.Error(w, HTTPError{http.StatusNotFound, message}.Error(), http.StatusNotFound)
		return
	}

	ctx := r.Context()
	config := configFrom(ctx)
	file, err := readFile(ctx, config.Images, id.Path(record.BaseName(), desc.Format), groupFrom(ctx, "tiles"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	buffer := file.GetBuffer()

	imageType := bimg.DetermineImageType(buffer)
	if !bimg.IsTypeSupported(imageType) {
		message := fmt.Sprintf(formatReadMissing, bimg.ImageTypes[imageType])
		http.Error(w, HTTPError{http.StatusNotImplemented, message}.Error(), http.StatusNotImplemented)
		return
	}

	filename := fmt.Sprintf("%s-%d-%d_%d.%s", record.ID, id.Level, id.Column, id.Row, desc.Format)

	header := w.Header()
	header.Set("Content-Type", "image/"+bimg.ImageTypes[imageType])
	header.Set("Content-Disposition", fmt.Sprintf("inline; filename=%s", filename))
	setCacheHeaders(w, r, config)

	if t := file.Time(); t.After(modTime) {
		modTime = t
	}
	http.ServeContent(w, r, filename, modTime, bytes.NewReader(buffer))
}

// TilesHandler lists the tiles covering a view given as query parameters:
// scale, x, y, w and h. The default is the whole image at the first level at
// least fitWidth pixels wide.
func TilesHandler(w http.ResponseWriter, r *http.Request) {
	record, desc, _, err := openRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	view := dzi.View{Scale: defaultScale(desc.Levels()), Rect: dzi.Rect{W: 1, H: 1}}
	for _, p := range []struct {
		name  string
		value *float64
	}{
		{"scale", &view.Scale},
		{"x", &view.Rect.X},
		{"y", &view.Rect.Y},
		{"w", &view.Rect.W},
		{"h", &view.Rect.H},
	} {
		if err := floatParam(q, p.name, p.value); err != nil {
			writeError(w, r, err)
			return
		}
	}

	tiles, err := placements(r, record, desc, view)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, TilesResponse{
		View:  view,
		Tiles: tiles,
	})
}

// ViewportHandler applies one gesture to the state sent by a viewer and
// returns the next state along with the tiles to draw.
func ViewportHandler(w http.ResponseWriter, r *http.Request) {
	record, desc, _, err := openRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ViewportRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload))
	if err := decoder.Decode(&req); err != nil {
		http.Error(w, HTTPError{http.StatusBadRequest, err.Error()}.Error(), http.StatusBadRequest)
		return
	}
	if req.Action.Type != "" && !req.Action.Type.Valid() {
		message := fmt.Sprintf(actionError, req.Action.Type)
		http.Error(w, HTTPError{http.StatusBadRequest, message}.Error(), http.StatusBadRequest)
		return
	}

	opts := configFrom(r.Context()).Viewer
	opts.PixelRatio = req.Container.PixelRatio
	opts = opts.Fit(desc, req.Container.Width, req.Container.Height)

	state := opts.Reset(dzi.Home())
	if req.State != nil {
		state = *req.State
	}
	state = opts.Apply(state, req.Action)
	view := opts.View(state)

	debug("%s: %s -> scale %v at (%v, %v)", record.ID, req.Action.Type, state.Scale, state.CenterX, state.CenterY)

	tiles, err := placements(r, record, desc, view)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, ViewportResponse{
		State: state,
		View:  view,
		Tiles: tiles,
	})
}

func placements(r *http.Request, record dzi.Record, desc *dzi.Descriptor, view dzi.View) ([]TilePlacement, error) {
	levels := desc.Levels()
	if n := dzi.CountTiles(levels, desc.TileSize, view); n > maxTiles {
		return nil, HTTPError{http.StatusBadRequest, fmt.Sprintf(tooManyTiles, record.ID, n, maxTiles)}
	}

	base := fmt.Sprintf("%s/%s", baseURL(r), url.PathEscape(record.ID))
	selected := dzi.TilesFor(levels, desc.TileSize, desc.Overlap, view)

	tiles := make([]TilePlacement, 0, len(selected))
	for _, p := range selected {
		tiles = append(tiles, TilePlacement{
			Placement: p,
			URL:       p.TileID.Path(base, desc.Format),
		})
	}
	return tiles, nil
}

// defaultScale is the scale of the first level at least fitWidth pixels
// wide, or the full resolution for smaller images.
func defaultScale(levels []dzi.Level) float64 {
	for _, l := range levels {
		if l.Width >= fitWidth {
			return l.Scale
		}
	}
	return 1
}

func tileID(vars map[string]string) (dzi.TileID, bool) {
	level, err1 := strconv.Atoi(vars["level"])
	column, err2 := strconv.Atoi(vars["column"])
	row, err3 := strconv.Atoi(vars["row"])
	id := dzi.TileID{Level: level, Column: column, Row: row}
	return id, err1 == nil && err2 == nil && err3 == nil
}

func floatParam(q url.Values, name string, value *float64) error {
	s := strings.TrimSpace(q.Get(name))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return HTTPError{http.StatusBadRequest, fmt.Sprintf(paramError, name, s)}
	}
	*value = f
	return nil
}
