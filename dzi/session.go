package dzi

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
)

// ErrClosed is returned by a closed session.
var ErrClosed = errors.New("dzi: session closed")

// Loader fetches the bytes of one tile.
type Loader interface {
	Load(ctx context.Context, id TileID) ([]byte, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, id TileID) ([]byte, error)

// Load calls f(ctx, id).
func (f LoaderFunc) Load(ctx context.Context, id TileID) ([]byte, error) {
	return f(ctx, id)
}

// DiskLoader reads tiles below Root following the Deep Zoom layout.
type DiskLoader struct {
	Root     string
	BaseName string
	Format   string
}

// Load reads the tile file.
func (dl DiskLoader) Load(ctx context.Context, id TileID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filename := filepath.Join(dl.Root, filepath.FromSlash(id.Path(dl.BaseName, dl.Format)))
	return ioutil.ReadFile(filename)
}

// TileResult is the outcome of one fetch.
type TileResult struct {
	TileID
	Generation uint64
	Data       []byte
	Err        error
}

type fetch struct {
	generation uint64
	cancel     context.CancelFunc
}

// Session is one open viewer. It owns its pan/zoom state and the fetches of
// the tiles it displays.
//
// A Session is not safe for concurrent use: a single event loop applies the
// actions and drains Results. Fetches run in their own goroutines and only
// ever send on the results channel.
type Session struct {
	desc     *Descriptor
	levels   []Level
	baseName string
	loader   Loader
	opts     Options
	state    State

	ctx    context.Context
	cancel context.CancelFunc

	generation uint64
	placements []Placement
	inflight   map[TileID]fetch
	rendered   map[TileID][]byte
	results    chan TileResult
}

// Open starts a session on the descriptor, fitted to a container of the
// given size, at the home view. Call Refresh to start loading tiles.
func Open(ctx context.Context, desc *Descriptor, baseName string, loader Loader, opts Options, width, height float64) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		desc:     desc,
		levels:   Levels(desc),
		baseName: baseName,
		loader:   loader,
		opts:     opts.Fit(desc, width, height),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[TileID]fetch),
		rendered: make(map[TileID][]byte),
		results:  make(chan TileResult),
	}
	s.state = s.opts.Reset(Home())
	debug("session open on %s (%d levels)", baseName, len(s.levels))
	return s
}

// Descriptor returns the descriptor being viewed.
func (s *Session) Descriptor() *Descriptor {
	return s.desc
}

// Levels returns the pyramid.
func (s *Session) Levels() []Level {
	return s.levels
}

// Options returns the fitted options.
func (s *Session) Options() Options {
	return s.opts
}

// State returns the current pan/zoom state.
func (s *Session) State() State {
	return s.state
}

// View returns what is currently visible.
func (s *Session) View() View {
	return s.opts.View(s.state)
}

// Placements returns the tiles selected by the last Refresh.
func (s *Session) Placements() []Placement {
	return s.placements
}

// Path is the relative location of a tile of this image.
func (s *Session) Path(id TileID) string {
	return id.Path(s.baseName, s.desc.Format)
}

// Results delivers fetched tiles. Pass them to Accept.
func (s *Session) Results() <-chan TileResult {
	return s.results
}

// Apply runs a transition then refreshes the tile set.
func (s *Session) Apply(a Action) ([]Placement, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}
	s.state = s.opts.Apply(s.state, a)
	return s.Refresh()
}

// Refresh selects the tiles for the current state. Fetches of tiles that
// are no longer needed are cancelled, missing tiles start loading.
func (s *Session) Refresh() ([]Placement, error) {
	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	s.generation++
	s.placements = TilesFor(s.levels, s.desc.TileSize, s.desc.Overlap, s.View())

	wanted := make(map[TileID]bool, len(s.placements))
	for _, p := range s.placements {
		wanted[p.TileID] = true
	}

	for id, f := range s.inflight {
		if !wanted[id] {
			debug("cancel %s", id)
			f.cancel()
			delete(s.inflight, id)
		}
	}
	for id := range s.rendered {
		if !wanted[id] {
			delete(s.rendered, id)
		}
	}

	for _, p := range s.placements {
		if _, ok := s.rendered[p.TileID]; ok {
			continue
		}
		if _, ok := s.inflight[p.TileID]; ok {
			continue
		}
		s.start(p.TileID)
	}

	return s.placements, nil
}

func (s *Session) start(id TileID) {
	ctx, cancel := context.WithCancel(s.ctx)
	generation := s.generation
	s.inflight[id] = fetch{generation, cancel}

	go func() {
		data, err := s.loader.Load(ctx, id)
		r := TileResult{TileID: id, Generation: generation, Data: data, Err: err}
		select {
		case s.results <- r:
		case <-ctx.Done():
		}
	}()
}

// Pending is the number of fetches still running.
func (s *Session) Pending() int {
	return len(s.inflight)
}

// Accept records a fetched tile. It returns false when the result is stale:
// its tile left the view, or a newer fetch of it was started since.
func (s *Session) Accept(r TileResult) bool {
	f, ok := s.inflight[r.TileID]
	if !ok || f.generation != r.Generation {
		debug("discard stale %s (generation %d)", r.TileID, r.Generation)
		return false
	}
	f.cancel()
	delete(s.inflight, r.TileID)
	if r.Err != nil {
		debug("tile %s failed: %v", r.TileID, r.Err)
		return true
	}
	s.rendered[r.TileID] = r.Data
	return true
}

// Tile returns the bytes of a displayed tile.
func (s *Session) Tile(id TileID) ([]byte, bool) {
	data, ok := s.rendered[id]
	return data, ok
}

// Close cancels every fetch. The session cannot be used afterwards.
func (s *Session) Close() {
	s.cancel()
	s.inflight = make(map[TileID]fetch)
	s.rendered = make(map[TileID][]byte)
	s.placements = nil
	debug("session closed on %s", s.baseName)
}
