package dzi

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallDescriptor() *Descriptor {
	return &Descriptor{Format: "png", TileSize: 256, Overlap: 1, Width: 300, Height: 200}
}

func drain(t *testing.T, s *Session) {
	t.Helper()
	for s.Pending() > 0 {
		select {
		case r := <-s.Results():
			s.Accept(r)
		case <-time.After(5 * time.Second):
			t.Fatalf("%d fetches never completed", s.Pending())
		}
	}
}

func TestSessionLoadsVisibleTiles(t *testing.T) {
	loader := LoaderFunc(func(ctx context.Context, id TileID) ([]byte, error) {
		return []byte(id.String()), nil
	})

	s := Open(context.Background(), smallDescriptor(), "nebula", loader, DefaultOptions(), 300, 200)
	defer s.Close()

	assert.Equal(t, Home(), s.State())
	assert.Equal(t, 10, len(s.Levels()))

	placements, err := s.Refresh()
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.Equal(t, 2, s.Pending())

	drain(t, s)

	data, ok := s.Tile(TileID{9, 1, 0})
	require.True(t, ok)
	assert.Equal(t, "9/1_0", string(data))
	assert.Equal(t, "nebula_files/9/1_0.png", s.Path(TileID{9, 1, 0}))

	// nothing new to fetch
	_, err = s.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 0, s.Pending())
}

func TestSessionDiscardsStaleTiles(t *testing.T) {
	loader := LoaderFunc(func(ctx context.Context, id TileID) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	s := Open(context.Background(), smallDescriptor(), "nebula", loader, DefaultOptions(), 300, 200)
	defer s.Close()

	_, err := s.Refresh()
	require.NoError(t, err)
	assert.Equal(t, 2, s.Pending())

	_, err = s.Apply(Action{Type: ActionZoomOut})
	require.NoError(t, err)
	placements, err := s.Apply(Action{Type: ActionZoomOut})
	require.NoError(t, err)

	require.Len(t, placements, 1)
	assert.Equal(t, TileID{8, 0, 0}, placements[0].TileID)
	assert.Equal(t, 1, s.Pending())

	assert.False(t, s.Accept(TileResult{TileID: TileID{9, 0, 0}, Generation: 1, Data: []byte("old")}))
	assert.False(t, s.Accept(TileResult{TileID: TileID{8, 0, 0}, Generation: 1, Data: []byte("old")}))
	_, ok := s.Tile(TileID{9, 0, 0})
	assert.False(t, ok)
	_, ok = s.Tile(TileID{8, 0, 0})
	assert.False(t, ok)

	assert.True(t, s.Accept(TileResult{TileID: TileID{8, 0, 0}, Generation: 3, Data: []byte("new")}))
	data, ok := s.Tile(TileID{8, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, "new", string(data))
}

func TestSessionFailedTile(t *testing.T) {
	loader := LoaderFunc(func(ctx context.Context, id TileID) ([]byte, error) {
		return nil, errors.New("not found")
	})

	s := Open(context.Background(), smallDescriptor(), "nebula", loader, DefaultOptions(), 300, 200)
	defer s.Close()

	_, err := s.Refresh()
	require.NoError(t, err)
	drain(t, s)

	_, ok := s.Tile(TileID{9, 0, 0})
	assert.False(t, ok)
}

func TestSessionClose(t *testing.T) {
	started := make(chan struct{}, 2)
	loader := LoaderFunc(func(ctx context.Context, id TileID) ([]byte, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	})

	s := Open(context.Background(), smallDescriptor(), "nebula", loader, DefaultOptions(), 300, 200)
	_, err := s.Refresh()
	require.NoError(t, err)
	<-started

	s.Close()
	assert.Equal(t, 0, s.Pending())
	assert.Empty(t, s.Placements())

	_, err = s.Refresh()
	assert.Equal(t, ErrClosed, err)
	_, err = s.Apply(Action{Type: ActionZoomIn})
	assert.Equal(t, ErrClosed, err)
}

func TestDiskLoader(t *testing.T) {
	dir, err := ioutil.TempDir("", "dzi")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	tiles := filepath.Join(dir, "space", "nebula_files", "0")
	require.NoError(t, os.MkdirAll(tiles, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(tiles, "0_0.png"), []byte("tile"), 0644))

	dl := DiskLoader{Root: dir, BaseName: "space/nebula", Format: "png"}

	data, err := dl.Load(context.Background(), TileID{0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, "tile", string(data))

	_, err = dl.Load(context.Background(), TileID{0, 1, 0})
	assert.True(t, os.IsNotExist(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dl.Load(ctx, TileID{0, 0, 0})
	assert.Equal(t, context.Canceled, err)
}
