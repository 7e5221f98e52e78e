package dzi

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Record is one card of the gallery.
type Record struct {
	ID          string `toml:"id" json:"id" mapstructure:"id"`
	Title       string `toml:"title" json:"title" mapstructure:"title"`
	Description string `toml:"description" json:"description" mapstructure:"desc"`
	// Source is the descriptor path, relative to the images directory.
	Source    string `toml:"source" json:"source,omitempty" mapstructure:"dzi"`
	Thumbnail string `toml:"thumbnail" json:"thumbnail,omitempty" mapstructure:"thumbnail"`
	// Redirect sends the visitor elsewhere instead of opening the viewer.
	Redirect string `toml:"redirect" json:"redirect,omitempty" mapstructure:"redirect"`
}

// BaseName is the descriptor path without its extension, the prefix of the
// tiles folder.
func (r Record) BaseName() string {
	return strings.TrimSuffix(r.Source, path.Ext(r.Source))
}

// RecordFromDataset reads a record from the data-* attributes of a legacy
// gallery card, keys given without the "data-" prefix.
func RecordFromDataset(dataset map[string]string) (Record, error) {
	var r Record
	if err := mapstructure.Decode(dataset, &r); err != nil {
		return r, err
	}
	if r.ID == "" {
		r.ID = BaseName(r.Source)
	}
	if r.ID == "" {
		return r, fmt.Errorf("card has neither an id nor a dzi source")
	}
	if r.Source == "" && r.Redirect == "" {
		return r, fmt.Errorf("card %q has neither a dzi source nor a redirect", r.ID)
	}
	return r, nil
}

// Gallery is the ordered list of records.
type Gallery struct {
	records []Record
	index   map[string]int
}

// NewGallery indexes the records by ID.
func NewGallery(records []Record) (*Gallery, error) {
	g := &Gallery{
		records: records,
		index:   make(map[string]int, len(records)),
	}
	for i, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("record %d has no id", i)
		}
		if strings.ContainsAny(r.ID, "/") {
			return nil, fmt.Errorf("record id %q contains a slash", r.ID)
		}
		if _, ok := g.index[r.ID]; ok {
			return nil, fmt.Errorf("duplicate record id %q", r.ID)
		}
		g.index[r.ID] = i
	}
	return g, nil
}

// Records returns the records in gallery order.
func (g *Gallery) Records() []Record {
	return g.records
}

// Lookup finds a record by ID.
func (g *Gallery) Lookup(id string) (Record, bool) {
	i, ok := g.index[id]
	if !ok {
		return Record{}, false
	}
	return g.records[i], true
}

// Open handles a click on a card. A record with a redirect returns it and
// the viewer is never opened; otherwise open builds the session.
func (g *Gallery) Open(ctx context.Context, id string, open func(context.Context, Record) (*Session, error)) (*Session, string, error) {
	r, ok := g.Lookup(id)
	if !ok {
		return nil, "", fmt.Errorf("unknown record %q", id)
	}
	if r.Redirect != "" {
		debug("record %s redirects to %s", id, r.Redirect)
		return nil, r.Redirect, nil
	}
	s, err := open(ctx, r)
	if err != nil {
		return nil, "", err
	}
	return s, "", nil
}
