package server

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/groupcache"
	"github.com/greut/dzi/dzi"
)

func TestWithGroupCache(t *testing.T) {
	c := newConfig()
	c.Cache.DescriptorsSize = 1 << 20
	c.Cache.TilesSize = 1 << 20

	var groups []*groupcache.Group
	r := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		groups = append(groups, groupFrom(ctx, "descriptors"), groupFrom(ctx, "tiles"))
	})

	h := SetGroupCache(r, c)
	// a second registration reuses the groups
	h = SetGroupCache(h, c)
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if len(groups) != 2 || groups[0] == nil || groups[1] == nil {
		t.Fatalf("both groups expected in the context, got %v", groups)
	}
	if name := groups[0].Name(); name != "descriptors" {
		t.Errorf("wrong group: got %v want descriptors", name)
	}
	if name := groups[1].Name(); name != "tiles" {
		t.Errorf("wrong group: got %v want tiles", name)
	}
}

func TestContextValues(t *testing.T) {
	c := newConfig()
	gallery, err := NewGallery(c)
	if err != nil {
		log.Fatal(err)
	}

	var config *Config
	var records []dzi.Record
	r := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		config = configFrom(r.Context())
		records = galleryFrom(r.Context()).Records()
	})

	ts := httptest.NewServer(WithGallery(WithConfig(r, c), gallery))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	if config != c {
		t.Errorf("wrong config: got %p want %p", config, c)
	}
	if len(records) != len(c.Gallery) {
		t.Errorf("wrong gallery: got %v records want %v", len(records), len(c.Gallery))
	}
	if configFrom(context.Background()) == nil {
		t.Errorf("an empty config is expected without middleware")
	}
}

func TestReadFile(t *testing.T) {
	group := cacheGroup("descriptors", 1<<20, fileGetter("../fixtures"))

	var tests = []struct {
		name  string
		cache *groupcache.Group
	}{
		{"disk", nil},
		{"cache", group},
	}

	for _, test := range tests {
		file, err := readFile(context.Background(), "../fixtures", "nebula.dzi", test.cache)
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if len(file.GetBuffer()) == 0 {
			t.Errorf("%s: empty file", test.name)
		}
		if file.Time().IsZero() {
			t.Errorf("%s: modification time expected", test.name)
		}

		_, err = readFile(context.Background(), "../fixtures", "../../etc/passwd", test.cache)
		if e, ok := err.(HTTPError); !ok || e.StatusCode != http.StatusNotFound {
			t.Errorf("%s: not found expected, got %v", test.name, err)
		}
	}
}

func TestHTTPError(t *testing.T) {
	err := HTTPError{http.StatusNotFound, "nebula"}
	if msg := err.Error(); msg != "404 (Not Found) nebula" {
		t.Errorf("wrong message: got %#v", msg)
	}
}
