package server

import (
	"net/http"

	"github.com/golang/groupcache"
	"github.com/gorilla/mux"

	d "github.com/tj/go-debug"
)

var debug = d.Debug("dzi:server")

// MakeRouter construct the basic router (no middlewares)
func MakeRouter() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", IndexHandler).Methods("GET", "HEAD")
	router.HandleFunc("/inspect", InspectHandler).Methods("POST")
	router.HandleFunc("/{id}.dzi", DescriptorHandler)
	router.HandleFunc("/{id}/info.json", InfoHandler)
	router.HandleFunc("/{id}/tiles.json", TilesHandler)
	router.HandleFunc("/{id}/viewport.json", ViewportHandler).Methods("POST")
	router.HandleFunc("/{id}_files/{level:[0-9]+}/{column:[0-9]+}_{row:[0-9]+}.{format}", TileHandler)
	router.HandleFunc("/{id}/{viewer}.html", ViewerHandler)
	router.HandleFunc("/{id}", RedirectHandler)

	return router
}

// NewHandler wires the router with the configuration, the gallery and the
// caches.
func NewHandler(config *Config) (http.Handler, error) {
	gallery, err := NewGallery(config)
	if err != nil {
		return nil, err
	}

	h := MakeRouter()
	h = WithGallery(h, gallery)
	h = WithConfig(h, config)
	return SetGroupCache(h, config), nil
}

// SetGroupCache set the two caches for descriptors and tiles.
func SetGroupCache(router http.Handler, config *Config) http.Handler {
	descriptors := cacheGroup("descriptors", config.Cache.DescriptorsSize, fileGetter(config.Images))
	tiles := cacheGroup("tiles", config.Cache.TilesSize, fileGetter(config.Images))

	return WithGroupCaches(router, map[string]*groupcache.Group{
		"descriptors": descriptors,
		"tiles":       tiles,
	})
}

// cacheGroup reuses a group of the same name, groupcache refusing to
// register it twice.
func cacheGroup(name string, size int64, getter groupcache.Getter) *groupcache.Group {
	if group := groupcache.GetGroup(name); group != nil {
		return group
	}
	return groupcache.NewGroup(name, size, getter)
}

// WithPeers shares the caches with the other servers, self being the base
// URL of this one. groupcache allows it once per process, before the first
// request.
func WithPeers(h http.Handler, self string, peers ...string) http.Handler {
	pool := groupcache.NewHTTPPoolOpts(self, nil)
	pool.Set(append([]string{self}, peers...)...)

	mux := http.NewServeMux()
	mux.Handle("/_groupcache/", pool)
	mux.Handle("/", h)
	return mux
}
