package server

import (
	"context"
	"net/http"

	"github.com/golang/groupcache"
	"github.com/greut/dzi/dzi"
)

// ContextKey names the values the handlers find in the request context.
type ContextKey string

// withValues runs h with the values added to the request context.
func withValues(h http.Handler, values map[ContextKey]interface{}) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for k, v := range values {
			ctx = context.WithValue(ctx, k, v)
		}
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithGroupCaches exposes the caches by group name.
func WithGroupCaches(h http.Handler, groups map[string]*groupcache.Group) http.Handler {
	values := make(map[ContextKey]interface{}, len(groups))
	for name, group := range groups {
		values[ContextKey(name)] = group
	}
	return withValues(h, values)
}

// WithConfig exposes the server configuration.
func WithConfig(h http.Handler, config *Config) http.Handler {
	return withValues(h, map[ContextKey]interface{}{"config": config})
}

// WithGallery exposes the gallery records.
func WithGallery(h http.Handler, gallery *dzi.Gallery) http.Handler {
	return withValues(h, map[ContextKey]interface{}{"gallery": gallery})
}

func configFrom(ctx context.Context) *Config {
	config, _ := ctx.Value(ContextKey("config")).(*Config)
	if config == nil {
		return &Config{}
	}
	return config
}

func galleryFrom(ctx context.Context) *dzi.Gallery {
	gallery, _ := ctx.Value(ContextKey("gallery")).(*dzi.Gallery)
	return gallery
}

func groupFrom(ctx context.Context, name string) *groupcache.Group {
	group, _ := ctx.Value(ContextKey(name)).(*groupcache.Group)
	return group
}
