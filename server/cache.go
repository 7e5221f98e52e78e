package server

import (
	"context"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/groupcache"
	"github.com/golang/protobuf/proto"
)

// CachedFile is a file as stored in groupcache, see file.proto.
type CachedFile struct {
	ModTime []byte `protobuf:"bytes,1,opt,name=mod_time,json=modTime,proto3" json:"mod_time,omitempty"`
	Buffer  []byte `protobuf:"bytes,2,opt,name=buffer,proto3" json:"buffer,omitempty"`
}

func (m *CachedFile) Reset()         { *m = CachedFile{} }
func (m *CachedFile) String() string { return proto.CompactTextString(m) }
func (*CachedFile) ProtoMessage()    {}

// GetModTime returns the binary encoded modification time.
func (m *CachedFile) GetModTime() []byte {
	if m != nil {
		return m.ModTime
	}
	return nil
}

// GetBuffer returns the file content.
func (m *CachedFile) GetBuffer() []byte {
	if m != nil {
		return m.Buffer
	}
	return nil
}

// Time decodes the modification time, now when missing.
func (m *CachedFile) Time() time.Time {
	modTime := time.Now()
	if b := m.GetModTime(); b != nil {
		_ = modTime.UnmarshalBinary(b)
	}
	return modTime
}

// loadFile reads a file below root, name being slash separated.
func loadFile(root, name string) (*CachedFile, error) {
	name = strings.Replace(name, "../", "", -1)
	filename := filepath.Join(root, filepath.FromSlash(name))

	stat, err := os.Stat(filename)
	if err != nil || stat.IsDir() {
		debug("Cannot open file %#v: %v", filename, err)
		return nil, HTTPError{http.StatusNotFound, name}
	}

	buffer, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, HTTPError{http.StatusInternalServerError, err.Error()}
	}

	binTime, _ := stat.ModTime().MarshalBinary()
	return &CachedFile{binTime, buffer}, nil
}

// readFile goes through the cache group when there is one.
func readFile(ctx context.Context, root, name string, cache *groupcache.Group) (*CachedFile, error) {
	if cache == nil {
		return loadFile(root, name)
	}

	file := new(CachedFile)
	if err := cache.Get(ctx, name, groupcache.ProtoSink(file)); err != nil {
		return nil, err
	}
	debug("From cache %v", name)
	return file, nil
}

// fileGetter fills a cache group from the disk.
func fileGetter(root string) groupcache.Getter {
	return groupcache.GetterFunc(
		func(_ context.Context, key string, dest groupcache.Sink) error {
			file, err := loadFile(root, key)
			if err != nil {
				return err
			}
			debug("Caching %s", key)
			return dest.SetProto(file)
		},
	)
}
