// Package storage holds floor images in an object store.  The service
// only needs two calls, so ObjectStore stays narrow; S3Store talks to
// AWS S3 or any S3-compatible endpoint and MemoryStore backs tests.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotConfigured is returned by a nil or disabled store.
var ErrNotConfigured = errors.New("object storage not configured")

// ObjectStore uploads and removes objects by key.
type ObjectStore interface {
	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes key.  Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// extByType lists the raster types accepted for floor images.
var extByType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageType sniffs data and returns its media type when it is one of
// the accepted raster types, or "".  Declared types are not consulted.
func ImageType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	ct := strings.SplitN(mimetype.Detect(data).String(), ";", 2)[0]
	if _, ok := extByType[ct]; ok {
		return ct
	}
	return ""
}

// FloorImageKey builds floors/<mapSlug>/<floorID>/<unixMillis><ext>.
// The timestamp keeps re-uploads from overwriting a cached object.
// ext is derived from contentType, falling back to the uploaded file
// name.
func FloorImageKey(mapSlug string, floorID uint64, fileName, contentType string, at time.Time) string {
	ext, ok := extByType[strings.ToLower(contentType)]
	if !ok {
		ext = strings.ToLower(path.Ext(fileName))
	}
	return fmt.Sprintf("floors/%s/%d/%d%s", mapSlug, floorID, at.UnixMilli(), ext)
}

// MemoryStore keeps objects in a map.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: map[string][]byte{}}
}

func (m *MemoryStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return m.BaseURL + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Has reports whether key is stored.
func (m *MemoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
