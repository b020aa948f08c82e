package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/document-rectify-mcp/internal/docerr"
)

// ImageCache provides thread-safe caching of decoded source photographs.
//
// Entries are keyed by path and invalidated when the file's modification
// time or size changes, so a re-captured photo written to the same path is
// picked up. The cache holds at most capacity images and evicts the least
// recently used entry first.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(16)
//	img, err := cache.Load("/path/to/receipt.jpg")
//	if err != nil {
//	    return err
//	}
type ImageCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*cacheEntry
	order    []string // least recently used first
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// NewImageCache creates an empty cache holding up to capacity images.
// A capacity below 1 is treated as 1.
func NewImageCache(capacity int) *ImageCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ImageCache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

// Load returns the decoded image at path, reading from disk when the path
// is not cached or the file changed since it was cached.
//
// JPEG EXIF orientation is applied on decode so phone photos come out
// upright. An undecodable or zero-size file yields an InvalidInput error.
func (c *ImageCache) Load(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.touch(path)
		c.mu.Unlock()
		return e.img, nil
	}
	c.mu.Unlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, docerr.New(docerr.InvalidInput, "loader", "failed to decode image", err)
	}
	if err := Validate(img); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		c.order = append(c.order, path)
	} else {
		c.touch(path)
	}
	c.entries[path] = &cacheEntry{img: img, modTime: info.ModTime(), size: info.Size()}
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; !ok {
		return
	}
	delete(c.entries, path)
	c.remove(path)
}

// touch moves path to the most recently used position. Caller holds mu.
func (c *ImageCache) touch(path string) {
	c.remove(path)
	c.order = append(c.order, path)
}

func (c *ImageCache) remove(path string) {
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
