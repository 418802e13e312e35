// Package previewcache implements an on-disk cache of derived image
// previews keyed by (eventId, targetDimension), using a bucket/key
// directory layout and cleaned up by a background sweep.
package previewcache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/xattr"
	"github.com/rs/zerolog/log"
)

// dimensions is the fixed ladder a requested size is rounded up to.
var dimensions = []int{256, 512, 768, 1024}

// RoundDimension rounds requested up to the smallest member of {256, 512,
// 768, 1024} that is >= requested, or the largest if requested exceeds it.
func RoundDimension(requested int) int {
	for _, d := range dimensions {
		if requested <= d {
			return d
		}
	}
	return dimensions[len(dimensions)-1]
}

const (
	xattrEventModified = "user.pryv.eventModified"
	xattrLastAccessed  = "user.pryv.lastAccessed"
)

// Cache stores derived previews under basePath/<eventId>/<dimension>.
type Cache struct {
	basePath    string
	xattrUsable bool
}

// New creates a Cache rooted at basePath, probing once at construction
// whether the filesystem supports extended attributes; if not, metadata
// falls back to a JSON sidecar file alongside each preview.
func New(basePath string) (*Cache, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating preview cache dir: %w", err)
	}

	c := &Cache{basePath: basePath}
	c.xattrUsable = probeXattr(basePath)
	if !c.xattrUsable {
		log.Warn().Str("path", basePath).Msg("filesystem does not support extended attributes, falling back to sidecar metadata")
	}
	return c, nil
}

func probeXattr(basePath string) bool {
	probe := filepath.Join(basePath, ".xattr-probe")
	if err := os.WriteFile(probe, []byte{}, 0644); err != nil {
		return false
	}
	defer os.Remove(probe)

	err := xattr.Set(probe, xattrEventModified, []byte("0"))
	return err == nil
}

func (c *Cache) path(eventID string, dimension int) string {
	return filepath.Join(c.basePath, sanitizeComponent(eventID), fmt.Sprintf("%d.bin", dimension))
}

// sanitizeComponent strips path separators so an eventId can never escape
// basePath, the same defensive posture filesystem.go's validatePath takes.
func sanitizeComponent(id string) string {
	id = strings.ReplaceAll(id, "/", "_")
	id = strings.ReplaceAll(id, "\\", "_")
	id = strings.ReplaceAll(id, "..", "_")
	return id
}

// Lookup returns the cached preview for (eventID, dimension) if present and
// at least as fresh as eventModified, stamping lastAccessed on a hit.
// A miss (ok=false) is not an error: callers generate and Put the preview.
func (c *Cache) Lookup(ctx context.Context, eventID string, dimension int, eventModified float64) (r io.ReadCloser, ok bool, err error) {
	dimension = RoundDimension(dimension)
	path := c.path(eventID, dimension)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("opening cached preview: %w", err)
	}

	meta, err := c.readMeta(path)
	if err != nil {
		f.Close()
		return nil, false, fmt.Errorf("reading preview metadata: %w", err)
	}
	if meta.eventModified < eventModified {
		f.Close()
		return nil, false, nil
	}

	if err := c.touch(path, meta.eventModified); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to stamp lastAccessed on preview hit")
	}

	return f, true, nil
}

// Put stores data as the preview for (eventID, dimension), stamping both
// extended attributes fresh.
func (c *Cache) Put(ctx context.Context, eventID string, dimension int, eventModified float64, data io.Reader) error {
	dimension = RoundDimension(dimension)
	path := c.path(eventID, dimension)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating preview directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating preview file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("writing preview: %w", err)
	}

	now := float64(time.Now().Unix())
	return c.writeMeta(path, previewMeta{eventModified: eventModified, lastAccessed: now})
}

type previewMeta struct {
	eventModified float64
	lastAccessed  float64
}

func (c *Cache) touch(path string, eventModified float64) error {
	return c.writeMeta(path, previewMeta{eventModified: eventModified, lastAccessed: float64(time.Now().Unix())})
}

func (c *Cache) readMeta(path string) (previewMeta, error) {
	if c.xattrUsable {
		return readMetaXattr(path)
	}
	return readMetaSidecar(path)
}

func (c *Cache) writeMeta(path string, meta previewMeta) error {
	if c.xattrUsable {
		return writeMetaXattr(path, meta)
	}
	return writeMetaSidecar(path, meta)
}
