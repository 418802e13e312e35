package previewcache

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/xattr"
)

func readMetaXattr(path string) (previewMeta, error) {
	modified, err := readFloatXattr(path, xattrEventModified)
	if err != nil {
		return previewMeta{}, err
	}
	accessed, err := readFloatXattr(path, xattrLastAccessed)
	if err != nil {
		return previewMeta{}, err
	}
	return previewMeta{eventModified: modified, lastAccessed: accessed}, nil
}

func writeMetaXattr(path string, meta previewMeta) error {
	if err := xattr.Set(path, xattrEventModified, []byte(formatFloat(meta.eventModified))); err != nil {
		return fmt.Errorf("setting %s: %w", xattrEventModified, err)
	}
	if err := xattr.Set(path, xattrLastAccessed, []byte(formatFloat(meta.lastAccessed))); err != nil {
		return fmt.Errorf("setting %s: %w", xattrLastAccessed, err)
	}
	return nil
}

func readFloatXattr(path, name string) (float64, error) {
	raw, err := xattr.Get(path, name)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", name, err)
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", name, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type sidecarMeta struct {
	EventModified float64 `json:"eventModified"`
	LastAccessed  float64 `json:"lastAccessed"`
}

func sidecarPath(path string) string { return path + ".meta.json" }

func readMetaSidecar(path string) (previewMeta, error) {
	raw, err := os.ReadFile(sidecarPath(path))
	if err != nil {
		return previewMeta{}, fmt.Errorf("reading sidecar metadata: %w", err)
	}
	var m sidecarMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return previewMeta{}, fmt.Errorf("decoding sidecar metadata: %w", err)
	}
	return previewMeta{eventModified: m.EventModified, lastAccessed: m.LastAccessed}, nil
}

func writeMetaSidecar(path string, meta previewMeta) error {
	raw, err := json.Marshal(sidecarMeta{EventModified: meta.eventModified, LastAccessed: meta.lastAccessed})
	if err != nil {
		return fmt.Errorf("encoding sidecar metadata: %w", err)
	}
	if err := os.WriteFile(sidecarPath(path), raw, 0644); err != nil {
		return fmt.Errorf("writing sidecar metadata: %w", err)
	}
	return nil
}
