package previewcache

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

func TestRoundDimension(t *testing.T) {
	cases := map[int]int{
		1:    256,
		256:  256,
		300:  512,
		512:  512,
		700:  768,
		1000: 1024,
		2000: 1024,
	}
	for requested, want := range cases {
		if got := RoundDimension(requested); got != want {
			t.Errorf("RoundDimension(%d) = %d, want %d", requested, got, want)
		}
	}
}

func TestPutAndLookup(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	data := []byte("preview bytes")
	if err := cache.Put(ctx, "event-1", 300, 1000, bytes.NewReader(data)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	r, ok, err := cache.Lookup(ctx, "event-1", 300, 1000)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading cached preview: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("got %q, want %q", got, data)
	}
}

func TestLookup_Miss(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, ok, err := cache.Lookup(context.Background(), "missing-event", 256, 1000)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss for an unknown event")
	}
}

func TestLookup_StaleEventModifiedMisses(t *testing.T) {
	cache, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := cache.Put(ctx, "event-2", 256, 1000, bytes.NewReader([]byte("v1"))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, ok, err := cache.Lookup(ctx, "event-2", 256, 2000)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected a miss when the cached preview is older than the event's modified time")
	}
}

func TestSweep_RemovesStalePreviews(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := cache.Put(ctx, "event-3", 256, 1000, bytes.NewReader([]byte("stale"))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	path := cache.path("event-3", 256)
	if err := cache.writeMeta(path, previewMeta{eventModified: 1000, lastAccessed: float64(time.Now().Add(-48 * time.Hour).Unix())}); err != nil {
		t.Fatalf("backdating lastAccessed: %v", err)
	}

	sweep := NewSweepService(cache, time.Hour, time.Hour)
	deleted, err := sweep.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted preview, got %d", deleted)
	}

	if _, ok, err := cache.Lookup(ctx, "event-3", 256, 1000); err != nil {
		t.Fatalf("Lookup after sweep: %v", err)
	} else if ok {
		t.Fatal("expected the stale preview to be gone after sweep")
	}
}

func TestSweep_KeepsFreshPreviews(t *testing.T) {
	dir := t.TempDir()
	cache, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	if err := cache.Put(ctx, "event-4", 256, 1000, bytes.NewReader([]byte("fresh"))); err != nil {
		t.Fatalf("Put: %v", err)
	}

	sweep := NewSweepService(cache, time.Hour, time.Hour)
	if _, err := sweep.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if _, ok, err := cache.Lookup(ctx, "event-4", 256, 1000); err != nil {
		t.Fatalf("Lookup after sweep: %v", err)
	} else if !ok {
		t.Fatal("expected a freshly-touched preview to survive the sweep")
	}
}
