package previewcache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SweepService periodically evicts previews whose lastAccessed exceeds
// maxAge: a ticker-driven background loop running as a sync.WaitGroup-
// tracked goroutine. A sweep already in flight blocks a second from
// starting, so sweeps never overlap.
type SweepService struct {
	cache    *Cache
	maxAge   time.Duration
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup

	sweeping sync.Mutex
}

// NewSweepService creates a SweepService over cache, sweeping every
// interval (default one hour) for previews untouched longer than maxAge.
func NewSweepService(cache *Cache, maxAge, interval time.Duration) *SweepService {
	if interval == 0 {
		interval = time.Hour
	}
	return &SweepService{cache: cache, maxAge: maxAge, interval: interval}
}

// Start launches the background sweep loop. Stop must be called to release
// its goroutine.
func (s *SweepService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	log.Info().Dur("interval", s.interval).Dur("max_age", s.maxAge).Msg("preview cache sweep started")
}

// Stop cancels the loop and waits for the in-flight sweep, if any, to finish.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	log.Info().Msg("preview cache sweep stopped")
}

func (s *SweepService) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.RunOnce(ctx)
			if err != nil {
				log.Error().Err(err).Msg("preview cache sweep failed")
			} else if deleted > 0 {
				log.Info().Int("deleted", deleted).Msg("preview cache sweep evicted stale previews")
			}
		}
	}
}

// RunOnce walks the cache directory once, deleting every preview (and its
// metadata) whose lastAccessed is older than maxAge. It yields between
// files via the directory walk itself and logs-and-skips per-file errors
// rather than aborting the sweep, so one bad file never stalls eviction of
// the rest.
func (s *SweepService) RunOnce(ctx context.Context) (int, error) {
	if !s.sweeping.TryLock() {
		return 0, nil
	}
	defer s.sweeping.Unlock()

	cutoff := float64(time.Now().Add(-s.maxAge).Unix())
	deleted := 0

	entries, err := os.ReadDir(s.cache.basePath)
	if err != nil {
		return 0, fmt.Errorf("listing preview cache: %w", err)
	}

	for _, dirEntry := range entries {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}
		if !dirEntry.IsDir() {
			continue
		}

		dir := filepath.Join(s.cache.basePath, dirEntry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("failed to list preview event directory, skipping")
			continue
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			name := f.Name()
			if len(name) > len(".meta.json") && name[len(name)-len(".meta.json"):] == ".meta.json" {
				continue
			}

			path := filepath.Join(dir, name)
			meta, err := s.cache.readMeta(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to read preview metadata, skipping")
				continue
			}
			if meta.lastAccessed >= cutoff {
				continue
			}

			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("failed to remove stale preview")
				continue
			}
			_ = os.Remove(sidecarPath(path))
			deleted++
		}
	}

	return deleted, nil
}
