package eventstore

import (
	"container/list"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/metrics"
)

// Mall is the bounded pool of open per-user event databases: at most
// cfg.MallSize *DB instances are kept open at once, least-recently-used
// evicted first. Shares its mutex-guarded map-plus-list shape with
// internal/usersindex's lru, generalised from string values to *DB values
// that must be closed on eviction rather than simply dropped.
type Mall struct {
	mu       sync.Mutex
	cfg      *config.DatabaseConfig
	dir      string
	capacity int

	entries map[string]*list.Element
	order   *list.List
}

type mallEntry struct {
	userID string
	db     *DB
}

// NewMall creates a Mall that opens per-user databases under dir, named
// "<userID>.db", using cfg for every connection's pragmas and retry budget.
func NewMall(cfg *config.DatabaseConfig, dir string) *Mall {
	capacity := cfg.MallSize
	if capacity <= 0 {
		capacity = config.DefaultMallSize
	}

	return &Mall{
		cfg:      cfg,
		dir:      dir,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the open *DB for userID, opening (and migrating, if new) it
// first if it isn't already in the pool, and evicting the least-recently
// used entry if the pool is at capacity.
func (m *Mall) Get(ctx context.Context, userID string) (*DB, error) {
	m.mu.Lock()

	if el, ok := m.entries[userID]; ok {
		m.order.MoveToFront(el)
		db := el.Value.(*mallEntry).db
		m.mu.Unlock()
		return db, nil
	}

	m.mu.Unlock()

	db, err := Open(m.cfg, m.path(userID))
	if err != nil {
		return nil, fmt.Errorf("opening event database for user %s: %w", userID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[userID]; ok {
		m.order.MoveToFront(el)
		_ = db.Close()
		return el.Value.(*mallEntry).db, nil
	}

	el := m.order.PushFront(&mallEntry{userID: userID, db: db})
	m.entries[userID] = el

	for m.order.Len() > m.capacity {
		m.evictOldestLocked()
	}

	metrics.UpdateMallStats(m.order.Len())
	return db, nil
}

// Len reports the number of per-user databases currently open in the pool.
func (m *Mall) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

// Evict closes and drops userID's database, if open. Used when a user is
// deleted so its file can be removed out from under a live pool entry.
func (m *Mall) Evict(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[userID]
	if !ok {
		return nil
	}
	return m.removeLocked(el)
}

// Delete evicts userID's database (if open) and removes its file from
// disk, including WAL/SHM siblings, for the users.delete pipeline stage.
func (m *Mall) Delete(userID string) error {
	if err := m.Evict(userID); err != nil {
		return fmt.Errorf("closing event database before delete: %w", err)
	}

	path := m.path(userID)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path+suffix, err)
		}
	}
	return nil
}

// Close closes every open database in the pool.
func (m *Mall) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for m.order.Len() > 0 {
		if err := m.evictOldestLocked(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Mall) evictOldestLocked() error {
	oldest := m.order.Back()
	if oldest == nil {
		return nil
	}
	return m.removeLocked(oldest)
}

func (m *Mall) removeLocked(el *list.Element) error {
	entry := el.Value.(*mallEntry)
	m.order.Remove(el)
	delete(m.entries, entry.userID)
	forgetBreaker(entry.db)
	metrics.UpdateMallStats(m.order.Len())
	return entry.db.Close()
}

func (m *Mall) path(userID string) string {
	return filepath.Join(m.dir, userID+".db")
}
