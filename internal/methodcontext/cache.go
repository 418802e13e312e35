package methodcontext

import (
	"container/list"
	"sync"

	"github.com/streamhub/corehub/internal/accesslogic"
)

// AccessCache is the in-process token -> *accesslogic.AccessLogic LRU cache
// MethodContext construction consults before hitting storage, grounded on
// internal/auth/blacklist.go's mutex-guarded map shape (here bounded by size
// rather than TTL, matching internal/usersindex's cache).
type AccessCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type accessCacheEntry struct {
	token string
	al    *accesslogic.AccessLogic
}

func NewAccessCache(capacity int) *AccessCache {
	if capacity <= 0 {
		capacity = 4096
	}
	return &AccessCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *AccessCache) Get(token string) (*accesslogic.AccessLogic, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[token]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*accessCacheEntry).al, true
}

func (c *AccessCache) Put(token string, al *accesslogic.AccessLogic) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[token]; ok {
		el.Value.(*accessCacheEntry).al = al
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&accessCacheEntry{token: token, al: al})
	c.entries[token] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*accessCacheEntry).token)
	}
}

// Invalidate drops the cached entry stored under token (the same key passed
// to Put). The HTTP access handlers do not call it, so a deleted access stays
// cached until it is evicted.
func (c *AccessCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[token]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.entries, token)
}
