package usersindex

import (
	"container/list"
	"sync"
)

// lru is a small bounded cache mapping usernames to user ids, evicting the
// least-recently-used entry once Capacity is exceeded: a mutex-guarded map
// with explicit invalidation hooks, bounded by size rather than by a
// background TTL sweep since UsersIndex entries never expire on their own —
// only AddUser/DeleteByID/DeleteAll invalidate them.
type lru struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type lruEntry struct {
	username string
	userID   string
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1024
	}
	return &lru{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *lru) get(username string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[username]
	if !ok {
		return "", false
	}
	c.order.MoveToFront(el)
	return el.Value.(*lruEntry).userID, true
}

func (c *lru) put(username, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[username]; ok {
		el.Value.(*lruEntry).userID = userID
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&lruEntry{username: username, userID: userID})
	c.entries[username] = el

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).username)
	}
}

func (c *lru) invalidate(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[username]; ok {
		c.order.Remove(el)
		delete(c.entries, username)
	}
}

func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
