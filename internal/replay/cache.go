// ABOUTME: Thread-safe TTL cache of replies keyed by agent and request id.
// ABOUTME: Lets transports answer a retried request without re-running the turn.

package replay

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/2389/pacman-gateway/internal/game"
	"github.com/2389/pacman-gateway/internal/message"
)

// cacheEntry stores a reply, when it was stored and its place in the order list.
type cacheEntry struct {
	reply     message.Envelope
	timestamp time.Time
	element   *list.Element
}

// Cache is a TTL-based, size-limited store of replies. The oldest entry is
// evicted when the cache is full.
type Cache struct {
	mu      sync.RWMutex
	replies map[string]*cacheEntry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a replay cache. A background goroutine drops expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		replies: make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Key builds the cache key for a request. Request ids are only unique per
// agent, so the agent id is part of the key.
func Key(id game.AgentID, requestID string) string {
	return strconv.Itoa(int(id)) + "/" + requestID
}

// Get returns the stored reply for key if it has not expired.
func (c *Cache) Get(key string) (message.Envelope, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.replies[key]
	if !ok || time.Since(entry.timestamp) >= c.ttl {
		return message.Envelope{}, false
	}
	return entry.reply, true
}

// Put stores reply under key, replacing any earlier reply.
func (c *Cache) Put(key string, reply message.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if entry, exists := c.replies[key]; exists {
		entry.reply = reply
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if c.maxSize > 0 && len(c.replies) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.replies[key] = &cacheEntry{
		reply:     reply,
		timestamp: now,
		element:   elem,
	}
}

// Len returns the number of stored replies, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.replies)
}

// evictOldest must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.replies, key)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.replies {
		if now.Sub(entry.timestamp) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.replies, key)
		}
	}
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
