// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package cache

import (
	"sync"
	"time"
)

type lruEntry struct {
	key       string
	prev      *lruEntry
	next      *lruEntry
	expiresAt time.Time
}

// LRUCache is a bounded set of recently seen keys, used to recognise event
// ids that were already applied. When full, the least recently seen key is
// evicted. All methods are safe for concurrent use.
//
// A zero ttl keeps keys until they are evicted by capacity.
type LRUCache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time

	items map[string]*lruEntry

	// head.next is the newest key, tail.prev the oldest.
	head *lruEntry
	tail *lruEntry

	hits   int64
	misses int64
}

// NewLRUCache creates a cache holding at most capacity keys.
func NewLRUCache(capacity int, ttl time.Duration) *LRUCache {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &LRUCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]*lruEntry, capacity),
		head:     &lruEntry{},
		tail:     &lruEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Capacity returns the maximum number of keys kept.
func (c *LRUCache) Capacity() int {
	return c.capacity
}

// Contains reports whether key was seen and has not expired. It does not
// refresh the key's position.
func (c *LRUCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		c.misses++
		return false
	}
	if c.expired(entry) {
		c.removeEntry(entry)
		c.misses++
		return false
	}
	c.hits++
	return true
}

// Add records key as the most recently seen.
func (c *LRUCache) Add(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(key)
}

// IsDuplicate reports whether key was already seen, recording it if not.
func (c *LRUCache) IsDuplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		if !c.expired(entry) {
			c.moveToFront(entry)
			c.hits++
			return true
		}
		c.removeEntry(entry)
	}

	c.add(key)
	c.misses++
	return false
}

// Remove forgets key. It returns false if key was not present.
func (c *LRUCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.items[key]; ok {
		c.removeEntry(entry)
		return true
	}
	return false
}

// Keys returns the live keys from oldest to newest, so that adding them
// back in order rebuilds the same cache.
func (c *LRUCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for entry := c.tail.prev; entry != c.head; entry = entry.prev {
		if !c.expired(entry) {
			keys = append(keys, entry.key)
		}
	}
	return keys
}

// Len returns the number of keys held, expired or not.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Clear removes every key.
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruEntry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats returns hit and miss counts and the current size.
func (c *LRUCache) Stats() (hits, misses int64, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, len(c.items)
}

// The methods below must be called with mu held.

func (c *LRUCache) add(key string) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl)
	}

	if entry, ok := c.items[key]; ok {
		entry.expiresAt = expiresAt
		c.moveToFront(entry)
		return
	}

	entry := &lruEntry{key: key, expiresAt: expiresAt}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		c.evictOldest()
	}
}

func (c *LRUCache) expired(entry *lruEntry) bool {
	return !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt)
}

func (c *LRUCache) addToFront(entry *lruEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *LRUCache) moveToFront(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *LRUCache) removeEntry(entry *lruEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}

func (c *LRUCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
