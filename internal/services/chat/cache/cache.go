// Package cache memoizes translations keyed by language pair and normalized
// text. Entries expire a fixed TTL after insertion and the store never holds
// more than MaxEntries, evicting the least recently used entry first.
package cache

import (
	"container/list"
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

const (
	// DefaultMaxEntries bounds the cache when Options.MaxEntries is unset.
	DefaultMaxEntries = 1000
	// DefaultTTL is the entry lifetime when Options.TTL is unset.
	DefaultTTL = time.Hour
)

// Options configures a Cache.
type Options struct {
	MaxEntries int
	TTL        time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits       uint64  `json:"hits"`
	Misses     uint64  `json:"misses"`
	Size       int     `json:"size"`
	MaxEntries int     `json:"max_entries"`
	HitRate    float64 `json:"hit_rate"`
}

type key struct {
	source string
	target string
	text   string
}

type entry struct {
	key        key
	translated string
	insertedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	order      *list.List
	entries    map[key]*list.Element
	hits       uint64
	misses     uint64
}

// New builds an empty cache.
func New(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		maxEntries: opts.MaxEntries,
		ttl:        opts.TTL,
		now:        opts.Now,
		order:      list.New(),
		entries:    make(map[key]*list.Element),
	}
}

// NormalizeText trims surrounding whitespace and applies Unicode case folding.
func NormalizeText(text string) string {
	// Casers are stateful; one per call.
	return cases.Fold().String(strings.TrimSpace(text))
}

func newKey(source, target, text string) key {
	return key{
		source: strings.ToLower(strings.TrimSpace(source)),
		target: strings.ToLower(strings.TrimSpace(target)),
		text:   NormalizeText(text),
	}
}

// Lookup returns the cached translation of text from source to target.
// An expired entry is removed and reported as a miss.
func (c *Cache) Lookup(source, target, text string) (string, bool) {
	k := newKey(source, target, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[k]
	if !ok {
		c.misses++
		return "", false
	}
	e := elem.Value.(*entry)
	if c.expired(e) {
		c.removeElement(elem)
		c.misses++
		return "", false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return e.translated, true
}

// Peek is Lookup without touching hit/miss counters or recency. Expired
// entries read as absent.
func (c *Cache) Peek(source, target, text string) (string, bool) {
	k := newKey(source, target, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[k]
	if !ok {
		return "", false
	}
	e := elem.Value.(*entry)
	if c.expired(e) {
		return "", false
	}
	return e.translated, true
}

// Store records translated for (source, target, text), replacing any existing
// entry and evicting least recently used entries beyond the bound.
func (c *Cache) Store(source, target, text, translated string) {
	k := newKey(source, target, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if elem, ok := c.entries[k]; ok {
		e := elem.Value.(*entry)
		e.translated = translated
		e.insertedAt = now
		c.order.MoveToFront(elem)
		return
	}
	c.entries[k] = c.order.PushFront(&entry{key: k, translated: translated, insertedAt: now})
	for c.order.Len() > c.maxEntries {
		c.removeElement(c.order.Back())
	}
}

// PurgeExpired removes every expired entry and returns how many were removed.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*entry)) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Clear drops every entry and returns how many were removed. Hit and miss
// counters are kept.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := c.order.Len()
	c.order.Init()
	clear(c.entries)
	return removed
}

// Len reports the current number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns counters and size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Size:       c.order.Len(),
		MaxEntries: c.maxEntries,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Run purges expired entries every interval until ctx ends.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.PurgeExpired(); removed > 0 {
				log.Printf("chat: cache purged %d expired entries", removed)
			}
		}
	}
}

func (c *Cache) expired(e *entry) bool {
	return !c.now().Before(e.insertedAt.Add(c.ttl))
}

func (c *Cache) removeElement(elem *list.Element) {
	e := c.order.Remove(elem).(*entry)
	delete(c.entries, e.key)
}
