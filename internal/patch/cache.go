package patch

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"sync"
)

// DefaultCacheSize bounds a Cache that was created without an explicit
// capacity.
const DefaultCacheSize = 512

// Cache memoizes extraction results keyed by message content, so repeated
// renders of the same message skip the line scan. Keys cover the body and
// the full metadata; two messages only share an entry when their inputs are
// byte-identical, which keeps concurrent renders of different messages from
// ever observing each other's results. Hold one Cache per consumer (the
// archive service owns one); it must not be a package-level global.
type Cache struct {
	mu      sync.RWMutex
	max     int
	entries map[string]cacheEntry
}

type cacheEntry struct {
	extract string
	fold    *Section
}

// NewCache returns a Cache holding at most capacity entries.
// capacity <= 0 selects DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		max:     capacity,
		entries: make(map[string]cacheEntry),
	}
}

// Key returns the content key for a (body, metadata) pair: SHA-1 over the
// length-prefixed body and a canonical rendering of every metadata section.
func Key(body string, meta *Metadata) string {
	h := sha1.New()
	io.WriteString(h, strconv.Itoa(len(body)))
	io.WriteString(h, ":")
	io.WriteString(h, body)
	if meta != nil {
		for _, sec := range meta.DiffSections {
			fmt.Fprintf(h, "|d%d-%d", sec.Start, sec.End)
		}
		if sec := meta.DiffstatSection; sec != nil {
			fmt.Fprintf(h, "|s%d-%d", sec.Start, sec.End)
		}
		for _, sec := range meta.TrailerSections {
			fmt.Fprintf(h, "|t%d-%d", sec.Start, sec.End)
		}
		if meta.SeparatorLine != nil {
			fmt.Fprintf(h, "|c%d", *meta.SeparatorLine)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Extract is Extract with memoization.
func (c *Cache) Extract(body string, meta *Metadata) string {
	return c.get(body, meta).extract
}

// FoldRange is FoldRange with memoization. The returned Section is a copy;
// callers may modify it without poisoning the cache.
func (c *Cache) FoldRange(body string, meta *Metadata) *Section {
	fold := c.get(body, meta).fold
	if fold == nil {
		return nil
	}
	out := *fold
	return &out
}

// Preview derives the preview from the memoized fold range. The prefix join
// itself is cheap enough to redo per call.
func (c *Cache) Preview(body string, meta *Metadata, fallbackLines int) string {
	return previewAt(body, c.get(body, meta).fold, fallbackLines)
}

func (c *Cache) get(body string, meta *Metadata) cacheEntry {
	key := Key(body, meta)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry
	}

	entry = cacheEntry{
		extract: Extract(body, meta),
		fold:    FoldRange(body, meta),
	}

	c.mu.Lock()
	// Entries are tiny and rebuildable, so a full reset is enough eviction.
	if len(c.entries) >= c.max {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[key] = entry
	c.mu.Unlock()

	return entry
}

// Len reports how many entries the cache currently holds.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
