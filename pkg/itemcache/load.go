package itemcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/metrics"
)

// Load populates the in-memory cache from the durable store: every item
// created within LoadItemsSince, newest first both in the query and in the
// cache's resulting index, dropping any with fewer than MinTokens distinct
// tokens. The random-background pool is built from the subset flagged
// random_background in the same pass. Load is meant to run once at
// startup, before any background threads start.
func (c *Cache) Load(ctx context.Context) error {
	cutoff := time.Now().Add(-c.loadItemsSince)

	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_url, created_at, token_counts, random_background
		 FROM items WHERE created_at >= $1 ORDER BY created_at DESC`, cutoff)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	background := corpus.NewPool()
	var items []*corpus.Item

	for rows.Next() {
		var id int64
		var sourceURL string
		var createdAt time.Time
		var rawCounts []byte
		var isBackground bool

		if err := rows.Scan(&id, &sourceURL, &createdAt, &rawCounts, &isBackground); err != nil {
			return fmt.Errorf("scan item row: %w", err)
		}

		var counts map[int64]int
		if err := json.Unmarshal(rawCounts, &counts); err != nil {
			return fmt.Errorf("decode item %d token counts: %w", id, err)
		}

		item := corpus.NewItem(id, sourceURL, createdAt, counts)
		if item.NumTokens() < c.minTokens {
			continue
		}

		items = append(items, item)
		if isBackground {
			background.AddItem(item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate loaded items: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[int64]*corpus.Item, len(items))
	// items is already newest-first: the query orders by created_at DESC
	// and rows are appended in that order as they're scanned.
	c.inOrder = items
	for _, item := range items {
		c.byID[item.ID] = item
	}
	c.background = background
	c.loaded = true
	metrics.ItemCacheSize.Set(float64(len(c.inOrder)))

	return nil
}

// IsLoaded reports whether Load has completed successfully.
func (c *Cache) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// BackgroundPool returns the random-background reference pool built by
// Load. Used by the tagger cache when precomputing a classifier.
func (c *Cache) BackgroundPool() *corpus.Pool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.background
}

// AllItems returns every resident item, newest first.
func (c *Cache) AllItems() []*corpus.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]*corpus.Item, len(c.inOrder))
	copy(items, c.inOrder)
	return items
}

// ItemsSince returns every resident item with CreatedAt strictly after t,
// newest first.
func (c *Cache) ItemsSince(t time.Time) []*corpus.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx := sortSearchAfter(c.inOrder, t)
	items := make([]*corpus.Item, idx)
	copy(items, c.inOrder[:idx])
	return items
}

// sortSearchAfter returns the number of leading items in a newest-first
// slice whose CreatedAt is strictly after t.
func sortSearchAfter(items []*corpus.Item, t time.Time) int {
	lo, hi := 0, len(items)
	for lo < hi {
		mid := (lo + hi) / 2
		if items[mid].CreatedAt.After(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
