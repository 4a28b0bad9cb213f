package itemcache

import (
	"context"
	"time"

	"github.com/peerworks/classifierd/pkg/metrics"
)

// StartPurger launches the purger thread: every purgeInterval it computes
// a purge cutoff and evicts every item at or before it, from both the
// in-memory index and the durable store.
func (c *Cache) StartPurger(ctx context.Context) {
	c.wg.Add(1)
	go c.purgeLoop(ctx)
}

func (c *Cache) purgeLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PurgeOldItems(ctx)
		}
	}
}

// purgeTime computes the retention cutoff exactly as the original does:
// take the current UTC time, decrement its month field by one and its
// day-of-month field by one, and let normalization (the same overflow
// rules time.Date applies as C's timegm) resolve whatever that produces.
// This is intentionally not "one month and one day ago" in the calendar
// sense near month boundaries — it is carried over unchanged.
func purgeTime(now time.Time) time.Time {
	u := now.UTC()
	return time.Date(u.Year(), u.Month()-1, u.Day()-1, u.Hour(), u.Minute(), u.Second(), 0, time.UTC)
}

// PurgeOldItems evicts every item at or before the current purge cutoff.
// Items are kept in inOrder sorted newest-first, so the oldest items form
// a contiguous tail and the cutoff point is a single scan from the back.
func (c *Cache) PurgeOldItems(ctx context.Context) {
	cutoff := purgeTime(time.Now())

	c.mu.Lock()
	cut := len(c.inOrder)
	for cut > 0 && !c.inOrder[cut-1].CreatedAt.After(cutoff) {
		cut--
	}
	purged := c.inOrder[cut:]
	c.inOrder = c.inOrder[:cut]
	for _, item := range purged {
		delete(c.byID, item.ID)
	}
	remaining := len(c.inOrder)
	c.mu.Unlock()

	metrics.ItemCacheSize.Set(float64(remaining))

	if len(purged) == 0 {
		c.log.Info("purge complete", "purged", 0)
		return
	}

	metrics.ItemCachePurgedTotal.Add(float64(len(purged)))

	ids := make([]int64, len(purged))
	for i, item := range purged {
		ids[i] = item.ID
	}
	if err := c.purgeFromStore(ctx, ids); err != nil {
		c.log.Error("failed to purge items from store", "error", err)
	}
	c.log.Info("purge complete", "purged", len(purged))
}

func (c *Cache) purgeFromStore(ctx context.Context, ids []int64) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM items WHERE id = ANY($1)`, idsToArray(ids))
	return err
}

func idsToArray(ids []int64) []int64 {
	// pgx encodes []int64 as a Postgres bigint[] directly; kept as its
	// own function so the conversion site is obvious if that ever needs
	// to change to pq.Array or similar.
	return ids
}
