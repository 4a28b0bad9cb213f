package itemcache

import (
	"context"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
)

// StartUpdater launches the cache-updater thread: it takes tokenized
// items off the update queue, persists and indexes them, and calls the
// update callback once per run. A run ends either when processingLimit
// items have been folded in, or when the queue goes quiet for
// c.updateWait (cache_update_wait_time) — whichever happens first — so
// bursts of items produce one callback instead of one per item, while a
// trickle still gets a timely callback.
func (c *Cache) StartUpdater(ctx context.Context) {
	c.wg.Add(1)
	go c.updaterLoop(ctx)
}

func (c *Cache) updaterLoop(ctx context.Context) {
	defer c.wg.Done()
	c.log.Info("cache updater thread started")
	defer c.log.Info("cache updater thread ended")

	for {
		added := c.runUpdateBatch(ctx)
		if added < 0 {
			return // stopped
		}
	}
}

// runUpdateBatch processes one run of up to processingLimit items,
// returning the number added, or -1 if the cache was stopped mid-run.
func (c *Cache) runUpdateBatch(ctx context.Context) int {
	var addedIDs []int64

	for len(addedIDs) < processingLimit {
		select {
		case <-c.stop:
			return -1
		case <-ctx.Done():
			return -1
		case build := <-c.updateQueue:
			id, err := c.commitBuild(ctx, build)
			if err != nil {
				c.log.Error("failed to commit item", "item_id", build.entry.ID, "error", err)
				continue
			}
			addedIDs = append(addedIDs, id)
		case <-time.After(c.updateWait):
			// Queue went quiet: flush what we have and start a new run.
			if len(addedIDs) > 0 {
				c.notify(addedIDs)
			}
			return len(addedIDs)
		}
	}

	c.notify(addedIDs)
	return len(addedIDs)
}

func (c *Cache) commitBuild(ctx context.Context, build *itemBuild) (int64, error) {
	item := corpus.NewItem(build.entry.ID, build.entry.SourceURL, build.entry.CreatedAt, build.counts)

	if err := c.persist(ctx, item); err != nil {
		return 0, err
	}

	if item.NumTokens() < c.minTokens {
		return item.ID, nil
	}

	c.addToMemory(item)
	return item.ID, nil
}

func (c *Cache) notify(itemIDs []int64) {
	if c.onUpdate != nil && len(itemIDs) > 0 {
		c.onUpdate(itemIDs)
	}
}
