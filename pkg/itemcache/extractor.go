package itemcache

import (
	"context"
)

// StartFeatureExtractor launches the feature-extraction thread: it
// dequeues raw entries, calls the configured Extractor, and forwards
// tokenized items onto the update queue. It must not be started twice.
func (c *Cache) StartFeatureExtractor(ctx context.Context) {
	c.wg.Add(1)
	go c.featureExtractionLoop(ctx)
}

func (c *Cache) featureExtractionLoop(ctx context.Context) {
	defer c.wg.Done()
	c.log.Info("feature extractor thread started")
	defer c.log.Info("feature extractor thread ended")

	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		case entry := <-c.extractionQueue:
			c.extractOne(ctx, entry)
		}
	}
}

func (c *Cache) extractOne(ctx context.Context, entry RawEntry) {
	counts, err := c.extractor.Extract(ctx, entry)
	if err != nil {
		c.log.Error("feature extraction failed", "item_id", entry.ID, "error", err)
		return
	}

	item := newTokenizedItem(entry, counts)

	select {
	case c.updateQueue <- item:
		c.log.Debug("item added to update queue", "item_id", entry.ID)
	case <-c.stop:
	case <-ctx.Done():
	}
}

func newTokenizedItem(entry RawEntry, counts map[int64]int) *itemBuild {
	return &itemBuild{entry: entry, counts: counts}
}

// itemBuild carries a tokenized item through the extraction -> update
// pipeline before it has been assigned durable-store identity semantics
// (corpus.Item is built once the updater run persists it).
type itemBuild struct {
	entry  RawEntry
	counts map[int64]int
}
