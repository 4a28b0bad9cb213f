package tagger

import (
	"github.com/peerworks/classifierd/pkg/classifier"
	"github.com/peerworks/classifierd/pkg/itemcache"
)

// Enqueuer schedules a raw entry for feature extraction. *itemcache.Cache
// satisfies this.
type Enqueuer interface {
	Enqueue(entry itemcache.RawEntry)
}

// AcquireMissingItems is the item-acquisition sub-step of build(atom-source,
// item-cache): for every example entry whose item is not already resident,
// it builds an Entry from the example's inline atom and adds it to the
// item cache, which is the only mechanism by which the classifier acquires
// an item it has never seen before — it is tokenized asynchronously by the
// feature-extraction thread, not inline here.
func AcquireMissingItems(def *Definition, fetch classifier.ItemFetcher, enqueue Enqueuer) {
	for _, ex := range def.Examples {
		if fetch(ex.ItemID) != nil {
			continue
		}
		enqueue.Enqueue(itemcache.RawEntry{
			ID:        ex.ItemID,
			SourceURL: ex.SourceURL,
			CreatedAt: ex.CreatedAt,
			Content:   ex.Content,
		})
	}
}
