// Package itemcache is the durable-and-in-memory store of classified items:
// a feature-extraction thread turns raw entries into tokenized Items, a
// cache-updater thread folds them into the in-memory cache in batches and
// notifies listeners, and a purger thread evicts items past their
// retention horizon.
package itemcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/metrics"
)

// processingLimit is the number of items the updater thread will fold into
// the cache in one run before it calls the update callback and starts a
// new run, even if items keep arriving.
const processingLimit = 200

// queueWait is the default for how long the updater thread waits for its
// next item before flushing its batch, used when Config.UpdateWait is not
// positive. The feature-extraction thread waits without a timeout.
const queueWait = 1 * time.Second

// RawEntry is an item as received from the originating system, before
// tokenization: its id, source URL, creation time, and raw content.
type RawEntry struct {
	ID        int64
	SourceURL string
	CreatedAt time.Time
	Content   string
}

// Extractor turns a RawEntry's content into token-id -> frequency counts.
// Implementations typically call out to an external tokenizer service.
type Extractor interface {
	Extract(ctx context.Context, entry RawEntry) (map[int64]int, error)
}

// UpdateCallback is invoked at most once per updater run, after at least
// one item has been folded into the cache, with the ids of every item
// added during that run.
type UpdateCallback func(itemIDs []int64)

// Cache is the item cache: durable storage plus an in-memory index used
// for training and classification.
type Cache struct {
	db        *sql.DB
	dict      *corpus.Dictionary
	extractor Extractor
	log       *slog.Logger

	purgeInterval  time.Duration
	loadItemsSince time.Duration
	minTokens      int
	updateWait     time.Duration

	mu         sync.RWMutex
	byID       map[int64]*corpus.Item
	inOrder    []*corpus.Item // newest first, kept sorted by CreatedAt descending
	background *corpus.Pool
	loaded     bool

	extractionQueue chan RawEntry
	updateQueue     chan *itemBuild

	onUpdate UpdateCallback

	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

// Config configures a Cache.
type Config struct {
	PurgeInterval       time.Duration
	ExtractionQueueSize int
	UpdateQueueSize     int

	// LoadItemsSince bounds the initial load to items updated within this
	// window; older items are left in the durable store only.
	LoadItemsSince time.Duration
	// MinTokens drops loaded items with fewer than this many distinct
	// tokens, matching the load step's noise floor.
	MinTokens int
	// UpdateWait is how long the cache-updater thread waits for its next
	// item within a run before flushing and calling the update callback.
	UpdateWait time.Duration
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		PurgeInterval:       1 * time.Hour,
		ExtractionQueueSize: 1000,
		UpdateQueueSize:     1000,
		LoadItemsSince:      90 * 24 * time.Hour,
		MinTokens:           1,
		UpdateWait:          1 * time.Second,
	}
}

// New builds a Cache. It does not start any background threads; call
// StartFeatureExtractor, StartUpdater, and StartPurger explicitly, mirroring
// the original's discrete start calls.
func New(db *sql.DB, dict *corpus.Dictionary, extractor Extractor, cfg Config) *Cache {
	updateWait := cfg.UpdateWait
	if updateWait <= 0 {
		updateWait = queueWait
	}
	return &Cache{
		db:              db,
		dict:            dict,
		extractor:       extractor,
		log:             slog.With("component", "item_cache"),
		purgeInterval:   cfg.PurgeInterval,
		loadItemsSince:  cfg.LoadItemsSince,
		minTokens:       cfg.MinTokens,
		updateWait:      updateWait,
		byID:            make(map[int64]*corpus.Item),
		background:      corpus.NewPool(),
		extractionQueue: make(chan RawEntry, cfg.ExtractionQueueSize),
		updateQueue:     make(chan *itemBuild, cfg.UpdateQueueSize),
		stop:            make(chan struct{}),
	}
}

// SetUpdateCallback registers the callback invoked when new items land in
// the cache. Must be called before StartUpdater.
func (c *Cache) SetUpdateCallback(cb UpdateCallback) {
	c.onUpdate = cb
}

// Enqueue submits a raw entry for tokenization. Never blocks forever: if
// the extraction queue is full the entry is dropped and logged, since a
// full queue means extraction cannot keep up and backpressure has to land
// somewhere other than the caller's goroutine.
func (c *Cache) Enqueue(entry RawEntry) {
	select {
	case c.extractionQueue <- entry:
	default:
		c.log.Warn("extraction queue full, dropping entry", "item_id", entry.ID)
	}
}

// FetchItem returns the in-memory item for id, or nil if it is not
// resident. It does not fall back to the durable store; that is
// FetchItemFromStore.
func (c *Cache) FetchItem(id int64) *corpus.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// FetchItemFromStore loads an item directly from the durable store,
// bypassing the in-memory cache. Training does not call it: the tagger
// cache resolves example items through FetchItem, so an example that is
// only in the durable store counts as missing.
func (c *Cache) FetchItemFromStore(ctx context.Context, id int64) (*corpus.Item, error) {
	var sourceURL string
	var createdAt time.Time
	var rawCounts []byte

	err := c.db.QueryRowContext(ctx,
		`SELECT source_url, created_at, token_counts FROM items WHERE id = $1`, id).
		Scan(&sourceURL, &createdAt, &rawCounts)
	if err != nil {
		return nil, fmt.Errorf("fetch item %d: %w", id, err)
	}

	var counts map[int64]int
	if err := json.Unmarshal(rawCounts, &counts); err != nil {
		return nil, fmt.Errorf("decode item %d token counts: %w", id, err)
	}

	return corpus.NewItem(id, sourceURL, createdAt, counts), nil
}

// Size returns the number of items currently resident in memory.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Close stops all background threads and waits for them to exit.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	c.wg.Wait()
}

// addToMemory inserts item into the in-memory index, keeping inOrder
// sorted newest-first by CreatedAt, matching spec.md §8's
// ordered[i].update_time >= ordered[i+1].update_time invariant.
func (c *Cache) addToMemory(item *corpus.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byID[item.ID]; exists {
		return
	}
	c.byID[item.ID] = item

	idx := sort.Search(len(c.inOrder), func(i int) bool {
		return c.inOrder[i].CreatedAt.Before(item.CreatedAt)
	})
	c.inOrder = append(c.inOrder, nil)
	copy(c.inOrder[idx+1:], c.inOrder[idx:])
	c.inOrder[idx] = item
	metrics.ItemCacheSize.Set(float64(len(c.inOrder)))
}

func (c *Cache) persist(ctx context.Context, item *corpus.Item) error {
	counts := make(map[int64]int, item.NumTokens())
	for _, tok := range item.Tokens() {
		counts[tok.ID] = tok.Frequency
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("encode token counts: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO items (id, source_url, created_at, token_counts, extracted)
		 VALUES ($1, $2, $3, $4, true)
		 ON CONFLICT (id) DO NOTHING`,
		item.ID, item.SourceURL, item.CreatedAt, raw)
	if err != nil {
		return fmt.Errorf("insert item %d: %w", item.ID, err)
	}
	return nil
}
