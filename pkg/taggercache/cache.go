// Package taggercache is the checkout-style coordinator for per-tag
// classifiers: it fetches and caches Tagger instances, ensures only one
// caller at a time drives a given tag through training, and tracks tags
// whose background fetch failed.
package taggercache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/peerworks/classifierd/pkg/classifier"
	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/metrics"
	"github.com/peerworks/classifierd/pkg/tagger"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a Get call.
type Result int

const (
	// ResultOK means tagger is precomputed and checked out; the caller
	// must call Release when done with it.
	ResultOK Result = iota
	// ResultNotFound means the tag training url answered 404: the tag
	// genuinely does not exist.
	ResultNotFound
	// ResultCheckedOut means another caller already has this tag
	// checked out; nothing was done.
	ResultCheckedOut
	// ResultPendingItemAddition means the tagger is waiting on example
	// items that are not yet in the item cache; they have been
	// scheduled for feature extraction.
	ResultPendingItemAddition
	// ResultError means the fetch or build failed for a reason other
	// than a 404 (network error, bad document, unexpected status).
	ResultError
)

// residentTagger pairs a cached Tagger with the conditional-GET state
// needed to avoid re-downloading an unchanged training document.
type residentTagger struct {
	tagger       *tagger.Tagger
	etag         string
	lastModified string
}

// Cache coordinates checkout, fetch, training, and precomputation of
// per-tag classifiers.
type Cache struct {
	itemFetch  classifier.ItemFetcher
	fetcher    *tagger.Fetcher
	enqueue    tagger.Enqueuer
	background func() *corpus.Pool
	log        *slog.Logger

	mu         sync.Mutex
	resident   map[string]*residentTagger
	checkedOut map[string]bool
	failed     map[string]bool

	indexETag         string
	indexLastModified string
	indexURLs         []string

	fetchGroup *errgroup.Group
}

// New builds a Cache. background is called each time a tagger needs to be
// precomputed, so it can reflect the item cache's current random
// background pool rather than a snapshot taken at startup. enqueue
// receives any example item missing from the item cache, so it can be
// acquired and tokenized asynchronously instead of leaving the tagger
// stuck on a missing example forever.
func New(itemFetch classifier.ItemFetcher, fetcher *tagger.Fetcher, enqueue tagger.Enqueuer, background func() *corpus.Pool, maxConcurrentFetches int) *Cache {
	group := &errgroup.Group{}
	group.SetLimit(maxConcurrentFetches)

	return &Cache{
		itemFetch:  itemFetch,
		fetcher:    fetcher,
		enqueue:    enqueue,
		background: background,
		log:        slog.With("component", "tagger_cache"),
		resident:   make(map[string]*residentTagger),
		checkedOut: make(map[string]bool),
		failed:     make(map[string]bool),
		fetchGroup: group,
	}
}

// Get checks out the tagger for trainingURL. If doFetch is true and the
// tagger is either uncached or due for a refresh, it is fetched (or
// conditionally re-fetched) first. The caller must call Release when
// ResultOK is returned.
func (c *Cache) Get(ctx context.Context, trainingURL string, doFetch bool) (Result, *tagger.Tagger, error) {
	c.mu.Lock()
	var resident *residentTagger
	checkedOut := c.checkedOut[trainingURL]
	if !checkedOut {
		resident = c.resident[trainingURL]
		c.checkedOut[trainingURL] = true
	}
	c.mu.Unlock()

	if checkedOut {
		return ResultCheckedOut, nil, fmt.Errorf("tagger already being processed: %s", trainingURL)
	}

	var current *tagger.Tagger
	var newTagger bool
	etag, lastModified := "", ""
	if resident != nil {
		current = resident.tagger
		etag, lastModified = resident.etag, resident.lastModified
	}

	if doFetch {
		var err error
		current, newTagger, etag, lastModified, err = c.refresh(ctx, trainingURL, current, etag, lastModified)
		if err != nil {
			c.mu.Lock()
			c.releaseLocked(trainingURL)
			c.mu.Unlock()
			if errors.Is(err, tagger.ErrNotFound) {
				return ResultNotFound, nil, err
			}
			return ResultError, nil, err
		}
	}

	if current != nil && current.State != tagger.StatePrecomputed {
		if err := current.Prepare(c.itemFetch, c.background()); err != nil {
			c.log.Warn("tagger prepare failed", "training_url", trainingURL, "error", err)
		}
	}

	c.mu.Lock()
	if newTagger && current != nil {
		c.resident[trainingURL] = &residentTagger{tagger: current, etag: etag, lastModified: lastModified}
	}
	if current == nil || current.State != tagger.StatePrecomputed {
		delete(c.checkedOut, trainingURL)
	}
	c.reportMetricsLocked()
	c.mu.Unlock()

	switch {
	case current == nil:
		return ResultNotFound, nil, fmt.Errorf("tag not found: %s", trainingURL)
	case current.State == tagger.StatePrecomputed:
		return ResultOK, current, nil
	case current.State == tagger.StatePartiallyTrained:
		return ResultPendingItemAddition, nil, nil
	default:
		return ResultNotFound, nil, fmt.Errorf("unaccounted for tagger state %s for %s", current.State, trainingURL)
	}
}

// refresh fetches a not-yet-cached tagger outright, or conditionally
// re-fetches a cached one (skipped entirely for a partially-trained
// tagger, which is waiting on items rather than an upstream update).
func (c *Cache) refresh(ctx context.Context, trainingURL string, current *tagger.Tagger, etag, lastModified string) (*tagger.Tagger, bool, string, string, error) {
	if current == nil {
		result, err := c.fetcher.Fetch(ctx, trainingURL, "", "")
		if err != nil {
			return nil, false, "", "", err
		}
		tagger.AcquireMissingItems(result.Definition, c.itemFetch, c.enqueue)
		return tagger.New(result.Definition), true, result.ETag, result.LastModified, nil
	}

	if current.State == tagger.StatePartiallyTrained {
		return current, false, etag, lastModified, nil
	}

	result, err := c.fetcher.Fetch(ctx, current.Definition.TrainingURL, etag, lastModified)
	if err != nil {
		return current, false, etag, lastModified, err
	}
	if result.NotModified {
		return current, false, etag, lastModified, nil
	}
	tagger.AcquireMissingItems(result.Definition, c.itemFetch, c.enqueue)
	return tagger.New(result.Definition), true, result.ETag, result.LastModified, nil
}

// Release checks a tagger back in, allowing another caller to check it
// out again.
func (c *Cache) Release(trainingURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked(trainingURL)
}

func (c *Cache) releaseLocked(trainingURL string) {
	delete(c.checkedOut, trainingURL)
	c.reportMetricsLocked()
}

// reportMetricsLocked refreshes the tagger cache gauges. Must be called
// with c.mu held.
func (c *Cache) reportMetricsLocked() {
	metrics.TaggerCacheResident.Set(float64(len(c.resident)))
	metrics.TaggerCacheCheckedOut.Set(float64(len(c.checkedOut)))
	metrics.TaggerCacheFailed.Set(float64(len(c.failed)))
}

// IsCached reports whether trainingURL currently has a resident tagger.
func (c *Cache) IsCached(trainingURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.resident[trainingURL]
	return ok
}

// IsFailed reports whether the last background fetch for trainingURL failed.
func (c *Cache) IsFailed(trainingURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failed[trainingURL]
}

// FetchTags retrieves the flat list of tag training urls from the
// tag-index document at indexURL, conditionally on the last successful
// fetch. On failure it falls back to the previously cached list (if any)
// instead of propagating the error, matching the index feed's role as a
// best-effort discovery mechanism rather than a hard dependency.
func (c *Cache) FetchTags(ctx context.Context, indexURL string) ([]string, error) {
	c.mu.Lock()
	etag, lastModified := c.indexETag, c.indexLastModified
	cached := c.indexURLs
	c.mu.Unlock()

	result, err := c.fetcher.FetchIndex(ctx, indexURL, etag, lastModified)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	if result.NotModified {
		return cached, nil
	}

	c.mu.Lock()
	c.indexURLs = result.URLs
	c.indexETag = result.ETag
	c.indexLastModified = result.LastModified
	c.mu.Unlock()

	return result.URLs, nil
}

// FetchInBackground schedules a Get(doFetch=true) for trainingURL on a
// bounded pool of goroutines, releasing the tagger immediately on success
// and recording a failure otherwise. A success clears any failure recorded
// earlier. The caller blocks only while maxConcurrentFetches background
// fetches are already in flight.
func (c *Cache) FetchInBackground(ctx context.Context, trainingURL string) {
	c.fetchGroup.Go(func() error {
		result, tg, err := c.Get(ctx, trainingURL, true)
		switch result {
		case ResultOK:
			c.Release(trainingURL)
			c.mu.Lock()
			delete(c.failed, trainingURL)
			c.reportMetricsLocked()
			c.mu.Unlock()
		default:
			if err != nil {
				c.log.Warn("background tagger fetch failed", "training_url", trainingURL, "error", err)
			}
			c.mu.Lock()
			c.failed[trainingURL] = true
			c.reportMetricsLocked()
			c.mu.Unlock()
		}
		_ = tg
		return nil
	})
}
