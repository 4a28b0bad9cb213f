package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/metrics"
	"github.com/peerworks/classifierd/pkg/tagger"
	"github.com/peerworks/classifierd/pkg/taggercache"
)

// ItemSource is the subset of the item cache the engine needs to iterate
// items for a classification job.
type ItemSource interface {
	AllItems() []*corpus.Item
	ItemsSince(t time.Time) []*corpus.Item
}

// Config configures an Engine.
type Config struct {
	WorkerCount        int
	QueueCapacity      int
	CheckoutRetryDelay time.Duration
	PendingRetryDelay  time.Duration
	MissingItemTimeout time.Duration
	// TagIndexURL is enumerated on every item-cache update callback to
	// enqueue a ScopeNew job per tag.
	TagIndexURL string
	// PositiveThreshold is the minimum tagging strength uploaded to the
	// upstream tag. Taggings scoring below it are computed (they still
	// count toward ItemsClassified) but dropped from the upload body.
	PositiveThreshold float64
	// PerfLog receives one JSON record per job reaching a terminal
	// state. Nil is treated the same as a discarding logger.
	PerfLog *slog.Logger
}

// DefaultConfig returns sane defaults.
func DefaultConfig() Config {
	return Config{
		WorkerCount:        4,
		QueueCapacity:      1000,
		CheckoutRetryDelay: 2 * time.Second,
		PendingRetryDelay:  5 * time.Second,
		MissingItemTimeout: 10 * time.Minute,
		PositiveThreshold:  0.5,
	}
}

// Engine is the Classification Engine: a FIFO job queue and a worker pool
// that drive taggers through the tagger cache, score items from the item
// cache, and upload the resulting taggings.
type Engine struct {
	cfg         Config
	queue       *queue
	taggerCache *taggercache.Cache
	items       ItemSource
	uploader    *tagger.Uploader
	log         *slog.Logger

	registryMu sync.RWMutex
	registry   map[string]*Job

	uploadedMu sync.Mutex
	uploaded   map[string]bool // tag url -> has uploaded at least once this process

	suspendMu   sync.Mutex
	suspendCond *sync.Cond
	suspended   bool
	stopping    bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Engine. It does not start any workers; call Start.
func New(cfg Config, taggerCache *taggercache.Cache, items ItemSource, uploader *tagger.Uploader) *Engine {
	if cfg.PerfLog == nil {
		cfg.PerfLog = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &Engine{
		cfg:         cfg,
		queue:       newQueue(cfg.QueueCapacity),
		taggerCache: taggerCache,
		items:       items,
		uploader:    uploader,
		log:         slog.With("component", "engine"),
		registry:    make(map[string]*Job),
		uploaded:    make(map[string]bool),
		stopCh:      make(chan struct{}),
	}
	e.suspendCond = sync.NewCond(&e.suspendMu)
	return e
}

// Start spawns the configured number of worker goroutines.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.cfg.WorkerCount; i++ {
		e.wg.Add(1)
		id := fmt.Sprintf("worker-%d", i)
		go e.runWorker(ctx, id)
	}
}

// Stop allows all workers to drain their current job, then returns once
// every worker has exited.
func (e *Engine) Stop() {
	e.suspendMu.Lock()
	e.stopping = true
	e.suspendCond.Broadcast()
	e.suspendMu.Unlock()

	close(e.stopCh)
	e.wg.Wait()
}

// Kill forces an immediate stop, cancelling any in-flight jobs via the
// cooperative cancellation mechanism before draining workers.
func (e *Engine) Kill() {
	e.registryMu.RLock()
	for _, job := range e.registry {
		job.cancel()
	}
	e.registryMu.RUnlock()
	e.Stop()
}

// Suspend blocks the worker loop's dequeue step until Resume is called.
func (e *Engine) Suspend() {
	e.suspendMu.Lock()
	e.suspended = true
	e.suspendMu.Unlock()
}

// Resume releases workers blocked by Suspend.
func (e *Engine) Resume() {
	e.suspendMu.Lock()
	e.suspended = false
	e.suspendCond.Broadcast()
	e.suspendMu.Unlock()
}

// waitIfSuspended blocks the calling worker while the engine is suspended,
// returning immediately once resumed or once the engine is stopping.
func (e *Engine) waitIfSuspended() {
	e.suspendMu.Lock()
	defer e.suspendMu.Unlock()
	for e.suspended && !e.stopping {
		e.suspendCond.Wait()
	}
}

// Submit creates and enqueues a new job, returning it immediately in
// StateWaiting.
func (e *Engine) Submit(tagURL string, scope ItemScope, autoCleanup bool) *Job {
	job := NewJob(tagURL, scope, autoCleanup)

	e.registryMu.Lock()
	e.registry[job.ID] = job
	e.registryMu.Unlock()

	e.queue.enqueue(job)
	metrics.QueueDepth.Set(float64(e.queue.depth()))
	return job
}

// Get returns the job with id, if known.
func (e *Engine) Get(id string) (*Job, bool) {
	e.registryMu.RLock()
	defer e.registryMu.RUnlock()
	job, ok := e.registry[id]
	return job, ok
}

// Cancel marks a non-terminal job Cancelled. Returns false if the job is
// unknown or already terminal.
func (e *Engine) Cancel(id string) bool {
	job, ok := e.Get(id)
	if !ok {
		return false
	}
	return job.cancel()
}

// Delete removes a job from the registry. A Complete job is removed
// outright; an in-progress job is cancelled and then removed. Returns
// false if the job is unknown.
func (e *Engine) Delete(id string) bool {
	job, ok := e.Get(id)
	if !ok {
		return false
	}
	if !job.IsTerminal() {
		job.cancel()
	}

	e.registryMu.Lock()
	delete(e.registry, id)
	e.registryMu.Unlock()
	return true
}

// QueueDepth returns the number of jobs currently waiting to be dequeued.
func (e *Engine) QueueDepth() int {
	return e.queue.depth()
}

// uploadMethod reports whether this would be the first upload of
// classifier taggings for tagURL in the life of this process (PUT,
// replacing prior taggings) or a subsequent one (POST, appending). It does
// not record the upload; call markUploaded once the upload succeeds.
func (e *Engine) uploadMethod(tagURL string) tagger.UploadMethod {
	e.uploadedMu.Lock()
	defer e.uploadedMu.Unlock()
	if e.uploaded[tagURL] {
		return tagger.MethodPOST
	}
	return tagger.MethodPUT
}

// markUploaded records that tagURL has now had a successful upload this
// process, so the next job for it uploads via POST.
func (e *Engine) markUploaded(tagURL string) {
	e.uploadedMu.Lock()
	e.uploaded[tagURL] = true
	e.uploadedMu.Unlock()
}

// OnItemsAdded is the item cache's update callback: when new items land,
// it enumerates the tag index and enqueues a ScopeNew job per tag url.
// This is the only mechanism by which new items get classified for
// existing tags without operator intervention.
func (e *Engine) OnItemsAdded(itemIDs []int64) {
	if len(itemIDs) == 0 || e.cfg.TagIndexURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	urls, err := e.taggerCache.FetchTags(ctx, e.cfg.TagIndexURL)
	if err != nil {
		e.log.Warn("failed to fetch tag index for new-item classification", "error", err)
		return
	}

	for _, url := range urls {
		e.Submit(url, ScopeNew, true)
	}
}
