package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/peerworks/classifierd/pkg/classifier"
	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/metrics"
	"github.com/peerworks/classifierd/pkg/tagger"
	"github.com/peerworks/classifierd/pkg/taggercache"
)

// runWorker is a single worker's loop: dequeue-or-wait, then drive one job
// through Training, Classifying, and Inserting until it reaches a
// terminal state.
func (e *Engine) runWorker(ctx context.Context, id string) {
	defer e.wg.Done()
	log := e.log.With("worker_id", id)
	log.Info("worker started")

	for {
		select {
		case <-e.stopCh:
			log.Info("worker shutting down")
			return
		case <-ctx.Done():
			log.Info("context cancelled, worker shutting down")
			return
		default:
		}

		e.waitIfSuspended()

		job := e.queue.dequeue(ctx)
		metrics.QueueDepth.Set(float64(e.queue.depth()))
		if job == nil {
			continue
		}

		if job.isCancelled() {
			e.finishCancelled(job)
			continue
		}

		metrics.WorkersBusy.Inc()
		e.process(ctx, job, log)
		metrics.WorkersBusy.Dec()
	}
}

func (e *Engine) finishCancelled(job *Job) {
	job.CompletedAt = time.Now()
	job.transition(StateCancelled)
	metrics.JobsCompletedTotal.WithLabelValues(string(StateCancelled)).Inc()
	e.logPerf(job)
}

// process drives job through get_tagger, item scoring, and upload. It
// returns once the job has reached a terminal state or has been requeued
// for a later retry.
func (e *Engine) process(ctx context.Context, job *Job, log *slog.Logger) {
	log = log.With("job_id", job.ID, "tag_url", job.TagURL)
	job.transition(StateTraining)
	if job.StartedAt.IsZero() {
		job.StartedAt = time.Now()
	}

	result, tg, err := e.taggerCache.Get(ctx, job.TagURL, true)
	switch result {
	case taggercache.ResultOK:
		// fall through below

	case taggercache.ResultNotFound:
		job.fail(ErrorNoSuchTag, errString(err))
		e.logPerf(job)
		return

	case taggercache.ResultError:
		job.fail(ErrorUnknown, errString(err))
		e.logPerf(job)
		return

	case taggercache.ResultCheckedOut:
		log.Debug("tagger checked out, requeueing")
		e.retryOrTimeout(job, e.cfg.CheckoutRetryDelay)
		return

	case taggercache.ResultPendingItemAddition:
		log.Debug("tagger pending item addition, requeueing")
		e.retryOrTimeout(job, e.cfg.PendingRetryDelay)
		return

	default:
		job.fail(ErrorUnknown, "unrecognized tagger cache result")
		e.logPerf(job)
		return
	}

	job.TrainedAt = time.Now()
	job.transition(StateClassifying)

	if job.isCancelled() {
		e.taggerCache.Release(job.TagURL)
		e.finishCancelled(job)
		return
	}

	items := e.selectItems(job, tg)
	taggings := make([]*classifier.Tagging, 0, len(items))
	for i, item := range items {
		if job.isCancelled() {
			e.taggerCache.Release(job.TagURL)
			e.finishCancelled(job)
			return
		}

		tagging, err := tg.Classify(item)
		if err != nil {
			log.Warn("classify failed on a precomputed tagger", "item_id", item.ID, "error", err)
			continue
		}
		taggings = append(taggings, tagging)
		job.addClassified(1)
		job.setProgress(100 * float64(i+1) / float64(max1(len(items))))
	}

	job.ClassifiedAt = time.Now()
	job.transition(StateInserting)

	if err := e.upload(ctx, job, tg, taggings); err != nil {
		log.Warn("upload failed", "error", err)
		job.fail(ErrorUnknown, err.Error())
		e.logPerf(job)
		e.taggerCache.Release(job.TagURL)
		return
	}

	tg.MarkClassified(time.Now())
	e.taggerCache.Release(job.TagURL)

	job.CompletedAt = time.Now()
	job.setProgress(100)
	job.transition(StateComplete)
	metrics.JobsCompletedTotal.WithLabelValues(string(StateComplete)).Inc()
	e.logPerf(job)
}

// logPerf writes one performance-log record for a job that just reached
// a terminal state.
func (e *Engine) logPerf(job *Job) {
	snap := job.Snapshot()
	end := snap.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	e.cfg.PerfLog.Info("job",
		"job_id", snap.ID,
		"tag_url", snap.TagURL,
		"status", string(snap.State),
		"items_classified", snap.ItemsClassified,
		"duration_seconds", end.Sub(snap.CreatedAt).Seconds())
}

func (e *Engine) selectItems(job *Job, tg *tagger.Tagger) []*corpus.Item {
	if job.Scope == ScopeAll {
		return e.items.AllItems()
	}
	return e.items.ItemsSince(tg.LastClassified)
}

func (e *Engine) upload(ctx context.Context, job *Job, tg *tagger.Tagger, taggings []*classifier.Tagging) error {
	uploadable := make([]*classifier.Tagging, 0, len(taggings))
	for _, tagging := range taggings {
		if tagging.Strength >= e.cfg.PositiveThreshold {
			uploadable = append(uploadable, tagging)
		}
	}

	body, err := tagger.BuildTaggingsXML(tg.Definition, time.Now(), uploadable)
	if err != nil {
		return err
	}
	method := e.uploadMethod(job.TagURL)
	if err := e.uploader.Upload(ctx, tg.Definition, method, body); err != nil {
		return err
	}
	e.markUploaded(job.TagURL)
	return nil
}

// retryOrTimeout requeues job after the appropriate delay, or fails it
// with MissingItemTimeout once first_time_tried has aged past the
// configured threshold.
func (e *Engine) retryOrTimeout(job *Job, delay time.Duration) {
	job.mu.Lock()
	if job.FirstTimeTried.IsZero() {
		job.FirstTimeTried = time.Now()
	}
	exceeded := time.Since(job.FirstTimeTried) > e.cfg.MissingItemTimeout
	job.mu.Unlock()

	if exceeded {
		job.fail(ErrorMissingItemTimeout, "tagger persistently checked out or missing items")
		e.logPerf(job)
		return
	}

	e.queue.requeueAfter(job, delay)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
