// Package metrics exposes Prometheus instrumentation for the classification
// engine, item cache, and tagger cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueDepth is the number of jobs currently waiting in the
	// classification queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "engine", Name: "queue_depth",
		Help: "Number of jobs waiting in the classification queue",
	})

	// WorkersBusy is the number of engine workers currently processing a job.
	WorkersBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "engine", Name: "workers_busy",
		Help: "Number of engine workers currently processing a job",
	})

	// JobsCompletedTotal counts jobs that reached a terminal state, by state.
	JobsCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classifierd", Subsystem: "engine", Name: "jobs_completed_total",
		Help: "Jobs that reached a terminal state, labeled by final state",
	}, []string{"state"})

	// ItemCacheSize is the number of items currently resident in the item cache.
	ItemCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "item_cache", Name: "resident_items",
		Help: "Number of items currently resident in the item cache",
	})

	// ItemCachePurgedTotal counts items dropped by the cache purger.
	ItemCachePurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "classifierd", Subsystem: "item_cache", Name: "purged_items_total",
		Help: "Total number of items dropped by the cache purger",
	})

	// TaggerCacheResident is the number of taggers currently resident in
	// the tagger cache.
	TaggerCacheResident = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "tagger_cache", Name: "resident_taggers",
		Help: "Number of taggers currently resident in the tagger cache",
	})

	// TaggerCacheCheckedOut is the number of taggers currently checked out.
	TaggerCacheCheckedOut = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "tagger_cache", Name: "checked_out_taggers",
		Help: "Number of taggers currently checked out by a worker",
	})

	// TaggerCacheFailed is the number of tag training URLs marked failed.
	TaggerCacheFailed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "classifierd", Subsystem: "tagger_cache", Name: "failed_taggers",
		Help: "Number of tag training URLs currently marked failed",
	})
)
