// Package engine is the Classification Engine: a FIFO job queue and a
// worker pool that drive taggers through the tagger cache, score cached
// items, and upload the resulting taggings.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/peerworks/classifierd/pkg/metrics"
)

// State is where a Job sits in its processing lifecycle.
type State string

const (
	StateWaiting     State = "Waiting"
	StateTraining    State = "Training"
	StateClassifying State = "Classifying"
	StateInserting   State = "Inserting"
	StateComplete    State = "Complete"
	StateCancelled   State = "Cancelled"
	StateError       State = "Error"
)

// ErrorKind classifies why a Job ended in StateError.
type ErrorKind string

const (
	ErrorNone               ErrorKind = ""
	ErrorNoSuchTag          ErrorKind = "NoSuchTag"
	ErrorNoTagsForUser      ErrorKind = "NoTagsForUser"
	ErrorBadJobType         ErrorKind = "BadJobType"
	ErrorMissingItemTimeout ErrorKind = "MissingItemTimeout"
	ErrorUnknown            ErrorKind = "UnknownError"
)

// ItemScope selects which items a job classifies.
type ItemScope string

const (
	// ScopeAll classifies every item resident in the item cache.
	ScopeAll ItemScope = "All"
	// ScopeNew classifies only items created after the tagger's
	// last-classified time.
	ScopeNew ItemScope = "New"
)

// Job is a classification request for one tag, tracked from submission
// through a terminal state. Jobs outlive completion until an explicit
// DELETE or auto-cleanup removes them.
type Job struct {
	ID          string
	TagURL      string
	Scope       ItemScope
	AutoCleanup bool

	CreatedAt     time.Time
	StartedAt     time.Time
	TrainedAt     time.Time
	ClassifiedAt  time.Time
	CompletedAt   time.Time
	FirstTimeTried time.Time

	mu              sync.Mutex
	state           State
	progress        float64
	errorKind       ErrorKind
	errorMessage    string
	itemsClassified int
}

// NewJob builds a freshly-submitted job in StateWaiting.
func NewJob(tagURL string, scope ItemScope, autoCleanup bool) *Job {
	return &Job{
		ID:          uuid.NewString(),
		TagURL:      tagURL,
		Scope:       scope,
		AutoCleanup: autoCleanup,
		CreatedAt:   time.Now(),
		state:       StateWaiting,
	}
}

// State returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the job's current progress in [0, 100].
func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Error returns the job's error kind and message, if any.
func (j *Job) Error() (ErrorKind, string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorKind, j.errorMessage
}

// ItemsClassified returns the number of items scored so far.
func (j *Job) ItemsClassified() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.itemsClassified
}

// IsTerminal reports whether the job has reached a state from which the
// worker loop will not advance it further.
func (j *Job) IsTerminal() bool {
	switch j.State() {
	case StateComplete, StateCancelled, StateError:
		return true
	default:
		return false
	}
}

// transition moves the job to state, unconditionally. Only the owning
// worker ever calls this.
func (j *Job) transition(state State) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = state
}

// cancel marks the job Cancelled if it has not already reached a terminal
// state. Returns true if the cancellation took effect.
func (j *Job) cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.state {
	case StateComplete, StateCancelled, StateError:
		return false
	}
	j.state = StateCancelled
	return true
}

// isCancelled reports whether the job has been marked Cancelled, checked
// by the worker between classify iterations.
func (j *Job) isCancelled() bool {
	return j.State() == StateCancelled
}

func (j *Job) fail(kind ErrorKind, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = StateError
	j.errorKind = kind
	j.errorMessage = message
	j.CompletedAt = time.Now()
	metrics.JobsCompletedTotal.WithLabelValues(string(StateError)).Inc()
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = p
}

func (j *Job) addClassified(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.itemsClassified += n
}

// Snapshot is an immutable copy of a Job's fields, safe to render without
// holding the job's lock.
type Snapshot struct {
	ID              string
	TagURL          string
	State           State
	Progress        float64
	ErrorKind       ErrorKind
	ErrorMessage    string
	ItemsClassified int
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// Snapshot captures the job's current state for XML rendering or API use.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:              j.ID,
		TagURL:          j.TagURL,
		State:           j.state,
		Progress:        j.progress,
		ErrorKind:       j.errorKind,
		ErrorMessage:    j.errorMessage,
		ItemsClassified: j.itemsClassified,
		CreatedAt:       j.CreatedAt,
		CompletedAt:     j.CompletedAt,
	}
}
