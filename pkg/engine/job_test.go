package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobStartsInWaiting(t *testing.T) {
	job := NewJob("http://example.com/tags/1/training", ScopeAll, true)
	assert.Equal(t, StateWaiting, job.State())
	assert.False(t, job.IsTerminal())
}

func TestJobCancelFromNonTerminalSucceeds(t *testing.T) {
	job := NewJob("http://example.com/tags/1/training", ScopeAll, true)
	job.transition(StateTraining)

	assert.True(t, job.cancel())
	assert.Equal(t, StateCancelled, job.State())
	assert.True(t, job.IsTerminal())
}

func TestJobCancelFromTerminalIsNoop(t *testing.T) {
	job := NewJob("http://example.com/tags/1/training", ScopeAll, true)
	job.transition(StateComplete)

	assert.False(t, job.cancel())
	assert.Equal(t, StateComplete, job.State())
}

func TestJobFailRecordsErrorKindAndMessage(t *testing.T) {
	job := NewJob("http://example.com/tags/1/training", ScopeAll, true)
	job.fail(ErrorNoSuchTag, "training url returned 404")

	assert.Equal(t, StateError, job.State())
	kind, msg := job.Error()
	assert.Equal(t, ErrorNoSuchTag, kind)
	assert.Equal(t, "training url returned 404", msg)
}

func TestJobSnapshotReflectsCurrentState(t *testing.T) {
	job := NewJob("http://example.com/tags/1/training", ScopeNew, false)
	job.setProgress(42.5)
	job.addClassified(3)

	snap := job.Snapshot()
	assert.Equal(t, job.ID, snap.ID)
	assert.Equal(t, 42.5, snap.Progress)
	assert.Equal(t, 3, snap.ItemsClassified)
}
