package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := newQueue(10)
	first := NewJob("http://a", ScopeAll, true)
	second := NewJob("http://b", ScopeAll, true)

	q.enqueue(first)
	q.enqueue(second)

	assert.Equal(t, first, q.dequeue(context.Background()))
	assert.Equal(t, second, q.dequeue(context.Background()))
}

func TestQueueDequeueTimesOutWhenEmpty(t *testing.T) {
	q := newQueue(10)
	start := time.Now()
	job := q.dequeue(context.Background())
	assert.Nil(t, job)
	assert.GreaterOrEqual(t, time.Since(start), dequeueTimeout)
}

func TestQueueDequeueReturnsOnContextCancel(t *testing.T) {
	q := newQueue(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := q.dequeue(ctx)
	assert.Nil(t, job)
}

func TestQueueRequeueAfterDelay(t *testing.T) {
	q := newQueue(10)
	job := NewJob("http://a", ScopeAll, true)
	q.requeueAfter(job, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := q.dequeue(ctx)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
}
