package itemcache

import (
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/stretchr/testify/assert"
)

func newTestCache() *Cache {
	return New(nil, nil, nil, DefaultConfig())
}

func TestAddToMemoryKeepsNewestFirstOrder(t *testing.T) {
	c := newTestCache()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c.addToMemory(corpus.NewItem(2, "http://b", base.Add(2*time.Hour), nil))
	c.addToMemory(corpus.NewItem(1, "http://a", base.Add(1*time.Hour), nil))
	c.addToMemory(corpus.NewItem(3, "http://c", base.Add(3*time.Hour), nil))

	assert.Equal(t, 3, c.Size())
	var ids []int64
	for _, item := range c.inOrder {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []int64{3, 2, 1}, ids)
}

func TestAddToMemoryIgnoresDuplicateID(t *testing.T) {
	c := newTestCache()
	now := time.Now()

	c.addToMemory(corpus.NewItem(1, "http://a", now, nil))
	c.addToMemory(corpus.NewItem(1, "http://a-dup", now, nil))

	assert.Equal(t, 1, c.Size())
	assert.Equal(t, "http://a", c.FetchItem(1).SourceURL)
}

func TestFetchItemMissing(t *testing.T) {
	c := newTestCache()
	assert.Nil(t, c.FetchItem(999))
}
