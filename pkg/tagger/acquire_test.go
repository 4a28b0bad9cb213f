package tagger

import (
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/itemcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	entries []itemcache.RawEntry
}

func (f *fakeEnqueuer) Enqueue(entry itemcache.RawEntry) {
	f.entries = append(f.entries, entry)
}

func TestAcquireMissingItemsEnqueuesOnlyAbsentExamples(t *testing.T) {
	resident := corpus.NewItem(1, "http://a", time.Now(), map[int64]int{10: 1})
	fetch := func(id int64) *corpus.Item {
		if id == 1 {
			return resident
		}
		return nil
	}

	def := &Definition{
		Examples: []ExampleAtom{
			{ItemID: 1, SourceURL: "http://a", Content: "<entry>resident</entry>"},
			{ItemID: 2, SourceURL: "http://b", Content: "<entry>missing</entry>"},
		},
	}

	enqueuer := &fakeEnqueuer{}
	AcquireMissingItems(def, fetch, enqueuer)

	require.Len(t, enqueuer.entries, 1)
	assert.Equal(t, int64(2), enqueuer.entries[0].ID)
	assert.Equal(t, "http://b", enqueuer.entries[0].SourceURL)
	assert.Equal(t, "<entry>missing</entry>", enqueuer.entries[0].Content)
}

func TestAcquireMissingItemsNoopWhenAllResident(t *testing.T) {
	fetch := func(int64) *corpus.Item { return corpus.NewItem(1, "http://a", time.Now(), nil) }
	def := &Definition{Examples: []ExampleAtom{{ItemID: 1}}}

	enqueuer := &fakeEnqueuer{}
	AcquireMissingItems(def, fetch, enqueuer)

	assert.Empty(t, enqueuer.entries)
}
