package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/itemcache"
	"github.com/peerworks/classifierd/pkg/signing"
	"github.com/peerworks/classifierd/pkg/tagger"
	"github.com/peerworks/classifierd/pkg/taggercache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainingFeedTemplate = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:classifier="http://peerworks.org/classifier">
  <id>tag:peerworks.org,2026:tags/1</id>
  <link rel="self" href="%s/training"/>
  <link rel="http://peerworks.org/classifier/edit" href="%s/taggings"/>
  <category term="interesting" scheme="http://example.com/schemes/binary"/>
  <entry>
    <id>1</id>
    <category term="interesting" scheme="http://example.com/schemes/binary"/>
  </entry>
  <entry>
    <id>2</id>
    <link rel="http://peerworks.org/classifier/negative-example" href="http://example.com/items/2"/>
  </entry>
</feed>`

type fakeItemSource struct {
	mu    sync.Mutex
	items []*corpus.Item
}

func (s *fakeItemSource) AllItems() []*corpus.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*corpus.Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *fakeItemSource) ItemsSince(t time.Time) []*corpus.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*corpus.Item
	for _, item := range s.items {
		if item.CreatedAt.After(t) {
			out = append(out, item)
		}
	}
	return out
}

// Enqueue satisfies tagger.Enqueuer; nothing in this suite trains against
// an example item missing from the fake source.
func (s *fakeItemSource) Enqueue(itemcache.RawEntry) {}

func testHarness(t *testing.T) (*Engine, *httptest.Server, *fakeItemSource) {
	t.Helper()

	items := &fakeItemSource{items: []*corpus.Item{
		corpus.NewItem(1, "http://a", time.Now(), map[int64]int{10: 3}),
		corpus.NewItem(2, "http://b", time.Now(), map[int64]int{20: 2}),
		corpus.NewItem(3, "http://c", time.Now(), map[int64]int{10: 1, 20: 1}),
	}}

	var uploadCount int
	var uploadMu sync.Mutex
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/training":
			w.Header().Set("Content-Type", "application/atom+xml")
			_, _ = w.Write([]byte(fmt.Sprintf(trainingFeedTemplate, srv.URL, srv.URL)))
		case "/taggings":
			uploadMu.Lock()
			uploadCount++
			uploadMu.Unlock()
			body, _ := io.ReadAll(r.Body)
			require.Contains(t, string(body), "<feed")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	fetch := func(id int64) *corpus.Item {
		for _, item := range items.items {
			if item.ID == id {
				return item
			}
		}
		return nil
	}

	fetcher := tagger.NewFetcher(2*time.Second, "classifierd-test")
	background := corpus.NewPool()
	background.AddItems(items.items)

	tc := taggercache.New(fetch, fetcher, items, func() *corpus.Pool { return background }, 4)
	uploader := tagger.NewUploader(2*time.Second, "classifierd-test", signing.Credentials{})

	cfg := DefaultConfig()
	cfg.WorkerCount = 1
	cfg.CheckoutRetryDelay = 20 * time.Millisecond
	cfg.PendingRetryDelay = 20 * time.Millisecond
	cfg.MissingItemTimeout = time.Second

	e := New(cfg, tc, items, uploader)
	return e, srv, items
}

func TestEngineCompletesAJobEndToEnd(t *testing.T) {
	e, srv, _ := testHarness(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	job := e.Submit(srv.URL+"/training", ScopeAll, true)

	require.Eventually(t, func() bool {
		return job.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StateComplete, job.State())
	assert.Equal(t, 3, job.ItemsClassified())
	assert.Equal(t, 100.0, job.Progress())
}

func TestEngineJobNotFoundForUnknownTag(t *testing.T) {
	e, srv, _ := testHarness(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	job := e.Submit(srv.URL+"/nope", ScopeAll, true)

	require.Eventually(t, func() bool {
		return job.IsTerminal()
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, StateError, job.State())
	kind, _ := job.Error()
	assert.Equal(t, ErrorNoSuchTag, kind)
}

func TestEngineCancelRemovesJobFromProcessing(t *testing.T) {
	e, srv, _ := testHarness(t)
	defer srv.Close()

	job := e.Submit(srv.URL+"/training", ScopeAll, true)
	assert.True(t, e.Cancel(job.ID))
	assert.Equal(t, StateCancelled, job.State())
}

func TestEngineDeleteUnknownJobReturnsFalse(t *testing.T) {
	e, srv, _ := testHarness(t)
	defer srv.Close()

	assert.False(t, e.Delete("no-such-id"))
}

func TestEngineSecondJobForSameTagUploadsViaPost(t *testing.T) {
	e, srv, _ := testHarness(t)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	first := e.Submit(srv.URL+"/training", ScopeAll, true)
	require.Eventually(t, func() bool { return first.IsTerminal() }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, StateComplete, first.State())

	assert.Equal(t, tagger.MethodPOST, e.uploadMethod(srv.URL+"/training"))
}
