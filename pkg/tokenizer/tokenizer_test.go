package tokenizer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/itemcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenizerResponse = `<?xml version="1.0"?>
<item xmlns="http://peerworks.org/classifier">
  <id>42</id>
  <feature key="apple" value="3"/>
  <feature key="banana" value="1"/>
</item>`

// fakeAtomizer maps token strings to fixed ids, standing in for the
// corpus token dictionary.
type fakeAtomizer map[string]int64

func (f fakeAtomizer) Atomize(_ context.Context, token string) (int64, error) {
	return f[token], nil
}

func TestExtractPostsBodyAndAtomizesReturnedFeatures(t *testing.T) {
	var gotBody string
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(tokenizerResponse))
	}))
	defer srv.Close()

	dict := fakeAtomizer{"apple": 1, "banana": 2}
	client := New(srv.URL, 2*time.Second, "classifierd-test", dict)

	counts, err := client.Extract(context.Background(), itemcache.RawEntry{ID: 42, Content: "<entry/>"})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 3, 2: 1}, counts)
	assert.Equal(t, "<entry/>", gotBody)
	assert.Equal(t, "application/atom+xml", gotContentType)
}

func TestExtractFailsOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, "classifierd-test", fakeAtomizer{})
	_, err := client.Extract(context.Background(), itemcache.RawEntry{ID: 1, Content: "<entry/>"})
	assert.Error(t, err)
}

func TestExtractRejectsNegativeFrequency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<item xmlns="http://peerworks.org/classifier"><id>1</id><feature key="bad" value="-1"/></item>`))
	}))
	defer srv.Close()

	client := New(srv.URL, 2*time.Second, "classifierd-test", fakeAtomizer{})
	_, err := client.Extract(context.Background(), itemcache.RawEntry{ID: 1, Content: "<entry/>"})
	assert.Error(t, err)
}
