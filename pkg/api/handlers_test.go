package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/peerworks/classifierd/pkg/database"
	"github.com/peerworks/classifierd/pkg/engine"
	"github.com/peerworks/classifierd/pkg/itemcache"
	"github.com/peerworks/classifierd/pkg/signing"
	"github.com/peerworks/classifierd/pkg/tagger"
	"github.com/peerworks/classifierd/pkg/taggercache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, allowedIP string) *Server {
	t.Helper()

	tc := taggercache.New(
		func(int64) *corpus.Item { return nil },
		tagger.NewFetcher(time.Second, "classifierd-test"),
		fakeItems{},
		corpus.NewPool,
		1,
	)
	uploader := tagger.NewUploader(time.Second, "classifierd-test", signing.Credentials{})

	// Workers are never started, so submitted jobs stay exactly in the
	// state these tests put them in.
	eng := engine.New(engine.DefaultConfig(), tc, fakeItems{}, uploader)

	return NewServer("127.0.0.1:0", eng, (*database.Client)(nil), allowedIP)
}

type fakeItems struct{}

func (fakeItems) AllItems() []*corpus.Item            { return nil }
func (fakeItems) ItemsSince(time.Time) []*corpus.Item { return nil }
func (fakeItems) Enqueue(itemcache.RawEntry)          {}

func TestHandleAboutReturnsVersionXML(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/classifier", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<classifier>")
	assert.Contains(t, rec.Body.String(), "<version>")
}

func TestHandleCreateJobReturns201WithLocationAndBody(t *testing.T) {
	s := testServer(t, "")

	body := `<job><tag>http://example.com/tags/1/training</tag></job>`
	req := httptest.NewRequest(http.MethodPost, "/classifier/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/classifier/jobs/")
	assert.Contains(t, rec.Body.String(), "<tag-url>http://example.com/tags/1/training</tag-url>")
	assert.Contains(t, rec.Body.String(), "<status>Waiting</status>")
}

func TestHandleCreateJobRejectsMissingTag(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodPost, "/classifier/jobs", strings.NewReader(`<job></job>`))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetJobAcceptsXMLSuffixAndReturnsStatus(t *testing.T) {
	s := testServer(t, "")
	job := s.engine.Submit("http://example.com/tags/1/training", engine.ScopeAll, false)

	req := httptest.NewRequest(http.MethodGet, "/classifier/jobs/"+job.ID+".xml", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), job.ID)
}

func TestHandleGetJobUnknownIDReturns404(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/classifier/jobs/nope", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteJobOnCancelledJobReturns404(t *testing.T) {
	s := testServer(t, "")
	job := s.engine.Submit("http://example.com/tags/1/training", engine.ScopeAll, false)
	s.engine.Cancel(job.ID)

	req := httptest.NewRequest(http.MethodDelete, "/classifier/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	// A cancelled job is indistinguishable from unknown: deleting it again is 404.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteJobInProgressJobCancelsAndReturns200(t *testing.T) {
	s := testServer(t, "")
	job := s.engine.Submit("http://example.com/tags/1/training", engine.ScopeAll, false)

	req := httptest.NewRequest(http.MethodDelete, "/classifier/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.StateCancelled, job.State())
	_, ok := s.engine.Get(job.ID)
	assert.False(t, ok)
}

func TestHandleDeleteJobUnknownReturns404(t *testing.T) {
	s := testServer(t, "")

	req := httptest.NewRequest(http.MethodDelete, "/classifier/jobs/nope", nil)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIPAllowlistRejectsOtherSources(t *testing.T) {
	s := testServer(t, "10.0.0.1")

	req := httptest.NewRequest(http.MethodGet, "/classifier", nil)
	req.RemoteAddr = "192.168.1.5:54321"
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIPAllowlistAllowsConfiguredSource(t *testing.T) {
	s := testServer(t, "10.0.0.1")

	req := httptest.NewRequest(http.MethodGet, "/classifier", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
