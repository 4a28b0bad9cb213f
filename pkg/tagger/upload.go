package tagger

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/peerworks/classifierd/pkg/classifier"
	"github.com/peerworks/classifierd/pkg/signing"
)

type taggingsFeed struct {
	XMLName    xml.Name        `xml:"feed"`
	Xmlns      string          `xml:"xmlns,attr"`
	XmlnsClass string          `xml:"xmlns:classifier,attr"`
	ID         string          `xml:"id,omitempty"`
	Classified string          `xml:"classifier:classified"`
	Entries    []taggingsEntry `xml:"entry"`
}

type taggingsEntry struct {
	ID       string            `xml:"id"`
	Category taggingsEntryCat  `xml:"category"`
}

type taggingsEntryCat struct {
	Term     string `xml:"term,attr"`
	Scheme   string `xml:"scheme,attr"`
	Strength string `xml:"classifier:strength,attr"`
}

// BuildTaggingsXML renders the Atom document uploaded back to the
// classifier-taggings URL: one entry per tagging, each carrying the
// tag's term/scheme and the computed strength.
func BuildTaggingsXML(def *Definition, lastClassified time.Time, taggings []*classifier.Tagging) ([]byte, error) {
	feed := taggingsFeed{
		Xmlns:      "http://www.w3.org/2005/Atom",
		XmlnsClass: "http://peerworks.org/classifier",
		ID:         def.TagID,
		Classified: lastClassified.UTC().Format("2006-01-02T15:04:05Z"),
	}

	for _, tagging := range taggings {
		feed.Entries = append(feed.Entries, taggingsEntry{
			ID: strconv.FormatInt(tagging.ItemID, 10),
			Category: taggingsEntryCat{
				Term:     def.Term,
				Scheme:   def.Scheme,
				Strength: strconv.FormatFloat(tagging.Strength, 'f', 6, 64),
			},
		})
	}

	out, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode taggings xml: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// UploadMethod selects whether taggings are uploaded as the first
// (PUT, replacing any prior taggings) or a subsequent (POST, appending)
// submission for a tagger within a classification session.
type UploadMethod string

const (
	MethodPUT  UploadMethod = http.MethodPut
	MethodPOST UploadMethod = http.MethodPost
)

// Uploader posts rendered taggings documents to the originating system,
// signing the request when credentials are configured.
type Uploader struct {
	client    *http.Client
	userAgent string
	creds     signing.Credentials
}

// NewUploader builds an Uploader.
func NewUploader(timeout time.Duration, userAgent string, creds signing.Credentials) *Uploader {
	return &Uploader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		creds:     creds,
	}
}

// Upload sends body to def.TaggingsURL using method, signing the request
// if credentials are configured.
func (u *Uploader) Upload(ctx context.Context, def *Definition, method UploadMethod, body []byte) error {
	if def.TaggingsURL == "" {
		return fmt.Errorf("tagger %s has no taggings upload url", def.TagID)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), def.TaggingsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/atom+xml")
	req.Header.Set("User-Agent", u.userAgent)
	req.ContentLength = int64(len(body))

	signing.ApplyHeaders(req, u.creds)

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload taggings for %s: %w", def.TagID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("upload taggings for %s: unexpected status %d", def.TagID, resp.StatusCode)
	}
	return nil
}
