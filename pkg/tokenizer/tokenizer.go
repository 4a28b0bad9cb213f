// Package tokenizer implements the item cache's Extractor against an
// external tokenizer service: POST the verbatim atom XML of an entry,
// parse back a pw:item document of token/frequency pairs, and atomize
// each token string through the corpus dictionary.
package tokenizer

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/peerworks/classifierd/pkg/itemcache"
)

// Atomizer resolves a token string to its dictionary id. *corpus.Dictionary
// satisfies this.
type Atomizer interface {
	Atomize(ctx context.Context, token string) (int64, error)
}

// Client calls an external tokenizer service over HTTP.
type Client struct {
	client    *http.Client
	url       string
	userAgent string
	dict      Atomizer
}

// New builds a Client that posts entries to url and atomizes the
// returned tokens through dict.
func New(url string, timeout time.Duration, userAgent string, dict Atomizer) *Client {
	return &Client{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		userAgent: userAgent,
		dict:      dict,
	}
}

// pwItem is the tokenizer service's response document:
// <pw:item><pw:id>...</pw:id>(<pw:feature key="..." value="..."/>)*</pw:item>
// in namespace http://peerworks.org/classifier.
type pwItem struct {
	XMLName  xml.Name    `xml:"http://peerworks.org/classifier item"`
	ID       string      `xml:"id"`
	Features []pwFeature `xml:"feature"`
}

type pwFeature struct {
	Key   string `xml:"key,attr"`
	Value int    `xml:"value,attr"`
}

// Extract posts entry's atom XML to the tokenizer service and atomizes
// the returned token/frequency pairs. It satisfies itemcache.Extractor.
func (c *Client) Extract(ctx context.Context, entry itemcache.RawEntry) (map[int64]int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader([]byte(entry.Content)))
	if err != nil {
		return nil, fmt.Errorf("create tokenizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/atom+xml")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call tokenizer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tokenizer returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer response: %w", err)
	}

	var doc pwItem
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse tokenizer response: %w", err)
	}

	counts := make(map[int64]int, len(doc.Features))
	for _, f := range doc.Features {
		if f.Value < 0 {
			return nil, fmt.Errorf("tokenizer feature %q has negative frequency %d", f.Key, f.Value)
		}
		id, err := c.dict.Atomize(ctx, f.Key)
		if err != nil {
			return nil, fmt.Errorf("atomize token %q: %w", f.Key, err)
		}
		counts[id] += f.Value
	}

	return counts, nil
}
