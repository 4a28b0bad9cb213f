package tagger

import (
	"encoding/xml"
	"fmt"
)

const relTraining = "http://peerworks.org/classifier/training"

type indexFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Updated string       `xml:"updated"`
	Entries []indexEntry `xml:"entry"`
}

type indexEntry struct {
	Links []atomLink `xml:"link"`
}

// ParseIndex extracts the flat list of tag training urls from a tag-index
// Atom feed, along with the feed's own updated timestamp.
func ParseIndex(document []byte) (urls []string, updated string, err error) {
	var feed indexFeed
	if err := xml.Unmarshal(document, &feed); err != nil {
		return nil, "", fmt.Errorf("parse tag index: %w", err)
	}

	for _, entry := range feed.Entries {
		for _, link := range entry.Links {
			if link.Rel == relTraining && link.Href != "" {
				urls = append(urls, link.Href)
			}
		}
	}
	return urls, feed.Updated, nil
}
