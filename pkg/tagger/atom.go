package tagger

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// atomFeed mirrors the subset of a tag-definition Atom document this
// service understands: the tag's identity and training links, its bias,
// and one entry per training example, each carrying a rel="negative-example"
// link for negative examples or a <category> for positive examples.
type atomFeed struct {
	XMLName    xml.Name     `xml:"feed"`
	ID         string       `xml:"id"`
	Links      []atomLink   `xml:"link"`
	Category   atomCategory `xml:"category"`
	Updated    string       `xml:"updated"`
	Classified string       `xml:"classified"`
	Bias       string       `xml:"bias"`
	Entries    []atomEntry  `xml:"entry"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type atomCategory struct {
	Term   string `xml:"term,attr"`
	Scheme string `xml:"scheme,attr"`
}

type atomEntry struct {
	ID       string        `xml:"id"`
	Category *atomCategory `xml:"category"`
	Links    []atomLink    `xml:"link"`
	Updated  string        `xml:"updated"`
	InnerXML string        `xml:",innerxml"`
}

const (
	relSelf            = "self"
	relAlternate       = "alternate"
	relClassifierEdit  = "http://peerworks.org/classifier/edit"
	relNegativeExample = "http://peerworks.org/classifier/negative-example"
)

// Definition is a tag's parsed training document: enough to train,
// precompute, and later upload taggings back to the originating system.
type Definition struct {
	TagID              string
	TrainingURL        string
	TaggingsURL        string
	Term               string
	Scheme             string
	Updated            time.Time
	LastClassified     time.Time
	Bias               float64
	PositiveExampleIDs []string
	NegativeExampleIDs []string

	// Examples holds every example entry's own inline atom, so a missing
	// entry can be built and added to the item cache without a second
	// round trip to fetch it.
	Examples []ExampleAtom
}

// ExampleAtom is one training example's inline atom entry: enough to
// build an Entry for the item cache if the item is not yet resident,
// matching original_source's create_entry, which builds an ItemCacheEntry
// straight from the copied <entry> node rather than re-fetching it.
type ExampleAtom struct {
	ItemID    int64
	SourceURL string
	CreatedAt time.Time
	Content   string
}

// ParseDefinition parses a tag-definition Atom document.
//
// An entry with a <category> is a positive example; an entry whose
// <link rel="...negative-example"> is present is a negative example,
// matching the upstream XPath selectors that distinguish the two example
// kinds by marker element rather than by a dedicated attribute.
func ParseDefinition(atom []byte) (*Definition, error) {
	var feed atomFeed
	if err := xml.Unmarshal(atom, &feed); err != nil {
		return nil, fmt.Errorf("parse tag definition: %w", err)
	}

	def := &Definition{
		TagID:  feed.ID,
		Term:   feed.Category.Term,
		Scheme: feed.Category.Scheme,
		Bias:   1.0,
	}

	for _, link := range feed.Links {
		switch link.Rel {
		case relSelf:
			def.TrainingURL = link.Href
		case relClassifierEdit:
			def.TaggingsURL = link.Href
		}
	}

	if feed.Updated != "" {
		if t, err := time.Parse(time.RFC3339, feed.Updated); err == nil {
			def.Updated = t.UTC()
		}
	}
	if feed.Classified != "" {
		if t, err := time.Parse(time.RFC3339, feed.Classified); err == nil {
			def.LastClassified = t.UTC()
		}
	}
	if feed.Bias != "" {
		if b, err := strconv.ParseFloat(feed.Bias, 64); err == nil {
			def.Bias = b
		}
	}

	for _, entry := range feed.Entries {
		if isNegativeExample(entry) {
			def.NegativeExampleIDs = append(def.NegativeExampleIDs, entry.ID)
		} else if entry.Category != nil {
			def.PositiveExampleIDs = append(def.PositiveExampleIDs, entry.ID)
		}

		if ex, ok := parseExampleAtom(entry); ok {
			def.Examples = append(def.Examples, ex)
		}
	}

	return def, nil
}

// parseExampleAtom builds an ExampleAtom from entry's own fields, so it
// can be handed to the item cache verbatim if the item isn't resident
// yet. Entries whose id doesn't parse as an item id are skipped, same as
// parseExampleIDs does for the plain id lists.
func parseExampleAtom(entry atomEntry) (ExampleAtom, bool) {
	id, err := strconv.ParseInt(entry.ID, 10, 64)
	if err != nil {
		return ExampleAtom{}, false
	}

	ex := ExampleAtom{
		ItemID:  id,
		Content: fmt.Sprintf("<entry>%s</entry>", entry.InnerXML),
	}

	for _, link := range entry.Links {
		if link.Rel == relAlternate {
			ex.SourceURL = link.Href
		}
	}

	if entry.Updated != "" {
		if t, err := time.Parse(time.RFC3339, entry.Updated); err == nil {
			ex.CreatedAt = t.UTC()
		}
	}

	return ex, true
}

func isNegativeExample(entry atomEntry) bool {
	for _, link := range entry.Links {
		if link.Rel == relNegativeExample {
			return true
		}
	}
	return false
}
