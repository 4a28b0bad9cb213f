package corpus

import (
	"sort"
	"time"
)

// Token is one (token id, frequency) pair visited during iteration over an
// Item or a Pool.
type Token struct {
	ID        int64
	Frequency int
}

// Item is an immutable, tokenized unit of content. Once constructed its
// token set never changes; the feature extractor produces it exactly once
// per item.
type Item struct {
	ID        int64
	SourceURL string
	CreatedAt time.Time

	// tokenIDs is kept sorted ascending so iteration visits tokens in
	// token-id order, matching the cursor semantics the classifier
	// pipeline relies on when merging several token streams.
	tokenIDs []int64
	counts   map[int64]int
}

// NewItem builds an Item from a token-id -> frequency map.
func NewItem(id int64, sourceURL string, createdAt time.Time, counts map[int64]int) *Item {
	ids := make([]int64, 0, len(counts))
	for tokenID := range counts {
		ids = append(ids, tokenID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Item{
		ID:        id,
		SourceURL: sourceURL,
		CreatedAt: createdAt,
		tokenIDs:  ids,
		counts:    counts,
	}
}

// NumTokens returns the number of distinct tokens in the item.
func (it *Item) NumTokens() int {
	return len(it.tokenIDs)
}

// Tokens returns every (token id, frequency) pair in the item, in
// ascending token-id order.
func (it *Item) Tokens() []Token {
	tokens := make([]Token, len(it.tokenIDs))
	for i, id := range it.tokenIDs {
		tokens[i] = Token{ID: id, Frequency: it.counts[id]}
	}
	return tokens
}

// Frequency returns how many times tokenID occurs in the item, or 0 if it
// does not occur at all.
func (it *Item) Frequency(tokenID int64) int {
	return it.counts[tokenID]
}
