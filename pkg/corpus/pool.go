package corpus

import "sort"

// Pool aggregates the token frequencies of a set of items — the positive
// or negative training example set for a tag, or the shared background
// corpus. Aggregation is a simple sum; a Pool never forgets a token once
// added to it.
type Pool struct {
	totalTokens int
	freq        map[int64]int
	order       []int64 // first-insertion order, kept sorted lazily for iteration
	sorted      bool
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{freq: make(map[int64]int)}
}

// AddItem merges item's tokens into the pool.
func (p *Pool) AddItem(item *Item) {
	for _, tok := range item.Tokens() {
		if _, ok := p.freq[tok.ID]; !ok {
			p.order = append(p.order, tok.ID)
			p.sorted = false
		}
		p.freq[tok.ID] += tok.Frequency
		p.totalTokens += tok.Frequency
	}
}

// AddItems merges every item in items into the pool. A missing item (nil)
// is skipped rather than treated as an error, matching a best-effort
// training pass over a possibly-stale example list.
func (p *Pool) AddItems(items []*Item) {
	for _, item := range items {
		if item != nil {
			p.AddItem(item)
		}
	}
}

// TotalTokens is the sum of every token frequency ever merged into the pool.
func (p *Pool) TotalTokens() int {
	return p.totalTokens
}

// NumTokens is the number of distinct tokens in the pool.
func (p *Pool) NumTokens() int {
	return len(p.freq)
}

// TokenFrequency returns the merged frequency for tokenID, or 0.
func (p *Pool) TokenFrequency(tokenID int64) int {
	return p.freq[tokenID]
}

// Tokens returns every (token id, frequency) pair in the pool, in
// ascending token-id order.
func (p *Pool) Tokens() []Token {
	if !p.sorted {
		sort.Slice(p.order, func(i, j int) bool { return p.order[i] < p.order[j] })
		p.sorted = true
	}
	tokens := make([]Token, len(p.order))
	for i, id := range p.order {
		tokens[i] = Token{ID: id, Frequency: p.freq[id]}
	}
	return tokens
}
