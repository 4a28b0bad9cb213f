package corpus

import "math"

// Clue is a single token's contribution to a tag's classification of an
// item: its raw probability of belonging to the tag's positive pool, and
// the absolute distance of that probability from the uninformative
// midpoint (0.5) — its strength as a discriminator.
type Clue struct {
	TokenID     int64
	Probability float64
	Strength    float64
}

// NewClue builds a Clue, deriving strength from probability.
func NewClue(tokenID int64, probability float64) *Clue {
	return &Clue{
		TokenID:     tokenID,
		Probability: probability,
		Strength:    math.Abs(0.5 - probability),
	}
}

// ClueList is an idempotent, token-id-keyed set of clues built up while
// precomputing a classifier: the first clue computed for a token id wins,
// later attempts to add the same token id are no-ops.
type ClueList struct {
	byToken map[int64]*Clue
}

// NewClueList returns an empty ClueList.
func NewClueList() *ClueList {
	return &ClueList{byToken: make(map[int64]*Clue)}
}

// Add inserts a clue for tokenID if one is not already present, returning
// the clue now on file for tokenID (the new one, or the pre-existing one).
func (cl *ClueList) Add(tokenID int64, probability float64) *Clue {
	if existing, ok := cl.byToken[tokenID]; ok {
		return existing
	}
	clue := NewClue(tokenID, probability)
	cl.byToken[tokenID] = clue
	return clue
}

// Get returns the clue on file for tokenID, or nil.
func (cl *ClueList) Get(tokenID int64) *Clue {
	return cl.byToken[tokenID]
}

// Len is the number of distinct clues in the list.
func (cl *ClueList) Len() int {
	return len(cl.byToken)
}
