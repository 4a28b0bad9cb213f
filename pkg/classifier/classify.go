package classifier

import (
	"sort"

	"github.com/peerworks/classifierd/pkg/corpus"
)

// Tagging is the outcome of scoring one item against one tag's classifier:
// a strength in [0, 1] where values near 1 indicate strong membership and
// values near 0 indicate strong rejection.
type Tagging struct {
	ItemID  int64
	UserID  int64
	User    string
	TagID   int64
	TagName string
	Strength float64
}

// Classify scores item against cls, selecting discriminating clues and
// combining them via chi2Combine. An item with no discriminating clues at
// all is scored at the unknown-word probability.
func Classify(cls *Classifier, item *corpus.Item) *Tagging {
	clues := SelectClues(cls, item)

	strength := unknownWordProb
	if len(clues) > 0 {
		strength = chi2Combine(clues)
	}

	return &Tagging{
		ItemID:   item.ID,
		UserID:   cls.UserID,
		User:     cls.User,
		TagID:    cls.TagID,
		TagName:  cls.TagName,
		Strength: strength,
	}
}

// SelectClues gathers every clue in cls whose strength clears
// minProbStrength for a token present in item, sorted by descending
// strength (ties broken by original encounter order, i.e. token-id
// order since Item.Tokens() is sorted), and caps the result at
// max(maxDiscriminators, maxCluesRatio * item token count).
func SelectClues(cls *Classifier, item *corpus.Item) []*corpus.Clue {
	numTokens := item.NumTokens()
	maxClues := maxDiscriminators
	if ratio := int(maxCluesRatio * float64(numTokens)); ratio > maxClues {
		maxClues = ratio
	}

	var clues []*corpus.Clue
	for _, tok := range item.Tokens() {
		clue := cls.Clues.Get(tok.ID)
		if clue != nil && clue.Strength >= minProbStrength {
			clues = append(clues, clue)
		}
	}

	sort.SliceStable(clues, func(i, j int) bool {
		return clues[i].Strength > clues[j].Strength
	})

	if len(clues) > maxClues {
		clues = clues[:maxClues]
	}
	return clues
}
