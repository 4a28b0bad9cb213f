package classifier

import "github.com/peerworks/classifierd/pkg/corpus"

// TrainingInput is everything Train needs from a tag's
// definition document: its identity, its classification bias, and the
// item ids making up its positive and negative example sets.
type TrainingInput struct {
	UserID             int64
	User               string
	TagID              int64
	TagName            string
	Bias               float64
	PositiveExampleIDs []int64
	NegativeExampleIDs []int64
}

// TrainedClassifier is the result of merging a tag's example items into
// positive and negative pools. It carries no precomputed clues yet — that
// happens in Precompute, against a shared background pool that may change
// independently of any one tag's training.
type TrainedClassifier struct {
	UserID       int64
	User         string
	TagID        int64
	TagName      string
	Bias         float64
	PositivePool *corpus.Pool
	NegativePool *corpus.Pool

	// MissingPositive and MissingNegative record example item ids that
	// fetch could not resolve, for partial-training diagnostics.
	MissingPositive []int64
	MissingNegative []int64
}

// ItemFetcher resolves an item id to its Item, or nil if the item is not
// (yet) present in the cache.
type ItemFetcher func(id int64) *corpus.Item

// Train builds positive and negative pools for a tag from its example
// item ids. Items that cannot be fetched are skipped and recorded as
// missing rather than failing the whole training pass, so a tag can still
// train with a partial example set.
func Train(input TrainingInput, fetch ItemFetcher) *TrainedClassifier {
	tc := &TrainedClassifier{
		UserID:       input.UserID,
		User:         input.User,
		TagID:        input.TagID,
		TagName:      input.TagName,
		Bias:         input.Bias,
		PositivePool: corpus.NewPool(),
		NegativePool: corpus.NewPool(),
	}

	for _, id := range input.PositiveExampleIDs {
		if item := fetch(id); item != nil {
			tc.PositivePool.AddItem(item)
		} else {
			tc.MissingPositive = append(tc.MissingPositive, id)
		}
	}

	for _, id := range input.NegativeExampleIDs {
		if item := fetch(id); item != nil {
			tc.NegativePool.AddItem(item)
		} else {
			tc.MissingNegative = append(tc.MissingNegative, id)
		}
	}

	return tc
}

// Classifier is a TrainedClassifier with clues precomputed against a
// background pool: a cached probability estimate for every token seen in
// any of the three pools, ready to score arbitrary items without
// recomputing per-token probabilities each time.
type Classifier struct {
	UserID  int64
	User    string
	TagID   int64
	TagName string
	Bias    float64
	Clues   *corpus.ClueList
}

// Precompute walks the background pool, then the positive pool, then the
// negative pool — in that order, since background is usually the
// largest — computing and caching each token's probability exactly once.
func Precompute(tc *TrainedClassifier, background *corpus.Pool) *Classifier {
	cls := &Classifier{
		UserID:  tc.UserID,
		User:    tc.User,
		TagID:   tc.TagID,
		TagName: tc.TagName,
		Bias:    tc.Bias,
		Clues:   corpus.NewClueList(),
	}

	positiveSize := float64(tc.PositivePool.TotalTokens()) / tc.Bias
	negativeSize := float64(tc.NegativePool.TotalTokens()) * tc.Bias
	backgroundSize := float64(background.TotalTokens()) * tc.Bias

	fgTotal := int(positiveSize)
	bgTotal := int(negativeSize + backgroundSize)

	probFor := func(tokenID int64, positiveCount, negativeCount, backgroundCount int) float64 {
		foregrounds := []probToken{{tokenCount: positiveCount, poolSize: int(positiveSize)}}
		backgrounds := []probToken{
			{tokenCount: negativeCount, poolSize: int(negativeSize)},
			{tokenCount: backgroundCount, poolSize: int(backgroundSize)},
		}
		return probability(foregrounds, backgrounds, fgTotal, bgTotal)
	}

	for _, tok := range background.Tokens() {
		cls.Clues.Add(tok.ID, probFor(tok.ID,
			tc.PositivePool.TokenFrequency(tok.ID),
			tc.NegativePool.TokenFrequency(tok.ID),
			tok.Frequency))
	}

	for _, tok := range tc.PositivePool.Tokens() {
		if cls.Clues.Get(tok.ID) != nil {
			continue
		}
		cls.Clues.Add(tok.ID, probFor(tok.ID,
			tok.Frequency,
			tc.NegativePool.TokenFrequency(tok.ID),
			background.TokenFrequency(tok.ID)))
	}

	for _, tok := range tc.NegativePool.Tokens() {
		if cls.Clues.Get(tok.ID) != nil {
			continue
		}
		cls.Clues.Add(tok.ID, probFor(tok.ID,
			tc.PositivePool.TokenFrequency(tok.ID),
			tok.Frequency,
			background.TokenFrequency(tok.ID)))
	}

	return cls
}
