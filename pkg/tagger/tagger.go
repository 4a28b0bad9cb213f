// Package tagger implements a single tag's classifier lifecycle: parsing
// its training document, training positive/negative pools from the item
// cache, precomputing clues against the shared background pool, and
// classifying items and uploading the resulting taggings.
package tagger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/peerworks/classifierd/pkg/classifier"
	"github.com/peerworks/classifierd/pkg/corpus"
)

// State is where a Tagger sits in its lifecycle.
type State int

const (
	StateLoaded State = iota
	StateTrained
	StatePartiallyTrained
	StatePrecomputed
	StateSequenceError
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateTrained:
		return "trained"
	case StatePartiallyTrained:
		return "partially_trained"
	case StatePrecomputed:
		return "precomputed"
	default:
		return "sequence_error"
	}
}

// Tagger is one tag's classifier, moving through State as it is trained
// and precomputed.
type Tagger struct {
	Definition *Definition
	State      State

	// LastClassified advances each time the engine successfully uploads a
	// batch of taggings for this tag, independent of Definition's parsed
	// value, so a "New" scope job always compares against this tagger's
	// own most recent classification rather than the upstream document's
	// stale timestamp.
	LastClassified time.Time

	trained    *classifier.TrainedClassifier
	classified *classifier.Classifier

	MissingPositive []int64
	MissingNegative []int64
}

// New builds a freshly-loaded Tagger from a parsed definition.
func New(def *Definition) *Tagger {
	return &Tagger{Definition: def, State: StateLoaded, LastClassified: def.LastClassified}
}

// MarkClassified advances the tagger's LastClassified time. Called after a
// successful taggings upload.
func (t *Tagger) MarkClassified(at time.Time) {
	t.LastClassified = at
}

// parseExampleIDs converts the definition's string item ids to int64,
// skipping (and not failing on) any that don't parse — the training
// document is produced by another system and its example ids are
// opaque strings as far as this package is concerned.
func parseExampleIDs(ids []string) []int64 {
	parsed := make([]int64, 0, len(ids))
	for _, raw := range ids {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			parsed = append(parsed, id)
		}
	}
	return parsed
}

// Train builds the tagger's positive and negative pools from its example
// ids, using fetch to resolve each id to an item. A Tagger may only be
// trained from StateLoaded; retraining is a sequence error. Examples that
// fetch cannot resolve move the tagger to StatePartiallyTrained instead of
// failing outright.
func (t *Tagger) Train(fetch classifier.ItemFetcher) error {
	if t.State != StateLoaded {
		t.State = StateSequenceError
		return fmt.Errorf("tagger %s: cannot train from state %s", t.Definition.TagID, t.State)
	}

	input := classifier.TrainingInput{
		TagID:              0,
		TagName:            t.Definition.Term,
		Bias:               t.Definition.Bias,
		PositiveExampleIDs: parseExampleIDs(t.Definition.PositiveExampleIDs),
		NegativeExampleIDs: parseExampleIDs(t.Definition.NegativeExampleIDs),
	}

	t.trained = classifier.Train(input, fetch)
	t.MissingPositive = t.trained.MissingPositive
	t.MissingNegative = t.trained.MissingNegative

	if len(t.MissingPositive) > 0 || len(t.MissingNegative) > 0 {
		t.State = StatePartiallyTrained
	} else {
		t.State = StateTrained
	}
	return nil
}

// Retrain re-attempts to resolve any examples that were missing on a
// previous Train call, merging newly-found items into the existing pools.
// It is the only way a StatePartiallyTrained tagger can progress.
func (t *Tagger) Retrain(fetch classifier.ItemFetcher) error {
	if t.State != StatePartiallyTrained {
		return fmt.Errorf("tagger %s: retrain only valid from partially_trained, got %s", t.Definition.TagID, t.State)
	}

	var stillMissingPositive, stillMissingNegative []int64
	for _, id := range t.MissingPositive {
		if item := fetch(id); item != nil {
			t.trained.PositivePool.AddItem(item)
		} else {
			stillMissingPositive = append(stillMissingPositive, id)
		}
	}
	for _, id := range t.MissingNegative {
		if item := fetch(id); item != nil {
			t.trained.NegativePool.AddItem(item)
		} else {
			stillMissingNegative = append(stillMissingNegative, id)
		}
	}

	t.MissingPositive = stillMissingPositive
	t.MissingNegative = stillMissingNegative

	if len(t.MissingPositive) > 0 || len(t.MissingNegative) > 0 {
		t.State = StatePartiallyTrained
	} else {
		t.State = StateTrained
	}
	return nil
}

// Precompute derives the tagger's clues against background, freeing the
// training pools since scoring only needs the clue list from here on. A
// Tagger may only be precomputed from StateTrained.
func (t *Tagger) Precompute(background *corpus.Pool) error {
	if t.State != StateTrained {
		t.State = StateSequenceError
		return fmt.Errorf("tagger %s: cannot precompute from state %s", t.Definition.TagID, t.State)
	}

	t.classified = classifier.Precompute(t.trained, background)
	t.trained = nil
	t.State = StatePrecomputed
	return nil
}

// Classify scores item against the tagger's precomputed clues. Valid only
// from StatePrecomputed.
func (t *Tagger) Classify(item *corpus.Item) (*classifier.Tagging, error) {
	if t.State != StatePrecomputed {
		return nil, fmt.Errorf("tagger %s: cannot classify from state %s", t.Definition.TagID, t.State)
	}
	return classifier.Classify(t.classified, item), nil
}

// Prepare drives a tagger all the way from Loaded (or PartiallyTrained)
// to Precomputed in one call, training first if needed.
func (t *Tagger) Prepare(fetch classifier.ItemFetcher, background *corpus.Pool) error {
	switch t.State {
	case StatePrecomputed:
		return nil
	case StateLoaded:
		if err := t.Train(fetch); err != nil {
			return err
		}
	case StatePartiallyTrained:
		if err := t.Retrain(fetch); err != nil {
			return err
		}
	}

	if t.State == StateTrained {
		return t.Precompute(background)
	}
	return nil
}
