package tagger

import (
	"testing"
	"time"

	"github.com/peerworks/classifierd/pkg/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition() *Definition {
	return &Definition{
		TagID:              "tag:42",
		Term:               "interesting",
		Scheme:             "http://example.com/schemes/binary",
		Bias:               1.0,
		PositiveExampleIDs: []string{"1", "2"},
		NegativeExampleIDs: []string{"3"},
	}
}

func testItems() map[int64]*corpus.Item {
	now := time.Now()
	return map[int64]*corpus.Item{
		1: corpus.NewItem(1, "http://a", now, map[int64]int{10: 3}),
		2: corpus.NewItem(2, "http://b", now, map[int64]int{10: 2}),
		3: corpus.NewItem(3, "http://c", now, map[int64]int{20: 5}),
	}
}

func TestTrainMovesToTrainedWhenAllExamplesFound(t *testing.T) {
	items := testItems()
	tg := New(testDefinition())

	err := tg.Train(func(id int64) *corpus.Item { return items[id] })
	require.NoError(t, err)
	assert.Equal(t, StateTrained, tg.State)
}

func TestTrainMovesToPartiallyTrainedWhenExamplesMissing(t *testing.T) {
	items := testItems()
	delete(items, 2)
	tg := New(testDefinition())

	err := tg.Train(func(id int64) *corpus.Item { return items[id] })
	require.NoError(t, err)
	assert.Equal(t, StatePartiallyTrained, tg.State)
	assert.Equal(t, []int64{2}, tg.MissingPositive)
}

func TestRetrainResolvesMissingExamples(t *testing.T) {
	items := testItems()
	missingItem := items[2]
	delete(items, 2)

	tg := New(testDefinition())
	require.NoError(t, tg.Train(func(id int64) *corpus.Item { return items[id] }))
	require.Equal(t, StatePartiallyTrained, tg.State)

	items[2] = missingItem
	require.NoError(t, tg.Retrain(func(id int64) *corpus.Item { return items[id] }))
	assert.Equal(t, StateTrained, tg.State)
	assert.Empty(t, tg.MissingPositive)
}

func TestPrecomputeRequiresTrainedState(t *testing.T) {
	tg := New(testDefinition())
	err := tg.Precompute(corpus.NewPool())
	assert.Error(t, err)
	assert.Equal(t, StateSequenceError, tg.State)
}

func TestFullLifecycleClassifiesAnItem(t *testing.T) {
	items := testItems()
	tg := New(testDefinition())

	fetch := func(id int64) *corpus.Item { return items[id] }
	require.NoError(t, tg.Train(fetch))

	background := corpus.NewPool()
	background.AddItems([]*corpus.Item{items[1], items[2], items[3]})
	require.NoError(t, tg.Precompute(background))
	assert.Equal(t, StatePrecomputed, tg.State)

	tagging, err := tg.Classify(items[1])
	require.NoError(t, err)
	assert.Equal(t, "interesting", tagging.TagName)
}

func TestClassifyRequiresPrecomputedState(t *testing.T) {
	tg := New(testDefinition())
	_, err := tg.Classify(corpus.NewItem(1, "http://a", time.Now(), nil))
	assert.Error(t, err)
}
