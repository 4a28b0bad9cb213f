package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolAddItemAccumulatesFrequencies(t *testing.T) {
	now := time.Now()
	item1 := NewItem(1, "http://a", now, map[int64]int{10: 2, 20: 1})
	item2 := NewItem(2, "http://b", now, map[int64]int{10: 3, 30: 5})

	pool := NewPool()
	pool.AddItem(item1)
	pool.AddItem(item2)

	assert.Equal(t, 11, pool.TotalTokens())
	assert.Equal(t, 3, pool.NumTokens())
	assert.Equal(t, 5, pool.TokenFrequency(10))
	assert.Equal(t, 1, pool.TokenFrequency(20))
	assert.Equal(t, 0, pool.TokenFrequency(999))
}

func TestPoolAddItemsSkipsMissing(t *testing.T) {
	now := time.Now()
	item := NewItem(1, "http://a", now, map[int64]int{10: 1})

	pool := NewPool()
	pool.AddItems([]*Item{item, nil})

	assert.Equal(t, 1, pool.TotalTokens())
}

func TestPoolTokensInAscendingOrder(t *testing.T) {
	now := time.Now()
	item := NewItem(1, "http://a", now, map[int64]int{30: 1, 10: 1, 20: 1})

	pool := NewPool()
	pool.AddItem(item)

	var ids []int64
	for _, tok := range pool.Tokens() {
		ids = append(ids, tok.ID)
	}
	assert.Equal(t, []int64{10, 20, 30}, ids)
}

func TestItemTokensInAscendingOrder(t *testing.T) {
	now := time.Now()
	item := NewItem(1, "http://a", now, map[int64]int{30: 1, 10: 2, 20: 3})

	var ids []int64
	for _, tok := range item.Tokens() {
		ids = append(ids, tok.ID)
	}
	assert.Equal(t, []int64{10, 20, 30}, ids)
	assert.Equal(t, 3, item.NumTokens())
}

func TestClueListAddIsIdempotent(t *testing.T) {
	cl := NewClueList()
	first := cl.Add(1, 0.9)
	second := cl.Add(1, 0.1) // should not overwrite

	assert.Same(t, first, second)
	assert.Equal(t, 0.9, cl.Get(1).Probability)
	assert.Equal(t, 1, cl.Len())
}

func TestClueStrengthIsDistanceFromMidpoint(t *testing.T) {
	clue := NewClue(1, 0.9)
	assert.InDelta(t, 0.4, clue.Strength, 1e-9)

	clue = NewClue(2, 0.5)
	assert.InDelta(t, 0.0, clue.Strength, 1e-9)
}
