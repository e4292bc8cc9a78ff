package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryCache_PutGet(t *testing.T) {
	c := NewQueryCache(10)

	gen := c.Generation()
	assert.True(t, c.Put("k", gen, 42))

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestQueryCache_ClearInvalidatesEverything(t *testing.T) {
	c := NewQueryCache(10)
	gen := c.Generation()
	c.Put("a", gen, 1)
	c.Put("b", gen, 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestQueryCache_StaleGenerationDropped(t *testing.T) {
	c := NewQueryCache(10)

	// A reader captures the generation, then a mutation clears the cache
	// before the reader stores its result.
	gen := c.Generation()
	c.Clear()

	assert.False(t, c.Put("k", gen, "stale"))
	_, ok := c.Get("k")
	assert.False(t, ok)

	assert.True(t, c.Put("k", c.Generation(), "fresh"))
}

func TestQueryCache_EvictsOldest(t *testing.T) {
	c := NewQueryCache(2)
	gen := c.Generation()

	c.Put("a", gen, 1)
	c.Put("b", gen, 2)
	c.Put("c", gen, 3)

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	// Overwriting an existing key does not evict.
	c.Put("b", gen, 20)
	v, _ := c.Get("b")
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, c.Len())
}

func TestQueryCache_Disabled(t *testing.T) {
	c := NewQueryCache(0)
	assert.False(t, c.Put("k", c.Generation(), 1))
}

func TestQueryCache_Concurrent(t *testing.T) {
	c := NewQueryCache(100)
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			c.Put(key, c.Generation(), i)
			c.Get(key)
			if i%5 == 0 {
				c.Clear()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 20)
}
