package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementCacheHitsOnRepeatedKey(t *testing.T) {
	c := newElementCache()
	c.store("A", "idx:1", "%t.7")

	addr, hit := c.lookup("A", "idx:1")
	assert.True(t, hit)
	assert.Equal(t, "%t.7", addr)

	_, hit = c.lookup("A", "idx:2")
	assert.False(t, hit, "a different serialized index must miss")
}

func TestElementCacheClearDropsEveryEntry(t *testing.T) {
	c := newElementCache()
	c.store("A", "1", "%t.1")
	c.store("B", "2", "%t.2")

	c.clear()

	_, hit := c.lookup("A", "1")
	assert.False(t, hit)
	_, hit = c.lookup("B", "2")
	assert.False(t, hit)
}

// TestElementCacheInvalidateNameDropsSameArray covers the whole-array
// invalidation case: a REDIM/ERASE/slice-assign against A must drop
// every cached element base for A, regardless of which index it was
// cached under.
func TestElementCacheInvalidateNameDropsSameArray(t *testing.T) {
	c := newElementCache()
	c.store("A", "0", "%t.1")
	c.store("A", "1", "%t.2")
	c.store("B", "0", "%t.3")

	c.invalidateName("A")

	_, hit := c.lookup("A", "0")
	assert.False(t, hit)
	_, hit = c.lookup("A", "1")
	assert.False(t, hit)
	_, hit = c.lookup("B", "0")
	assert.True(t, hit, "invalidating A must not disturb B's entries")
}

// TestElementCacheInvalidateNameDropsIndexReferences is the
// over-approximation case (open question 4): a LET to a bare variable
// must also drop any cached element base whose index expression
// mentions that variable, since the cached address may depend on its
// value.
func TestElementCacheInvalidateNameDropsIndexReferences(t *testing.T) {
	c := newElementCache()
	c.store("A", "I+1", "%t.1")
	c.store("A", "0", "%t.2")

	c.invalidateName("I")

	_, hit := c.lookup("A", "I+1")
	assert.False(t, hit, "an index expression mentioning I must be invalidated")
	_, hit = c.lookup("A", "0")
	assert.True(t, hit, "an index expression not mentioning I must survive")
}

func TestElementCacheInvalidateNameIsSubstringSafeAcrossTokens(t *testing.T) {
	c := newElementCache()
	c.store("AB", "0", "%t.1")

	c.invalidateName("A")

	_, hit := c.lookup("AB", "0")
	assert.False(t, hit, "the documented over-approximation treats AB as mentioning A")
}
