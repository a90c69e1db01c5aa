package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArena(pageSize Size) *Arena {
	return &Arena{alignment: pageSize}
}

func TestNewChunkReservesMetadataPages(t *testing.T) {
	a := testArena(4096)
	c := newChunk(a, 0, 4096*100, true)

	assert.Equal(t, 100, c.pages)
	assert.Greater(t, c.allocBase, 0, "a chunk this large needs at least one metadata page")
	assert.True(t, c.primary)

	for i := 0; i < c.allocBase; i++ {
		assert.True(t, c.bitIsSet(i), "metadata page %d must be pre-marked allocated", i)
		assert.Nil(t, c.pageTable[i].Owner, "metadata pages have no Pool owner")
	}
}

func TestChunkFreeExtent(t *testing.T) {
	a := testArena(4096)
	c := newChunk(a, 0, 4096*10, true)

	fe := c.FreeExtent()
	assert.Equal(t, Addr(c.allocBase)*4096, fe.Base)
	assert.Equal(t, Addr(4096*10), fe.Limit)
}

func TestChunkPageIndex(t *testing.T) {
	a := testArena(4096)
	c := newChunk(a, 1<<20, 1<<20+4096*10, false)

	assert.Equal(t, 0, c.PageIndex(1<<20))
	assert.Equal(t, 1, c.PageIndex(1<<20+4096))
	assert.Equal(t, 9, c.PageIndex(1<<20+4096*9))
}

func TestChunkMarkAllocatedAndFree(t *testing.T) {
	a := testArena(4096)
	c := newChunk(a, 0, 4096*10, true)
	pool := NewPool("test-pool")

	idx, ok := c.findFreePage()
	require.True(t, ok)
	require.Equal(t, c.allocBase, idx, "the first allocatable page is the one right after metadata")

	c.MarkAllocated(idx, 2, pool)
	assert.True(t, c.bitIsSet(idx))
	assert.True(t, c.bitIsSet(idx+1))
	assert.Equal(t, pool, c.pageTable[idx].Owner)
	assert.Equal(t, pool, c.pageTable[idx+1].Owner)

	next, ok := c.findFreePage()
	require.True(t, ok)
	assert.Equal(t, idx+2, next, "findFreePage must skip pages just marked allocated")

	c.MarkFree(idx, 2)
	assert.False(t, c.bitIsSet(idx))
	assert.Nil(t, c.pageTable[idx].Owner)
}

func TestChunkFindFreePageExhausted(t *testing.T) {
	a := testArena(4096)
	c := newChunk(a, 0, 4096*2, true)
	pool := NewPool("test-pool")

	for {
		idx, ok := c.findFreePage()
		if !ok {
			break
		}
		c.MarkAllocated(idx, 1, pool)
	}

	_, ok := c.findFreePage()
	assert.False(t, ok)
}
