package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockPoolGetExhaustion(t *testing.T) {
	p := newBlockPool(2)
	p.Extend()

	n1, ok := p.Get()
	require.True(t, ok)
	n2, ok := p.Get()
	require.True(t, ok)
	assert.NotSame(t, n1, n2)

	_, ok = p.Get()
	assert.False(t, ok, "pool must report exhaustion rather than allocate past its slab")
}

func TestBlockPoolPutReuse(t *testing.T) {
	p := newBlockPool(1)
	p.Extend()

	n, ok := p.Get()
	require.True(t, ok)
	n.base, n.limit = 10, 20

	p.Put(n)
	assert.True(t, p.available(), "a node returned via Put must be available again")

	reused, ok := p.Get()
	require.True(t, ok)
	assert.Equal(t, Addr(0), reused.base, "Put must reset node fields before returning to the free list")
	assert.Equal(t, Addr(0), reused.limit)
}

func TestBlockPoolNeverSelfExtends(t *testing.T) {
	p := newBlockPool(1)
	// No Extend() call: capacity must stay zero until the bootstrap
	// allocator explicitly grants it (the MFS extend-self=false pin).
	assert.Equal(t, 0, p.capacity)
	_, ok := p.Get()
	assert.False(t, ok)
}

func TestBlockPoolExtendGrowsCapacity(t *testing.T) {
	p := newBlockPool(4)
	p.Extend()
	assert.Equal(t, 4, p.capacity)
	p.Extend()
	assert.Equal(t, 8, p.capacity)
}
