package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoneSetBasics(t *testing.T) {
	z := ZoneSetOf(1, 3, 5)
	assert.True(t, z.Has(1))
	assert.True(t, z.Has(3))
	assert.True(t, z.Has(5))
	assert.False(t, z.Has(2))
	assert.Equal(t, 3, z.Count())

	z = z.Without(3)
	assert.False(t, z.Has(3))
	assert.Equal(t, 2, z.Count())

	assert.True(t, ZoneSetEmpty.IsEmpty())
	assert.False(t, z.IsEmpty())
	assert.Equal(t, NumZones, ZoneSetAll.Count())
}

func TestZoneSetAlgebra(t *testing.T) {
	a := ZoneSetOf(1, 2, 3)
	b := ZoneSetOf(2, 3, 4)

	assert.Equal(t, ZoneSetOf(1, 2, 3, 4), a.Union(b))
	assert.Equal(t, ZoneSetOf(2, 3), a.Intersect(b))
	assert.Equal(t, ZoneSetOf(1), a.Minus(b))
}

func TestZoneFunc(t *testing.T) {
	const shift = 20 // 1 MiB zones
	zoneSize := Addr(1) << shift

	assert.Equal(t, uint(0), zoneFunc(0, shift))
	assert.Equal(t, uint(1), zoneFunc(zoneSize, shift))
	assert.Equal(t, uint(2), zoneFunc(zoneSize*2, shift))
	// Wraps at NumZones.
	assert.Equal(t, uint(0), zoneFunc(zoneSize*NumZones, shift))
}

func TestZonesOf(t *testing.T) {
	const shift = 12 // 4 KiB zones
	zoneSize := Addr(1) << shift

	t.Run("single zone", func(t *testing.T) {
		z := zonesOf(Range{Base: 0, Limit: zoneSize}, shift)
		assert.Equal(t, 1, z.Count())
		assert.True(t, z.Has(0))
	})

	t.Run("spans two zones", func(t *testing.T) {
		z := zonesOf(Range{Base: zoneSize - 10, Limit: zoneSize + 10}, shift)
		assert.Equal(t, 2, z.Count())
		assert.True(t, z.Has(0))
		assert.True(t, z.Has(1))
	})

	t.Run("empty range", func(t *testing.T) {
		z := zonesOf(Range{}, shift)
		assert.True(t, z.IsEmpty())
	})
}

func TestSingleZone(t *testing.T) {
	const shift = 12
	zoneSize := Addr(1) << shift

	z, single := singleZone(Range{Base: 0, Limit: zoneSize}, shift)
	assert.Equal(t, uint(0), z)
	assert.True(t, single)

	_, single = singleZone(Range{Base: zoneSize - 10, Limit: zoneSize + 10}, shift)
	assert.False(t, single)
}

func TestZoneBoundaryAfter(t *testing.T) {
	const shift = 12
	zoneSize := Addr(1) << shift

	assert.Equal(t, zoneSize, zoneBoundaryAfter(1, shift))
	assert.Equal(t, zoneSize, zoneBoundaryAfter(zoneSize, shift))
	assert.Equal(t, zoneSize*2, zoneBoundaryAfter(zoneSize+1, shift))
}
