package arena

import "math/bits"

// NumZones is Z in spec terms: 8 * sizeof(ZoneSet), one bit per zone.
const NumZones = 64

// ZoneSet is a bitmask over the NumZones zones, modeled directly on the
// bitmap-set idiom used throughout the reference project's supervisor
// allocation table (kernel/threads/sab/epoch_allocator.go's UsedBitmap)
// and buddy allocator bitmap.
type ZoneSet uint64

// ZoneSetEmpty and ZoneSetAll are the two boundary masks used by the
// placement policy's search ladder.
const (
	ZoneSetEmpty ZoneSet = 0
	ZoneSetAll   ZoneSet = ^ZoneSet(0)
)

// ZoneSetOf builds a ZoneSet from a list of zone indices.
func ZoneSetOf(zones ...uint) ZoneSet {
	var z ZoneSet
	for _, zone := range zones {
		z = z.With(zone)
	}
	return z
}

// With returns z with the given zone added.
func (z ZoneSet) With(zone uint) ZoneSet {
	return z | (1 << (zone % NumZones))
}

// Without returns z with the given zone removed.
func (z ZoneSet) Without(zone uint) ZoneSet {
	return z &^ (1 << (zone % NumZones))
}

// Has reports whether zone is a member of z.
func (z ZoneSet) Has(zone uint) bool {
	return z&(1<<(zone%NumZones)) != 0
}

// IsEmpty reports whether z has no member zones.
func (z ZoneSet) IsEmpty() bool {
	return z == 0
}

// Union, Intersect and Minus implement the set algebra the placement
// policy's search ladder is built from (§4.4: more, even, ALL − avoid).
func (z ZoneSet) Union(other ZoneSet) ZoneSet     { return z | other }
func (z ZoneSet) Intersect(other ZoneSet) ZoneSet { return z & other }
func (z ZoneSet) Minus(other ZoneSet) ZoneSet     { return z &^ other }

// Count returns the number of member zones.
func (z ZoneSet) Count() int {
	return bits.OnesCount64(uint64(z))
}

// zoneFunc computes zone(addr) = (addr >> zoneShift) & (Z-1), the pure
// mapping named in §2.
func zoneFunc(addr Addr, zoneShift uint) uint {
	return uint(addr>>zoneShift) & (NumZones - 1)
}

// zonesOf returns the set of zones a range spans. A range spanning many
// zones (a "wide" allocation) will have more than one bit set.
func zonesOf(r Range, zoneShift uint) ZoneSet {
	if r.IsEmpty() {
		return ZoneSetEmpty
	}
	var z ZoneSet
	zoneSize := Addr(1) << zoneShift
	// Walk zone boundaries rather than every address; a range can span
	// at most NumZones*2 boundaries before wrapping, which bounds this
	// loop even for arena-sized ranges.
	cursor := r.Base
	for cursor < r.Limit {
		z = z.With(zoneFunc(cursor, zoneShift))
		nextBoundary := alignUp(cursor+1, Size(zoneSize))
		if nextBoundary <= cursor {
			break
		}
		cursor = nextBoundary
	}
	return z
}

// singleZone reports the zone of r and whether r lies entirely within
// one zone (does not cross a zone boundary).
func singleZone(r Range, zoneShift uint) (uint, bool) {
	if r.IsEmpty() {
		return 0, true
	}
	zoneSize := Addr(1) << zoneShift
	startZoneBase := alignDown(r.Base, Size(zoneSize))
	endZoneBase := alignDown(r.Limit-1, Size(zoneSize))
	return zoneFunc(r.Base, zoneShift), startZoneBase == endZoneBase
}

// zoneBoundaryAfter returns the address of the next zone boundary at or
// after addr.
func zoneBoundaryAfter(addr Addr, zoneShift uint) Addr {
	zoneSize := Addr(1) << zoneShift
	return alignUp(addr, Size(zoneSize))
}
