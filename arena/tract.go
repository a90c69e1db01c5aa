package arena

// Pool is the minimal identity a tract owner must present. Concrete
// pools (object pools, the control pool, the reservoir) live outside
// this package's core concerns; the core only needs enough to attribute
// and compare ownership.
type Pool interface {
	// PoolID identifies the pool for diagnostics and for the ownership
	// check that rejects a free by a pool other than the tract's owner.
	PoolID() string

	// IsReservoir distinguishes the reservoir's own pool from ordinary
	// pools, so free() knows not to try depositing reservoir memory back
	// into itself.
	IsReservoir() bool
}

// Tract is one page within a Chunk, the unit handed out to pools. A
// tract with a nil Owner is free; its Word is opaque storage for
// whatever the owning pool wants to keep alongside the tract (mirroring
// the reference project's per-page opaque state in its page tables).
type Tract struct {
	chunk *Chunk
	index int // page index within chunk

	Owner Pool
	Word  uintptr

	// next chains free single-page tracts into a zone's free ring
	// (§4.3), the Go-native analogue of the reference buddy allocator's
	// intrusive free lists (kernel/threads/arena/buddy.go addToFreeList),
	// which thread "next" offsets through the backing bytes themselves.
	// Tracts here are ordinary Go values, so the link is a pointer.
	next *Tract
}

// Base returns the tract's starting address.
func (t *Tract) Base() Addr {
	return t.chunk.Base + Addr(t.index)*Addr(t.chunk.arena.pageSize())
}

// Limit returns the address one past the tract's last byte.
func (t *Tract) Limit() Addr {
	return t.Base() + Addr(t.chunk.arena.pageSize())
}

// Range returns the tract's [Base, Limit) range.
func (t *Tract) Range() Range {
	return Range{Base: t.Base(), Limit: t.Limit()}
}

// Chunk returns the owning chunk.
func (t *Tract) Chunk() *Chunk {
	return t.chunk
}

// IsFree reports whether the tract is currently unowned.
func (t *Tract) IsFree() bool {
	return t.Owner == nil
}

// first returns the first tract in address order across all chunks of
// the arena, or nil if the arena has no chunks.
func first(a *Arena) *Tract {
	if len(a.chunksOrdered) == 0 {
		return nil
	}
	c := a.chunksOrdered[0]
	if len(c.pageTable) == 0 {
		return next(a, c.Base)
	}
	return &c.pageTable[0]
}

// next returns the tract at or after addr in address order, walking
// across chunk boundaries, or nil if addr is past the last tract.
func next(a *Arena, addr Addr) *Tract {
	for _, c := range a.chunksOrdered {
		if addr >= c.Limit {
			continue
		}
		idx := 0
		if addr > c.Base {
			idx = int((addr - c.Base) / Addr(c.pageSize))
		}
		if idx < c.allocBase {
			idx = c.allocBase
		}
		if idx < len(c.pageTable) {
			return &c.pageTable[idx]
		}
		// addr fell past this chunk's allocatable pages; the loop moves
		// on to the next chunk in address order.
	}
	return nil
}
