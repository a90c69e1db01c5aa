package arena

// allocate implements the placement policy search ladder of §4.4. Each
// plan is tried in order; the first one that finds a big-enough range
// wins. Plan A tries only the caller's preferred zones: their freeRing and
// zoneCRS first, then the parts of freeCRS inside them. Plan B widens
// the search to every zone freeZones still remembers as untouched. Plan C
// grows the arena with a fresh chunk and retries A and B once against the
// widened freeZones. Plan D drops the zone preference but keeps the
// avoid-list. The last resort drops the avoid-list too: anywhere in
// freeCRS will do.
func (a *Arena) allocate(size Size, pool Pool, pref Pref) (Range, error) {
	if size == 0 {
		return Range{}, newError(Memory, "allocation size must be non-zero")
	}
	if !isAligned(Addr(size), a.alignment) {
		return Range{}, newError(Memory, "allocation size %d is not a multiple of alignment %d", size, a.alignment)
	}

	if err := a.checkCommit(size); err != nil {
		if pref.ReservoirPermit {
			if r, ok := a.reservoir.Withdraw(size); ok {
				a.logEvent(eventArenaAlloc, "pool", pool.PoolID(), "base", r.Base, "size", size, "plan", "reservoir")
				return r, nil
			}
		}
		a.logEvent(eventArenaAllocFail, "pool", pool.PoolID(), "size", size, "reason", "commit-limit")
		return Range{}, err
	}

	r, ok, err := a.tryLadder(size, pref)
	if err != nil {
		return Range{}, err
	}
	if !ok {
		if pref.ReservoirPermit {
			if r, ok := a.reservoir.Withdraw(size); ok {
				a.logEvent(eventArenaAlloc, "pool", pool.PoolID(), "base", r.Base, "size", size, "plan", "reservoir")
				return r, nil
			}
		}
		a.logEvent(eventArenaAllocFail, "pool", pool.PoolID(), "size", size, "reason", "resource")
		return Range{}, newError(Resource, "no %d-byte range available for pool %q", size, pool.PoolID())
	}

	if merr := a.markRangeAllocated(r, pool); merr != nil {
		return Range{}, merr
	}
	a.freeZones = a.freeZones.Minus(zonesOf(r, a.zoneShift))
	a.lastTract = a.chunkFor(r.Base).tractAt(r.Base)
	a.lastTractBase = r.Base
	a.logEvent(eventArenaAlloc, "pool", pool.PoolID(), "base", r.Base, "size", size)
	return r, nil
}

// tryLadder runs Plan A through the last resort, in §4.4's priority
// order: widen the zone mask before growing, and grow before relaxing a
// pool's zone blacklist.
func (a *Arena) tryLadder(size Size, pref Pref) (Range, bool, error) {
	if r, ok, err := a.planA(size, pref); err != nil || ok {
		return r, ok, err
	}
	if r, ok, err := a.planB(size, pref); err != nil || ok {
		return r, ok, err
	}
	if grew, _ := a.growFor(size, pref); grew {
		if r, ok, err := a.planA(size, pref); err != nil || ok {
			return r, ok, err
		}
		if r, ok, err := a.planB(size, pref); err != nil || ok {
			return r, ok, err
		}
	}
	if r, ok, err := a.planD(size, pref); err != nil || ok {
		return r, ok, err
	}
	return a.lastResort(size, pref)
}

// planA looks only within the caller's preferred zones. A page-sized
// request checks each zone's freeRing first, the single-tract fast path
// of §4.3; anything left is served from that zone's zoneCRS, and failing
// both, from freeCRS restricted to the preferred zones.
func (a *Arena) planA(size Size, pref Pref) (Range, bool, error) {
	if pref.Zones.IsEmpty() {
		return Range{}, false, nil
	}
	candidates := pref.Zones.Minus(pref.Avoid)
	pageSized := size == a.pageSize()
	for z := uint(0); z < NumZones; z++ {
		if !candidates.Has(z) {
			continue
		}
		if pageSized {
			if t, ok := a.popFreeRing(z); ok {
				return t.Range(), true, nil
			}
		}
		crs := a.zoneCRS[z]
		if crs == nil || crs.IsEmpty() {
			continue
		}
		taken, ok, err := a.findIn(crs, size, pref.High)
		if err != nil {
			return Range{}, false, err
		}
		if ok {
			return taken, true, nil
		}
	}
	return a.findInZonesAndMigrate(size, candidates, pref.High)
}

// planB widens the search to every zone freeZones still remembers as
// having never been allocated from, on top of the caller's own
// preference, minus the avoid-list: more = pref.zones ∪ (freeZones −
// pref.avoid). It only searches when that actually grows the candidate
// set past what Plan A already tried.
func (a *Arena) planB(size Size, pref Pref) (Range, bool, error) {
	more := pref.Zones.Union(a.freeZones.Minus(pref.Avoid))
	if more == pref.Zones {
		return Range{}, false, nil
	}
	return a.findInZonesAndMigrate(size, more, pref.High)
}

// growFor asks the class for a fresh chunk able to satisfy a size-byte
// request, registers it, and folds its free extent into freeCRS and
// freeZones. The bool return reports whether growth succeeded; a failure
// is not fatal to the allocation, it just falls through to Plan D.
func (a *Arena) growFor(size Size, pref Pref) (bool, error) {
	grow := size
	if a.args.ExtendBy > grow {
		grow = a.args.ExtendBy
	}
	grow = alignUpSize(grow, a.alignment)

	chunkRange, err := a.class.Grow(a, pref, grow)
	if err != nil {
		return false, err
	}

	c := newChunk(a, chunkRange.Base, chunkRange.Limit, false)
	if err := a.class.ChunkInit(a, c); err != nil {
		return false, err
	}
	a.registerChunk(c)

	if err := a.crsInsert(a.freeCRS, c.FreeExtent()); err != nil {
		return false, err
	}
	a.freeZones = a.freeZones.Union(zonesOf(c.FreeExtent(), a.zoneShift))
	return true, nil
}

// planD drops the zone preference, keeping only the avoid-list.
func (a *Arena) planD(size Size, pref Pref) (Range, bool, error) {
	if pref.Avoid.IsEmpty() {
		return Range{}, false, nil
	}
	zones := ZoneSetAll.Minus(pref.Avoid)
	return a.findInZonesAndMigrate(size, zones, pref.High)
}

// lastResort drops every constraint: anywhere in freeCRS will do.
func (a *Arena) lastResort(size Size, pref Pref) (Range, bool, error) {
	var (
		taken Range
		ok    bool
		err   error
	)
	if pref.High {
		taken, ok, err = a.crsFindLast(a.freeCRS, size)
	} else {
		taken, ok, err = a.crsFindFirst(a.freeCRS, size)
	}
	if err != nil || !ok {
		return Range{}, false, err
	}
	a.migrateTailsAround(taken)
	return taken, true, nil
}

// findIn runs a plain (non-zone-aware) search over crs, used by Plan A
// where crs is already known to hold only single-zone ranges.
func (a *Arena) findIn(crs *CRS, size Size, high bool) (Range, bool, error) {
	if high {
		return a.crsFindLast(crs, size)
	}
	return a.crsFindFirst(crs, size)
}

func (a *Arena) findInZonesAndMigrate(size Size, zones ZoneSet, high bool) (Range, bool, error) {
	var (
		taken Range
		ok    bool
		err   error
	)
	if high {
		taken, ok, err = a.crsFindLastInZones(a.freeCRS, size, zones)
	} else {
		taken, ok, err = a.crsFindFirstInZones(a.freeCRS, size, zones)
	}
	if err != nil || !ok {
		return Range{}, false, err
	}
	a.migrateTailsAround(taken)
	return taken, true, nil
}

// migrateTailsAround moves any single-zone neighbor of taken that is
// still sitting in freeCRS over into the appropriate zoneCRS, so a
// future Plan A search finds it without crossing freeCRS at all (the
// tail-handling behavior of §4.4). It is best-effort: a failure here
// never fails the allocation that triggered it.
func (a *Arena) migrateTailsAround(taken Range) {
	a.migrateNeighborEndingAt(taken.Base)
	a.migrateNeighborStartingAt(taken.Limit)
}

func (a *Arena) migrateNeighborEndingAt(addr Addr) {
	if addr == 0 {
		return
	}
	r, ok := a.freeCRS.Find(addr - 1)
	if !ok || r.Limit != addr {
		return
	}
	a.migrateToZone(r)
}

func (a *Arena) migrateNeighborStartingAt(addr Addr) {
	r, ok := a.freeCRS.Find(addr)
	if !ok || r.Base != addr {
		return
	}
	a.migrateToZone(r)
}

func (a *Arena) migrateToZone(r Range) {
	z, single := singleZone(r, a.zoneShift)
	if !single {
		return
	}
	if err := a.crsDelete(a.freeCRS, r); err != nil {
		return
	}
	if err := a.crsInsert(a.zoneCRS[z], r); err != nil {
		// Put it back rather than lose track of free address space.
		_ = a.crsInsert(a.freeCRS, r)
	}
}

// markRangeAllocated commits and records ownership of every page backing
// r, walking chunk boundaries in the (expected to be rare) case r spans
// more than one chunk. Each chunk-local segment goes through
// Class.PagesMarkAllocated, never the chunk's page table directly: the
// class is what actually charges backing store for it.
func (a *Arena) markRangeAllocated(r Range, pool Pool) error {
	cursor := r.Base
	for cursor < r.Limit {
		c := a.chunkFor(cursor)
		if c == nil {
			return newError(Fail, "allocated range [%d,%d) is not backed by any chunk", r.Base, r.Limit)
		}
		end := r.Limit
		if end > c.Limit {
			end = c.Limit
		}
		startIdx := c.PageIndex(cursor)
		count := int(Size(end-cursor) / c.pageSize)
		if err := a.class.PagesMarkAllocated(a, c, startIdx, count, pool); err != nil {
			return err
		}
		cursor = end
	}
	return nil
}

// markRangeFree is markRangeAllocated's inverse, used by Free. Each
// chunk-local segment goes through Class.Free so the class can decide
// whether to retain the backing store as spare.
func (a *Arena) markRangeFree(r Range, pool Pool) error {
	cursor := r.Base
	for cursor < r.Limit {
		c := a.chunkFor(cursor)
		if c == nil {
			return newError(Fail, "freed range [%d,%d) is not backed by any chunk", r.Base, r.Limit)
		}
		end := r.Limit
		if end > c.Limit {
			end = c.Limit
		}
		a.class.Free(a, cursor, Size(end-cursor), pool)
		cursor = end
	}
	return nil
}

// chunkFor returns the chunk containing addr, or nil.
func (a *Arena) chunkFor(addr Addr) *Chunk {
	for _, c := range a.chunksOrdered {
		if addr >= c.Base && addr < c.Limit {
			return c
		}
	}
	return nil
}

// registerChunk inserts c into chunksOrdered in address order.
func (a *Arena) registerChunk(c *Chunk) {
	i := 0
	for i < len(a.chunksOrdered) && a.chunksOrdered[i].Base < c.Base {
		i++
	}
	a.chunksOrdered = append(a.chunksOrdered, nil)
	copy(a.chunksOrdered[i+1:], a.chunksOrdered[i:])
	a.chunksOrdered[i] = c
}
