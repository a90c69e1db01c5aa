package arena

// bootstrapBlockPool is the single-page bootstrap allocator of §4.6. It
// scans chunk bitmaps directly for an unallocated page and hands it to
// the class to mark allocated, bypassing freeCRS/zoneCRS entirely: using
// either index to find the page would require allocating a node from the
// very block pool this call exists to extend.
//
// The page is charged to metaPool so invariant 1(e) still holds for it
// (allocated to some pool, not free, not chunk metadata), then handed to
// crsPool.Extend for one more slab's worth of node capacity.
func (a *Arena) bootstrapBlockPool() error {
	for _, c := range a.chunksOrdered {
		idx, ok := c.findFreePage()
		if !ok {
			continue
		}
		if err := a.class.PagesMarkAllocated(a, c, idx, 1, metaPool); err != nil {
			continue
		}
		a.crsPool.Extend()
		a.logEvent(eventArenaExtend, "reason", "bootstrap", "chunk", c.Base, "page", idx)
		return nil
	}
	return newError(Resource, "bootstrap allocator: no free page available to extend the CRS block pool")
}

// crsInsert inserts r into crs, resolving any Limit (block pool
// exhaustion) by bootstrapping one more page of node capacity and
// retrying. Every insert into freeCRS or a zoneCRS must go through this,
// never CRS.Insert directly, so Limit never escapes this package.
func (a *Arena) crsInsert(crs *CRS, r Range) error {
	if r.IsEmpty() {
		return nil
	}
	for {
		err := crs.Insert(r)
		if err == nil {
			return nil
		}
		if errKind(err) != Limit {
			return err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return berr
		}
	}
}

// crsDelete mirrors crsInsert for CRS.Delete, whose interior-split case
// can likewise need a fresh node.
func (a *Arena) crsDelete(crs *CRS, r Range) error {
	if r.IsEmpty() {
		return nil
	}
	for {
		err := crs.Delete(r)
		if err == nil {
			return nil
		}
		if errKind(err) != Limit {
			return err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return berr
		}
	}
}

// crsFindFirst/crsFindLast/crsFindFirstInZones/crsFindLastInZones mirror
// crsInsert's bootstrap-retry wrapping for the search-and-consume CRS
// methods, whose interior split case (taking from the middle of a
// matched range) has the same Limit/retry shape as Delete.

func (a *Arena) crsFindFirst(crs *CRS, size Size) (Range, bool, error) {
	for {
		taken, ok, err := crs.FindFirst(size)
		if err == nil {
			return taken, ok, nil
		}
		if errKind(err) != Limit {
			return Range{}, false, err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return Range{}, false, berr
		}
	}
}

func (a *Arena) crsFindLast(crs *CRS, size Size) (Range, bool, error) {
	for {
		taken, ok, err := crs.FindLast(size)
		if err == nil {
			return taken, ok, nil
		}
		if errKind(err) != Limit {
			return Range{}, false, err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return Range{}, false, berr
		}
	}
}

func (a *Arena) crsFindFirstInZones(crs *CRS, size Size, zones ZoneSet) (Range, bool, error) {
	for {
		taken, ok, err := crs.FindFirstInZones(size, zones)
		if err == nil {
			return taken, ok, nil
		}
		if errKind(err) != Limit {
			return Range{}, false, err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return Range{}, false, berr
		}
	}
}

func (a *Arena) crsFindLastInZones(crs *CRS, size Size, zones ZoneSet) (Range, bool, error) {
	for {
		taken, ok, err := crs.FindLastInZones(size, zones)
		if err == nil {
			return taken, ok, nil
		}
		if errKind(err) != Limit {
			return Range{}, false, err
		}
		if berr := a.bootstrapBlockPool(); berr != nil {
			return Range{}, false, berr
		}
	}
}
