package arena

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Arena is the address-space manager itself: the CRS/zone indices, the
// chunk set, commit accounting and the reservoir, all driven through a
// Class for anything that touches real backing store. One Arena owns one
// contiguous notion of address space; an application wanting several
// independent ones (per-thread arenas, say) creates several Arenas, each
// with its own id for diagnostics (mirroring the reference project's
// per-subsystem UUIDs, e.g. kernel/threads/arena's cache IDs).
type Arena struct {
	id    uuid.UUID
	class Class
	args  Args

	alignment Size
	zoneShift uint

	log *zap.Logger

	chunksOrdered []*Chunk

	crsPool *blockPool
	freeCRS *CRS
	zoneCRS [NumZones]*CRS

	// freeRing[z] chains single free pages confined to zone z, the fast
	// path Plan A consults for page-sized requests before it ever touches
	// zoneCRS (§4.3). freeZones is a conservative, shrink-only record of
	// which zones still hold address space nobody has ever allocated from:
	// it is seeded from every chunk's free extent and only ever loses bits,
	// on a successful allocation into that zone (invariant 8).
	freeRing  [NumZones]*Tract
	freeZones ZoneSet

	// lastTract/lastTractBase cache the first tract of the range most
	// recently placed by allocate's search ladder; Free only clears the
	// cache when it frees that tract. lastTract is nil iff lastTractBase
	// is 0 (invariant 6).
	lastTract     *Tract
	lastTractBase Addr

	committed        Size
	commitLimit      Size
	commitLimitSet   bool
	spareCommitted   Size
	spareCommitLimit Size

	control   *controlPool
	reservoir Reservoir
}

// ID returns the arena's identity, suitable for correlating its log
// lines across a process with many arenas.
func (a *Arena) ID() uuid.UUID { return a.id }

func (a *Arena) pageSize() Size { return a.alignment }

// PageSize returns the arena's page size (its alignment), for Class
// implementations outside this package.
func (a *Arena) PageSize() Size { return a.alignment }

// ZoneShift returns the arena's zone shift, for Class implementations
// that want to honor a Pref's zone preference when reserving new address
// space in Grow.
func (a *Arena) ZoneShift() uint { return a.zoneShift }

// Create builds a new Arena backed by class, configured by args. log may
// be nil, in which case the arena logs nothing; callers that want
// diagnostics pass a *zap.Logger scoped to this arena (e.g.
// baseLogger.Named(id.String())) rather than a process-global logger,
// since an application may run many arenas concurrently.
func Create(class Class, args Args, log *zap.Logger) (*Arena, error) {
	args = args.normalize()
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	ci, err := class.Init(args)
	if err != nil {
		return nil, err
	}
	if ci.Alignment == 0 {
		ci.Alignment = args.Alignment
	}
	if ci.ZoneShift == 0 {
		ci.ZoneShift = args.ZoneShift
	}

	a := &Arena{
		id:               uuid.New(),
		class:            class,
		args:             args,
		alignment:        ci.Alignment,
		zoneShift:        ci.ZoneShift,
		log:              log,
		spareCommitLimit: args.SpareCommitLimit,
	}

	nodesPerSlab := int(a.alignment) / crsNodeFootprint
	if nodesPerSlab < 1 {
		nodesPerSlab = 1
	}
	a.crsPool = newBlockPool(nodesPerSlab)
	a.freeCRS = newCRS(a.crsPool, a.zoneShift)
	for z := range a.zoneCRS {
		a.zoneCRS[z] = newCRS(a.crsPool, a.zoneShift)
	}
	a.control = newControlPool(a)
	a.reservoir = newBoundedReservoir(args.ReservoirLimit)

	primary := newChunk(a, ci.Primary.Base, ci.Primary.Limit, true)
	if err := class.ChunkInit(a, primary); err != nil {
		return nil, err
	}
	a.chunksOrdered = []*Chunk{primary}
	a.freeZones = zonesOf(primary.FreeExtent(), a.zoneShift)

	if err := a.bootstrapInit(primary); err != nil {
		return nil, err
	}

	a.log.Info("arena created",
		zap.String("arena", a.id.String()),
		zap.Uint64("primaryBase", uint64(primary.Base)),
		zap.Uint64("primaryLimit", uint64(primary.Limit)),
		zap.Uint64("alignment", uint64(a.alignment)),
		zap.Uint("zoneShift", a.zoneShift))
	return a, nil
}

// crsNodeFootprint is a conservative estimate of one crsNode's memory
// cost, used only to size how many nodes one bootstrapped page buys the
// block pool.
const crsNodeFootprint = 48

// bootstrapInit seeds the block pool with its first page of node
// capacity before freeCRS ever receives an insert, then folds the
// primary chunk's free extent into freeCRS with that page carved out
// (§4.6's "inserted then deleted around its allocation").
func (a *Arena) bootstrapInit(primary *Chunk) error {
	idx, ok := primary.findFreePage()
	if !ok {
		return newError(Resource, "primary chunk has no page available to bootstrap the block pool")
	}
	if err := a.class.PagesMarkAllocated(a, primary, idx, 1, metaPool); err != nil {
		return err
	}
	a.crsPool.Extend()

	freeExtent := primary.FreeExtent()
	if err := a.crsInsert(a.freeCRS, freeExtent); err != nil {
		return err
	}
	bootstrapPage := RangeOf(primary.Base+Addr(idx)*Addr(a.pageSize()), a.pageSize())
	if err := a.crsDelete(a.freeCRS, bootstrapPage); err != nil {
		return err
	}
	a.freeZones = a.freeZones.Minus(zonesOf(bootstrapPage, a.zoneShift))
	return nil
}

// Destroy releases everything the arena holds via the class. The Arena
// value must not be used afterward.
func (a *Arena) Destroy() {
	a.class.Finish(a)
	a.log.Info("arena destroyed", zap.String("arena", a.id.String()))
}

// Alloc reserves a size-byte range on behalf of pool, honoring pref.
func (a *Arena) Alloc(size Size, pool Pool, pref Pref) (Range, error) {
	return a.allocate(size, pool, pref)
}

// Free releases a range previously returned by Alloc, which must have
// been allocated to pool.
func (a *Arena) Free(r Range, pool Pool) error {
	if r.IsEmpty() {
		return nil
	}
	if !isAligned(Addr(r.Size()), a.alignment) || !isAligned(r.Base, a.alignment) {
		return newError(Memory, "freed range [%d,%d) is not page-aligned", r.Base, r.Limit)
	}
	if err := a.checkOwnership(r, pool); err != nil {
		return err
	}
	a.invalidateLastTract(r)
	if err := a.markRangeFree(r, pool); err != nil {
		return err
	}

	if !pool.IsReservoir() {
		if accepted := a.reservoir.Deposit(r); accepted == r.Size() {
			a.logEvent(eventArenaFree, "pool", pool.PoolID(), "base", r.Base, "size", r.Size(), "plan", "reservoir")
			return nil
		}
	}
	if err := a.freeIndexInsert(r); err != nil {
		return err
	}
	a.logEvent(eventArenaFree, "pool", pool.PoolID(), "base", r.Base, "size", r.Size())
	return nil
}

// invalidateLastTract drops the last-tract cache if it falls within r,
// per §4.5 step 1: a free of the cached tract must not leave a stale
// pointer behind for the next Alloc to trust.
func (a *Arena) invalidateLastTract(r Range) {
	if a.lastTract == nil {
		return
	}
	if r.Contains(a.lastTractBase) {
		a.lastTract = nil
		a.lastTractBase = 0
	}
}

// freeIndexInsert files a newly-freed range into whichever free index it
// belongs in (§4.3/§4.5 step 3): a single free page confined to one zone
// goes onto that zone's freeRing, a larger single-zone range goes into
// that zone's zoneCRS, and anything spanning more than one zone goes into
// freeCRS. A range lives in exactly one of the three at a time.
func (a *Arena) freeIndexInsert(r Range) error {
	z, single := singleZone(r, a.zoneShift)
	if !single {
		return a.crsInsert(a.freeCRS, r)
	}
	if r.Size() == a.pageSize() {
		c := a.chunkFor(r.Base)
		if c != nil {
			a.pushFreeRing(z, c.tractAt(r.Base))
			return nil
		}
	}
	return a.crsInsert(a.zoneCRS[z], r)
}

// pushFreeRing prepends t onto zone z's single-tract free ring.
func (a *Arena) pushFreeRing(z uint, t *Tract) {
	t.next = a.freeRing[z]
	a.freeRing[z] = t
}

// popFreeRing removes and returns the head of zone z's free ring, if any.
func (a *Arena) popFreeRing(z uint) (*Tract, bool) {
	t := a.freeRing[z]
	if t == nil {
		return nil, false
	}
	a.freeRing[z] = t.next
	t.next = nil
	return t, true
}

// freeRingLen counts zone z's free ring, for diagnostics only.
func (a *Arena) freeRingLen(z uint) int {
	n := 0
	for t := a.freeRing[z]; t != nil; t = t.next {
		n++
	}
	return n
}

// checkOwnership verifies every page in r is currently allocated to
// pool, catching double-frees and cross-pool frees before any state
// changes (§8: "freeing a range not owned by the caller").
func (a *Arena) checkOwnership(r Range, pool Pool) error {
	cursor := r.Base
	for cursor < r.Limit {
		c := a.chunkFor(cursor)
		if c == nil {
			return newError(Fail, "free: [%d,%d) is not backed by any chunk", r.Base, r.Limit)
		}
		end := r.Limit
		if end > c.Limit {
			end = c.Limit
		}
		for idx := c.PageIndex(cursor); idx < c.PageIndex(end-1)+1; idx++ {
			owner := c.pageTable[idx].Owner
			if owner == nil {
				return newError(Fail, "free: page at %d is already free", c.Base+Addr(idx)*Addr(c.pageSize))
			}
			if owner.PoolID() != pool.PoolID() {
				return newError(Fail, "free: page at %d is owned by %q, not %q", c.Base+Addr(idx)*Addr(c.pageSize), owner.PoolID(), pool.PoolID())
			}
		}
		cursor = end
	}
	return nil
}

// Extend registers a client-supplied chunk at [base, base+size) with the
// class, then folds it into the arena the same way a grown chunk is.
func (a *Arena) Extend(base Addr, size Size) error {
	if err := a.class.Extend(a, base, size); err != nil {
		return err
	}
	c := newChunk(a, base, base+Addr(size), false)
	if err := a.class.ChunkInit(a, c); err != nil {
		return err
	}
	a.registerChunk(c)
	if err := a.crsInsert(a.freeCRS, c.FreeExtent()); err != nil {
		return err
	}
	a.freeZones = a.freeZones.Union(zonesOf(c.FreeExtent(), a.zoneShift))
	a.logEvent(eventArenaExtend, "reason", "client", "base", base, "size", size)
	return nil
}

// Compact asks the class to release any chunk that has gone entirely
// free, after first purging it from every free index (freeCRS, zoneCRS,
// freeRing) so no dangling entry points at reclaimed address space.
func (a *Arena) Compact(trace bool) error {
	for _, c := range a.chunksOrdered {
		if c.primary || !a.chunkFullyFree(c) {
			continue
		}
		a.purgeChunkFromIndices(c)
	}
	if err := a.class.Compact(a, trace); err != nil {
		return err
	}
	a.pruneReclaimedChunks()
	return nil
}

// purgeChunkFromIndices removes every free-index entry backed by c's
// address space, best-effort, before the chunk is handed back to the
// class. A fully-free chunk's extent may be split across freeCRS,
// one or more zoneCRS trees, and freeRing entries rather than sitting as
// a single coalesced range in one place, depending on how its pages were
// freed.
func (a *Arena) purgeChunkFromIndices(c *Chunk) {
	extent := c.FreeExtent()
	for _, r := range a.freeCRS.Ranges() {
		if extent.ContainsRange(r) {
			_ = a.crsDelete(a.freeCRS, r)
		}
	}
	for z := uint(0); z < NumZones; z++ {
		if crs := a.zoneCRS[z]; crs != nil {
			for _, r := range crs.Ranges() {
				if extent.ContainsRange(r) {
					_ = a.crsDelete(crs, r)
				}
			}
		}
		var kept *Tract
		for t := a.freeRing[z]; t != nil; {
			rest := t.next
			if t.chunk != c {
				t.next = kept
				kept = t
			}
			t = rest
		}
		a.freeRing[z] = kept
	}
}

func (a *Arena) chunkFullyFree(c *Chunk) bool {
	for i := c.allocBase; i < c.pages; i++ {
		if c.bitIsSet(i) {
			return false
		}
	}
	return true
}

// pruneReclaimedChunks drops every non-primary, fully-free chunk from
// chunksOrdered and hands it to Class.ChunkFinish. Class.Compact gives no
// signal about which chunks it released, so the core does not ask; for
// vmclass (and debugclass wrapping it), whose Compact does nothing,
// ChunkFinish is where the chunk's backing store is released.
func (a *Arena) pruneReclaimedChunks() {
	kept := a.chunksOrdered[:0]
	for _, c := range a.chunksOrdered {
		if !c.primary && a.chunkFullyFree(c) {
			a.class.ChunkFinish(a, c)
			continue
		}
		kept = append(kept, c)
	}
	a.chunksOrdered = kept
}

// Find reports the pool owning addr, if any.
func (a *Arena) Find(addr Addr) (Pool, bool) {
	c := a.chunkFor(addr)
	if c == nil {
		return nil, false
	}
	t := c.tractAt(addr)
	if t.Owner == nil {
		return nil, false
	}
	return t.Owner, true
}

// HasAddr reports whether addr lies within some chunk of the arena,
// regardless of whether it is currently allocated.
func (a *Arena) HasAddr(addr Addr) bool {
	return a.chunkFor(addr) != nil
}

// ChunkFor returns the chunk containing addr, or nil. It exists for
// Class implementations outside this package (vmclass, debugclass) that
// need to resolve a page-table-owning chunk from an address handed to
// PagesMarkAllocated/Free.
func (a *Arena) ChunkFor(addr Addr) *Chunk {
	return a.chunkFor(addr)
}

// Reserved returns the total address space reserved for this arena.
func (a *Arena) Reserved() Size {
	return a.class.Reserved(a)
}

// PurgeSpare asks the class to release up to bytes of retained spare
// committed memory, returning the amount actually released.
func (a *Arena) PurgeSpare(bytes Size) Size {
	released := a.class.PurgeSpare(a, bytes)
	a.UnchargeSpare(released)
	return released
}
