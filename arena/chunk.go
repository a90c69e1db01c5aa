package arena

// Chunk is one maximal contiguous region of reserved address space,
// partitioned into fixed-size pages. A prefix of its pages holds the
// chunk's own bookkeeping (the page table and allocation bitmap);
// allocBase is the index of the first page available for allocation.
//
// The allocation bitmap and per-page descriptor array follow the shape
// of the reference project's buddy allocator (kernel/threads/arena/buddy.go:
// a bitmap plus a parallel "blockLevels" array), adapted here to track
// ownership instead of buddy level.
type Chunk struct {
	arena *Arena

	Base  Addr
	Limit Addr

	pageSize Size
	pages    int // total pages in the chunk, including metadata pages

	allocBase int // first allocatable page index

	// allocTable mirrors page-table ownership for fast boundary scans:
	// one bit per page, set iff the page is allocated to some pool.
	allocTable []uint64

	pageTable []Tract

	// primary marks the chunk created at arena init; it hosts the CRS
	// block pool's first bootstrap page and is never released by Compact.
	primary bool
}

func bitmapWords(pages int) int {
	return (pages + 63) / 64
}

func (c *Chunk) bitSet(idx int) {
	c.allocTable[idx/64] |= 1 << uint(idx%64)
}

func (c *Chunk) bitClear(idx int) {
	c.allocTable[idx/64] &^= 1 << uint(idx%64)
}

func (c *Chunk) bitIsSet(idx int) bool {
	return c.allocTable[idx/64]&(1<<uint(idx%64)) != 0
}

// newChunk builds a Chunk descriptor for a freshly reserved region. The
// metadata prefix is sized to hold the page table and bitmap for the
// whole chunk, rounded up to a whole number of pages.
func newChunk(a *Arena, base Addr, limit Addr, primary bool) *Chunk {
	pageSize := a.pageSize()
	pages := int(Size(limit-base) / pageSize)

	c := &Chunk{
		arena:    a,
		Base:     base,
		Limit:    limit,
		pageSize: pageSize,
		pages:    pages,
		primary:  primary,
	}

	metaPages := c.metadataPages(pages)
	c.allocBase = metaPages
	c.allocTable = make([]uint64, bitmapWords(pages))
	c.pageTable = make([]Tract, pages)
	for i := range c.pageTable {
		c.pageTable[i] = Tract{chunk: c, index: i}
	}

	// Metadata pages are permanently allocated to the arena itself: mark
	// them in the bitmap so boundary scans and the bootstrap allocator
	// never consider them free, but leave Owner nil since they are not
	// owned by any Pool value (invariant 1(a)).
	for i := 0; i < metaPages; i++ {
		c.bitSet(i)
	}

	return c
}

// metadataPages computes how many whole pages are needed to hold a page
// table and bitmap sized for pages entries.
func (c *Chunk) metadataPages(pages int) int {
	tractBytes := pages * tractDescriptorSize
	bitmapBytes := bitmapWords(pages) * 8
	total := tractBytes + bitmapBytes
	n := (Size(total) + c.pageSize - 1) / c.pageSize
	if n == 0 {
		n = 1
	}
	return int(n)
}

// tractDescriptorSize is a conservative per-page bookkeeping cost used
// only to size the metadata prefix; it does not need to match
// unsafe.Sizeof(Tract) exactly since pages are large relative to it.
const tractDescriptorSize = 32

// FreeExtent returns the chunk's free-for-allocation range, i.e. the
// portion past the metadata prefix: [allocBase*pageSize+Base, Limit).
func (c *Chunk) FreeExtent() Range {
	return Range{
		Base:  c.Base + Addr(c.allocBase)*Addr(c.pageSize),
		Limit: c.Limit,
	}
}

// PageSize returns the chunk's page size (the arena's alignment).
func (c *Chunk) PageSize() Size { return c.pageSize }

// PageIndex returns the page index of addr within the chunk. The caller
// must ensure addr lies within [Base, Limit).
func (c *Chunk) PageIndex(addr Addr) int {
	return int(Size(addr-c.Base) / c.pageSize)
}

// tractAt returns the tract descriptor for the page containing addr.
func (c *Chunk) tractAt(addr Addr) *Tract {
	return &c.pageTable[c.PageIndex(addr)]
}

// MarkAllocated records ownership of [baseIdx, baseIdx+count) pages in
// both the page table and the allocation bitmap. It is the one place
// page ownership is written, called only through Class.PagesMarkAllocated
// so the core and every Class implementation agree on what "allocated"
// means.
func (c *Chunk) MarkAllocated(baseIdx, count int, pool Pool) {
	for i := baseIdx; i < baseIdx+count; i++ {
		c.bitSet(i)
		c.pageTable[i].Owner = pool
		c.pageTable[i].Word = 0
	}
}

// MarkFree clears ownership of [baseIdx, baseIdx+count) pages, called
// only through Class.Free.
func (c *Chunk) MarkFree(baseIdx, count int) {
	for i := baseIdx; i < baseIdx+count; i++ {
		c.bitClear(i)
		c.pageTable[i].Owner = nil
		c.pageTable[i].Word = 0
	}
}

// findFreePage scans the chunk's bitmap for the first unallocated page
// at or after allocBase, used exclusively by the bootstrap single-page
// allocator (§4.6), which must not consult freeCRS/zoneCRS.
func (c *Chunk) findFreePage() (int, bool) {
	for i := c.allocBase; i < c.pages; i++ {
		if !c.bitIsSet(i) {
			return i, true
		}
	}
	return 0, false
}
