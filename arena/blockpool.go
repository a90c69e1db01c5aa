package arena

// blockPool is a fixed-size free-storage pool for CRS tree nodes. It is
// modeled directly on the reference project's slab allocator
// (kernel/threads/arena/slab.go: a SlabCache of fixed-size SlabPages,
// each page bitmap-tracked, grown one page at a time), adapted so that
// a "page" of node capacity is handed to the pool explicitly by the
// bootstrap single-page allocator rather than bump-allocated from a
// pre-sized byte buffer.
//
// Per the spec's MFS configuration note (§6.3: "core pins extend-self =
// false for the CRS block pool"), blockPool never grows itself: Get
// reports exhaustion and the caller (crs insert/delete, via bootstrap)
// is responsible for calling Extend with freshly bootstrapped capacity.
type blockPool struct {
	slabs       []*blockSlab
	nodesPerSlab int
	free        *crsNode // intrusive free list, threaded through crsNode.left
	allocated   int
	capacity    int
}

type blockSlab struct {
	nodes []crsNode
}

func newBlockPool(nodesPerSlab int) *blockPool {
	if nodesPerSlab <= 0 {
		nodesPerSlab = 1
	}
	return &blockPool{nodesPerSlab: nodesPerSlab}
}

// Extend adds one more slab's worth of node capacity to the pool. It is
// called only by the bootstrap allocator (bootstrap.go), never by Get.
func (p *blockPool) Extend() {
	slab := &blockSlab{nodes: make([]crsNode, p.nodesPerSlab)}
	p.slabs = append(p.slabs, slab)
	p.capacity += p.nodesPerSlab
	for i := range slab.nodes {
		n := &slab.nodes[i]
		n.left = p.free
		p.free = n
	}
}

// Get removes and returns a node from the free list. ok is false when
// the pool is exhausted (the Limit condition of §7); the caller must
// resolve it via the bootstrap allocator and retry.
func (p *blockPool) Get() (n *crsNode, ok bool) {
	if p.free == nil {
		return nil, false
	}
	n = p.free
	p.free = n.left
	*n = crsNode{}
	p.allocated++
	return n, true
}

// Put returns a node to the free list for reuse.
func (p *blockPool) Put(n *crsNode) {
	*n = crsNode{}
	n.left = p.free
	p.free = n
	p.allocated--
}

// available reports whether the pool has at least one free node without
// consuming it.
func (p *blockPool) available() bool {
	return p.free != nil
}
