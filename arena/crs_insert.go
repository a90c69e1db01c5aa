package arena

// Insert adds r to the set, coalescing it with any range it overlaps or
// touches (invariant 2: no two stored ranges may end up adjacent). It
// fails with a Limit error if the block pool has no free node and the
// insert cannot proceed without allocating one; callers in this package,
// Free included, resolve Limit via the bootstrap allocator (§4.6) and
// retry. No page of a range being freed is donated to the block pool.
func (c *CRS) Insert(r Range) error {
	if r.IsEmpty() {
		return nil
	}

	var touching []*crsNode
	c.collectTouching(c.root, r.Base, r.Limit, &touching)

	merged := r
	for _, n := range touching {
		if n.base < merged.Base {
			merged.Base = n.base
		}
		if n.limit > merged.Limit {
			merged.Limit = n.limit
		}
	}

	// Removing a two-child node moves its successor's key into it and
	// recycles the successor's node, so take the keys before removing any.
	stale := make([]Range, len(touching))
	for i, n := range touching {
		stale[i] = n.rangeOf()
	}
	for _, s := range stale {
		c.size -= s.Size()
		c.removeByBase(s.Base)
	}

	return c.insertNode(merged)
}

// collectTouching gathers every existing node that overlaps or is
// adjacent to [qBase, qLimit). Because stored ranges are pairwise
// disjoint and non-adjacent, sorting by Base also sorts by Limit, so a
// node strictly left or right of the query (with no possibility of
// touching) prunes that whole side.
func (c *CRS) collectTouching(n *crsNode, qBase, qLimit Addr, out *[]*crsNode) {
	if n == nil {
		return
	}
	if qLimit < n.base {
		c.collectTouching(n.left, qBase, qLimit, out)
		return
	}
	if n.limit < qBase {
		c.collectTouching(n.right, qBase, qLimit, out)
		return
	}
	*out = append(*out, n)
	c.collectTouching(n.left, qBase, qLimit, out)
	c.collectTouching(n.right, qBase, qLimit, out)
}

// insertNode inserts r as a brand-new node. It assumes r does not
// overlap or touch any existing node (the caller, Insert, has already
// coalesced and removed anything that would).
func (c *CRS) insertNode(r Range) error {
	newNode, ok := c.pool.Get()
	if !ok {
		return newError(Limit, "CRS block pool exhausted")
	}
	newNode.base, newNode.limit = r.Base, r.Limit
	newNode.height = 1

	root, inserted := c.bstInsert(c.root, newNode)
	if !inserted {
		// Should not happen: Insert() already removed any overlapping
		// node. Treat as a programming-invariant failure rather than
		// silently dropping the range.
		c.pool.Put(newNode)
		return newError(Fail, "CRS insert found unexpected duplicate key %d", r.Base)
	}
	c.root = root
	c.count++
	c.size += r.Size()
	return nil
}

func (c *CRS) bstInsert(n, newNode *crsNode) (*crsNode, bool) {
	if n == nil {
		return newNode, true
	}
	var ok bool
	switch {
	case newNode.base < n.base:
		n.left, ok = c.bstInsert(n.left, newNode)
	case newNode.base > n.base:
		n.right, ok = c.bstInsert(n.right, newNode)
	default:
		return n, false
	}
	if !ok {
		return n, false
	}
	return rebalance(n), true
}
