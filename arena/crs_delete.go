package arena

// Delete removes r from the set. r must be fully covered by a single
// existing range (disjointness means it cannot span more than one
// stored range without also covering the gap between them, which would
// mean r is not fully covered). Delete can fail with Limit when removing
// an interior sub-range requires splitting the covering range into two,
// which needs a new node from the block pool.
func (c *CRS) Delete(r Range) error {
	if r.IsEmpty() {
		return nil
	}

	n := c.findContaining(r)
	if n == nil {
		return newError(Fail, "CRS delete: range [%d,%d) not fully covered", r.Base, r.Limit)
	}
	return c.consume(n, r)
}

// consume removes taken from n's range, which must fully cover it,
// shrinking or splitting n as needed. It is the shared implementation
// behind Delete and the Find* search methods, which locate n by
// different means (containment lookup vs. first/last-fit scan) but
// reduce to the same three-way shrink-or-split once n is known.
func (c *CRS) consume(n *crsNode, taken Range) error {
	coveredBefore := taken.Base > n.base
	coveredAfter := taken.Limit < n.limit

	switch {
	case !coveredBefore && !coveredAfter:
		// Exact match: remove the node entirely.
		c.removeByBase(n.base)
		c.size -= taken.Size()
		return nil

	case coveredBefore && !coveredAfter:
		// Shrink from the high end; Base is unchanged so the BST key
		// ordering relative to neighbors is preserved.
		n.limit = taken.Base
		c.size -= taken.Size()
		return nil

	case !coveredBefore && coveredAfter:
		// Shrink from the low end. This changes the node's key, but the
		// new key still sorts between the same neighbors (no overlap
		// with them existed before, and we're only moving Base forward
		// within the old range), so mutating in place is safe.
		n.base = taken.Limit
		c.size -= taken.Size()
		return nil

	default:
		// taken is a strict interior sub-range: the covering node splits
		// into a prefix (kept, same Base) and a suffix (new node).
		suffix := Range{Base: taken.Limit, Limit: n.limit}
		n.limit = taken.Base
		c.size -= taken.Size()
		if err := c.insertNode(suffix); err != nil {
			// Roll back the prefix shrink so the set still covers what
			// it covered before the failed split.
			n.limit = suffix.Limit
			c.size += taken.Size()
			return err
		}
		// insertNode's own accounting treats suffix as freshly added
		// coverage, but it was already reflected in the subtraction above
		// (the prefix+suffix total is unchanged by splitting one node
		// into two); cancel the double count.
		c.size -= suffix.Size()
		return nil
	}
}

// findContaining returns the node whose range fully covers r, or nil.
func (c *CRS) findContaining(r Range) *crsNode {
	n := c.root
	for n != nil {
		switch {
		case r.Base < n.base:
			n = n.left
		case r.Base >= n.limit:
			n = n.right
		default:
			if r.Limit <= n.limit {
				return n
			}
			return nil
		}
	}
	return nil
}

// removeByBase deletes the node with the given exact key, returning its
// storage to the block pool.
func (c *CRS) removeByBase(base Addr) {
	var removed *crsNode
	c.root = c.bstDelete(c.root, base, &removed)
	if removed != nil {
		c.count--
		c.pool.Put(removed)
	}
}

func (c *CRS) bstDelete(n *crsNode, base Addr, removed **crsNode) *crsNode {
	if n == nil {
		return nil
	}
	switch {
	case base < n.base:
		n.left = c.bstDelete(n.left, base, removed)
	case base > n.base:
		n.right = c.bstDelete(n.right, base, removed)
	default:
		*removed = n
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		succ := minNode(n.right)
		// Detach the successor's storage before reusing its key/value,
		// since *removed must point at the node actually returned to
		// the pool, not the logical range being deleted.
		succBase, succLimit := succ.base, succ.limit
		var succRemoved *crsNode
		n.right = c.bstDelete(n.right, succ.base, &succRemoved)
		n.base, n.limit = succBase, succLimit
		*removed = succRemoved
	}
	if n == nil {
		return nil
	}
	return rebalance(n)
}

func minNode(n *crsNode) *crsNode {
	for n.left != nil {
		n = n.left
	}
	return n
}
