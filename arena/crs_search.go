package arena

// FindFirst locates the leftmost (lowest-Base) range of length at least
// size, takes size addresses from its low end (the LOW consumption
// policy of §4.1), and returns the taken sub-range. ok is false if no
// range is large enough.
func (c *CRS) FindFirst(size Size) (taken Range, ok bool, err error) {
	n := c.firstFit(c.root, size)
	if n == nil {
		return Range{}, false, nil
	}
	taken, _ = n.rangeOf().low(size)
	if err := c.consume(n, taken); err != nil {
		return Range{}, false, err
	}
	return taken, true, nil
}

// FindLast mirrors FindFirst with HIGH consumption: it locates the
// rightmost range of sufficient length and takes size addresses from its
// high end.
func (c *CRS) FindLast(size Size) (taken Range, ok bool, err error) {
	n := c.lastFit(c.root, size)
	if n == nil {
		return Range{}, false, nil
	}
	taken, _ = n.rangeOf().high(size)
	if err := c.consume(n, taken); err != nil {
		return Range{}, false, err
	}
	return taken, true, nil
}

// FindFirstInZones locates the leftmost position, in address order, of a
// sub-range of length size that both satisfies zones and does not cross
// a zone boundary (§4.4: "prefers a sub-range that does not cross a zone
// boundary and, if splitting is required, returns only the in-zone
// prefix"). ok is false if no such position exists anywhere in the set.
func (c *CRS) FindFirstInZones(size Size, zones ZoneSet) (taken Range, ok bool, err error) {
	n, seg := c.firstFitInZones(c.root, size, zones)
	if n == nil {
		return Range{}, false, nil
	}
	taken, _ = seg.low(size)
	if err := c.consume(n, taken); err != nil {
		return Range{}, false, err
	}
	return taken, true, nil
}

// FindLastInZones mirrors FindFirstInZones from the high end.
func (c *CRS) FindLastInZones(size Size, zones ZoneSet) (taken Range, ok bool, err error) {
	n, seg := c.lastFitInZones(c.root, size, zones)
	if n == nil {
		return Range{}, false, nil
	}
	taken, _ = seg.high(size)
	if err := c.consume(n, taken); err != nil {
		return Range{}, false, err
	}
	return taken, true, nil
}

func (c *CRS) firstFit(n *crsNode, size Size) *crsNode {
	if n == nil {
		return nil
	}
	if found := c.firstFit(n.left, size); found != nil {
		return found
	}
	if n.rangeOf().Size() >= size {
		return n
	}
	return c.firstFit(n.right, size)
}

func (c *CRS) lastFit(n *crsNode, size Size) *crsNode {
	if n == nil {
		return nil
	}
	if found := c.lastFit(n.right, size); found != nil {
		return found
	}
	if n.rangeOf().Size() >= size {
		return n
	}
	return c.lastFit(n.left, size)
}

// firstFitInZones walks in address order and returns the first node and
// the specific in-zone segment within it that can satisfy size.
func (c *CRS) firstFitInZones(n *crsNode, size Size, zones ZoneSet) (*crsNode, Range) {
	if n == nil {
		return nil, Range{}
	}
	if fn, seg := c.firstFitInZones(n.left, size, zones); fn != nil {
		return fn, seg
	}
	if seg, ok := firstQualifyingSegment(n.rangeOf(), size, zones, c.zoneShift); ok {
		return n, seg
	}
	return c.firstFitInZones(n.right, size, zones)
}

func (c *CRS) lastFitInZones(n *crsNode, size Size, zones ZoneSet) (*crsNode, Range) {
	if n == nil {
		return nil, Range{}
	}
	if fn, seg := c.lastFitInZones(n.right, size, zones); fn != nil {
		return fn, seg
	}
	if seg, ok := lastQualifyingSegment(n.rangeOf(), size, zones, c.zoneShift); ok {
		return n, seg
	}
	return c.lastFitInZones(n.left, size, zones)
}

// firstQualifyingSegment returns the leftmost maximal sub-range of r that
// lies within a single zone in zones and is at least size long.
func firstQualifyingSegment(r Range, size Size, zones ZoneSet, zoneShift uint) (Range, bool) {
	for _, seg := range zoneSegments(r, zoneShift) {
		z := zoneFunc(seg.Base, zoneShift)
		if zones.Has(z) && seg.Size() >= size {
			return seg, true
		}
	}
	return Range{}, false
}

// lastQualifyingSegment mirrors firstQualifyingSegment from the high end.
func lastQualifyingSegment(r Range, size Size, zones ZoneSet, zoneShift uint) (Range, bool) {
	segs := zoneSegments(r, zoneShift)
	for i := len(segs) - 1; i >= 0; i-- {
		seg := segs[i]
		z := zoneFunc(seg.Base, zoneShift)
		if zones.Has(z) && seg.Size() >= size {
			return seg, true
		}
	}
	return Range{}, false
}

// zoneSegments splits r into contiguous sub-ranges, each lying entirely
// within one zone, in address order.
func zoneSegments(r Range, zoneShift uint) []Range {
	if r.IsEmpty() {
		return nil
	}
	var segs []Range
	cursor := r.Base
	for cursor < r.Limit {
		boundary := zoneBoundaryAfter(cursor+1, zoneShift)
		end := boundary
		if end > r.Limit {
			end = r.Limit
		}
		segs = append(segs, Range{Base: cursor, Limit: end})
		cursor = end
	}
	return segs
}
