package arena

// controlPool backs Arena.ControlAlloc/ControlFree (§6.2), the arena's
// own small bookkeeping allocations — the chunk descriptors and index
// nodes that keep the arena running do not come from here (they come
// from crsPool and the chunk metadata prefix), but higher-level
// collaborators built on top of an arena (an object pool's own free
// lists, say) need somewhere to ask the arena itself for memory rather
// than reaching for the Go heap. It is deliberately page-granular: the
// reference project's slab allocator subdivides a page into many
// fixed-size objects, but the control pool's clients are few and
// coarse-grained enough that rounding every request up to a whole page
// and routing it through the ordinary placement policy is simpler and
// keeps control allocations visible to the same commit accounting and
// index bookkeeping as everything else (§6.2: "charged like any other
// allocation").
type controlPool struct {
	arena *Arena
	sizes map[Addr]Size
}

func newControlPool(a *Arena) *controlPool {
	return &controlPool{arena: a, sizes: make(map[Addr]Size)}
}

func (p *controlPool) PoolID() string    { return "arena-control" }
func (p *controlPool) IsReservoir() bool { return false }

// ControlAlloc allocates size bytes of arena-backed bookkeeping storage,
// rounded up to a whole number of pages, and returns its base address.
func (a *Arena) ControlAlloc(size Size, reservoirPermit bool) (Addr, error) {
	if size == 0 {
		return 0, newError(Memory, "control allocation size must be non-zero")
	}
	rounded := alignUpSize(size, a.pageSize())
	r, err := a.Alloc(rounded, a.control, Pref{ReservoirPermit: reservoirPermit})
	if err != nil {
		return 0, err
	}
	a.control.sizes[r.Base] = rounded
	return r.Base, nil
}

// ControlFree releases a control allocation previously returned by
// ControlAlloc. size must match the value originally requested; it is
// used only to validate against the tracked rounded size.
func (a *Arena) ControlFree(addr Addr, size Size) error {
	rounded, ok := a.control.sizes[addr]
	if !ok {
		return newError(Fail, "control free: %d is not a live control allocation", addr)
	}
	if alignUpSize(size, a.pageSize()) != rounded {
		return newError(Fail, "control free: size %d does not match the %d bytes allocated at %d", size, rounded, addr)
	}
	delete(a.control.sizes, addr)
	return a.Free(RangeOf(addr, rounded), a.control)
}

func alignUpSize(size, alignment Size) Size {
	if alignment == 0 {
		return size
	}
	rem := size % alignment
	if rem == 0 {
		return size
	}
	return size + (alignment - rem)
}
