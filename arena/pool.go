package arena

// simplePool is the built-in Pool implementation used for the arena's
// own bookkeeping allocations (the CRS block pool's bootstrap pages) and
// available to callers — such as the inspection CLI and tests — that
// don't need a richer pool of their own. Real object/MFS/MV/trace pools
// are external collaborators per §1; this is just enough identity for
// the core to attribute and compare ownership.
type simplePool struct {
	id          string
	isReservoir bool
}

// NewPool returns a Pool identified by id, suitable for passing to
// Arena.Alloc/Free when the caller has no richer pool implementation of
// its own.
func NewPool(id string) Pool {
	return &simplePool{id: id}
}

func (p *simplePool) PoolID() string   { return p.id }
func (p *simplePool) IsReservoir() bool { return p.isReservoir }

// metaPoolID is the pool identity attributed to pages consumed by the
// arena's own CRS block pool via the bootstrap allocator (§4.6). It is
// never exposed to callers; it exists so invariant 1(e) — "marked
// allocated to some pool" — holds for bootstrap pages too, distinguishing
// them from the genuinely free pages they are carved out of.
var metaPool Pool = &simplePool{id: "arena-meta"}
