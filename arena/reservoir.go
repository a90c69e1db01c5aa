package arena

// Reservoir is the emergency memory an arena keeps in reserve so that
// operations which must not fail for lack of memory — finalization,
// trace shutdown in a real collector — can still make progress. The
// core exposes only the fill/withdraw/deposit hooks named here to it
// (§4.5); everything else about how the reservoir is sized and backed
// is the collaborator's business, mirroring how Class is the core's only
// window onto backing store.
type Reservoir interface {
	Pool

	// Limit returns the reservoir's target size.
	Limit() Size

	// Size returns the reservoir's current size.
	Size() Size

	// Fill offers r to the reservoir at arena-init time or after a
	// reservoir-limit increase; the reservoir accepts as much of it as it
	// wants and reports what it kept.
	Fill(r Range) Size

	// Withdraw removes up to size bytes from the reservoir for an
	// allocation whose Pref.ReservoirPermit is set, returning what it
	// could provide.
	Withdraw(size Size) (Range, bool)

	// Deposit offers a just-freed range back to the reservoir and reports
	// how much of it was kept. Arena.Free keeps the deposit only when the
	// whole range is accepted; otherwise it files the whole range in its
	// free indices (freeRing, zoneCRS or freeCRS).
	Deposit(r Range) Size
}

// boundedReservoir is the default Reservoir: a single coalescing range
// kept under a byte ceiling. Deposit accepting an unbounded amount would
// let one large free silently balloon the reservoir past what Fail-never
// code paths actually need (an Open Question the spec flags explicitly);
// pinning it to limit resolves that the conservative way.
type boundedReservoir struct {
	limit Size
	held  Range
}

func newBoundedReservoir(limit Size) *boundedReservoir {
	return &boundedReservoir{limit: limit}
}

func (r *boundedReservoir) PoolID() string   { return "arena-reservoir" }
func (r *boundedReservoir) IsReservoir() bool { return true }
func (r *boundedReservoir) Limit() Size      { return r.limit }
func (r *boundedReservoir) Size() Size       { return r.held.Size() }

func (r *boundedReservoir) Fill(room Range) Size {
	return r.accept(room)
}

func (r *boundedReservoir) Deposit(room Range) Size {
	return r.accept(room)
}

// accept takes all of room, or none of it: a partial accept would leave
// the unaccepted remainder's bounds up to the caller to reconstruct, and
// the reservoir's only two callers (Fill at arena-init and Free's
// opportunistic deposit) both already have a sensible place to put a
// declined range in full. The reservoir holds one contiguous extent, not
// a set, so a deposit that doesn't adjoin what's already held is only
// accepted while the reservoir is still empty.
func (r *boundedReservoir) accept(room Range) Size {
	if room.IsEmpty() {
		return 0
	}
	if r.held.IsEmpty() {
		if room.Size() > r.limit {
			return 0
		}
		r.held = room
		return room.Size()
	}
	if room.Base == r.held.Limit && r.Size()+room.Size() <= r.limit {
		r.held.Limit = room.Limit
		return room.Size()
	}
	if room.Limit == r.held.Base && r.Size()+room.Size() <= r.limit {
		r.held.Base = room.Base
		return room.Size()
	}
	return 0
}

// FillReservoir offers r to the arena's reservoir, e.g. right after
// Create to pre-seed emergency capacity from address space the caller
// has set aside but does not want tracked in the ordinary free indices.
// It reports how much of r the reservoir actually kept; the caller owns
// routing any remainder elsewhere (back into freeCRS via Free, say).
func (a *Arena) FillReservoir(r Range) Size {
	kept := a.reservoir.Fill(r)
	if kept > 0 {
		a.logEvent(eventArenaAlloc, "pool", a.reservoir.PoolID(), "base", r.Base, "size", kept, "plan", "reservoir-fill")
	}
	return kept
}

func (r *boundedReservoir) Withdraw(size Size) (Range, bool) {
	if r.held.Size() < size {
		return Range{}, false
	}
	taken, rest := r.held.low(size)
	r.held = rest
	return taken, true
}
