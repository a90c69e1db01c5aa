package arena

// Class is the vtable an arena core dispatches through for everything
// that touches real backing store. It plays the role the reference
// project's SAB-backed allocators play for a byte buffer: the core knows
// how to manage indices and policy over address ranges, but never reaches
// past Class to touch memory itself. Concrete classes (vmclass, a
// debug-wrapping class, or a future client-supplied-memory class) are
// external collaborators per §1 of the spec this module implements; the
// core holds no subclass knowledge (§9 "Object-class dispatch").
type Class interface {
	// Init validates args and returns the arena's primary chunk range,
	// page alignment, and zone shift. It does not build the Arena value;
	// Create does that using what Init reports.
	Init(args Args) (ClassInit, error)

	// Finish releases everything the class reserved for the arena. It is
	// called once, during Destroy.
	Finish(a *Arena)

	// Reserved returns the total address space reserved across every
	// chunk the class has handed the arena.
	Reserved(a *Arena) Size

	// PurgeSpare asks the class to release up to bytes of spare (already
	// committed but unassigned) backing store, returning the amount
	// actually released.
	PurgeSpare(a *Arena, bytes Size) Size

	// Extend adds a client-supplied chunk at [base, base+size).
	Extend(a *Arena, base Addr, size Size) error

	// Grow reserves additional address space compatible with pref,
	// returning the new chunk's range.
	Grow(a *Arena, pref Pref, size Size) (Range, error)

	// Free releases backing store for [base, base+size), previously
	// owned by pool. The class may retain some of it as spare.
	Free(a *Arena, base Addr, size Size, pool Pool)

	// PagesMarkAllocated commits backing store for count pages starting
	// at baseIdx within chunk and records pool as their owner.
	PagesMarkAllocated(a *Arena, chunk *Chunk, baseIdx, count int, pool Pool) error

	// ChunkInit/ChunkFinish are per-chunk setup/teardown hooks, called
	// when a chunk is added to or removed from the arena.
	ChunkInit(a *Arena, c *Chunk) error
	ChunkFinish(a *Arena, c *Chunk)

	// Compact is invoked after a reclaim pass to release now-empty
	// chunks. The default implementation is a no-op; classes that can't
	// shrink need not override it meaningfully.
	Compact(a *Arena, trace bool) error

	// Describe writes diagnostic information about the class's own
	// state (not the generic arena state, which core.Describe covers).
	Describe(a *Arena, w DescribeSink) error
}

// ClassInit is what Class.Init reports back to Create.
type ClassInit struct {
	Primary   Range
	Alignment Size
	ZoneShift uint
}

// DescribeSink is the minimal structured-diagnostics surface Describe
// methods write to; core.go's implementation forwards to zap.
type DescribeSink interface {
	Section(name string, fields ...any)
}
