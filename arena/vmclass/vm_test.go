package vmclass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jungkwangho/vmarena/arena"
	"github.com/jungkwangho/vmarena/arena/vmclass"
)

func testArgs() arena.Args {
	a := arena.DefaultArgs()
	a.ArenaSize = 1 << 20
	a.ExtendBy = 1 << 16
	a.ZoneShift = 16
	a.Alignment = arena.Size(arena.PlatformAlignment())
	return a
}

func TestVMInitReservesPrimaryChunk(t *testing.T) {
	a, err := arena.Create(vmclass.New(), testArgs(), nil)
	require.NoError(t, err)
	defer a.Destroy()

	assert.Equal(t, arena.Size(1<<20), a.Reserved())
}

func TestVMAllocProducesPageAlignedRange(t *testing.T) {
	a, err := arena.Create(vmclass.New(), testArgs(), nil)
	require.NoError(t, err)
	defer a.Destroy()

	pool := arena.NewPool("p")
	r, err := a.Alloc(4096, pool, arena.DefaultPref())
	require.NoError(t, err)
	assert.Equal(t, arena.Size(4096), r.Size())
	assert.Equal(t, arena.Addr(0), r.Base%arena.Addr(arena.PlatformAlignment()))
}

func TestVMFreeRetainsSpareUntilLimit(t *testing.T) {
	args := testArgs()
	args.SpareCommitLimit = 1 << 20 // generous: everything freed stays spare
	a, err := arena.Create(vmclass.New(), args, nil)
	require.NoError(t, err)
	defer a.Destroy()

	pool := arena.NewPool("p")
	r, err := a.Alloc(4096, pool, arena.DefaultPref())
	require.NoError(t, err)

	before := a.Committed()
	require.NoError(t, a.Free(r, pool))

	assert.Equal(t, before, a.Committed(), "a spare-retained free must not uncommit")
	assert.Greater(t, a.SpareCommitted(), arena.Size(0))
}

func TestVMFreeUnchargesCommitPastSpareLimit(t *testing.T) {
	args := testArgs()
	a, err := arena.Create(vmclass.New(), args, nil)
	require.NoError(t, err)
	defer a.Destroy()
	// A zero in Args is replaced by the default, so the ceiling is set
	// here instead: nothing may be retained as spare.
	a.SetSpareCommitLimit(0)

	pool := arena.NewPool("p")
	before := a.Committed() // the CRS bootstrap page stays committed
	r, err := a.Alloc(4096, pool, arena.DefaultPref())
	require.NoError(t, err)

	require.NoError(t, a.Free(r, pool))
	assert.Equal(t, arena.Size(0), a.SpareCommitted())
	assert.Equal(t, before, a.Committed())
}

func TestVMGrowProducesUsableChunk(t *testing.T) {
	a, err := arena.Create(vmclass.New(), testArgs(), nil)
	require.NoError(t, err)
	defer a.Destroy()

	pool := arena.NewPool("p")
	var allocated arena.Size
	for allocated < arena.Size(2<<20) {
		r, err := a.Alloc(4096, pool, arena.DefaultPref())
		require.NoError(t, err)
		allocated += r.Size()
	}
	assert.Greater(t, a.Reserved(), arena.Size(1<<20), "allocating past the initial reservation must have grown the arena")
}
