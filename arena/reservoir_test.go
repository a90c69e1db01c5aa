package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedReservoirFillUnderLimit(t *testing.T) {
	r := newBoundedReservoir(1000)

	kept := r.Fill(Range{Base: 0, Limit: 500})
	assert.Equal(t, Size(500), kept)
	assert.Equal(t, Size(500), r.Size())
}

func TestBoundedReservoirFillOverLimitRejectedWhenEmpty(t *testing.T) {
	r := newBoundedReservoir(100)

	kept := r.Fill(Range{Base: 0, Limit: 500})
	assert.Equal(t, Size(0), kept, "a deposit larger than the limit is rejected in full, never truncated")
	assert.Equal(t, Size(0), r.Size())
}

func TestBoundedReservoirDepositAdjoining(t *testing.T) {
	r := newBoundedReservoir(1000)
	require.Equal(t, Size(100), r.Fill(Range{Base: 0, Limit: 100}))

	// Adjoins the high end of what's held.
	kept := r.Deposit(Range{Base: 100, Limit: 200})
	assert.Equal(t, Size(100), kept)
	assert.Equal(t, Size(200), r.Size())

	// An empty deposit is declined.
	kept = r.Deposit(Range{Base: 0, Limit: 0}) // empty, rejected trivially
	assert.Equal(t, Size(0), kept)
}

func TestBoundedReservoirDepositNonAdjoiningRejected(t *testing.T) {
	r := newBoundedReservoir(1000)
	require.Equal(t, Size(100), r.Fill(Range{Base: 0, Limit: 100}))

	kept := r.Deposit(Range{Base: 500, Limit: 600})
	assert.Equal(t, Size(0), kept, "the reservoir holds one contiguous extent; a disjoint range is declined in full")
	assert.Equal(t, Size(100), r.Size())
}

func TestBoundedReservoirDepositWouldExceedLimitRejected(t *testing.T) {
	r := newBoundedReservoir(150)
	require.Equal(t, Size(100), r.Fill(Range{Base: 0, Limit: 100}))

	kept := r.Deposit(Range{Base: 100, Limit: 200})
	assert.Equal(t, Size(0), kept, "a deposit that would push held size past limit is rejected in full")
	assert.Equal(t, Size(100), r.Size())
}

func TestBoundedReservoirWithdraw(t *testing.T) {
	r := newBoundedReservoir(1000)
	require.Equal(t, Size(100), r.Fill(Range{Base: 0, Limit: 100}))

	taken, ok := r.Withdraw(40)
	require.True(t, ok)
	assert.Equal(t, Range{Base: 0, Limit: 40}, taken, "Withdraw takes from the low end")
	assert.Equal(t, Size(60), r.Size())

	_, ok = r.Withdraw(1000)
	assert.False(t, ok, "Withdraw must fail cleanly rather than return a partial range")
	assert.Equal(t, Size(60), r.Size(), "a failed Withdraw must not mutate held state")
}

func TestBoundedReservoirPoolIdentity(t *testing.T) {
	r := newBoundedReservoir(1000)
	assert.True(t, r.IsReservoir())
	assert.NotEmpty(t, r.PoolID())
	assert.Equal(t, Size(1000), r.Limit())
}

func TestArenaFillReservoir(t *testing.T) {
	a := &Arena{reservoir: newBoundedReservoir(1000), log: noopLogger()}

	kept := a.FillReservoir(Range{Base: 0, Limit: 500})
	assert.Equal(t, Size(500), kept)
	assert.Equal(t, Size(500), a.reservoir.Size())
}

func TestArenaFillReservoirRejectedOverLimitLogsNothing(t *testing.T) {
	a := &Arena{reservoir: newBoundedReservoir(100), log: noopLogger()}

	kept := a.FillReservoir(Range{Base: 0, Limit: 500})
	assert.Equal(t, Size(0), kept)
	assert.Equal(t, Size(0), a.reservoir.Size())
}
