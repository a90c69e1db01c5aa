package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitLimitUnsetByDefault(t *testing.T) {
	a := &Arena{}
	limit, set := a.CommitLimit()
	assert.False(t, set)
	assert.Equal(t, Size(0), limit)
}

func TestSetCommitLimitRejectsBelowCommitted(t *testing.T) {
	a := &Arena{committed: 1000, log: noopLogger()}
	err := a.SetCommitLimit(500)
	require.Error(t, err)
	assert.Equal(t, Fail, errKind(err))

	// Unchanged: the failed call must not install a partial limit.
	_, set := a.CommitLimit()
	assert.False(t, set)
}

func TestSetCommitLimitAtOrAboveCommittedSucceeds(t *testing.T) {
	a := &Arena{committed: 1000, log: noopLogger()}
	require.NoError(t, a.SetCommitLimit(1000))

	limit, set := a.CommitLimit()
	assert.True(t, set)
	assert.Equal(t, Size(1000), limit)
}

func TestClearCommitLimit(t *testing.T) {
	a := &Arena{log: noopLogger()}
	require.NoError(t, a.SetCommitLimit(100))
	a.ClearCommitLimit()

	_, set := a.CommitLimit()
	assert.False(t, set)
}

func TestCheckCommitNoLimitAlwaysPasses(t *testing.T) {
	a := &Arena{}
	assert.NoError(t, a.checkCommit(1<<40))
}

func TestCheckCommitRejectsOverLimitWithNoSideEffects(t *testing.T) {
	a := &Arena{log: noopLogger()}
	require.NoError(t, a.SetCommitLimit(100))

	err := a.checkCommit(200)
	require.Error(t, err)
	assert.Equal(t, CommitLimit, errKind(err))
	assert.Equal(t, Size(0), a.committed, "a failed checkCommit must not charge anything")
}

func TestCheckCommitServedEntirelyFromSpareIgnoresLimit(t *testing.T) {
	a := &Arena{committed: 8192, spareCommitted: 4096, log: noopLogger()}
	require.NoError(t, a.SetCommitLimit(8192))

	// need = max(0, 4096-4096) = 0, so committed+need (8192) does not
	// exceed the limit even though committed+n (12288) would.
	assert.NoError(t, a.checkCommit(4096))
}

func TestCheckCommitPartiallyServedFromSpareOnlyChargesTheRemainder(t *testing.T) {
	a := &Arena{committed: 8192, spareCommitted: 1024, log: noopLogger()}
	require.NoError(t, a.SetCommitLimit(8192+3072)) // room for need=4096-1024=3072

	assert.NoError(t, a.checkCommit(4096))

	require.NoError(t, a.SetCommitLimit(8192+3071))
	assert.Error(t, a.checkCommit(4096), "one byte short of the needed 3072 must still fail")
}

func TestChargeAndUnchargeCommit(t *testing.T) {
	a := &Arena{}
	a.ChargeCommit(100)
	assert.Equal(t, Size(100), a.Committed())

	a.UnchargeCommit(40)
	assert.Equal(t, Size(60), a.Committed())

	// Unchecked floor: overshooting the uncharge must clamp to zero,
	// never underflow.
	a.UnchargeCommit(1000)
	assert.Equal(t, Size(0), a.Committed())
}

func TestChargeAndUnchargeSpare(t *testing.T) {
	a := &Arena{}
	a.ChargeSpare(100)
	assert.Equal(t, Size(100), a.SpareCommitted())

	a.UnchargeSpare(1000)
	assert.Equal(t, Size(0), a.SpareCommitted(), "uncharging past what's held must clamp, not underflow")
}

func TestSetSpareCommitLimitTriggersPurgeOnLowerCeiling(t *testing.T) {
	fc := &fakeClass{}
	a := &Arena{class: fc, spareCommitted: 500, spareCommitLimit: 1000, log: noopLogger()}

	a.SetSpareCommitLimit(100)
	assert.Equal(t, Size(100), a.SpareCommitLimit())
	require.Len(t, fc.purgeCalls, 1)
	assert.Equal(t, Size(400), fc.purgeCalls[0], "lowering the ceiling to 400 below what is held must ask the class to purge exactly that much")
}

func TestSetSpareCommitLimitRaisingDoesNotPurge(t *testing.T) {
	fc := &fakeClass{}
	a := &Arena{class: fc, spareCommitted: 500, spareCommitLimit: 1000, log: noopLogger()}

	a.SetSpareCommitLimit(2000)
	assert.Empty(t, fc.purgeCalls)
}

func TestAvailableWithoutCommitLimit(t *testing.T) {
	fc := &fakeClass{reserved: 1000}
	a := &Arena{class: fc, committed: 400}
	assert.Equal(t, Size(600), a.Available())
}

func TestAvailableWithoutCommitLimitSaturatesAtZero(t *testing.T) {
	fc := &fakeClass{reserved: 100}
	a := &Arena{class: fc, committed: 400}
	assert.Equal(t, Size(0), a.Available())
}

func TestAvailableWithCommitLimit(t *testing.T) {
	a := &Arena{commitLimit: 1000, commitLimitSet: true, committed: 400}
	assert.Equal(t, Size(600), a.Available())
}

func TestAvailableWithCommitLimitSaturatesAtZero(t *testing.T) {
	a := &Arena{commitLimit: 100, commitLimitSet: true, committed: 400}
	assert.Equal(t, Size(0), a.Available())
}
