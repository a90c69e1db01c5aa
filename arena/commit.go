package arena

// Commit accounting tracks how many bytes of real backing store the
// arena has charged against its optional commit limit, separately from
// how many of those committed bytes are "spare" — released by a pool
// but retained by the class against a future allocation instead of being
// handed back to the OS (§4.7). Classes call the Charge/Uncharge methods
// below as they actually commit or release backing store; the core never
// touches backing store itself, only the counters.

// CommitLimit returns the configured commit ceiling and whether one is
// set at all; an unset limit means commitment is unbounded.
func (a *Arena) CommitLimit() (Size, bool) {
	return a.commitLimit, a.commitLimitSet
}

// SetCommitLimit installs a new commit ceiling. It fails with Fail if
// limit would be set below bytes already committed: shrinking the limit
// can never retroactively uncommit live memory (§6.2).
func (a *Arena) SetCommitLimit(limit Size) error {
	if limit < a.committed {
		return newError(Fail, "commit limit %d is below %d bytes already committed", limit, a.committed)
	}
	a.commitLimit = limit
	a.commitLimitSet = true
	a.logEvent(eventCommitLimitSet, "limit", limit)
	return nil
}

// ClearCommitLimit removes the commit ceiling entirely.
func (a *Arena) ClearCommitLimit() {
	a.commitLimit = 0
	a.commitLimitSet = false
	a.logEvent(eventCommitLimitSet, "limit", "none")
}

// SpareCommitLimit returns the configured ceiling on retained spare
// committed bytes.
func (a *Arena) SpareCommitLimit() Size {
	return a.spareCommitLimit
}

// SetSpareCommitLimit installs a new spare-commit ceiling. Unlike
// SetCommitLimit this never fails: spare already above a lower ceiling
// is purged down to it immediately through PurgeSpare.
func (a *Arena) SetSpareCommitLimit(limit Size) {
	a.spareCommitLimit = limit
	a.logEvent(eventSpareCommitLimitSet, "limit", limit)
	if a.spareCommitted > a.spareCommitLimit {
		a.PurgeSpare(a.spareCommitted - a.spareCommitLimit)
	}
}

// Committed returns the number of bytes currently charged against the
// commit limit.
func (a *Arena) Committed() Size { return a.committed }

// SpareCommitted returns the subset of Committed retained as spare.
func (a *Arena) SpareCommitted() Size { return a.spareCommitted }

// Available reports how many more bytes could be committed without
// exceeding the commit limit, or the reserved-but-uncommitted remainder
// of the arena when no limit is set.
func (a *Arena) Available() Size {
	if !a.commitLimitSet {
		reserved := a.class.Reserved(a)
		if reserved <= a.committed {
			return 0
		}
		return reserved - a.committed
	}
	if a.commitLimit <= a.committed {
		return 0
	}
	return a.commitLimit - a.committed
}

// checkCommit is the placement policy's pre-flight gate (§4.4): it must
// be checked, and must fail cleanly with no side effects, before any
// index or page-table mutation for a request that would commit n new
// bytes.
func (a *Arena) checkCommit(n Size) error {
	var need Size
	if a.spareCommitted < n {
		need = n - a.spareCommitted
	}
	if a.commitLimitSet && a.committed+need > a.commitLimit {
		return newError(CommitLimit, "allocating %d bytes would exceed commit limit %d (committed %d, spare %d)", n, a.commitLimit, a.committed, a.spareCommitted)
	}
	return nil
}

// ChargeCommit records n freshly committed bytes. Classes call this
// after actually committing backing store, never before: checkCommit is
// the only pre-flight gate.
func (a *Arena) ChargeCommit(n Size) { a.committed += n }

// UnchargeCommit records n bytes whose backing store has been released
// back to the platform (not retained as spare).
func (a *Arena) UnchargeCommit(n Size) {
	if n > a.committed {
		n = a.committed
	}
	a.committed -= n
}

// ChargeSpare marks n already-committed bytes as retained spare rather
// than released.
func (a *Arena) ChargeSpare(n Size) { a.spareCommitted += n }

// UnchargeSpare marks n bytes as no longer spare, either because they
// were reused by a fresh allocation or actually released.
func (a *Arena) UnchargeSpare(n Size) {
	if n > a.spareCommitted {
		n = a.spareCommitted
	}
	a.spareCommitted -= n
}
