package arena

import (
	"go.uber.org/multierr"
)

// Args carries the recognized configuration keys of §6.3. It plays the
// role of the reference project's varargs-style class configuration
// (Class.Varargs in the spec this implements), collected here as a
// struct rather than a variadic key/value list since Go has no
// idiomatic equivalent of C varargs for this.
type Args struct {
	// ArenaSize is the initial reservation size ("arena-size").
	ArenaSize Size

	// ExtendBy is the chunk growth increment and control-pool extension
	// size ("extend-by").
	ExtendBy Size

	// ZoneShift sets the zone size to 1<<ZoneShift ("zone-shift").
	ZoneShift uint

	// Alignment is the page size; Validate rejects a value below the
	// platform minimum alignment ("alignment").
	Alignment Size

	// SpareCommitLimit caps retained spare committed bytes
	// ("spare-commit-limit").
	SpareCommitLimit Size

	// ReservoirLimit caps the size of the emergency reservoir (§4.5).
	ReservoirLimit Size

	// MFSUnitSize, MFSExtendBy and MFSExtendSelf are fixed-size block
	// pool controls. The core always pins MFSExtendSelf to false for its
	// own CRS block pool (§6.3) regardless of what is requested here;
	// the fields exist for classes that expose their own MFS-backed
	// pools to configure.
	MFSUnitSize   Size
	MFSExtendBy   Size
	MFSExtendSelf bool

	// TopDown requests top-down (high-address-first) reservation. It is
	// accepted on every platform and silently ignored where the class
	// backing the arena cannot honor it (§6.3, §9).
	TopDown bool
}

// DefaultArgs returns a configuration with conservative, always-valid
// defaults: a 16 MiB initial reservation, 1 MiB growth increment, a
// 1 MiB (1<<20) zone size, and alignment set to the platform page size.
func DefaultArgs() Args {
	return Args{
		ArenaSize:        16 << 20,
		ExtendBy:         1 << 20,
		ZoneShift:        20,
		Alignment:        Size(PlatformAlignment()),
		SpareCommitLimit: 4 << 20,
		ReservoirLimit:   1 << 20,
		MFSUnitSize:      4 << 10,
		MFSExtendBy:      4 << 10,
		MFSExtendSelf:    false,
	}
}

// PlatformAlignment reports the minimum alignment this process's
// platform requires for address-space reservations: the real OS page
// size on Unix (via golang.org/x/sys/unix, see platform_unix.go),
// falling back to a conservative 4 KiB constant elsewhere.
func PlatformAlignment() int {
	return platformAlignment()
}

// Validate checks a.'s internal consistency, returning every violation
// found (not just the first) joined with go.uber.org/multierr, mirroring
// the reference project's ValidateMemoryLayout which likewise collects
// every region overlap before returning (kernel/threads/sab/layout.go).
func (a Args) Validate() error {
	var errs error

	platform := Size(PlatformAlignment())
	if a.Alignment == 0 {
		errs = multierr.Append(errs, newError(Memory, "alignment must be set"))
	} else if a.Alignment < platform {
		errs = multierr.Append(errs, newError(Memory, "alignment %d is below platform alignment %d", a.Alignment, platform))
	}

	if a.ZoneShift == 0 || a.ZoneShift >= 64 {
		errs = multierr.Append(errs, newError(Memory, "zone-shift %d out of range", a.ZoneShift))
	} else if a.Alignment != 0 && (Size(1)<<a.ZoneShift) < a.Alignment {
		errs = multierr.Append(errs, newError(Memory, "zone size %d is smaller than alignment %d", Size(1)<<a.ZoneShift, a.Alignment))
	}

	if a.ArenaSize == 0 {
		errs = multierr.Append(errs, newError(Memory, "arena-size must be non-zero"))
	} else if a.Alignment != 0 && a.ArenaSize%a.Alignment != 0 {
		errs = multierr.Append(errs, newError(Memory, "arena-size %d is not a multiple of alignment %d", a.ArenaSize, a.Alignment))
	}

	if a.ExtendBy == 0 {
		errs = multierr.Append(errs, newError(Memory, "extend-by must be non-zero"))
	}

	return errs
}

// normalize fills in zero-valued fields with DefaultArgs' values,
// mirroring the reference project's Class.Varargs normalization step.
func (a Args) normalize() Args {
	d := DefaultArgs()
	if a.ArenaSize == 0 {
		a.ArenaSize = d.ArenaSize
	}
	if a.ExtendBy == 0 {
		a.ExtendBy = d.ExtendBy
	}
	if a.ZoneShift == 0 {
		a.ZoneShift = d.ZoneShift
	}
	if a.Alignment == 0 {
		a.Alignment = d.Alignment
	}
	if a.SpareCommitLimit == 0 {
		a.SpareCommitLimit = d.SpareCommitLimit
	}
	if a.ReservoirLimit == 0 {
		a.ReservoirLimit = d.ReservoirLimit
	}
	if a.MFSUnitSize == 0 {
		a.MFSUnitSize = d.MFSUnitSize
	}
	if a.MFSExtendBy == 0 {
		a.MFSExtendBy = d.MFSExtendBy
	}
	// MFSExtendSelf intentionally not normalized: false is a valid,
	// meaningful default and the core pins it to false for the CRS pool
	// regardless (§6.3).
	return a
}
