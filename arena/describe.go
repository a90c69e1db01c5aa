package arena

import "go.uber.org/zap"

// zapDescribeSink is the DescribeSink that Arena.Describe and every
// Class.Describe implementation write through. It forwards each named
// section as one structured zap line rather than building a formatted
// report string, matching the reference project's preference for
// structured fields over prose in diagnostics.
type zapDescribeSink struct {
	log *zap.Logger
}

func (s *zapDescribeSink) Section(name string, fields ...any) {
	if s.log == nil {
		return
	}
	zf := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		zf = append(zf, zap.Any(key, fields[i+1]))
	}
	s.log.Info(name, zf...)
}

// Describe logs the arena's current state — chunk layout, index sizes,
// commit accounting, reservoir occupancy — followed by the class's own
// Describe, at info level. It never returns an error for its own
// sections; only a failing class Describe can produce one.
func (a *Arena) Describe() error {
	sink := &zapDescribeSink{log: a.log}

	sink.Section("chunks", "count", len(a.chunksOrdered))
	for _, c := range a.chunksOrdered {
		sink.Section("chunk",
			"base", c.Base, "limit", c.Limit,
			"pages", c.pages, "allocBase", c.allocBase, "primary", c.primary,
			"zones", zonesOf(Range{Base: c.Base, Limit: c.Limit}, a.zoneShift).Count())
	}

	sink.Section("free", "ranges", a.freeCRS.NodeCount(), "bytes", a.freeCRS.Size())
	for z := uint(0); z < NumZones; z++ {
		if crs := a.zoneCRS[z]; crs != nil && !crs.IsEmpty() {
			sink.Section("zone", "index", z, "ranges", crs.NodeCount(), "bytes", crs.Size())
		}
		if n := a.freeRingLen(z); n > 0 {
			sink.Section("freeRing", "index", z, "pages", n)
		}
	}
	sink.Section("freeZones", "count", a.freeZones.Count())

	sink.Section("commit",
		"committed", a.committed, "spareCommitted", a.spareCommitted,
		"spareCommitLimit", a.spareCommitLimit)
	if limit, ok := a.CommitLimit(); ok {
		sink.Section("commitLimit", "bytes", limit)
	}

	sink.Section("reservoir", "size", a.reservoir.Size(), "limit", a.reservoir.Limit())
	sink.Section("blockPool", "capacity", a.crsPool.capacity, "allocated", a.crsPool.allocated)

	return a.class.Describe(a, sink)
}
