package arena

import "go.uber.org/zap"

func noopLogger() *zap.Logger { return zap.NewNop() }

// fakeClass is a minimal Class double for unit tests that only need to
// observe what the core charges against commit/spare accounting or
// reports as reserved, without exercising a full placement policy run
// (that's what vmclass.VM is for, via the external integration tests).
type fakeClass struct {
	reserved   Size
	purgeCalls []Size
}

func (f *fakeClass) Init(args Args) (ClassInit, error) { return ClassInit{}, nil }
func (f *fakeClass) Finish(a *Arena)                   {}
func (f *fakeClass) Reserved(a *Arena) Size            { return f.reserved }

func (f *fakeClass) PurgeSpare(a *Arena, bytes Size) Size {
	f.purgeCalls = append(f.purgeCalls, bytes)
	return bytes
}

func (f *fakeClass) Extend(a *Arena, base Addr, size Size) error { return nil }
func (f *fakeClass) Grow(a *Arena, pref Pref, size Size) (Range, error) {
	return Range{}, newError(Unimpl, "fakeClass does not grow")
}
func (f *fakeClass) Free(a *Arena, base Addr, size Size, pool Pool) {}
func (f *fakeClass) PagesMarkAllocated(a *Arena, chunk *Chunk, baseIdx, count int, pool Pool) error {
	return nil
}
func (f *fakeClass) ChunkInit(a *Arena, c *Chunk) error { return nil }
func (f *fakeClass) ChunkFinish(a *Arena, c *Chunk)     {}
func (f *fakeClass) Compact(a *Arena, trace bool) error { return nil }
func (f *fakeClass) Describe(a *Arena, w DescribeSink) error { return nil }
