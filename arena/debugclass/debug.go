// Package debugclass wraps another arena.Class with the diagnostic
// checks the reference project's slab allocator keeps inline with its
// own bookkeeping (kernel/threads/arena/slab.go logs "double free
// detected" and zeroes a freed object's memory before returning it to
// the free list). Here those checks are pulled out into a decorator so
// any Class can be wrapped with them rather than duplicating the checks
// into every class implementation.
package debugclass

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jungkwangho/vmarena/arena"
)

// freePattern is the byte debugclass poisons freed pages with, the same
// role 0xDD plays in well-known debug heaps: a value unlikely to be
// mistaken for a valid pointer or small integer if something reads it
// after the free.
const freePattern = 0xDD

// fillable is satisfied by classes (vmclass.VM) that can overwrite a
// byte range directly. Classes that don't implement it still work under
// Debug; they just don't get the poison-fill diagnostic.
type fillable interface {
	Fill(a *arena.Arena, base arena.Addr, size arena.Size, pattern byte)
}

// Debug wraps another Class, adding double-free detection and
// poison-fill of freed pages. The double-free check here is redundant
// with the core's own ownership check in Arena.Free under normal use; it
// exists as the same kind of belt-and-braces defense the reference
// project's slab free list keeps against its own corruption.
type Debug struct {
	inner arena.Class
	log   *zap.Logger

	mu        sync.Mutex
	allocated map[arena.Addr]bool
}

// New wraps inner with debug checks, logging through log (or discarding
// if log is nil).
func New(inner arena.Class, log *zap.Logger) *Debug {
	if log == nil {
		log = zap.NewNop()
	}
	return &Debug{inner: inner, log: log, allocated: make(map[arena.Addr]bool)}
}

func (d *Debug) Init(args arena.Args) (arena.ClassInit, error) {
	return d.inner.Init(args)
}

func (d *Debug) Finish(a *arena.Arena) {
	d.mu.Lock()
	d.allocated = make(map[arena.Addr]bool)
	d.mu.Unlock()
	d.inner.Finish(a)
}

func (d *Debug) Reserved(a *arena.Arena) arena.Size {
	return d.inner.Reserved(a)
}

func (d *Debug) PurgeSpare(a *arena.Arena, bytes arena.Size) arena.Size {
	return d.inner.PurgeSpare(a, bytes)
}

func (d *Debug) Extend(a *arena.Arena, base arena.Addr, size arena.Size) error {
	return d.inner.Extend(a, base, size)
}

func (d *Debug) Grow(a *arena.Arena, pref arena.Pref, size arena.Size) (arena.Range, error) {
	return d.inner.Grow(a, pref, size)
}

func (d *Debug) Free(a *arena.Arena, base arena.Addr, size arena.Size, pool arena.Pool) {
	pageSize := a.PageSize()
	d.mu.Lock()
	for addr := base; addr < base+arena.Addr(size); addr += arena.Addr(pageSize) {
		if !d.allocated[addr] {
			d.log.Error("double free detected",
				zap.String("arena", a.ID().String()),
				zap.Uint64("addr", uint64(addr)),
				zap.String("pool", pool.PoolID()))
			continue
		}
		delete(d.allocated, addr)
	}
	d.mu.Unlock()

	if f, ok := d.inner.(fillable); ok {
		f.Fill(a, base, size, freePattern)
	}
	d.inner.Free(a, base, size, pool)
}

func (d *Debug) PagesMarkAllocated(a *arena.Arena, chunk *arena.Chunk, baseIdx, count int, pool arena.Pool) error {
	if err := d.inner.PagesMarkAllocated(a, chunk, baseIdx, count, pool); err != nil {
		return err
	}
	pageSize := chunk.PageSize()
	base := chunk.Base + arena.Addr(baseIdx)*arena.Addr(pageSize)
	d.mu.Lock()
	for i := 0; i < count; i++ {
		d.allocated[base+arena.Addr(i)*arena.Addr(pageSize)] = true
	}
	d.mu.Unlock()
	return nil
}

func (d *Debug) ChunkInit(a *arena.Arena, c *arena.Chunk) error {
	return d.inner.ChunkInit(a, c)
}

func (d *Debug) ChunkFinish(a *arena.Arena, c *arena.Chunk) {
	d.mu.Lock()
	for addr := range d.allocated {
		if addr >= c.Base && addr < c.Limit {
			delete(d.allocated, addr)
		}
	}
	d.mu.Unlock()
	d.inner.ChunkFinish(a, c)
}

func (d *Debug) Compact(a *arena.Arena, trace bool) error {
	return d.inner.Compact(a, trace)
}

func (d *Debug) Describe(a *arena.Arena, w arena.DescribeSink) error {
	d.mu.Lock()
	live := len(d.allocated)
	d.mu.Unlock()
	w.Section("debugclass", "trackedLivePages", live)
	return d.inner.Describe(a, w)
}

var _ arena.Class = (*Debug)(nil)
