// Package vmclass implements arena.Class over a simulated virtual-memory
// backing store: a byte slice per chunk standing in for what a real
// class would get from the operating system's mmap/VirtualAlloc. It
// plays the role the reference project's shared-array-buffer-backed
// allocators (kernel/threads/arena/buddy.go, slab.go) play for their own
// indices, adapted to back the address-space arena this package
// implements instead.
package vmclass

import (
	"fmt"
	"sync"

	"github.com/jungkwangho/vmarena/arena"
)

// VM is a Class that reserves and commits address space against an
// in-process byte-slice pool, rather than the real OS. It exists so the
// arena package and its tests can exercise the full placement policy,
// commit accounting, and bootstrap discipline without requiring actual
// privileged memory-mapping syscalls.
type VM struct {
	mu sync.Mutex

	backing  map[arena.Addr][]byte
	spare    map[arena.Addr]bool // page addresses retained as spare
	nextBase arena.Addr
	reserved arena.Size
}

// New returns a ready-to-use VM class. Pass it to arena.Create.
func New() *VM {
	return &VM{
		backing:  make(map[arena.Addr][]byte),
		spare:    make(map[arena.Addr]bool),
		nextBase: 1 << 20, // keep address 0 unused, purely cosmetic
	}
}

func (v *VM) Init(args arena.Args) (arena.ClassInit, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	base := v.reserveLocked(args.ArenaSize)
	return arena.ClassInit{
		Primary:   arena.RangeOf(base, args.ArenaSize),
		Alignment: args.Alignment,
		ZoneShift: args.ZoneShift,
	}, nil
}

func (v *VM) Finish(a *arena.Arena) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.backing = make(map[arena.Addr][]byte)
	v.spare = make(map[arena.Addr]bool)
	v.reserved = 0
}

func (v *VM) Reserved(a *arena.Arena) arena.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reserved
}

func (v *VM) PurgeSpare(a *arena.Arena, bytes arena.Size) arena.Size {
	v.mu.Lock()
	defer v.mu.Unlock()

	pageSize := a.PageSize()
	var released arena.Size
	for addr := range v.spare {
		if released >= bytes {
			break
		}
		c := a.ChunkFor(addr)
		if c == nil {
			delete(v.spare, addr)
			continue
		}
		v.zeroLocked(c.Base, addr-c.Base, pageSize)
		delete(v.spare, addr)
		a.UnchargeCommit(pageSize)
		released += pageSize
	}
	return released
}

func (v *VM) Extend(a *arena.Arena, base arena.Addr, size arena.Size) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.backing[base]; exists {
		return &arena.Error{Kind: arena.Resource, Message: fmt.Sprintf("vmclass: address %d already reserved", base)}
	}
	v.backing[base] = make([]byte, size)
	v.reserved += size
	return nil
}

func (v *VM) Grow(a *arena.Arena, pref arena.Pref, size arena.Size) (arena.Range, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	base := v.nextBase
	if !pref.Zones.IsEmpty() {
		zoneSize := arena.Addr(1) << a.ZoneShift()
		for attempts := arena.ZoneSet(0); attempts < arena.NumZones; attempts++ {
			z := uint(base/zoneSize) % arena.NumZones
			if pref.Zones.Has(z) {
				break
			}
			base += zoneSize
		}
	}
	base = alignUp(base, a.PageSize())

	v.backing[base] = make([]byte, size)
	if end := base + arena.Addr(size); end > v.nextBase {
		v.nextBase = end
	}
	v.reserved += size
	return arena.RangeOf(base, size), nil
}

func (v *VM) Free(a *arena.Arena, base arena.Addr, size arena.Size, pool arena.Pool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c := a.ChunkFor(base)
	if c == nil {
		return
	}
	startIdx := c.PageIndex(base)
	count := int(size / c.PageSize())
	c.MarkFree(startIdx, count)

	if a.SpareCommitted()+size <= a.SpareCommitLimit() {
		a.ChargeSpare(size)
		for i := 0; i < count; i++ {
			v.spare[base+arena.Addr(i)*arena.Addr(c.PageSize())] = true
		}
		return
	}
	v.zeroLocked(c.Base, base-c.Base, size)
	a.UnchargeCommit(size)
}

func (v *VM) PagesMarkAllocated(a *arena.Arena, chunk *arena.Chunk, baseIdx, count int, pool arena.Pool) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.backing[chunk.Base]; !ok {
		return &arena.Error{Kind: arena.Fail, Message: "vmclass: no backing store registered for chunk"}
	}
	pageSize := chunk.PageSize()
	base := chunk.Base + arena.Addr(baseIdx)*arena.Addr(pageSize)
	size := arena.Size(count) * pageSize

	v.zeroLocked(chunk.Base, base-chunk.Base, size)

	for i := 0; i < count; i++ {
		addr := base + arena.Addr(i)*arena.Addr(pageSize)
		if v.spare[addr] {
			delete(v.spare, addr)
			a.UnchargeSpare(pageSize)
			continue
		}
		a.ChargeCommit(pageSize)
	}
	chunk.MarkAllocated(baseIdx, count, pool)
	return nil
}

func (v *VM) ChunkInit(a *arena.Arena, c *arena.Chunk) error {
	return nil
}

func (v *VM) ChunkFinish(a *arena.Arena, c *arena.Chunk) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for addr := range v.spare {
		if addr >= c.Base && addr < c.Limit {
			a.UnchargeSpare(c.PageSize())
			a.UnchargeCommit(c.PageSize())
			delete(v.spare, addr)
		}
	}
	if backing, ok := v.backing[c.Base]; ok {
		v.reserved -= arena.Size(len(backing))
	}
	delete(v.backing, c.Base)
}

func (v *VM) Compact(a *arena.Arena, trace bool) error {
	return nil
}

// Fill overwrites [base, base+size) with pattern. debugclass uses this
// (via the unexported fillable interface below) to poison freed memory;
// ordinary use of VM never calls it directly.
func (v *VM) Fill(a *arena.Arena, base arena.Addr, size arena.Size, pattern byte) {
	v.mu.Lock()
	defer v.mu.Unlock()

	c := a.ChunkFor(base)
	if c == nil {
		return
	}
	backing, ok := v.backing[c.Base]
	if !ok {
		return
	}
	off := int(base - c.Base)
	end := off + int(size)
	if end > len(backing) {
		end = len(backing)
	}
	for i := off; i < end; i++ {
		backing[i] = pattern
	}
}

func (v *VM) Describe(a *arena.Arena, w arena.DescribeSink) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	w.Section("vmclass", "chunks", len(v.backing), "reserved", v.reserved, "sparePages", len(v.spare))
	return nil
}

// zeroLocked clears size bytes at offset off within the chunk backed at
// base, simulating decommit/fresh-commit. Caller must hold v.mu.
func (v *VM) zeroLocked(base arena.Addr, off arena.Addr, size arena.Size) {
	backing, ok := v.backing[base]
	if !ok {
		return
	}
	end := int(off) + int(size)
	if end > len(backing) {
		end = len(backing)
	}
	for i := int(off); i < end; i++ {
		backing[i] = 0
	}
}

func (v *VM) reserveLocked(size arena.Size) arena.Addr {
	base := v.nextBase
	v.backing[base] = make([]byte, size)
	v.nextBase = base + arena.Addr(size)
	v.reserved += size
	return base
}

func alignUp(addr arena.Addr, alignment arena.Size) arena.Addr {
	a := arena.Addr(alignment)
	if a == 0 {
		return addr
	}
	rem := addr % a
	if rem == 0 {
		return addr
	}
	return addr + (a - rem)
}

var _ arena.Class = (*VM)(nil)
