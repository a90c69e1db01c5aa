package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/jungkwangho/vmarena/arena"
	"github.com/jungkwangho/vmarena/arena/debugclass"
	"github.com/jungkwangho/vmarena/arena/vmclass"
)

func main() {
	arenaSize := flag.Uint64("arena-size", uint64(arena.DefaultArgs().ArenaSize), "initial arena reservation, in bytes")
	zoneShift := flag.Uint64("zone-shift", uint64(arena.DefaultArgs().ZoneShift), "zone size as a power of two")
	debug := flag.Bool("debug", false, "wrap the VM class with double-free detection and poison-fill")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "vmarena-inspect: failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	args := arena.DefaultArgs()
	args.ArenaSize = arena.Size(*arenaSize)
	args.ZoneShift = uint(*zoneShift)

	var class arena.Class = vmclass.New()
	if *debug {
		class = debugclass.New(class, log.Named("debugclass"))
	}

	a, err := arena.Create(class, args, log.Named("arena"))
	if err != nil {
		log.Fatal("failed to create arena", zap.Error(err))
	}
	defer a.Destroy()

	pool := arena.NewPool("vmarena-inspect")
	ranges := make([]arena.Range, 0, 4)
	for i := 0; i < 4; i++ {
		r, err := a.Alloc(args.Alignment, pool, arena.DefaultPref())
		if err != nil {
			log.Fatal("alloc failed", zap.Int("i", i), zap.Error(err))
		}
		ranges = append(ranges, r)
		log.Info("allocated", zap.Uint64("base", uint64(r.Base)), zap.Uint64("size", uint64(r.Size())))
	}

	for _, r := range ranges[:2] {
		if err := a.Free(r, pool); err != nil {
			log.Fatal("free failed", zap.Error(err))
		}
	}

	if err := a.Describe(); err != nil {
		log.Fatal("describe failed", zap.Error(err))
	}
}
