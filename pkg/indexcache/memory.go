package indexcache

import (
	"log"
	"runtime"
)

// MemorySnapshot captures heap and resident figures at one load transition.
// Cold-start out-of-memory failures are diagnosed from these lines, so the
// instrumentation is a design requirement rather than optional logging.
type MemorySnapshot struct {
	HeapAllocMB uint64
	HeapSysMB   uint64
	SysMB       uint64
	NumGC       uint32
}

// ReadMemory returns the current runtime memory figures.
func ReadMemory() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAllocMB: m.HeapAlloc / (1 << 20),
		HeapSysMB:   m.HeapSys / (1 << 20),
		SysMB:       m.Sys / (1 << 20),
		NumGC:       m.NumGC,
	}
}

func logMemory(stage string) {
	s := ReadMemory()
	log.Printf("index cache memory [%s]: heapAlloc=%dMB heapSys=%dMB sys=%dMB numGC=%d",
		stage, s.HeapAllocMB, s.HeapSysMB, s.SysMB, s.NumGC)
}
