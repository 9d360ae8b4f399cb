package server

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage is the recorder process's resource footprint.
type Usage struct {
	RSSMB                int64   `json:"rss_mb"`
	CPUPercent           float64 `json:"cpu_percent"`
	Goroutines           int     `json:"goroutines"`
	HeapAllocMB          int64   `json:"heap_alloc_mb"`
	SystemMemUsedPercent float64 `json:"system_mem_used_percent"`
}

// ResourceUsage samples the current process. Fields that cannot be read stay zero.
func ResourceUsage() Usage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	u := Usage{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: int64(ms.HeapAlloc / 1024 / 1024),
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			u.RSSMB = int64(mi.RSS / 1024 / 1024)
		}
		if pct, err := p.Percent(CPUSampleWindow); err == nil {
			u.CPUPercent = pct
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		u.SystemMemUsedPercent = vm.UsedPercent
	}
	return u
}
