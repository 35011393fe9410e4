package monitor

import (
	"time"

	"github.com/geobench/geobench/pkg/types"
)

// Sample is a single per-process reading taken on one monitoring tick.
// Exactly one sampling task produces samples for a given PID, so the
// sequence stored for a process is strictly time-ordered.
type Sample struct {
	At            time.Time `json:"time"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	Threads       int32     `json:"threads,omitempty"`
}

// ProcessMeta is the cached identity of a tracked process.
// Immutable after creation; captured once when the PID is first observed.
type ProcessMeta struct {
	PID     int32     `json:"pid"`
	Name    string    `json:"name,omitempty"`
	Cmdline string    `json:"cmdline,omitempty"`
	Created time.Time `json:"created,omitzero"`
}

// ProcessMetrics is the closed record for one process: its metadata, the
// ordered samples it accrued, and the statistics derived at finalization.
// Derived fields are computed exactly once and never mutated afterwards.
type ProcessMetrics struct {
	Meta             ProcessMeta   `json:"meta"`
	Samples          []Sample      `json:"samples,omitempty"`
	RunningTime      time.Duration `json:"running_time"`
	AvgCPUPercent    float64       `json:"avg_cpu_percent"`
	AvgMemoryPercent float64       `json:"avg_memory_percent"`
	MaxThreads       int32         `json:"max_threads"`
}

// MemorySnapshot is the structured machine-memory reading carried by each
// system sample. When averaged across ticks, each field is averaged
// independently.
type MemorySnapshot struct {
	Total       types.Bytes `json:"total"`
	Available   types.Bytes `json:"available"`
	Used        types.Bytes `json:"used"`
	Free        types.Bytes `json:"free"`
	UsedPercent float64     `json:"used_percent"`
}

// SystemSample is one whole-machine reading, independent of any process tree.
type SystemSample struct {
	At            time.Time      `json:"time"`
	PerCPUPercent []float64      `json:"sys_per_cpu"`
	CPUPercent    float64        `json:"sys_cpu"`
	Memory        MemorySnapshot `json:"sys_mem"`
}

// Result is the metrics bundle built once, after the root process and all
// discovered descendants have terminated or been force-finalized.
// Every PID that was ever registered appears in Processes, even if it was
// observed for less than one tick (zero-valued statistics in that case).
type Result struct {
	RootPID      int32                     `json:"pid"`
	Success      bool                      `json:"success"`
	StartedAt    time.Time                 `json:"start_time"`
	EndedAt      time.Time                 `json:"end_time"`
	SystemAvgCPU float64                   `json:"system_avg_cpu"`
	SystemAvgMem MemorySnapshot            `json:"system_avg_mem"`
	SystemLog    []SystemSample            `json:"log_data,omitempty"`
	Processes    map[int32]*ProcessMetrics `json:"process_metrics"`
}
