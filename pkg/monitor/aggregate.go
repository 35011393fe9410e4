package monitor

import "github.com/geobench/geobench/pkg/types"

// reduce folds the finalized registry and the system log into a Result.
// It never fails: absent or partial data reduces to zero values, and a
// process with zero samples still appears in the mapping so callers can
// tell "ran transiently" apart from "never existed".
func reduce(reg *Registry, syslog []SystemSample) *Result {
	res := &Result{
		Success:   true,
		Processes: reg.metrics(),
		SystemLog: syslog,
	}
	res.SystemAvgCPU, res.SystemAvgMem = SystemAverages(syslog)
	return res
}

// SystemAverages computes the mean machine-wide CPU percentage and the
// field-wise mean of the structured memory snapshots across the recorded
// ticks. An empty log yields zeros.
func SystemAverages(samples []SystemSample) (float64, MemorySnapshot) {
	n := len(samples)
	if n == 0 {
		return 0, MemorySnapshot{}
	}

	var cpuSum float64
	var total, avail, used, free, usedPct float64
	for _, s := range samples {
		cpuSum += s.CPUPercent
		total += float64(s.Memory.Total)
		avail += float64(s.Memory.Available)
		used += float64(s.Memory.Used)
		free += float64(s.Memory.Free)
		usedPct += s.Memory.UsedPercent
	}

	fn := float64(n)
	return cpuSum / fn, MemorySnapshot{
		Total:       types.Bytes(total / fn),
		Available:   types.Bytes(avail / fn),
		Used:        types.Bytes(used / fn),
		Free:        types.Bytes(free / fn),
		UsedPercent: usedPct / fn,
	}
}
