package monitor

import (
	"sync"
	"time"

	"github.com/geobench/geobench/pkg/types"
	"github.com/phuslu/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemSampler captures whole-machine per-core CPU utilization and memory
// occupancy once per tick, independent of which processes are tracked.
// A transient OS query failure skips the tick; nothing is appended for it.
type SystemSampler struct {
	mu      sync.Mutex
	samples []SystemSample
	logr    log.Logger
}

func NewSystemSampler(logger log.Logger) *SystemSampler {
	return &SystemSampler{logr: logger}
}

// Prime takes and discards the baseline per-core CPU reading, so the first
// recorded tick measures a real window instead of the boot-to-now average.
func (s *SystemSampler) Prime() {
	_, _ = cpu.Percent(0, true)
}

// Tick captures one system sample and appends it to the internal log.
// The sample is also returned so ad-hoc callers (baseline recording) can
// consume readings without draining the log.
func (s *SystemSampler) Tick() (SystemSample, bool) {
	perCPU, err := cpu.Percent(0, true)
	if err != nil || len(perCPU) == 0 {
		s.logr.Debug().Err(err).Msg("system cpu query failed, skipping tick")
		return SystemSample{}, false
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		s.logr.Debug().Err(err).Msg("system memory query failed, skipping tick")
		return SystemSample{}, false
	}

	var sum float64
	for _, v := range perCPU {
		sum += v
	}
	sample := SystemSample{
		At:            time.Now(),
		PerCPUPercent: perCPU,
		CPUPercent:    sum / float64(len(perCPU)),
		Memory: MemorySnapshot{
			Total:       types.Bytes(vm.Total),
			Available:   types.Bytes(vm.Available),
			Used:        types.Bytes(vm.Used),
			Free:        types.Bytes(vm.Free),
			UsedPercent: vm.UsedPercent,
		},
	}

	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
	return sample, true
}

// Log returns the recorded samples in tick order.
func (s *SystemSampler) Log() []SystemSample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SystemSample, len(s.samples))
	copy(out, s.samples)
	return out
}
