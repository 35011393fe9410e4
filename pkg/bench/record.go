package bench

import (
	"context"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/phuslu/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/geobench/geobench/pkg/monitor"
	"github.com/geobench/geobench/pkg/types"
)

// DefaultRecordDuration bounds baseline recording when GB_RECORD_DURATION
// is unset.
const DefaultRecordDuration = 10 * time.Second

// OSInfo identifies the host operating system.
type OSInfo struct {
	System   string `json:"system"`
	Node     string `json:"node"`
	Release  string `json:"release"`
	Version  string `json:"version"`
	Machine  string `json:"machine"`
	Platform string `json:"platform,omitempty"`
}

// CPUInfo describes the processor the benchmark runs on.
type CPUInfo struct {
	Model         string  `json:"model,omitempty"`
	PhysicalCores int     `json:"physical_cores"`
	TotalCores    int     `json:"total_cores"`
	FrequencyMHz  float64 `json:"frequency_mhz,omitempty"`
	UsagePercent  float64 `json:"usage"`
}

// MemoryInfo is the machine memory inventory at recording time.
type MemoryInfo struct {
	Total       types.Bytes `json:"total"`
	Available   types.Bytes `json:"available"`
	Used        types.Bytes `json:"used"`
	UsedPercent float64     `json:"percentage"`
}

// DiskInfo describes one mounted partition.
type DiskInfo struct {
	Device      string      `json:"device"`
	Mountpoint  string      `json:"mountpoint"`
	Fstype      string      `json:"fstype"`
	Total       types.Bytes `json:"total_size"`
	Used        types.Bytes `json:"used"`
	Free        types.Bytes `json:"free"`
	UsedPercent float64     `json:"percentage"`
}

// SystemInfo is the hardware and OS inventory recorded once per benchmark,
// before any runs start.
type SystemInfo struct {
	OS     OSInfo     `json:"os"`
	CPU    CPUInfo    `json:"cpu"`
	Memory MemoryInfo `json:"memory"`
	Disks  []DiskInfo `json:"disk,omitempty"`
}

// Baseline is the idle whole-machine utilization measured before the first
// run, for judging how noisy the results are.
type Baseline struct {
	AvgCPU float64                `json:"avg_cpu"`
	AvgMem monitor.MemorySnapshot `json:"avg_mem"`
	Ticks  int                    `json:"ticks"`
}

// ProcessInfo is one row of the pre-run whole-system process listing.
type ProcessInfo struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Username      string  `json:"username,omitempty"`
	CPUPercent    float64 `json:"cpu_usage"`
	MemoryPercent float64 `json:"memory_usage"`
}

// RecordDuration returns the baseline and pre-run recording window:
// GB_RECORD_DURATION in seconds when set and parseable, the default
// otherwise.
func RecordDuration() time.Duration {
	env := os.Getenv("GB_RECORD_DURATION")
	if env == "" {
		return DefaultRecordDuration
	}
	secs, err := strconv.ParseFloat(env, 64)
	if err != nil || secs <= 0 {
		return DefaultRecordDuration
	}
	return time.Duration(secs * float64(time.Second))
}

// RecordSystemInfo takes the hardware and OS inventory. Every probe is best
// effort: a section whose query fails stays zero-valued rather than failing
// the benchmark.
func RecordSystemInfo() *SystemInfo {
	info := &SystemInfo{}

	if hi, err := host.Info(); err == nil {
		info.OS = OSInfo{
			System:   hi.OS,
			Node:     hi.Hostname,
			Release:  hi.KernelVersion,
			Version:  hi.PlatformVersion,
			Machine:  hi.KernelArch,
			Platform: hi.Platform,
		}
	}

	if n, err := cpu.Counts(false); err == nil {
		info.CPU.PhysicalCores = n
	}
	if n, err := cpu.Counts(true); err == nil {
		info.CPU.TotalCores = n
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPU.Model = infos[0].ModelName
		info.CPU.FrequencyMHz = infos[0].Mhz
	}
	if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
		info.CPU.UsagePercent = usage[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.Memory = MemoryInfo{
			Total:       types.Bytes(vm.Total),
			Available:   types.Bytes(vm.Available),
			Used:        types.Bytes(vm.Used),
			UsedPercent: vm.UsedPercent,
		}
	}

	if parts, err := disk.Partitions(false); err == nil {
		for _, part := range parts {
			di := DiskInfo{
				Device:     part.Device,
				Mountpoint: part.Mountpoint,
				Fstype:     part.Fstype,
			}
			// Some mounts (cdrom, locked volumes) refuse usage queries.
			if usage, err := disk.Usage(part.Mountpoint); err == nil {
				di.Total = types.Bytes(usage.Total)
				di.Used = types.Bytes(usage.Used)
				di.Free = types.Bytes(usage.Free)
				di.UsedPercent = usage.UsedPercent
			}
			info.Disks = append(info.Disks, di)
		}
	}

	return info
}

// RecordBaseline samples whole-machine utilization at the monitor's cadence
// for the given duration and returns the averages. Cancelling ctx cuts the
// window short with whatever was collected.
func RecordBaseline(ctx context.Context, d time.Duration, interval time.Duration, logger log.Logger) Baseline {
	if interval <= 0 {
		interval = monitor.DefaultInterval
	}
	sys := monitor.NewSystemSampler(logger)
	sys.Prime()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(d)

	for {
		select {
		case <-ctx.Done():
			return baselineOf(sys.Log())
		case <-deadline:
			return baselineOf(sys.Log())
		case <-ticker.C:
			sys.Tick()
		}
	}
}

func baselineOf(samples []monitor.SystemSample) Baseline {
	avgCPU, avgMem := monitor.SystemAverages(samples)
	return Baseline{AvgCPU: avgCPU, AvgMem: avgMem, Ticks: len(samples)}
}

// RecordProcessList snapshots every process on the machine with its current
// utilization, sorted by memory share descending. Rows that vanish or deny
// access mid-walk are skipped.
func RecordProcessList() []ProcessInfo {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		row := ProcessInfo{PID: p.Pid, Name: name}
		if user, err := p.Username(); err == nil {
			row.Username = user
		}
		if cpuPct, err := p.CPUPercent(); err == nil {
			row.CPUPercent = cpuPct
		}
		if memPct, err := p.MemoryPercent(); err == nil {
			row.MemoryPercent = float64(memPct)
		}
		out = append(out, row)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].MemoryPercent > out[j].MemoryPercent })
	return out
}
