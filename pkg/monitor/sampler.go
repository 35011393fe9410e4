package monitor

import (
	"errors"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Sampler takes one CPU%/memory%/thread-count reading from a process handle.
//
// CPU percent is a delta measurement: gopsutil computes it against the
// previous call on the same handle, so the first reading per handle has no
// meaningful window behind it. Prime establishes that zero baseline; callers
// must discard or never record the primed reading.
type Sampler struct{}

// Prime takes and discards the baseline CPU reading for a freshly observed
// handle, so the next Sample returns a real over-the-window percentage.
func (Sampler) Prime(p *process.Process) {
	_, _ = p.CPUPercent()
}

// Sample returns a single reading for the process, or ErrProcessGone when
// the process exited between enumeration and sampling. Memory percent is a
// valid instantaneous reading whenever the process still exists; the
// thread count is best-effort and left zero when unavailable.
//
// A zombie counts as gone: it has exited, only its PID table slot remains
// until the parent reaps it.
func (Sampler) Sample(p *process.Process) (Sample, error) {
	if st, err := p.Status(); err == nil && statusContains(st, process.Zombie) {
		return Sample{}, ErrProcessGone
	}
	cpuPct, err := p.CPUPercent()
	if err != nil {
		return Sample{}, classifySampleErr(p, err)
	}
	memPct, err := p.MemoryPercent()
	if err != nil {
		return Sample{}, classifySampleErr(p, err)
	}

	s := Sample{
		At:            time.Now(),
		CPUPercent:    cpuPct,
		MemoryPercent: float64(memPct),
	}
	if n, err := p.NumThreads(); err == nil {
		s.Threads = n
	}
	return s, nil
}

// classifySampleErr separates the expected vanished-process race from real
// failures. The PID table is the authority: if the PID no longer exists,
// whatever error the read produced is ErrProcessGone.
func classifySampleErr(p *process.Process, err error) error {
	if errors.Is(err, process.ErrorProcessNotRunning) {
		return ErrProcessGone
	}
	if ok, e := process.PidExists(p.Pid); e == nil && !ok {
		return ErrProcessGone
	}
	return err
}

func statusContains(statuses []string, want string) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}

// readMeta captures the immutable identity of a process. Each field is
// best-effort: a process may vanish halfway through and still be registered
// with whatever was read before it went.
func readMeta(p *process.Process) ProcessMeta {
	meta := ProcessMeta{PID: p.Pid}
	if name, err := p.Name(); err == nil {
		meta.Name = name
	}
	if cl, err := p.Cmdline(); err == nil {
		meta.Cmdline = cl
	}
	if ms, err := p.CreateTime(); err == nil {
		meta.Created = time.UnixMilli(ms)
	}
	return meta
}
