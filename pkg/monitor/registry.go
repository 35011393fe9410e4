package monitor

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// entry is the single long-lived owner of one process's accumulated samples.
// Appends and the finalize transition are serialized by its mutex.
type entry struct {
	mu        sync.Mutex
	meta      ProcessMeta
	proc      *process.Process
	samples   []Sample
	finalized bool
	metrics   *ProcessMetrics
}

func (e *entry) append(s Sample) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		// Late sample racing a finalize; the entry is closed.
		return
	}
	e.samples = append(e.samples, s)
}

// finalize computes the derived statistics and closes the entry. The locked
// check-and-set makes the transition happen exactly once even when two
// observers (sampler hit ErrProcessGone, drain pass) race to call it.
// Returns true only for the call that actually closed the entry.
func (e *entry) finalize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.finalized {
		return false
	}
	e.finalized = true

	m := &ProcessMetrics{Meta: e.meta, Samples: e.samples}
	if n := len(e.samples); n > 0 {
		var cpu, mem float64
		for _, s := range e.samples {
			cpu += s.CPUPercent
			mem += s.MemoryPercent
			if s.Threads > m.MaxThreads {
				m.MaxThreads = s.Threads
			}
		}
		m.AvgCPUPercent = cpu / float64(n)
		m.AvgMemoryPercent = mem / float64(n)
	}
	m.RunningTime = sampleSpan(e.samples)
	e.metrics = m
	return true
}

// sampleSpan is last-sample timestamp minus first-sample timestamp, zero for
// a process observed for less than one full tick. Non-decreasing as samples
// are appended, since appends are time-ordered.
func sampleSpan(samples []Sample) time.Duration {
	if len(samples) < 2 {
		return 0
	}
	return samples[len(samples)-1].At.Sub(samples[0].At)
}

// Registry is the thread-safe arena of tracked processes, keyed by PID.
// It only grows while monitoring runs; a vanished child keeps its entry
// with whatever samples it accrued.
type Registry struct {
	mu      sync.Mutex
	entries map[int32]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[int32]*entry)}
}

// Register creates an entry for the PID if absent and reports whether it was
// newly added. Duplicate registration of a live PID is a no-op.
func (r *Registry) Register(meta ProcessMeta, proc *process.Process) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[meta.PID]; ok {
		return false
	}
	r.entries[meta.PID] = &entry{meta: meta, proc: proc}
	return true
}

// Has reports whether the PID was ever registered (finalized or not).
func (r *Registry) Has(pid int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[pid]
	return ok
}

// Append adds a sample to the PID's entry. Unknown PIDs are ignored.
func (r *Registry) Append(pid int32, s Sample) {
	if e := r.lookup(pid); e != nil {
		e.append(s)
	}
}

// Finalize closes the PID's entry, computing derived statistics exactly once.
// Safe to call repeatedly; only the first call has any effect.
func (r *Registry) Finalize(pid int32) bool {
	if e := r.lookup(pid); e != nil {
		return e.finalize()
	}
	return false
}

func (r *Registry) lookup(pid int32) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[pid]
}

// live returns the entries still accumulating samples.
func (r *Registry) live() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		e.mu.Lock()
		open := !e.finalized
		e.mu.Unlock()
		if open {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of PIDs ever registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// metrics returns the finalized record per PID. Entries that somehow escaped
// finalization are closed here; the aggregator must never see an open entry.
func (r *Registry) metrics() map[int32]*ProcessMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int32]*ProcessMetrics, len(r.entries))
	for pid, e := range r.entries {
		e.finalize()
		e.mu.Lock()
		out[pid] = e.metrics
		e.mu.Unlock()
	}
	return out
}
