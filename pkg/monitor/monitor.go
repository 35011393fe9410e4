package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultInterval is the monitoring tick length when none is configured.
const DefaultInterval = 500 * time.Millisecond

// Config tunes a Monitor. The zero value is usable: DefaultInterval and the
// process-wide default logger.
type Config struct {
	// Interval bounds one tick of the discovery loop and the sampling
	// window of every per-process reading.
	Interval time.Duration

	Logger log.Logger
}

// Monitor tracks a root process and every descendant it spawns, sampling
// per-process and whole-machine utilization at a fixed cadence until the
// root exits.
//
// One Monitor instance owns one run: its registry and system log are built
// during Run and reduced into the returned Result. Instances are not reused.
type Monitor struct {
	interval time.Duration
	logr     log.Logger
	sampler  Sampler
	registry *Registry
	system   *SystemSampler
}

func New(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Monitor{
		interval: cfg.Interval,
		logr:     cfg.Logger,
		registry: NewRegistry(),
		system:   NewSystemSampler(cfg.Logger),
	}
}

// Run monitors the already-started process identified by pid until it exits,
// then reduces everything observed into a Result. The only error condition
// is the root PID not existing when monitoring starts; everything after that
// point is recovered locally per the error taxonomy (vanished processes
// finalize their entries, enumeration and system-sample failures skip a
// tick).
//
// Cancelling ctx behaves like root exit: the loop drains and returns what
// was collected so far.
func (m *Monitor) Run(ctx context.Context, pid int32) (*Result, error) {
	root, err := process.NewProcess(pid)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, fmt.Errorf("%w: pid %d", ErrRootNotFound, pid)
		}
		return nil, fmt.Errorf("monitor: attach pid %d: %w", pid, err)
	}

	started := time.Now()

	// STARTING: register the root and prime the CPU baselines. The primed
	// readings are never appended, so they stay out of the averages.
	m.register(root)
	m.system.Prime()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// MONITORING
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if !rootAlive(root) {
				break loop
			}
			m.discover(root)
			m.fanOut()
		}
	}

	// DRAINING: one grace sampling pass over whatever is still live, then
	// force-finalize. A detached grandchild daemon must not hold the tree
	// open forever.
	m.fanOut()
	for _, e := range m.registry.live() {
		e.finalize()
	}

	// DONE
	res := reduce(m.registry, m.system.Log())
	res.RootPID = pid
	res.StartedAt = started
	res.EndedAt = time.Now()
	return res, nil
}

// register adds a newly observed process to the registry and primes its CPU
// baseline. Idempotent per PID.
func (m *Monitor) register(p *process.Process) {
	meta := readMeta(p)
	if !m.registry.Register(meta, p) {
		return
	}
	m.sampler.Prime(p)
	m.logr.Debug().Int("pid", int(p.Pid)).Str("name", meta.Name).Msg("tracking process")
}

// discover re-enumerates the root's descendants and registers every PID not
// yet tracked. Discovery runs every tick because children of interest may
// appear after the root starts and vanish before it exits; an enumeration
// failure skips this tick and is retried on the next one.
func (m *Monitor) discover(root *process.Process) {
	pids, err := descendants(root.Pid)
	if err != nil {
		m.logr.Debug().Err(err).Msg("descendant enumeration failed, retrying next tick")
		return
	}
	for _, pid := range pids {
		if m.registry.Has(pid) {
			continue
		}
		p, err := process.NewProcess(pid)
		if err != nil {
			// Gone between enumeration and attach; expected.
			continue
		}
		m.register(p)
	}
}

// fanOut runs one tick's sampling: one goroutine per live tracked process
// plus one for the system sampler, then waits for all of them. In-flight
// work is bounded by the current tree size, and no process is ever sampled
// by two tasks at once.
func (m *Monitor) fanOut() {
	live := m.registry.live()

	var wg sync.WaitGroup
	wg.Add(len(live) + 1)

	go func() {
		defer wg.Done()
		m.system.Tick()
	}()

	for _, e := range live {
		go func(e *entry) {
			defer wg.Done()
			defer func() {
				// A single bad sample must never abort a multi-minute
				// run; drop this tick's contribution and keep going.
				if r := recover(); r != nil {
					m.logr.Error().Int("pid", int(e.meta.PID)).Interface("panic", r).Msg("sampling task panicked")
				}
			}()

			s, err := m.sampler.Sample(e.proc)
			switch {
			case err == nil:
				e.append(s)
			case errors.Is(err, ErrProcessGone):
				e.finalize()
			default:
				m.logr.Warn().Err(err).Int("pid", int(e.meta.PID)).Msg("sample failed, dropping tick")
			}
		}(e)
	}

	wg.Wait()
}

// rootAlive reports whether the root is still running. A zombie root has
// exited and merely awaits reaping by the orchestrator, so it counts as
// done; waiting for the reap would stall the loop on a PID slot.
func rootAlive(root *process.Process) bool {
	up, err := root.IsRunning()
	if err != nil || !up {
		return false
	}
	if st, err := root.Status(); err == nil && statusContains(st, process.Zombie) {
		return false
	}
	return true
}

// descendants returns the PIDs of every process transitively parented by
// root, walking a snapshot of the whole process table by PPID. A full-table
// snapshot is cheaper than per-process child queries and does not depend on
// platform tools.
func descendants(root int32) ([]int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("monitor: list processes: %w", err)
	}

	children := make(map[int32][]int32, len(procs))
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			// Exited mid-walk or not ours to inspect; skip this branch.
			continue
		}
		children[ppid] = append(children[ppid], p.Pid)
	}

	var out []int32
	queue := []int32{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, child := range children[pid] {
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}
