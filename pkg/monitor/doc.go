// Package monitor tracks the resource usage of a process tree whose
// membership changes over time. Given the PID of an already-started root
// process, it re-enumerates the root's descendants once per tick, samples
// CPU%/memory%/thread-count for every tracked process concurrently, records
// whole-machine utilization alongside, and reduces everything into a single
// Result when the root exits.
//
// Overview
//
//   - Monitor:
//     Run(ctx, pid) (*Result, error)
//
//     Run owns the whole lifecycle: STARTING (register root, prime CPU
//     baselines), MONITORING (tick loop: liveness check, descendant
//     discovery, bounded sampling fan-out), DRAINING (one grace pass over
//     still-live descendants, then force-finalize), DONE (reduce).
//
//   - Registry:
//     PID-keyed arena of tracked processes. Register is idempotent, Append
//     is lock-serialized, Finalize is an exactly-once transition guarded by
//     a locked check-and-set. That transition is what keeps statistics
//     stable when "vanished during sampling" and "discovery confirms gone"
//     race to close the same entry.
//
//   - Sampler:
//     One reading per process per tick via gopsutil. A process that exited
//     between enumeration and read yields ErrProcessGone, which finalizes
//     the entry rather than surfacing as an error. The first reading per
//     handle is a baseline with no window behind it and is discarded.
//
//   - SystemSampler:
//     Per-core CPU and virtual-memory snapshot per tick, independent of the
//     tree. A failed OS query skips the tick, never aborts the run.
//
//   - Aggregation:
//     Per-process averages are arithmetic means over that process's own
//     samples (baseline excluded); running time is last-sample minus
//     first-sample, zero below two samples. System averages are per-tick
//     means, with each structured memory field averaged independently.
//
// Errors (errs.go):
//
//	ErrProcessGone  : expected enumeration/sampling race, recovered locally
//	ErrRootNotFound : root PID missing at start, fatal to the run
//
// The monitor has one external cancellation trigger: root process exit. A
// caller wanting a time bound kills the root externally; the loop observes
// it on the next tick and drains. Context cancellation drains the same way.
package monitor
