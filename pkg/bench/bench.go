// Package bench orchestrates benchmark execution: it expands a scenario
// into parameter sets, launches each run under the process-tree monitor,
// and persists every artifact under the scenario's output directory.
//
// Layout per scenario:
//
//	<temp-directory>/<name>/
//	    output.json                cumulative scenario record
//	    set_<i>/run_<j>/
//	        result.json            full monitoring result for the run
//	        process.json           pre-run whole-system process listing
//	        <input file copy>, <outputs>, generated driver scripts
//
// The cross-scenario index benchmark_results.csv lives in the working
// directory.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"github.com/geobench/geobench/pkg/command"
	"github.com/geobench/geobench/pkg/monitor"
	"github.com/geobench/geobench/pkg/scenario"
)

const (
	outputFile  = "output.json"
	resultFile  = "result.json"
	processFile = "process.json"
)

// RunSummary is the per-run row stored in output.json: the recorded
// parameter set plus the headline numbers of the full result.json.
type RunSummary struct {
	Set          int                    `json:"set"`
	Repeat       int                    `json:"repeat"`
	Parameters   map[string]string      `json:"parameters"`
	Success      bool                   `json:"success"`
	StartedAt    time.Time              `json:"start_time"`
	EndedAt      time.Time              `json:"end_time"`
	ExecTime     float64                `json:"exec_time"`
	SystemAvgCPU float64                `json:"system_avg_cpu"`
	SystemAvgMem monitor.MemorySnapshot `json:"system_avg_mem"`
	ProcessList  string                 `json:"running_process,omitempty"`
	Detailed     string                 `json:"detailed_result,omitempty"`
}

// Output is the cumulative scenario record. It is rewritten after every
// completed run so a crashed batch still leaves the finished rows behind.
type Output struct {
	Name     string                  `json:"name"`
	System   *SystemInfo             `json:"system,omitempty"`
	Baseline *Baseline               `json:"baseline,omitempty"`
	Software *command.SoftwareConfig `json:"software,omitempty"`
	Runs     []RunSummary            `json:"summarized_results"`
}

// Options tunes a Benchmark. The zero value uses the monitor's default
// interval, the default logger and the default index file.
type Options struct {
	Interval  time.Duration
	Logger    log.Logger
	IndexPath string
}

// Benchmark runs one scenario end to end.
type Benchmark struct {
	scenario *scenario.Scenario
	builder  command.Builder
	interval time.Duration
	logr     log.Logger
	index    *Index
}

func New(s *scenario.Scenario, opts Options) (*Benchmark, error) {
	builder, err := command.ForScenario(s)
	if err != nil {
		return nil, err
	}
	return &Benchmark{
		scenario: s,
		builder:  builder,
		interval: opts.Interval,
		logr:     opts.Logger,
		index:    NewIndex(opts.IndexPath),
	}, nil
}

// Run executes the whole scenario: system inventory, baseline recording,
// software resolution, then repeat runs of every parameter set. A run whose
// process fails to start is recorded as unsuccessful and the batch
// continues; only a missing executable or an unusable output directory
// aborts the benchmark.
func (b *Benchmark) Run(ctx context.Context) (*Output, error) {
	s := b.scenario
	baseDir := filepath.Join(s.TempDirectory, s.Name)

	sets, err := s.Combinations()
	if err != nil {
		return nil, err
	}
	if err := b.createRunDirs(baseDir, len(sets)); err != nil {
		return nil, err
	}

	out := &Output{Name: s.Name, Runs: []RunSummary{}}

	b.logr.Info().Str("scenario", s.Name).Msg("recording system configuration")
	out.System = RecordSystemInfo()
	b.saveOutput(baseDir, out)

	dur := RecordDuration()
	b.logr.Info().Dur("duration", dur).Msg("recording idle baseline")
	baseline := RecordBaseline(ctx, dur, b.interval, b.logr)
	out.Baseline = &baseline
	b.saveOutput(baseDir, out)

	software, err := b.builder.SoftwareConfig()
	if err != nil {
		return nil, err
	}
	out.Software = software
	b.logr.Info().Strs("exec", software.ExecPath).Str("version", software.Version).Msg("resolved software under benchmark")
	b.saveOutput(baseDir, out)

	started := time.Now()
	for i, set := range sets {
		for j := 1; j <= s.Repeat; j++ {
			row := b.runOne(ctx, baseDir, i, j, set, software.ExecPath)
			out.Runs = append(out.Runs, row)
			b.saveOutput(baseDir, out)

			if ctx.Err() != nil {
				return out, ctx.Err()
			}
		}
	}
	ended := time.Now()

	if err := b.index.Append(indexEntryFor(s.Name, started, ended)); err != nil {
		return out, err
	}
	b.logr.Info().Str("scenario", s.Name).Int("runs", len(out.Runs)).Msg("benchmark finished")
	return out, nil
}

func (b *Benchmark) createRunDirs(baseDir string, sets int) error {
	for i := 1; i <= sets; i++ {
		for j := 1; j <= b.scenario.Repeat; j++ {
			dir := filepath.Join(baseDir, fmt.Sprintf("set_%d", i), fmt.Sprintf("run_%d", j))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("bench: create %s: %w", dir, err)
			}
		}
	}
	return nil
}

// runOne executes a single run of one parameter set and returns its summary
// row. Failures inside the run mark the row unsuccessful instead of
// propagating, so one broken combination cannot sink the batch.
func (b *Benchmark) runOne(ctx context.Context, baseDir string, setIdx, runIdx int, set map[string]string, execPath []string) RunSummary {
	relDir := filepath.Join(fmt.Sprintf("set_%d", setIdx+1), fmt.Sprintf("run_%d", runIdx))
	runDir := filepath.Join(baseDir, relDir)

	row := RunSummary{
		Set:        setIdx + 1,
		Repeat:     runIdx,
		Parameters: set,
		StartedAt:  time.Now(),
	}

	b.logr.Info().Int("set", row.Set).Int("run", runIdx).Msg("recording pre-run process listing")
	b.writeJSON(filepath.Join(runDir, processFile), RecordProcessList())
	row.ProcessList = filepath.Join(relDir, processFile)

	// The process writes into the run directory; the recorded row keeps the
	// relative path so the artifact tree stays relocatable.
	decoded, recorded := paramsForRun(set, runDir, relDir)
	row.Parameters = recorded

	args, err := b.builder.ExecParams(b.scenario.CommandSpec(), decoded, runDir)
	if err != nil {
		b.logr.Error().Err(err).Int("set", row.Set).Int("run", runIdx).Msg("command construction failed")
		return b.closeRow(row)
	}

	argv := append(append([]string{}, execPath...), args...)
	b.logr.Info().Int("set", row.Set).Int("run", runIdx).Strs("argv", argv).Msg("starting run")

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = runDir
	if err := cmd.Start(); err != nil {
		b.logr.Error().Err(err).Int("set", row.Set).Int("run", runIdx).Msg("run failed to start")
		return b.closeRow(row)
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	mon := monitor.New(monitor.Config{Interval: b.interval, Logger: b.logr})
	res, err := mon.Run(ctx, int32(cmd.Process.Pid))
	if err != nil {
		// The process exited before the monitor attached. Keep an empty
		// result so the run directory is complete either way.
		res = &monitor.Result{RootPID: int32(cmd.Process.Pid), StartedAt: row.StartedAt}
	}
	res.Success = <-waitCh == nil
	if res.EndedAt.IsZero() {
		res.EndedAt = time.Now()
	}

	b.writeJSON(filepath.Join(runDir, resultFile), res)
	row.Detailed = filepath.Join(relDir, resultFile)
	b.copyInput(runDir, relDir, recorded)

	row.Success = res.Success
	row.EndedAt = res.EndedAt
	row.ExecTime = res.EndedAt.Sub(res.StartedAt).Seconds()
	row.SystemAvgCPU = res.SystemAvgCPU
	row.SystemAvgMem = res.SystemAvgMem
	return row
}

// paramsForRun rewrites OUTPUT so the run writes into its own directory:
// decoded gets the absolute path handed to the process, recorded keeps the
// path relative to the scenario directory.
func paramsForRun(set map[string]string, runDir, relDir string) (decoded, recorded map[string]string) {
	decoded = make(map[string]string, len(set))
	recorded = make(map[string]string, len(set))
	for k, v := range set {
		decoded[k] = v
		recorded[k] = v
	}
	if v, ok := set["OUTPUT"]; ok {
		name := filepath.Base(v)
		if abs, err := filepath.Abs(filepath.Join(runDir, name)); err == nil {
			decoded["OUTPUT"] = abs
		}
		recorded["OUTPUT"] = filepath.Join(relDir, name)
	}
	return decoded, recorded
}

// copyInput archives the INPUT file next to the run's artifacts and points
// the recorded parameters at the copy.
func (b *Benchmark) copyInput(runDir, relDir string, recorded map[string]string) {
	src, ok := b.scenario.Inputs["INPUT"]
	if !ok {
		return
	}
	name := filepath.Base(src)
	if err := copyFile(src, filepath.Join(runDir, name)); err != nil {
		b.logr.Warn().Err(err).Str("input", src).Msg("input archive copy failed")
		return
	}
	recorded["INPUT"] = filepath.Join(relDir, name)
}

func (b *Benchmark) closeRow(row RunSummary) RunSummary {
	row.Success = false
	row.EndedAt = time.Now()
	row.ExecTime = row.EndedAt.Sub(row.StartedAt).Seconds()
	return row
}

func (b *Benchmark) saveOutput(baseDir string, out *Output) {
	b.writeJSON(filepath.Join(baseDir, outputFile), out)
}

func (b *Benchmark) writeJSON(path string, v any) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		err = os.WriteFile(path, body, 0o644)
	}
	if err != nil {
		b.logr.Warn().Err(err).Str("path", path).Msg("artifact write failed")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
