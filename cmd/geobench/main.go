package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"

	"github.com/geobench/geobench/pkg/bench"
	"github.com/geobench/geobench/pkg/monitor"
	"github.com/geobench/geobench/pkg/report"
	"github.com/geobench/geobench/pkg/scenario"
)

type opts struct {
	// run
	file     string
	name     string
	repeat   int
	interval time.Duration

	// shared
	resultDir string
	indexPath string
	verbose   bool
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "geobench",
		Short: "Toolkit for benchmarking geospatial processing workloads",
		Long: `Geobench runs a benchmark scenario (shell, python, qgis-process or
qgis-python), monitors the spawned process tree and the whole machine while
each run executes, and stores every artifact under the scenario's result
directory.

Examples:
  geobench run -f scenarios/buffer.yml
  geobench run -f scenarios/buffer.yml -n buffer-hot -r 5
  geobench result list
  geobench result inspect buffer-hot`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&o.resultDir, "result-dir", "results", "base directory holding benchmark artifacts")
	root.PersistentFlags().StringVar(&o.indexPath, "index", bench.IndexFile, "path of the benchmark result index")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark scenario",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd, o)
		},
	}
	runCmd.Flags().StringVarP(&o.file, "file", "f", "", "scenario file (required)")
	runCmd.Flags().StringVarP(&o.name, "name", "n", "", "override the scenario name")
	runCmd.Flags().IntVarP(&o.repeat, "repeat", "r", 0, "override the number of repeats per parameter set")
	runCmd.Flags().DurationVarP(&o.interval, "interval", "i", monitor.DefaultInterval, "monitoring sample interval")
	_ = runCmd.MarkFlagRequired("file")
	root.AddCommand(runCmd)

	resultCmd := &cobra.Command{
		Use:   "result",
		Short: "Manage benchmark results",
	}
	resultCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all benchmarked scenarios",
		RunE: func(_ *cobra.Command, _ []string) error {
			return listResults(o)
		},
	})
	resultCmd.AddCommand(&cobra.Command{
		Use:   "inspect <name>",
		Short: "Summarize a scenario's result and render its HTML report",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return inspectResult(o, args[0])
		},
	})
	resultCmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a scenario from the result index",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return bench.NewIndex(o.indexPath).Delete(args[0])
		},
	})
	saveDir := ""
	saveCmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Copy a scenario's artifact tree to another directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return saveResult(o, args[0], saveDir)
		},
	}
	saveCmd.Flags().StringVar(&saveDir, "output-dir", "", "destination directory (default ~/geobench_saved_results/<name>)")
	resultCmd.AddCommand(saveCmd)
	root.AddCommand(resultCmd)

	if err := root.Execute(); err != nil {
		logger := newLogger(false)
		logger.Error().Err(err).Msg("geobench failed")
		os.Exit(1)
	}
}

func newLogger(verbose bool) log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.Logger{
		Level: level,
		Writer: &log.ConsoleWriter{
			ColorOutput:    true,
			EndWithMessage: true,
			Writer:         os.Stderr,
		},
	}
}

func runScenario(cmd *cobra.Command, o opts) error {
	logger := newLogger(o.verbose)

	s, err := scenario.Load(o.file, scenario.Overrides{Name: o.name, Repeat: o.repeat})
	if err != nil {
		return err
	}
	if s.TempDirectory == "" || s.TempDirectory == "results" {
		s.TempDirectory = o.resultDir
	}

	b, err := bench.New(s, bench.Options{
		Interval:  o.interval,
		Logger:    logger,
		IndexPath: o.indexPath,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := b.Run(ctx)
	if err != nil {
		return err
	}

	if path, rerr := writeReport(s.TempDirectory, out); rerr != nil {
		logger.Warn().Err(rerr).Msg("report rendering failed")
	} else {
		fmt.Printf("Report written to %s\n", path)
	}
	printSummary(out)
	return nil
}

func listResults(o opts) error {
	entries, err := bench.NewIndex(o.indexPath).List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTART\tEND\tEXEC (s)")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", e.Name, e.StartTimeHR, e.EndTimeHR, e.ExecutionTime)
	}
	return tw.Flush()
}

func inspectResult(o opts, name string) error {
	entry, err := bench.NewIndex(o.indexPath).Get(name)
	if err != nil {
		return err
	}

	fmt.Printf("Test name: %s\nStart time: %s\nEnd time: %s\nExecution time: %.2fs\n\n",
		entry.Name, entry.StartTimeHR, entry.EndTimeHR, entry.ExecutionTime)

	out, err := loadOutput(o.resultDir, name)
	if err != nil {
		return err
	}
	printSummary(out)

	path, err := writeReport(o.resultDir, out)
	if err != nil {
		return err
	}
	fmt.Printf("\nReport written to %s\n", path)
	return nil
}

func saveResult(o opts, name, outputDir string) error {
	if _, err := bench.NewIndex(o.indexPath).Get(name); err != nil {
		return err
	}

	src := filepath.Join(o.resultDir, name)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("artifact directory not found: %s", src)
	}

	if outputDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		outputDir = filepath.Join(home, "geobench_saved_results", name)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	if err := os.CopyFS(outputDir, os.DirFS(src)); err != nil {
		return err
	}
	fmt.Printf("Saved artifacts for %q to %s\n", name, outputDir)
	return nil
}

func loadOutput(resultDir, name string) (*bench.Output, error) {
	path := filepath.Join(resultDir, name, "output.json")
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out bench.Output
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &out, nil
}

func writeReport(resultDir string, out *bench.Output) (string, error) {
	path := filepath.Join(resultDir, out.Name, "report.html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := report.Render(f, out); err != nil {
		return "", err
	}
	return path, nil
}

func printSummary(out *bench.Output) {
	sets := report.Summarize(out.Runs)
	if len(sets) == 0 {
		fmt.Println("No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SET\tRUNS\tOK\tEXEC MEAN (s)\tEXEC STDDEV\tSYS CPU MEAN (%)")
	for _, s := range sets {
		fmt.Fprintf(tw, "set_%d\t%d\t%d\t%.3f\t%.3f\t%.2f\n",
			s.Set, s.Runs, s.Successes, s.MeanExecTime, s.StdDevExecTime, s.MeanSystemCPU)
	}
	tw.Flush()
}
