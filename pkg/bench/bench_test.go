//go:build !windows

package bench

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geobench/geobench/pkg/monitor"
	"github.com/geobench/geobench/pkg/scenario"
)

func TestParamsForRun_RewritesOutput(t *testing.T) {
	set := map[string]string{"OUTPUT": "buffered.gpkg", "DISTANCE": "10"}

	decoded, recorded := paramsForRun(set, filepath.Join("results", "x", "set_1", "run_1"), filepath.Join("set_1", "run_1"))

	assert.True(t, filepath.IsAbs(decoded["OUTPUT"]), "the process gets an absolute path")
	assert.Equal(t, filepath.Join("set_1", "run_1", "buffered.gpkg"), recorded["OUTPUT"])
	assert.Equal(t, "10", decoded["DISTANCE"])
	assert.Equal(t, "buffered.gpkg", set["OUTPUT"], "the template set is untouched")
}

func TestParamsForRun_NoOutput(t *testing.T) {
	decoded, recorded := paramsForRun(map[string]string{"N": "1"}, "d", "r")
	assert.Equal(t, map[string]string{"N": "1"}, decoded)
	assert.Equal(t, map[string]string{"N": "1"}, recorded)
}

func TestCreateRunDirs(t *testing.T) {
	s := &scenario.Scenario{Name: "x", Type: scenario.TypeShell, Command: "true", Repeat: 2}
	b, err := New(s, Options{Logger: log.Logger{Level: log.ErrorLevel}})
	require.NoError(t, err)

	base := filepath.Join(t.TempDir(), "x")
	require.NoError(t, b.createRunDirs(base, 3))

	for i := 1; i <= 3; i++ {
		for j := 1; j <= 2; j++ {
			set := "set_" + strconv.Itoa(i)
			run := "run_" + strconv.Itoa(j)
			assert.DirExists(t, filepath.Join(base, set, run))
		}
	}
}

func TestBenchmark_Run(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not on PATH")
	}
	t.Setenv("GB_RECORD_DURATION", "0.2")

	dir := t.TempDir()
	script := filepath.Join(dir, "work.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 0.2\n"), 0o755))

	s := &scenario.Scenario{
		Name:          "tiny",
		Type:          scenario.TypeShell,
		Command:       script,
		Repeat:        1,
		TempDirectory: dir,
		Parameters:    map[string]any{"N": []any{1, 2}},
	}

	b, err := New(s, Options{
		Interval:  50 * time.Millisecond,
		Logger:    log.Logger{Level: log.ErrorLevel},
		IndexPath: filepath.Join(dir, "benchmark_results.csv"),
	})
	require.NoError(t, err)

	out, err := b.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, out.Runs, 2, "two parameter sets, one repeat each")
	for _, row := range out.Runs {
		assert.True(t, row.Success)
		assert.Greater(t, row.ExecTime, 0.1)
	}
	assert.NotNil(t, out.System)
	assert.NotNil(t, out.Baseline)
	require.NotNil(t, out.Software)
	require.Len(t, out.Software.ExecPath, 1)

	baseDir := filepath.Join(dir, "tiny")
	assert.FileExists(t, filepath.Join(baseDir, "output.json"))
	for _, set := range []string{"set_1", "set_2"} {
		runDir := filepath.Join(baseDir, set, "run_1")
		assert.FileExists(t, filepath.Join(runDir, "result.json"))
		assert.FileExists(t, filepath.Join(runDir, "process.json"))
		assert.FileExists(t, filepath.Join(runDir, "work.sh"), "the script is archived per run")

		body, err := os.ReadFile(filepath.Join(runDir, "result.json"))
		require.NoError(t, err)
		var res monitor.Result
		require.NoError(t, json.Unmarshal(body, &res))
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.Processes)
	}

	got, err := b.index.Get("tiny")
	require.NoError(t, err)
	assert.Greater(t, got.ExecutionTime, 0.0)
}

func TestBenchmark_RunStartFailureContinues(t *testing.T) {
	t.Setenv("GB_RECORD_DURATION", "0.1")

	dir := t.TempDir()
	s := &scenario.Scenario{
		Name:          "broken",
		Type:          scenario.TypeShell,
		Command:       filepath.Join(dir, "does-not-exist.sh") + " arg",
		Repeat:        2,
		TempDirectory: dir,
	}

	b, err := New(s, Options{
		Interval:  50 * time.Millisecond,
		Logger:    log.Logger{Level: log.ErrorLevel},
		IndexPath: filepath.Join(dir, "benchmark_results.csv"),
	})
	require.NoError(t, err)

	out, err := b.Run(context.Background())
	require.NoError(t, err, "a failing run does not abort the batch")

	require.Len(t, out.Runs, 2)
	for _, row := range out.Runs {
		assert.False(t, row.Success, "sh -c with a missing script exits nonzero")
	}
}
