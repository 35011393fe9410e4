//go:build !windows

package monitor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMonitor() *Monitor {
	return New(Config{
		Interval: 50 * time.Millisecond,
		Logger:   log.Logger{Level: log.ErrorLevel},
	})
}

// startCmd launches a command and reaps it in the background, the way the
// orchestrator's cmd.Wait does. Without the reap the exited root would
// linger as a zombie for the duration of the test.
func startCmd(t *testing.T, name string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(name, args...)
	require.NoError(t, cmd.Start())
	go func() { _ = cmd.Wait() }()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
	})
	return cmd
}

func TestRun_RootNotFound(t *testing.T) {
	m := testMonitor()
	_, err := m.Run(context.Background(), 1<<30)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))
}

func TestRun_ShortLivedRootNoChildren(t *testing.T) {
	cmd := startCmd(t, "sleep", "0.3")

	m := testMonitor()
	res, err := m.Run(context.Background(), int32(cmd.Process.Pid))
	require.NoError(t, err)

	require.Len(t, res.Processes, 1, "a leaf root yields exactly one entry")
	root := res.Processes[int32(cmd.Process.Pid)]
	require.NotNil(t, root)
	assert.Equal(t, "sleep", root.Meta.Name)
	assert.GreaterOrEqual(t, root.AvgCPUPercent, 0.0)
	assert.Greater(t, len(root.Samples), 1)
	assert.Equal(t, sampleSpan(root.Samples), root.RunningTime)

	assert.Equal(t, int32(cmd.Process.Pid), res.RootPID)
	assert.True(t, res.Success, "monitor defaults success; the orchestrator owns the exit code")
	assert.False(t, res.StartedAt.IsZero())
	assert.True(t, !res.EndedAt.Before(res.StartedAt))
	assert.NotEmpty(t, res.SystemLog, "system sampling runs for the lifetime of the root")
}

func TestRun_ChildHalfOfRootLifetime(t *testing.T) {
	// Root shell lives ~1s; the background child lives ~half that. Both
	// must end up in the result, finalized, with the child's running time
	// below the root's.
	cmd := startCmd(t, "sh", "-c", "sleep 0.5 & sleep 1.0; wait")
	rootPID := int32(cmd.Process.Pid)

	m := testMonitor()
	res, err := m.Run(context.Background(), rootPID)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(res.Processes), 2, "the spawned child must be discovered")
	root := res.Processes[rootPID]
	require.NotNil(t, root)

	for pid, pm := range res.Processes {
		if pid == rootPID {
			continue
		}
		assert.LessOrEqual(t, pm.RunningTime, root.RunningTime,
			"no child outlives the root's observed span (pid %d)", pid)
	}
	assert.Greater(t, root.RunningTime, time.Duration(0))
}

func TestRun_LateSpawnedChildIsDiscovered(t *testing.T) {
	// The second sleep only exists from ~t+250ms; per-tick re-discovery
	// must pick it up within about one interval.
	cmd := startCmd(t, "sh", "-c", "sleep 0.25; sleep 0.5; true")

	m := testMonitor()
	res, err := m.Run(context.Background(), int32(cmd.Process.Pid))
	require.NoError(t, err)

	// Shell plus both sequential children.
	assert.GreaterOrEqual(t, len(res.Processes), 3)
}

func TestRun_ContextCancelDrains(t *testing.T) {
	cmd := startCmd(t, "sleep", "10")

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	m := testMonitor()
	start := time.Now()
	res, err := m.Run(ctx, int32(cmd.Process.Pid))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "cancel must not wait for the root to exit")

	require.Len(t, res.Processes, 1)
	// Entry was force-finalized by the drain even though the process lives.
	require.NotNil(t, res.Processes[int32(cmd.Process.Pid)])
}
