package bench

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	return NewIndex(filepath.Join(t.TempDir(), "benchmark_results.csv"))
}

func TestIndex_ListMissingFile(t *testing.T) {
	entries, err := testIndex(t).List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIndex_AppendAndGet(t *testing.T) {
	ix := testIndex(t)

	started := time.Date(2026, 8, 25, 10, 0, 0, 0, time.Local)
	require.NoError(t, ix.Append(indexEntryFor("buffer-test", started, started.Add(90*time.Second))))

	got, err := ix.Get("buffer-test")
	require.NoError(t, err)
	assert.Equal(t, "buffer-test", got.Name)
	assert.Equal(t, "2026-08-25 10:00:00", got.StartTimeHR)
	assert.Equal(t, "2026-08-25 10:01:30", got.EndTimeHR)
	assert.InDelta(t, 90.0, got.ExecutionTime, 1e-9)
	assert.InDelta(t, 90.0, got.EndTime-got.StartTime, 1e-6)
}

func TestIndex_AppendReplacesSameName(t *testing.T) {
	ix := testIndex(t)
	now := time.Now()

	require.NoError(t, ix.Append(indexEntryFor("a", now, now.Add(time.Second))))
	require.NoError(t, ix.Append(indexEntryFor("b", now, now.Add(time.Second))))
	require.NoError(t, ix.Append(indexEntryFor("a", now, now.Add(5*time.Second))))

	entries, err := ix.List()
	require.NoError(t, err)
	require.Len(t, entries, 2, "re-running a scenario replaces its row")

	got, err := ix.Get("a")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got.ExecutionTime, 1e-9)
}

func TestIndex_GetUnknownName(t *testing.T) {
	ix := testIndex(t)
	require.NoError(t, ix.Append(indexEntryFor("a", time.Now(), time.Now())))

	_, err := ix.Get("nope")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestIndex_Delete(t *testing.T) {
	ix := testIndex(t)
	now := time.Now()
	require.NoError(t, ix.Append(indexEntryFor("a", now, now)))
	require.NoError(t, ix.Append(indexEntryFor("b", now, now)))

	require.NoError(t, ix.Delete("a"))
	entries, err := ix.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Name)

	assert.ErrorIs(t, ix.Delete("a"), ErrResultNotFound)
}
