package bench

import (
	"context"
	"testing"
	"time"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDuration(t *testing.T) {
	t.Setenv("GB_RECORD_DURATION", "")
	assert.Equal(t, DefaultRecordDuration, RecordDuration())

	t.Setenv("GB_RECORD_DURATION", "2.5")
	assert.Equal(t, 2500*time.Millisecond, RecordDuration())

	t.Setenv("GB_RECORD_DURATION", "not-a-number")
	assert.Equal(t, DefaultRecordDuration, RecordDuration())

	t.Setenv("GB_RECORD_DURATION", "-3")
	assert.Equal(t, DefaultRecordDuration, RecordDuration())
}

func TestRecordSystemInfo(t *testing.T) {
	info := RecordSystemInfo()
	require.NotNil(t, info)

	assert.Greater(t, info.CPU.TotalCores, 0)
	assert.NotZero(t, info.Memory.Total)
	assert.NotEmpty(t, info.OS.System)
}

func TestRecordBaseline(t *testing.T) {
	logger := log.Logger{Level: log.ErrorLevel}

	b := RecordBaseline(context.Background(), 300*time.Millisecond, 50*time.Millisecond, logger)
	assert.GreaterOrEqual(t, b.Ticks, 2)
	assert.NotZero(t, b.AvgMem.Total)
}

func TestRecordBaseline_CancelCutsShort(t *testing.T) {
	logger := log.Logger{Level: log.ErrorLevel}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	RecordBaseline(ctx, time.Minute, 50*time.Millisecond, logger)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRecordProcessList(t *testing.T) {
	list := RecordProcessList()
	require.NotEmpty(t, list, "at least this test process exists")

	for i := 1; i < len(list); i++ {
		assert.GreaterOrEqual(t, list[i-1].MemoryPercent, list[i].MemoryPercent,
			"listing is sorted by memory share descending")
	}
}
