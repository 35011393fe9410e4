package bench

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// IndexFile is the default cross-benchmark result index, one row per
// completed scenario.
const IndexFile = "benchmark_results.csv"

var (
	// ErrResultNotFound indicates the index has no row for the requested
	// scenario name.
	ErrResultNotFound = errors.New("bench: result not found")
)

var indexHeader = []string{
	"test_name", "start_time", "end_time", "start_time_hr", "end_time_hr", "execution_time",
}

// IndexEntry is one completed benchmark in the result index. Times are unix
// epoch seconds plus a human-readable rendering, execution time is seconds.
type IndexEntry struct {
	Name          string
	StartTime     float64
	EndTime       float64
	StartTimeHR   string
	EndTimeHR     string
	ExecutionTime float64
}

func indexEntryFor(name string, started, ended time.Time) IndexEntry {
	const layout = "2006-01-02 15:04:05"
	return IndexEntry{
		Name:          name,
		StartTime:     float64(started.UnixNano()) / float64(time.Second),
		EndTime:       float64(ended.UnixNano()) / float64(time.Second),
		StartTimeHR:   started.Format(layout),
		EndTimeHR:     ended.Format(layout),
		ExecutionTime: ended.Sub(started).Seconds(),
	}
}

// Index reads and writes the CSV result index. Appending a scenario that is
// already indexed replaces its row, so the index holds the latest run per
// name.
type Index struct {
	path string
}

func NewIndex(path string) *Index {
	if path == "" {
		path = IndexFile
	}
	return &Index{path: path}
}

// List returns every indexed benchmark in file order. A missing index file
// is an empty list, not an error.
func (ix *Index) List() ([]IndexEntry, error) {
	f, err := os.Open(ix.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("bench: open index %s: %w", ix.path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("bench: parse index %s: %w", ix.path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([]IndexEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(indexHeader) {
			continue
		}
		e := IndexEntry{Name: row[0], StartTimeHR: row[3], EndTimeHR: row[4]}
		e.StartTime, _ = strconv.ParseFloat(row[1], 64)
		e.EndTime, _ = strconv.ParseFloat(row[2], 64)
		e.ExecutionTime, _ = strconv.ParseFloat(row[5], 64)
		out = append(out, e)
	}
	return out, nil
}

// Get returns the indexed entry for name.
func (ix *Index) Get(name string) (*IndexEntry, error) {
	entries, err := ix.List()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrResultNotFound, name)
}

// Append records a completed benchmark, replacing any previous row with the
// same name.
func (ix *Index) Append(e IndexEntry) error {
	entries, err := ix.List()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, old := range entries {
		if old.Name != e.Name {
			kept = append(kept, old)
		}
	}
	return ix.write(append(kept, e))
}

// Delete removes the row for name. Deleting an unknown name returns
// ErrResultNotFound.
func (ix *Index) Delete(name string) error {
	entries, err := ix.List()
	if err != nil {
		return err
	}

	kept := entries[:0]
	found := false
	for _, e := range entries {
		if e.Name == name {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrResultNotFound, name)
	}
	return ix.write(kept)
}

func (ix *Index) write(entries []IndexEntry) error {
	f, err := os.Create(ix.path)
	if err != nil {
		return fmt.Errorf("bench: write index %s: %w", ix.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(indexHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Name,
			strconv.FormatFloat(e.StartTime, 'f', -1, 64),
			strconv.FormatFloat(e.EndTime, 'f', -1, 64),
			e.StartTimeHR,
			e.EndTimeHR,
			strconv.FormatFloat(e.ExecutionTime, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
