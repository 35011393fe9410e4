package monitor

import "errors"

var (
	// ErrProcessGone indicates the process exited between enumeration and
	// sampling. This is an expected race, not a failure: the caller marks
	// the entry finalized and moves on.
	ErrProcessGone = errors.New("monitor: process gone")

	// ErrRootNotFound indicates the root PID did not exist when monitoring
	// started. Fatal to the run.
	ErrRootNotFound = errors.New("monitor: root process not found")
)
