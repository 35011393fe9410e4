// Package types holds small value types shared across the monitor, the
// benchmark recorder and the report.
package types

import "fmt"

// Bytes is a memory or disk size in bytes. It marshals as a plain number so
// result artifacts stay machine-readable; human-facing output goes through
// Humanized.
type Bytes uint64

const (
	kib = 1 << 10
	mib = 1 << 20
	gib = 1 << 30
	tib = 1 << 40
)

// Humanized renders the size with an automatic binary unit, two decimals
// above the byte range.
func (b Bytes) Humanized() string {
	v := float64(b)
	switch {
	case b >= tib:
		return fmt.Sprintf("%.2f TB", v/tib)
	case b >= gib:
		return fmt.Sprintf("%.2f GB", v/gib)
	case b >= mib:
		return fmt.Sprintf("%.2f MB", v/mib)
	case b >= kib:
		return fmt.Sprintf("%.2f KB", v/kib)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// String is Humanized, so templates and %v formatting print readable sizes.
func (b Bytes) String() string { return b.Humanized() }

// KB returns the size in kibibytes.
func (b Bytes) KB() float64 { return float64(b) / kib }

// MB returns the size in mebibytes.
func (b Bytes) MB() float64 { return float64(b) / mib }

// GB returns the size in gibibytes.
func (b Bytes) GB() float64 { return float64(b) / gib }
