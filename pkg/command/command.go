// Package command maps a scenario type to the argument vector that runs it.
//
// Each scenario type has a Builder that locates the executable (shell,
// python3, qgis_process, the QGIS-bundled python) and encodes the scenario
// command plus one concrete parameter set into argv. The monitor neither
// knows nor cares how the vector was produced.
package command

import (
	"errors"
	"fmt"
	"sort"

	"github.com/geobench/geobench/pkg/scenario"
)

var (
	// ErrExecutableNotFound indicates the interpreter or engine binary for
	// the scenario type is not installed where expected. Fatal to the run.
	ErrExecutableNotFound = errors.New("command: executable not found")

	// ErrScriptNotFound indicates the scenario's command file is missing.
	ErrScriptNotFound = errors.New("command: script not found")

	// ErrUnsupportedType indicates the factory has no builder for the type.
	ErrUnsupportedType = errors.New("command: unsupported scenario type")
)

// SoftwareConfig describes the resolved software under benchmark.
type SoftwareConfig struct {
	ExecPath []string `json:"exec_path"`
	Version  string   `json:"version,omitempty"`
	Plugins  []string `json:"plugins,omitempty"`
}

// Builder resolves the software for a scenario type and encodes parameter
// sets into argument vectors.
type Builder interface {
	// SoftwareConfig locates the executable once per scenario and probes
	// its version where the engine supports it.
	SoftwareConfig() (*SoftwareConfig, error)

	// ExecParams encodes the scenario command and one concrete parameter
	// set into the arguments appended after SoftwareConfig().ExecPath.
	// outDir is this run's artifact directory; builders that generate
	// driver scripts write them there.
	ExecParams(command string, params map[string]string, outDir string) ([]string, error)
}

// ForScenario returns the Builder for the scenario's type.
func ForScenario(s *scenario.Scenario) (Builder, error) {
	switch s.Type {
	case scenario.TypeShell:
		return &Shell{}, nil
	case scenario.TypePython:
		return &Python{Venv: s.Venv}, nil
	case scenario.TypeQGISCLI:
		return &QGISProcess{}, nil
	case scenario.TypeQGISPython:
		return &QGISPython{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, s.Type)
	}
}

// flagParams encodes a parameter set as --KEY=VALUE flags in sorted key
// order, so repeated runs produce identical command lines.
func flagParams(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("--%s=%s", k, params[k]))
	}
	return out
}
