// Package scenario loads benchmark scenario files and expands their
// parameter space into concrete run sets.
//
// A scenario file is YAML:
//
//	name: buffer-test
//	type: qgis-process
//	repeat: 3
//	command: native:buffer
//	temp-directory: results
//	inputs:
//	  INPUT: data/roads.gpkg
//	outputs:
//	  OUTPUT: buffered.gpkg
//	parameters:
//	  DISTANCE: [10, 100, "1000:3000:1000"]
//	  SEGMENTS: 5
//
// List-valued parameters multiply into a cartesian product of sets; string
// values of the form start:end[:step] expand to integer ranges first.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Types accepted by the command builders.
const (
	TypeShell      = "shell"
	TypePython     = "python"
	TypeQGISCLI    = "qgis-process"
	TypeQGISPython = "qgis-python"
)

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	Name   string
	Repeat int
}

// Scenario is one benchmark definition: what to run, how often, and over
// which parameter space.
type Scenario struct {
	Name          string            `yaml:"name"`
	Repeat        int               `yaml:"repeat"`
	Type          string            `yaml:"type"`
	Command       string            `yaml:"command"`
	CommandFile   string            `yaml:"command-file"`
	Inputs        map[string]string `yaml:"inputs"`
	Outputs       map[string]string `yaml:"outputs"`
	TempDirectory string            `yaml:"temp-directory"`
	Parameters    map[string]any    `yaml:"parameters"`
	Venv          string            `yaml:"venv"`
}

// Load parses and validates a scenario file. Input and output paths are
// normalized to absolute paths so runs can chdir freely.
func Load(path string, ov Overrides) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}

	if ov.Name != "" {
		s.Name = ov.Name
	}
	if ov.Repeat > 0 {
		s.Repeat = ov.Repeat
	}
	if s.Repeat <= 0 {
		s.Repeat = 1
	}
	if s.TempDirectory == "" {
		s.TempDirectory = "results"
	}

	if err := s.validate(); err != nil {
		return nil, err
	}

	for k, v := range s.Inputs {
		if abs, err := filepath.Abs(v); err == nil {
			s.Inputs[k] = abs
		}
	}
	// Output values are file names resolved per run directory later; only
	// anchor them when they already carry a directory component.
	for k, v := range s.Outputs {
		if dir := filepath.Dir(v); dir != "." {
			if abs, err := filepath.Abs(v); err == nil {
				s.Outputs[k] = abs
			}
		}
	}

	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return ErrMissingName
	}
	switch s.Type {
	case TypeShell, TypePython, TypeQGISCLI, TypeQGISPython:
	default:
		return fmt.Errorf("%w: %q (use %s, %s, %s, %s)",
			ErrUnsupportedType, s.Type, TypeShell, TypePython, TypeQGISCLI, TypeQGISPython)
	}
	if s.Command == "" && s.CommandFile == "" {
		return ErrMissingCommand
	}
	return nil
}

// CommandSpec returns the command string the builder should construct argv
// around: the inline command if present, the command file otherwise.
func (s *Scenario) CommandSpec() string {
	if s.Command != "" {
		return s.Command
	}
	return s.CommandFile
}

// Combinations expands the parameter space (parameters merged with inputs
// and outputs) into the cartesian product of all list values: one
// string-valued map per concrete set, in a deterministic order.
func (s *Scenario) Combinations() ([]map[string]string, error) {
	merged := make(map[string]any, len(s.Parameters)+len(s.Inputs)+len(s.Outputs))
	for k, v := range s.Parameters {
		merged[k] = v
	}
	for k, v := range s.Inputs {
		merged[k] = v
	}
	for k, v := range s.Outputs {
		merged[k] = v
	}
	return combinations(merged)
}
