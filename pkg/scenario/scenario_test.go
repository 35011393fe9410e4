package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const validScenario = `
name: buffer-test
type: qgis-process
repeat: 3
command: native:buffer
inputs:
  INPUT: roads.gpkg
outputs:
  OUTPUT: buffered.gpkg
parameters:
  DISTANCE: [10, 100]
  SEGMENTS: 5
`

func TestLoad_Valid(t *testing.T) {
	s, err := Load(writeScenario(t, validScenario), Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "buffer-test", s.Name)
	assert.Equal(t, TypeQGISCLI, s.Type)
	assert.Equal(t, 3, s.Repeat)
	assert.Equal(t, "native:buffer", s.Command)
	assert.Equal(t, "results", s.TempDirectory, "temp-directory defaults")
	assert.True(t, filepath.IsAbs(s.Inputs["INPUT"]), "input paths are anchored")
	assert.Equal(t, "buffered.gpkg", s.Outputs["OUTPUT"], "bare output names stay relative to the run dir")
}

func TestLoad_Overrides(t *testing.T) {
	s, err := Load(writeScenario(t, validScenario), Overrides{Name: "cli-name", Repeat: 7})
	require.NoError(t, err)
	assert.Equal(t, "cli-name", s.Name)
	assert.Equal(t, 7, s.Repeat)
}

func TestLoad_MissingName(t *testing.T) {
	_, err := Load(writeScenario(t, "type: shell\ncommand: ./run.sh\n"), Overrides{})
	assert.ErrorIs(t, err, ErrMissingName)

	// A -n flag satisfies the requirement.
	s, err := Load(writeScenario(t, "type: shell\ncommand: ./run.sh\n"), Overrides{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", s.Name)
}

func TestLoad_UnsupportedType(t *testing.T) {
	_, err := Load(writeScenario(t, "name: x\ntype: fortran\ncommand: a.out\n"), Overrides{})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLoad_MissingCommand(t *testing.T) {
	_, err := Load(writeScenario(t, "name: x\ntype: shell\n"), Overrides{})
	assert.ErrorIs(t, err, ErrMissingCommand)
}

func TestLoad_RepeatDefaultsToOne(t *testing.T) {
	s, err := Load(writeScenario(t, "name: x\ntype: shell\ncommand: ./run.sh\n"), Overrides{})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Repeat)
}

func TestScenario_Combinations_MergesInputsAndOutputs(t *testing.T) {
	s, err := Load(writeScenario(t, validScenario), Overrides{})
	require.NoError(t, err)

	sets, err := s.Combinations()
	require.NoError(t, err)
	require.Len(t, sets, 2, "DISTANCE is the only multi-valued axis")
	for _, set := range sets {
		assert.Equal(t, s.Inputs["INPUT"], set["INPUT"])
		assert.Equal(t, "buffered.gpkg", set["OUTPUT"])
		assert.Equal(t, "5", set["SEGMENTS"])
	}
}

func TestScenario_CommandSpec(t *testing.T) {
	s := &Scenario{Command: "native:buffer"}
	assert.Equal(t, "native:buffer", s.CommandSpec())

	s = &Scenario{CommandFile: "run.sh"}
	assert.Equal(t, "run.sh", s.CommandSpec())
}
