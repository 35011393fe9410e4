package command

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Python benchmarks a python script, optionally inside a virtualenv.
type Python struct {
	// Venv is the virtualenv root; empty means whichever python3 is on
	// PATH.
	Venv string
}

func (p Python) SoftwareConfig() (*SoftwareConfig, error) {
	if p.Venv != "" {
		py := filepath.Join(p.Venv, "bin", "python3")
		if runtime.GOOS == "windows" {
			py = filepath.Join(p.Venv, "Scripts", "python3.exe")
		}
		if !isFile(py) {
			return nil, fmt.Errorf("%w: %s", ErrExecutableNotFound, py)
		}
		return &SoftwareConfig{ExecPath: []string{py}}, nil
	}

	py, err := exec.LookPath("python3")
	if err != nil {
		return nil, fmt.Errorf("%w: python3", ErrExecutableNotFound)
	}
	cfg := &SoftwareConfig{ExecPath: []string{py}}
	if out, err := exec.Command(py, "--version").Output(); err == nil {
		cfg.Version = firstLine(string(out))
	}
	return cfg, nil
}

// ExecParams copies the script into the run directory and appends the
// parameter set as --KEY=VALUE flags.
func (Python) ExecParams(command string, params map[string]string, outDir string) ([]string, error) {
	if !isFile(command) {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotFound, command)
	}
	if err := copyFile(command, filepath.Join(outDir, filepath.Base(command))); err != nil {
		return nil, fmt.Errorf("command: copy script: %w", err)
	}
	return append([]string{command}, flagParams(params)...), nil
}
