package command

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/shlex"
)

// Shell benchmarks a shell script or a raw command line.
type Shell struct{}

func (Shell) SoftwareConfig() (*SoftwareConfig, error) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		return nil, fmt.Errorf("%w: sh", ErrExecutableNotFound)
	}
	return &SoftwareConfig{ExecPath: []string{sh}}, nil
}

// ExecParams treats an existing file as a script: it is copied into the run
// directory (so the artifact records exactly what ran) and invoked with
// --KEY=VALUE flags. Anything else runs as a raw command line behind -c,
// validated with shell-style quoting rules first, parameters appended the
// same way.
func (Shell) ExecParams(command string, params map[string]string, outDir string) ([]string, error) {
	if isFile(command) {
		if err := copyFile(command, filepath.Join(outDir, filepath.Base(command))); err != nil {
			return nil, fmt.Errorf("command: copy script: %w", err)
		}
		return append([]string{command}, flagParams(params)...), nil
	}

	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("command: split %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrScriptNotFound)
	}
	line := command
	for _, flag := range flagParams(params) {
		line += " " + flag
	}
	return []string{"-c", line}, nil
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, st.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
