package command

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"text/template"
)

// QGISProcess benchmarks a processing algorithm through the qgis_process
// command-line engine.
type QGISProcess struct{}

// qgisDir resolves the QGIS installation directory: the QGIS_PATH
// environment variable wins, otherwise the conventional per-OS location.
func qgisDir() string {
	if p := os.Getenv("QGIS_PATH"); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\QGIS`
	case "darwin":
		return "/Applications/QGIS.app/Contents/MacOS"
	default:
		return "/usr/bin"
	}
}

// findPrefixed returns the first file in dir whose name starts with prefix.
// On Windows only executable extensions count.
func findPrefixed(dir, prefix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if runtime.GOOS == "windows" {
			switch strings.ToLower(filepath.Ext(name)) {
			case ".exe", ".bat", ".cmd", ".com", ".ps1":
			default:
				continue
			}
		}
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("%w: %s* under %s", ErrExecutableNotFound, prefix, dir)
}

func qgisBinDir(base string) string {
	switch runtime.GOOS {
	case "windows", "darwin":
		return filepath.Join(base, "bin")
	default:
		return base
	}
}

func (QGISProcess) SoftwareConfig() (*SoftwareConfig, error) {
	path, err := findPrefixed(qgisBinDir(qgisDir()), "qgis_process")
	if err != nil {
		return nil, err
	}

	cfg := &SoftwareConfig{ExecPath: []string{path}}
	out, err := exec.Command(path, "--version").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("command: qgis_process --version: %w", err)
	}
	cfg.Version = firstLine(string(out))
	cfg.Plugins = parsePluginLines(string(out))
	return cfg, nil
}

// parsePluginLines keeps the informational lines of the version probe,
// dropping plugin-load warnings ("Cannot load ...").
func parsePluginLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "Cannot") {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ExecParams encodes a processing run: qgis_process run <algorithm>
// --KEY=VALUE ...
func (QGISProcess) ExecParams(command string, params map[string]string, _ string) ([]string, error) {
	return append([]string{"run", command}, flagParams(params)...), nil
}

// QGISPython benchmarks a processing algorithm through the QGIS-bundled
// python interpreter, driving it with a generated script.
type QGISPython struct{}

func (QGISPython) SoftwareConfig() (*SoftwareConfig, error) {
	base := qgisDir()
	dir := qgisBinDir(base)
	if runtime.GOOS == "windows" {
		// Windows bundles python under apps/Python*.
		apps, err := findPrefixed(filepath.Join(base, "apps"), "Python")
		if err != nil {
			return nil, err
		}
		dir = apps
	}
	path, err := findPrefixed(dir, "python3")
	if err != nil {
		return nil, err
	}
	return &SoftwareConfig{ExecPath: []string{path}}, nil
}

var driverTpl = template.Must(template.New("driver").Parse(`import sys

from qgis.core import QgsApplication

qgs = QgsApplication([], False)
qgs.initQgis()

sys.path.append(QgsApplication.prefixPath() + "/python/plugins")
import processing
from processing.core.Processing import Processing

Processing.initialize()
result = processing.run("{{.Algorithm}}", {{.Params}})
print(result)

qgs.exitQgis()
`))

// ExecParams renders the driver script into the run directory and returns
// it as the single interpreter argument.
func (QGISPython) ExecParams(command string, params map[string]string, outDir string) ([]string, error) {
	path := filepath.Join(outDir, "program.py")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("command: write driver script: %w", err)
	}
	defer f.Close()

	data := struct {
		Algorithm string
		Params    string
	}{Algorithm: command, Params: pyDict(params)}
	if err := driverTpl.Execute(f, data); err != nil {
		return nil, fmt.Errorf("command: render driver script: %w", err)
	}
	return []string{path}, nil
}

// pyDict renders a parameter set as a python dict literal, keys sorted.
func pyDict(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		// %q escaping (backslashes, quotes) is valid python string syntax.
		fmt.Fprintf(&b, "%q: %q", k, params[k])
	}
	b.WriteByte('}')
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
