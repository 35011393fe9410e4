// Package report turns a benchmark's output record into cross-run summary
// statistics and a self-contained HTML report.
package report

import (
	"bytes"
	"html/template"
	"io"
	"sort"

	"github.com/gonum/stat"

	"github.com/geobench/geobench/pkg/bench"
)

// SetSummary aggregates the runs of one parameter set: how many succeeded
// and the spread of the headline numbers.
type SetSummary struct {
	Set       int
	Runs      int
	Successes int

	MeanExecTime   float64
	StdDevExecTime float64

	MeanSystemCPU   float64
	StdDevSystemCPU float64
}

// Summarize groups run rows by parameter set and computes per-set mean and
// standard deviation of execution time and system CPU. Sets with fewer than
// two runs report zero deviation.
func Summarize(runs []bench.RunSummary) []SetSummary {
	bySet := make(map[int][]bench.RunSummary)
	for _, r := range runs {
		bySet[r.Set] = append(bySet[r.Set], r)
	}

	sets := make([]int, 0, len(bySet))
	for set := range bySet {
		sets = append(sets, set)
	}
	sort.Ints(sets)

	out := make([]SetSummary, 0, len(sets))
	for _, set := range sets {
		rows := bySet[set]
		execTimes := make([]float64, 0, len(rows))
		sysCPUs := make([]float64, 0, len(rows))

		s := SetSummary{Set: set, Runs: len(rows)}
		for _, r := range rows {
			if r.Success {
				s.Successes++
			}
			execTimes = append(execTimes, r.ExecTime)
			sysCPUs = append(sysCPUs, r.SystemAvgCPU)
		}

		s.MeanExecTime = stat.Mean(execTimes, nil)
		s.MeanSystemCPU = stat.Mean(sysCPUs, nil)
		if len(rows) > 1 {
			s.StdDevExecTime = stat.StdDev(execTimes, nil)
			s.StdDevSystemCPU = stat.StdDev(sysCPUs, nil)
		}
		out = append(out, s)
	}
	return out
}

// Render writes the HTML report for one benchmark output.
func Render(w io.Writer, out *bench.Output) error {
	type view struct {
		*bench.Output
		Sets []SetSummary
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, view{Output: out, Sets: Summarize(out.Runs)}); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>Benchmark Report - {{.Name}}</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
.ok{color:#170}
.fail{color:#a11}
</style>

<h1>Benchmark Report: {{.Name}}</h1>

{{with .Software}}
<p class="small">
Software: {{range .ExecPath}}<code>{{.}}</code> {{end}}
{{if .Version}}&nbsp;|&nbsp; {{.Version}}{{end}}
</p>
{{end}}

{{with .System}}
<h2>System</h2>
<ul>
<li>OS: {{.OS.System}} {{.OS.Release}} ({{.OS.Machine}}) on {{.OS.Node}}</li>
<li>CPU: {{.CPU.Model}} ({{.CPU.PhysicalCores}} physical / {{.CPU.TotalCores}} logical cores)</li>
<li>Memory: {{.Memory.Total.Humanized}} total, {{.Memory.Available.Humanized}} available</li>
</ul>
{{end}}

{{with .Baseline}}
<p class="small">
Idle baseline over {{.Ticks}} ticks:
CPU {{printf "%.2f" .AvgCPU}}% &nbsp;|&nbsp;
memory {{printf "%.2f" .AvgMem.UsedPercent}}% used
</p>
{{end}}

<h2>Per-set summary</h2>
<table>
<thead>
<tr>
<th>set</th><th>runs</th><th>ok</th>
<th>exec mean (s)</th><th>exec stddev (s)</th>
<th>sys CPU mean (%)</th><th>sys CPU stddev (%)</th>
</tr>
</thead>
<tbody>
{{range .Sets}}
<tr>
<td>set_{{.Set}}</td>
<td>{{.Runs}}</td>
<td>{{.Successes}}</td>
<td>{{printf "%.3f" .MeanExecTime}}</td>
<td>{{printf "%.3f" .StdDevExecTime}}</td>
<td>{{printf "%.2f" .MeanSystemCPU}}</td>
<td>{{printf "%.2f" .StdDevSystemCPU}}</td>
</tr>
{{end}}
</tbody>
</table>

<h2>Runs</h2>
<table>
<thead>
<tr>
<th>set</th><th>run</th><th>status</th>
<th>start</th><th>exec (s)</th>
<th>sys CPU (%)</th><th>sys mem used</th><th>detail</th>
</tr>
</thead>
<tbody>
{{range .Runs}}
<tr>
<td>set_{{.Set}}</td>
<td>run_{{.Repeat}}</td>
<td>{{if .Success}}<span class="ok">ok</span>{{else}}<span class="fail">failed</span>{{end}}</td>
<td style="text-align:left">{{.StartedAt.Format "2006-01-02 15:04:05"}}</td>
<td>{{printf "%.3f" .ExecTime}}</td>
<td>{{printf "%.2f" .SystemAvgCPU}}</td>
<td>{{.SystemAvgMem.Used.Humanized}}</td>
<td style="text-align:left">{{.Detailed}}</td>
</tr>
{{end}}
</tbody>
</table>
</html>`))
