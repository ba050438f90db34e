package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"conductor/internal/app"
	"conductor/internal/scenario"
	pkgstrings "conductor/pkg/strings"
)

// TableFormatter renders rounded tables.
type TableFormatter struct {
	options Options
}

func (f *TableFormatter) createTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func (f *TableFormatter) colorize(color text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return color.Sprint(s)
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, len(names))
	for i, n := range names {
		row[i] = f.colorize(text.FgHiCyan, n)
	}
	return row
}

func (f *TableFormatter) status(status string) string {
	switch status {
	case "passed":
		return f.colorize(text.FgGreen, status)
	case "failed":
		return f.colorize(text.FgRed, status)
	default:
		return f.colorize(text.FgYellow, status)
	}
}

// FormatResults writes one row per scenario and a summary.
func (f *TableFormatter) FormatResults(w io.Writer, results []scenario.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, f.colorize(text.FgYellow, "No scenarios found"))
		return err
	}

	t := f.createTable(w)
	t.AppendHeader(f.header("SCENARIO", "STATUS", "DURATION", "SERVICES", "DETAILS"))
	counts := map[string]int{}
	for _, v := range NewResultViews(results) {
		counts[v.Status]++
		var services []string
		for _, s := range v.Services {
			services = append(services, fmt.Sprintf("%s (%s)", s.Name, s.State))
		}
		t.AppendRow(table.Row{v.Scenario, f.status(v.Status), v.Duration, strings.Join(services, "\n"), pkgstrings.TruncateDescription(v.Reason, pkgstrings.DefaultDescriptionMaxLen)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d passed, %d failed, %d skipped", counts["passed"], counts["failed"], counts["skipped"])})
	t.Render()
	return nil
}

// FormatEnvironment writes the report as key/value rows.
func (f *TableFormatter) FormatEnvironment(w io.Writer, report app.EnvironmentReport) error {
	v := NewEnvironmentView(report)
	t := f.createTable(w)
	t.AppendHeader(f.header("CHECK", "RESULT"))
	t.AppendRow(table.Row{"target", v.Target})
	runtime := v.Runtime
	if v.RuntimeError != "" {
		runtime = f.colorize(text.FgRed, pkgstrings.TruncateDescription(v.RuntimeError, pkgstrings.DefaultDescriptionMaxLen))
	}
	t.AppendRow(table.Row{"container runtime", runtime})
	t.AppendRow(table.Row{"linux containers", yesNo(v.LinuxContainers)})
	for _, name := range sortedKeys(v.Skips) {
		t.AppendRow(table.Row{"skips " + name, pkgstrings.TruncateDescription(v.Skips[name], pkgstrings.DefaultDescriptionMaxLen)})
	}
	t.Render()
	return nil
}

// ConsoleFormatter writes plain lines.
type ConsoleFormatter struct{}

// FormatResults writes one line per scenario.
func (f *ConsoleFormatter) FormatResults(w io.Writer, results []scenario.Result) error {
	for _, v := range NewResultViews(results) {
		line := fmt.Sprintf("%s %s %s", strings.ToUpper(v.Status), v.Scenario, v.Duration)
		if v.Reason != "" {
			line += ": " + v.Reason
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// FormatEnvironment writes one line per check.
func (f *ConsoleFormatter) FormatEnvironment(w io.Writer, report app.EnvironmentReport) error {
	v := NewEnvironmentView(report)
	runtime := v.Runtime
	if v.RuntimeError != "" {
		runtime = "unavailable (" + v.RuntimeError + ")"
	}
	lines := []string{
		"target: " + v.Target,
		"container runtime: " + runtime,
		"linux containers: " + yesNo(v.LinuxContainers),
	}
	for _, name := range sortedKeys(v.Skips) {
		lines = append(lines, fmt.Sprintf("skips %s: %s", name, v.Skips[name]))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

// FormatResults writes the result views.
func (f *JSONFormatter) FormatResults(w io.Writer, results []scenario.Result) error {
	return encodeJSON(w, NewResultViews(results))
}

// FormatEnvironment writes the environment view.
func (f *JSONFormatter) FormatEnvironment(w io.Writer, report app.EnvironmentReport) error {
	return encodeJSON(w, NewEnvironmentView(report))
}

// YAMLFormatter writes YAML documents.
type YAMLFormatter struct{}

// FormatResults writes the result views.
func (f *YAMLFormatter) FormatResults(w io.Writer, results []scenario.Result) error {
	return encodeYAML(w, NewResultViews(results))
}

// FormatEnvironment writes the environment view.
func (f *YAMLFormatter) FormatEnvironment(w io.Writer, report app.EnvironmentReport) error {
	return encodeYAML(w, NewEnvironmentView(report))
}

// encodeJSON writes a report as JSON indented by two spaces, one document
// per call.
func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func encodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
