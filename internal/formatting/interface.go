// Package formatting renders scenario results and environment reports for
// the command line, as a table, plain console lines, JSON or YAML.
package formatting

import (
	"fmt"
	"io"
	"time"

	"conductor/internal/app"
	"conductor/internal/scenario"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Simple console output
	FormatJSON    OutputFormat = "json"    // JSON output
	FormatYAML    OutputFormat = "yaml"    // YAML output
	FormatTable   OutputFormat = "table"   // Rich table output
)

// ParseFormat validates a format name.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q, use one of: table, console, json, yaml", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// Formatter writes reports in one output format.
type Formatter interface {
	FormatResults(w io.Writer, results []scenario.Result) error
	FormatEnvironment(w io.Writer, report app.EnvironmentReport) error
}

// NewFormatter creates the formatter of options.Format, the table by
// default.
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatConsole:
		return &ConsoleFormatter{}
	default:
		return &TableFormatter{options: options}
	}
}

// ResultView is the serializable form of a scenario result.
type ResultView struct {
	Scenario string        `json:"scenario" yaml:"scenario"`
	ID       string        `json:"id,omitempty" yaml:"id,omitempty"`
	Status   string        `json:"status" yaml:"status"`
	Reason   string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Duration string        `json:"duration" yaml:"duration"`
	Services []ServiceView `json:"services,omitempty" yaml:"services,omitempty"`
}

// ServiceView is the serializable form of a service result.
type ServiceView struct {
	Name    string `json:"name" yaml:"name"`
	Display string `json:"display" yaml:"display"`
	State   string `json:"state" yaml:"state"`
}

// EnvironmentView is the serializable form of an environment report.
type EnvironmentView struct {
	Target          string            `json:"target" yaml:"target"`
	Runtime         string            `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	RuntimeError    string            `json:"runtimeError,omitempty" yaml:"runtimeError,omitempty"`
	LinuxContainers bool              `json:"linuxContainers" yaml:"linuxContainers"`
	Skips           map[string]string `json:"skips,omitempty" yaml:"skips,omitempty"`
}

// Status names the outcome of a result.
func Status(r scenario.Result) string {
	switch {
	case r.Skipped != "":
		return "skipped"
	case r.Passed:
		return "passed"
	default:
		return "failed"
	}
}

// NewResultViews converts results.
func NewResultViews(results []scenario.Result) []ResultView {
	views := make([]ResultView, 0, len(results))
	for _, r := range results {
		v := ResultView{
			Scenario: r.Scenario,
			ID:       r.ID,
			Status:   Status(r),
			Reason:   r.Skipped,
			Duration: r.Duration.Round(time.Millisecond).String(),
		}
		if r.Err != nil {
			v.Reason = r.Err.Error()
		}
		for _, s := range r.Services {
			v.Services = append(v.Services, ServiceView{Name: s.Name, Display: s.Display, State: string(s.State)})
		}
		views = append(views, v)
	}
	return views
}

// NewEnvironmentView converts a report.
func NewEnvironmentView(report app.EnvironmentReport) EnvironmentView {
	v := EnvironmentView{
		Target:          string(report.Target),
		Runtime:         report.Runtime,
		LinuxContainers: report.LinuxContainers,
		Skips:           report.Skips,
	}
	if report.RuntimeErr != nil {
		v.RuntimeError = report.RuntimeErr.Error()
	}
	return v
}
