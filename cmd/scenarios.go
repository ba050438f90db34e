package cmd

import (
	"fmt"

	"conductor/internal/formatting"
	"conductor/internal/scenario"
)

// loadScenarios loads the scenario classes of every path, the default
// scenario directory when none is given.
func loadScenarios(paths []string) ([]*scenario.Class, error) {
	if len(paths) == 0 {
		paths = []string{DefaultScenarioPath}
	}
	var classes []*scenario.Class
	for _, path := range paths {
		loaded, err := scenario.LoadClasses(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load scenarios from %s: %w", path, err)
		}
		classes = append(classes, loaded...)
	}
	return classes, nil
}

// newFormatter creates the formatter selected by the global flags.
func newFormatter() (formatting.Formatter, error) {
	format, err := formatting.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return formatting.NewFormatter(formatting.Options{Format: format, Color: !noColor}), nil
}
