package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"conductor/internal/config"
	"conductor/internal/scenario"
	"conductor/pkg/logging"
)

// Run executes the scenarios one after another and returns their results.
//
// Signal Handling:
//   - SIGINT (Ctrl+C) and SIGTERM cancel the running scenario, whose
//     services are still torn down
//
// The error reports how many scenarios failed.
func (a *Application) Run(ctx context.Context, classes []*scenario.Class) ([]scenario.Result, error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var results []scenario.Result
	failed := 0
	for _, class := range classes {
		if ctx.Err() != nil {
			logging.Warn("Run", "Interrupted, skipping scenario %s", class.Name)
			results = append(results, scenario.Result{Scenario: class.Name, Skipped: "interrupted", Passed: true})
			continue
		}

		logging.Info("Run", "--- Running scenario %s ---", class.Name)
		res := scenario.Execute(ctx, a.services.NewOrchestrator(), class)
		switch {
		case res.Skipped != "":
			logging.Info("Run", "Scenario %s skipped: %s", class.Name, res.Skipped)
		case res.Passed:
			logging.Info("Run", "Scenario %s passed in %s", class.Name, res.Duration)
		default:
			failed++
			logging.Error("Run", res.Err, "Scenario %s failed", class.Name)
		}
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("%d of %d scenarios failed", failed, len(classes))
	}
	return results, nil
}

// EnvironmentReport describes what this host offers to scenarios.
type EnvironmentReport struct {
	Target          config.Target
	Runtime         string
	RuntimeErr      error
	LinuxContainers bool

	// Skips maps scenarios that cannot run here to the reason.
	Skips map[string]string
}

// CheckEnvironment reports the target, the container runtime and which of
// the scenarios would be skipped.
func (a *Application) CheckEnvironment(ctx context.Context, classes []*scenario.Class) EnvironmentReport {
	report := EnvironmentReport{
		Target: a.services.Config.Target,
		Skips:  map[string]string{},
	}

	if runtime, err := a.services.ContainerRuntime(ctx); err != nil {
		report.RuntimeErr = err
	} else {
		report.Runtime = runtime.Name()
	}
	report.LinuxContainers = a.services.LinuxProbe.Supported()

	for _, class := range classes {
		if reason := a.services.NewOrchestrator().CheckEnvironment(class); reason != "" {
			report.Skips[class.Name] = reason
		}
	}
	return report
}
