// Package logging provides the structured logging used throughout conductor.
//
// The package is built on Go's standard slog package and exposes a small,
// subsystem-oriented API:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Orchestrator", "Launching service %s", name)
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("LogWatcher", "fsnotify not available, falling back to polling")
//	logging.Error("Service", err, "Failed to stop %s", name)
//
// # Subsystems
//
// Every entry carries a subsystem attribute. Core components use fixed names
// (Orchestrator, Service, ArtifactBuilder, Containerizer, Kubernetes, ...),
// while log lines captured from a running backend use the service name as
// subsystem so the scenario log shows which service printed what.
//
// # Scenario Log Files
//
// AttachFile tees every entry, at every level, into a file. The scenario
// orchestrator attaches one file per test class and detaches it on teardown:
//
//	detach, err := logging.AttachFile("target/logs/GreetingIT.log")
//	if err != nil {
//	    return err
//	}
//	defer detach()
//
// # Controller-Runtime Integration
//
// InitForCLI also installs the controller-runtime logger through a logr bridge,
// so the Kubernetes backend logs through the same handler.
//
// # Thread Safety
//
// All functions are safe for concurrent use. Log watchers of running services
// write from background goroutines while the orchestrator logs from the test
// goroutine.
package logging
