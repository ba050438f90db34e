package app

import (
	"fmt"
	"io"
	"os"

	"conductor/internal/config"
	"conductor/pkg/logging"
)

// Application bootstraps conductor: configuration, logging and the
// bindings and extensions every scenario orchestrator shares.
//
// Example usage:
//
//	cfg := app.NewConfig(false, "")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	results, err := application.Run(ctx, classes)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Configures logging based on debug settings
//  2. Loads the conductor configuration unless cfg.Conductor is set
//  3. Re-applies the configured log level
//  4. Initializes the shared services
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stdout
	if cfg.Output != nil {
		logOutput = cfg.Output
	}
	if cfg.Silent {
		logOutput = io.Discard
	}
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, logOutput)

	if cfg.Conductor == nil {
		path := cfg.ConfigPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		conductorCfg, err := config.Load(path)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load conductor configuration from %s", path)
			return nil, fmt.Errorf("failed to load conductor configuration from %s: %w", path, err)
		}
		cfg.Conductor = &conductorCfg
	}
	if cfg.Debug {
		cfg.Conductor.Debug = true
		cfg.Conductor.LogLevel = "debug"
	}
	if configured := logging.ParseLevel(cfg.Conductor.LogLevel); configured != level {
		logging.InitForCLI(configured, logOutput)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Config returns the effective conductor configuration.
func (a *Application) Config() config.ConductorConfig {
	return *a.config.Conductor
}

// Services returns the shared services.
func (a *Application) Services() *Services {
	return a.services
}
