package app

import (
	"io"

	"conductor/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging and debug scenario contexts
	Debug bool

	// Silent discards console logging
	Silent bool

	// Custom configuration file (optional)
	// When empty, conductor.yaml in the working directory is used
	ConfigPath string

	// Output receives console logging, os.Stdout when nil
	Output io.Writer

	// Conductor configuration, loaded by NewApplication when nil
	Conductor *config.ConductorConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}
