package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"conductor/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is looked up in the working directory when no explicit
	// path is given.
	ConfigFileName = "conductor.yaml"
)

// DefaultConfigPath returns the configuration file path relative to the
// current working directory.
func DefaultConfigPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(wd, ConfigFileName)
}

// Load reads the configuration file at path on top of the defaults, then
// applies environment overrides. A missing file is not an error.
func Load(path string) (ConductorConfig, error) {
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return ConductorConfig{}, ConfigurationError{
				FilePath:  path,
				ErrorType: "io",
				Message:   "failed to read configuration file",
				Details:   err.Error(),
			}
		}
		logging.Info("ConfigLoader", "No %s found at %s, using defaults", ConfigFileName, path)
	} else {
		if cfg, err = Parse(path, data); err != nil {
			return ConductorConfig{}, err
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", path)
	}

	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return ConductorConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ConductorConfig{}, err
	}
	return cfg, nil
}

// Parse validates and decodes a YAML document over the defaults. The path is
// used for error reporting only.
func Parse(path string, data []byte) (ConductorConfig, error) {
	cfg := GetDefaultConfig()

	if err := ValidateDocument(data); err != nil {
		return ConductorConfig{}, ConfigurationError{
			FilePath:  path,
			ErrorType: "validation",
			Message:   "configuration does not match schema",
			Details:   err.Error(),
			Suggestions: []string{
				"Check field names and value types against the documented configuration keys",
				"Durations are written as Go duration strings such as 30s or 5m",
			},
		}
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ConductorConfig{}, ConfigurationError{
			FilePath:  path,
			ErrorType: "parse",
			Message:   "failed to parse YAML",
			Details:   err.Error(),
		}
	}
	if cfg.Services == nil {
		cfg.Services = map[string]ServiceConfig{}
	}
	return cfg, nil
}

// Validate checks cross-field constraints that the schema cannot express.
func (c ConductorConfig) Validate() error {
	if !c.Target.IsValid() {
		return ConfigurationError{
			ErrorType:   "validation",
			Message:     fmt.Sprintf("unknown target %q", c.Target),
			Suggestions: []string{"Use one of: bare-metal, kubernetes, openshift"},
		}
	}
	if c.Containers.Runtime != "docker" && c.Containers.Runtime != "podman" {
		return ConfigurationError{
			ErrorType: "validation",
			Message:   fmt.Sprintf("unknown container runtime %q", c.Containers.Runtime),
		}
	}
	if c.Scenario.IDMaxLength <= 0 {
		return ConfigurationError{
			ErrorType: "validation",
			Message:   "scenario.idMaxLength must be positive",
		}
	}
	for name, sc := range c.Services {
		if sc.StartupTimeout < 0 || sc.StartupCheckPollInterval < 0 {
			return ConfigurationError{
				ErrorType: "validation",
				Message:   fmt.Sprintf("service %s: durations must not be negative", name),
			}
		}
	}
	return nil
}
