package config

import "time"

// Target is the deployment target that services are provisioned on.
type Target string

const (
	TargetBareMetal  Target = "bare-metal"
	TargetKubernetes Target = "kubernetes"
	TargetOpenShift  Target = "openshift"
)

// IsValid reports whether t is one of the known deployment targets.
func (t Target) IsValid() bool {
	switch t {
	case TargetBareMetal, TargetKubernetes, TargetOpenShift:
		return true
	default:
		return false
	}
}

// ConductorConfig is the top-level configuration structure for conductor.
type ConductorConfig struct {
	Target             Target                   `yaml:"target,omitempty"`
	AutoDefaultService bool                     `yaml:"autoDefaultService,omitempty"`
	Debug              bool                     `yaml:"debug,omitempty"`
	LogLevel           string                   `yaml:"logLevel,omitempty"`
	TargetDir          string                   `yaml:"targetDir,omitempty"` // Root for service working directories
	LogsDir            string                   `yaml:"logsDir,omitempty"`   // Scenario log files
	Scenario           ScenarioConfig           `yaml:"scenario,omitempty"`
	Containers         ContainersConfig         `yaml:"containers,omitempty"`
	Kubernetes         KubernetesConfig         `yaml:"kubernetes,omitempty"`
	OpenShift          OpenShiftConfig          `yaml:"openshift,omitempty"`
	DefaultService     DefaultServiceConfig     `yaml:"defaultService,omitempty"`
	Services           map[string]ServiceConfig `yaml:"services,omitempty"`
}

// ScenarioConfig holds settings for scenario identity.
type ScenarioConfig struct {
	IDMaxLength int `yaml:"idMaxLength,omitempty"`
}

// ContainersConfig selects and detects the container runtime.
type ContainersConfig struct {
	Runtime         string `yaml:"runtime,omitempty"` // docker or podman
	DockerDetection bool   `yaml:"dockerDetection,omitempty"`
	PodmanDetection bool   `yaml:"podmanDetection,omitempty"`
}

// KubernetesConfig configures the kubernetes target.
type KubernetesConfig struct {
	Kubeconfig               string `yaml:"kubeconfig,omitempty"`
	Kubectl                  string `yaml:"kubectl,omitempty"`
	Namespace                string `yaml:"namespace,omitempty"` // Fixed namespace; empty means ephemeral
	DeleteNamespaceOnFailure bool   `yaml:"deleteNamespaceOnFailure,omitempty"`
}

// OpenShiftConfig configures the openshift target.
type OpenShiftConfig struct {
	OC                     string `yaml:"oc,omitempty"`
	Project                string `yaml:"project,omitempty"`
	DeleteProjectOnFailure bool   `yaml:"deleteProjectOnFailure,omitempty"`
}

// DefaultServiceConfig describes the service synthesized when a scenario
// declares none and AutoDefaultService is enabled.
type DefaultServiceConfig struct {
	Name         string   `yaml:"name,omitempty"`
	Command      []string `yaml:"command,omitempty"`
	BuildCommand []string `yaml:"buildCommand,omitempty"`
	Artifact     string   `yaml:"artifact,omitempty"`
	Dir          string   `yaml:"dir,omitempty"`
}

// ServiceConfig is the externally sourced configuration of a single service.
// Pointer fields distinguish "unset" from an explicit false.
type ServiceConfig struct {
	Properties               map[string]string `yaml:"properties,omitempty"`
	AutoStart                *bool             `yaml:"autoStart,omitempty"`
	StartupTimeout           time.Duration     `yaml:"startupTimeout,omitempty"`
	StartupCheckPollInterval time.Duration     `yaml:"startupCheckPollInterval,omitempty"`
	LogEnabled               *bool             `yaml:"logEnabled,omitempty"`
	DeleteFolderOnClose      *bool             `yaml:"deleteFolderOnClose,omitempty"`
}

// Service returns the configuration for the named service with defaults
// applied. Unknown names yield the defaults.
func (c ConductorConfig) Service(name string) ServiceConfig {
	sc := c.Services[name]
	if sc.StartupTimeout <= 0 {
		sc.StartupTimeout = DefaultStartupTimeout
	}
	if sc.StartupCheckPollInterval <= 0 {
		sc.StartupCheckPollInterval = DefaultStartupCheckPollInterval
	}
	if sc.Properties == nil {
		sc.Properties = map[string]string{}
	}
	return sc
}

// IsAutoStart returns the configured auto-start flag, or fallback when unset.
func (sc ServiceConfig) IsAutoStart(fallback bool) bool {
	if sc.AutoStart == nil {
		return fallback
	}
	return *sc.AutoStart
}

// IsLogEnabled reports whether captured service output is forwarded to the
// scenario log. Defaults to true.
func (sc ServiceConfig) IsLogEnabled() bool {
	return sc.LogEnabled == nil || *sc.LogEnabled
}

// ShouldDeleteFolderOnClose defaults to true.
func (sc ServiceConfig) ShouldDeleteFolderOnClose() bool {
	return sc.DeleteFolderOnClose == nil || *sc.DeleteFolderOnClose
}
