package config

import "time"

const (
	// DefaultStartupTimeout bounds the readiness poll of a starting service.
	DefaultStartupTimeout = 5 * time.Minute

	// DefaultStartupCheckPollInterval is the pause between readiness checks.
	DefaultStartupCheckPollInterval = 2 * time.Second

	// DefaultScenarioIDMaxLength caps generated scenario run ids.
	DefaultScenarioIDMaxLength = 60

	DefaultTargetDir        = "target"
	DefaultLogsDir          = "target/logs"
	DefaultServiceName      = "app"
	DefaultContainerRuntime = "docker"
	DefaultKubectl          = "kubectl"
	DefaultOC               = "oc"
)

// GetDefaultConfig returns the default configuration for conductor.
func GetDefaultConfig() ConductorConfig {
	return ConductorConfig{
		Target:    TargetBareMetal,
		LogLevel:  "info",
		TargetDir: DefaultTargetDir,
		LogsDir:   DefaultLogsDir,
		Scenario: ScenarioConfig{
			IDMaxLength: DefaultScenarioIDMaxLength,
		},
		Containers: ContainersConfig{
			Runtime:         DefaultContainerRuntime,
			DockerDetection: true,
			PodmanDetection: true,
		},
		Kubernetes: KubernetesConfig{
			Kubectl:                  DefaultKubectl,
			DeleteNamespaceOnFailure: true,
		},
		OpenShift: OpenShiftConfig{
			OC:                     DefaultOC,
			DeleteProjectOnFailure: true,
		},
		DefaultService: DefaultServiceConfig{
			Name: DefaultServiceName,
		},
		Services: map[string]ServiceConfig{},
	}
}
