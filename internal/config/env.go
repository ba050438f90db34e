package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables that override file configuration.
const (
	EnvTarget             = "CONDUCTOR_TARGET"
	EnvAutoDefaultService = "CONDUCTOR_AUTO_DEFAULT_SERVICE"
	EnvContainerRuntime   = "CONDUCTOR_CONTAINER_RUNTIME"
	EnvDockerDetection    = "CONDUCTOR_DOCKER_DETECTION"
	EnvPodmanDetection    = "CONDUCTOR_PODMAN_DETECTION"
	EnvKubeconfig         = "CONDUCTOR_KUBECONFIG"
	EnvKubectl            = "CONDUCTOR_KUBECTL"
	EnvOC                 = "CONDUCTOR_OC"
	EnvResultsDir         = "CONDUCTOR_RESULTS_DIR"
	EnvDebug              = "CONDUCTOR_DEBUG"
)

// ApplyEnv overlays environment variables onto cfg. getenv is usually
// os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *ConductorConfig, getenv func(string) string) error {
	var err error

	if v := getenv(EnvTarget); v != "" {
		cfg.Target = Target(strings.ToLower(v))
	}
	if cfg.AutoDefaultService, err = envBool(getenv, EnvAutoDefaultService, cfg.AutoDefaultService); err != nil {
		return err
	}
	if v := getenv(EnvContainerRuntime); v != "" {
		cfg.Containers.Runtime = strings.ToLower(v)
	}
	if cfg.Containers.DockerDetection, err = envBool(getenv, EnvDockerDetection, cfg.Containers.DockerDetection); err != nil {
		return err
	}
	if cfg.Containers.PodmanDetection, err = envBool(getenv, EnvPodmanDetection, cfg.Containers.PodmanDetection); err != nil {
		return err
	}
	if v := getenv(EnvKubeconfig); v != "" {
		cfg.Kubernetes.Kubeconfig = v
	}
	if v := getenv(EnvKubectl); v != "" {
		cfg.Kubernetes.Kubectl = v
	}
	if v := getenv(EnvOC); v != "" {
		cfg.OpenShift.OC = v
	}
	if v := getenv(EnvResultsDir); v != "" {
		cfg.TargetDir = v
		cfg.LogsDir = v + "/logs"
	}
	if cfg.Debug, err = envBool(getenv, EnvDebug, cfg.Debug); err != nil {
		return err
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return nil
}

func envBool(getenv func(string) string, key string, fallback bool) (bool, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, ConfigurationError{
			ErrorType: "env",
			Message:   fmt.Sprintf("%s must be a boolean, got %q", key, v),
		}
	}
	return b, nil
}
