package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	def := GetDefaultConfig()
	assert.Equal(t, def.Target, cfg.Target)
	assert.Equal(t, def.TargetDir, cfg.TargetDir)
	assert.Equal(t, def.LogsDir, cfg.LogsDir)
	assert.Equal(t, DefaultScenarioIDMaxLength, cfg.Scenario.IDMaxLength)
	assert.Equal(t, "docker", cfg.Containers.Runtime)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
target: kubernetes
targetDir: build
containers:
  runtime: podman
kubernetes:
  namespace: fixed
services:
  greetings:
    autoStart: false
    startupTimeout: 2m
    startupCheckPollInterval: 500ms
    properties:
      greeting.message: hello
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, TargetKubernetes, cfg.Target)
	assert.Equal(t, "build", cfg.TargetDir)
	assert.Equal(t, "podman", cfg.Containers.Runtime)
	assert.Equal(t, "fixed", cfg.Kubernetes.Namespace)
	// untouched nested defaults survive
	assert.Equal(t, DefaultKubectl, cfg.Kubernetes.Kubectl)
	assert.True(t, cfg.Containers.DockerDetection)

	sc := cfg.Service("greetings")
	assert.Equal(t, 2*time.Minute, sc.StartupTimeout)
	assert.Equal(t, 500*time.Millisecond, sc.StartupCheckPollInterval)
	assert.False(t, sc.IsAutoStart(true))
	assert.Equal(t, "hello", sc.Properties["greeting.message"])
}

func TestLoad_SchemaViolation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown top-level key", content: "targett: kubernetes\n"},
		{name: "unknown target", content: "target: mainframe\n"},
		{name: "malformed duration", content: "services:\n  a:\n    startupTimeout: soon\n"},
		{name: "wrong type", content: "autoDefaultService: \"maybe\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))

			var ce ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "validation", ce.ErrorType)
			assert.Contains(t, ce.DetailedError(), ce.FilePath)
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, TargetBareMetal, cfg.Target)
	assert.NotNil(t, cfg.Services)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTarget:             "OpenShift",
		EnvAutoDefaultService: "true",
		EnvContainerRuntime:   "podman",
		EnvDockerDetection:    "false",
		EnvOC:                 "/usr/local/bin/oc",
		EnvResultsDir:         "/tmp/results",
		EnvDebug:              "1",
	}
	cfg := GetDefaultConfig()

	err := ApplyEnv(&cfg, func(k string) string { return env[k] })
	require.NoError(t, err)

	assert.Equal(t, TargetOpenShift, cfg.Target)
	assert.True(t, cfg.AutoDefaultService)
	assert.Equal(t, "podman", cfg.Containers.Runtime)
	assert.False(t, cfg.Containers.DockerDetection)
	assert.True(t, cfg.Containers.PodmanDetection)
	assert.Equal(t, "/usr/local/bin/oc", cfg.OpenShift.OC)
	assert.Equal(t, "/tmp/results", cfg.TargetDir)
	assert.Equal(t, "/tmp/results/logs", cfg.LogsDir)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestApplyEnv_InvalidBool(t *testing.T) {
	cfg := GetDefaultConfig()
	err := ApplyEnv(&cfg, func(k string) string {
		if k == EnvPodmanDetection {
			return "sometimes"
		}
		return ""
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvPodmanDetection)
}

func TestValidate_UnknownTargetFromEnv(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, ApplyEnv(&cfg, func(k string) string {
		if k == EnvTarget {
			return "mainframe"
		}
		return ""
	}))
	assert.Error(t, cfg.Validate())
}

func TestServiceConfigDefaults(t *testing.T) {
	cfg := GetDefaultConfig()
	sc := cfg.Service("unknown")

	if sc.StartupTimeout != DefaultStartupTimeout {
		t.Errorf("expected startup timeout %v, got %v", DefaultStartupTimeout, sc.StartupTimeout)
	}
	if sc.StartupCheckPollInterval != DefaultStartupCheckPollInterval {
		t.Errorf("expected poll interval %v, got %v", DefaultStartupCheckPollInterval, sc.StartupCheckPollInterval)
	}
	if !sc.IsAutoStart(true) || sc.IsAutoStart(false) {
		t.Error("unset autoStart should return the fallback")
	}
	if !sc.IsLogEnabled() {
		t.Error("log forwarding should default to enabled")
	}
	if !sc.ShouldDeleteFolderOnClose() {
		t.Error("folder deletion should default to enabled")
	}
}
