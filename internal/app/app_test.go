package app

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/backends/kubernetes"
	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/containerizer"
	"conductor/internal/scenario"
	"conductor/internal/services"
)

type fakeRuntime struct {
	osType string
}

func (f fakeRuntime) Name() string                                  { return "docker" }
func (f fakeRuntime) OSType(context.Context) (string, error)        { return f.osType, nil }
func (f fakeRuntime) PullImage(context.Context, string) error       { return nil }
func (f fakeRuntime) StopContainer(context.Context, string) error   { return nil }
func (f fakeRuntime) RemoveContainer(context.Context, string) error { return nil }
func (f fakeRuntime) StartContainer(context.Context, containerizer.ContainerConfig) (string, error) {
	return "", errors.New("not supported")
}
func (f fakeRuntime) GetContainerLogs(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
func (f fakeRuntime) IsContainerRunning(context.Context, string) (bool, error) { return false, nil }
func (f fakeRuntime) GetContainerPort(context.Context, string, string) (string, error) {
	return "", errors.New("not supported")
}

func testConductorConfig(t *testing.T) *config.ConductorConfig {
	t.Helper()
	cfg := config.GetDefaultConfig()
	dir := t.TempDir()
	cfg.TargetDir = filepath.Join(dir, "target")
	cfg.LogsDir = filepath.Join(dir, "logs")
	return &cfg
}

func testApplication(t *testing.T, osType string, runtimeErr error) *Application {
	t.Helper()
	cfg := &Config{Silent: true, Conductor: testConductorConfig(t)}
	a, err := NewApplication(cfg)
	require.NoError(t, err)

	a.services = NewServices(*cfg.Conductor, ServiceOptions{
		NewRuntime: func(context.Context) (containerizer.ContainerRuntime, error) {
			if runtimeErr != nil {
				return nil, runtimeErr
			}
			return fakeRuntime{osType: osType}, nil
		},
		NewKubeClient: func() (*kubernetes.Client, error) {
			return nil, errors.New("no cluster in tests")
		},
	})
	return a
}

func TestNewApplication_PrePopulatedConfig(t *testing.T) {
	cfg := &Config{Silent: true, Conductor: testConductorConfig(t)}
	a, err := NewApplication(cfg)
	require.NoError(t, err)

	s := a.Services()
	if s == nil {
		t.Fatal("Services should not be nil")
	}
	assert.Len(t, s.Bindings.All(), 4)
	assert.Len(t, s.Extensions, 2)
	assert.NotNil(t, s.LinuxProbe)
	assert.NotNil(t, s.Probe)
	assert.Equal(t, config.TargetBareMetal, a.Config().Target)
}

func TestNewApplication_LoadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("target: kubernetes\nlogLevel: warn\n"), 0o644))

	a, err := NewApplication(&Config{Silent: true, ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, config.TargetKubernetes, a.Config().Target)
	assert.Equal(t, "warn", a.Config().LogLevel)
}

func TestNewApplication_DebugOverridesConfig(t *testing.T) {
	cfg := &Config{Silent: true, Debug: true, Conductor: testConductorConfig(t)}
	a, err := NewApplication(cfg)
	require.NoError(t, err)
	assert.True(t, a.Config().Debug)
	assert.Equal(t, "debug", a.Config().LogLevel)
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("target: mainframe\n"), 0o644))

	_, err := NewApplication(&Config{Silent: true, ConfigPath: path})
	assert.Error(t, err)
}

func TestDefaultBindings_ResolutionOrder(t *testing.T) {
	registry := DefaultBindings(nil, nil)

	tests := []struct {
		decl binding.Declaration
		kind binding.Kind
	}{
		{decl: binding.LocalApp{Command: []string{"app"}}, kind: binding.KindLocal},
		{decl: binding.Container{Image: "postgres"}, kind: binding.KindContainer},
		{decl: binding.Kubernetes{Image: "postgres"}, kind: binding.KindKubernetes},
		{decl: binding.OpenShift{Kubernetes: binding.Kubernetes{Image: "postgres"}}, kind: binding.KindOpenShift},
	}
	for i, tt := range tests {
		b, err := registry.Resolve(binding.Field{Name: "svc", Declaration: tt.decl})
		require.NoError(t, err)
		kb, ok := b.(binding.KindBinding)
		require.True(t, ok)
		if kb.For != tt.kind {
			t.Errorf("binding for %T = %s, want %s", tt.decl, kb.For, tt.kind)
		}
		if kb.For != registry.All()[i].(binding.KindBinding).For {
			t.Errorf("binding %s registered out of order", tt.kind)
		}
	}

	container, _ := registry.Resolve(binding.Field{Name: "db", Declaration: binding.Container{Image: "postgres"}})
	assert.True(t, container.RequiresLinuxContainersOnBareMetal())
}

func TestRun(t *testing.T) {
	a := testApplication(t, "linux", nil)

	empty := scenario.NewClass("EmptyIT")
	broken := scenario.NewClass("BrokenIT").Service("app", services.NewBaseService(),
		binding.LocalApp{Command: []string{filepath.Join(t.TempDir(), "missing-binary")}})

	results, err := a.Run(context.Background(), []*scenario.Class{empty, broken})
	require.Error(t, err)
	assert.Equal(t, "1 of 2 scenarios failed", err.Error())
	require.Len(t, results, 2)

	assert.True(t, results[0].Passed)
	assert.Equal(t, "EmptyIT", results[0].Scenario)
	assert.False(t, results[1].Passed)
	assert.Error(t, results[1].Err)
}

func TestRun_Interrupted(t *testing.T) {
	a := testApplication(t, "linux", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := a.Run(ctx, []*scenario.Class{scenario.NewClass("EmptyIT")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "interrupted", results[0].Skipped)
}

func TestCheckEnvironment(t *testing.T) {
	needsContainers := scenario.NewClass("DatabaseIT").Service("db", services.NewBaseService(), binding.Container{Image: "postgres"})
	local := scenario.NewClass("LocalIT").Service("app", services.NewBaseService(), binding.LocalApp{Command: []string{"app"}})
	classes := []*scenario.Class{needsContainers, local}

	report := testApplication(t, "linux", nil).CheckEnvironment(context.Background(), classes)
	assert.Equal(t, config.TargetBareMetal, report.Target)
	assert.Equal(t, "docker", report.Runtime)
	assert.NoError(t, report.RuntimeErr)
	assert.True(t, report.LinuxContainers)
	assert.Empty(t, report.Skips)

	report = testApplication(t, "windows", nil).CheckEnvironment(context.Background(), classes)
	assert.False(t, report.LinuxContainers)
	require.Contains(t, report.Skips, "DatabaseIT")
	assert.NotContains(t, report.Skips, "LocalIT")

	report = testApplication(t, "", errors.New("no docker")).CheckEnvironment(context.Background(), classes)
	assert.EqualError(t, report.RuntimeErr, "no docker")
	assert.Empty(t, report.Runtime)
	assert.False(t, report.LinuxContainers)
	assert.Len(t, report.Skips, 1)
}
