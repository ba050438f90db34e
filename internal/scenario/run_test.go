package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/services"
)

func TestExecute_SmokeCheckPasses(t *testing.T) {
	rec := &recorder{}
	o := New(Options{Config: testConfig(t), Bindings: binding.NewRegistry(newFakeBinding("local", binding.KindLocal, rec))})
	class := NewClass("SmokeIT").Service("app", fastService(), local())

	res := Execute(context.Background(), o, class)

	assert.True(t, res.Passed)
	assert.NoError(t, res.Err)
	assert.Equal(t, "SmokeIT", res.Scenario)
	assert.NotEmpty(t, res.ID)
	require.Len(t, res.Services, 1)
	assert.Equal(t, services.StateRunning, res.Services[0].State)
	assert.Equal(t, "app (fake app)", res.Services[0].Display)
	assert.Equal(t, []string{"stop:app"}, rec.filter("stop:"))
}

func TestExecute_FailingStepIsReported(t *testing.T) {
	rec := &recorder{}
	ext := &recordingExtension{rec: rec, applies: true}
	o := New(Options{
		Config:     testConfig(t),
		Bindings:   binding.NewRegistry(newFakeBinding("local", binding.KindLocal, rec)),
		Extensions: []Extension{ext},
	})
	class := NewClass("StepIT").Service("app", fastService(), local())
	boom := errors.New("unexpected greeting")
	var ran []string

	res := Execute(context.Background(), o, class,
		Step{Name: "first", Fn: func(context.Context, *Orchestrator) error { ran = append(ran, "first"); return boom }},
		Step{Name: "second", Fn: func(context.Context, *Orchestrator) error { ran = append(ran, "second"); return nil }},
	)

	assert.False(t, res.Passed)
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, []string{"first"}, ran)
	assert.Equal(t, 1, ext.errorCount())
	assert.FileExists(t, o.Scenario().LogFile())
}

func TestExecute_SetupFailure(t *testing.T) {
	o := New(Options{Config: testConfig(t)})
	class := NewClass("UnboundIT").Service("app", fastService(), local())

	res := Execute(context.Background(), o, class)
	assert.False(t, res.Passed)
	assert.True(t, binding.IsNotFound(res.Err))
}

func TestExecute_SkippedWithoutLinuxContainers(t *testing.T) {
	rec := &recorder{}
	containers := newFakeBinding("container", binding.KindContainer, rec)
	containers.requiresLinux = true
	o := New(Options{
		Config:          testConfig(t),
		Bindings:        binding.NewRegistry(containers),
		LinuxContainers: func() bool { return false },
	})
	class := NewClass("ContainerIT").Service("db", fastService(), binding.Container{Image: "postgres:16"})

	res := Execute(context.Background(), o, class)
	assert.True(t, res.Passed)
	assert.Contains(t, res.Skipped, "needs Linux containers")
	assert.Empty(t, rec.events)
}

func TestCheckEnvironment(t *testing.T) {
	rec := &recorder{}
	containers := newFakeBinding("container", binding.KindContainer, rec)
	containers.requiresLinux = true
	bindings := binding.NewRegistry(newFakeBinding("local", binding.KindLocal, rec), containers)
	class := NewClass("EnvIT").
		Service("app", fastService(), local()).
		Service("db", fastService(), binding.Container{Image: "postgres:16"})
	localOnly := NewClass("LocalIT").Service("app", fastService(), local())

	calls := 0
	available := func(v bool) func() bool {
		return func() bool { calls++; return v }
	}

	assert.NotEmpty(t, CheckEnvironment(config.TargetBareMetal, class, bindings, available(false)))
	assert.Empty(t, CheckEnvironment(config.TargetBareMetal, class, bindings, available(true)))
	assert.Empty(t, CheckEnvironment(config.TargetKubernetes, class, bindings, available(false)))
	assert.Empty(t, CheckEnvironment(config.TargetBareMetal, localOnly, bindings, available(false)))
	assert.Empty(t, CheckEnvironment(config.TargetBareMetal, class, bindings, nil))
	assert.Equal(t, 2, calls)
}

func TestRun_DrivesPhases(t *testing.T) {
	rec := &recorder{}
	ext := &recordingExtension{rec: rec, applies: true}
	o := New(Options{
		Config:     testConfig(t),
		Bindings:   binding.NewRegistry(newFakeBinding("local", binding.KindLocal, rec)),
		Extensions: []Extension{ext},
	})
	class := NewClass("RunIT").Service("app", fastService(), local())

	t.Run("scenario", func(t *testing.T) {
		Run(t, o, class,
			Test{Name: "greets", Fn: func(t *testing.T) {
				svc, ok := o.Service("app")
				require.True(t, ok)
				assert.True(t, svc.IsRunning(context.Background()))
			}},
			Test{Name: "later", Disabled: "pending", Fn: func(t *testing.T) {
				t.Error("disabled test must not run")
			}},
		)
	})

	assert.Equal(t, []string{
		"ext:beforeAll",
		"ext:launch:app",
		"ext:beforeEach:greets",
		"ext:afterEach",
		"ext:success",
		"ext:disabled:pending",
		"ext:afterAll",
	}, rec.filter("ext:"))
	assert.Equal(t, []string{"stop:app"}, rec.filter("stop:"))
	assert.False(t, o.Scenario().IsFailed())
}
