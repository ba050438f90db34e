package app

import (
	"context"
	"sync"
	"time"

	"conductor/internal/backends/container"
	"conductor/internal/backends/kubernetes"
	"conductor/internal/backends/local"
	"conductor/internal/backends/openshift"
	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/containerizer"
	"conductor/internal/probe"
	"conductor/internal/resource"
	"conductor/internal/scenario"
)

const runtimeDetectTimeout = 30 * time.Second

// Services holds what every scenario orchestrator of a run shares.
//
// Field descriptions:
//   - Bindings: declaration kinds to builders, in resolution order
//   - Extensions: namespace and project extensions of the cluster targets
//   - LinuxProbe: memoized answer whether Linux containers can run here
//   - Probe: HTTP readiness probe of routes
type Services struct {
	Config     config.ConductorConfig
	Bindings   *binding.Registry
	Extensions []scenario.Extension
	LinuxProbe *containerizer.LinuxProbe
	Probe      *probe.HTTP

	newRuntime container.RuntimeFactory
}

// ServiceOptions replace the connections to the outside world.
type ServiceOptions struct {
	// NewRuntime returns the container runtime, detected once by default.
	NewRuntime container.RuntimeFactory

	// NewKubeClient connects to the cluster of the kubernetes and openshift
	// targets, from the configured kubeconfig by default.
	NewKubeClient func() (*kubernetes.Client, error)
}

// InitializeServices creates the shared services from the loaded
// configuration.
func InitializeServices(cfg *Config) (*Services, error) {
	return NewServices(*cfg.Conductor, ServiceOptions{}), nil
}

// NewServices wires bindings, extensions and probes.
//
// Initialization Sequence:
//  1. Container runtime detection, memoized for the whole run
//  2. Linux container probe over that runtime
//  3. Bindings: local, container (with cluster alternatives), kubernetes, openshift
//  4. Extensions: kubernetes namespace, openshift project
func NewServices(cfg config.ConductorConfig, opts ServiceOptions) *Services {
	newRuntime := opts.NewRuntime
	if newRuntime == nil {
		detect := sync.OnceValues(func() (containerizer.ContainerRuntime, error) {
			ctx, cancel := context.WithTimeout(context.Background(), runtimeDetectTimeout)
			defer cancel()
			return containerizer.NewContainerRuntime(ctx, cfg.Containers)
		})
		newRuntime = func(context.Context) (containerizer.ContainerRuntime, error) { return detect() }
	}

	newKubeClient := opts.NewKubeClient
	if newKubeClient == nil {
		newKubeClient = func() (*kubernetes.Client, error) { return kubernetes.NewClient(cfg.Kubernetes.Kubeconfig) }
	}

	httpProbe := probe.NewHTTP(probe.Options{})
	return &Services{
		Config:     cfg,
		Bindings:   DefaultBindings(newRuntime, httpProbe),
		Extensions: DefaultExtensions(cfg, newKubeClient),
		LinuxProbe: containerizer.NewLinuxProbe(newRuntime),
		Probe:      httpProbe,
		newRuntime: newRuntime,
	}
}

// DefaultBindings registers the built-in backends. Container declarations
// become deployments when the scenario targets a cluster.
func DefaultBindings(newRuntime container.RuntimeFactory, httpProbe *probe.HTTP) *binding.Registry {
	return binding.NewRegistry(
		local.Binding(),
		container.Binding(container.Options{
			NewRuntime: newRuntime,
			Alternatives: []resource.ResourceBinding[binding.Container]{
				kubernetes.ContainerBinding{},
				openshift.ContainerBinding{Probe: httpProbe},
			},
		}),
		kubernetes.Binding(),
		openshift.Binding(httpProbe),
	)
}

// DefaultExtensions returns the extensions of the cluster targets. Each
// only takes part in scenarios of its target.
func DefaultExtensions(cfg config.ConductorConfig, newKubeClient func() (*kubernetes.Client, error)) []scenario.Extension {
	return []scenario.Extension{
		kubernetes.NewNamespaceExtension(cfg.Kubernetes, newKubeClient),
		openshift.NewProjectExtension(cfg.OpenShift, cfg.Kubernetes.Kubeconfig, newKubeClient),
	}
}

// NewOrchestrator creates the orchestrator of one scenario.
func (s *Services) NewOrchestrator() *scenario.Orchestrator {
	return scenario.New(scenario.Options{
		Config:          s.Config,
		Bindings:        s.Bindings,
		Extensions:      s.Extensions,
		LinuxContainers: s.LinuxProbe.Supported,
	})
}

// ContainerRuntime returns the detected container runtime.
func (s *Services) ContainerRuntime(ctx context.Context) (containerizer.ContainerRuntime, error) {
	return s.newRuntime(ctx)
}
