package openshift

import (
	"fmt"

	"conductor/internal/backends/kubernetes"
	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/probe"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// Binding claims openshift declarations.
func Binding(p *probe.HTTP) binding.KindBinding {
	return binding.KindBinding{
		For: binding.KindOpenShift,
		NewBuilder: func(f binding.Field) (resource.Builder, error) {
			decl, ok := f.Declaration.(binding.OpenShift)
			if !ok {
				return nil, fmt.Errorf("field %s: expected an openshift declaration, got %T", f.Name, f.Declaration)
			}
			return NewBuilder(decl, p), nil
		},
	}
}

// NewBuilder creates the builder of an openshift declaration.
func NewBuilder(decl binding.OpenShift, p *probe.HTTP) *resource.ArtifactBuilder[binding.OpenShift] {
	return &resource.ArtifactBuilder[binding.OpenShift]{
		Decl: decl,
		Default: func(sc *runctx.ServiceContext, d binding.OpenShift) (resource.ManagedResource, error) {
			return NewDeployment(sc, d, p), nil
		},
	}
}

// FromContainer deploys the image of a container declaration, routed when
// it publishes a port.
func FromContainer(c binding.Container) binding.OpenShift {
	return binding.OpenShift{
		Kubernetes: kubernetes.FromContainer(c),
		Route:      c.Port > 0,
	}
}

// ContainerBinding runs container declarations on OpenShift when the
// scenario targets it.
type ContainerBinding struct {
	Probe *probe.HTTP
}

// AppliesFor reports whether the scenario targets OpenShift.
func (b ContainerBinding) AppliesFor(sc *runctx.ServiceContext) bool {
	return sc.Scenario().Target() == config.TargetOpenShift
}

// Init creates the deployment of the container image.
func (b ContainerBinding) Init(sc *runctx.ServiceContext, decl binding.Container) (resource.ManagedResource, error) {
	return NewDeployment(sc, FromContainer(decl), b.Probe), nil
}
