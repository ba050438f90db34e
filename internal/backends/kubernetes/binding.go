package kubernetes

import (
	"fmt"

	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// Binding claims kubernetes declarations.
func Binding() binding.KindBinding {
	return binding.KindBinding{
		For: binding.KindKubernetes,
		NewBuilder: func(f binding.Field) (resource.Builder, error) {
			decl, ok := f.Declaration.(binding.Kubernetes)
			if !ok {
				return nil, fmt.Errorf("field %s: expected a kubernetes declaration, got %T", f.Name, f.Declaration)
			}
			return NewBuilder(decl), nil
		},
	}
}

// NewBuilder creates the builder of a kubernetes declaration.
func NewBuilder(decl binding.Kubernetes) *resource.ArtifactBuilder[binding.Kubernetes] {
	return &resource.ArtifactBuilder[binding.Kubernetes]{
		Decl: decl,
		Default: func(sc *runctx.ServiceContext, d binding.Kubernetes) (resource.ManagedResource, error) {
			return NewDeployment(sc, d), nil
		},
	}
}

// FromContainer deploys the image of a container declaration.
func FromContainer(c binding.Container) binding.Kubernetes {
	return binding.Kubernetes{
		Image:   c.Image,
		Port:    c.Port,
		Command: c.Command,
		Env:     c.Env,
		Markers: c.Markers,
	}
}

// ContainerBinding runs container declarations as deployments when the
// scenario targets Kubernetes.
type ContainerBinding struct{}

// AppliesFor reports whether the scenario targets Kubernetes.
func (ContainerBinding) AppliesFor(sc *runctx.ServiceContext) bool {
	return sc.Scenario().Target() == config.TargetKubernetes
}

// Init creates the deployment of the container image.
func (ContainerBinding) Init(sc *runctx.ServiceContext, decl binding.Container) (resource.ManagedResource, error) {
	return NewDeployment(sc, FromContainer(decl)), nil
}
