package container

import (
	"fmt"

	"conductor/internal/binding"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// Options configure the container binding.
type Options struct {
	// NewRuntime returns the runtime for containers on the local host.
	NewRuntime RuntimeFactory

	// Alternatives replace the local container, e.g. with a deployment when
	// the scenario targets a cluster. The first that applies wins.
	Alternatives []resource.ResourceBinding[binding.Container]
}

// Binding claims container declarations. On bare metal they need Linux
// containers.
func Binding(opts Options) binding.KindBinding {
	return binding.KindBinding{
		For:           binding.KindContainer,
		RequiresLinux: true,
		NewBuilder: func(f binding.Field) (resource.Builder, error) {
			decl, ok := f.Declaration.(binding.Container)
			if !ok {
				return nil, fmt.Errorf("field %s: expected a container declaration, got %T", f.Name, f.Declaration)
			}
			return NewBuilder(decl, opts), nil
		},
	}
}

// NewBuilder creates the builder of a container declaration.
func NewBuilder(decl binding.Container, opts Options) *resource.ArtifactBuilder[binding.Container] {
	return &resource.ArtifactBuilder[binding.Container]{
		Decl:     decl,
		Bindings: opts.Alternatives,
		Default: func(sc *runctx.ServiceContext, d binding.Container) (resource.ManagedResource, error) {
			return NewContainer(sc, d, opts.NewRuntime), nil
		},
	}
}
