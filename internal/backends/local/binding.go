package local

import (
	"context"
	"fmt"

	"conductor/internal/binding"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// Binding claims local app declarations.
func Binding() binding.KindBinding {
	return binding.KindBinding{
		For: binding.KindLocal,
		NewBuilder: func(f binding.Field) (resource.Builder, error) {
			decl, ok := f.Declaration.(binding.LocalApp)
			if !ok {
				return nil, fmt.Errorf("field %s: expected a local app declaration, got %T", f.Name, f.Declaration)
			}
			return NewBuilder(decl), nil
		},
	}
}

// NewBuilder creates the builder of a local app: the artifact is built
// first when a build command is declared, and Restart rebuilds it when
// build-time properties changed.
func NewBuilder(decl binding.LocalApp) *resource.ArtifactBuilder[binding.LocalApp] {
	b := &resource.ArtifactBuilder[binding.LocalApp]{
		Decl:          decl,
		BuildArtifact: BuildArtifact,
		CustomSelection: func(d binding.LocalApp) bool {
			return len(d.Classes) > 0
		},
	}
	b.Default = func(sc *runctx.ServiceContext, d binding.LocalApp) (resource.ManagedResource, error) {
		p := NewProcess(sc, d)
		if p.NeedsBuildArtifact() {
			p.rebuild = func(ctx context.Context) (string, bool, error) {
				return b.RebuildIfNeeded(ctx)
			}
		}
		return p, nil
	}
	return b
}
