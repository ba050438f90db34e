package binding

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// recordingBinding claims everything and records builder requests.
type recordingBinding struct {
	name     string
	claims   bool
	requests *[]string
}

func (b recordingBinding) IsFor(Field) bool { return b.claims }
func (b recordingBinding) Builder(f Field) (resource.Builder, error) {
	*b.requests = append(*b.requests, b.name+":"+f.Name)
	return resource.BuilderFunc(func(context.Context, *runctx.ServiceContext) (resource.ManagedResource, error) {
		return nil, nil
	}), nil
}
func (b recordingBinding) RequiresLinuxContainersOnBareMetal() bool { return false }

func TestRegistry_FirstMatchWins(t *testing.T) {
	var requests []string
	r := NewRegistry(
		recordingBinding{name: "declines", claims: false, requests: &requests},
		recordingBinding{name: "first", claims: true, requests: &requests},
		recordingBinding{name: "second", claims: true, requests: &requests},
	)

	field := Field{Name: "app", Declaration: LocalApp{Command: []string{"./app"}}}
	b, err := r.Resolve(field)
	require.NoError(t, err)
	assert.Equal(t, "first", b.(recordingBinding).name)

	_, err = r.BuilderFor(field)
	require.NoError(t, err)
	assert.Equal(t, []string{"first:app"}, requests)
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry(KindBinding{For: KindContainer})

	_, err := r.BuilderFor(Field{Name: "app", Declaration: LocalApp{Command: []string{"x"}}})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "no binding found for field app of kind local", err.Error())

	_, err = r.Resolve(Field{Name: "bare"})
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "no binding found for field bare", err.Error())
}

func TestRegistry_RegisterAppends(t *testing.T) {
	r := NewRegistry()
	r.Register(KindBinding{For: KindLocal})
	r.Register(KindBinding{For: KindContainer, RequiresLinux: true})

	all := r.All()
	require.Len(t, all, 2)
	assert.False(t, all[0].RequiresLinuxContainersOnBareMetal())
	assert.True(t, all[1].RequiresLinuxContainersOnBareMetal())
}

func TestKindBinding(t *testing.T) {
	built := 0
	b := KindBinding{
		For: KindContainer,
		NewBuilder: func(Field) (resource.Builder, error) {
			built++
			return resource.BuilderFunc(nil), nil
		},
	}

	assert.True(t, b.IsFor(Field{Name: "db", Declaration: Container{Image: "postgres:16"}}))
	assert.False(t, b.IsFor(Field{Name: "db", Declaration: LocalApp{}}))
	assert.False(t, b.IsFor(Field{Name: "db"}))

	_, err := b.Builder(Field{Name: "db", Declaration: Container{}})
	require.Error(t, err, "invalid declaration must be rejected before building")
	assert.Equal(t, 0, built)

	_, err = b.Builder(Field{Name: "db", Declaration: Container{Image: "postgres:16"}})
	require.NoError(t, err)
	assert.Equal(t, 1, built)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		decl    Declaration
		wantErr bool
	}{
		{name: "nil", decl: nil, wantErr: true},
		{name: "local ok", decl: LocalApp{Command: []string{"./app"}}},
		{name: "local no command", decl: LocalApp{}, wantErr: true},
		{name: "local build without artifact", decl: LocalApp{Command: []string{"x"}, BuildCommand: []string{"make"}}, wantErr: true},
		{name: "container ok", decl: Container{Image: "redis:7"}},
		{name: "container no image", decl: Container{}, wantErr: true},
		{name: "kubernetes template only", decl: Kubernetes{Template: "deploy.yaml"}},
		{name: "kubernetes empty", decl: Kubernetes{}, wantErr: true},
		{name: "openshift ok", decl: OpenShift{Kubernetes: Kubernetes{Image: "quay.io/app"}, Route: true}},
		{name: "openshift empty", decl: OpenShift{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.decl)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeclarationKinds(t *testing.T) {
	assert.Equal(t, KindLocal, LocalApp{}.Kind())
	assert.Equal(t, KindContainer, Container{}.Kind())
	assert.Equal(t, KindKubernetes, Kubernetes{}.Kind())
	assert.Equal(t, KindOpenShift, OpenShift{}.Kind())
	assert.Equal(t, "container redis:7", Describe(Container{Image: "redis:7"}))
	assert.Equal(t, "local ./app", Describe(LocalApp{Command: []string{"./app"}}))
}
