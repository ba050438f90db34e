package kubernetes

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"conductor/internal/config"
	"conductor/internal/runctx"
)

func newScenario(t *testing.T, target config.Target) *runctx.ScenarioContext {
	t.Helper()
	dir := t.TempDir()
	return runctx.NewScenarioContext("ClusterIT", runctx.ScenarioOptions{
		Target:    target,
		TargetDir: dir,
		LogsDir:   filepath.Join(dir, "logs"),
	})
}

func namespaceExists(t *testing.T, c *Client, name string) bool {
	t.Helper()
	err := c.Get(context.Background(), client.ObjectKey{Name: name}, &corev1.Namespace{})
	if apierrors.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func staticClient(c *Client) func() (*Client, error) {
	return func() (*Client, error) { return c, nil }
}

func TestNamespaceExtension_Ephemeral(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	ext := NewNamespaceExtension(config.KubernetesConfig{DeleteNamespaceOnFailure: true}, staticClient(c))
	sc := newScenario(t, config.TargetKubernetes)

	assert.True(t, ext.AppliesFor(sc))
	assert.False(t, ext.AppliesFor(newScenario(t, config.TargetBareMetal)))
	assert.False(t, ext.AppliesFor(newScenario(t, config.TargetOpenShift)))

	_, ok := ext.Parameter(reflect.TypeFor[*Client]())
	assert.False(t, ok, "nothing to inject before the scenario starts")

	require.NoError(t, ext.BeforeAll(ctx, sc))
	ns := ext.CurrentNamespace()
	assert.True(t, strings.HasPrefix(ns, "ts-"), ns)
	assert.Len(t, ns, 11)
	assert.True(t, namespaceExists(t, c, ns))

	created := &corev1.Namespace{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Name: ns}, created))
	assert.Equal(t, ManagedBy, created.Labels[LabelManagedBy])
	assert.Equal(t, LabelValue(sc.ID()), created.Labels[LabelScenario])

	svcCtx, _ := newServiceContext(t, "greetings", config.TargetKubernetes)
	ext.UpdateServiceContext(svcCtx)
	got, ok := runctx.Value[*Client](svcCtx, ContextKeyClient)
	require.True(t, ok)
	assert.Same(t, c, got)
	gotNs, _ := runctx.Value[string](svcCtx, ContextKeyNamespace)
	assert.Equal(t, ns, gotNs)

	v, ok := ext.Parameter(reflect.TypeFor[*Client]())
	require.True(t, ok)
	assert.Same(t, c, v)
	v, ok = ext.Parameter(reflect.TypeFor[Namespace]())
	require.True(t, ok)
	assert.Equal(t, Namespace(ns), v)
	_, ok = ext.Parameter(reflect.TypeFor[string]())
	assert.False(t, ok)

	require.NoError(t, ext.AfterAll(ctx, sc))
	assert.False(t, namespaceExists(t, c, ns))
	require.NoError(t, ext.AfterAll(ctx, sc))
}

func TestNamespaceExtension_KeepsNamespaceOfFailedScenario(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	ext := NewNamespaceExtension(config.KubernetesConfig{DeleteNamespaceOnFailure: false}, staticClient(c))
	sc := newScenario(t, config.TargetKubernetes)

	require.NoError(t, ext.BeforeAll(ctx, sc))
	sc.MarkFailed()
	ext.OnError(ctx, sc, errors.New("boom"))
	require.NoError(t, ext.AfterAll(ctx, sc))
	assert.True(t, namespaceExists(t, c, ext.CurrentNamespace()))
}

func TestNamespaceExtension_DeletesFailedWhenConfigured(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient()
	ext := NewNamespaceExtension(config.KubernetesConfig{DeleteNamespaceOnFailure: true}, staticClient(c))
	sc := newScenario(t, config.TargetKubernetes)

	require.NoError(t, ext.BeforeAll(ctx, sc))
	sc.MarkFailed()
	require.NoError(t, ext.AfterAll(ctx, sc))
	assert.False(t, namespaceExists(t, c, ext.CurrentNamespace()))
}

func TestNamespaceExtension_FixedNamespace(t *testing.T) {
	ctx := context.Background()
	existing := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "shared"}}
	c := NewClientFrom(
		fake.NewClientBuilder().WithScheme(Scheme()).WithObjects(existing).Build(),
		k8sfake.NewClientset(),
	)
	ext := NewNamespaceExtension(config.KubernetesConfig{Namespace: "shared", DeleteNamespaceOnFailure: true}, staticClient(c))
	sc := newScenario(t, config.TargetKubernetes)

	require.NoError(t, ext.BeforeAll(ctx, sc))
	assert.Equal(t, "shared", ext.CurrentNamespace())
	require.NoError(t, ext.AfterAll(ctx, sc))
	assert.True(t, namespaceExists(t, c, "shared"), "a fixed namespace is never deleted")
}

func TestNamespaceExtension_Errors(t *testing.T) {
	ctx := context.Background()
	sc := newScenario(t, config.TargetKubernetes)

	ext := NewNamespaceExtension(config.KubernetesConfig{}, func() (*Client, error) {
		return nil, errors.New("no cluster")
	})
	assert.EqualError(t, ext.BeforeAll(ctx, sc), "no cluster")
	ext.OnError(ctx, sc, errors.New("ignored without a namespace"))

	ext = NewNamespaceExtensionWith(NamespaceOptions{
		Target:    config.TargetKubernetes,
		NewClient: staticClient(newFakeClient()),
		Create: func(context.Context, *Client, string, map[string]string) error {
			return errors.New("forbidden")
		},
	})
	err := ext.BeforeAll(ctx, sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestEphemeralName(t *testing.T) {
	a, b := EphemeralName(), EphemeralName()
	assert.NotEqual(t, a, b)
	_, err := ResourceName(a)
	assert.NoError(t, err)
}
