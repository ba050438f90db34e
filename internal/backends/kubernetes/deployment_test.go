package kubernetes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"conductor/internal/binding"
	"conductor/internal/config"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

const testNamespace = "ts-test"

type stubOwner struct {
	name  string
	props *properties.Store
}

func (o stubOwner) GetName() string                  { return o.name }
func (o stubOwner) GetProperties() properties.Reader { return o.props }

func newFakeClient(pods ...*corev1.Pod) *Client {
	var objs []runtime.Object
	for _, p := range pods {
		objs = append(objs, p)
	}
	return NewClientFrom(
		fake.NewClientBuilder().WithScheme(Scheme()).Build(),
		k8sfake.NewClientset(objs...),
	)
}

func newServiceContext(t *testing.T, name string, target config.Target) (*runctx.ServiceContext, *properties.Store) {
	t.Helper()
	dir := t.TempDir()
	props := properties.NewStore()
	scenario := runctx.NewScenarioContext("ClusterIT", runctx.ScenarioOptions{
		Target:    target,
		TargetDir: dir,
		LogsDir:   filepath.Join(dir, "logs"),
	})
	return runctx.NewServiceContext(stubOwner{name: name, props: props}, scenario, props), props
}

func connected(t *testing.T, name string, c *Client) *runctx.ServiceContext {
	t.Helper()
	sc, _ := newServiceContext(t, name, config.TargetKubernetes)
	sc.Put(ContextKeyClient, c)
	sc.Put(ContextKeyNamespace, testNamespace)
	return sc
}

func pod(name, app string, waiting string) *corev1.Pod {
	p := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: testNamespace,
			Labels:    map[string]string{LabelName: app},
		},
	}
	if waiting != "" {
		p.Status.ContainerStatuses = []corev1.ContainerStatus{{
			Name:  app,
			State: corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: waiting, Message: "back-off"}},
		}}
	}
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func greetings() binding.Kubernetes {
	return binding.Kubernetes{
		Image:   "example/greetings:1.0",
		Port:    8080,
		Env:     map[string]string{"GREETING": "hello"},
		Markers: binding.Markers{Started: []string{"fake logs"}},
	}
}

func getDeployment(t *testing.T, c *Client, name string) *appsv1.Deployment {
	t.Helper()
	dep, err := c.Deployment(context.Background(), testNamespace, name)
	require.NoError(t, err)
	return dep
}

func setReady(t *testing.T, c *Client, name string, ready int32) {
	t.Helper()
	dep := getDeployment(t, c, name)
	dep.Status.ReadyReplicas = ready
	require.NoError(t, c.Status().Update(context.Background(), dep))
}

func TestDeployment_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(pod("greetings-1", "greetings", ""))
	sc := connected(t, "greetings", c)
	d := NewDeployment(sc, greetings())
	require.NoError(t, d.Validate())

	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Start(ctx))

	dep := getDeployment(t, c, "greetings")
	require.NotNil(t, dep.Spec.Replicas)
	assert.Equal(t, int32(1), *dep.Spec.Replicas)
	assert.Equal(t, "example/greetings:1.0", dep.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, ManagedBy, dep.Labels[LabelManagedBy])

	svc := &corev1.Service{}
	require.NoError(t, c.Get(ctx, client.ObjectKey{Namespace: testNamespace, Name: "greetings"}, svc))
	assert.Equal(t, int32(8080), svc.Spec.Ports[0].Port)

	running, err := d.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running, "no ready replicas yet")
	assert.Equal(t, []string{"fake logs"}, d.Logs())

	setReady(t, c, "greetings", 1)
	running, err = d.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)
	assert.False(t, d.IsFailed())

	uri, err := d.URI(resource.ProtocolHTTP)
	require.NoError(t, err)
	assert.Equal(t, "http://greetings.ts-test.svc.cluster.local:8080", uri.String())

	require.NoError(t, d.Stop(ctx))
	assert.Equal(t, int32(0), *getDeployment(t, c, "greetings").Spec.Replicas)
	running, err = d.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, d.Restart(ctx))
	assert.Equal(t, int32(1), *getDeployment(t, c, "greetings").Spec.Replicas)
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx))
}

func TestDeployment_EnvFromProperties(t *testing.T) {
	c := newFakeClient()
	sc, props := newServiceContext(t, "greetings", config.TargetKubernetes)
	sc.Put(ContextKeyClient, c)
	sc.Put(ContextKeyNamespace, testNamespace)
	props.Set("greeting.prefix", "hi")

	d := NewDeployment(sc, greetings())
	require.NoError(t, d.Start(context.Background()))

	env := map[string]string{}
	for _, e := range getDeployment(t, c, "greetings").Spec.Template.Spec.Containers[0].Env {
		env[e.Name] = e.Value
	}
	assert.Equal(t, "hi", env["GREETING_PREFIX"])
	assert.Equal(t, "hello", env["GREETING"])
}

func TestDeployment_CrashLoopIsFatal(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(pod("greetings-1", "greetings", "CrashLoopBackOff"))
	d := NewDeployment(connected(t, "greetings", c), greetings())
	require.NoError(t, d.Start(ctx))

	_, err := d.IsRunning(ctx)
	require.Error(t, err)
	assert.True(t, resource.IsFatalStart(err))
	assert.Contains(t, err.Error(), "CrashLoopBackOff")
	assert.True(t, d.IsFailed())
}

func TestDeployment_StartReplacesFailedPods(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(pod("greetings-1", "greetings", "CrashLoopBackOff"))
	d := NewDeployment(connected(t, "greetings", c), greetings())
	require.NoError(t, d.Start(ctx))

	_, err := d.IsRunning(ctx)
	require.True(t, resource.IsFatalStart(err))

	require.NoError(t, d.Start(ctx))
	assert.False(t, d.IsFailed())

	pods, err := c.Pods(ctx, testNamespace, LabelName+"=greetings")
	require.NoError(t, err)
	assert.Empty(t, pods, "failed pods are deleted before the deployment is applied again")

	dep := getDeployment(t, c, "greetings")
	require.NotNil(t, dep.Spec.Replicas)
	assert.Equal(t, int32(1), *dep.Spec.Replicas)

	running, err := d.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestDeployment_FatalMarker(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(pod("greetings-1", "greetings", ""))
	decl := greetings()
	decl.Fatal = []string{"fake"}
	d := NewDeployment(connected(t, "greetings", c), decl)
	require.NoError(t, d.Start(ctx))

	_, err := d.IsRunning(ctx)
	assert.True(t, resource.IsFatalStart(err))
	assert.True(t, d.IsFailed())
}

func TestDeployment_OtherPodsIgnored(t *testing.T) {
	ctx := context.Background()
	c := newFakeClient(pod("db-1", "db", "ErrImagePull"))
	d := NewDeployment(connected(t, "greetings", c), binding.Kubernetes{Image: "example/greetings", Port: 8080})
	require.NoError(t, d.Start(ctx))
	setReady(t, c, "greetings", 1)

	running, err := d.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Empty(t, d.Logs())
}

func TestDeployment_NotConnected(t *testing.T) {
	sc, _ := newServiceContext(t, "greetings", config.TargetKubernetes)
	d := NewDeployment(sc, greetings())
	assert.Error(t, d.Validate())
	assert.Error(t, d.Start(context.Background()))

	_, err := d.URI(resource.ProtocolHTTP)
	assert.Error(t, err)

	d = NewDeployment(connected(t, "greetings", newFakeClient()), binding.Kubernetes{})
	assert.Error(t, d.Validate())
}

func TestDeployment_CustomTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	writeFile(t, path, `apiVersion: apps/v1
kind: Deployment
metadata:
  name: {{ .Name }}
spec:
  replicas: {{ .Replicas }}
  selector:
    matchLabels:
      {{ .SelectorKey }}: {{ .Name }}
  template:
    metadata:
      labels:
        {{ .SelectorKey }}: {{ .Name }}
    spec:
      containers:
        - name: main
          image: custom/{{ .Name }}
`)
	c := newFakeClient()
	d := NewDeployment(connected(t, "greetings", c), binding.Kubernetes{Template: path, Replicas: 3})
	require.NoError(t, d.Validate())
	require.NoError(t, d.Start(context.Background()))

	dep := getDeployment(t, c, "greetings")
	assert.Equal(t, int32(3), *dep.Spec.Replicas)
	assert.Equal(t, "custom/greetings", dep.Spec.Template.Spec.Containers[0].Image)
	assert.Equal(t, "kubernetes deployment "+path, d.DisplayName())

	_, err := d.URI(resource.ProtocolHTTP)
	assert.Error(t, err, "no port declared")
}

func TestBinding(t *testing.T) {
	b := Binding()
	field := binding.Field{Name: "greetings", Declaration: greetings()}
	assert.True(t, b.IsFor(field))
	assert.False(t, b.IsFor(binding.Field{Name: "db", Declaration: binding.Container{Image: "postgres"}}))
	assert.False(t, b.RequiresLinuxContainersOnBareMetal())

	builder, err := b.Builder(field)
	require.NoError(t, err)
	res, err := builder.Build(context.Background(), connected(t, "greetings", newFakeClient()))
	require.NoError(t, err)
	assert.Equal(t, "kubernetes deployment example/greetings:1.0", res.DisplayName())
}

func TestContainerBinding(t *testing.T) {
	var b ContainerBinding
	bare, _ := newServiceContext(t, "db", config.TargetBareMetal)
	assert.False(t, b.AppliesFor(bare))
	openshift, _ := newServiceContext(t, "db", config.TargetOpenShift)
	assert.False(t, b.AppliesFor(openshift))

	sc := connected(t, "db", newFakeClient())
	assert.True(t, b.AppliesFor(sc))

	decl := binding.Container{
		Image:   "postgres:16",
		Port:    5432,
		Command: []string{"postgres", "-c", "fsync=off"},
		Markers: binding.Markers{Started: []string{"ready"}},
	}
	res, err := b.Init(sc, decl)
	require.NoError(t, err)
	dep, ok := res.(*Deployment)
	require.True(t, ok)
	assert.Equal(t, binding.Kubernetes{
		Image:    "postgres:16",
		Port:     5432,
		Replicas: 1,
		Command:  []string{"postgres", "-c", "fsync=off"},
		Markers:  binding.Markers{Started: []string{"ready"}},
	}, dep.Declaration())
}

func TestPodProblem(t *testing.T) {
	pods := []corev1.Pod{
		*pod("a", "x", ""),
		*pod("b", "x", "ContainerCreating"),
		*pod("c", "x", "ImagePullBackOff"),
	}
	name, reason, found := PodProblem(pods)
	assert.True(t, found)
	assert.Equal(t, "c", name)
	assert.Equal(t, "ImagePullBackOff: back-off", reason)

	_, _, found = PodProblem(pods[:2])
	assert.False(t, found)
}
