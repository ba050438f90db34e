package kubernetes

import (
	"context"
	"fmt"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"

	"conductor/internal/binding"
	"conductor/internal/properties"
	"conductor/internal/resource"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// Side-store keys under which the namespace extension publishes the
// cluster connection of a scenario.
const (
	ContextKeyClient    = "kubernetes.client"
	ContextKeyNamespace = "kubernetes.namespace"
)

// Deployment runs a service as a Deployment in the scenario namespace.
// Custom templates must name the Deployment after .Name and label its pods
// with .SelectorKey.
type Deployment struct {
	decl binding.Kubernetes
	sc   *runctx.ServiceContext
	logs *resource.LogBuffer

	mu        sync.Mutex
	client    *Client
	namespace string
	name      string
	started   bool
	failed    bool
	forwarded int
}

// NewDeployment creates the deployment resource of decl.
func NewDeployment(sc *runctx.ServiceContext, decl binding.Kubernetes) *Deployment {
	if decl.Replicas <= 0 {
		decl.Replicas = 1
	}
	return &Deployment{
		decl: decl,
		sc:   sc,
		logs: resource.NewLogBuffer(resource.DefaultLogBufferSize),
	}
}

func (d *Deployment) connect() error {
	if d.client != nil {
		return nil
	}
	c, ok := runctx.Value[*Client](d.sc, ContextKeyClient)
	if !ok || c == nil {
		return fmt.Errorf("service %s has no Kubernetes client, is the scenario targeting a cluster?", d.sc.Name())
	}
	ns, ok := runctx.Value[string](d.sc, ContextKeyNamespace)
	if !ok || ns == "" {
		return fmt.Errorf("service %s has no namespace", d.sc.Name())
	}
	name, err := ResourceName(d.sc.Name())
	if err != nil {
		return err
	}
	d.client, d.namespace, d.name = c, ns, name
	return nil
}

// Manifests renders the objects of the deployment.
func (d *Deployment) Manifests() ([]*unstructured.Unstructured, error) {
	text, err := LoadTemplate(d.decl.Template)
	if err != nil {
		return nil, err
	}
	env := properties.ToEnvMap(d.sc.Properties().Snapshot())
	for k, v := range d.decl.Env {
		env[k] = v
	}
	return RenderManifests(text, ManifestData{
		Name:      d.name,
		Namespace: d.namespace,
		Image:     d.decl.Image,
		Port:      d.decl.Port,
		Replicas:  d.decl.Replicas,
		Command:   d.decl.Command,
		Env:       env,
		Labels: map[string]string{
			LabelName:      d.name,
			LabelManagedBy: ManagedBy,
			LabelScenario:  LabelValue(d.sc.Scenario().ID()),
		},
		SelectorKey: LabelName,
	})
}

// Start applies the manifests. Applying an existing deployment scales it
// back up. A deployment whose pods failed is scaled down and its pods are
// deleted before it is applied again.
func (d *Deployment) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started && !d.failed {
		return nil
	}
	if err := d.connect(); err != nil {
		return err
	}
	if d.failed {
		if err := d.recycle(ctx); err != nil {
			return err
		}
	}
	objs, err := d.Manifests()
	if err != nil {
		return err
	}
	if err := d.client.Apply(ctx, d.namespace, objs...); err != nil {
		return err
	}
	d.started = true
	d.failed = false
	d.forwarded = 0
	d.logs.Reset()
	return nil
}

func (d *Deployment) recycle(ctx context.Context) error {
	logging.Info(d.sc.Name(), "Replacing failed pods of deployment %s", d.name)
	if err := d.client.Scale(ctx, d.namespace, d.name, 0); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to scale down %s: %w", d.name, err)
	}
	selector := labels.SelectorFromSet(labels.Set{LabelName: d.name}).String()
	if err := d.client.DeletePods(ctx, d.namespace, selector); err != nil {
		return err
	}
	d.started = false
	return nil
}

// Stop scales the deployment to zero.
func (d *Deployment) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return nil
	}
	d.started = false
	if err := d.client.Scale(ctx, d.namespace, d.name, 0); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to scale down %s: %w", d.name, err)
	}
	return nil
}

// Restart scales the deployment down and applies it again.
func (d *Deployment) Restart(ctx context.Context) error {
	if err := d.Stop(ctx); err != nil {
		return err
	}
	return d.Start(ctx)
}

// IsRunning fails on pods stuck in a failing state, then checks the pod
// logs for markers and waits for the ready replicas.
func (d *Deployment) IsRunning(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return false, nil
	}

	selector := labels.SelectorFromSet(labels.Set{LabelName: d.name}).String()
	pods, err := d.client.Pods(ctx, d.namespace, selector)
	if err != nil {
		return false, err
	}
	if pod, reason, found := PodProblem(pods); found {
		d.failed = true
		return false, &resource.FatalStartError{Resource: d.DisplayName(), Marker: reason, Line: pod}
	}

	lines, err := d.client.PodLogs(ctx, d.namespace, selector)
	if err != nil {
		return false, err
	}
	d.logs.Reset()
	for i, line := range lines {
		d.logs.Add(line)
		if i >= d.forwarded {
			d.sc.ForwardLog(line)
		}
	}
	if len(lines) > d.forwarded {
		d.forwarded = len(lines)
	}

	checker := resource.LogChecker{Resource: d.DisplayName(), Started: d.decl.Started, Fatal: d.decl.Fatal}
	started, err := checker.Check(lines)
	if err != nil {
		d.failed = true
		return false, err
	}

	dep, err := d.client.Deployment(ctx, d.namespace, d.name)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return started && dep.Status.ReadyReplicas >= d.decl.Replicas, nil
}

// IsFailed reports whether a pod failed to start.
func (d *Deployment) IsFailed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failed
}

// URI returns the cluster DNS name of the service.
func (d *Deployment) URI(protocol resource.Protocol) (resource.URILike, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.name == "" {
		return resource.URILike{}, fmt.Errorf("deployment of service %s is not started", d.sc.Name())
	}
	if d.decl.Port <= 0 {
		return resource.URILike{}, fmt.Errorf("deployment %s exposes no port", d.name)
	}
	uri := resource.URILike{
		Scheme: string(protocol),
		Host:   fmt.Sprintf("%s.%s.svc.cluster.local", d.name, d.namespace),
		Port:   d.decl.Port,
	}
	if protocol == resource.ProtocolManagement {
		uri.Scheme = "http"
	}
	return uri, nil
}

// Logs returns the last collected pod log lines.
func (d *Deployment) Logs() []string {
	return d.logs.Lines()
}

// DisplayName names the deployment by its image.
func (d *Deployment) DisplayName() string {
	if d.decl.Image == "" {
		return "kubernetes deployment " + d.decl.Template
	}
	return "kubernetes deployment " + d.decl.Image
}

// Validate checks the image and the cluster connection.
func (d *Deployment) Validate() error {
	if err := binding.Validate(d.decl); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connect()
}

// Client returns the cluster client once connected.
func (d *Deployment) Client() *Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.client
}

// Namespace returns the namespace the deployment lives in.
func (d *Deployment) Namespace() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.namespace
}

// Name returns the name of the deployed objects.
func (d *Deployment) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

// Declaration returns the effective declaration.
func (d *Deployment) Declaration() binding.Kubernetes {
	return d.decl
}
