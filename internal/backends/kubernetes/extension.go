package kubernetes

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"conductor/internal/config"
	"conductor/internal/runctx"
	"conductor/pkg/logging"
)

// Namespace is the namespace of the running scenario, injectable into
// scenarios.
type Namespace string

// EphemeralName returns a fresh namespace name.
func EphemeralName() string {
	return "ts-" + uuid.NewString()[:8]
}

// NamespaceOptions configure a NamespaceExtension.
type NamespaceOptions struct {
	// Target the extension applies to.
	Target config.Target

	// Name of a fixed namespace. When empty an ephemeral namespace is
	// created for every scenario.
	Name string

	// DeleteOnFailure removes the ephemeral namespace even when the
	// scenario failed.
	DeleteOnFailure bool

	// Tool is the CLI named in troubleshooting hints.
	Tool string

	// NewClient connects to the cluster.
	NewClient func() (*Client, error)

	// Create and Delete manage the namespace. They default to plain
	// Namespace objects.
	Create func(ctx context.Context, c *Client, name string, labels map[string]string) error
	Delete func(ctx context.Context, c *Client, name string) error
}

// NamespaceExtension gives every scenario targeting a cluster its own
// namespace and hands the connection to the services.
type NamespaceExtension struct {
	opts NamespaceOptions

	mu        sync.Mutex
	client    *Client
	namespace string
	created   bool
}

// NewNamespaceExtension creates the extension of the kubernetes target.
func NewNamespaceExtension(cfg config.KubernetesConfig, newClient func() (*Client, error)) *NamespaceExtension {
	if newClient == nil {
		newClient = func() (*Client, error) { return NewClient(cfg.Kubeconfig) }
	}
	return NewNamespaceExtensionWith(NamespaceOptions{
		Target:          config.TargetKubernetes,
		Name:            cfg.Namespace,
		DeleteOnFailure: cfg.DeleteNamespaceOnFailure,
		Tool:            cfg.Kubectl,
		NewClient:       newClient,
	})
}

// NewNamespaceExtensionWith creates an extension from explicit options.
func NewNamespaceExtensionWith(opts NamespaceOptions) *NamespaceExtension {
	if opts.Create == nil {
		opts.Create = CreateNamespace
	}
	if opts.Delete == nil {
		opts.Delete = DeleteNamespace
	}
	if opts.Tool == "" {
		opts.Tool = config.DefaultKubectl
	}
	return &NamespaceExtension{opts: opts}
}

// AppliesFor reports whether the scenario targets the cluster kind of the
// extension.
func (e *NamespaceExtension) AppliesFor(sc *runctx.ScenarioContext) bool {
	return sc.Target() == e.opts.Target
}

// BeforeAll connects and creates the namespace. A fixed namespace that
// already exists is reused and never deleted.
func (e *NamespaceExtension) BeforeAll(ctx context.Context, sc *runctx.ScenarioContext) error {
	c, err := e.opts.NewClient()
	if err != nil {
		return err
	}

	name := e.opts.Name
	ephemeral := name == ""
	if ephemeral {
		name = EphemeralName()
	}

	labels := map[string]string{
		LabelManagedBy: ManagedBy,
		LabelScenario:  LabelValue(sc.ID()),
	}
	created := true
	if err := e.opts.Create(ctx, c, name, labels); err != nil {
		if ephemeral || !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("failed to create namespace %s: %w", name, err)
		}
		created = false
	}
	logging.Info("Namespace", "Scenario %s runs in namespace %s", sc.ID(), name)

	e.mu.Lock()
	e.client = c
	e.namespace = name
	e.created = created && ephemeral
	e.mu.Unlock()
	return nil
}

// UpdateServiceContext publishes the connection to a service.
func (e *NamespaceExtension) UpdateServiceContext(svcCtx *runctx.ServiceContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return
	}
	svcCtx.Put(ContextKeyClient, e.client)
	svcCtx.Put(ContextKeyNamespace, e.namespace)
}

// Parameter injects the client and the namespace.
func (e *NamespaceExtension) Parameter(t reflect.Type) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil, false
	}
	switch t {
	case reflect.TypeFor[*Client]():
		return e.client, true
	case reflect.TypeFor[Namespace]():
		return Namespace(e.namespace), true
	}
	return nil, false
}

// AfterAll deletes the ephemeral namespace, keeping it after a failure
// unless configured otherwise.
func (e *NamespaceExtension) AfterAll(ctx context.Context, sc *runctx.ScenarioContext) error {
	e.mu.Lock()
	c, name, created := e.client, e.namespace, e.created
	e.created = false
	e.mu.Unlock()

	if !created {
		return nil
	}
	if sc.IsFailed() && !e.opts.DeleteOnFailure {
		logging.Info("Namespace", "Keeping namespace %s of failed scenario %s", name, sc.ID())
		return nil
	}
	if err := e.opts.Delete(ctx, c, name); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete namespace %s: %w", name, err)
	}
	return nil
}

// OnError tells how to inspect the namespace of a failed scenario.
func (e *NamespaceExtension) OnError(_ context.Context, sc *runctx.ScenarioContext, err error) {
	ns := e.CurrentNamespace()
	if ns == "" {
		return
	}
	logging.Warn("Namespace", "Scenario %s failed: %v. Inspect it with: %s get all -n %s", sc.ID(), err, e.opts.Tool, ns)
}

// CurrentNamespace returns the namespace of the running scenario.
func (e *NamespaceExtension) CurrentNamespace() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.namespace
}

// CreateNamespace creates a Namespace object.
func CreateNamespace(ctx context.Context, c *Client, name string, labels map[string]string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
	return c.Create(ctx, ns)
}

// DeleteNamespace deletes a Namespace object and everything in it.
func DeleteNamespace(ctx context.Context, c *Client, name string) error {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	return c.Delete(ctx, ns)
}
