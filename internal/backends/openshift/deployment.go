package openshift

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"conductor/internal/backends/kubernetes"
	"conductor/internal/binding"
	"conductor/internal/probe"
	"conductor/internal/resource"
	"conductor/internal/runctx"
)

// Deployment is a kubernetes deployment optionally exposed through a Route.
type Deployment struct {
	*kubernetes.Deployment

	decl  binding.OpenShift
	probe *probe.HTTP

	mu   sync.Mutex
	host string
}

// NewDeployment creates the deployment resource of decl.
func NewDeployment(sc *runctx.ServiceContext, decl binding.OpenShift, p *probe.HTTP) *Deployment {
	if p == nil {
		p = probe.NewHTTP(probe.Options{})
	}
	return &Deployment{
		Deployment: kubernetes.NewDeployment(sc, decl.Kubernetes),
		decl:       decl,
		probe:      p,
	}
}

// Route returns the Route exposing the service of the deployment.
func (d *Deployment) Route() *unstructured.Unstructured {
	route := &unstructured.Unstructured{}
	route.SetGroupVersionKind(RouteGVK)
	route.SetName(d.Name())
	route.SetLabels(map[string]string{
		kubernetes.LabelName:      d.Name(),
		kubernetes.LabelManagedBy: kubernetes.ManagedBy,
	})
	route.Object["spec"] = map[string]interface{}{
		"to": map[string]interface{}{
			"kind": "Service",
			"name": d.Name(),
		},
		"port": map[string]interface{}{
			"targetPort": "http",
		},
	}
	return route
}

// Start applies the deployment and its route.
func (d *Deployment) Start(ctx context.Context) error {
	if err := d.Deployment.Start(ctx); err != nil {
		return err
	}
	if !d.decl.Route {
		return nil
	}
	if err := d.Client().Apply(ctx, d.Namespace(), d.Route()); err != nil {
		return err
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

// IsRunning extends the deployment readiness with the route: it needs an
// assigned host, and the route path must answer when one is declared.
func (d *Deployment) IsRunning(ctx context.Context) (bool, error) {
	ready, err := d.Deployment.IsRunning(ctx)
	if err != nil || !ready || !d.decl.Route {
		return ready, err
	}

	host, err := d.routeHost(ctx)
	if err != nil || host == "" {
		return false, err
	}
	if d.decl.RoutePath == "" {
		return true, nil
	}
	uri := resource.URILike{Scheme: "http", Host: host, Path: d.decl.RoutePath}
	return d.probe.Ready(ctx, uri.String())
}

func (d *Deployment) routeHost(ctx context.Context) (string, error) {
	route := &unstructured.Unstructured{}
	route.SetGroupVersionKind(RouteGVK)
	if err := d.Client().Get(ctx, client.ObjectKey{Namespace: d.Namespace(), Name: d.Name()}, route); err != nil {
		return "", fmt.Errorf("failed to get route %s: %w", d.Name(), err)
	}

	host, _, _ := unstructured.NestedString(route.Object, "spec", "host")
	if host == "" {
		ingress, _, _ := unstructured.NestedSlice(route.Object, "status", "ingress")
		if len(ingress) > 0 {
			if m, ok := ingress[0].(map[string]interface{}); ok {
				host, _, _ = unstructured.NestedString(m, "host")
			}
		}
	}

	d.mu.Lock()
	d.host = host
	d.mu.Unlock()
	return host, nil
}

// URI returns the route host once assigned, the cluster DNS name
// otherwise.
func (d *Deployment) URI(protocol resource.Protocol) (resource.URILike, error) {
	d.mu.Lock()
	host := d.host
	d.mu.Unlock()
	if !d.decl.Route || host == "" {
		return d.Deployment.URI(protocol)
	}

	uri := resource.URILike{Scheme: string(protocol), Host: host}
	if protocol == resource.ProtocolManagement {
		uri.Scheme = "http"
	}
	return uri, nil
}

// DisplayName names the deployment by its image.
func (d *Deployment) DisplayName() string {
	if d.decl.Image == "" {
		return "openshift deployment " + d.decl.Template
	}
	return "openshift deployment " + d.decl.Image
}

// Validate also requires a port to route to.
func (d *Deployment) Validate() error {
	if err := binding.Validate(d.decl); err != nil {
		return err
	}
	if d.decl.Route && d.decl.Port <= 0 {
		return errors.New("a route needs a port")
	}
	return d.Deployment.Validate()
}

// Declaration returns the effective declaration.
func (d *Deployment) Declaration() binding.OpenShift {
	return d.decl
}
