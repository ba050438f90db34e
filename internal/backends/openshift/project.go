package openshift

import (
	"context"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"conductor/internal/backends/kubernetes"
	"conductor/internal/config"
)

// OpenShift kinds handled as unstructured objects.
var (
	ProjectGVK        = schema.GroupVersionKind{Group: "project.openshift.io", Version: "v1", Kind: "Project"}
	ProjectRequestGVK = schema.GroupVersionKind{Group: "project.openshift.io", Version: "v1", Kind: "ProjectRequest"}
	RouteGVK          = schema.GroupVersionKind{Group: "route.openshift.io", Version: "v1", Kind: "Route"}
)

// NewProjectExtension creates the namespace extension of the openshift
// target, which requests projects instead of plain namespaces.
func NewProjectExtension(cfg config.OpenShiftConfig, kubeconfig string, newClient func() (*kubernetes.Client, error)) *kubernetes.NamespaceExtension {
	if newClient == nil {
		newClient = func() (*kubernetes.Client, error) { return kubernetes.NewClient(kubeconfig) }
	}
	tool := cfg.OC
	if tool == "" {
		tool = config.DefaultOC
	}
	return kubernetes.NewNamespaceExtensionWith(kubernetes.NamespaceOptions{
		Target:          config.TargetOpenShift,
		Name:            cfg.Project,
		DeleteOnFailure: cfg.DeleteProjectOnFailure,
		Tool:            tool,
		NewClient:       newClient,
		Create:          CreateProject,
		Delete:          DeleteProject,
	})
}

// CreateProject requests a project, which is how unprivileged users get a
// namespace on OpenShift.
func CreateProject(ctx context.Context, c *kubernetes.Client, name string, labels map[string]string) error {
	req := &unstructured.Unstructured{}
	req.SetGroupVersionKind(ProjectRequestGVK)
	req.SetName(name)
	req.SetLabels(labels)
	if err := unstructured.SetNestedField(req.Object, "conductor scenario "+name, "displayName"); err != nil {
		return err
	}
	return c.Create(ctx, req)
}

// DeleteProject deletes a project and everything in it.
func DeleteProject(ctx context.Context, c *kubernetes.Client, name string) error {
	project := &unstructured.Unstructured{}
	project.SetGroupVersionKind(ProjectGVK)
	project.SetName(name)
	return c.Delete(ctx, project)
}
