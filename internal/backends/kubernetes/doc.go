// Package kubernetes deploys services into a Kubernetes namespace.
//
// The NamespaceExtension creates a namespace per scenario, or reuses a
// configured one, and publishes the cluster client to every service. A
// Deployment renders the manifests of a service from a template, the
// built-in Deployment and Service by default, and applies them. Readiness
// combines pod state, log markers and the ready replica count.
//
// ContainerBinding lets container declarations run on the cluster unchanged
// when a scenario targets Kubernetes.
package kubernetes
