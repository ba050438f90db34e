// Package openshift runs services on OpenShift. It reuses the kubernetes
// deployment, requests a project per scenario and can expose a service
// through a Route whose host then serves as the service URI.
package openshift
