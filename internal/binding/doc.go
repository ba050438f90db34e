// Package binding maps declared service fields to resource builders.
//
// A Field couples a service name with a Declaration. Declaration is a closed
// tagged union with one variant per backend kind:
//
//   - LocalApp: a process on this host, optionally built first
//   - Container: a container image run by docker or podman
//   - Kubernetes: a deployment in a Kubernetes namespace
//   - OpenShift: a deployment in an OpenShift project, exposed by a route
//
// A Binding claims fields (IsFor) and creates their resource.Builder. The
// Registry keeps bindings in explicit registration order and resolves a
// field to the first binding that claims it. A field nobody claims is a
// NotFoundError.
package binding
