// Package resource defines the backend abstraction of a service.
//
// A ManagedResource is the live instance behind a service: a local process,
// a container, or a Kubernetes/OpenShift deployment. A Builder turns a
// service declaration into a ManagedResource, optionally producing a build
// artifact first.
//
// # Build-then-run
//
// ArtifactBuilder implements the common build flow for backends that need
// an artifact:
//
//  1. seed baseline logging properties
//  2. pick the concrete resource from an ordered list of ResourceBinding
//     values (first match wins), or fall back to a default resource
//  3. if the resource needs an artifact, ask the ArtifactCache for one
//  4. validate the resource
//
// # Rebuild avoidance
//
// ArtifactCache keeps the artifact of the previous build together with the
// property snapshot taken before that build. A new build is required when
// there is no previous artifact, when a custom class selection is active, or
// when the symmetric difference between the snapshot and the current
// properties contains a key matching one of the build-time patterns. The
// comparison, the build and the new snapshot happen under one lock.
//
// # Readiness
//
// IsRunning is re-derived on every call. LogChecker implements the default
// contract: a fatal marker in the logs yields a FatalStartError, a started
// marker yields true, anything else means the resource is still starting.
package resource
