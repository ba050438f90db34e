// Package container runs services as containers of the local docker or
// podman runtime.
//
// Service properties are passed as environment variables and the declared
// port is published on a random host port, which URI reports. When the
// scenario targets a cluster, alternative resource bindings take over the
// declaration and deploy the same image there instead.
package container
