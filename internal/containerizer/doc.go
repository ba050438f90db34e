// Package containerizer wraps the docker and podman command line clients.
//
// CLIRuntime implements ContainerRuntime for both; NewContainerRuntime picks
// the configured one and falls back to the other when its detection is
// enabled. LinuxProbe memoizes whether the host can run Linux containers,
// which scenarios with container backed services need on bare metal.
//
// Commands go through execCommandContext so tests can replace the binaries
// with a helper process.
package containerizer
