package containerizer

import (
	"context"
	"io"
)

// ContainerRuntime defines the interface for container runtime operations
type ContainerRuntime interface {
	// Name returns the runtime binary, docker or podman
	Name() string

	// OSType returns the operating system containers run on, e.g. linux
	OSType(ctx context.Context) (string, error)

	// PullImage pulls a container image if not already present
	PullImage(ctx context.Context, image string) error

	// StartContainer starts a detached container and returns its id
	StartContainer(ctx context.Context, config ContainerConfig) (string, error)

	// StopContainer stops a running container
	StopContainer(ctx context.Context, containerID string) error

	// GetContainerLogs follows the combined container output until ctx ends
	// or the container exits
	GetContainerLogs(ctx context.Context, containerID string) (io.ReadCloser, error)

	// IsContainerRunning checks if a container is running
	IsContainerRunning(ctx context.Context, containerID string) (bool, error)

	// GetContainerPort gets the mapped host port for a container port
	GetContainerPort(ctx context.Context, containerID string, containerPort string) (string, error)

	// RemoveContainer force-removes a container
	RemoveContainer(ctx context.Context, containerID string) error
}

// ContainerConfig holds configuration for starting a container
type ContainerConfig struct {
	Name       string            // Container name
	Image      string            // Container image
	Env        map[string]string // Environment variables
	Ports      []string          // Port publications, "8080" picks a random host port
	Volumes    []string          // Volume mounts (host:container)
	Labels     map[string]string // Container labels
	Entrypoint []string          // Entrypoint override
	Command    []string          // Arguments after the image
	User       string            // User to run as
}
